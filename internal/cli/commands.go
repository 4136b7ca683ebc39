package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/heartmarshall/promptly/internal/adapter/postgres"
	"github.com/heartmarshall/promptly/internal/app"
	"github.com/heartmarshall/promptly/internal/config"
	"github.com/heartmarshall/promptly/internal/domain"
	"github.com/heartmarshall/promptly/internal/library"
	"github.com/heartmarshall/promptly/internal/service/prompt"
)

func (r *runner) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Run the HTTP server with the sign-in flow and the diary API.

Open http://<host>:<port>/auth/signin in a browser to sign in.
The server stops on Ctrl+C or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), r.cfg, r.logger)
		},
	}
}

func (r *runner) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations (postgres driver)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if r.cfg.Database.Driver != config.DriverPostgres {
				return fmt.Errorf("migrate needs database.driver %q (got %q)", config.DriverPostgres, r.cfg.Database.Driver)
			}
			applied, err := postgres.Migrate(cmd.Context(), r.cfg.Database.DSN)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Database is up to date.")
				return nil
			}
			for _, v := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "Applied migration %05d\n", v)
			}
			return nil
		},
	}
}

func (r *runner) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := r.env(cmd)
			if err != nil {
				return err
			}
			defer env.close()

			snap, err := env.resolve(cmd.Context())
			if err != nil {
				return err
			}
			env.renderer(cmd.OutOrStdout()).Identity(env.profile(cmd.Context(), snap, r.logger))
			return nil
		},
	}
}

func (r *runner) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := r.env(cmd)
			if err != nil {
				return err
			}
			defer env.close()

			// A failed session fetch still leaves local state to clear.
			_, _ = env.resolve(cmd.Context())
			env.Sessions.SignOut(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func (r *runner) recentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recent",
		Short: "List the most recent prompts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := r.env(cmd)
			if err != nil {
				return err
			}
			defer env.close()

			ctx, err := env.authorize(cmd.Context())
			if err != nil {
				return err
			}
			res, err := env.Prompts.Recent(ctx)
			if err != nil {
				return fmt.Errorf("could not load prompts: %w", err)
			}
			env.renderer(cmd.OutOrStdout()).List(res.Prompts)
			return nil
		},
	}
}

func (r *runner) libraryCmd() *cobra.Command {
	var (
		search string
		tags   []string
		sort   string
	)
	cmd := &cobra.Command{
		Use:     "library",
		Aliases: []string{"ls"},
		Short:   "Browse the timeline with search and tag filters",
		Example: `  promptly library --search recursion
  promptly library --tag go --tag testing --sort oldest`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if sort != string(library.SortNewest) && sort != string(library.SortOldest) {
				return fmt.Errorf("--sort must be %q or %q", library.SortNewest, library.SortOldest)
			}
			env, err := r.env(cmd)
			if err != nil {
				return err
			}
			defer env.close()

			ctx, err := env.authorize(cmd.Context())
			if err != nil {
				return err
			}
			view, err := env.Prompts.Library(ctx, library.Query{
				Search: search,
				Tags:   tags,
				Sort:   library.ParseSort(sort),
			})
			if err != nil {
				return fmt.Errorf("could not load prompts: %w", err)
			}
			env.renderer(cmd.OutOrStdout()).Timeline(view)
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "case-insensitive text to look for")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "only prompts carrying every given tag")
	cmd.Flags().StringVar(&sort, "sort", string(library.SortNewest), "newest or oldest")
	return cmd
}

func (r *runner) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one prompt in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			env, err := r.env(cmd)
			if err != nil {
				return err
			}
			defer env.close()

			ctx, err := env.authorize(cmd.Context())
			if err != nil {
				return err
			}
			p, err := env.Prompts.Get(ctx, id)
			if err != nil {
				return err
			}
			env.renderer(cmd.OutOrStdout()).Detail(p)
			return nil
		},
	}
}

func (r *runner) addCmd() *cobra.Command {
	var (
		tags     []string
		response string
	)
	cmd := &cobra.Command{
		Use:     "add <prompt text>",
		Short:   "Summarize and save a prompt",
		Example: `  promptly add --tag go --tag concurrency "How do I cancel a goroutine?"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := r.env(cmd)
			if err != nil {
				return err
			}
			defer env.close()

			ctx, err := env.authorize(cmd.Context())
			if err != nil {
				return err
			}

			input := prompt.SaveInput{Prompt: strings.Join(args, " "), Tags: tags}
			if cmd.Flags().Changed("response") {
				input.Response = &response
			}

			fmt.Fprintln(cmd.ErrOrStderr(), "Saving...")
			res, err := env.Prompts.Save(ctx, input)
			if err != nil {
				printValidation(cmd.ErrOrStderr(), err)
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Saved.")
			env.renderer(cmd.OutOrStdout()).Detail(res.Prompt)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "tag to attach (repeatable, at least one)")
	cmd.Flags().StringVarP(&response, "response", "r", "", "the model's answer, if worth keeping")
	return cmd
}

func (r *runner) deleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			env, err := r.env(cmd)
			if err != nil {
				return err
			}
			defer env.close()

			ctx, err := env.authorize(cmd.Context())
			if err != nil {
				return err
			}

			if !yes {
				ok, err := env.Confirm.Confirm("Delete this prompt? This cannot be undone.")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
			}

			if err := env.Prompts.Delete(ctx, prompt.DeleteInput{ID: id, Confirmed: true}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Deleted.")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func (r *runner) tagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List every tag in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := r.env(cmd)
			if err != nil {
				return err
			}
			defer env.close()

			ctx, err := env.authorize(cmd.Context())
			if err != nil {
				return err
			}
			tags, err := env.Prompts.Tags(ctx)
			if err != nil {
				return err
			}
			env.renderer(cmd.OutOrStdout()).Tags(tags)
			return nil
		},
	}
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.NewValidationError("id", "invalid id")
	}
	return id, nil
}

func printValidation(w io.Writer, err error) {
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		return
	}
	for _, fe := range ve.Errors {
		fmt.Fprintf(w, "  %s: %s\n", fe.Field, fe.Message)
	}
}
