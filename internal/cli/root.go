// Package cli implements the promptly command line.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/heartmarshall/promptly/internal/app"
	"github.com/heartmarshall/promptly/internal/config"
)

type runner struct {
	configPath string
	envFile    string
	verbose    bool

	loadConfig func(path string) (*config.Config, error)
	newEnv     EnvFactory

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCmd builds the promptly command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&runner{loadConfig: config.LoadFile, newEnv: AppEnv})
}

func newRootCmd(r *runner) *cobra.Command {
	root := &cobra.Command{
		Use:   "promptly",
		Short: "A diary of the prompts you send to language models",
		Long: `promptly keeps a personal, searchable timeline of LLM prompts.
Each entry is summarized when saved and tagged for later filtering.

Sign in through the web flow started by "promptly serve", then use the
other commands from the terminal with the same stored session.`,
		Version:           app.Version,
		SilenceUsage:      true,
		PersistentPreRunE: r.setup,
	}

	root.PersistentFlags().StringVar(&r.configPath, "config", "", "config file (default: $CONFIG_PATH or ./config.yaml)")
	root.PersistentFlags().StringVar(&r.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.PersistentFlags().BoolVarP(&r.verbose, "verbose", "v", false, "log at the configured level instead of warn")

	root.AddCommand(
		r.serveCmd(),
		r.migrateCmd(),
		r.whoamiCmd(),
		r.logoutCmd(),
		r.recentCmd(),
		r.libraryCmd(),
		r.showCmd(),
		r.addCmd(),
		r.deleteCmd(),
		r.tagsCmd(),
		versionCmd(),
	)
	return root
}

func (r *runner) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	if r.envFile != "" {
		if err := godotenv.Load(r.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", r.envFile, err)
		}
	}

	path := r.configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	cfg, err := r.loadConfig(path)
	if err != nil {
		return err
	}
	logCfg := cfg.Log
	if cmd.Name() != "serve" && !r.verbose {
		logCfg.Level = "warn"
	}
	r.cfg = cfg
	r.logger = app.NewLogger(logCfg)
	return nil
}

// env builds the command environment. Callers must close it.
func (r *runner) env(cmd *cobra.Command) (*Env, error) {
	return r.newEnv(cmd.Context(), r.cfg, r.logger)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), app.BuildVersion())
		},
	}
}
