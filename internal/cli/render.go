package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/heartmarshall/promptly/internal/domain"
	"github.com/heartmarshall/promptly/internal/library"
)

// Renderer prints prompts and identities to a terminal.
type Renderer struct {
	w   io.Writer
	loc *time.Location

	day     lipgloss.Style
	clock   lipgloss.Style
	summary lipgloss.Style
	body    lipgloss.Style
	tag     lipgloss.Style
	muted   lipgloss.Style
	id      lipgloss.Style
}

// NewRenderer creates a Renderer. Colors are dropped when w is not a
// terminal.
func NewRenderer(w io.Writer, loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.Local
	}
	r := lipgloss.NewRenderer(w)
	return &Renderer{
		w:       w,
		loc:     loc,
		day:     r.NewStyle().Bold(true).Underline(true).MarginTop(1),
		clock:   r.NewStyle().Foreground(lipgloss.Color("8")),
		summary: r.NewStyle().Bold(true),
		body:    r.NewStyle().PaddingLeft(4),
		tag:     r.NewStyle().Foreground(lipgloss.Color("6")),
		muted:   r.NewStyle().Faint(true),
		id:      r.NewStyle().Foreground(lipgloss.Color("8")).Faint(true),
	}
}

// Timeline prints a grouped library view.
func (r *Renderer) Timeline(v library.View) {
	if v.Empty() {
		r.line(r.muted.Render("No prompts match."))
		return
	}
	for _, g := range v.Groups {
		r.line(r.day.Render(g.Label))
		for i := range g.Prompts {
			r.item(&g.Prompts[i])
		}
	}
	r.line("")
	r.line(r.muted.Render(fmt.Sprintf("%d prompt(s)", v.Total)))
}

// List prints prompts newest first, without day grouping.
func (r *Renderer) List(prompts []domain.Prompt) {
	if len(prompts) == 0 {
		r.line(r.muted.Render("No prompts yet. Add one with `promptly add`."))
		return
	}
	for i := range prompts {
		r.item(&prompts[i])
	}
}

// Detail prints one prompt in full.
func (r *Renderer) Detail(p *domain.Prompt) {
	r.line(r.summary.Render(p.Summary))
	r.line(r.clock.Render(library.DateLabel(p.CreatedAt, r.loc) + " " + library.TimeLabel(p.CreatedAt, r.loc)))
	r.line(r.tags(p.Tags))
	r.line("")
	r.line(p.Prompt)
	if resp := p.ResponseText(); resp != "" {
		r.line("")
		r.line(r.muted.Render("Response:"))
		r.line(resp)
	}
	r.line(r.id.Render(p.ID.String()))
}

// Identity prints the signed-in user, or a hint when nobody is.
func (r *Renderer) Identity(ident *domain.Identity) {
	if ident == nil {
		r.line("Not signed in. Run `promptly serve` and open /auth/signin.")
		return
	}
	r.line(r.summary.Render(ident.Name) + " " + r.muted.Render("<"+ident.Email+">"))
	if !ident.LastSignIn.IsZero() {
		r.line(r.muted.Render("last sign-in " + ident.LastSignIn.In(r.loc).Format("January 2, 2006 3:04 PM")))
	}
}

// Tags prints tag chips on one line.
func (r *Renderer) Tags(tags []string) {
	if len(tags) == 0 {
		r.line(r.muted.Render("No tags yet."))
		return
	}
	r.line(r.tags(tags))
}

func (r *Renderer) item(p *domain.Prompt) {
	r.line(r.clock.Render(library.TimeLabel(p.CreatedAt, r.loc)) + "  " + r.summary.Render(p.Summary) + "  " + r.tags(p.Tags))
	r.line(r.body.Render(firstLine(p.Prompt)))
	r.line(r.body.Render(r.id.Render(p.ID.String())))
}

func (r *Renderer) tags(tags []string) string {
	chips := make([]string, len(tags))
	for i, t := range tags {
		chips[i] = r.tag.Render("#" + t)
	}
	return strings.Join(chips, " ")
}

func (r *Renderer) line(s string) {
	fmt.Fprintln(r.w, s)
}

const maxPreview = 80

func firstLine(s string) string {
	s, _, cut := strings.Cut(strings.TrimSpace(s), "\n")
	runes := []rune(s)
	if len(runes) > maxPreview {
		return string(runes[:maxPreview-1]) + "…"
	}
	if cut {
		return s + " …"
	}
	return s
}
