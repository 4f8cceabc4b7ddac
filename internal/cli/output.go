package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/dailypost/backend/internal/feed"
	"github.com/dailypost/backend/internal/generator"
	"github.com/dailypost/backend/internal/novelty"
)

// palette holds the colors used for command output. Colors are only
// enabled when w is a terminal.
type palette struct {
	header *color.Color
	good   *color.Color
	bad    *color.Color
	warn   *color.Color
	dim    *color.Color
}

func newPalette(w io.Writer) palette {
	enabled := false
	if f, ok := w.(*os.File); ok {
		enabled = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	mk := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}

	return palette{
		header: mk(color.FgCyan, color.Bold),
		good:   mk(color.FgGreen),
		bad:    mk(color.FgRed),
		warn:   mk(color.FgYellow),
		dim:    mk(color.FgHiBlack),
	}
}

func (p palette) verdict(w io.Writer, v novelty.Verdict) {
	if v.Accepted {
		p.good.Fprint(w, "NOVEL")
		return
	}
	p.bad.Fprint(w, "TOO SIMILAR")
	if v.Match != nil {
		p.dim.Fprintf(w, " (recent post #%d: cosine %.3f, trigram jaccard %.3f)", v.Match.Index+1, v.Match.Cosine, v.Match.Jaccard)
	}
}

func (p palette) state(w io.Writer, s generator.State) {
	switch s {
	case generator.StateAccepted:
		p.good.Fprint(w, string(s))
	case generator.StateExhausted:
		p.warn.Fprint(w, string(s))
	default:
		fmt.Fprint(w, string(s))
	}
}

func printAttempts(w io.Writer, p palette, attempts []generator.Attempt) {
	for _, a := range attempts {
		fmt.Fprintf(w, "  Attempt #%d ", a.Number)
		if a.Angle != "" {
			p.dim.Fprintf(w, "[%s] ", a.Angle)
		}
		p.verdict(w, a.Verdict)
		fmt.Fprintln(w)
	}
}

func printCheck(w io.Writer, p palette, result *generator.CheckResult) {
	p.header.Fprintf(w, "=== Novelty check against %d posts ===\n", len(result.Scores))
	for _, s := range result.Scores {
		mark := p.good
		if s.Exceeds {
			mark = p.bad
		}
		mark.Fprintf(w, "  cos %.3f  jac %.3f  ", s.Cosine, s.Jaccard)
		fmt.Fprintf(w, "%s ", truncate(s.Title, 60))
		p.dim.Fprintf(w, "(%s)\n", s.ID)
	}
	fmt.Fprint(w, "Verdict: ")
	p.verdict(w, result.Verdict)
	fmt.Fprintln(w)
	if result.Verdict.Hint != "" {
		fmt.Fprintf(w, "Hint: %s\n", result.Verdict.Hint)
	}
}

func formatDate(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

func truncate(s string, n int) string {
	return feed.Truncate(strings.ReplaceAll(strings.TrimSpace(s), "\n", " "), n)
}
