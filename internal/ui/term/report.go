package term

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/stanford-futuredata/smol/internal/domain"
	"github.com/stanford-futuredata/smol/internal/usecase/trial"
)

const maxNameLen = 48

// Printer writes styled reports to w.
type Printer struct {
	w     io.Writer
	theme Theme
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, theme: DefaultTheme()}
}

func (p *Printer) table(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(p.theme.Subtitle).
		StyleFunc(func(_, _ int) lipgloss.Style { return p.theme.Cell }).
		Headers(headers...)
}

// Experiment prints the timing summary of one config.
func (p *Printer) Experiment(res domain.ExperimentResult) {
	s := trial.Summarize(res.Times)

	fmt.Fprintln(p.w, p.theme.Title.Render(clampString(filepath.Base(res.ConfigPath), maxNameLen)))
	fmt.Fprintln(p.w, p.theme.Subtitle.Render(res.OutDir))

	t := p.table("trials", "mean (s)", "std (s)", "min (s)", "max (s)", "accuracy")
	t.Row(
		fmt.Sprintf("%d/%d", s.N, len(res.Trials)),
		ff(s.Mean), ff(s.StdDev), ff(s.Min), ff(s.Max),
		accuracy(res.Accuracy),
	)
	fmt.Fprintln(p.w, t.String())

	for _, tr := range res.Trials {
		if tr.Error != "" {
			fmt.Fprintf(p.w, "%s trial %d: %s\n", p.theme.Fail.Render("✗"), tr.Index, tr.Error)
		}
	}
}

// Sweep prints one row per config of a sweep, then its failures.
func (p *Printer) Sweep(res domain.SweepResult) {
	fmt.Fprintln(p.w, p.theme.Title.Render("Dataset: "+res.Dataset))
	fmt.Fprintln(p.w, p.theme.Subtitle.Render(fmt.Sprintf("%d ok, %d failed, %s",
		len(res.Results), len(res.Failed), res.EndedAt.Sub(res.StartedAt).Round(time.Second))))

	t := p.table("config", "trials", "mean (s)", "std (s)", "accuracy")
	for _, r := range res.Results {
		s := trial.Summarize(r.Times)
		t.Row(
			clampString(relTo(res.OutBase, r.OutDir), maxNameLen),
			fmt.Sprintf("%d/%d", s.N, len(r.Trials)),
			ff(s.Mean), ff(s.StdDev),
			accuracy(r.Accuracy),
		)
	}
	fmt.Fprintln(p.w, t.String())

	for _, f := range res.Failed {
		fmt.Fprintf(p.w, "%s %s: %s\n", p.theme.Fail.Render("✗"), f.ConfigPath, f.Error)
	}
}

// Throughput prints images/sec per batch size and marks the best one.
func (p *Printer) Throughput(res domain.ThroughputResult) {
	fmt.Fprintln(p.w, p.theme.Title.Render(filepath.Base(res.ConfigPath)))

	t := p.table("batch", "seconds", "images/s", "")
	for _, s := range res.Samples {
		mark := ""
		if s.BatchSize == res.BestBatch {
			mark = p.theme.OK.Render("best")
		}
		t.Row(strconv.Itoa(s.BatchSize), ff(s.Seconds), strconv.FormatFloat(s.ImagesPerSec, 'f', 1, 64), mark)
	}
	fmt.Fprintln(p.w, t.String())

	if res.StoppedAt > 0 {
		fmt.Fprintln(p.w, p.theme.Help.Render(fmt.Sprintf("stopped at batch size %d (warmup failed)", res.StoppedAt)))
	}
}

// Lines prints one item per line inside a card.
func (p *Printer) Lines(title string, items []string) {
	if len(items) == 0 {
		fmt.Fprintln(p.w, p.theme.Help.Render("(none)"))
		return
	}
	body := p.theme.Title.Render(title) + "\n" + strings.Join(items, "\n")
	fmt.Fprintln(p.w, p.theme.Card.Render(body))
}

// Error prints the user-facing hint for err.
func (p *Printer) Error(err error) {
	fmt.Fprintln(p.w, p.theme.Fail.Render("error: ")+UserMessage(err))
}

func ff(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func accuracy(a *float64) string {
	if a == nil {
		return "-"
	}
	return strconv.FormatFloat(*a, 'f', 2, 64) + "%"
}

func relTo(base, p string) string {
	if rel, err := filepath.Rel(base, p); err == nil {
		return rel
	}
	return p
}

func clampString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	var b strings.Builder
	n := 0
	for _, r := range s {
		if n >= maxLen {
			break
		}
		b.WriteRune(r)
		n++
	}
	return b.String() + "…"
}
