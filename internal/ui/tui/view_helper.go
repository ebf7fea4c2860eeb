package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/stanford-futuredata/smol/internal/domain"
	"github.com/stanford-futuredata/smol/internal/infra/runstore"
	"github.com/stanford-futuredata/smol/internal/usecase/trial"
)

// previewKeys are the model-single fields worth showing before a run.
var previewKeys = []string{
	"onnx-path",
	"engine-path",
	"data-path",
	"data-loader",
	"batch-size",
	"input-dim",
	"resize-dim",
}

func renderPreview(doc domain.ConfigDoc) string {
	var b strings.Builder
	for _, k := range previewKeys {
		v, ok := doc.Lookup(domain.ModelKey(k)...)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%-12s %v\n", k, v)
	}
	if v, ok := doc.Lookup(domain.ExperimentKey("write-out")...); ok {
		fmt.Fprintf(&b, "%-12s %v\n", "write-out", v)
	}
	if b.Len() == 0 {
		return "(no model-single fields)"
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderTrial(tr domain.TrialResult) string {
	name := fmt.Sprintf("trial %d", tr.Index)
	if tr.Index < 0 {
		name = "setup"
	}

	switch {
	case tr.Error != "":
		return fmt.Sprintf("%-9s error: %s", name, tr.Error)
	case tr.ExitCode != 0:
		return fmt.Sprintf("%-9s failed (exit %d)", name, tr.ExitCode)
	case tr.Index < 0:
		return fmt.Sprintf("%-9s ok (%.1fs wall)", name, tr.WallSeconds)
	default:
		return fmt.Sprintf("%-9s %.4fs", name, tr.Seconds)
	}
}

func renderSummary(res domain.ExperimentResult) string {
	s := trial.Summarize(res.Times)
	parts := []string{fmt.Sprintf("measured %d/%d", len(res.Times), len(res.Trials))}
	if s.N > 0 {
		parts = append(parts, fmt.Sprintf("mean %.4fs ± %.4f", s.Mean, s.StdDev))
	}
	if res.Accuracy != nil {
		parts = append(parts, fmt.Sprintf("acc %.2f%%", *res.Accuracy))
	}
	return strings.Join(parts, " • ")
}

// progressFraction counts finished trials; the setup run alone completes a
// zero-trial experiment.
func progressFraction(events int, total int) float64 {
	if events == 0 {
		return 0
	}
	if total <= 0 {
		return 1
	}
	done := float64(events-1) / float64(total)
	if done > 1 {
		return 1
	}
	return done
}

func historyTitle(dir string, e runstore.IndexEntry) string {
	if rel, err := filepath.Rel(dir, e.OutDir); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return e.OutDir
}

func historyDesc(e runstore.IndexEntry) string {
	parts := []string{
		e.StartedAt.Local().Format("2006-01-02 15:04"),
		e.Mode,
		fmt.Sprintf("%d measured", e.Measured),
	}
	if e.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", e.Failed))
	}
	if e.Measured > 0 {
		parts = append(parts, fmt.Sprintf("mean %.4fs", e.MeanSecs))
	}
	if e.Accuracy != nil {
		parts = append(parts, fmt.Sprintf("acc %.2f%%", *e.Accuracy))
	}
	return strings.Join(parts, " • ")
}
