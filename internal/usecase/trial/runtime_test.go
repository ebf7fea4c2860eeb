package trial

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stanford-futuredata/smol/internal/domain"
)

func TestParseRuntimes_SumsLastTokens(t *testing.T) {
	stderr := strings.Join([]string{
		"Loading engine",
		"Runtime: 0.25",
		"[I] warmup done",
		"Infer Runtime (s): 1.5",
		"Runtime total 0.125\n",
	}, "\n")

	rt, err := ParseRuntimes(strings.NewReader(stderr))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rt.Values) != 3 {
		t.Fatalf("expected 3 values, got %v", rt.Values)
	}
	if rt.Total() != 1.875 {
		t.Fatalf("expected total 1.875, got %v", rt.Total())
	}
	if rt.Malformed != 0 {
		t.Fatalf("expected no malformed lines, got %d", rt.Malformed)
	}
}

func TestParseRuntimes_NoLinesIsZero(t *testing.T) {
	rt, err := ParseRuntimes(strings.NewReader("nothing here\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rt.Total() != 0 || len(rt.Values) != 0 {
		t.Fatalf("expected empty result, got %+v", rt)
	}
}

func TestParseRuntimes_CountsMalformed(t *testing.T) {
	rt, err := ParseRuntimes(strings.NewReader("Runtime: n/a\nRuntime: 2\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rt.Malformed != 1 || rt.Total() != 2 {
		t.Fatalf("expected 1 malformed and total 2, got %+v", rt)
	}
}

func TestParseRuntimes_NonFiniteIsMalformed(t *testing.T) {
	stderr := "Runtime: nan\nRuntime: inf\nRuntime: +Inf\nRuntime: -inf\nRuntime: 0.5\n"

	rt, err := ParseRuntimes(strings.NewReader(stderr))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rt.Malformed != 4 {
		t.Fatalf("expected 4 malformed lines, got %d", rt.Malformed)
	}
	if len(rt.Values) != 1 || rt.Total() != 0.5 {
		t.Fatalf("expected only 0.5 to be kept, got %v", rt.Values)
	}
}

func TestParseRuntimesFile_Missing(t *testing.T) {
	_, err := ParseRuntimesFile(filepath.Join(t.TempDir(), "0.stderr"))
	if !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestParseRuntimesFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "0.stderr")
	if err := os.WriteFile(p, []byte("Runtime: 3.5\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	rt, err := ParseRuntimesFile(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rt.Total() != 3.5 {
		t.Fatalf("expected 3.5, got %v", rt.Total())
	}
}
