package fsworkspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stanford-futuredata/smol/internal/domain"
	"github.com/stanford-futuredata/smol/internal/infra/workspacefinder"
	"github.com/stanford-futuredata/smol/internal/infra/yamlcfg"
	"github.com/stanford-futuredata/smol/internal/usecase/cfggen"
)

func TestInitializer_Init_CreatesWorkspaceFiles(t *testing.T) {
	tmp := t.TempDir()

	i := NewInitializer()
	if err := i.Init(domain.WorkspaceSpec{Root: tmp}, false); err != nil {
		t.Fatalf("Init error: %v", err)
	}

	assertFileExists(t, filepath.Join(tmp, "smol.yaml"))
	assertFileExists(t, filepath.Join(tmp, "templates", "im-single-full-base.yaml"))
	assertFileExists(t, filepath.Join(tmp, "templates", "vid-base.yaml"))
	assertFileExists(t, filepath.Join(tmp, "templates", "blaze-base.yaml"))
	assertFileExists(t, filepath.Join(tmp, "sweeps", "image.yaml"))
	assertFileExists(t, filepath.Join(tmp, "sweeps", "noscope.yaml"))
	assertFileExists(t, filepath.Join(tmp, "sweeps", "blazeit.yaml"))
	assertFileExists(t, filepath.Join(tmp, ".smol", "logs"))
	assertFileExists(t, filepath.Join(tmp, "cfgs"))
}

func TestInitializer_Init_SkipsExistingFilesUnlessForce(t *testing.T) {
	tmp := t.TempDir()

	smolYAML := filepath.Join(tmp, "smol.yaml")
	if err := os.WriteFile(smolYAML, []byte("custom\n"), 0o644); err != nil {
		t.Fatalf("write existing smol.yaml: %v", err)
	}

	i := NewInitializer()

	if err := i.Init(domain.WorkspaceSpec{Root: tmp}, false); err != nil {
		t.Fatalf("Init (force=false) error: %v", err)
	}

	b, err := os.ReadFile(smolYAML)
	if err != nil {
		t.Fatalf("read smol.yaml: %v", err)
	}
	if string(b) != "custom\n" {
		t.Fatalf("expected smol.yaml preserved, got %q", string(b))
	}

	if err := i.Init(domain.WorkspaceSpec{Root: tmp}, true); err != nil {
		t.Fatalf("Init (force=true) error: %v", err)
	}

	b, err = os.ReadFile(smolYAML)
	if err != nil {
		t.Fatalf("read smol.yaml after force: %v", err)
	}
	if !strings.Contains(string(b), "smol:") {
		t.Fatalf("expected smol.yaml overwritten with template, got %q", string(b))
	}
}

// The shipped files must load and generate cleanly; a broken skeleton only
// shows up when a user runs smol gen.
func TestInitializer_SkeletonIsUsable(t *testing.T) {
	tmp := t.TempDir()
	if err := NewInitializer().Init(domain.WorkspaceSpec{Root: tmp}, false); err != nil {
		t.Fatalf("Init error: %v", err)
	}

	cfg, err := workspacefinder.LoadConfig(tmp)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Runner.Trials != 5 {
		t.Fatalf("expected trials=5, got %d", cfg.Runner.Trials)
	}

	store := yamlcfg.NewStore()
	out := filepath.Join(tmp, "cfgs")

	img, err := store.LoadImageSweep(filepath.Join(tmp, "sweeps", "image.yaml"))
	if err != nil {
		t.Fatalf("LoadImageSweep: %v", err)
	}
	imgTmpl, err := store.LoadConfig(filepath.Join(tmp, "templates", img.Template))
	if err != nil {
		t.Fatalf("load image template: %v", err)
	}
	for name, gen := range map[string]func(domain.ConfigDoc, string, domain.ImageSweep) ([]cfggen.Generated, error){
		"e2e":      cfggen.ImageSweep,
		"ablation": cfggen.AblationSweep,
		"tahoma":   cfggen.TahomaSweep,
	} {
		if _, err := gen(imgTmpl, out, img); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
	}

	for _, name := range []string{"noscope.yaml", "blazeit.yaml"} {
		sw, err := store.LoadVideoSweep(filepath.Join(tmp, "sweeps", name))
		if err != nil {
			t.Fatalf("LoadVideoSweep(%s): %v", name, err)
		}
		tmpl, err := store.LoadConfig(filepath.Join(tmp, "templates", sw.Template))
		if err != nil {
			t.Fatalf("load %s template: %v", name, err)
		}
		gens, err := cfggen.VideoSweep(tmpl, out, sw)
		if err != nil {
			t.Fatalf("VideoSweep(%s): %v", name, err)
		}
		if len(gens) != sw.Size() {
			t.Fatalf("%s: expected %d configs, got %d", name, sw.Size(), len(gens))
		}
	}
}

func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file %s, stat err=%v", path, err)
	}
}
