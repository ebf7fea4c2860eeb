package workspacefinder

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/stanford-futuredata/smol/internal/domain"
	"gopkg.in/yaml.v3"
)

// ConfigFile is the marker file of a smol workspace.
const ConfigFile = "smol.yaml"

// LoadConfig loads smol.yaml from the workspace root and applies defaults.
func LoadConfig(root string) (domain.Config, error) {
	cfg := domain.DefaultConfig()

	path := filepath.Join(root, ConfigFile)
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, &domain.OpError{
			Op:   "workspacefinder.loadconfig",
			Kind: domain.KindNotFound,
			Path: path,
			Err:  err,
		}
	}

	var y yamlConfig
	if err := yaml.Unmarshal(b, &y); err != nil {
		return cfg, &domain.OpError{
			Op:   "workspacefinder.loadconfig",
			Kind: domain.KindInvalidConfig,
			Path: path,
			Err:  err,
		}
	}

	p := y.Smol.Paths
	setString(&cfg.Paths.TemplatesDir, p.TemplatesDir)
	setString(&cfg.Paths.CfgsDir, p.CfgsDir)
	setString(&cfg.Paths.SweepsDir, p.SweepsDir)
	setString(&cfg.Paths.OutDir, p.OutDir)

	r := y.Smol.Runner
	setString(&cfg.Runner.Executable, r.Executable)
	setString(&cfg.Runner.VideoExecutable, r.VideoExecutable)
	if r.Trials != nil {
		if *r.Trials <= 0 {
			return cfg, domain.InvalidConfig("workspacefinder.loadconfig", path, "runner.trials must be positive, got %d", *r.Trials)
		}
		cfg.Runner.Trials = *r.Trials
	}
	if err := setDuration(&cfg.Runner.SettleDelay, r.SettleDelay, "runner.settle_delay", path); err != nil {
		return cfg, err
	}
	if err := setDuration(&cfg.Runner.TrialTimeout, r.TrialTimeout, "runner.trial_timeout", path); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Resolve makes a workspace-relative path absolute; absolute paths pass through.
func Resolve(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v, field, path string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return domain.InvalidConfig("workspacefinder.loadconfig", path, "%s: %s", field, durationErr(v, err))
	}
	*dst = d
	return nil
}

func durationErr(v string, err error) string {
	if err != nil {
		return err.Error()
	}
	return fmt.Sprintf("negative duration %q", v)
}

type yamlConfig struct {
	Smol struct {
		Paths struct {
			TemplatesDir string `yaml:"templates_dir"`
			CfgsDir      string `yaml:"cfgs_dir"`
			SweepsDir    string `yaml:"sweeps_dir"`
			OutDir       string `yaml:"out_dir"`
		} `yaml:"paths"`

		Runner struct {
			Executable      string `yaml:"executable"`
			VideoExecutable string `yaml:"video_executable"`
			Trials          *int   `yaml:"trials"`
			SettleDelay     string `yaml:"settle_delay"`
			TrialTimeout    string `yaml:"trial_timeout"`
		} `yaml:"runner"`
	} `yaml:"smol"`
}
