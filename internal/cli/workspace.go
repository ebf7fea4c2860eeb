package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/stanford-futuredata/smol/internal/domain"
	"github.com/stanford-futuredata/smol/internal/infra/hostinfo"
	"github.com/stanford-futuredata/smol/internal/infra/logger"
	"github.com/stanford-futuredata/smol/internal/infra/procrunner"
	"github.com/stanford-futuredata/smol/internal/infra/workspacefinder"
	"github.com/stanford-futuredata/smol/internal/infra/yamlcfg"
	"go.uber.org/zap"
)

type workspaceCtx struct {
	root string
	cfg  domain.Config
	// found is false when no smol.yaml was located and defaults are in use.
	found bool

	configs *yamlcfg.Store
	runner  *procrunner.Runner
	host    *hostinfo.Reader
}

// loadWorkspace resolves the workspace and its config. Outside a workspace
// the defaults apply relative to the working directory, so explicit flags
// are enough to run.
func loadWorkspace(workspaceFlag string) (*workspaceCtx, error) {
	ws := &workspaceCtx{
		cfg:     domain.DefaultConfig(),
		configs: yamlcfg.NewStore(),
		runner:  procrunner.New(procrunner.WithMemorySampling(procrunner.DefaultSampleInterval)),
		host:    hostinfo.New(),
	}

	root, err := resolveWorkspaceRoot(workspaceFlag)
	switch {
	case err == nil:
		cfg, err := workspacefinder.LoadConfig(root)
		if err != nil {
			return nil, err
		}
		ws.root, ws.cfg, ws.found = root, cfg, true
	case strings.TrimSpace(workspaceFlag) == "" && domain.IsKind(err, domain.KindNotFound):
		wd, werr := os.Getwd()
		if werr != nil {
			return nil, fmt.Errorf("get working directory: %w", werr)
		}
		ws.root = wd
		logger.L().Debug("workspace.defaults", zap.String("root", wd))
	default:
		return nil, err
	}
	return ws, nil
}

func resolveWorkspaceRoot(workspaceFlag string) (string, error) {
	w := strings.TrimSpace(workspaceFlag)
	if w != "" {
		abs, err := filepath.Abs(w)
		if err != nil {
			return "", fmt.Errorf("invalid workspace path: %w", err)
		}
		if !fileExists(filepath.Join(abs, workspacefinder.ConfigFile)) {
			return "", &domain.OpError{
				Op:   "workspacefinder.findroot",
				Kind: domain.KindNotFound,
				Path: abs,
				Err:  domain.ErrNotFound,
			}
		}
		return abs, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	return workspacefinder.NewFinder().FindRoot(wd)
}

// path resolves p against the workspace root unless it is absolute.
func (ws *workspaceCtx) path(p string) string {
	return workspacefinder.Resolve(ws.root, p)
}

// executable picks the flag value, or the workspace default for the mode.
func (ws *workspaceCtx) executable(flag string, mode domain.ExperimentMode) string {
	if strings.TrimSpace(flag) != "" {
		return absFromWD(flag)
	}
	if mode == domain.ModeVideo {
		return ws.path(ws.cfg.Runner.VideoExecutable)
	}
	return ws.path(ws.cfg.Runner.Executable)
}

// resolveConfigPath accepts a path relative to the working directory, the
// workspace root, or the configs dir, with or without the .yaml extension.
func resolveConfigPath(ws *workspaceCtx, arg string) (string, error) {
	in := strings.TrimSpace(arg)
	if in == "" {
		return "", fmt.Errorf("config is required (use --cfg)")
	}

	candidates := []string{absFromWD(in)}
	if !filepath.IsAbs(in) {
		candidates = append(candidates,
			filepath.Join(ws.root, in),
			filepath.Join(ws.path(ws.cfg.Paths.CfgsDir), in),
		)
	}
	for _, c := range candidates {
		if fileExists(c) {
			return filepath.Clean(c), nil
		}
		if !hasYAMLExt(c) {
			for _, ext := range []string{".yaml", ".yml"} {
				if fileExists(c + ext) {
					return filepath.Clean(c + ext), nil
				}
			}
		}
	}
	return "", &domain.OpError{Op: "cli.config", Kind: domain.KindNotFound, Path: in, Err: domain.ErrNotFound}
}

func withPath(err error, path string) error {
	var oe *domain.OpError
	if errors.As(err, &oe) && oe.Path == "" {
		oe.Path = path
	}
	return err
}

func absFromWD(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func hasYAMLExt(s string) bool {
	return yamlcfg.IsConfigFile(strings.ToLower(s))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
