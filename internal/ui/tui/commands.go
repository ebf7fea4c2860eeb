package tui

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/stanford-futuredata/smol/internal/domain"
	"github.com/stanford-futuredata/smol/internal/infra/runstore"
	"github.com/stanford-futuredata/smol/internal/infra/workspacefinder"
	"github.com/stanford-futuredata/smol/internal/usecase"
)

// cmdRefreshWorkspace falls back to the defaults in the working directory
// when no smol.yaml is found, like the subcommands do.
func cmdRefreshWorkspace(deps Deps) tea.Cmd {
	return func() tea.Msg {
		wd := deps.StartDir
		if wd == "" {
			var err error
			if wd, err = os.Getwd(); err != nil {
				return workspaceRefreshedMsg{err: fmt.Errorf("getwd: %w", err)}
			}
		}
		if deps.WorkspaceLocator == nil {
			return workspaceRefreshedMsg{cwd: wd, root: wd, cfg: domain.DefaultConfig(), err: errors.New("WorkspaceLocator is nil")}
		}

		root, findErr := deps.WorkspaceLocator.FindRoot(wd)
		if findErr != nil {
			msg := workspaceRefreshedMsg{cwd: wd, root: wd, cfg: domain.DefaultConfig()}
			if !domain.IsKind(findErr, domain.KindNotFound) {
				msg.err = findErr
			}
			return msg
		}

		cfg, err := workspacefinder.LoadConfig(root)
		if err != nil {
			return workspaceRefreshedMsg{cwd: wd, root: root, cfg: domain.DefaultConfig(), err: err}
		}
		return workspaceRefreshedMsg{cwd: wd, found: true, root: root, cfg: cfg}
	}
}

func cmdInitWorkspaceHere(deps Deps, root string) tea.Cmd {
	return func() tea.Msg {
		if deps.WorkspaceInitializer == nil {
			return initWorkspaceDoneMsg{root: root, err: errors.New("WorkspaceInitializer is nil")}
		}
		err := usecase.NewInitWorkspace(deps.WorkspaceInitializer).Execute(root, false)
		return initWorkspaceDoneMsg{root: root, err: err}
	}
}

func cmdLoadConfigs(deps Deps, root string, cfg domain.Config) tea.Cmd {
	return func() tea.Msg {
		dir := workspacefinder.Resolve(root, cfg.Paths.CfgsDir)
		refs, err := deps.Configs.ListConfigs(dir)
		return configsLoadedMsg{dir: dir, refs: refs, err: err}
	}
}

func cmdPreviewConfig(deps Deps, path string) tea.Cmd {
	return func() tea.Msg {
		doc, err := deps.Configs.LoadConfig(path)
		if err != nil {
			return configPreviewMsg{path: path, err: err}
		}
		return configPreviewMsg{path: path, preview: renderPreview(doc)}
	}
}

// cmdLoadHistory reads the index written by runs under the out dir, newest first.
func cmdLoadHistory(root string, cfg domain.Config) tea.Cmd {
	return func() tea.Msg {
		dir := workspacefinder.Resolve(root, cfg.Paths.OutDir)
		entries, err := runstore.ReadIndex(dir)
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
		return historyLoadedMsg{dir: dir, entries: entries, err: err}
	}
}

// runRequest is one config run from the browser, using the workspace's
// runner settings.
type runRequest struct {
	root string
	cfg  domain.Config
	ref  domain.ConfigRef
	mode domain.ExperimentMode
}

func (r runRequest) outBase() string {
	return workspacefinder.Resolve(r.root, r.cfg.Paths.OutDir)
}

func (r runRequest) experiment() usecase.ExperimentRequest {
	exe := r.cfg.Runner.Executable
	if r.mode == domain.ModeVideo {
		exe = r.cfg.Runner.VideoExecutable
	}
	return usecase.ExperimentRequest{
		Executable:   workspacefinder.Resolve(r.root, exe),
		ConfigPath:   r.ref.Path,
		OutDir:       usecase.OutDirFor(r.outBase(), "", r.ref),
		Mode:         r.mode,
		Trials:       r.cfg.Runner.Trials,
		SettleDelay:  r.cfg.Runner.SettleDelay,
		TrialTimeout: r.cfg.Runner.TrialTimeout,
	}
}

func listenRunner(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return runnerDoneMsg{err: errors.New("runner channel closed")}
		}
		return msg
	}
}

// startRunAsync runs one experiment in the background. Every finished run is
// sent as a trialMsg, followed by a single runnerDoneMsg.
func startRunAsync(ctx context.Context, deps Deps, req runRequest, log *zap.Logger) (chan tea.Msg, tea.Cmd) {
	ch := make(chan tea.Msg, 1)
	if log == nil {
		log = zap.NewNop()
	}

	go func() {
		defer close(ch)

		er := req.experiment()
		log.Info("tui.run.start",
			zap.String("workspace", req.root),
			zap.String("config", er.ConfigPath),
			zap.String("mode", string(er.Mode)),
			zap.String("out_dir", er.OutDir))

		opts := []usecase.ExperimentOption{
			usecase.WithArtifactStore(runstore.New(runstore.WithIndex(req.outBase()))),
			usecase.WithLogger(log),
			usecase.WithProgress(func(ev usecase.TrialEvent) { ch <- trialMsg(ev) }),
		}
		if deps.Host != nil {
			opts = append(opts, usecase.WithHost(deps.Host))
		}

		res, err := usecase.NewRunExperiment(deps.Configs, deps.Runner, opts...).Execute(ctx, er)
		if err != nil {
			log.Error("tui.run.failed", zap.String("config", er.ConfigPath), zap.Error(err))
		} else {
			log.Info("tui.run.ok", zap.String("id", res.ID), zap.Int("measured", len(res.Times)))
		}
		ch <- runnerDoneMsg{res: res, err: err}
	}()

	return ch, listenRunner(ch)
}
