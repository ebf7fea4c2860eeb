package tui

import (
	"github.com/stanford-futuredata/smol/internal/domain"
	"github.com/stanford-futuredata/smol/internal/infra/runstore"
	"github.com/stanford-futuredata/smol/internal/usecase"
)

type workspaceRefreshedMsg struct {
	cwd   string
	found bool
	root  string
	cfg   domain.Config
	err   error
}

type initWorkspaceDoneMsg struct {
	root string
	err  error
}

type configsLoadedMsg struct {
	dir  string
	refs []domain.ConfigRef
	err  error
}

type configPreviewMsg struct {
	path    string
	preview string
	err     error
}

type historyLoadedMsg struct {
	dir     string
	entries []runstore.IndexEntry
	err     error
}

type trialMsg usecase.TrialEvent

type runnerDoneMsg struct {
	res domain.ExperimentResult
	err error
}
