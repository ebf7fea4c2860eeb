package tui

import (
	"github.com/stanford-futuredata/smol/internal/ports"
	"go.uber.org/zap"
)

// Deps are the adapters the browser runs against.
type Deps struct {
	// StartDir is where the workspace search begins; empty means the working
	// directory.
	StartDir string

	WorkspaceLocator     ports.WorkspaceLocator
	WorkspaceInitializer ports.WorkspaceInitializer

	Configs ports.ConfigLoader
	Runner  ports.ProcessRunner
	Host    ports.HostDescriber

	Logger *zap.Logger
}
