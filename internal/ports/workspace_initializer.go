package ports

import "github.com/stanford-futuredata/smol/internal/domain"

type WorkspaceInitializer interface {
	Init(spec domain.WorkspaceSpec, force bool) error
}
