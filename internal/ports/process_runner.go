package ports

import (
	"context"

	"github.com/stanford-futuredata/smol/internal/domain"
)

// ProcessRunner executes the external inference binary once.
//
// A non-zero exit is reported through ProcessResult, not as an error; the
// error return is reserved for failures to start or wait on the process.
type ProcessRunner interface {
	Run(ctx context.Context, inv domain.Invocation) (domain.ProcessResult, error)
}
