package term

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/stanford-futuredata/smol/internal/domain"
)

var reLine = regexp.MustCompile(`(?i)\bline\s+(\d+)\b`)

// UserMessage turns an error into a one-line hint; the full error goes to the log.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var oe *domain.OpError
	if errors.As(err, &oe) {
		switch oe.Kind {
		case domain.KindNotFound:
			switch {
			case strings.HasPrefix(oe.Op, "workspacefinder.findroot"):
				return "Workspace not found (run `smol init`)"
			case strings.HasPrefix(oe.Op, "yamlcfg.query"):
				return "Key not found in " + base(oe.Path)
			case strings.HasPrefix(oe.Op, "procrunner"):
				return "Executable not found: " + base(oe.Path)
			case oe.Path != "":
				return "Not found: " + base(oe.Path)
			}
			return "Not found"

		case domain.KindMissingArg:
			return strings.TrimSuffix(oe.Err.Error(), ": "+domain.ErrMissingArg.Error())

		case domain.KindInvalidConfig:
			name := "config"
			if strings.TrimSpace(oe.Path) != "" {
				name = base(oe.Path)
			}
			if line := extractLine(err.Error()); line != "" && looksLikeYAMLProblem(err.Error()) {
				return "Invalid YAML at " + name + " line " + line
			}
			if looksLikeYAMLProblem(err.Error()) {
				return "Invalid YAML at " + name
			}
			return "Invalid config: " + strings.TrimSuffix(oe.Err.Error(), ": "+domain.ErrInvalidConfig.Error())

		case domain.KindExecution:
			return "Runner failed (see logs)"
		}
	}

	if errors.Is(err, domain.ErrMissingArg) {
		return "Missing argument"
	}
	return "Unexpected error (see logs)"
}

func base(p string) string {
	if p == "" {
		return ""
	}
	return filepath.Base(p)
}

func looksLikeYAMLProblem(s string) bool {
	ls := strings.ToLower(s)
	return strings.Contains(ls, "yaml:") || strings.Contains(ls, "did not find expected") || strings.Contains(ls, "cannot unmarshal")
}

func extractLine(s string) string {
	if m := reLine.FindStringSubmatch(s); len(m) == 2 {
		return m[1]
	}
	return ""
}
