package template

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/stanford-futuredata/smol/internal/domain"
)

// Format replaces positional placeholders in input with args.
//
// "{}" takes the next argument, "{N}" takes argument N, and "{{" / "}}" are
// literal braces. Automatic and manual numbering cannot be mixed. Extra
// arguments are ignored; missing ones are an error.
func Format(input string, args ...string) (string, error) {
	if input == "" {
		return "", nil
	}

	var out strings.Builder
	out.Grow(len(input))

	auto := 0
	usedAuto, usedManual := false, false

	for i := 0; i < len(input); i++ {
		c := input[i]
		switch c {
		case '{':
			if i+1 < len(input) && input[i+1] == '{' {
				out.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(input[i+1:], '}')
			if end == -1 {
				return "", invalid(input, "unclosed placeholder")
			}
			field := input[i+1 : i+1+end]
			i += end + 1

			var idx int
			if field == "" {
				if usedManual {
					return "", invalid(input, "cannot switch from manual to automatic field numbering")
				}
				usedAuto = true
				idx = auto
				auto++
			} else {
				if usedAuto {
					return "", invalid(input, "cannot switch from automatic to manual field numbering")
				}
				n, err := strconv.Atoi(field)
				if err != nil || n < 0 {
					return "", invalid(input, fmt.Sprintf("unsupported placeholder {%s}", field))
				}
				usedManual = true
				idx = n
			}

			if idx >= len(args) {
				return "", &domain.OpError{
					Op:   "template.format",
					Kind: domain.KindMissingArg,
					Err:  fmt.Errorf("%q needs argument %d, got %d: %w", input, idx, len(args), domain.ErrMissingArg),
				}
			}
			out.WriteString(args[idx])
		case '}':
			if i+1 < len(input) && input[i+1] == '}' {
				out.WriteByte('}')
				i++
				continue
			}
			return "", invalid(input, "single '}' encountered")
		default:
			out.WriteByte(c)
		}
	}

	return out.String(), nil
}

func invalid(input, msg string) error {
	return &domain.OpError{
		Op:   "template.format",
		Kind: domain.KindInvalidConfig,
		Err:  fmt.Errorf("%q: %s: %w", input, msg, domain.ErrInvalidConfig),
	}
}
