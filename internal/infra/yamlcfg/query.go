package yamlcfg

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/stanford-futuredata/smol/internal/domain"
)

// Query evaluates a JSONPath expression against doc. Expressions that do not
// start with "$" are read as dotted key paths (model-config.model-single.onnx-path).
func Query(doc domain.ConfigDoc, expr string) (any, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, domain.InvalidConfig("yamlcfg.query", "", "empty jsonpath expression")
	}
	if !strings.HasPrefix(expr, "$") {
		expr = KeyPathExpr(strings.Split(expr, ".")...)
	}

	val, err := jsonpath.Get(expr, map[string]any(doc))
	if err != nil {
		return nil, &domain.OpError{
			Op:   "yamlcfg.query",
			Kind: domain.KindNotFound,
			Err:  fmt.Errorf("%s: %v: %w", expr, err, domain.ErrNotFound),
		}
	}
	return val, nil
}

// KeyPathExpr builds a bracket-notation JSONPath for keys, which may contain
// hyphens.
func KeyPathExpr(keys ...string) string {
	var b strings.Builder
	b.WriteString("$")
	for _, k := range keys {
		b.WriteString("[")
		b.WriteString(strconv.Quote(k))
		b.WriteString("]")
	}
	return b.String()
}

// FormatValue renders a query result for terminal output.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool, int, int64, float64:
		return fmt.Sprint(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
