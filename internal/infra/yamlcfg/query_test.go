package yamlcfg

import (
	"testing"

	"github.com/stanford-futuredata/smol/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestQuery_DottedKeyPath(t *testing.T) {
	doc, err := Decode("mem", []byte(baseTemplate))
	require.NoError(t, err)

	v, err := Query(doc, "model-config.model-single.data-loader")
	require.NoError(t, err)
	require.Equal(t, "naive", v)
}

func TestQuery_BracketExpression(t *testing.T) {
	doc, err := Decode("mem", []byte(baseTemplate))
	require.NoError(t, err)

	v, err := Query(doc, `$["crop"]["xmax"]`)
	require.NoError(t, err)
	require.Equal(t, 1, v)
}

func TestQuery_MissingKey(t *testing.T) {
	doc, err := Decode("mem", []byte(baseTemplate))
	require.NoError(t, err)

	_, err = Query(doc, "model-config.nope")
	require.True(t, domain.IsKind(err, domain.KindNotFound), "err=%v", err)
}

func TestKeyPathExpr(t *testing.T) {
	require.Equal(t, `$["model-config"]["model-single"]`, KeyPathExpr("model-config", "model-single"))
}

func TestFormatValue(t *testing.T) {
	require.Equal(t, "abc", FormatValue("abc"))
	require.Equal(t, "[30,30]", FormatValue([]any{30, 30}))
	require.Equal(t, "null", FormatValue(nil))
}
