package yamlcfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stanford-futuredata/smol/internal/domain"
	"github.com/stretchr/testify/require"
)

const baseTemplate = `
model-config:
  model-single:
    onnx-path: /models/{}/{}
    data-path: /data/{}/{}
    data-loader: naive
    input-dim: [224, 224]
experiment-config:
  write-out: true
  multiplier: 1
crop:
  xmin: 0
  ymin: 0
  xmax: 1
  ymax: 1
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadConfig_Valid(t *testing.T) {
	p := filepath.Join(t.TempDir(), "base.yaml")
	writeFile(t, p, baseTemplate)

	doc, err := NewStore().LoadConfig(p)
	require.NoError(t, err)

	onnx, err := doc.String(domain.ModelKey("onnx-path")...)
	require.NoError(t, err)
	require.Equal(t, "/models/{}/{}", onnx)

	wo, err := doc.Bool(domain.ExperimentKey("write-out")...)
	require.NoError(t, err)
	require.True(t, wo)

	dims, ok := doc.Lookup(domain.ModelKey("input-dim")...)
	require.True(t, ok)
	require.Equal(t, []any{224, 224}, dims)
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := NewStore().LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.True(t, domain.IsKind(err, domain.KindNotFound), "err=%v", err)
}

func TestLoadConfig_NotAMapping(t *testing.T) {
	p := filepath.Join(t.TempDir(), "list.yaml")
	writeFile(t, p, "- a\n- b\n")

	_, err := NewStore().LoadConfig(p)
	require.True(t, domain.IsKind(err, domain.KindInvalidConfig), "err=%v", err)
}

func TestWriteConfig_RoundTripsAndCreatesDirs(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "base.yaml")
	writeFile(t, src, baseTemplate)

	s := NewStore()
	doc, err := s.LoadConfig(src)
	require.NoError(t, err)
	require.NoError(t, doc.Set([]int{30, 30}, domain.ModelKey("input-dim")...))
	require.NoError(t, doc.Set(44, "crop", "xmin"))

	out := filepath.Join(tmp, "nested", "dir", "out.yaml")
	require.NoError(t, s.WriteConfig(out, doc))

	back, err := s.LoadConfig(out)
	require.NoError(t, err)

	dims, _ := back.Lookup(domain.ModelKey("input-dim")...)
	require.Equal(t, []any{30, 30}, dims)
	xmin, _ := back.Lookup("crop", "xmin")
	require.Equal(t, 44, xmin)

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Contains(t, string(b), "model-config:\n  model-single:\n")
}

func TestListConfigs_WalksInLexicalOrder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.yaml"), "a: 1\n")
	writeFile(t, filepath.Join(root, "a", "z.yml"), "a: 1\n")
	writeFile(t, filepath.Join(root, "a", "c.yaml"), "a: 1\n")
	writeFile(t, filepath.Join(root, "notes.txt"), "skip")

	refs, err := NewStore().ListConfigs(root)
	require.NoError(t, err)

	var rels []string
	for _, r := range refs {
		rels = append(rels, r.Rel)
	}
	require.Equal(t, []string{
		filepath.Join("a", "c.yaml"),
		filepath.Join("a", "z.yml"),
		"b.yaml",
	}, rels)
	require.Equal(t, "c", refs[0].Name)
}

func TestListConfigs_MissingDir(t *testing.T) {
	_, err := NewStore().ListConfigs(filepath.Join(t.TempDir(), "missing"))
	require.True(t, domain.IsKind(err, domain.KindNotFound))
}
