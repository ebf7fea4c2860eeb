package yamlcfg

import (
	"path/filepath"
	"testing"

	"github.com/stanford-futuredata/smol/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestLoadImageSweep_OverridesOnlyNamedFields(t *testing.T) {
	p := filepath.Join(t.TempDir(), "image.yaml")
	writeFile(t, p, `
datasets: [bike-bird]
model_depths: [rn18]
data_types:
  - data_type: full
    data_loader: naive
tahoma:
  model_ids: ["0", "5"]
`)

	sw, err := NewStore().LoadImageSweep(p)
	require.NoError(t, err)

	def := domain.DefaultImageSweep()
	require.Equal(t, []string{"bike-bird"}, sw.Datasets)
	require.Equal(t, []string{"rn18"}, sw.ModelDepths)
	require.Equal(t, def.ModelTypes, sw.ModelTypes)
	require.Equal(t, []domain.DataLoaderPair{{DataType: "full", DataLoader: "naive"}}, sw.DataTypes)
	require.Equal(t, []string{"0", "5"}, sw.TahomaModelIDs)
	require.Equal(t, def.Template, sw.Template)
}

func TestLoadImageSweep_RejectsNonNumericTahomaID(t *testing.T) {
	p := filepath.Join(t.TempDir(), "image.yaml")
	writeFile(t, p, "tahoma:\n  model_ids: [abc]\n")

	_, err := NewStore().LoadImageSweep(p)
	require.True(t, domain.IsKind(err, domain.KindInvalidConfig), "err=%v", err)

	var oe *domain.OpError
	require.ErrorAs(t, err, &oe)
	require.Equal(t, p, oe.Path)
}

func TestLoadVideoSweep_MergesKnownDatasets(t *testing.T) {
	p := filepath.Join(t.TempDir(), "noscope.yaml")
	writeFile(t, p, `
kind: noscope
datasets:
  - name: taipei-hires
    crop: {xmin: 0, ymin: 100, xmax: 1280, ymax: 720}
resolution_types: [480p]
model_ids: ["0"]
`)

	sw, err := NewStore().LoadVideoSweep(p)
	require.NoError(t, err)

	require.Equal(t, domain.SweepNoScope, sw.Kind)
	require.Len(t, sw.Datasets, 1)
	d := sw.Datasets[0]
	require.Equal(t, "2017-04-08", d.TrainDate)
	require.Equal(t, 720, d.BaseResolution)
	require.Equal(t, domain.Crop{XMin: 0, YMin: 100, XMax: 1280, YMax: 720}, d.Crop)
	require.Equal(t, []domain.ResolutionType{domain.Resolution480p}, sw.ResolutionTypes)
	require.Equal(t, 1, sw.Size())
}

func TestLoadVideoSweep_UnknownKind(t *testing.T) {
	p := filepath.Join(t.TempDir(), "v.yaml")
	writeFile(t, p, "kind: focus\n")

	_, err := NewStore().LoadVideoSweep(p)
	require.True(t, domain.IsKind(err, domain.KindInvalidConfig))
}

func TestLoadVideoSweep_UnknownResolution(t *testing.T) {
	p := filepath.Join(t.TempDir(), "v.yaml")
	writeFile(t, p, "kind: blazeit\nresolution_types: [4k]\n")

	_, err := NewStore().LoadVideoSweep(p)
	require.True(t, domain.IsKind(err, domain.KindInvalidConfig))
}

func TestMapVideoSweep_NewDatasetDefaultsToFullFrame(t *testing.T) {
	sw, err := MapVideoSweep("cams.yaml", YAMLVideoSweep{
		Kind:     "noscope",
		Datasets: []domain.Dataset{{Name: "my-cam", TrainDate: "2020-01-01", BaseResolution: 720}},
	})
	require.NoError(t, err)

	require.Len(t, sw.Datasets, 1)
	require.Equal(t, domain.Crop{XMin: 0, YMin: 0, XMax: 1280, YMax: 720}, sw.Datasets[0].Crop)
}

func TestMapVideoSweep_NewDatasetWithoutResolutionIsInvalid(t *testing.T) {
	_, err := MapVideoSweep("cams.yaml", YAMLVideoSweep{
		Kind:     "noscope",
		Datasets: []domain.Dataset{{Name: "my-cam", TrainDate: "2020-01-01"}},
	})
	require.True(t, domain.IsKind(err, domain.KindInvalidConfig), "err=%v", err)
}
