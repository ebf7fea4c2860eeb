package imgresize

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stanford-futuredata/smol/internal/domain"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func solid(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 40, B: 10, A: 128})
		}
	}
	return img
}

func writeImage(t *testing.T, path string, img image.Image) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	switch filepath.Ext(path) {
	case ".png":
		require.NoError(t, png.Encode(f, img))
	case ".jpg":
		require.NoError(t, jpeg.Encode(f, img, nil))
	case ".bmp":
		require.NoError(t, bmp.Encode(f, img))
	default:
		t.Fatalf("unsupported test ext %s", path)
	}
}

func decodeSize(t *testing.T, path string) (int, int) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)
	return cfg.Width, cfg.Height
}

func TestTargetSize(t *testing.T) {
	cases := []struct {
		w, h, dim int
		ww, wh    int
	}{
		{500, 375, 161, 214, 161},
		{375, 500, 161, 161, 214},
		{300, 300, 161, 161, 161},
		{200, 100, 50, 100, 50},
	}
	for _, c := range cases {
		w, h := TargetSize(c.w, c.h, c.dim)
		require.Equal(t, [2]int{c.ww, c.wh}, [2]int{w, h}, "%dx%d -> %d", c.w, c.h, c.dim)
	}
}

func TestResize_IsOpaque(t *testing.T) {
	out := Resize(solid(40, 20), 10)
	require.Equal(t, image.Rect(0, 0, 20, 10), out.Bounds())
	for i := 3; i < len(out.Pix); i += 4 {
		require.Equal(t, uint8(0xff), out.Pix[i])
	}
}

func TestRun_ResizesClassDirs(t *testing.T) {
	in := t.TempDir()
	outDir := filepath.Join(in, "161-jpeg-75")

	writeImage(t, filepath.Join(in, "cat", "a.png"), solid(200, 100))
	writeImage(t, filepath.Join(in, "cat", "b.png"), solid(100, 300))
	writeImage(t, filepath.Join(in, "dog", "c.jpg"), solid(64, 64))
	require.NoError(t, os.WriteFile(filepath.Join(in, "LICENSE"), []byte("x"), 0o644))
	// a previous output dir inside the input must not be treated as a class
	writeImage(t, filepath.Join(outDir, "stale", "z.png"), solid(4, 4))

	st, err := New().Run(context.Background(), Options{
		InputDir:  in,
		OutputDir: outDir,
		Dim:       50,
		Quality:   75,
		Ext:       "jpg",
	})
	require.NoError(t, err)
	require.Equal(t, Stats{Classes: 2, Images: 3}, st)

	w, h := decodeSize(t, filepath.Join(outDir, "cat", "a.jpg"))
	require.Equal(t, [2]int{100, 50}, [2]int{w, h})
	w, h = decodeSize(t, filepath.Join(outDir, "cat", "b.jpg"))
	require.Equal(t, [2]int{50, 150}, [2]int{w, h})
	w, h = decodeSize(t, filepath.Join(outDir, "dog", "c.jpg"))
	require.Equal(t, [2]int{50, 50}, [2]int{w, h})

	_, err = os.Stat(filepath.Join(outDir, "161-jpeg-75"))
	require.True(t, os.IsNotExist(err))
}

func TestRun_KeepsExtensionWithoutExt(t *testing.T) {
	in := filepath.Join(t.TempDir(), "in")
	out := filepath.Join(t.TempDir(), "out")
	writeImage(t, filepath.Join(in, "bird", "a.bmp"), solid(30, 60))
	writeImage(t, filepath.Join(in, "bird", "b.png"), solid(60, 30))

	st, err := New().Run(context.Background(), Options{InputDir: in, OutputDir: out, Dim: 10})
	require.NoError(t, err)
	require.Equal(t, 2, st.Images)

	w, h := decodeSize(t, filepath.Join(out, "bird", "a.bmp"))
	require.Equal(t, [2]int{10, 20}, [2]int{w, h})
	w, h = decodeSize(t, filepath.Join(out, "bird", "b.png"))
	require.Equal(t, [2]int{20, 10}, [2]int{w, h})
}

func TestRun_UndecodableImage(t *testing.T) {
	in := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(in, "cat"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(in, "cat", "a.jpg"), []byte("not an image"), 0o644))

	_, err := New().Run(context.Background(), Options{InputDir: in, OutputDir: filepath.Join(t.TempDir(), "o"), Dim: 10})
	require.True(t, domain.IsKind(err, domain.KindInvalidConfig), "err=%v", err)
}

func TestRun_Validation(t *testing.T) {
	cases := map[string]struct {
		opts Options
		kind domain.ErrorKind
	}{
		"no input":  {Options{OutputDir: "o", Dim: 1}, domain.KindMissingArg},
		"no output": {Options{InputDir: "i", Dim: 1}, domain.KindMissingArg},
		"zero dim":  {Options{InputDir: "i", OutputDir: "o"}, domain.KindInvalidConfig},
		"bad ext":   {Options{InputDir: "i", OutputDir: "o", Dim: 1, Ext: "gif"}, domain.KindInvalidConfig},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New().Run(context.Background(), c.opts)
			require.True(t, domain.IsKind(err, c.kind), "err=%v", err)
		})
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	in := t.TempDir()
	writeImage(t, filepath.Join(in, "cat", "a.png"), solid(8, 8))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Run(ctx, Options{InputDir: in, OutputDir: filepath.Join(t.TempDir(), "o"), Dim: 4})
	require.ErrorIs(t, err, context.Canceled)
}
