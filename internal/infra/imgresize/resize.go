// Package imgresize prepares the reduced-resolution copies of an image
// classification dataset (for example the 161-jpeg-75 and 161-png variants).
package imgresize

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/stanford-futuredata/smol/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// DefaultDim is the length the shorter side is resized to.
const DefaultDim = 161

// Options mirror the dataset layout <input>/<class>/<image>.
type Options struct {
	InputDir  string
	OutputDir string
	Dim       int
	// Quality only applies when Ext is "jpg"; <= 0 keeps the encoder default.
	Quality int
	// Ext re-encodes every image as "jpg" or "png"; empty keeps each file's
	// own extension.
	Ext string
}

func (o Options) validate() error {
	switch {
	case strings.TrimSpace(o.InputDir) == "":
		return missing("input dir")
	case strings.TrimSpace(o.OutputDir) == "":
		return missing("output dir")
	case o.Dim <= 0:
		return domain.InvalidConfig("imgresize.validate", "", "resize dim must be positive, got %d", o.Dim)
	}
	switch o.Ext {
	case "", "jpg", "png":
		return nil
	default:
		return domain.InvalidConfig("imgresize.validate", "", "ext must be jpg or png, got %q", o.Ext)
	}
}

func missing(what string) error {
	return &domain.OpError{Op: "imgresize.validate", Kind: domain.KindMissingArg, Err: fmt.Errorf("%s: %w", what, domain.ErrMissingArg)}
}

// Stats counts what a Run did.
type Stats struct {
	Classes int
	Images  int
}

type Resizer struct {
	log *zap.Logger
}

type Option func(*Resizer)

func WithLogger(l *zap.Logger) Option {
	return func(r *Resizer) {
		if l != nil {
			r.log = l
		}
	}
}

func New(opts ...Option) *Resizer {
	r := &Resizer{log: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run resizes every image of every class directory under InputDir into the
// same class directory under OutputDir. Plain files at the top level and the
// output directory itself are skipped.
func (r *Resizer) Run(ctx context.Context, o Options) (Stats, error) {
	var st Stats
	if err := o.validate(); err != nil {
		return st, err
	}

	in, err := filepath.Abs(o.InputDir)
	if err != nil {
		return st, err
	}
	out, err := filepath.Abs(o.OutputDir)
	if err != nil {
		return st, err
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return st, ioErr("imgresize.mkdir", out, err)
	}

	entries, err := os.ReadDir(in)
	if err != nil {
		return st, ioErr("imgresize.readdir", in, err)
	}
	for i, e := range entries {
		src := filepath.Join(in, e.Name())
		if !e.IsDir() || src == out {
			continue
		}
		r.log.Info("resize.class", zap.Int("index", i), zap.String("class", e.Name()))

		files, err := os.ReadDir(src)
		if err != nil {
			return st, ioErr("imgresize.readdir", src, err)
		}
		dst := filepath.Join(out, e.Name())
		if err := os.MkdirAll(dst, 0o755); err != nil {
			return st, ioErr("imgresize.mkdir", dst, err)
		}

		for _, f := range files {
			if f.IsDir() {
				continue
			}
			if err := ctx.Err(); err != nil {
				return st, err
			}
			name := f.Name()
			if o.Ext != "" {
				name = strings.TrimSuffix(name, filepath.Ext(name)) + "." + o.Ext
			}
			if err := resizeFile(filepath.Join(src, f.Name()), filepath.Join(dst, name), o); err != nil {
				return st, err
			}
			st.Images++
		}
		st.Classes++
	}

	r.log.Info("resize.done", zap.Int("classes", st.Classes), zap.Int("images", st.Images))
	return st, nil
}

func resizeFile(src, dst string, o Options) error {
	f, err := os.Open(src)
	if err != nil {
		return ioErr("imgresize.open", src, err)
	}
	img, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return domain.InvalidConfig("imgresize.decode", src, "%v", err)
	}

	resized := Resize(img, o.Dim)

	w, err := os.Create(dst)
	if err != nil {
		return ioErr("imgresize.create", dst, err)
	}
	if err := encode(w, resized, dst, o); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return ioErr("imgresize.close", dst, err)
	}
	return nil
}

func encode(w *os.File, img image.Image, dst string, o Options) error {
	var err error
	switch strings.ToLower(filepath.Ext(dst)) {
	case ".jpg", ".jpeg":
		q := jpeg.DefaultQuality
		if o.Ext == "jpg" && o.Quality > 0 {
			q = o.Quality
		}
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: q})
	case ".png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		err = enc.Encode(w, img)
	case ".bmp":
		err = bmp.Encode(w, img)
	default:
		return domain.InvalidConfig("imgresize.encode", dst, "no encoder for %q (use --ext jpg|png)", filepath.Ext(dst))
	}
	if err != nil {
		return ioErr("imgresize.encode", dst, err)
	}
	return nil
}

// TargetSize scales (w, h) so the shorter side equals dim, truncating the
// longer side.
func TargetSize(w, h, dim int) (int, int) {
	if w <= h {
		return dim, int(float64(dim) * float64(h) / float64(w))
	}
	return int(float64(dim) * float64(w) / float64(h)), dim
}

// Resize returns an opaque RGB copy of img with its shorter side scaled to dim.
func Resize(img image.Image, dim int) *image.RGBA {
	b := img.Bounds()
	tw, th := TargetSize(b.Dx(), b.Dy(), dim)

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

func ioErr(op, path string, err error) error {
	kind := domain.KindExecution
	if os.IsNotExist(err) {
		kind = domain.KindNotFound
	}
	return &domain.OpError{Op: op, Kind: kind, Path: path, Err: err}
}
