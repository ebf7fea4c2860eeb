package usecase

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/stanford-futuredata/smol/internal/domain"
	"github.com/stanford-futuredata/smol/internal/ports"
	"github.com/stanford-futuredata/smol/internal/usecase/cfggen"
	"go.uber.org/zap"
)

// GenKind selects a family of generated configs.
type GenKind string

const (
	GenImage   GenKind = "image"
	GenNoScope GenKind = "noscope"
	GenBlazeIt GenKind = "blazeit"
)

// Image config sets; an empty selection means all of them.
const (
	SetE2E      = "e2e"
	SetAblation = "ablation"
	SetTahoma   = "tahoma"
)

type GenerateRequest struct {
	Kind GenKind
	// SweepPath overrides the built-in parameter lists when set.
	SweepPath string
	// TemplatePath overrides the sweep's template; otherwise the sweep's
	// template is resolved against TemplatesDir.
	TemplatePath string
	TemplatesDir string
	OutRoot      string
	Sets         []string
	DryRun       bool
}

type GenerateConfigs struct {
	configs ports.ConfigLoader
	writer  ports.ConfigWriter
	sweeps  ports.SweepLoader
	log     *zap.Logger
}

func NewGenerateConfigs(cl ports.ConfigLoader, cw ports.ConfigWriter, sl ports.SweepLoader, l *zap.Logger) *GenerateConfigs {
	if l == nil {
		l = zap.NewNop()
	}
	return &GenerateConfigs{configs: cl, writer: cw, sweeps: sl, log: l}
}

// Execute generates and writes every config of the request and returns their
// paths in generation order.
func (uc *GenerateConfigs) Execute(ctx context.Context, req GenerateRequest) ([]string, error) {
	if strings.TrimSpace(req.OutRoot) == "" {
		return nil, missingArg("out root")
	}

	var gens []cfggen.Generated
	var err error
	switch req.Kind {
	case GenImage:
		gens, err = uc.image(req)
	case GenNoScope, GenBlazeIt:
		gens, err = uc.video(req)
	default:
		return nil, domain.InvalidConfig("generate.validate", "", "unknown kind %q (expected image|noscope|blazeit)", string(req.Kind))
	}
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(gens))
	for _, g := range gens {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		if !req.DryRun {
			if err := uc.writer.WriteConfig(g.Path, g.Doc); err != nil {
				return paths, err
			}
		}
		uc.log.Debug("generate.config", zap.String("path", g.Path), zap.Bool("dry_run", req.DryRun))
		paths = append(paths, g.Path)
	}
	uc.log.Info("generate.done", zap.String("kind", string(req.Kind)), zap.Int("configs", len(paths)))
	return paths, nil
}

func (uc *GenerateConfigs) image(req GenerateRequest) ([]cfggen.Generated, error) {
	sw := domain.DefaultImageSweep()
	if req.SweepPath != "" {
		var err error
		if sw, err = uc.sweeps.LoadImageSweep(req.SweepPath); err != nil {
			return nil, err
		}
	}
	tmpl, err := uc.loadTemplate(req, sw.Template)
	if err != nil {
		return nil, err
	}

	sets := req.Sets
	if len(sets) == 0 {
		sets = []string{SetE2E, SetAblation, SetTahoma}
	}

	var out []cfggen.Generated
	for _, set := range sets {
		var gens []cfggen.Generated
		switch set {
		case SetE2E:
			gens, err = cfggen.ImageSweep(tmpl, req.OutRoot, sw)
		case SetAblation:
			gens, err = cfggen.AblationSweep(tmpl, req.OutRoot, sw)
		case SetTahoma:
			gens, err = cfggen.TahomaSweep(tmpl, req.OutRoot, sw)
		default:
			return nil, domain.InvalidConfig("generate.validate", "", "unknown image set %q (expected e2e|ablation|tahoma)", set)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, gens...)
	}
	return out, nil
}

func (uc *GenerateConfigs) video(req GenerateRequest) ([]cfggen.Generated, error) {
	sw := domain.DefaultNoScopeSweep()
	if req.Kind == GenBlazeIt {
		sw = domain.DefaultBlazeItSweep()
	}
	if req.SweepPath != "" {
		var err error
		if sw, err = uc.sweeps.LoadVideoSweep(req.SweepPath); err != nil {
			return nil, err
		}
		if string(sw.Kind) != string(req.Kind) {
			return nil, domain.InvalidConfig("generate.validate", req.SweepPath, "sweep kind %q does not match %q", string(sw.Kind), string(req.Kind))
		}
	}
	tmpl, err := uc.loadTemplate(req, sw.Template)
	if err != nil {
		return nil, err
	}
	return cfggen.VideoSweep(tmpl, req.OutRoot, sw)
}

func (uc *GenerateConfigs) loadTemplate(req GenerateRequest, name string) (domain.ConfigDoc, error) {
	path := req.TemplatePath
	if path == "" {
		path = name
		if !filepath.IsAbs(path) && req.TemplatesDir != "" {
			path = filepath.Join(req.TemplatesDir, name)
		}
	}
	return uc.configs.LoadConfig(path)
}
