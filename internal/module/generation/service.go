package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/thumbfast/server/internal/module/catalog"
	"github.com/thumbfast/server/internal/module/prompt"
	"github.com/thumbfast/server/internal/shared/logger"
	"github.com/thumbfast/server/internal/shared/metrics"
	"go.uber.org/zap"
)

// Service orchestrates image generation.
type Service struct {
	client      ImageClient
	logger      *zap.Logger
	metrics     *metrics.Metrics
	maxVariants int
}

// ServiceConfig holds service configuration.
type ServiceConfig struct {
	Client  ImageClient
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// MaxVariants lowers the variant ceiling; values outside [1,4] are ignored.
	MaxVariants int
}

// NewService creates a new generation service.
func NewService(cfg *ServiceConfig) *Service {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	maxVariants := MaxVariants
	if cfg.MaxVariants >= MinVariants && cfg.MaxVariants < MaxVariants {
		maxVariants = cfg.MaxVariants
	}
	return &Service{
		client:      cfg.Client,
		logger:      log.Named("generation"),
		metrics:     cfg.Metrics,
		maxVariants: maxVariants,
	}
}

// plan is a request after validation and normalization.
type plan struct {
	model    catalog.Model
	modes    []catalog.Mode
	layout   int
	blend    bool
	variants int
	parts    []Part
}

// Generate validates req, dispatches one call per variant and gathers the
// image attachments of every call that succeeded, in dispatch order.
//
// Individual call failures only shrink the result. An error is returned for
// invalid input, and when every call failed with ErrUnavailable.
func (s *Service) Generate(ctx context.Context, req *Request) (*Result, error) {
	p, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	log := logger.Ctx(ctx, s.logger)
	outcomes := s.fanOut(ctx, p)

	result := &Result{
		Images:    []Image{},
		Model:     p.model.ID,
		Modes:     p.modes,
		Layout:    p.layout,
		Blend:     p.blend,
		Requested: p.variants,
	}

	var unavailable int
	var lastErr error
	for i, o := range outcomes {
		if o.err != nil {
			result.Failed++
			lastErr = o.err
			if errors.Is(o.err, ErrUnavailable) {
				unavailable++
			}
			log.Warn("variant failed",
				zap.String("model", p.model.ID),
				zap.Int("variant", i+1),
				zap.Int("variants", p.variants),
				zap.Error(o.err),
			)
			continue
		}

		result.Succeeded++
		for _, img := range o.images {
			if !img.IsImage() {
				result.Dropped++
				continue
			}
			result.Images = append(result.Images, img)
		}
	}

	if unavailable == p.variants {
		return nil, fmt.Errorf("generate with %s: %w", p.model.ID, lastErr)
	}

	if s.metrics != nil {
		s.metrics.RecordImages(p.model.ID, len(result.Images))
	}

	log.Info("generation finished",
		zap.String("model", p.model.ID),
		zap.Int("variants", p.variants),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Int("images", len(result.Images)),
		zap.Int("dropped", result.Dropped),
	)

	return result, nil
}

type outcome struct {
	images []Image
	err    error
}

// fanOut runs every variant to completion. Results are stored by dispatch
// index, so arrival order never leaks into the output.
func (s *Service) fanOut(ctx context.Context, p *plan) []outcome {
	outcomes := make([]outcome, p.variants)

	var wg sync.WaitGroup
	for i := range p.variants {
		parts := make([]Part, len(p.parts), len(p.parts)+1)
		copy(parts, p.parts)
		if p.variants > 1 {
			parts = append(parts, TextPart(prompt.VariantNote(i+1, p.variants)))
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					outcomes[i] = outcome{err: fmt.Errorf("variant %d panicked: %v", i+1, r)}
				}
			}()

			images, err := s.client.Generate(ctx, p.model.ID, parts)
			outcomes[i] = outcome{images: images, err: err}
		}()
	}
	wg.Wait()

	return outcomes
}

func (s *Service) prepare(req *Request) (*plan, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, ErrPromptRequired
	}

	modes, err := normalizeModes(req.Modes)
	if err != nil {
		return nil, err
	}

	layout := req.Layout
	if layout == 0 {
		layout = catalog.MinLayout
	}
	if !catalog.ValidLayout(layout) {
		return nil, ErrInvalidLayout
	}

	model := catalog.Resolve(req.Model)
	variants := min(ClampVariantCount(req.VariantCount), s.maxVariants)

	persons := s.decodeAll("persons", req.Images.Persons)
	inspiration := s.decodeAll("inspiration", req.Images.Inspiration)
	extras := s.decodeAll("extras", req.Images.Extras)

	text := prompt.Compose(prompt.Request{
		UserPrompt:     req.Prompt,
		Modes:          modes,
		HasPersons:     len(persons) > 0,
		HasInspiration: len(inspiration) > 0,
		HasExtras:      len(extras) > 0,
		Layout:         layout,
		Blend:          req.Blend,
		Explicit:       model.NeedsExplicitness,
	})

	parts := make([]Part, 0, 1+len(persons)+len(inspiration)+len(extras))
	parts = append(parts, TextPart(text))
	for _, group := range [][]Image{persons, inspiration, extras} {
		for _, img := range group {
			parts = append(parts, Part{Data: img.Data, MediaType: img.MediaType})
		}
	}

	return &plan{
		model:    model,
		modes:    modes,
		layout:   layout,
		blend:    req.Blend,
		variants: variants,
		parts:    parts,
	}, nil
}

// normalizeModes applies the default selection and drops duplicates while
// keeping the caller's order.
func normalizeModes(in []catalog.Mode) ([]catalog.Mode, error) {
	if in == nil {
		return append([]catalog.Mode(nil), catalog.DefaultModes...), nil
	}
	if len(in) == 0 {
		return nil, ErrModesRequired
	}

	out := make([]catalog.Mode, 0, len(in))
	seen := make(map[catalog.Mode]bool, len(in))
	for _, m := range in {
		if !m.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMode, m)
		}
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out, nil
}

func (s *Service) decodeAll(role string, encoded []string) []Image {
	out := make([]Image, 0, len(encoded))
	for i, e := range encoded {
		img, err := DecodeImage(e)
		if err != nil {
			s.logger.Warn("skipping undecodable attachment",
				zap.String("role", role),
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		out = append(out, img)
	}
	return out
}
