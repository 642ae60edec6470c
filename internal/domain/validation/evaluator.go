// Package validation runs the verdict pipeline: resolve the referenced
// images, consult the memoization cache, compute the kind-specific analysis
// and record the outcome.
package validation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	goimage "image"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"stayonboard-server-go/internal/domain/color"
	"stayonboard-server-go/internal/domain/image"
	"stayonboard-server-go/internal/domain/imagestore"
	"stayonboard-server-go/internal/domain/similarity"
	"stayonboard-server-go/internal/domain/validation/aggregate"
	"stayonboard-server-go/internal/domain/validation/repository"
	"stayonboard-server-go/internal/platform/config"
	"stayonboard-server-go/internal/platform/errors"
	"stayonboard-server-go/internal/platform/logging"
)

// significantWeight is the minimum share of the image a dominant color must
// cover before it participates in brand or contrast judgements.
const significantWeight = 0.05

// defaultCompareThreshold is the pass bar for image comparisons when the
// request does not carry one.
const defaultCompareThreshold = 0.8

// Evaluator computes verdicts. Verdicts are pure functions of the request
// and the referenced pixels, so they memoize cleanly; ComputedAt is the only
// field that varies between identical runs.
type Evaluator struct {
	store      imagestore.Store
	images     *image.Validator
	extractor  *color.Extractor
	similarity *similarity.Engine
	cache      repository.Cache
	logger     *logging.Logger

	defaultColors int
	timeout       time.Duration
}

// NewEvaluator wires the pipeline stages together.
func NewEvaluator(
	store imagestore.Store,
	images *image.Validator,
	cache repository.Cache,
	cfg *config.Config,
	logger *logging.Logger,
) *Evaluator {
	extractor := color.NewExtractor()
	if cfg.Extraction.MaxSamples > 0 {
		extractor = extractor.WithMaxSamples(cfg.Extraction.MaxSamples)
	}
	colors := cfg.Extraction.Colors
	if colors <= 0 {
		colors = 6
	}
	return &Evaluator{
		store:         store,
		images:        images,
		extractor:     extractor,
		similarity:    similarity.NewEngine(),
		cache:         cache,
		logger:        logger,
		defaultColors: colors,
		timeout:       cfg.Compute.Timeout,
	}
}

// Evaluate returns the verdict for the request, serving it from cache when
// an identical request over identical pixels was answered before. The
// boolean reports a cache hit.
func (e *Evaluator) Evaluate(ctx context.Context, req aggregate.Request) (aggregate.Verdict, bool, error) {
	return e.evaluate(ctx, req, false)
}

// EvaluateFresh recomputes unconditionally, refreshing the cache entry. Used
// by reruns so they exercise the full pipeline instead of echoing the cache.
func (e *Evaluator) EvaluateFresh(ctx context.Context, req aggregate.Request) (aggregate.Verdict, error) {
	verdict, _, err := e.evaluate(ctx, req, true)
	return verdict, err
}

func (e *Evaluator) evaluate(ctx context.Context, req aggregate.Request, fresh bool) (aggregate.Verdict, bool, error) {
	if err := req.Validate(); err != nil {
		return aggregate.Verdict{}, false, err
	}

	handles, err := e.resolveHandles(ctx, req)
	if err != nil {
		return aggregate.Verdict{}, false, err
	}
	key := cacheKey(req, handles)

	compute := func(ctx context.Context) ([]byte, error) {
		verdict, err := e.compute(ctx, req, handles)
		if err != nil {
			return nil, err
		}
		return sonic.Marshal(verdict)
	}

	var encoded []byte
	var hit bool
	if fresh {
		encoded, err = compute(ctx)
		if err == nil {
			if setErr := e.cache.Set(ctx, key, encoded); setErr != nil {
				e.logger.WarnTag("CACHE", "refresh failed for %s: %v", key[:12], setErr)
			}
		}
	} else {
		encoded, hit, err = e.cache.ComputeOnce(ctx, key, compute)
		if err != nil && errors.IsKind(err, errors.KindStorage) {
			// Cache trouble must not take the pipeline down; compute
			// directly and carry on without memoization.
			e.logger.WarnTag("CACHE", "degrading to direct compute for %s: %v", key[:12], err)
			encoded, err = compute(ctx)
			hit = false
		}
	}
	if err != nil {
		return aggregate.Verdict{}, false, err
	}

	var verdict aggregate.Verdict
	if err := sonic.Unmarshal(encoded, &verdict); err != nil {
		return aggregate.Verdict{}, false, errors.Wrap(errors.KindUnknown, "validation.evaluate",
			"decode cached verdict", err)
	}
	return verdict, hit, nil
}

func (e *Evaluator) resolveHandles(ctx context.Context, req aggregate.Request) ([]imagestore.Handle, error) {
	ids := req.ImageIDs()
	handles := make([]imagestore.Handle, 0, len(ids))
	for _, id := range ids {
		handle, err := e.store.Resolve(ctx, id)
		if err != nil {
			return nil, err
		}
		handles = append(handles, handle)
	}
	return handles, nil
}

// cacheKey digests the request kind, the pixel fingerprints of every
// referenced image and the canonical parameter string. Identical requests
// over identical pixels always map to the same key.
func cacheKey(req aggregate.Request, handles []imagestore.Handle) string {
	h := sha256.New()
	h.Write([]byte(req.Kind))
	h.Write([]byte{0})
	for _, handle := range handles {
		h.Write([]byte(handle.Fingerprint))
		h.Write([]byte{0})
	}
	h.Write([]byte(req.CanonicalParams()))
	return hex.EncodeToString(h.Sum(nil))
}

func (e *Evaluator) compute(ctx context.Context, req aggregate.Request, handles []imagestore.Handle) (aggregate.Verdict, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	var verdict aggregate.Verdict
	var err error
	switch req.Kind {
	case aggregate.KindTextContrast:
		verdict, err = e.computeTextContrast(req)
	case aggregate.KindWCAGImage:
		verdict, err = e.computeWCAGImage(ctx, req, handles[0])
	case aggregate.KindBrand:
		verdict, err = e.computeBrand(ctx, req, handles[0])
	case aggregate.KindImageComparison:
		verdict, err = e.computeComparison(ctx, req, handles)
	default:
		err = errors.New(errors.KindInvalidParameters, "validation.compute",
			"unknown validation kind: "+string(req.Kind))
	}
	if err != nil {
		return aggregate.Verdict{}, err
	}

	verdict.ComputedAt = time.Now().UTC()
	e.logger.DebugTag("EVAL", "%s verdict=%s issues=%d elapsed=%s",
		req.Kind, verdict.Status, len(verdict.Issues), time.Since(start))
	return verdict, nil
}

func checkDeadline(ctx context.Context, op string) error {
	select {
	case <-ctx.Done():
		return errors.Wrap(errors.KindComputationTimeout, op, "computation cancelled", ctx.Err())
	default:
		return nil
	}
}

func (e *Evaluator) loadImage(ctx context.Context, handle imagestore.Handle) (goimage.Image, error) {
	raw, err := e.store.Load(ctx, handle.StorageID)
	if err != nil {
		return nil, err
	}
	img, _, err := e.images.Decode(raw, handle.Format)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (e *Evaluator) computeTextContrast(req aggregate.Request) (aggregate.Verdict, error) {
	params := req.Text
	result := color.Contrast(params.Foreground, params.Background)
	large := color.IsLargeText(params.FontSizePx, params.Bold)

	level := result.NormalLevel
	criterion := "WCAG 1.4.3 contrast (minimum)"
	if large {
		level = result.LargeLevel
	}

	verdict := aggregate.Verdict{
		Contrast: &result,
		Scores: map[string]float64{
			"contrast_ratio": result.Ratio,
		},
	}
	switch level {
	case color.LevelAAA:
		verdict.Status = aggregate.StatusPass
	case color.LevelAA:
		verdict.Status = aggregate.StatusPass
		verdict.Issues = append(verdict.Issues, aggregate.Issue{
			Criterion: "WCAG 1.4.6 contrast (enhanced)",
			Severity:  aggregate.SeverityWarning,
			Message: fmt.Sprintf("ratio %.2f meets AA but not AAA for this text size",
				result.Ratio),
			Suggestion: "darken the foreground or lighten the background to reach AAA",
		})
	default:
		verdict.Status = aggregate.StatusFail
		verdict.Issues = append(verdict.Issues, aggregate.Issue{
			Criterion: criterion,
			Severity:  aggregate.SeverityError,
			Message: fmt.Sprintf("ratio %.2f between %s and %s fails AA for this text size",
				result.Ratio, params.Foreground.Hex(), params.Background.Hex()),
			Suggestion: "increase the luminance difference between foreground and background",
		})
	}
	return verdict, nil
}

func (e *Evaluator) computeWCAGImage(ctx context.Context, req aggregate.Request, handle imagestore.Handle) (aggregate.Verdict, error) {
	img, err := e.loadImage(ctx, handle)
	if err != nil {
		return aggregate.Verdict{}, err
	}
	if err := checkDeadline(ctx, "validation.wcag-image"); err != nil {
		return aggregate.Verdict{}, err
	}

	samples, err := e.extractor.Extract(img, e.defaultColors)
	if err != nil {
		return aggregate.Verdict{}, err
	}
	if err := checkDeadline(ctx, "validation.wcag-image"); err != nil {
		return aggregate.Verdict{}, err
	}

	significant := significantSamples(samples)
	verdict := aggregate.Verdict{Samples: samples}

	if len(significant) < 2 {
		// A single dominant color cannot fail a contrast pair; flag it
		// instead of passing silently.
		verdict.Status = aggregate.StatusPartial
		verdict.Issues = append(verdict.Issues, aggregate.Issue{
			Criterion:  "WCAG 1.4.3 contrast (minimum)",
			Severity:   aggregate.SeverityWarning,
			Message:    "image is dominated by a single color; no contrast pairs to evaluate",
			Suggestion: "verify any text overlaid on this image separately",
		})
		return verdict, nil
	}

	best := 1.0
	for i := 0; i < len(significant); i++ {
		for j := i + 1; j < len(significant); j++ {
			ratio := color.ContrastRatio(significant[i].Color, significant[j].Color)
			if ratio > best {
				best = ratio
			}
			if ratio < color.AANormalText {
				verdict.Issues = append(verdict.Issues, aggregate.Issue{
					Criterion: "WCAG 1.4.3 contrast (minimum)",
					Severity:  aggregate.SeverityWarning,
					Message: fmt.Sprintf("dominant colors %s and %s contrast at %.2f",
						significant[i].Color.Hex(), significant[j].Color.Hex(), ratio),
					Suggestion: "avoid pairing these colors for text and meaningful graphics",
				})
			}
		}
	}

	verdict.Scores = map[string]float64{
		"best_contrast_ratio": best,
	}
	switch {
	case best >= color.AANormalText:
		verdict.Status = aggregate.StatusPass
	case best >= color.AALargeText:
		verdict.Status = aggregate.StatusPartial
		verdict.Issues = append(verdict.Issues, aggregate.Issue{
			Criterion: "WCAG 1.4.3 contrast (minimum)",
			Severity:  aggregate.SeverityError,
			Message: fmt.Sprintf("best dominant-color contrast %.2f only suits large text",
				best),
			Suggestion: "reserve this image for large text or add a text backdrop",
		})
	default:
		verdict.Status = aggregate.StatusFail
		verdict.Issues = append(verdict.Issues, aggregate.Issue{
			Criterion: "WCAG 1.4.3 contrast (minimum)",
			Severity:  aggregate.SeverityError,
			Message: fmt.Sprintf("no dominant color pair reaches AA contrast (best %.2f)",
				best),
			Suggestion: "overlaid text will need a solid backdrop on this image",
		})
	}
	return verdict, nil
}

func (e *Evaluator) computeBrand(ctx context.Context, req aggregate.Request, handle imagestore.Handle) (aggregate.Verdict, error) {
	img, err := e.loadImage(ctx, handle)
	if err != nil {
		return aggregate.Verdict{}, err
	}
	if err := checkDeadline(ctx, "validation.brand"); err != nil {
		return aggregate.Verdict{}, err
	}

	colors := e.defaultColors
	if req.Brand.Colors > 0 {
		colors = req.Brand.Colors
	}
	samples, err := e.extractor.Extract(img, colors)
	if err != nil {
		return aggregate.Verdict{}, err
	}
	if err := checkDeadline(ctx, "validation.brand"); err != nil {
		return aggregate.Verdict{}, err
	}

	significant := significantSamples(samples)
	if len(significant) == 0 {
		significant = samples[:1]
	}

	verdict := aggregate.Verdict{Samples: samples}
	totalWeight := 0.0
	alignment := 0.0
	onBrand := 0.0
	for _, sample := range significant {
		match, err := color.MatchToPalette(sample.Color, req.Brand.Palette)
		if err != nil {
			return aggregate.Verdict{}, err
		}
		verdict.ColorMatches = append(verdict.ColorMatches, aggregate.ColorMatch{
			Detected:        sample.Color,
			Weight:          sample.Weight,
			Nearest:         match.Color,
			Distance:        match.Distance,
			WithinTolerance: match.WithinTolerance,
		})

		tolerance := req.Brand.Palette[match.Index].Tolerance
		if tolerance <= 0 {
			tolerance = color.DefaultTolerance
		}
		closeness := 1.0 - match.Distance/tolerance
		if closeness < 0 {
			closeness = 0
		}
		alignment += sample.Weight * closeness
		totalWeight += sample.Weight
		if match.WithinTolerance {
			onBrand += sample.Weight
		} else {
			verdict.Issues = append(verdict.Issues, aggregate.Issue{
				Criterion: "brand palette alignment",
				Severity:  aggregate.SeverityWarning,
				Message: fmt.Sprintf("color %s covers %.0f%% of the image but is off palette (distance %.1f to %s)",
					sample.Color.Hex(), sample.Weight*100, match.Distance, match.Color.Hex()),
				Suggestion: fmt.Sprintf("shift this region toward %s", match.Color.Hex()),
			})
		}
	}

	if totalWeight > 0 {
		alignment /= totalWeight
		onBrand /= totalWeight
	}
	verdict.Scores = map[string]float64{
		"alignment":         alignment,
		"on_brand_coverage": onBrand,
	}
	switch {
	case alignment >= 0.8:
		verdict.Status = aggregate.StatusPass
	case alignment >= 0.5:
		verdict.Status = aggregate.StatusPartial
	default:
		verdict.Status = aggregate.StatusFail
		verdict.Issues = append(verdict.Issues, aggregate.Issue{
			Criterion:  "brand palette alignment",
			Severity:   aggregate.SeverityError,
			Message:    fmt.Sprintf("overall palette alignment is %.0f%%", alignment*100),
			Suggestion: "rework the dominant colors toward the brand palette",
		})
	}
	return verdict, nil
}

func (e *Evaluator) computeComparison(ctx context.Context, req aggregate.Request, handles []imagestore.Handle) (aggregate.Verdict, error) {
	first, err := e.loadImage(ctx, handles[0])
	if err != nil {
		return aggregate.Verdict{}, err
	}
	second, err := e.loadImage(ctx, handles[1])
	if err != nil {
		return aggregate.Verdict{}, err
	}
	if err := checkDeadline(ctx, "validation.compare"); err != nil {
		return aggregate.Verdict{}, err
	}

	result, err := e.similarity.Compare(first, second)
	if err != nil {
		return aggregate.Verdict{}, err
	}

	threshold := defaultCompareThreshold
	if req.Compare != nil && req.Compare.Threshold > 0 {
		threshold = req.Compare.Threshold
	}

	verdict := aggregate.Verdict{
		Scores: map[string]float64{
			"similarity":       result.Score,
			"color_score":      result.ColorScore,
			"structural_score": result.StructuralScore,
		},
	}
	if result.Score >= threshold {
		verdict.Status = aggregate.StatusPass
	} else {
		verdict.Status = aggregate.StatusFail
		verdict.Issues = append(verdict.Issues, aggregate.Issue{
			Criterion: "image similarity",
			Severity:  aggregate.SeverityError,
			Message: fmt.Sprintf("similarity %.2f is below the threshold %.2f",
				result.Score, threshold),
			Suggestion: suggestionForComparison(result),
		})
	}
	return verdict, nil
}

func suggestionForComparison(result similarity.Result) string {
	parts := []string{}
	if result.ColorScore < 0.5 {
		parts = append(parts, "the color distributions diverge")
	}
	if result.StructuralUsed && result.StructuralScore < 0.5 {
		parts = append(parts, "the layouts differ structurally")
	}
	if len(parts) == 0 {
		return "review both images side by side"
	}
	return strings.Join(parts, "; ")
}

func significantSamples(samples []color.Sample) []color.Sample {
	out := make([]color.Sample, 0, len(samples))
	for _, s := range samples {
		if s.Weight >= significantWeight {
			out = append(out, s)
		}
	}
	return out
}
