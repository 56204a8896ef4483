// Package pipeline turns raw image bytes into a diagnosis.
//
// The flow is strictly sequential per request: decode, vegetation gate,
// inference, argmax selection, catalog enrichment, confidence calibration.
// A Pipeline holds only read-only handles and may be shared by any number of
// goroutines.
package pipeline

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/Brownie44l1/crop-api/internal/catalog"
	"github.com/Brownie44l1/crop-api/internal/imaging"
	"github.com/Brownie44l1/crop-api/internal/metrics"
	"github.com/Brownie44l1/crop-api/internal/model"
	"github.com/Brownie44l1/crop-api/internal/vegetation"
	"go.uber.org/zap"
)

// Options configures a Pipeline. The zero value is usable.
type Options struct {
	Layout imaging.Layout
	Decode imaging.Options
	Logger *zap.Logger
}

type Pipeline struct {
	classifier model.Classifier
	catalog    *catalog.Catalog
	labels     []string
	layout     imaging.Layout
	decode     imaging.Options
	logger     *zap.Logger
}

// New wires a classifier and catalog into a pipeline.
func New(classifier model.Classifier, cat *catalog.Catalog, opts Options) (*Pipeline, error) {
	if classifier == nil {
		return nil, errors.New("pipeline: classifier is required")
	}
	if cat == nil {
		return nil, errors.New("pipeline: catalog is required")
	}

	labels := append([]string(nil), classifier.Labels()...)
	if len(labels) == 0 {
		return nil, errors.New("pipeline: classifier has no labels")
	}

	layout := opts.Layout
	if layout == "" {
		layout = imaging.LayoutNHWC
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if missing := cat.Missing(labels); len(missing) > 0 {
		logger.Warn("labels without catalog entry will use fallback metadata",
			zap.Strings("labels", missing))
	}

	return &Pipeline{
		classifier: classifier,
		catalog:    cat,
		labels:     labels,
		layout:     layout,
		decode:     opts.Decode,
		logger:     logger,
	}, nil
}

// Labels returns the label list the classifier was loaded with.
func (p *Pipeline) Labels() []string {
	return p.labels
}

// Predict runs one image through the pipeline. It never panics and always
// returns exactly one outcome. raw is read but not retained.
func (p *Pipeline) Predict(raw []byte) (out Outcome) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			out = Failed{Reason: ReasonInternal, Err: fmt.Errorf("panic: %v", r)}
		}
		p.observe(out, time.Since(start))
	}()

	img, err := imaging.DecodeWithOptions(raw, p.decode)
	if err != nil {
		return Failed{Reason: ReasonDecode, Err: err}
	}

	assessment := vegetation.Assess(img)
	metrics.VegetationRatio.Observe(assessment.Ratio)
	p.logger.Info("vegetation ratio",
		zap.Float64("ratio", assessment.Ratio),
		zap.Bool("passed", assessment.Passed))

	if !assessment.Passed {
		return NoCropDetected{Message: NoCropMessage, VegetationRatio: assessment.Ratio}
	}

	scores, err := p.infer(img.Tensor(p.layout))
	if err != nil {
		return Failed{Reason: ReasonInference, Err: err}
	}

	idx := model.Argmax(scores)
	label := p.labels[idx]

	return Diagnosed{
		Label:             label,
		Record:            p.catalog.Lookup(label),
		ConfidencePercent: Calibrate(scores[idx]),
		VegetationRatio:   assessment.Ratio,
	}
}

// infer calls the classifier, turning panics and malformed output into
// ErrInference.
func (p *Pipeline) infer(input []float32) (scores []float32, err error) {
	defer func() {
		if r := recover(); r != nil {
			scores, err = nil, fmt.Errorf("%w: panic: %v", model.ErrInference, r)
		}
	}()

	scores, err = p.classifier.Scores(input)
	if err != nil {
		if !errors.Is(err, model.ErrInference) {
			err = fmt.Errorf("%w: %v", model.ErrInference, err)
		}
		return nil, err
	}
	if len(scores) != len(p.labels) {
		return nil, fmt.Errorf("%w: got %d scores for %d labels", model.ErrInference, len(scores), len(p.labels))
	}
	return scores, nil
}

// Calibrate converts a raw score into a percentage in [0, 100], clamping
// first and then rounding to one decimal place.
func Calibrate(raw float32) float64 {
	pct := float64(raw) * 100
	switch {
	case math.IsNaN(pct) || pct < 0:
		pct = 0
	case pct > 100:
		pct = 100
	}
	return math.Round(pct*10) / 10
}

func (p *Pipeline) observe(out Outcome, elapsed time.Duration) {
	result := out.Result()
	reason := ""

	switch o := out.(type) {
	case Failed:
		reason = string(o.Reason)
		p.logger.Error("prediction failed", zap.String("reason", reason), zap.Error(o.Err))
	case Diagnosed:
		metrics.DiagnosesTotal.WithLabelValues(o.Label, strconv.FormatBool(p.catalog.Has(o.Label))).Inc()
		p.logger.Info("diagnosed",
			zap.String("label", o.Label),
			zap.String("severity", string(o.Record.Severity)),
			zap.Float64("confidence", o.ConfidencePercent),
			zap.Duration("cost", elapsed))
	}

	metrics.PredictionsTotal.WithLabelValues(result, reason).Inc()
	metrics.PredictionDurationSeconds.WithLabelValues(result).Observe(elapsed.Seconds())
}
