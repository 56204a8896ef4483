package pipeline

import "github.com/Brownie44l1/crop-api/internal/catalog"

// NoCropMessage is shown when the vegetation gate rejects an image.
const NoCropMessage = "No crop or plant detected in this image. Please upload a clear photo of a leaf or vegetable."

// FailedMessage is the generic text for decode and inference failures.
const FailedMessage = "Failed to analyze image"

// Reason classifies a Failed outcome.
type Reason string

const (
	ReasonDecode    Reason = "decode"
	ReasonInference Reason = "inference"
	ReasonInternal  Reason = "internal"
)

// Outcome is exactly one of Diagnosed, NoCropDetected or Failed.
type Outcome interface {
	// Result is a short stable name for logs and metrics.
	Result() string
	sealed()
}

// Diagnosed carries the enriched record and calibrated confidence.
type Diagnosed struct {
	Label             string
	Record            catalog.Record
	ConfidencePercent float64
	VegetationRatio   float64
}

// NoCropDetected is a legitimate negative result, not an error.
type NoCropDetected struct {
	Message         string
	VegetationRatio float64
}

// Failed means the request could not be analyzed.
type Failed struct {
	Reason Reason
	Err    error
}

func (Diagnosed) Result() string      { return "diagnosed" }
func (NoCropDetected) Result() string { return "no_crop" }
func (Failed) Result() string         { return "failed" }

func (Diagnosed) sealed()      {}
func (NoCropDetected) sealed() {}
func (Failed) sealed()         {}

func (f Failed) Error() string {
	if f.Err == nil {
		return string(f.Reason)
	}
	return string(f.Reason) + ": " + f.Err.Error()
}

func (f Failed) Unwrap() error {
	return f.Err
}
