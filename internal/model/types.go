package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/Brownie44l1/crop-api/internal/imaging"
)

var (
	// ErrInference wraps any fault raised while running the classifier.
	ErrInference = errors.New("inference failed")
	// ErrLabelMismatch means the label list and the model output disagree.
	ErrLabelMismatch = errors.New("label count does not match model output")
)

// Classifier maps a normalized image tensor to one score per label.
// Implementations must be safe for concurrent use.
type Classifier interface {
	Scores(input []float32) ([]float32, error)
	Labels() []string
}

// Metadata describes the exported model. Classes is order-significant:
// index i of the output vector belongs to Classes[i].
type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
	Layout      string   `json:"layout"`
	InputName   string   `json:"input_name"`
	OutputName  string   `json:"output_name"`
}

// LoadMetadata reads and validates a metadata JSON file.
func LoadMetadata(path string) (Metadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if meta.InputName == "" {
		meta.InputName = "input"
	}
	if meta.OutputName == "" {
		meta.OutputName = "output"
	}

	if err := meta.Validate(); err != nil {
		return Metadata{}, err
	}
	return meta, nil
}

// Validate checks that the label list agrees with the output shape.
func (m Metadata) Validate() error {
	if len(m.Classes) == 0 {
		return errors.New("metadata lists no classes")
	}
	if len(m.InputShape) == 0 || len(m.OutputShape) == 0 {
		return errors.New("metadata is missing input or output shape")
	}

	outputs := m.OutputShape[len(m.OutputShape)-1]
	if int(outputs) != len(m.Classes) {
		return fmt.Errorf("%w: %d labels, model emits %d scores", ErrLabelMismatch, len(m.Classes), outputs)
	}
	return nil
}

// InputSize is the number of float32 values the model expects.
func (m Metadata) InputSize() int {
	size := 1
	for _, dim := range m.InputShape {
		size *= int(dim)
	}
	return size
}

// TensorLayout resolves the channel order of the input tensor. A 4-D input
// shape decides it: [N,3,H,W] is NCHW and [N,H,W,3] is NHWC. An explicit
// layout must agree with the shape. Without one the shape must be
// unambiguous.
func (m Metadata) TensorLayout() (imaging.Layout, error) {
	var declared imaging.Layout
	if m.Layout != "" {
		l, err := imaging.ParseLayout(m.Layout)
		if err != nil {
			return "", err
		}
		declared = l
	}

	var inferred imaging.Layout
	if len(m.InputShape) == 4 {
		first := m.InputShape[1] == imaging.Channels
		last := m.InputShape[3] == imaging.Channels
		switch {
		case first && !last:
			inferred = imaging.LayoutNCHW
		case last && !first:
			inferred = imaging.LayoutNHWC
		}
	}

	switch {
	case declared != "" && inferred != "" && declared != inferred:
		return "", fmt.Errorf("layout %q contradicts input shape %v", declared, m.InputShape)
	case declared != "":
		return declared, nil
	case inferred != "":
		return inferred, nil
	default:
		return "", fmt.Errorf("cannot infer tensor layout from input shape %v, set layout in metadata", m.InputShape)
	}
}

// Argmax returns the index of the highest score. Ties go to the lowest
// index. It returns -1 for an empty slice.
func Argmax(scores []float32) int {
	if len(scores) == 0 {
		return -1
	}

	maxIdx := 0
	maxVal := scores[0]
	for i, val := range scores {
		if val > maxVal {
			maxVal = val
			maxIdx = i
		}
	}
	return maxIdx
}
