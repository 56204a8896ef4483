package model

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Server runs an ONNX model through onnxruntime.
//
// The session is bound to a single pair of input/output tensors, so two
// concurrent Run calls would overwrite each other's buffers. Every call to
// Scores holds mu for the copy-in, run, and copy-out. Once Close has run,
// Scores fails with ErrInference instead of touching freed native memory.
type Server struct {
	mu           sync.Mutex
	closed       bool
	session      *ort.AdvancedSession
	Metadata     Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// NewServer loads the metadata, initializes the onnxruntime environment
// and creates a session for modelPath. sharedLibrary may be empty to use the
// platform default.
func NewServer(modelPath, metadataPath, sharedLibrary string) (*Server, error) {
	metadata, err := LoadMetadata(metadataPath)
	if err != nil {
		return nil, err
	}

	if sharedLibrary != "" {
		ort.SetSharedLibraryPath(sharedLibrary)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	inputShape := ort.NewShape(metadata.InputShape...)
	outputShape := ort.NewShape(metadata.OutputShape...)

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{metadata.InputName}, []string{metadata.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Server{
		session:      session,
		Metadata:     metadata,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// Labels returns the class names in output order.
func (s *Server) Labels() []string {
	return s.Metadata.Classes
}

// Scores runs one inference. The returned slice is a copy owned by the
// caller.
func (s *Server) Scores(input []float32) ([]float32, error) {
	if want := s.Metadata.InputSize(); len(input) != want {
		return nil, fmt.Errorf("%w: expected %d input values, got %d", ErrInference, want, len(input))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.session == nil {
		return nil, fmt.Errorf("%w: model server is closed", ErrInference)
	}

	copy(s.inputTensor.GetData(), input)

	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}

	outputData := s.outputTensor.GetData()
	n := len(s.Metadata.Classes)
	if len(outputData) < n {
		return nil, fmt.Errorf("%w: model returned %d scores for %d labels", ErrInference, len(outputData), n)
	}

	scores := make([]float32, n)
	copy(scores, outputData[:n])
	return scores, nil
}

// Close releases the session, its tensors and the onnxruntime environment.
// It waits for an in-flight Scores call and is safe to call more than once.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	if s.inputTensor != nil {
		s.inputTensor.Destroy()
		s.inputTensor = nil
	}
	if s.outputTensor != nil {
		s.outputTensor.Destroy()
		s.outputTensor = nil
	}
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
		ort.DestroyEnvironment()
	}
}
