package model

import (
	"fmt"
	"os"

	ort "github.com/yalue/onnxruntime_go"
)

// Server owns the ONNX Runtime session for the loaded classifier. It is
// constructed once at startup, shared read-only by all request handlers
// and destroyed at process exit. Tensors are created per Predict call,
// so concurrent requests never touch shared mutable state.
type Server struct {
	session *ort.DynamicAdvancedSession
	meta    Metadata
}

var _ Classifier = (*Server)(nil)

// NewServer loads the metadata sidecar and opens an inference session on
// the artifact. Any error here means the process must not accept traffic.
func NewServer(modelPath, metadataPath string) (*Server, error) {
	if libPath := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH"); libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	meta, err := LoadMetadata(metadataPath)
	if err != nil {
		return nil, err
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{meta.InputName}, []string{meta.OutputName}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Server{
		session: session,
		meta:    meta,
	}, nil
}

// Metadata returns the sidecar contents the session was opened with.
func (s *Server) Metadata() Metadata {
	return s.meta
}

// Predict runs one measurement row through the model and maps the most
// probable class index to its species label.
func (s *Server) Predict(features Features) (*Prediction, error) {
	row := features[:]

	inputTensor, err := ort.NewTensor(ort.NewShape(s.meta.InputShape...), row)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(s.meta.OutputShape...))
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	if err := s.session.Run([]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor}); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	probs := outputTensor.GetData()

	maxIdx := 0
	maxVal := probs[0]
	probabilities := make(map[string]float32, len(s.meta.Classes))

	for i, val := range probs {
		if i < len(s.meta.Classes) {
			probabilities[s.meta.Classes[i]] = val
			if val > maxVal {
				maxVal = val
				maxIdx = i
			}
		}
	}

	return &Prediction{
		Species:       s.meta.Classes[maxIdx],
		Index:         maxIdx,
		Confidence:    maxVal,
		Probabilities: probabilities,
	}, nil
}

// Close releases the session and the runtime environment.
func (s *Server) Close() {
	if s.session != nil {
		s.session.Destroy()
	}
	ort.DestroyEnvironment()
}
