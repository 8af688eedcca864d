package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// FeatureOrder is the column order the classifier was trained with.
// Reordering it silently produces wrong predictions, so the metadata
// sidecar is checked against it at load time.
var FeatureOrder = [4]string{"sepal_length", "sepal_width", "petal_length", "petal_width"}

// Features is one measurement row, in FeatureOrder.
type Features [4]float32

// Metadata describes the ONNX artifact: tensor names/shapes, the ordered
// class list and the feature order. It lives in a JSON sidecar next to
// the model file.
type Metadata struct {
	InputName    string   `json:"input_name"`
	OutputName   string   `json:"output_name"`
	InputShape   []int64  `json:"input_shape"`
	OutputShape  []int64  `json:"output_shape"`
	Classes      []string `json:"classes"`
	FeatureOrder []string `json:"feature_order"`
}

// LoadMetadata reads and validates the metadata sidecar.
func LoadMetadata(path string) (Metadata, error) {
	var meta Metadata

	raw, err := os.ReadFile(path)
	if err != nil {
		return meta, fmt.Errorf("failed to read metadata: %w", err)
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return meta, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if err := meta.Validate(); err != nil {
		return meta, err
	}
	return meta, nil
}

// Validate rejects sidecars that disagree with what the service is
// compiled to send the model.
func (m Metadata) Validate() error {
	if m.InputName == "" || m.OutputName == "" {
		return fmt.Errorf("metadata is missing input/output tensor names")
	}
	if len(m.Classes) == 0 {
		return fmt.Errorf("metadata lists no classes")
	}
	if n := elementCount(m.InputShape); n != int64(len(FeatureOrder)) {
		return fmt.Errorf("model expects %d input values, this service sends %d", n, len(FeatureOrder))
	}
	if n := elementCount(m.OutputShape); n != int64(len(m.Classes)) {
		return fmt.Errorf("output shape holds %d values for %d classes", n, len(m.Classes))
	}
	if len(m.FeatureOrder) != len(FeatureOrder) {
		return fmt.Errorf("metadata lists %d features, expected %d", len(m.FeatureOrder), len(FeatureOrder))
	}
	for i, name := range m.FeatureOrder {
		if name != FeatureOrder[i] {
			return fmt.Errorf("feature order mismatch at position %d: model trained on %q, service sends %q",
				i, name, FeatureOrder[i])
		}
	}
	return nil
}

func elementCount(shape []int64) int64 {
	count := int64(1)
	for _, dim := range shape {
		count *= dim
	}
	return count
}

// Prediction is the outcome of classifying one measurement row.
type Prediction struct {
	Species       string
	Index         int
	Confidence    float32
	Probabilities map[string]float32
}

// Classifier is what the HTTP layer depends on. Handlers never see the
// ONNX session directly, which keeps them testable with a stub.
type Classifier interface {
	Predict(features Features) (*Prediction, error)
}
