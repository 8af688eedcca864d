package model

import (
	"testing"

	ort "github.com/yalue/onnxruntime_go"
)

// Predict hands the session ArbitraryTensor slices; both tensor kinds it
// builds must satisfy that interface at the pinned runtime version.
var (
	_ ort.ArbitraryTensor = (*ort.Tensor[float32])(nil)
)

func TestFeatureVectorWidthMatchesOrder(t *testing.T) {
	if len(Features{}) != len(FeatureOrder) {
		t.Errorf("feature vector holds %d values but FeatureOrder names %d columns",
			len(Features{}), len(FeatureOrder))
	}
}
