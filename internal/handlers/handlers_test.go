package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"

	"github.com/irislab/iris-api/internal/model"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// stubClassifier mimics the trained model's decision boundaries for the
// canonical benchmark rows: short petals are setosa, narrow petals are
// versicolor, the rest virginica. It reads the feature vector at the
// same positions the real model does, so the ordering tests are
// meaningful.
type stubClassifier struct {
	calls int
	err   error
}

func (s *stubClassifier) Predict(features model.Features) (*model.Prediction, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}

	petalLength := features[2]
	petalWidth := features[3]

	var idx int
	switch {
	case petalLength < 2.5:
		idx = 0
	case petalWidth < 1.75:
		idx = 1
	default:
		idx = 2
	}

	classes := []string{"setosa", "versicolor", "virginica"}
	probs := map[string]float32{"setosa": 0, "versicolor": 0, "virginica": 0}
	probs[classes[idx]] = 0.97

	return &model.Prediction{
		Species:       classes[idx],
		Index:         idx,
		Confidence:    0.97,
		Probabilities: probs,
	}, nil
}

func testMetadata() model.Metadata {
	return model.Metadata{
		InputName:    "float_input",
		OutputName:   "probabilities",
		InputShape:   []int64{1, 4},
		OutputShape:  []int64{1, 3},
		Classes:      []string{"setosa", "versicolor", "virginica"},
		FeatureOrder: []string{"sepal_length", "sepal_width", "petal_length", "petal_width"},
	}
}

func newTestServer(t *testing.T, clf model.Classifier) (*httptest.Server, *resty.Client) {
	t.Helper()

	handler := NewHandler(clf, testMetadata())
	handler.Health().SetReady(true)

	server := httptest.NewServer(Routes(handler))
	t.Cleanup(server.Close)

	client := resty.New().SetBaseURL(server.URL)
	return server, client
}

func predictBody(sl, sw, pl, pw float64) map[string]float64 {
	return map[string]float64{
		"sepal_length": sl,
		"sepal_width":  sw,
		"petal_length": pl,
		"petal_width":  pw,
	}
}

func TestPredictCanonicalRows(t *testing.T) {
	_, client := newTestServer(t, &stubClassifier{})

	cases := []struct {
		body     map[string]float64
		expected string
	}{
		{predictBody(5.1, 3.5, 1.4, 0.2), "setosa"},
		{predictBody(7.0, 3.2, 4.7, 1.4), "versicolor"},
		{predictBody(6.3, 3.3, 6.0, 2.5), "virginica"},
	}

	for _, tc := range cases {
		var result PredictResponse
		resp, err := client.R().SetBody(tc.body).SetResult(&result).Post("/predict")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode() != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", resp.StatusCode(), resp.String())
		}
		if result.PredictedSpecies != tc.expected {
			t.Errorf("expected %s, got %s", tc.expected, result.PredictedSpecies)
		}
		if result.TraceID == "" {
			t.Error("expected a trace_id in the response")
		}
	}
}

func TestPredictTrailingSlashAlias(t *testing.T) {
	_, client := newTestServer(t, &stubClassifier{})

	var result PredictResponse
	resp, err := client.R().SetBody(predictBody(5.1, 3.5, 1.4, 0.2)).SetResult(&result).Post("/predict/")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode() != http.StatusOK {
		t.Fatalf("expected 200 on /predict/, got %d", resp.StatusCode())
	}
	if result.PredictedSpecies != "setosa" {
		t.Errorf("expected setosa, got %s", result.PredictedSpecies)
	}
}

func TestPredictAlwaysReturnsKnownSpecies(t *testing.T) {
	_, client := newTestServer(t, &stubClassifier{})

	known := map[string]bool{"setosa": true, "versicolor": true, "virginica": true}
	rows := []map[string]float64{
		predictBody(4.9, 3.0, 1.4, 0.2),
		predictBody(5.8, 2.7, 5.1, 1.9),
		predictBody(6.1, 2.8, 4.0, 1.3),
		predictBody(0.1, 0.1, 0.1, 0.1),
		predictBody(100, 100, 100, 100),
	}

	for _, row := range rows {
		var result PredictResponse
		resp, err := client.R().SetBody(row).SetResult(&result).Post("/predict")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode() != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode())
		}
		if !known[result.PredictedSpecies] {
			t.Errorf("got a label outside the fixed species list: %q", result.PredictedSpecies)
		}
	}
}

func TestPredictMissingFieldRejectedBeforeModel(t *testing.T) {
	stub := &stubClassifier{}
	_, client := newTestServer(t, stub)

	for _, missing := range []string{"sepal_length", "sepal_width", "petal_length", "petal_width"} {
		body := predictBody(5.1, 3.5, 1.4, 0.2)
		delete(body, missing)

		resp, err := client.R().SetBody(body).Post("/predict")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode() != http.StatusUnprocessableEntity {
			t.Errorf("missing %s: expected 422, got %d", missing, resp.StatusCode())
		}
	}

	if stub.calls != 0 {
		t.Errorf("model was invoked %d times on invalid input", stub.calls)
	}
}

func TestPredictNonNumericFieldRejected(t *testing.T) {
	stub := &stubClassifier{}
	_, client := newTestServer(t, stub)

	body := `{"sepal_length": "tall", "sepal_width": 3.5, "petal_length": 1.4, "petal_width": 0.2}`
	resp, err := client.R().SetHeader("Content-Type", "application/json").SetBody(body).Post("/predict")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode() != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for non-numeric field, got %d", resp.StatusCode())
	}
	if stub.calls != 0 {
		t.Errorf("model was invoked on non-numeric input")
	}
}

func TestPredictNonPositiveFieldRejected(t *testing.T) {
	_, client := newTestServer(t, &stubClassifier{})

	resp, err := client.R().SetBody(predictBody(5.1, 3.5, -1.4, 0.2)).Post("/predict")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode() != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for negative measurement, got %d", resp.StatusCode())
	}
}

func TestPredictFeatureOrderRespected(t *testing.T) {
	_, client := newTestServer(t, &stubClassifier{})

	// The setosa row, then the same row with sepal_length and
	// petal_length values swapped. If the handler normalized or
	// reordered fields the two requests would classify identically.
	var original, swapped PredictResponse

	if _, err := client.R().SetBody(predictBody(5.1, 3.5, 1.4, 0.2)).SetResult(&original).Post("/predict"); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if _, err := client.R().SetBody(predictBody(1.4, 3.5, 5.1, 0.2)).SetResult(&swapped).Post("/predict"); err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if original.PredictedSpecies == swapped.PredictedSpecies {
		t.Errorf("swapping sepal_length and petal_length did not change the prediction (both %q)",
			original.PredictedSpecies)
	}
}

func TestPredictIdempotent(t *testing.T) {
	_, client := newTestServer(t, &stubClassifier{})

	var first, second PredictResponse
	body := predictBody(6.3, 3.3, 6.0, 2.5)

	if _, err := client.R().SetBody(body).SetResult(&first).Post("/predict"); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if _, err := client.R().SetBody(body).SetResult(&second).Post("/predict"); err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if first.PredictedSpecies != second.PredictedSpecies {
		t.Errorf("identical inputs produced %q then %q", first.PredictedSpecies, second.PredictedSpecies)
	}
}

func TestPredictInferenceFailure(t *testing.T) {
	_, client := newTestServer(t, &stubClassifier{err: errors.New("tensor blew up")})

	resp, err := client.R().SetBody(predictBody(5.1, 3.5, 1.4, 0.2)).Post("/predict")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode() != http.StatusInternalServerError {
		t.Errorf("expected 500 on inference failure, got %d", resp.StatusCode())
	}
}

func TestProbes(t *testing.T) {
	handler := NewHandler(&stubClassifier{}, testMetadata())
	server := httptest.NewServer(Routes(handler))
	defer server.Close()

	client := resty.New().SetBaseURL(server.URL)

	resp, err := client.R().Get("/live_check")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode() != http.StatusOK {
		t.Errorf("expected live_check 200, got %d", resp.StatusCode())
	}

	// Not ready until main flips the flag after the model loads.
	resp, err = client.R().Get("/ready_check")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode() != http.StatusServiceUnavailable {
		t.Errorf("expected ready_check 503 before model load, got %d", resp.StatusCode())
	}

	handler.Health().SetReady(true)

	resp, err = client.R().Get("/ready_check")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode() != http.StatusOK {
		t.Errorf("expected ready_check 200 after model load, got %d", resp.StatusCode())
	}

	resp, err = client.R().Get("/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode() != http.StatusOK {
		t.Errorf("expected health 200, got %d", resp.StatusCode())
	}
}

func TestIndexListsRoutesAndClasses(t *testing.T) {
	_, client := newTestServer(t, &stubClassifier{})

	var body struct {
		Routes  []string `json:"routes"`
		Classes []string `json:"classes"`
	}
	resp, err := client.R().SetResult(&body).Get("/")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode() != http.StatusOK {
		t.Errorf("expected 200 on index, got %d", resp.StatusCode())
	}
	if len(body.Routes) == 0 {
		t.Error("expected the index to list routes")
	}
	if len(body.Classes) != 3 || body.Classes[0] != "setosa" {
		t.Errorf("expected the loaded model's classes, got %v", body.Classes)
	}
}
