package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/irislab/iris-api/internal/model"
)

// PredictRequest is the inbound measurement row. Pointer fields plus
// binding tags reject a missing or non-numeric field before the model is
// ever invoked; gt=0 enforces positive centimeter measurements.
type PredictRequest struct {
	SepalLength *float64 `json:"sepal_length" binding:"required,gt=0"`
	SepalWidth  *float64 `json:"sepal_width" binding:"required,gt=0"`
	PetalLength *float64 `json:"petal_length" binding:"required,gt=0"`
	PetalWidth  *float64 `json:"petal_width" binding:"required,gt=0"`
}

// jsonFieldNames maps struct fields back to their wire names for
// validation error messages.
var jsonFieldNames = map[string]string{
	"SepalLength": "sepal_length",
	"SepalWidth":  "sepal_width",
	"PetalLength": "petal_length",
	"PetalWidth":  "petal_width",
}

type PredictResponse struct {
	PredictedSpecies string             `json:"predicted_species"`
	Confidence       float32            `json:"confidence"`
	Probabilities    map[string]float32 `json:"probabilities"`
	LatencyMs        float64            `json:"latency_ms"`
	TraceID          string             `json:"trace_id"`
}

// Handler serves the prediction API. The classifier and its metadata are
// injected at construction time; both are shared, read-only and safe for
// concurrent use.
type Handler struct {
	classifier model.Classifier
	meta       model.Metadata
	health     *Health
}

func NewHandler(classifier model.Classifier, meta model.Metadata) *Handler {
	return &Handler{
		classifier: classifier,
		meta:       meta,
		health:     NewHealth(),
	}
}

// Health exposes the probe state so main can flip readiness once the
// model is loaded.
func (h *Handler) Health() *Health {
	return h.health
}

// Predict handles POST /predict. Validation failures return 422 without
// touching the model; inference failures return 500 with the trace id.
func (h *Handler) Predict(c *gin.Context) {
	ctx, span := otel.Tracer("iris-api").Start(c.Request.Context(), "iris_prediction")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	start := time.Now()
	traceID := traceIDFrom(c, span)

	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"detail":   bindingDetail(err),
			"trace_id": traceID,
		})
		return
	}

	// Feature order must match training order; see model.FeatureOrder.
	features := model.Features{
		float32(*req.SepalLength),
		float32(*req.SepalWidth),
		float32(*req.PetalLength),
		float32(*req.PetalWidth),
	}

	prediction, err := h.classifier.Predict(features)
	if err != nil {
		span.RecordError(err)
		log.WithFields(log.Fields{
			"event":    "prediction_error",
			"trace_id": traceID,
			"error":    err.Error(),
		}).Error("Prediction failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"detail":   "Prediction failed",
			"trace_id": traceID,
		})
		return
	}

	latency := float64(time.Since(start).Microseconds()) / 1000.0

	log.WithFields(log.Fields{
		"event":      "prediction",
		"trace_id":   traceID,
		"species":    prediction.Species,
		"latency_ms": latency,
	}).Info("Prediction served")

	c.Header("X-Process-Time-ms", strconv.FormatFloat(latency, 'f', 2, 64))
	c.JSON(http.StatusOK, PredictResponse{
		PredictedSpecies: prediction.Species,
		Confidence:       prediction.Confidence,
		Probabilities:    prediction.Probabilities,
		LatencyMs:        latency,
		TraceID:          traceID,
	})
}

// Index lists the available routes and the loaded model's classes, in
// place of generated API docs.
func (h *Handler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to the Iris Classifier API!",
		"routes":  []string{"/predict", "/live_check", "/ready_check", "/health"},
		"classes": h.meta.Classes,
	})
}

// bindingDetail turns a binding failure into a message naming the
// offending field, instead of leaking validator internals.
func bindingDetail(err error) string {
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		fieldErr := errs[0]
		name, ok := jsonFieldNames[fieldErr.Field()]
		if !ok {
			name = fieldErr.Field()
		}
		switch fieldErr.Tag() {
		case "required":
			return "field " + name + " is required"
		default:
			return "field " + name + " must be a positive number"
		}
	}
	return "request body must be JSON with four numeric measurements"
}
