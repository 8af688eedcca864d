package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/irislab/iris-api/internal/artifact"
	"github.com/irislab/iris-api/internal/config"
	"github.com/irislab/iris-api/internal/handlers"
	"github.com/irislab/iris-api/internal/model"
	"github.com/irislab/iris-api/internal/telemetry"
)

func main() {
	conf := config.New()

	log.SetFormatter(&log.JSONFormatter{
		FieldMap: log.FieldMap{
			log.FieldKeyLevel: "severity",
			log.FieldKeyMsg:   "message",
			log.FieldKeyTime:  "timestamp",
		},
	})

	if conf.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	// A missing collector must never keep the service from serving.
	shutdownTracing, err := telemetry.Setup(ctx, conf.OTLPEndpoint, "iris-api")
	if err != nil {
		log.WithField("error", err.Error()).Warn("Tracing disabled, continuing without it")
		shutdownTracing = func(context.Context) error { return nil }
	}

	modelPath, metadataPath, err := locateArtifacts(ctx, conf)
	if err != nil {
		log.Fatalf("Failed to locate model artifacts: %v", err)
	}

	log.WithFields(log.Fields{
		"event": "startup",
		"model": modelPath,
	}).Info("Loading model")

	classifier, err := model.NewServer(modelPath, metadataPath)
	if err != nil {
		log.Fatalf("Failed to initialize model server: %v", err)
	}
	defer classifier.Close()

	handler := handlers.NewHandler(classifier, classifier.Metadata())
	handler.Health().SetReady(true)

	log.WithFields(log.Fields{
		"event":   "startup",
		"classes": classifier.Metadata().Classes,
	}).Info("Model loaded successfully")

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", conf.Host, conf.Port),
		Handler: handlers.Routes(handler),
	}

	go func() {
		log.WithFields(log.Fields{
			"event": "startup",
			"addr":  server.Addr,
		}).Info("Server starting")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	handler.Health().SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithField("error", err.Error()).Error("Forced shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.WithField("error", err.Error()).Warn("Trace exporter did not flush cleanly")
	}
}

// locateArtifacts returns local paths for the model and its sidecar,
// pulling both from object storage first when a bucket is configured.
func locateArtifacts(ctx context.Context, conf *config.Config) (string, string, error) {
	if conf.ModelBucket == "" {
		return conf.ModelPath, conf.MetadataPath, nil
	}

	store, err := artifact.NewMinioStore(
		conf.MinioEndpoint,
		conf.MinioAccessKey,
		conf.MinioSecretKey,
		conf.ModelBucket,
		conf.MinioSecure,
	)
	if err != nil {
		return "", "", err
	}

	modelPath, err := artifact.Materialize(ctx, store, conf.ModelKey, conf.CacheDir)
	if err != nil {
		return "", "", err
	}
	metadataPath, err := artifact.Materialize(ctx, store, conf.MetadataKey, conf.CacheDir)
	if err != nil {
		return "", "", err
	}
	return modelPath, metadataPath, nil
}
