package config

import (
	"os"
	"strconv"

	flag "github.com/spf13/pflag"
)

// Config holds everything the server binary needs. Flags win over
// environment variables; environment variables win over defaults, so the
// container image can be configured either way.
type Config struct {
	Host        string
	Port        int
	ReleaseMode bool

	ModelPath    string
	MetadataPath string

	// When ModelBucket is set the artifacts are pulled from object
	// storage into CacheDir before the session is opened.
	ModelBucket    string
	ModelKey       string
	MetadataKey    string
	CacheDir       string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioSecure    bool

	// OTLP collector endpoint. Empty means tracing stays a no-op.
	OTLPEndpoint string
}

// New parses CLI flags into a Config.
func New() *Config {
	conf := &Config{}

	flag.StringVar(&conf.Host, "host", envOr("HOST", "0.0.0.0"), "Address the server listens on")
	flag.IntVar(&conf.Port, "port", envOrInt("PORT", 8080), "Port the server listens on")
	flag.BoolVar(&conf.ReleaseMode, "release", envOrBool("RELEASE_MODE", false), "Run gin in release mode")

	flag.StringVar(&conf.ModelPath, "model", envOr("MODEL_PATH", "models/iris.onnx"), "Path to the ONNX model artifact")
	flag.StringVar(&conf.MetadataPath, "metadata", envOr("METADATA_PATH", "models/iris_metadata.json"), "Path to the model metadata sidecar")

	flag.StringVar(&conf.ModelBucket, "model-bucket", envOr("MODEL_BUCKET", ""), "Object storage bucket holding the artifacts (leave blank to load from disk)")
	flag.StringVar(&conf.ModelKey, "model-key", envOr("MODEL_KEY", "iris.onnx"), "Object key of the model artifact")
	flag.StringVar(&conf.MetadataKey, "metadata-key", envOr("METADATA_KEY", "iris_metadata.json"), "Object key of the metadata sidecar")
	flag.StringVar(&conf.CacheDir, "cache-dir", envOr("CACHE_DIR", "/tmp/iris-api"), "Directory fetched artifacts are written to")
	flag.StringVar(&conf.MinioEndpoint, "minio-endpoint", envOr("MINIO_HOST", "localhost:9000"), "Object storage endpoint")
	flag.StringVar(&conf.MinioAccessKey, "minio-access-key", envOr("MINIO_ACCESS_KEY", "minioadmin"), "Object storage access key")
	flag.StringVar(&conf.MinioSecretKey, "minio-secret-key", envOr("MINIO_SECRET_KEY", "minioadmin"), "Object storage secret key")
	flag.BoolVar(&conf.MinioSecure, "minio-secure", envOrBool("MINIO_SECURE", false), "Use TLS for object storage")

	flag.StringVar(&conf.OTLPEndpoint, "otlp-endpoint", envOr("OTEL_EXPORTER_OTLP_ENDPOINT", ""), "OTLP trace collector endpoint (leave blank to disable tracing)")

	flag.Parse()
	return conf
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envOrBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
