// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config populated with defaults.
// - Load(ctx) layers an optional YAML file and FACEATTR_ env vars on top.
// - Validate wraps every failure with ErrInvalidConfig.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultMaxUploadBytes caps analyze-face uploads at 10 MiB.
const DefaultMaxUploadBytes = 10 << 20

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`
	// Addr configures the HTTP listen address, e.g. ":8000".
	Addr string `koanf:"addr"`

	// AlbumsDir is where aligned faces and saved analyses are written.
	AlbumsDir string `koanf:"albums_dir"`
	// MaxUploadBytes bounds the accepted upload size.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	// ModelPath points at the ONNX export of the 18-output classifier.
	ModelPath string `koanf:"model_path"`
	// DlibModelsDir holds the dlib detector and 5-point landmark models.
	DlibModelsDir string `koanf:"dlib_models_dir"`
	// DetectorUpsample is how many times the image is doubled before face
	// detection; each step finds smaller faces at roughly 4x the cost.
	DetectorUpsample int `koanf:"detector_upsample"`
	// ONNXLibraryPath overrides the onnxruntime shared library location.
	ONNXLibraryPath string `koanf:"onnx_library_path"`
	// Device is auto, cuda or cpu.
	Device string `koanf:"device"`
	// InputSize is the classifier's square input edge in pixels.
	InputSize int `koanf:"input_size"`

	// ChipSize is the edge of the aligned face crop.
	ChipSize int `koanf:"chip_size"`
	// ChipPadding is the margin around the landmark template, as a fraction.
	ChipPadding float64 `koanf:"chip_padding"`

	// S3Bucket enables mirroring of archived files when non-empty.
	S3Bucket string `koanf:"s3_bucket"`
	// S3Prefix is prepended to object keys.
	S3Prefix string `koanf:"s3_prefix"`
	// S3Region overrides the region resolved by the AWS SDK.
	S3Region string `koanf:"s3_region"`
	// S3Endpoint targets an S3-compatible store (R2, MinIO).
	S3Endpoint string `koanf:"s3_endpoint"`
	// S3AccessKeyID and S3SecretAccessKey pin static credentials; when empty
	// the default AWS credential chain is used.
	S3AccessKeyID     string `koanf:"s3_access_key_id"`
	S3SecretAccessKey string `koanf:"s3_secret_access_key"`
	// S3QueueSize bounds uploads waiting for a mirror worker.
	S3QueueSize int `koanf:"s3_queue_size"`
	// S3Workers is the number of concurrent mirror uploads.
	S3Workers int `koanf:"s3_workers"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":8000",
		AlbumsDir:        "albums",
		MaxUploadBytes:   DefaultMaxUploadBytes,
		ModelPath:        filepath.Join("models", "fairface_alldata_20191111.onnx"),
		DlibModelsDir:    filepath.Join("models", "dlib"),
		DetectorUpsample: 1,
		Device:           "auto",
		InputSize:        224,
		ChipSize:         300,
		ChipPadding:      0.25,
		S3QueueSize:      256,
		S3Workers:        2,
	}
}

// Validate checks that the configuration can be used to start the service.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.AlbumsDir) == "":
		return fmt.Errorf("%w: albums_dir must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.ModelPath) == "":
		return fmt.Errorf("%w: model_path must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.DlibModelsDir) == "":
		return fmt.Errorf("%w: dlib_models_dir must not be empty", ErrInvalidConfig)
	case c.MaxUploadBytes <= 0:
		return fmt.Errorf("%w: max_upload_bytes must be positive", ErrInvalidConfig)
	case c.DetectorUpsample < 0 || c.DetectorUpsample > 3:
		return fmt.Errorf("%w: detector_upsample must be between 0 and 3", ErrInvalidConfig)
	case c.InputSize <= 0:
		return fmt.Errorf("%w: input_size must be positive", ErrInvalidConfig)
	case c.ChipSize <= 0:
		return fmt.Errorf("%w: chip_size must be positive", ErrInvalidConfig)
	case c.ChipPadding < 0:
		return fmt.Errorf("%w: chip_padding must not be negative", ErrInvalidConfig)
	case c.S3QueueSize <= 0:
		return fmt.Errorf("%w: s3_queue_size must be positive", ErrInvalidConfig)
	case c.S3Workers <= 0:
		return fmt.Errorf("%w: s3_workers must be positive", ErrInvalidConfig)
	}

	if (c.S3AccessKeyID == "") != (c.S3SecretAccessKey == "") {
		return fmt.Errorf("%w: s3_access_key_id and s3_secret_access_key must be set together", ErrInvalidConfig)
	}

	switch strings.ToLower(c.Device) {
	case "auto", "cuda", "cpu":
	default:
		return fmt.Errorf("%w: device must be auto, cuda or cpu, got %q", ErrInvalidConfig, c.Device)
	}
	return nil
}
