package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/faceattr/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8000")
				convey.So(cfg.ChipSize, convey.ShouldEqual, 300)
				convey.So(cfg.ChipPadding, convey.ShouldEqual, 0.25)
				convey.So(cfg.MaxUploadBytes, convey.ShouldEqual, config.DefaultMaxUploadBytes)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("FACEATTR_ADDR", ":8080")
			_ = os.Setenv("FACEATTR_ALBUMS_DIR", "/var/lib/faceattr/albums")
			_ = os.Setenv("FACEATTR_DEVICE", "cpu")
			_ = os.Setenv("FACEATTR_CHIP_PADDING", "0.3")
			_ = os.Setenv("FACEATTR_MAX_UPLOAD_BYTES", "2048")
			_ = os.Setenv("FACEATTR_S3_BUCKET", "faces")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.AlbumsDir, convey.ShouldEqual, "/var/lib/faceattr/albums")
				convey.So(cfg.Device, convey.ShouldEqual, "cpu")
				convey.So(cfg.ChipPadding, convey.ShouldEqual, 0.3)
				convey.So(cfg.MaxUploadBytes, convey.ShouldEqual, int64(2048))
				convey.So(cfg.S3Bucket, convey.ShouldEqual, "faces")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
# local overrides
addr: ":9090"
albums_dir: "/tmp/albums"
model_path: "/opt/models/fairface.onnx"
dlib_models_dir: "/opt/models/dlib"
chip_size: 256
log_format: json
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("FACEATTR_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.AlbumsDir, convey.ShouldEqual, "/tmp/albums")
				convey.So(cfg.ModelPath, convey.ShouldEqual, "/opt/models/fairface.onnx")
				convey.So(cfg.DlibModelsDir, convey.ShouldEqual, "/opt/models/dlib")
				convey.So(cfg.ChipSize, convey.ShouldEqual, 256)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
			})

			convey.Convey("And it should merge with defaults for missing fields", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.InputSize, convey.ShouldEqual, 224)
				convey.So(cfg.ChipPadding, convey.ShouldEqual, 0.25)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
chip_size: 256
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("FACEATTR_CONFIG", tmpFile)
			_ = os.Setenv("FACEATTR_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.ChipSize, convey.ShouldEqual, 256)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("FACEATTR_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("FACEATTR_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("FACEATTR_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an unknown device", func() {
			_ = os.Setenv("FACEATTR_DEVICE", "tpu")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("FACEATTR_CHIP_SIZE", "not_a_number")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.
func clearConfigEnvVars() {
	envVars := []string{
		"FACEATTR_CONFIG",
		"FACEATTR_ADDR",
		"FACEATTR_ALBUMS_DIR",
		"FACEATTR_DEVICE",
		"FACEATTR_CHIP_SIZE",
		"FACEATTR_CHIP_PADDING",
		"FACEATTR_MAX_UPLOAD_BYTES",
		"FACEATTR_S3_BUCKET",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "faceattr-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
