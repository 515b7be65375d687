package config_test

import (
	"errors"
	"testing"

	"github.com/okian/faceattr/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8000")
			convey.So(cfg.AlbumsDir, convey.ShouldEqual, "albums")
			convey.So(cfg.MaxUploadBytes, convey.ShouldEqual, int64(10*1024*1024))
			convey.So(cfg.Device, convey.ShouldEqual, "auto")
			convey.So(cfg.InputSize, convey.ShouldEqual, 224)
			convey.So(cfg.ChipSize, convey.ShouldEqual, 300)
			convey.So(cfg.ChipPadding, convey.ShouldEqual, 0.25)
			convey.So(cfg.S3Bucket, convey.ShouldBeEmpty)
			convey.So(cfg.S3QueueSize, convey.ShouldEqual, 256)
			convey.So(cfg.S3Workers, convey.ShouldEqual, 2)
			convey.So(cfg.DetectorUpsample, convey.ShouldEqual, 1)
		})

		convey.Convey("And the defaults should validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one invalid field", t, func() {
		cases := map[string]func(*config.Config){
			"addr must not be empty":            func(c *config.Config) { c.Addr = " " },
			"albums_dir must not be empty":      func(c *config.Config) { c.AlbumsDir = "" },
			"model_path must not be empty":      func(c *config.Config) { c.ModelPath = "" },
			"dlib_models_dir must not be empty": func(c *config.Config) { c.DlibModelsDir = "" },
			"max_upload_bytes must be positive": func(c *config.Config) { c.MaxUploadBytes = 0 },
			"input_size must be positive":       func(c *config.Config) { c.InputSize = -1 },
			"chip_size must be positive":        func(c *config.Config) { c.ChipSize = 0 },
			"chip_padding must not be negative": func(c *config.Config) { c.ChipPadding = -0.1 },
			"device must be auto, cuda or cpu":  func(c *config.Config) { c.Device = "tpu" },
			"must be set together":              func(c *config.Config) { c.S3AccessKeyID = "AKIA" },
			"s3_queue_size must be positive":    func(c *config.Config) { c.S3QueueSize = 0 },
			"s3_workers must be positive":       func(c *config.Config) { c.S3Workers = -2 },
			"detector_upsample must be between": func(c *config.Config) { c.DetectorUpsample = 4 },
		}

		for want, mutate := range cases {
			cfg := config.New()
			mutate(cfg)
			err := cfg.Validate()

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, want)
		}
	})

	convey.Convey("Given a device in upper case", t, func() {
		cfg := config.New()
		cfg.Device = "CUDA"

		convey.Convey("Then it should still validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
