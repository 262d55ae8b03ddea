package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"github.com/vkngwrapper/compute/pushconst"
)

// MaxElements bounds the storage buffer so a single dispatch stays within
// the minimum maxComputeWorkGroupCount guaranteed by Vulkan (65535 groups of 64).
const MaxElements = 65535 * 64

// Config represents the sample configuration
type Config struct {
	Device  DeviceConfig  `mapstructure:"device"`
	Kernel  KernelConfig  `mapstructure:"kernel"`
	Push    PushConfig    `mapstructure:"push"`
	Verify  VerifyConfig  `mapstructure:"verify"`
	Logging LoggingConfig `mapstructure:"logging"`
	Runs    int           `mapstructure:"runs"`
}

type DeviceConfig struct {
	// Index selects a physical device; -1 picks the first one with a compute queue.
	Index      int  `mapstructure:"index"`
	Validation bool `mapstructure:"validation"`
}

type KernelConfig struct {
	SPIRVPath string `mapstructure:"spirv_path"`
	Elements  int    `mapstructure:"elements"`
}

type PushConfig struct {
	Multiple int32   `mapstructure:"multiple"`
	Addend   float32 `mapstructure:"addend"`
	Enable   bool    `mapstructure:"enable"`
}

type VerifyConfig struct {
	Workers     int `mapstructure:"workers"`
	MaxReported int `mapstructure:"max_reported"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	File    string `mapstructure:"file"`
	Console bool   `mapstructure:"console"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Index:      -1,
			Validation: false,
		},
		Kernel: KernelConfig{
			SPIRVPath: "",
			Elements:  65536,
		},
		Push: PushConfig{
			Multiple: 1,
			Addend:   1,
			Enable:   true,
		},
		Verify: VerifyConfig{
			Workers:     0,
			MaxReported: 8,
		},
		Logging: LoggingConfig{
			Level:   "info",
			File:    "",
			Console: true,
		},
		Runs: 1,
	}
}

// Load loads configuration from file, environment, and defaults
func Load(cfgFile string) (*Config, error) {
	return LoadWith(viper.New(), cfgFile)
}

// LoadWith loads configuration into v, which may already carry bound flags.
func LoadWith(v *viper.Viper, cfgFile string) (*Config, error) {
	cfg := DefaultConfig()
	setDefaults(v, cfg)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".pushconst"))
		}
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("PUSHCONST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "reading config")
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}

	cfg.Kernel.SPIRVPath = expandPath(cfg.Kernel.SPIRVPath)
	cfg.Logging.File = expandPath(cfg.Logging.File)

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating config")
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Device.Index < -1 {
		return errors.New("device.index must be -1 or a physical device index")
	}

	if c.Kernel.Elements < 1 || c.Kernel.Elements > MaxElements {
		return errors.Newf("kernel.elements must be between 1 and %d", MaxElements)
	}

	addend := float64(c.Push.Addend)
	if math.IsNaN(addend) || math.IsInf(addend, 0) || addend < 0 {
		return errors.New("push.addend must be a finite, non-negative number")
	}
	if addend >= pushconst.AddendLimit {
		return errors.Newf("push.addend must be below %d", uint64(pushconst.AddendLimit))
	}

	if c.Runs < 1 {
		return errors.New("runs must be at least 1")
	}

	if c.Verify.Workers < 0 {
		return errors.New("verify.workers must not be negative")
	}

	if c.Verify.MaxReported < 0 {
		return errors.New("verify.max_reported must not be negative")
	}

	validLevels := []string{"trace", "debug", "info", "warn", "error"}
	if !contains(validLevels, c.Logging.Level) {
		return errors.Newf("logging.level must be one of: %v", validLevels)
	}

	return nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("device.index", cfg.Device.Index)
	v.SetDefault("device.validation", cfg.Device.Validation)

	v.SetDefault("kernel.spirv_path", cfg.Kernel.SPIRVPath)
	v.SetDefault("kernel.elements", cfg.Kernel.Elements)

	v.SetDefault("push.multiple", cfg.Push.Multiple)
	v.SetDefault("push.addend", cfg.Push.Addend)
	v.SetDefault("push.enable", cfg.Push.Enable)

	v.SetDefault("verify.workers", cfg.Verify.Workers)
	v.SetDefault("verify.max_reported", cfg.Verify.MaxReported)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.console", cfg.Logging.Console)

	v.SetDefault("runs", cfg.Runs)
}
