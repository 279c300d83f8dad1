// Package config contains the configuration of the arenatree tools.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/spacemeshos/go-arenatree/tree"
)

const defaultConfigFileName = "./arenatree.toml"

// Config defines the top level configuration of the arenatree tools.
type Config struct {
	ConfigFile string        `mapstructure:"config"`
	Tree       tree.Config   `mapstructure:"tree"`
	Churn      ChurnConfig   `mapstructure:"churn"`
	Metrics    MetricsConfig `mapstructure:"metrics"`
	LOGGING    LoggerConfig  `mapstructure:"logging"`
}

// ChurnConfig describes a randomized workload run against a tree and its
// clones.
type ChurnConfig struct {
	Ops  int    `mapstructure:"ops"`
	Keys int    `mapstructure:"keys"`
	Seed uint64 `mapstructure:"seed"`
	// Percentages of the operations, the rest are lookups through handles.
	InsertRatio int `mapstructure:"insert-ratio"`
	EraseRatio  int `mapstructure:"erase-ratio"`
	CloneRatio  int `mapstructure:"clone-ratio"`
	// Snapshots is the number of clones kept alive at the same time.
	Snapshots   int           `mapstructure:"snapshots"`
	VerifyEvery int           `mapstructure:"verify-every"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Report      string        `mapstructure:"report"`
	HandlesFile string        `mapstructure:"handles-file"`
}

// MetricsConfig configures how metrics leave the process.
type MetricsConfig struct {
	Collect     bool              `mapstructure:"collect-metrics"`
	Port        int               `mapstructure:"metrics-port"`
	PushURL     string            `mapstructure:"metrics-push-url"`
	PushJob     string            `mapstructure:"metrics-push-job"`
	PushHeaders map[string]string `mapstructure:"metrics-push-headers"`
}

// DefaultConfig returns the default configuration of the arenatree tools.
func DefaultConfig() Config {
	return Config{
		ConfigFile: defaultConfigFileName,
		Tree:       tree.DefaultConfig(),
		Churn:      DefaultChurnConfig(),
		Metrics: MetricsConfig{
			Port:    1010,
			PushJob: "arenatree",
		},
		LOGGING: defaultLoggingConfig(),
	}
}

// DefaultChurnConfig returns the default workload.
func DefaultChurnConfig() ChurnConfig {
	return ChurnConfig{
		Ops:         100_000,
		Keys:        4096,
		Seed:        1,
		InsertRatio: 50,
		EraseRatio:  30,
		CloneRatio:  2,
		Snapshots:   4,
		VerifyEvery: 10_000,
		Timeout:     5 * time.Minute,
	}
}

// Validate checks the configuration.
func (cfg *Config) Validate() error {
	errs := []error{cfg.Tree.Validate()}
	c := cfg.Churn
	if c.Ops < 0 {
		errs = append(errs, fmt.Errorf("churn ops must not be negative, got %d", c.Ops))
	}
	if c.Keys <= 0 {
		errs = append(errs, fmt.Errorf("churn keys must be positive, got %d", c.Keys))
	}
	if c.InsertRatio < 0 || c.EraseRatio < 0 || c.CloneRatio < 0 ||
		c.InsertRatio+c.EraseRatio+c.CloneRatio > 100 {
		errs = append(errs, fmt.Errorf("bad churn ratios %d/%d/%d", c.InsertRatio, c.EraseRatio, c.CloneRatio))
	}
	if c.Snapshots < 0 {
		errs = append(errs, fmt.Errorf("churn snapshots must not be negative, got %d", c.Snapshots))
	}
	if cfg.Metrics.Collect && (cfg.Metrics.Port <= 0 || cfg.Metrics.Port > 65535) {
		errs = append(errs, fmt.Errorf("bad metrics port %d", cfg.Metrics.Port))
	}
	return errors.Join(errs...)
}

// LoadConfig reads the config file into vip. A missing default file is not
// an error.
func LoadConfig(fileLocation string, vip *viper.Viper) error {
	if fileLocation == "" {
		return nil
	}
	vip.SetConfigFile(fileLocation)
	if err := vip.ReadInConfig(); err != nil {
		if fileLocation == defaultConfigFileName && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file %s: %w", fileLocation, err)
	}
	return nil
}

// DecodeHook converts the string forms used in config files and flags.
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// Unmarshal decodes the values held by vip on top of conf.
func Unmarshal(vip *viper.Viper, conf *Config) error {
	if err := vip.Unmarshal(conf, viper.DecodeHook(DecodeHook())); err != nil {
		return fmt.Errorf("unmarshal viper: %w", err)
	}
	return nil
}
