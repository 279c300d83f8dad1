package tree

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spacemeshos/go-arenatree/arena"
)

// Config is the configuration of a Tree.
type Config struct {
	// InitialCapacity is the number of slots in the head bucket.
	InitialCapacity int `mapstructure:"initial-capacity"`
	// MinBucketCapacity is the smallest bucket added when the tree grows.
	MinBucketCapacity int `mapstructure:"min-bucket-capacity"`
	// Multi allows several elements with equal keys.
	Multi bool `mapstructure:"multi"`
}

// DefaultConfig returns the default configuration of a Tree.
func DefaultConfig() Config {
	return Config{
		InitialCapacity:   0,
		MinBucketCapacity: arena.DefaultMinBucketCapacity,
	}
}

// Validate checks the configuration.
func (cfg Config) Validate() error {
	var errs []error
	if cfg.InitialCapacity < 0 || cfg.InitialCapacity > arena.MaxSlots {
		errs = append(errs, fmt.Errorf("initial-capacity %d out of range", cfg.InitialCapacity))
	}
	if cfg.MinBucketCapacity <= 0 {
		errs = append(errs, fmt.Errorf("min-bucket-capacity must be positive, got %d", cfg.MinBucketCapacity))
	}
	return errors.Join(errs...)
}

type settings struct {
	cfg    Config
	logger *zap.Logger
}

// Opt modifies the construction of a Tree.
type Opt func(*settings)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Opt {
	return func(s *settings) {
		s.cfg = cfg
	}
}

// WithLogger specifies the logger for the Tree.
func WithLogger(logger *zap.Logger) Opt {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithMulti allows elements with equal keys. They are kept in insertion
// order.
func WithMulti() Opt {
	return func(s *settings) {
		s.cfg.Multi = true
	}
}

// WithCapacity reserves room for n elements in the head bucket.
func WithCapacity(n int) Opt {
	return func(s *settings) {
		s.cfg.InitialCapacity = n
	}
}

// WithMinBucketCapacity sets the smallest bucket added when the tree grows.
func WithMinBucketCapacity(n int) Opt {
	return func(s *settings) {
		s.cfg.MinBucketCapacity = n
	}
}

func newSettings(opts []Opt) settings {
	s := settings{
		cfg:    DefaultConfig(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	if err := s.cfg.Validate(); err != nil {
		panic("BUG: bad tree config: " + err.Error())
	}
	return s
}
