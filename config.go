package stripemap

import (
	"math"
	"runtime"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// defaultInitialBuckets is the bucket count of a new table unless
	// WithInitialBuckets says otherwise. It is raised to the stripe count
	// when there are more stripes than buckets.
	defaultInitialBuckets = 16
	// minInitialBuckets is the smallest bucket array a table starts with.
	minInitialBuckets = 2
	// stripesPerProc scales the default stripe count with GOMAXPROCS.
	stripesPerProc = 4
	// maxDefaultStripes caps the default stripe count.
	maxDefaultStripes = 1024
	// maxStripes is the largest stripe count accepted by WithStripes.
	maxStripes = 1 << 16
	// defaultMaxLoadFactor is the load factor above which an insert
	// triggers a rehash.
	defaultMaxLoadFactor = 1.0
)

// ErrInvalidConfig is the cause of every error returned by New.
var ErrInvalidConfig = errors.New("stripemap: invalid config")

// Config holds the construction parameters of a Table. Use the With*
// options to change them.
type Config struct {
	// InitialBuckets is rounded up to a power of two, at least 2 and at
	// least Stripes.
	InitialBuckets int
	// Stripes is rounded up to a power of two and fixed for the table's
	// lifetime.
	Stripes int
	// MaxLoadFactor must be positive and finite.
	MaxLoadFactor float32
	// RehashDisabled starts the table with automatic rehash turned off.
	RehashDisabled bool
	// Logger receives rehash and clear events at debug level.
	Logger logrus.FieldLogger
}

// Option configures a Table.
type Option func(*Config)

// WithInitialBuckets sets the number of buckets the table starts with.
func WithInitialBuckets(n int) Option {
	return func(c *Config) {
		c.InitialBuckets = n
	}
}

// WithStripes sets the number of stripe locks.
func WithStripes(n int) Option {
	return func(c *Config) {
		c.Stripes = n
	}
}

// WithMaxLoadFactor sets the elements-per-bucket ratio that triggers a
// rehash.
func WithMaxLoadFactor(f float32) Option {
	return func(c *Config) {
		c.MaxLoadFactor = f
	}
}

// WithRehashDisabled creates the table with automatic rehash disabled,
// see Table.EnableRehash.
func WithRehashDisabled() Option {
	return func(c *Config) {
		c.RehashDisabled = true
	}
}

// WithLogger sets the logger used for rehash and clear events.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

func defaultConfig() Config {
	return Config{
		InitialBuckets: defaultInitialBuckets,
		Stripes:        min(nextPowOf2(runtime.GOMAXPROCS(0)*stripesPerProc), maxDefaultStripes),
		MaxLoadFactor:  defaultMaxLoadFactor,
		Logger:         logrus.StandardLogger(),
	}
}

// normalize checks c and rounds the bucket and stripe counts to powers of
// two.
func (c *Config) normalize() error {
	if c.InitialBuckets <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "initial buckets must be positive, got %d", c.InitialBuckets)
	}
	if c.Stripes <= 0 || c.Stripes > maxStripes {
		return errors.Wrapf(ErrInvalidConfig, "stripes must be in [1, %d], got %d", maxStripes, c.Stripes)
	}
	f := float64(c.MaxLoadFactor)
	if !(f > 0) || math.IsInf(f, 0) {
		return errors.Wrapf(ErrInvalidConfig, "max load factor must be positive and finite, got %v", c.MaxLoadFactor)
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	c.Stripes = nextPowOf2(c.Stripes)
	c.InitialBuckets = max(nextPowOf2(c.InitialBuckets), minInitialBuckets, c.Stripes)
	return nil
}
