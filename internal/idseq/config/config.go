package config

import (
	"path/filepath"
	"time"

	"github.com/julianstephens/go-utils/helpers"
	"github.com/julianstephens/go-utils/jsonutil"

	"github.com/julianstephens/idseq/internal/idseq"
)

// Config captures the allocator settings fixed at construction. Only the
// effective batch size changes afterwards, and only through the dynamic
// batch sizer.
type Config struct {
	// BatchSize is the number of identifiers reserved per store write. When
	// dynamic sizing is enabled this is the starting size.
	BatchSize uint32 `json:"batch_size"`

	// MinBatchSize and MaxBatchSize bound the dynamic batch sizer.
	MinBatchSize uint32 `json:"min_batch_size"`
	MaxBatchSize uint32 `json:"max_batch_size"`

	// PrefetchThreshold is the remaining-capacity level at which a background
	// refill is triggered.
	PrefetchThreshold uint32 `json:"prefetch_threshold"`

	// EnableDynamicBatch turns utilization-driven batch resizing on.
	EnableDynamicBatch bool `json:"enable_dynamic_batch"`

	// CounterKey is the store key holding the durable counter.
	CounterKey string `json:"counter_key"`

	// Backend selects the durable store implementation: BackendFile or
	// BackendLog.
	Backend string `json:"backend"`

	// StrictSync forces a durability flush after every store write.
	StrictSync bool `json:"strict_sync"`

	// AcquireLockTimeout bounds how long a caller waits for the allocation
	// lock. 0 waits indefinitely.
	AcquireLockTimeout time.Duration `json:"acquire_lock_timeout"`
}

// Store backends selectable through Config.Backend.
const (
	BackendFile = "file"
	BackendLog  = "log"
)

// Default returns the stock configuration.
func Default() Config {
	return Config{
		BatchSize:          idseq.DefaultBatchSize,
		MinBatchSize:       idseq.DefaultMinBatchSize,
		MaxBatchSize:       idseq.DefaultMaxBatchSize,
		PrefetchThreshold:  idseq.DefaultPrefetchThreshold,
		EnableDynamicBatch: true,
		CounterKey:         idseq.DefaultCounterKey,
		Backend:            BackendFile,
		StrictSync:         true,
	}
}

// Validate checks the sizing invariants: all sizes positive and
// min <= batch <= max.
func (c Config) Validate() error {
	if c.BatchSize == 0 || c.MinBatchSize == 0 || c.MaxBatchSize == 0 {
		return &ConfigError{Kind: ConfigErrorKindInvalid, Err: errZeroBatchSize}
	}
	if c.MinBatchSize > c.BatchSize || c.BatchSize > c.MaxBatchSize {
		return &ConfigError{Kind: ConfigErrorKindInvalid, Err: errBatchBounds}
	}
	if c.PrefetchThreshold == 0 {
		return &ConfigError{Kind: ConfigErrorKindInvalid, Err: errZeroThreshold}
	}
	if c.CounterKey == "" {
		return &ConfigError{Kind: ConfigErrorKindInvalid, Err: errEmptyCounterKey}
	}
	if c.Backend != "" && c.Backend != BackendFile && c.Backend != BackendLog {
		return &ConfigError{Kind: ConfigErrorKindInvalid, Err: errUnknownBackend}
	}
	return nil
}

func pathFor(dir string) string {
	return filepath.Join(dir, idseq.DefaultConfigFileName)
}

// Init writes a default config file under dir. It fails if one already
// exists.
func Init(dir string) (Config, error) {
	p := pathFor(dir)
	if helpers.Exists(p) {
		return Config{}, &ConfigError{Kind: ConfigErrorKindAlreadyExists, Path: p}
	}

	c := Default()
	if err := c.Save(dir); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Load reads and validates the config file under dir.
func Load(dir string) (Config, error) {
	p := pathFor(dir)
	if !helpers.Exists(p) {
		return Config{}, &ConfigError{Kind: ConfigErrorKindNotFound, Path: p}
	}

	var c Config
	if err := jsonutil.ReadFileStrict(p, &c); err != nil {
		return Config{}, &ConfigError{Kind: ConfigErrorKindDecode, Path: p, Err: err}
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Save validates and atomically writes the config file under dir.
func (c Config) Save(dir string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	data, err := jsonutil.Marshal(c)
	if err != nil {
		return &ConfigError{Kind: ConfigErrorKindEncode, Err: err}
	}

	p := pathFor(dir)
	if err := helpers.AtomicFileWrite(p, data); err != nil {
		return &ConfigError{Kind: ConfigErrorKindWrite, Path: p, Err: err}
	}
	return nil
}
