package idseq

// Durable counter record layout.
const (
	// DefaultCounterKey is the store key under which the durable counter lives.
	DefaultCounterKey = "idseq.next"

	// CounterRecordSize is the fixed size in bytes of the durable counter
	// record: a single big-endian uint32.
	CounterRecordSize = 4

	// FirstID is the identifier a missing counter record implies. 0 is
	// reserved as "unset".
	FirstID uint32 = 1
)

// Batch sizing defaults.
const (
	DefaultBatchSize         uint32 = 10_000
	DefaultMinBatchSize      uint32 = 1_000
	DefaultMaxBatchSize      uint32 = 1_000_000
	DefaultPrefetchThreshold uint32 = 1_000
)

// ExhaustionHeadroom is the margin below the 32-bit ceiling at which the
// allocator reports itself critical.
const ExhaustionHeadroom uint32 = 1_000_000

// DefaultConfigFileName is the JSON settings file written next to the store.
const DefaultConfigFileName = "idseq.json"

// Log file defaults
const (
	DefaultAppDir        = ".idseq"
	DefaultLogDir        = "logs"
	DefaultLogFileName   = "idseq.log"
	DefaultLogMaxSize    = 100
	DefaultLogMaxBackups = 3
	DefaultLogLevel      = "info"
)
