package poitrace

import "time"

// Clock returns the current time. TraceBuilder uses it for every
// timestamp it stamps; tests substitute a deterministic Clock so golden
// bundles and hashes are reproducible.
type Clock func() time.Time

// BuilderOption configures a TraceBuilder at construction time, following
// the teacher's pervasive functional-options idiom (SpanOption,
// ClientOptions in tracing.go).
type BuilderOption func(*builderConfig)

type builderConfig struct {
	clock         Clock
	idGen         IDGenerator
	schemaVersion string
}

func defaultBuilderConfig() *builderConfig {
	return &builderConfig{
		clock:         time.Now,
		idGen:         DefaultIDGenerator,
		schemaVersion: SchemaVersion,
	}
}

// WithClock overrides the clock TraceBuilder uses for StartedAt/EndedAt/
// event timestamps. Intended for deterministic tests.
func WithClock(clock Clock) BuilderOption {
	return func(c *builderConfig) { c.clock = clock }
}

// WithIDGenerator overrides how TraceBuilder mints RunID/SpanID/EventID
// values. Intended for deterministic tests.
func WithIDGenerator(gen IDGenerator) BuilderOption {
	return func(c *builderConfig) { c.idGen = gen }
}

// WithSchemaVersion overrides the schema version stamped into the Run and
// folded into rootHash. Implementations that need to produce bundles
// under an older/newer schema version use this instead of a global.
func WithSchemaVersion(version string) BuilderOption {
	return func(c *builderConfig) { c.schemaVersion = version }
}
