package datapipe

import (
	"fmt"

	"github.com/samber/lo"
)

// opConfig gathers every knob an operator constructor may accept. Each
// operator declares the option names it understands; supplying any other
// option to it is a validation error.
type opConfig struct {
	selector           *Selector
	parallelism        int
	warnOnly           bool
	dropRemainder      bool
	strict             bool
	enabled            bool
	names              []string
	flatten            bool
	disableParallelism bool
}

// Option configures an operator at construction time. Options are produced
// by the With* constructors; defaults follow the reference behavior
// (parallelism 1, strict shuffling, nothing tolerated, nothing dropped).
type Option struct {
	name  string
	err   error
	apply func(*opConfig)
}

// WithSelector restricts Map or BucketByLength to the sub-elements addressed
// by the given selector expression, such as "audio.tokens" or
// "source,target". A malformed expression surfaces as a validation error
// from AndReturn.
func WithSelector(expr string) Option {
	sel, err := ParseSelector(expr)
	return Option{name: "selector", err: err, apply: func(c *opConfig) { c.selector = sel }}
}

// WithParallelism makes Map apply its function with a bounded pool of n
// workers, preserving upstream order in the output.
func WithParallelism(n int) Option {
	var err error
	if n < 1 {
		err = fmt.Errorf("%w: parallelism must be at least 1, got %d", ErrInvalidArgument, n)
	}
	return Option{name: "parallelism", err: err, apply: func(c *opConfig) { c.parallelism = n }}
}

// WithWarnOnly converts a would-be-fatal per-item failure into a warning
// plus a skip of the offending item.
func WithWarnOnly(v bool) Option {
	return Option{name: "warn_only", apply: func(c *opConfig) { c.warnOnly = v }}
}

// WithDropRemainder makes Bucket and BucketByLength drop a final partial
// batch instead of emitting it.
func WithDropRemainder(v bool) Option {
	return Option{name: "drop_remainder", apply: func(c *opConfig) { c.dropRemainder = v }}
}

// WithStrict controls whether Shuffle records its window contents in the
// position tape. Strict shuffles resume exactly; non-strict ones tolerate a
// short window after a reload.
func WithStrict(v bool) Option {
	return Option{name: "strict", apply: func(c *opConfig) { c.strict = v }}
}

// WithEnabled set to false turns Shuffle into a pass-through. It exists so
// hosts can keep one pipeline definition for shuffled and unshuffled runs.
func WithEnabled(v bool) Option {
	return Option{name: "enabled", apply: func(c *opConfig) { c.enabled = v }}
}

// WithNames makes Zip combine its inputs into a mapping keyed by the given
// names instead of a sequence. The name count must equal the pipeline count.
func WithNames(names ...string) Option {
	return Option{name: "names", apply: func(c *opConfig) { c.names = names }}
}

// WithFlatten makes Zip merge the entries of its input items, which must all
// be mappings or all be sequences, into one flat container instead of
// nesting them.
func WithFlatten(v bool) Option {
	return Option{name: "flatten", apply: func(c *opConfig) { c.flatten = v }}
}

// WithDisableParallelism makes Zip pull its inputs sequentially instead of
// concurrently. Both modes yield identical output; concurrent pulling is an
// optimization only.
func WithDisableParallelism(v bool) Option {
	return Option{name: "disable_parallelism", apply: func(c *opConfig) { c.disableParallelism = v }}
}

// resolveOptions validates that only understood options were supplied to an
// operator and folds them over the defaults.
func resolveOptions(op string, allowed []string, opts []Option) (opConfig, error) {
	cfg := opConfig{parallelism: 1, strict: true, enabled: true}
	for _, o := range opts {
		if o.err != nil {
			return cfg, o.err
		}
		if !lo.Contains(allowed, o.name) {
			return cfg, fmt.Errorf("%w: option %s does not apply to %s", ErrInvalidArgument, o.name, op)
		}
		o.apply(&cfg)
	}
	return cfg, nil
}
