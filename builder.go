package datapipe

import (
	"fmt"

	"github.com/samber/lo"
)

// Builder composes a source tree operator by operator before producing a
// Pipeline. Every operator method consumes its receiver and returns a fresh
// builder wrapping the newly constructed source; touching a consumed builder
// is API misuse and panics. Argument validation failures are recorded and
// surface from AndReturn instead.
type Builder struct {
	src   Source
	err   error
	spent bool
}

// ReadSequence starts a pipeline over a finite in-memory collection.
func ReadSequence(records []Record) *Builder {
	return &Builder{src: &sequenceSource{records: records}}
}

// FromSource starts a pipeline over an externally implemented leaf source,
// such as a file listing or a stored-record reader.
func FromSource(src Source) *Builder {
	if src == nil {
		return &Builder{err: fmt.Errorf("%w: nil source", ErrInvalidArgument)}
	}
	return &Builder{src: src}
}

// Zip starts a pipeline that pulls one item from every input per step and
// combines them into a single Record: a mapping keyed by WithNames if given,
// a flat merged container with WithFlatten, a sequence otherwise. It takes
// exclusive ownership of the inputs, leaving their handles broken.
func Zip(pipelines []*Pipeline, opts ...Option) *Builder {
	cfg, err := resolveOptions("zip", []string{"names", "flatten", "warn_only", "disable_parallelism"}, opts)
	if err != nil {
		return &Builder{err: err}
	}
	if len(cfg.names) > 0 {
		if len(cfg.names) != len(pipelines) {
			return &Builder{err: fmt.Errorf("%w: zip got %d names for %d pipelines", ErrInvalidArgument, len(cfg.names), len(pipelines))}
		}
		if len(lo.Uniq(cfg.names)) != len(cfg.names) {
			return &Builder{err: fmt.Errorf("%w: zip names must be unique", ErrInvalidArgument)}
		}
		if cfg.flatten {
			return &Builder{err: fmt.Errorf("%w: zip cannot both flatten and name its inputs", ErrInvalidArgument)}
		}
	}
	subs, err := claimRoots("zip", pipelines)
	if err != nil {
		return &Builder{err: err}
	}
	return &Builder{src: &zipSource{
		subs:               subs,
		names:              cfg.names,
		flatten:            cfg.flatten,
		warnOnly:           cfg.warnOnly,
		disableParallelism: cfg.disableParallelism,
	}}
}

// RoundRobin starts a pipeline that interleaves its inputs in registration
// order, skipping exhausted ones, and ends when all inputs are exhausted. It
// takes exclusive ownership of the inputs, leaving their handles broken.
func RoundRobin(pipelines []*Pipeline) *Builder {
	subs, err := claimRoots("round_robin", pipelines)
	if err != nil {
		return &Builder{err: err}
	}
	return &Builder{src: &roundRobinSource{subs: subs, done: make([]bool, len(subs))}}
}

func claimRoots(op string, pipelines []*Pipeline) ([]Source, error) {
	if len(pipelines) == 0 {
		return nil, fmt.Errorf("%w: %s needs at least one pipeline", ErrInvalidArgument, op)
	}
	subs := make([]Source, len(pipelines))
	for i, p := range pipelines {
		if p == nil {
			return nil, fmt.Errorf("%w: %s pipeline %d is nil", ErrInvalidArgument, op, i)
		}
		root, err := p.detachRoot()
		if err != nil {
			return nil, fmt.Errorf("%w: %s pipeline %d: %v", ErrInvalidArgument, op, i, err)
		}
		subs[i] = root
	}
	return subs, nil
}

// wrap consumes the builder and hands the tree over to a new one.
func (b *Builder) wrap(src Source, err error) *Builder {
	if b.spent {
		panic("datapipe: builder already consumed")
	}
	b.spent = true
	if b.err != nil {
		return &Builder{err: b.err}
	}
	if err != nil {
		return &Builder{err: err}
	}
	return &Builder{src: src}
}

// Filter drops Records failing the predicate. A predicate failure at
// evaluation time is fatal unless WithWarnOnly.
func (b *Builder) Filter(pred Predicate, opts ...Option) *Builder {
	cfg, err := resolveOptions("filter", []string{"warn_only"}, opts)
	if err == nil && pred == nil {
		err = fmt.Errorf("%w: filter needs a predicate", ErrInvalidArgument)
	}
	return b.wrap(&filterSource{up: b.src, pred: pred, warnOnly: cfg.warnOnly}, err)
}

// Map applies fn to the sub-elements addressed by WithSelector, replacing
// them in place, on every Record. With WithParallelism above one, items are
// transformed by a bounded worker pool and reassembled in upstream order. A
// transform failure is fatal unless WithWarnOnly.
func (b *Builder) Map(fn MapFn, opts ...Option) *Builder {
	cfg, err := resolveOptions("map", []string{"selector", "parallelism", "warn_only"}, opts)
	if err == nil && fn == nil {
		err = fmt.Errorf("%w: map needs a function", ErrInvalidArgument)
	}
	return b.wrap(&mapSource{
		up:          b.src,
		fn:          fn,
		sel:         cfg.selector,
		parallelism: cfg.parallelism,
		warnOnly:    cfg.warnOnly,
		pool:        workerPool{size: cfg.parallelism},
	}, err)
}

// Skip discards the first n Records. An upstream shorter than n yields an
// empty pipeline, not an error.
func (b *Builder) Skip(n int) *Builder {
	var err error
	if n < 0 {
		err = fmt.Errorf("%w: skip count must be non-negative, got %d", ErrInvalidArgument, n)
	}
	return b.wrap(&skipSource{up: b.src, n: n, remaining: n}, err)
}

// Take yields at most n Records, then ends regardless of upstream.
func (b *Builder) Take(n int) *Builder {
	var err error
	if n < 0 {
		err = fmt.Errorf("%w: take count must be non-negative, got %d", ErrInvalidArgument, n)
	}
	return b.wrap(&takeSource{up: b.src, n: n}, err)
}

// Bucket accumulates size consecutive Records into one sequence Record. A
// final partial batch is emitted unless WithDropRemainder.
func (b *Builder) Bucket(size int, opts ...Option) *Builder {
	cfg, err := resolveOptions("bucket", []string{"drop_remainder"}, opts)
	if err == nil && size < 1 {
		err = fmt.Errorf("%w: bucket size must be at least 1, got %d", ErrInvalidArgument, size)
	}
	return b.wrap(&bucketSource{up: b.src, size: size, dropRemainder: cfg.dropRemainder}, err)
}

// BucketByLength groups Records into batches by length: the first bucket
// whose MaxLength covers the Record's length, extracted by lengthOf (or
// DefaultLength when nil) from the sub-element addressed by WithSelector,
// receives it; each bucket flushes as a sequence Record once it holds its
// BatchSize. A Record longer than every threshold is fatal unless
// WithWarnOnly, which drops it with a warning.
func (b *Builder) BucketByLength(buckets []LengthBucket, lengthOf LengthFn, opts ...Option) *Builder {
	cfg, err := resolveOptions("bucket_by_length", []string{"selector", "drop_remainder", "warn_only"}, opts)
	if err == nil {
		err = validateBuckets(buckets)
	}
	if err == nil && !cfg.selector.singlePath() {
		err = fmt.Errorf("%w: bucket_by_length needs a single-path selector, got %q", ErrInvalidArgument, cfg.selector)
	}
	if lengthOf == nil {
		lengthOf = DefaultLength
	}
	return b.wrap(&bucketByLengthSource{
		up:            b.src,
		buckets:       buckets,
		lengthOf:      lengthOf,
		sel:           cfg.selector,
		dropRemainder: cfg.dropRemainder,
		warnOnly:      cfg.warnOnly,
		partial:       make([][]Record, len(buckets)),
	}, err)
}

// Shuffle reorders Records within a sliding window of the given size; a
// window of 0 buffers the whole stream before emitting. WithEnabled set to
// false makes it a pass-through; WithStrict set to false omits the window
// contents from checkpoints, tolerating a short window after reload.
func (b *Builder) Shuffle(window int, opts ...Option) *Builder {
	cfg, err := resolveOptions("shuffle", []string{"strict", "enabled"}, opts)
	if err == nil && window < 0 {
		err = fmt.Errorf("%w: shuffle window must be non-negative, got %d", ErrInvalidArgument, window)
	}
	if err == nil && !cfg.enabled {
		return b.wrap(b.src, nil)
	}
	return b.wrap(newShuffleSource(b.src, window, cfg.strict), err)
}

// Shard yields the Records whose 0-based position modulo count equals index.
// Every shard advances upstream one full block per item, so all shards stay
// position-aligned.
func (b *Builder) Shard(index, count int) *Builder {
	var err error
	if count < 1 {
		err = fmt.Errorf("%w: shard count must be at least 1, got %d", ErrInvalidArgument, count)
	} else if index < 0 || index >= count {
		err = fmt.Errorf("%w: shard index %d out of range [0, %d)", ErrInvalidArgument, index, count)
	}
	return b.wrap(&shardSource{up: b.src, index: index, count: count}, err)
}

// Prefetch overlaps upstream production with consumer processing: a
// background goroutine pulls upstream into a bounded queue of the given
// depth. A depth of 0 disables prefetching.
func (b *Builder) Prefetch(depth int) *Builder {
	if depth < 0 {
		return b.wrap(nil, fmt.Errorf("%w: prefetch depth must be non-negative, got %d", ErrInvalidArgument, depth))
	}
	if depth == 0 {
		return b.wrap(b.src, nil)
	}
	return b.wrap(&prefetchSource{up: b.src, depth: depth}, nil)
}

// YieldFrom maps each upstream Record to a sub-pipeline and fully drains it
// before pulling the next upstream Record.
func (b *Builder) YieldFrom(fn YieldFn) *Builder {
	var err error
	if fn == nil {
		err = fmt.Errorf("%w: yield_from needs a function", ErrInvalidArgument)
	}
	return b.wrap(&yieldSource{up: b.src, fn: fn}, err)
}

// AndReturn finalizes the tree into a Pipeline, or reports the first
// validation error recorded while composing. The builder is spent
// afterwards.
func (b *Builder) AndReturn() (*Pipeline, error) {
	if b.spent {
		panic("datapipe: builder already consumed")
	}
	b.spent = true
	if b.err != nil {
		return nil, b.err
	}
	return newPipeline(b.src), nil
}
