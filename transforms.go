package datapipe

import (
	"fmt"
	"unicode/utf8"
)

// MapFn transforms a selected sub-element into its replacement. When used
// under Map with a parallelism above one, it must be safe for concurrent
// invocation; the engine provides no synchronization around it.
type MapFn func(Record) (Record, error)

// Predicate decides whether Filter keeps a Record.
type Predicate func(Record) (bool, error)

// LengthFn extracts a non-negative length from a selected sub-element, used
// by BucketByLength to pick a threshold bucket.
type LengthFn func(Record) (int, error)

// YieldFn builds the sub-pipeline that YieldFrom drains for each upstream
// Record. For exact checkpoint resumption it must be deterministic: reloading
// a position re-invokes it on the recorded current Record.
type YieldFn func(Record) (*Pipeline, error)

// Link merges several map functions into one, applied left to right.
func Link(fns ...MapFn) MapFn {
	return func(r Record) (Record, error) {
		var err error
		for _, fn := range fns {
			if r, err = fn(r); err != nil {
				return Record{}, err
			}
		}
		return r, nil
	}
}

// DefaultLength is the length extractor used when BucketByLength receives
// none: the item count of a sequence, the field count of a mapping, the rune
// count of a string, the byte count of a bytes Record, and the leading shape
// dimension of an array buffer. Other kinds have no length and fail.
func DefaultLength(r Record) (int, error) {
	switch r.Kind() {
	case KindSequence, KindMapping:
		return r.Len(), nil
	case KindString:
		return utf8.RuneCountInString(r.Str()), nil
	case KindBytes:
		return len(r.Bytes()), nil
	case KindBuffer:
		if len(r.Buffer().Shape) == 0 {
			return 0, nil
		}
		return r.Buffer().Shape[0], nil
	}
	return 0, fmt.Errorf("record of kind %s has no length", r.Kind())
}
