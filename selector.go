package datapipe

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// accessor is one step of a selector path: a mapping key or a sequence
// index.
type accessor struct {
	key     string
	index   int
	isIndex bool
}

func (a accessor) String() string {
	if a.isIndex {
		return strconv.Itoa(a.index)
	}
	return a.key
}

type selectorPath []accessor

func (p selectorPath) String() string {
	return strings.Join(lo.Map(p, func(a accessor, _ int) string { return a.String() }), ".")
}

// Selector addresses one or more sub-elements inside a sequence/mapping
// Record tree. It is parsed and validated once, at operator construction
// time; resolving it against a Record whose shape does not match the path
// yields ErrSelectorMismatch.
//
// A nil Selector selects the whole Record.
type Selector struct {
	paths []selectorPath
}

// ParseSelector parses a selector expression: one or more comma-separated
// paths, each a dotted chain of mapping keys and decimal sequence indices,
// such as "audio.tokens.0" or "source,target". An empty expression yields a
// nil selector, which selects the whole Record.
func ParseSelector(expr string) (*Selector, error) {
	if expr == "" {
		return nil, nil
	}
	var paths []selectorPath
	for _, raw := range strings.Split(expr, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil, fmt.Errorf("%w: selector %q contains an empty path", ErrInvalidArgument, expr)
		}
		var path selectorPath
		for _, seg := range strings.Split(raw, ".") {
			if seg == "" {
				return nil, fmt.Errorf("%w: selector path %q contains an empty segment", ErrInvalidArgument, raw)
			}
			if idx, err := strconv.Atoi(seg); err == nil {
				if idx < 0 {
					return nil, fmt.Errorf("%w: selector path %q contains a negative index", ErrInvalidArgument, raw)
				}
				path = append(path, accessor{index: idx, isIndex: true})
			} else {
				path = append(path, accessor{key: seg})
			}
		}
		paths = append(paths, path)
	}
	return &Selector{paths: paths}, nil
}

// String renders the selector back to its expression form.
func (s *Selector) String() string {
	if s == nil {
		return ""
	}
	return strings.Join(lo.Map(s.paths, func(p selectorPath, _ int) string { return p.String() }), ",")
}

// singlePath reports whether the selector addresses exactly one path. A nil
// selector counts as single (the whole Record).
func (s *Selector) singlePath() bool {
	return s == nil || len(s.paths) == 1
}

// resolveOne returns the sub-element addressed by a single-path selector.
func (s *Selector) resolveOne(r Record) (Record, error) {
	if s == nil {
		return r, nil
	}
	return resolvePath(r, s.paths[0], 0)
}

// apply invokes fn on every addressed sub-element in path order, replacing
// each one in place and returning the rebuilt Record.
func (s *Selector) apply(r Record, fn MapFn) (Record, error) {
	if s == nil {
		return fn(r)
	}
	var err error
	for _, path := range s.paths {
		r, err = replacePath(r, path, 0, fn)
		if err != nil {
			return Record{}, err
		}
	}
	return r, nil
}

func resolvePath(r Record, path selectorPath, depth int) (Record, error) {
	if depth == len(path) {
		return r, nil
	}
	child, err := step(r, path, depth)
	if err != nil {
		return Record{}, err
	}
	return resolvePath(child, path, depth+1)
}

func replacePath(r Record, path selectorPath, depth int, fn MapFn) (Record, error) {
	if depth == len(path) {
		return fn(r)
	}
	child, err := step(r, path, depth)
	if err != nil {
		return Record{}, err
	}
	child, err = replacePath(child, path, depth+1, fn)
	if err != nil {
		return Record{}, err
	}
	a := path[depth]
	if a.isIndex {
		items := make([]Record, len(r.Sequence()))
		copy(items, r.Sequence())
		items[a.index] = child
		return SequenceVal(items...), nil
	}
	fields := make([]Field, len(r.Mapping()))
	copy(fields, r.Mapping())
	for i := range fields {
		if fields[i].Key == a.key {
			fields[i].Value = child
			break
		}
	}
	return Record{kind: KindMapping, dict: fields}, nil
}

func step(r Record, path selectorPath, depth int) (Record, error) {
	a := path[depth]
	if a.isIndex {
		if r.Kind() != KindSequence {
			return Record{}, mismatch(path, depth, fmt.Sprintf("record is %s, not a sequence", r.Kind()))
		}
		if a.index >= r.Len() {
			return Record{}, mismatch(path, depth, fmt.Sprintf("index out of range for a sequence of %d items", r.Len()))
		}
		return r.At(a.index), nil
	}
	if r.Kind() != KindMapping {
		return Record{}, mismatch(path, depth, fmt.Sprintf("record is %s, not a mapping", r.Kind()))
	}
	child, ok := r.Get(a.key)
	if !ok {
		return Record{}, mismatch(path, depth, "no such key")
	}
	return child, nil
}

func mismatch(path selectorPath, depth int, reason string) error {
	return fmt.Errorf("%w: at %q in path %q: %s", ErrSelectorMismatch, path[depth].String(), path.String(), reason)
}
