package datapipe

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// yieldSource flat-maps the upstream: each Record is turned into a
// sub-pipeline by fn, whose output is fully drained before the next upstream
// Record is pulled. Reloading a position re-invokes fn on the recorded
// current Record, so fn must be deterministic for exact resumption.
type yieldSource struct {
	up  Source
	fn  YieldFn
	cur Record
	sub *Pipeline
}

func (s *yieldSource) Next() (Record, bool, error) {
	for {
		if s.sub != nil {
			rec, ok, err := s.sub.Next()
			if err != nil {
				return Record{}, false, err
			}
			if ok {
				return rec, true, nil
			}
			s.sub = nil
			s.cur = Record{}
		}
		rec, ok, err := s.up.Next()
		if err != nil || !ok {
			return Record{}, false, err
		}
		sub, err := s.open(rec)
		if err != nil {
			return Record{}, false, err
		}
		s.cur = rec
		s.sub = sub
	}
}

func (s *yieldSource) open(rec Record) (*Pipeline, error) {
	sub, err := s.fn(rec)
	if err != nil {
		return nil, fmt.Errorf("%w: yield_from: %w", ErrTransform, err)
	}
	if sub == nil {
		return nil, fmt.Errorf("%w: yield_from returned no pipeline", ErrTransform)
	}
	return sub, nil
}

// Reset discards the active sub-pipeline and resets upstream even when the
// sub refuses to reset, so no upstream background work survives.
func (s *yieldSource) Reset() error {
	var errs *multierror.Error
	if s.sub != nil {
		errs = multierror.Append(errs, s.sub.Reset())
	}
	s.sub = nil
	s.cur = Record{}
	errs = multierror.Append(errs, s.up.Reset())
	return errs.ErrorOrNil()
}

func (s *yieldSource) RecordPosition(t *Tape) error {
	t.RecordBool(s.sub != nil)
	if s.sub != nil {
		t.Record(s.cur)
		subTape, err := s.sub.RecordPosition()
		if err != nil {
			return err
		}
		t.RecordRecords(subTape.Storage())
	}
	return s.up.RecordPosition(t)
}

func (s *yieldSource) ReloadPosition(t *Tape) error {
	active, err := t.ReadBool()
	if err != nil {
		return err
	}
	var cur Record
	var sub *Pipeline
	if active {
		if cur, err = t.Read(); err != nil {
			return err
		}
		tokens, err := t.ReadRecords()
		if err != nil {
			return err
		}
		if sub, err = s.open(cur); err != nil {
			return err
		}
		if err := sub.ReloadPosition(TapeFrom(tokens), true); err != nil {
			return err
		}
	}
	if err := s.up.ReloadPosition(t); err != nil {
		return err
	}
	s.cur = cur
	s.sub = sub
	return nil
}
