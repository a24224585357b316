package datapipe

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// roundRobinSource interleaves its inputs in registration order, one item
// per active input per full cycle. An input that reaches end of stream is
// skipped on later cycles; the source ends only when every input is
// exhausted.
type roundRobinSource struct {
	subs []Source
	turn int
	done []bool
}

func (s *roundRobinSource) Next() (Record, bool, error) {
	for remaining := s.active(); remaining > 0; {
		i := s.turn
		s.turn = (s.turn + 1) % len(s.subs)
		if s.done[i] {
			continue
		}
		rec, ok, err := s.subs[i].Next()
		if err != nil {
			return Record{}, false, err
		}
		if !ok {
			s.done[i] = true
			remaining = s.active()
			continue
		}
		return rec, true, nil
	}
	return Record{}, false, nil
}

func (s *roundRobinSource) active() int {
	n := 0
	for _, d := range s.done {
		if !d {
			n++
		}
	}
	return n
}

func (s *roundRobinSource) Reset() error {
	s.turn = 0
	s.done = make([]bool, len(s.subs))
	var errs *multierror.Error
	for _, sub := range s.subs {
		errs = multierror.Append(errs, sub.Reset())
	}
	return errs.ErrorOrNil()
}

func (s *roundRobinSource) RecordPosition(t *Tape) error {
	t.RecordInt(int64(s.turn))
	for _, d := range s.done {
		t.RecordBool(d)
	}
	for _, sub := range s.subs {
		if err := sub.RecordPosition(t); err != nil {
			return err
		}
	}
	return nil
}

func (s *roundRobinSource) ReloadPosition(t *Tape) error {
	turn, err := t.ReadInt()
	if err != nil {
		return err
	}
	if turn < 0 || turn >= int64(len(s.subs)) {
		return fmt.Errorf("%w: round_robin turn %d out of range [0, %d)", ErrCorruptTape, turn, len(s.subs))
	}
	done := make([]bool, len(s.subs))
	for i := range done {
		if done[i], err = t.ReadBool(); err != nil {
			return err
		}
	}
	for _, sub := range s.subs {
		if err := sub.ReloadPosition(t); err != nil {
			return err
		}
	}
	s.turn = int(turn)
	s.done = done
	return nil
}
