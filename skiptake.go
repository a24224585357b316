package datapipe

import "fmt"

type skipSource struct {
	up        Source
	n         int
	remaining int
}

func (s *skipSource) Next() (Record, bool, error) {
	for s.remaining > 0 {
		_, ok, err := s.up.Next()
		if err != nil || !ok {
			return Record{}, false, err
		}
		s.remaining--
	}
	return s.up.Next()
}

func (s *skipSource) Reset() error {
	s.remaining = s.n
	return s.up.Reset()
}

func (s *skipSource) RecordPosition(t *Tape) error {
	t.RecordInt(int64(s.remaining))
	return s.up.RecordPosition(t)
}

func (s *skipSource) ReloadPosition(t *Tape) error {
	remaining, err := t.ReadInt()
	if err != nil {
		return err
	}
	if remaining < 0 || remaining > int64(s.n) {
		return fmt.Errorf("%w: skip counter %d out of range [0, %d]", ErrCorruptTape, remaining, s.n)
	}
	s.remaining = int(remaining)
	return s.up.ReloadPosition(t)
}

type takeSource struct {
	up      Source
	n       int
	emitted int
}

func (s *takeSource) Next() (Record, bool, error) {
	if s.emitted >= s.n {
		return Record{}, false, nil
	}
	rec, ok, err := s.up.Next()
	if err != nil || !ok {
		return Record{}, false, err
	}
	s.emitted++
	return rec, true, nil
}

func (s *takeSource) Reset() error {
	s.emitted = 0
	return s.up.Reset()
}

func (s *takeSource) RecordPosition(t *Tape) error {
	t.RecordInt(int64(s.emitted))
	return s.up.RecordPosition(t)
}

func (s *takeSource) ReloadPosition(t *Tape) error {
	emitted, err := t.ReadInt()
	if err != nil {
		return err
	}
	if emitted < 0 || emitted > int64(s.n) {
		return fmt.Errorf("%w: take counter %d out of range [0, %d]", ErrCorruptTape, emitted, s.n)
	}
	s.emitted = int(emitted)
	return s.up.ReloadPosition(t)
}
