package datapipe

import (
	"fmt"
	"math/rand/v2"
)

// shuffleSource reorders Records within a sliding window: each Next refills
// the window from upstream, then swap-removes a uniformly random element. A
// window of 0 buffers the whole stream before emitting. Reset restores the
// construction-time RNG state, so a reset pipeline shuffles like a fresh
// one.
type shuffleSource struct {
	up     Source
	window int
	strict bool

	seed1, seed2 uint64
	rng          *rand.Rand
	pcg          *rand.PCG
	buf          []Record
	upDone       bool
}

func newShuffleSource(up Source, window int, strict bool) *shuffleSource {
	s := &shuffleSource{
		up:     up,
		window: window,
		strict: strict,
		seed1:  rand.Uint64(),
		seed2:  rand.Uint64(),
	}
	s.pcg = rand.NewPCG(s.seed1, s.seed2)
	s.rng = rand.New(s.pcg)
	return s
}

func (s *shuffleSource) Next() (Record, bool, error) {
	for !s.upDone && (s.window == 0 || len(s.buf) < s.window) {
		rec, ok, err := s.up.Next()
		if err != nil {
			return Record{}, false, err
		}
		if !ok {
			s.upDone = true
			break
		}
		s.buf = append(s.buf, rec)
	}
	if len(s.buf) == 0 {
		return Record{}, false, nil
	}
	i := s.rng.IntN(len(s.buf))
	rec := s.buf[i]
	last := len(s.buf) - 1
	s.buf[i] = s.buf[last]
	s.buf[last] = Record{}
	s.buf = s.buf[:last]
	return rec, true, nil
}

func (s *shuffleSource) Reset() error {
	s.buf = nil
	s.upDone = false
	s.pcg.Seed(s.seed1, s.seed2)
	return s.up.Reset()
}

func (s *shuffleSource) RecordPosition(t *Tape) error {
	state, err := s.pcg.MarshalBinary()
	if err != nil {
		return fmt.Errorf("%w: cannot record shuffle rng state: %v", ErrPipeline, err)
	}
	t.RecordBytes(state)
	t.RecordBool(s.upDone)
	if s.strict {
		t.RecordRecords(s.buf)
	}
	return s.up.RecordPosition(t)
}

func (s *shuffleSource) ReloadPosition(t *Tape) error {
	state, err := t.ReadBytes()
	if err != nil {
		return err
	}
	upDone, err := t.ReadBool()
	if err != nil {
		return err
	}
	var buf []Record
	if s.strict {
		batch, err := t.ReadRecords()
		if err != nil {
			return err
		}
		buf = append([]Record(nil), batch...)
	}
	if err := s.up.ReloadPosition(t); err != nil {
		return err
	}
	if err := s.pcg.UnmarshalBinary(state); err != nil {
		return fmt.Errorf("%w: shuffle rng state: %v", ErrCorruptTape, err)
	}
	s.upDone = upDone
	s.buf = buf
	return nil
}
