package datapipe

import "fmt"

// Source is the unit of pipeline composition: a stateful, resumable producer
// of a Record stream. Every operator is a Source wrapping one or more
// upstream Sources, held by exclusive ownership.
//
// A Source has a single logical consumer; re-entrant Next calls are undefined
// behavior. Concurrency, where an operator uses it, stays internal to that
// operator. After Next reports end of stream, further calls keep reporting
// it until Reset.
//
// External leaf sources, such as file listings or stored-record readers,
// implement this interface and enter composition through FromSource. Their
// position tokens must be expressible as tape primitives.
type Source interface {
	// Next advances one logical step. ok is false at end of stream.
	Next() (rec Record, ok bool, err error)

	// Reset returns the Source to its initial, pre-iteration state. It
	// recursively resets owned sub-Sources, clears retained buffers and
	// stops any background work before touching upstream.
	Reset() error

	// RecordPosition appends enough tokens to t to reconstruct the exact
	// resumption point: own tokens first, then children in fixed order.
	RecordPosition(t *Tape) error

	// ReloadPosition consumes tokens from t in the order RecordPosition
	// wrote them. Malformed or insufficient tape content fails with a
	// validation error.
	ReloadPosition(t *Tape) error
}

// sequenceSource wraps a finite in-memory collection. Its position is a
// single cursor index.
type sequenceSource struct {
	records []Record
	cursor  int
}

func (s *sequenceSource) Next() (Record, bool, error) {
	if s.cursor >= len(s.records) {
		return Record{}, false, nil
	}
	rec := s.records[s.cursor]
	s.cursor++
	return rec, true, nil
}

func (s *sequenceSource) Reset() error {
	s.cursor = 0
	return nil
}

func (s *sequenceSource) RecordPosition(t *Tape) error {
	t.RecordInt(int64(s.cursor))
	return nil
}

func (s *sequenceSource) ReloadPosition(t *Tape) error {
	cursor, err := t.ReadInt()
	if err != nil {
		return err
	}
	if cursor < 0 || cursor > int64(len(s.records)) {
		return fmt.Errorf("%w: sequence cursor %d out of range [0, %d]", ErrCorruptTape, cursor, len(s.records))
	}
	s.cursor = int(cursor)
	return nil
}
