package datapipe

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Tape is an ordered log of primitive tokens used to serialize and restore
// the position of a source tree. A source writes its own tokens first, then
// delegates to its children in a fixed order; reloading consumes the tokens
// in exactly the same order. A tape is created fresh per checkpoint request;
// hosts that want to persist one use MarshalBinary.
type Tape struct {
	tokens []Record
	pos    int
}

// NewTape returns an empty tape ready for recording.
func NewTape() *Tape {
	return &Tape{}
}

// TapeFrom returns a tape whose read cursor starts at the beginning of the
// given tokens, typically the Storage of a previously recorded tape.
func TapeFrom(tokens []Record) *Tape {
	return &Tape{tokens: tokens}
}

// Storage exposes the recorded token list. The returned slice is shared with
// the tape and must not be mutated.
func (t *Tape) Storage() []Record {
	return t.tokens
}

// Record appends one token.
func (t *Tape) Record(r Record) {
	t.tokens = append(t.tokens, r)
}

// RecordInt appends an integer token.
func (t *Tape) RecordInt(v int64) {
	t.Record(IntVal(v))
}

// RecordBool appends a boolean token.
func (t *Tape) RecordBool(v bool) {
	t.Record(BoolVal(v))
}

// RecordBytes appends a raw bytes token.
func (t *Tape) RecordBytes(v []byte) {
	t.Record(BytesVal(v))
}

// RecordRecords appends a length-prefixed list of tokens.
func (t *Tape) RecordRecords(rs []Record) {
	t.RecordInt(int64(len(rs)))
	t.tokens = append(t.tokens, rs...)
}

// Read consumes the next token. It fails with ErrCorruptTape when the tape
// is exhausted.
func (t *Tape) Read() (Record, error) {
	if t.pos >= len(t.tokens) {
		return Record{}, fmt.Errorf("%w: no tokens left at offset %d", ErrCorruptTape, t.pos)
	}
	r := t.tokens[t.pos]
	t.pos++
	return r, nil
}

// ReadInt consumes an integer token.
func (t *Tape) ReadInt() (int64, error) {
	r, err := t.Read()
	if err != nil {
		return 0, err
	}
	if r.Kind() != KindInt {
		return 0, fmt.Errorf("%w: expected an int token at offset %d, found %s", ErrCorruptTape, t.pos-1, r.Kind())
	}
	return r.Int(), nil
}

// ReadBool consumes a boolean token.
func (t *Tape) ReadBool() (bool, error) {
	r, err := t.Read()
	if err != nil {
		return false, err
	}
	if r.Kind() != KindBool {
		return false, fmt.Errorf("%w: expected a bool token at offset %d, found %s", ErrCorruptTape, t.pos-1, r.Kind())
	}
	return r.Bool(), nil
}

// ReadBytes consumes a raw bytes token.
func (t *Tape) ReadBytes() ([]byte, error) {
	r, err := t.Read()
	if err != nil {
		return nil, err
	}
	if r.Kind() != KindBytes {
		return nil, fmt.Errorf("%w: expected a bytes token at offset %d, found %s", ErrCorruptTape, t.pos-1, r.Kind())
	}
	return r.Bytes(), nil
}

// ReadRecords consumes a length-prefixed list of tokens.
func (t *Tape) ReadRecords() ([]Record, error) {
	n, err := t.ReadInt()
	if err != nil {
		return nil, err
	}
	if n < 0 || t.pos+int(n) > len(t.tokens) {
		return nil, fmt.Errorf("%w: list of %d tokens does not fit at offset %d", ErrCorruptTape, n, t.pos)
	}
	rs := t.tokens[t.pos : t.pos+int(n)]
	t.pos += int(n)
	return rs, nil
}

// MarshalBinary encodes the recorded tokens with msgpack so the host can
// persist a checkpoint.
func (t *Tape) MarshalBinary() ([]byte, error) {
	return msgpack.Marshal(t.tokens)
}

// UnmarshalBinary decodes a persisted checkpoint and resets the read cursor
// to its beginning.
func (t *Tape) UnmarshalBinary(data []byte) error {
	var tokens []Record
	if err := msgpack.Unmarshal(data, &tokens); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptTape, err)
	}
	t.tokens = tokens
	t.pos = 0
	return nil
}
