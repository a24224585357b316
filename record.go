package datapipe

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Kind identifies the shape of a Record.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindBytes
	KindBuffer
	KindSequence
	KindMapping
)

var kindNames = []string{"null", "int", "float", "bool", "string", "bytes", "buffer", "sequence", "mapping"}

func (k Kind) String() string {
	if int(k) >= len(kindNames) {
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// Field is one entry of a mapping Record.
type Field struct {
	Key   string
	Value Record
}

// ArrayBuffer is a raw numeric buffer with shape and dtype metadata. The
// engine never interprets Data or DType; it only carries them through the
// pipeline and uses Shape[0] as the default length of the buffer.
type ArrayBuffer struct {
	Data  []byte
	Shape []int
	DType string
}

// Record is the value flowing through a pipeline: a tagged variant over
// null, scalar, string, bytes, array buffer, sequence and mapping shapes.
// Records are immutable once produced; operators replace sub-elements by
// rebuilding the enclosing containers. The zero Record is null.
//
// Accessors panic when called on a Record of the wrong kind. Slices
// returned by accessors are shared with the Record and must not be
// mutated.
type Record struct {
	kind Kind
	i    int64
	f    float64
	s    string
	raw  []byte
	buf  *ArrayBuffer
	list []Record
	dict []Field
}

// IntVal returns an integer Record.
func IntVal(v int64) Record { return Record{kind: KindInt, i: v} }

// FloatVal returns a float Record.
func FloatVal(v float64) Record { return Record{kind: KindFloat, f: v} }

// BoolVal returns a boolean Record.
func BoolVal(v bool) Record {
	var i int64
	if v {
		i = 1
	}
	return Record{kind: KindBool, i: i}
}

// StringVal returns a string Record.
func StringVal(v string) Record { return Record{kind: KindString, s: v} }

// BytesVal returns a raw bytes Record.
func BytesVal(v []byte) Record { return Record{kind: KindBytes, raw: v} }

// BufferVal returns an array buffer Record. A nil buffer yields null.
func BufferVal(b *ArrayBuffer) Record {
	if b == nil {
		return Record{}
	}
	return Record{kind: KindBuffer, buf: b}
}

// SequenceVal returns an ordered sequence Record.
func SequenceVal(items ...Record) Record { return Record{kind: KindSequence, list: items} }

// MappingVal returns a mapping Record preserving the insertion order of
// fields. Duplicate keys are constructor misuse and panic.
func MappingVal(fields ...Field) Record {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, dup := seen[f.Key]; dup {
			panic("duplicate mapping key " + strconv.Quote(f.Key))
		}
		seen[f.Key] = struct{}{}
	}
	return Record{kind: KindMapping, dict: fields}
}

// Kind returns the shape of the Record.
func (r Record) Kind() Kind { return r.kind }

// IsNull reports whether the Record is null.
func (r Record) IsNull() bool { return r.kind == KindNull }

func (r Record) mustBe(k Kind) {
	if r.kind != k {
		panic(fmt.Sprintf("record kind is %s, not %s", r.kind, k))
	}
}

// Int returns the integer value.
func (r Record) Int() int64 { r.mustBe(KindInt); return r.i }

// Float returns the float value.
func (r Record) Float() float64 { r.mustBe(KindFloat); return r.f }

// Bool returns the boolean value.
func (r Record) Bool() bool { r.mustBe(KindBool); return r.i != 0 }

// Str returns the string value.
func (r Record) Str() string { r.mustBe(KindString); return r.s }

// Bytes returns the raw bytes value.
func (r Record) Bytes() []byte { r.mustBe(KindBytes); return r.raw }

// Buffer returns the array buffer value.
func (r Record) Buffer() *ArrayBuffer { r.mustBe(KindBuffer); return r.buf }

// Sequence returns the items of a sequence Record.
func (r Record) Sequence() []Record { r.mustBe(KindSequence); return r.list }

// Mapping returns the fields of a mapping Record in insertion order.
func (r Record) Mapping() []Field { r.mustBe(KindMapping); return r.dict }

// Len returns the number of items of a sequence or fields of a mapping.
func (r Record) Len() int {
	switch r.kind {
	case KindSequence:
		return len(r.list)
	case KindMapping:
		return len(r.dict)
	}
	panic(fmt.Sprintf("record kind is %s, not sequence or mapping", r.kind))
}

// At returns the i-th item of a sequence Record.
func (r Record) At(i int) Record { r.mustBe(KindSequence); return r.list[i] }

// Get looks up a mapping field by key.
func (r Record) Get(key string) (Record, bool) {
	r.mustBe(KindMapping)
	for _, f := range r.dict {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Record{}, false
}

// String renders a stable, human-readable form of the Record.
func (r Record) String() string {
	switch r.kind {
	case KindNull:
		return "null"
	case KindInt:
		return strconv.FormatInt(r.i, 10)
	case KindFloat:
		return strconv.FormatFloat(r.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(r.i != 0)
	case KindString:
		return strconv.Quote(r.s)
	case KindBytes:
		return "bytes[" + strconv.Itoa(len(r.raw)) + "]"
	case KindBuffer:
		return fmt.Sprintf("buffer(%s%v)", r.buf.DType, r.buf.Shape)
	case KindSequence:
		parts := make([]string, len(r.list))
		for i, item := range r.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMapping:
		parts := make([]string, len(r.dict))
		for i, f := range r.dict {
			parts[i] = f.Key + ": " + f.Value.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return "record(?)"
}

// EncodeMsgpack implements msgpack.CustomEncoder. Records encode as a
// [kind, payload] pair; mapping payloads are flat key/value lists so that
// insertion order survives the round trip.
func (r Record) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(2); err != nil {
		return err
	}
	if err := enc.EncodeUint8(uint8(r.kind)); err != nil {
		return err
	}
	switch r.kind {
	case KindNull:
		return enc.EncodeNil()
	case KindInt:
		return enc.EncodeInt(r.i)
	case KindFloat:
		return enc.EncodeFloat64(r.f)
	case KindBool:
		return enc.EncodeBool(r.i != 0)
	case KindString:
		return enc.EncodeString(r.s)
	case KindBytes:
		return enc.EncodeBytes(r.raw)
	case KindBuffer:
		if err := enc.EncodeArrayLen(3); err != nil {
			return err
		}
		if err := enc.EncodeBytes(r.buf.Data); err != nil {
			return err
		}
		if err := enc.EncodeArrayLen(len(r.buf.Shape)); err != nil {
			return err
		}
		for _, d := range r.buf.Shape {
			if err := enc.EncodeInt(int64(d)); err != nil {
				return err
			}
		}
		return enc.EncodeString(r.buf.DType)
	case KindSequence:
		if err := enc.EncodeArrayLen(len(r.list)); err != nil {
			return err
		}
		for _, item := range r.list {
			if err := item.EncodeMsgpack(enc); err != nil {
				return err
			}
		}
		return nil
	case KindMapping:
		if err := enc.EncodeArrayLen(2 * len(r.dict)); err != nil {
			return err
		}
		for _, f := range r.dict {
			if err := enc.EncodeString(f.Key); err != nil {
				return err
			}
			if err := f.Value.EncodeMsgpack(enc); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("cannot encode record kind %s", r.kind)
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (r *Record) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n != 2 {
		return fmt.Errorf("record must decode from a [kind, payload] pair, got %d elements", n)
	}
	kind, err := dec.DecodeUint8()
	if err != nil {
		return err
	}
	switch Kind(kind) {
	case KindNull:
		if err := dec.DecodeNil(); err != nil {
			return err
		}
		*r = Record{}
	case KindInt:
		v, err := dec.DecodeInt64()
		if err != nil {
			return err
		}
		*r = IntVal(v)
	case KindFloat:
		v, err := dec.DecodeFloat64()
		if err != nil {
			return err
		}
		*r = FloatVal(v)
	case KindBool:
		v, err := dec.DecodeBool()
		if err != nil {
			return err
		}
		*r = BoolVal(v)
	case KindString:
		v, err := dec.DecodeString()
		if err != nil {
			return err
		}
		*r = StringVal(v)
	case KindBytes:
		v, err := dec.DecodeBytes()
		if err != nil {
			return err
		}
		*r = BytesVal(v)
	case KindBuffer:
		parts, err := dec.DecodeArrayLen()
		if err != nil {
			return err
		}
		if parts != 3 {
			return fmt.Errorf("buffer record must decode from a [data, shape, dtype] triple, got %d elements", parts)
		}
		buf := &ArrayBuffer{}
		if buf.Data, err = dec.DecodeBytes(); err != nil {
			return err
		}
		dims, err := dec.DecodeArrayLen()
		if err != nil {
			return err
		}
		buf.Shape = make([]int, dims)
		for i := range buf.Shape {
			d, err := dec.DecodeInt64()
			if err != nil {
				return err
			}
			buf.Shape[i] = int(d)
		}
		if buf.DType, err = dec.DecodeString(); err != nil {
			return err
		}
		*r = BufferVal(buf)
	case KindSequence:
		count, err := dec.DecodeArrayLen()
		if err != nil {
			return err
		}
		items := make([]Record, count)
		for i := range items {
			if err := items[i].DecodeMsgpack(dec); err != nil {
				return err
			}
		}
		*r = SequenceVal(items...)
	case KindMapping:
		count, err := dec.DecodeArrayLen()
		if err != nil {
			return err
		}
		if count%2 != 0 {
			return fmt.Errorf("mapping record must decode from an even key/value list, got %d elements", count)
		}
		fields := make([]Field, count/2)
		for i := range fields {
			if fields[i].Key, err = dec.DecodeString(); err != nil {
				return err
			}
			if err := fields[i].Value.DecodeMsgpack(dec); err != nil {
				return err
			}
		}
		*r = Record{kind: KindMapping, dict: fields}
	default:
		return fmt.Errorf("cannot decode record kind %d", kind)
	}
	return nil
}
