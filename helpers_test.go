package datapipe_test

import (
	"testing"

	"github.com/fogfactory/datapipe"
	"github.com/maxatome/go-testdeep/td"
	"github.com/samber/lo"
)

// intRecords builds the fixture [0, n) as integer records.
func intRecords(n int) []datapipe.Record {
	return lo.Map(lo.Range(n), func(i, _ int) datapipe.Record { return datapipe.IntVal(int64(i)) })
}

// drain consumes the pipeline to exhaustion, requiring no error.
func drain(t testing.TB, p *datapipe.Pipeline) []datapipe.Record {
	t.Helper()
	var out []datapipe.Record
	for {
		rec, ok, err := p.Next()
		td.Require(t).CmpNoError(err)
		if !ok {
			return out
		}
		out = append(out, rec)
	}
}

// drainN consumes exactly n items, requiring each pull to succeed.
func drainN(t testing.TB, p *datapipe.Pipeline, n int) []datapipe.Record {
	t.Helper()
	out := make([]datapipe.Record, 0, n)
	for i := 0; i < n; i++ {
		rec, ok, err := p.Next()
		td.Require(t).CmpNoError(err)
		td.Require(t).True(ok, "pipeline ended early")
		out = append(out, rec)
	}
	return out
}

// toInts flattens integer records for comparison.
func toInts(recs []datapipe.Record) []int64 {
	return lo.Map(recs, func(r datapipe.Record, _ int) int64 { return r.Int() })
}

// build finalizes a builder, requiring no validation error.
func build(t testing.TB, b *datapipe.Builder) *datapipe.Pipeline {
	t.Helper()
	p, err := b.AndReturn()
	td.Require(t).CmpNoError(err)
	return p
}

// cmpRoundTrip checks the checkpoint property: consuming k items, recording
// the position and reloading it on a freshly built pipeline yields the same
// remaining sequence as continuing the original.
func cmpRoundTrip(t *testing.T, newPipeline func(t testing.TB) *datapipe.Pipeline, k int) {
	t.Helper()

	// Arrange
	original := newPipeline(t)
	if k < 0 {
		drain(t, original) // fully exhaust
	} else {
		drainN(t, original, k)
	}

	// Act
	tape, err := original.RecordPosition()
	td.Require(t).CmpNoError(err)
	resumed := newPipeline(t)
	td.Require(t).CmpNoError(resumed.ReloadPosition(tape, true))

	// Assert
	td.Cmp(t, drain(t, resumed), drain(t, original))
}
