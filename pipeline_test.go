package datapipe_test

import (
	"fmt"
	"testing"

	"github.com/fogfactory/datapipe"
	"github.com/maxatome/go-testdeep/td"
	"github.com/samber/lo"
)

func TestPipeline(t *testing.T) {
	t.Run("success_basic_iteration", func(t *testing.T) {
		// Arrange
		p := build(t, datapipe.ReadSequence(intRecords(5)))

		// Act & Assert
		td.Cmp(t, toInts(drain(t, p)), []int64{0, 1, 2, 3, 4})
	})

	t.Run("success_exhaustion_is_sticky", func(t *testing.T) {
		// Arrange
		p := build(t, datapipe.ReadSequence(intRecords(1)))
		drain(t, p)

		// Act
		_, ok, err := p.Next()

		// Assert
		td.CmpNoError(t, err)
		td.CmpFalse(t, ok)
	})

	t.Run("success_reset_equals_fresh", func(t *testing.T) {
		// Arrange
		p := build(t, datapipe.ReadSequence(intRecords(10)).Skip(2).Shuffle(3).Bucket(2))
		fresh := drain(t, p)

		// Act
		td.Require(t).CmpNoError(p.Reset())

		// Assert
		td.CmpLen(t, drain(t, p), len(fresh))
	})

	t.Run("error_broken_after_failure", func(t *testing.T) {
		// Arrange
		boom := fmt.Errorf("boom")
		p := build(t, datapipe.ReadSequence(intRecords(3)).
			Map(func(datapipe.Record) (datapipe.Record, error) { return datapipe.Record{}, boom }))

		// Act
		_, _, err := p.Next()

		// Assert
		td.CmpErrorIs(t, err, datapipe.ErrTransform)
		td.CmpTrue(t, p.IsBroken())
		_, _, err = p.Next()
		td.CmpErrorIs(t, err, datapipe.ErrPipelineBroken)
		td.CmpErrorIs(t, p.Reset(), datapipe.ErrPipelineBroken)
		_, err = p.RecordPosition()
		td.CmpErrorIs(t, err, datapipe.ErrPipelineBroken)
	})

	t.Run("error_merge_claims_source", func(t *testing.T) {
		// Arrange
		claimed := build(t, datapipe.ReadSequence(intRecords(3)))
		other := build(t, datapipe.ReadSequence(intRecords(3)))
		build(t, datapipe.Zip([]*datapipe.Pipeline{claimed, other}))

		// Act
		_, _, err := claimed.Next()

		// Assert
		td.CmpTrue(t, claimed.IsBroken())
		td.CmpErrorIs(t, err, datapipe.ErrPipelineBroken)
	})
}

func TestPipelineCheckpoint(t *testing.T) {
	newChain := func(t testing.TB) *datapipe.Pipeline {
		return build(t, datapipe.ReadSequence(intRecords(20)).
			Skip(2).
			Map(func(r datapipe.Record) (datapipe.Record, error) {
				return datapipe.IntVal(r.Int() * 2), nil
			}).
			Bucket(2).
			Take(8))
	}

	t.Run("success_round_trip_fresh", func(t *testing.T) { cmpRoundTrip(t, newChain, 0) })
	t.Run("success_round_trip_mid_stream", func(t *testing.T) { cmpRoundTrip(t, newChain, 4) })
	t.Run("success_round_trip_exhausted", func(t *testing.T) { cmpRoundTrip(t, newChain, -1) })

	t.Run("error_strict_reload_of_malformed_tape", func(t *testing.T) {
		// Arrange
		p := newChain(t)
		garbage := datapipe.NewTape()
		garbage.RecordBool(false)
		garbage.RecordBytes([]byte{0xff})

		// Act
		err := p.ReloadPosition(garbage, true)

		// Assert
		td.CmpErrorIs(t, err, datapipe.ErrInvalidArgument)
		td.CmpTrue(t, p.IsBroken())
	})

	t.Run("success_lenient_reload_is_noop", func(t *testing.T) {
		// Arrange
		p := newChain(t)
		garbage := datapipe.NewTape()
		garbage.RecordBool(false)
		garbage.RecordBytes([]byte{0xff})

		// Act
		td.CmpNoError(t, p.ReloadPosition(nil, false))
		td.CmpNoError(t, p.ReloadPosition(garbage, false))

		// Assert: the pipeline still iterates from its fresh position.
		td.CmpFalse(t, p.IsBroken())
		out := drain(t, p)
		td.Cmp(t, toInts(out[0].Sequence()), []int64{4, 6})
	})

	t.Run("success_persisted_tape_round_trip", func(t *testing.T) {
		// Arrange
		p := newChain(t)
		drainN(t, p, 3)
		tape, err := p.RecordPosition()
		td.Require(t).CmpNoError(err)

		// Act: persist and restore the tape as a host would.
		blob, err := tape.MarshalBinary()
		td.Require(t).CmpNoError(err)
		restored := datapipe.NewTape()
		td.Require(t).CmpNoError(restored.UnmarshalBinary(blob))
		resumed := newChain(t)
		td.Require(t).CmpNoError(resumed.ReloadPosition(restored, true))

		// Assert
		td.Cmp(t, drain(t, resumed), drain(t, p))
	})
}

func TestReadSequenceOrder(t *testing.T) {
	// Arrange
	input := lo.Shuffle(intRecords(50))

	// Act
	out := drain(t, build(t, datapipe.ReadSequence(input)))

	// Assert
	td.Cmp(t, toInts(out), toInts(input), "order of the backing collection is preserved")
}
