package datapipe_test

import (
	"testing"

	"github.com/fogfactory/datapipe"
	"github.com/maxatome/go-testdeep/td"
	"github.com/samber/lo"
)

func intPipeline(t testing.TB, n int) *datapipe.Pipeline {
	return build(t, datapipe.ReadSequence(intRecords(n)))
}

func TestZip(t *testing.T) {
	t.Run("success_sequence_output", func(t *testing.T) {
		// Arrange
		p := build(t, datapipe.Zip([]*datapipe.Pipeline{intPipeline(t, 5), intPipeline(t, 5)}))

		// Act
		out := drain(t, p)

		// Assert
		td.CmpLen(t, out, 5)
		td.Cmp(t, out[2].String(), "[2, 2]")
	})

	t.Run("success_named_output", func(t *testing.T) {
		// Arrange
		p := build(t, datapipe.Zip(
			[]*datapipe.Pipeline{intPipeline(t, 3), intPipeline(t, 3)},
			datapipe.WithNames("left", "right")))

		// Act
		out := drain(t, p)

		// Assert
		td.Cmp(t, out[0].String(), "{left: 0, right: 0}")
	})

	t.Run("success_flatten_mappings", func(t *testing.T) {
		// Arrange
		wrap := func(key string) *datapipe.Pipeline {
			return build(t, datapipe.ReadSequence(intRecords(2)).
				Map(func(r datapipe.Record) (datapipe.Record, error) {
					return datapipe.MappingVal(datapipe.Field{Key: key, Value: r}), nil
				}))
		}
		p := build(t, datapipe.Zip([]*datapipe.Pipeline{wrap("a"), wrap("b")}, datapipe.WithFlatten(true)))

		// Act
		out := drain(t, p)

		// Assert
		td.Cmp(t, out[1].String(), "{a: 1, b: 1}")
	})

	t.Run("error_flatten_duplicate_key", func(t *testing.T) {
		// Arrange
		wrap := func() *datapipe.Pipeline {
			return build(t, datapipe.ReadSequence(intRecords(2)).
				Map(func(r datapipe.Record) (datapipe.Record, error) {
					return datapipe.MappingVal(datapipe.Field{Key: "same", Value: r}), nil
				}))
		}
		p := build(t, datapipe.Zip([]*datapipe.Pipeline{wrap(), wrap()}, datapipe.WithFlatten(true)))

		// Act
		_, _, err := p.Next()

		// Assert
		td.CmpErrorIs(t, err, datapipe.ErrPipeline)
	})

	t.Run("error_length_mismatch", func(t *testing.T) {
		// Arrange
		p := build(t, datapipe.Zip([]*datapipe.Pipeline{intPipeline(t, 5), intPipeline(t, 3)}))

		// Act
		out := drainN(t, p, 3)
		_, _, err := p.Next()

		// Assert
		td.CmpLen(t, out, 3)
		td.CmpErrorIs(t, err, datapipe.ErrPipeline)
	})

	t.Run("success_length_mismatch_tolerated", func(t *testing.T) {
		// Arrange
		p := build(t, datapipe.Zip(
			[]*datapipe.Pipeline{intPipeline(t, 5), intPipeline(t, 3)},
			datapipe.WithWarnOnly(true)))

		// Act & Assert
		td.CmpLen(t, drain(t, p), 3, "ends cleanly at the first exhausted input")
	})

	t.Run("success_sequential_equals_concurrent", func(t *testing.T) {
		// Arrange
		pull := func(opts ...datapipe.Option) []datapipe.Record {
			p := build(t, datapipe.Zip(
				[]*datapipe.Pipeline{intPipeline(t, 10), intPipeline(t, 10), intPipeline(t, 10)},
				opts...))
			return drain(t, p)
		}

		// Act
		concurrent := pull()
		sequential := pull(datapipe.WithDisableParallelism(true))

		// Assert
		td.Cmp(t, sequential, concurrent)
	})

	t.Run("success_round_trip", func(t *testing.T) {
		cmpRoundTrip(t, func(t testing.TB) *datapipe.Pipeline {
			return build(t, datapipe.Zip(
				[]*datapipe.Pipeline{intPipeline(t, 8), intPipeline(t, 8)},
				datapipe.WithNames("a", "b")))
		}, 3)
	})

	t.Run("error_mismatched_names", func(t *testing.T) {
		// Act
		_, err := datapipe.Zip(
			[]*datapipe.Pipeline{intPipeline(t, 3)},
			datapipe.WithNames("a", "b")).AndReturn()

		// Assert
		td.CmpErrorIs(t, err, datapipe.ErrInvalidArgument)
	})

	t.Run("error_flatten_with_names", func(t *testing.T) {
		// Act
		_, err := datapipe.Zip(
			[]*datapipe.Pipeline{intPipeline(t, 3)},
			datapipe.WithNames("a"), datapipe.WithFlatten(true)).AndReturn()

		// Assert
		td.CmpErrorIs(t, err, datapipe.ErrInvalidArgument)
	})

	t.Run("error_broken_input", func(t *testing.T) {
		// Arrange
		broken := intPipeline(t, 3)
		build(t, datapipe.Zip([]*datapipe.Pipeline{broken, intPipeline(t, 3)}))

		// Act: the first zip claimed the source, the second must refuse it.
		_, err := datapipe.Zip([]*datapipe.Pipeline{broken}).AndReturn()

		// Assert
		td.CmpErrorIs(t, err, datapipe.ErrInvalidArgument)
	})
}

func TestRoundRobin(t *testing.T) {
	t.Run("success_interleaves_in_order", func(t *testing.T) {
		// Arrange
		tens := build(t, datapipe.ReadSequence(intRecords(3)).
			Map(func(r datapipe.Record) (datapipe.Record, error) {
				return datapipe.IntVal(r.Int() + 10), nil
			}))
		p := build(t, datapipe.RoundRobin([]*datapipe.Pipeline{intPipeline(t, 3), tens}))

		// Act
		out := drain(t, p)

		// Assert
		td.Cmp(t, toInts(out), []int64{0, 10, 1, 11, 2, 12})
	})

	t.Run("success_skips_exhausted_inputs", func(t *testing.T) {
		// Arrange
		p := build(t, datapipe.RoundRobin([]*datapipe.Pipeline{
			intPipeline(t, 1),
			intPipeline(t, 3),
			intPipeline(t, 2),
		}))

		// Act
		out := drain(t, p)

		// Assert: ends only when every input is exhausted.
		td.Cmp(t, toInts(out), []int64{0, 0, 0, 1, 1, 2})
	})

	t.Run("success_round_trip", func(t *testing.T) {
		cmpRoundTrip(t, func(t testing.TB) *datapipe.Pipeline {
			return build(t, datapipe.RoundRobin([]*datapipe.Pipeline{
				intPipeline(t, 2),
				intPipeline(t, 5),
			}))
		}, 3)
	})

	t.Run("success_reset_restores_all_inputs", func(t *testing.T) {
		// Arrange
		p := build(t, datapipe.RoundRobin([]*datapipe.Pipeline{intPipeline(t, 2), intPipeline(t, 2)}))
		first := toInts(drain(t, p))

		// Act
		td.Require(t).CmpNoError(p.Reset())

		// Assert
		td.Cmp(t, toInts(drain(t, p)), first)
	})

	t.Run("error_no_inputs", func(t *testing.T) {
		// Act
		_, err := datapipe.RoundRobin(nil).AndReturn()

		// Assert
		td.CmpErrorIs(t, err, datapipe.ErrInvalidArgument)
	})
}

func TestZipOutputsAllInputs(t *testing.T) {
	// Arrange
	inputs := lo.Map(lo.Range(4), func(int, int) *datapipe.Pipeline { return intPipeline(t, 6) })

	// Act
	out := drain(t, build(t, datapipe.Zip(inputs)))

	// Assert
	td.CmpLen(t, out, 6)
	for _, rec := range out {
		td.CmpLen(t, rec.Sequence(), 4)
	}
}
