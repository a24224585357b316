package datapipe_test

import (
	"testing"

	"github.com/fogfactory/datapipe"
	"github.com/maxatome/go-testdeep/td"
)

func TestBuilder(t *testing.T) {
	t.Run("panic_reusing_consumed_builder", func(t *testing.T) {
		// Arrange
		b := datapipe.ReadSequence(intRecords(3))
		b.Take(2)

		// Act & Assert
		td.CmpPanic(t, func() { b.Skip(1) }, td.Contains("builder already consumed"))
	})

	t.Run("panic_finalizing_twice", func(t *testing.T) {
		// Arrange
		b := datapipe.ReadSequence(intRecords(3)).Take(2)
		_, err := b.AndReturn()
		td.Require(t).CmpNoError(err)

		// Act & Assert
		td.CmpPanic(t, func() { _, _ = b.AndReturn() }, td.Contains("builder already consumed"))
	})

	t.Run("error_surfaces_from_and_return", func(t *testing.T) {
		// Act: the invalid skip is composed first, more operators follow.
		_, err := datapipe.ReadSequence(intRecords(3)).
			Skip(-1).
			Take(2).
			Bucket(1).
			AndReturn()

		// Assert
		td.CmpErrorIs(t, err, datapipe.ErrInvalidArgument)
	})

	t.Run("error_option_on_wrong_operator", func(t *testing.T) {
		// Act
		_, err := datapipe.ReadSequence(intRecords(3)).
			Take(2).
			Bucket(2, datapipe.WithParallelism(4)).
			AndReturn()

		// Assert
		td.CmpErrorIs(t, err, datapipe.ErrInvalidArgument)
	})

	t.Run("error_nil_source", func(t *testing.T) {
		// Act
		_, err := datapipe.FromSource(nil).AndReturn()

		// Assert
		td.CmpErrorIs(t, err, datapipe.ErrInvalidArgument)
	})

	t.Run("error_nil_map_function", func(t *testing.T) {
		// Act
		_, err := datapipe.ReadSequence(intRecords(3)).Map(nil).AndReturn()

		// Assert
		td.CmpErrorIs(t, err, datapipe.ErrInvalidArgument)
	})
}

// countdownSource is an externally implemented leaf source, exercising the
// FromSource entry point and the Source contract from outside the package.
type countdownSource struct {
	from int
	left int
}

func (s *countdownSource) Next() (datapipe.Record, bool, error) {
	if s.left <= 0 {
		return datapipe.Record{}, false, nil
	}
	s.left--
	return datapipe.IntVal(int64(s.left)), true, nil
}

func (s *countdownSource) Reset() error {
	s.left = s.from
	return nil
}

func (s *countdownSource) RecordPosition(t *datapipe.Tape) error {
	t.RecordInt(int64(s.left))
	return nil
}

func (s *countdownSource) ReloadPosition(t *datapipe.Tape) error {
	left, err := t.ReadInt()
	if err != nil {
		return err
	}
	s.left = int(left)
	return nil
}

func TestFromSource(t *testing.T) {
	t.Run("success_external_leaf", func(t *testing.T) {
		// Act
		out := drain(t, build(t, datapipe.FromSource(&countdownSource{from: 4, left: 4}).Take(3)))

		// Assert
		td.Cmp(t, toInts(out), []int64{3, 2, 1})
	})

	t.Run("success_external_leaf_round_trip", func(t *testing.T) {
		cmpRoundTrip(t, func(t testing.TB) *datapipe.Pipeline {
			return build(t, datapipe.FromSource(&countdownSource{from: 6, left: 6}).Skip(1))
		}, 2)
	})
}
