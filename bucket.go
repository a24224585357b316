package datapipe

import "fmt"

// bucketSource accumulates fixed-size batches. A batch never spans Next
// calls, so its position fully delegates to upstream.
type bucketSource struct {
	up            Source
	size          int
	dropRemainder bool
}

func (s *bucketSource) Next() (Record, bool, error) {
	batch := make([]Record, 0, s.size)
	for len(batch) < s.size {
		rec, ok, err := s.up.Next()
		if err != nil {
			return Record{}, false, err
		}
		if !ok {
			break
		}
		batch = append(batch, rec)
	}
	if len(batch) == 0 || (len(batch) < s.size && s.dropRemainder) {
		return Record{}, false, nil
	}
	return SequenceVal(batch...), true, nil
}

func (s *bucketSource) Reset() error {
	return s.up.Reset()
}

func (s *bucketSource) RecordPosition(t *Tape) error {
	return s.up.RecordPosition(t)
}

func (s *bucketSource) ReloadPosition(t *Tape) error {
	return s.up.ReloadPosition(t)
}

// LengthBucket is one threshold of BucketByLength: Records whose length is
// at most MaxLength, and above the previous threshold, are batched together
// in groups of BatchSize.
type LengthBucket struct {
	MaxLength int
	BatchSize int
}

// LengthBuckets generates a threshold table where every batch holds at most
// maxElements elements: each bucket's batch size is maxElements divided by
// its maximum length, and bucket boundaries are the widest lengths that
// still fit that batch size.
func LengthBuckets(maxElements, maxLen, minLen int) ([]LengthBucket, error) {
	if minLen < 1 || maxLen < minLen {
		return nil, fmt.Errorf("%w: length range [%d, %d] is invalid", ErrInvalidArgument, minLen, maxLen)
	}
	if maxElements < maxLen {
		return nil, fmt.Errorf("%w: max elements %d cannot hold one item of length %d", ErrInvalidArgument, maxElements, maxLen)
	}
	var buckets []LengthBucket
	for l := minLen; l <= maxLen; {
		size := maxElements / l
		upper := maxElements / size
		if upper > maxLen {
			upper = maxLen
		}
		buckets = append(buckets, LengthBucket{MaxLength: upper, BatchSize: size})
		l = upper + 1
	}
	return buckets, nil
}

func validateBuckets(buckets []LengthBucket) error {
	if len(buckets) == 0 {
		return fmt.Errorf("%w: bucket_by_length needs at least one bucket", ErrInvalidArgument)
	}
	prev := 0
	for i, b := range buckets {
		if b.MaxLength <= prev {
			return fmt.Errorf("%w: bucket %d max length %d does not ascend past %d", ErrInvalidArgument, i, b.MaxLength, prev)
		}
		if b.BatchSize < 1 {
			return fmt.Errorf("%w: bucket %d batch size must be at least 1, got %d", ErrInvalidArgument, i, b.BatchSize)
		}
		prev = b.MaxLength
	}
	return nil
}

type bucketByLengthSource struct {
	up            Source
	buckets       []LengthBucket
	lengthOf      LengthFn
	sel           *Selector
	dropRemainder bool
	warnOnly      bool

	partial  [][]Record
	draining bool
}

func (s *bucketByLengthSource) Next() (Record, bool, error) {
	for !s.draining {
		rec, ok, err := s.up.Next()
		if err != nil {
			return Record{}, false, err
		}
		if !ok {
			s.draining = true
			break
		}
		sub, err := s.sel.resolveOne(rec)
		if err == nil {
			var length int
			length, err = s.lengthOf(sub)
			if err == nil && length < 0 {
				err = fmt.Errorf("length %d is negative", length)
			}
			if err == nil {
				idx := s.bucketFor(length)
				if idx < 0 {
					err = fmt.Errorf("length %d exceeds the largest bucket threshold %d", length, s.buckets[len(s.buckets)-1].MaxLength)
				} else {
					s.partial[idx] = append(s.partial[idx], rec)
					if len(s.partial[idx]) == s.buckets[idx].BatchSize {
						batch := s.partial[idx]
						s.partial[idx] = nil
						return SequenceVal(batch...), true, nil
					}
					continue
				}
			}
		}
		if s.warnOnly {
			logger.Warn().Err(err).Msg("dropping record that cannot be bucketed by length")
			continue
		}
		return Record{}, false, fmt.Errorf("%w: bucket_by_length: %w", ErrTransform, err)
	}
	if s.dropRemainder {
		return Record{}, false, nil
	}
	for i := range s.partial {
		if len(s.partial[i]) > 0 {
			batch := s.partial[i]
			s.partial[i] = nil
			return SequenceVal(batch...), true, nil
		}
	}
	return Record{}, false, nil
}

func (s *bucketByLengthSource) bucketFor(length int) int {
	for i, b := range s.buckets {
		if b.MaxLength >= length {
			return i
		}
	}
	return -1
}

func (s *bucketByLengthSource) Reset() error {
	s.partial = make([][]Record, len(s.buckets))
	s.draining = false
	return s.up.Reset()
}

func (s *bucketByLengthSource) RecordPosition(t *Tape) error {
	t.RecordBool(s.draining)
	for _, batch := range s.partial {
		t.RecordRecords(batch)
	}
	return s.up.RecordPosition(t)
}

func (s *bucketByLengthSource) ReloadPosition(t *Tape) error {
	draining, err := t.ReadBool()
	if err != nil {
		return err
	}
	partial := make([][]Record, len(s.buckets))
	for i := range partial {
		batch, err := t.ReadRecords()
		if err != nil {
			return err
		}
		if len(batch) >= s.buckets[i].BatchSize {
			return fmt.Errorf("%w: partial batch of %d does not fit bucket of %d", ErrCorruptTape, len(batch), s.buckets[i].BatchSize)
		}
		partial[i] = append([]Record(nil), batch...)
	}
	if err := s.up.ReloadPosition(t); err != nil {
		return err
	}
	s.draining = draining
	s.partial = partial
	return nil
}
