package datapipe

import "fmt"

type filterSource struct {
	up       Source
	pred     Predicate
	warnOnly bool
}

func (s *filterSource) Next() (Record, bool, error) {
	for {
		rec, ok, err := s.up.Next()
		if err != nil || !ok {
			return Record{}, false, err
		}
		keep, err := s.pred(rec)
		if err != nil {
			if s.warnOnly {
				logger.Warn().Err(err).Msg("dropping record that failed its filter predicate")
				continue
			}
			return Record{}, false, fmt.Errorf("%w: filter predicate: %w", ErrTransform, err)
		}
		if keep {
			return rec, true, nil
		}
	}
}

func (s *filterSource) Reset() error {
	return s.up.Reset()
}

func (s *filterSource) RecordPosition(t *Tape) error {
	return s.up.RecordPosition(t)
}

func (s *filterSource) ReloadPosition(t *Tape) error {
	return s.up.ReloadPosition(t)
}
