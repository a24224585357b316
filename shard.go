package datapipe

// shardSource yields every count-th upstream Record, offset by index. Each
// Next advances upstream one full block of count items, tolerating end of
// stream in the trailing discards, so every shard of the same upstream stays
// position-aligned. Between Next calls the source sits on a block boundary,
// so its position fully delegates to upstream.
type shardSource struct {
	up    Source
	index int
	count int
}

func (s *shardSource) Next() (Record, bool, error) {
	for i := 0; i < s.index; i++ {
		if _, ok, err := s.up.Next(); err != nil || !ok {
			return Record{}, false, err
		}
	}
	rec, ok, err := s.up.Next()
	if err != nil || !ok {
		return Record{}, false, err
	}
	for i := s.index + 1; i < s.count; i++ {
		if _, ok, err := s.up.Next(); err != nil {
			return Record{}, false, err
		} else if !ok {
			break
		}
	}
	return rec, true, nil
}

func (s *shardSource) Reset() error {
	return s.up.Reset()
}

func (s *shardSource) RecordPosition(t *Tape) error {
	return s.up.RecordPosition(t)
}

func (s *shardSource) ReloadPosition(t *Tape) error {
	return s.up.ReloadPosition(t)
}
