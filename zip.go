package datapipe

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// zipSource pulls exactly one item from every input per step and combines
// them into a single Record. Inputs are pulled concurrently, one goroutine
// per input, unless parallelism is disabled; both modes combine by input
// index and yield identical output.
type zipSource struct {
	subs               []Source
	names              []string
	flatten            bool
	warnOnly           bool
	disableParallelism bool
}

type zipPull struct {
	rec Record
	ok  bool
}

func (s *zipSource) Next() (Record, bool, error) {
	pulls := make([]zipPull, len(s.subs))
	if s.disableParallelism || len(s.subs) == 1 {
		for i, sub := range s.subs {
			rec, ok, err := sub.Next()
			if err != nil {
				return Record{}, false, err
			}
			pulls[i] = zipPull{rec: rec, ok: ok}
		}
	} else {
		var g errgroup.Group
		for i, sub := range s.subs {
			i, sub := i, sub
			g.Go(func() error {
				rec, ok, err := sub.Next()
				if err != nil {
					return err
				}
				pulls[i] = zipPull{rec: rec, ok: ok}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Record{}, false, err
		}
	}
	ended := 0
	for _, p := range pulls {
		if !p.ok {
			ended++
		}
	}
	if ended == len(pulls) {
		return Record{}, false, nil
	}
	if ended > 0 {
		if s.warnOnly {
			logger.Warn().Int("ended", ended).Int("total", len(pulls)).Msg("zip inputs have different lengths, ending at the shortest")
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("%w: zip inputs have different lengths", ErrPipeline)
	}
	rec, err := s.combine(pulls)
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

func (s *zipSource) combine(pulls []zipPull) (Record, error) {
	if len(s.names) > 0 {
		fields := make([]Field, len(pulls))
		for i, p := range pulls {
			fields[i] = Field{Key: s.names[i], Value: p.rec}
		}
		return MappingVal(fields...), nil
	}
	if s.flatten {
		return s.flattenItems(pulls)
	}
	items := make([]Record, len(pulls))
	for i, p := range pulls {
		items[i] = p.rec
	}
	return SequenceVal(items...), nil
}

func (s *zipSource) flattenItems(pulls []zipPull) (Record, error) {
	switch pulls[0].rec.Kind() {
	case KindMapping:
		var fields []Field
		seen := map[string]struct{}{}
		for i, p := range pulls {
			if p.rec.Kind() != KindMapping {
				return Record{}, fmt.Errorf("%w: zip flatten needs every input to be a mapping, input %d is %s", ErrPipeline, i, p.rec.Kind())
			}
			for _, f := range p.rec.Mapping() {
				if _, dup := seen[f.Key]; dup {
					return Record{}, fmt.Errorf("%w: zip flatten found the key %q in more than one input", ErrPipeline, f.Key)
				}
				seen[f.Key] = struct{}{}
				fields = append(fields, f)
			}
		}
		return MappingVal(fields...), nil
	case KindSequence:
		var items []Record
		for i, p := range pulls {
			if p.rec.Kind() != KindSequence {
				return Record{}, fmt.Errorf("%w: zip flatten needs every input to be a sequence, input %d is %s", ErrPipeline, i, p.rec.Kind())
			}
			items = append(items, p.rec.Sequence()...)
		}
		return SequenceVal(items...), nil
	}
	return Record{}, fmt.Errorf("%w: zip flatten needs mapping or sequence inputs, input 0 is %s", ErrPipeline, pulls[0].rec.Kind())
}

func (s *zipSource) Reset() error {
	var errs *multierror.Error
	for _, sub := range s.subs {
		errs = multierror.Append(errs, sub.Reset())
	}
	return errs.ErrorOrNil()
}

func (s *zipSource) RecordPosition(t *Tape) error {
	for _, sub := range s.subs {
		if err := sub.RecordPosition(t); err != nil {
			return err
		}
	}
	return nil
}

func (s *zipSource) ReloadPosition(t *Tape) error {
	for _, sub := range s.subs {
		if err := sub.ReloadPosition(t); err != nil {
			return err
		}
	}
	return nil
}
