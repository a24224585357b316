package datapipe

import "fmt"

type mapResult struct {
	rec Record
	err error
}

// mapSource applies fn through the selector on every Record. With a
// parallelism above one, upstream items are submitted in order to a bounded
// worker pool, each with a 1-buffered result slot; the slots form a FIFO
// window of at most pool-size entries consumed strictly in submission order,
// so upstream is never pulled more than pool-size ahead of the oldest
// unconsumed result and output order matches upstream order.
type mapSource struct {
	up          Source
	fn          MapFn
	sel         *Selector
	parallelism int
	warnOnly    bool
	pool        workerPool

	window []chan mapResult
	replay []Record
	upDone bool
	upErr  error
}

func (s *mapSource) apply(rec Record) (Record, error) {
	out, err := s.sel.apply(rec, s.fn)
	if err != nil {
		return Record{}, fmt.Errorf("%w: map: %w", ErrTransform, err)
	}
	return out, nil
}

func (s *mapSource) Next() (Record, bool, error) {
	if len(s.replay) > 0 {
		rec := s.replay[0]
		s.replay = s.replay[1:]
		return rec, true, nil
	}
	if s.parallelism <= 1 {
		return s.nextSequential()
	}
	return s.nextParallel()
}

func (s *mapSource) nextSequential() (Record, bool, error) {
	for {
		rec, ok, err := s.up.Next()
		if err != nil || !ok {
			return Record{}, false, err
		}
		out, err := s.apply(rec)
		if err != nil {
			if s.warnOnly {
				logger.Warn().Err(err).Msg("dropping record that failed its map function")
				continue
			}
			return Record{}, false, err
		}
		return out, true, nil
	}
}

func (s *mapSource) nextParallel() (Record, bool, error) {
	for {
		if err := s.fillWindow(); err != nil {
			s.drainWindow()
			s.pool.release()
			return Record{}, false, err
		}
		if len(s.window) == 0 {
			s.pool.release()
			if s.upErr != nil {
				return Record{}, false, s.upErr
			}
			return Record{}, false, nil
		}
		res := <-s.window[0]
		s.window = s.window[1:]
		if res.err != nil {
			if s.warnOnly {
				logger.Warn().Err(res.err).Msg("dropping record that failed its map function")
				continue
			}
			s.drainWindow()
			s.pool.release()
			return Record{}, false, res.err
		}
		return res.rec, true, nil
	}
}

// fillWindow tops the window up to the pool size. An upstream error is
// stashed so the results already in flight are delivered first.
func (s *mapSource) fillWindow() error {
	for !s.upDone && s.upErr == nil && len(s.window) < s.parallelism {
		rec, ok, err := s.up.Next()
		if err != nil {
			s.upErr = err
			break
		}
		if !ok {
			s.upDone = true
			break
		}
		slot := make(chan mapResult, 1)
		if err := s.pool.submit(func() {
			out, err := s.apply(rec)
			slot <- mapResult{rec: out, err: err}
		}); err != nil {
			return err
		}
		s.window = append(s.window, slot)
	}
	return nil
}

// drainWindow waits for every in-flight transform so no worker outlives the
// operation that abandons it. Results are discarded.
func (s *mapSource) drainWindow() {
	for _, slot := range s.window {
		<-slot
	}
	s.window = nil
}

// collectWindow waits for every in-flight transform and moves the completed
// results into the replay buffer, which Next serves before pulling upstream
// again. Tolerated failures are dropped; a fatal one is returned.
func (s *mapSource) collectWindow() error {
	var fatal error
	for _, slot := range s.window {
		res := <-slot
		if res.err != nil {
			if s.warnOnly {
				logger.Warn().Err(res.err).Msg("dropping record that failed its map function")
				continue
			}
			if fatal == nil {
				fatal = res.err
			}
			continue
		}
		if fatal == nil {
			s.replay = append(s.replay, res.rec)
		}
	}
	s.window = nil
	return fatal
}

func (s *mapSource) Reset() error {
	s.drainWindow()
	s.pool.release()
	s.replay = nil
	s.upDone = false
	s.upErr = nil
	return s.up.Reset()
}

func (s *mapSource) RecordPosition(t *Tape) error {
	if s.upErr != nil {
		return fmt.Errorf("%w: cannot record a position past an upstream failure: %v", ErrPipeline, s.upErr)
	}
	if err := s.collectWindow(); err != nil {
		s.pool.release()
		return err
	}
	t.RecordRecords(s.replay)
	t.RecordBool(s.upDone)
	return s.up.RecordPosition(t)
}

func (s *mapSource) ReloadPosition(t *Tape) error {
	s.drainWindow()
	s.pool.release()
	replay, err := t.ReadRecords()
	if err != nil {
		return err
	}
	upDone, err := t.ReadBool()
	if err != nil {
		return err
	}
	if err := s.up.ReloadPosition(t); err != nil {
		return err
	}
	s.replay = append([]Record(nil), replay...)
	s.upDone = upDone
	s.upErr = nil
	return nil
}
