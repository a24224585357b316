package datapipe

import "fmt"

type prefetchItem struct {
	rec Record
	ok  bool
	err error
}

// prefetchSource runs one background goroutine that pulls upstream into a
// bounded FIFO channel, blocking when it is full; the consumer-facing Next
// blocks only when it is empty. The goroutine is started lazily on the first
// Next and must be halted, and the channel drained in order, before anything
// else touches upstream.
type prefetchSource struct {
	up    Source
	depth int

	ch      chan prefetchItem
	stop    chan struct{}
	done    chan struct{}
	residue *Record

	replay []Record
	upDone bool
	upErr  error
}

func (s *prefetchSource) running() bool {
	return s.ch != nil
}

func (s *prefetchSource) start() {
	s.ch = make(chan prefetchItem, s.depth)
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go func(ch chan prefetchItem, stop chan struct{}, done chan struct{}) {
		defer close(done)
		for {
			rec, ok, err := s.up.Next()
			select {
			case ch <- prefetchItem{rec: rec, ok: ok, err: err}:
				if err != nil || !ok {
					return
				}
			case <-stop:
				if err == nil && ok {
					s.residue = &rec
				}
				return
			}
		}
	}(s.ch, s.stop, s.done)
}

// halt stops the background goroutine and drains the queue, in order, into
// the replay buffer. An upstream failure or end of stream found in the queue
// is remembered and delivered after the buffered items.
func (s *prefetchSource) halt() {
	if !s.running() {
		return
	}
	close(s.stop)
	<-s.done
	for {
		select {
		case it := <-s.ch:
			s.absorb(it)
		default:
			if s.residue != nil {
				s.replay = append(s.replay, *s.residue)
				s.residue = nil
			}
			s.ch = nil
			s.stop = nil
			s.done = nil
			return
		}
	}
}

func (s *prefetchSource) absorb(it prefetchItem) {
	switch {
	case it.err != nil:
		s.upErr = it.err
	case !it.ok:
		s.upDone = true
	default:
		s.replay = append(s.replay, it.rec)
	}
}

func (s *prefetchSource) Next() (Record, bool, error) {
	if len(s.replay) > 0 {
		rec := s.replay[0]
		s.replay = s.replay[1:]
		return rec, true, nil
	}
	if s.upErr != nil {
		err := s.upErr
		s.upErr = nil
		return Record{}, false, err
	}
	if s.upDone {
		return Record{}, false, nil
	}
	if !s.running() {
		s.start()
	}
	it := <-s.ch
	if it.err != nil || !it.ok {
		// The goroutine exited after sending this; forget its channels.
		<-s.done
		s.ch = nil
		s.stop = nil
		s.done = nil
		if !it.ok && it.err == nil {
			s.upDone = true
		}
		return Record{}, false, it.err
	}
	return it.rec, true, nil
}

func (s *prefetchSource) Reset() error {
	s.halt()
	s.replay = nil
	s.upDone = false
	s.upErr = nil
	return s.up.Reset()
}

func (s *prefetchSource) RecordPosition(t *Tape) error {
	s.halt()
	if s.upErr != nil {
		return fmt.Errorf("%w: cannot record a position past an upstream failure: %v", ErrPipeline, s.upErr)
	}
	t.RecordRecords(s.replay)
	t.RecordBool(s.upDone)
	return s.up.RecordPosition(t)
}

func (s *prefetchSource) ReloadPosition(t *Tape) error {
	s.halt()
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
