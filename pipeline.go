package datapipe

import (
	"errors"
	"fmt"
)

type pipelineState uint8

const (
	stateFresh pipelineState = iota
	stateIterating
	stateExhausted
	stateBroken
)

// Pipeline is the host-facing handle over one root Source. It is fresh until
// the first Next, iterating afterwards, exhausted once Next reports end of
// stream (further calls keep reporting it until Reset), and broken after an
// unrecoverable error.
//
// A broken pipeline cannot be reset or un-broken; the host discards it and,
// if needed, rebuilds one from a last-known-good checkpoint. Hosts own the
// pipelines they create: a pipeline must be reset or fully drained before
// being dropped so that no background goroutine outlives it.
type Pipeline struct {
	root  Source
	state pipelineState
	cause error
}

func newPipeline(root Source) *Pipeline {
	return &Pipeline{root: root}
}

func (p *Pipeline) brokenErr() error {
	return fmt.Errorf("%w: %v", ErrPipelineBroken, p.cause)
}

// markBroken marks the pipeline broken and stops any background work the source
// tree still runs, so a discarded pipeline leaks no goroutines.
func (p *Pipeline) markBroken(cause error) {
	p.state = stateBroken
	p.cause = cause
	if p.root != nil {
		_ = p.root.Reset()
	}
}

// IsBroken reports whether the pipeline hit an unrecoverable error, was
// never given a source, or had its source claimed by a merge operator.
func (p *Pipeline) IsBroken() bool {
	return p.state == stateBroken
}

// Next advances the pipeline one step. ok is false at end of stream; any
// returned error marks the pipeline broken.
func (p *Pipeline) Next() (Record, bool, error) {
	switch p.state {
	case stateBroken:
		return Record{}, false, p.brokenErr()
	case stateExhausted:
		return Record{}, false, nil
	}
	rec, ok, err := p.root.Next()
	if err != nil {
		p.markBroken(err)
		return Record{}, false, err
	}
	if !ok {
		p.state = stateExhausted
		return Record{}, false, nil
	}
	p.state = stateIterating
	return rec, true, nil
}

// Reset returns the pipeline to its initial state, as if freshly built. It
// stops all background work in the source tree before resetting it.
func (p *Pipeline) Reset() error {
	if p.state == stateBroken {
		return p.brokenErr()
	}
	if err := p.root.Reset(); err != nil {
		p.markBroken(err)
		return err
	}
	p.state = stateFresh
	return nil
}

// RecordPosition captures the current position on a fresh tape. The core
// does not persist the tape; hosts use Tape.MarshalBinary for that.
func (p *Pipeline) RecordPosition() (*Tape, error) {
	if p.state == stateBroken {
		return nil, p.brokenErr()
	}
	t := NewTape()
	t.RecordBool(p.state == stateExhausted)
	if err := p.root.RecordPosition(t); err != nil {
		p.markBroken(err)
		return nil, err
	}
	return t, nil
}

// ReloadPosition restores a position captured by RecordPosition. In strict
// mode a malformed or insufficient tape fails with a validation error and
// the pipeline is marked broken. In non-strict mode a nil tape is a no-op
// and a malformed tape is tolerated: the failure is logged and the pipeline
// stays at its prior position.
func (p *Pipeline) ReloadPosition(t *Tape, strict bool) error {
	if p.state == stateBroken {
		return p.brokenErr()
	}
	if !strict {
		if t == nil {
			return nil
		}
		snapshot, err := p.RecordPosition()
		if err != nil {
			return err
		}
		if err := p.reload(t); err != nil {
			logger.Warn().Err(err).Msg("discarding malformed position tape")
			if err := p.reload(TapeFrom(snapshot.Storage())); err != nil {
				p.markBroken(err)
				return err
			}
		}
		return nil
	}
	if t == nil {
		err := fmt.Errorf("%w: no position tape", ErrInvalidArgument)
		p.markBroken(err)
		return err
	}
	if err := p.reload(t); err != nil {
		p.markBroken(err)
		return err
	}
	return nil
}

func (p *Pipeline) reload(t *Tape) error {
	exhausted, err := t.ReadBool()
	if err != nil {
		return err
	}
	if err := p.root.ReloadPosition(t); err != nil {
		return err
	}
	if exhausted {
		p.state = stateExhausted
	} else {
		p.state = stateIterating
	}
	return nil
}

// detachRoot moves the root source out of the pipeline, leaving the handle
// rootless and therefore broken. Merge factories use it to take exclusive
// ownership of their sub-pipelines.
func (p *Pipeline) detachRoot() (Source, error) {
	if p.state == stateBroken {
		return nil, p.brokenErr()
	}
	root := p.root
	p.root = nil
	p.state = stateBroken
	p.cause = errors.New("source moved to a merge operator")
	return root, nil
}
