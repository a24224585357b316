package datapipe

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument reports malformed configuration or arguments:
	// mismatched zip names, a bad selector expression, an out-of-range
	// operator parameter. It is raised synchronously by the call that
	// detects it and never retried.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrCorruptTape reports a malformed or insufficient position tape
	// during ReloadPosition. It wraps ErrInvalidArgument.
	ErrCorruptTape = fmt.Errorf("%w: corrupt position tape", ErrInvalidArgument)

	// ErrTransform reports a failed map, predicate, length-extractor or
	// yield invocation. Fatal unless the invoking operator was configured
	// with WithWarnOnly, in which case the offending item is dropped and
	// the failure logged.
	ErrTransform = errors.New("transform failed")

	// ErrSelectorMismatch reports a selector path that does not match the
	// shape of the record it is resolved against.
	ErrSelectorMismatch = errors.New("selector does not match record")

	// ErrPipeline reports an unrecoverable fault in the execution engine,
	// such as a zip length mismatch. It marks the pipeline broken.
	ErrPipeline = errors.New("data pipeline failed")

	// ErrPipelineBroken is returned by every operation on a pipeline that
	// previously failed, was never given a source, or had its source
	// claimed by a merge operator. A broken pipeline cannot be reset.
	ErrPipelineBroken = errors.New("data pipeline is broken")

	// ErrRecord is the base error for leaf sources that decode stored
	// records. The core only propagates it.
	ErrRecord = errors.New("record error")

	// ErrByteStream is the base error for leaf sources that read raw byte
	// streams. The core only propagates it.
	ErrByteStream = errors.New("byte stream error")
)
