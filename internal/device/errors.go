package device

import "errors"

// Error taxonomy for the runtime layer. Configuration and programmer
// errors (bad scalar widths, storage/engine model mismatch) panic
// instead; these sentinels cover conditions a caller can act on.
var (
	// ErrInvalidArg indicates a malformed argument (bad size, bad
	// alignment, malformed range) rejected eagerly at the call site.
	ErrInvalidArg = errors.New("invalid argument")

	// ErrUnsupported indicates a memory model or operation not
	// supported by this build of the runtime.
	ErrUnsupported = errors.New("unsupported configuration")

	// ErrRuntime wraps native-runtime failures (kernel construction,
	// queue state). No structured detail beyond the message survives.
	ErrRuntime = errors.New("runtime error")

	// ErrDoubleFree indicates a second release of an already released
	// resource.
	ErrDoubleFree = errors.New("double release")

	// ErrClosed indicates a submission to a closed queue.
	ErrClosed = errors.New("queue closed")
)
