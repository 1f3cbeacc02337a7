package sound

import "errors"

// Common errors for the sound system.
var (
	// Engine errors
	ErrEngineNotReady = errors.New("playback engine is not ready")
	ErrEngineClosed   = errors.New("playback engine has been shut down")

	// Emitter errors
	ErrEmitterClosed  = errors.New("emitter has been closed")
	ErrNoClip         = errors.New("no clip assigned to emitter")
	ErrSeekOutOfRange = errors.New("seek offset outside clip duration")

	// Pool errors
	ErrInvalidPoolSize = errors.New("pool size must be positive")
	ErrPoolClosed      = errors.New("slot pool has been closed")

	// Dispatcher errors
	ErrEmptyClipSet        = errors.New("clip set is empty")
	ErrDispatcherClosed    = errors.New("dispatcher has been closed")
	ErrUnsupportedClipData = errors.New("unsupported clip data format")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid sound configuration")
)

// IsRecoverableError checks if an error is recoverable: the caller may
// simply drop the play request and continue.
func IsRecoverableError(err error) bool {
	if err == nil {
		return true
	}

	switch {
	case errors.Is(err, ErrEngineClosed),
		errors.Is(err, ErrPoolClosed),
		errors.Is(err, ErrDispatcherClosed),
		errors.Is(err, ErrInvalidConfig):
		return false
	}

	return true
}
