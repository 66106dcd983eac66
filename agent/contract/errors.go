package contract

import "errors"

var (
	ErrValidation       = errors.New("validation failed")
	ErrStageInactive    = errors.New("stage is not active")
	ErrInvariant        = errors.New("flow invariant violated")
	ErrUnknownAction    = errors.New("unknown action")
	ErrAlreadyConfirmed = errors.New("order already confirmed")
	ErrUnknownSession   = errors.New("unknown session")
	ErrModelInvoke      = errors.New("model invoke failed")
	ErrPromptMissing    = errors.New("required prompt is missing")
)
