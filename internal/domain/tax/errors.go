package tax

import (
	"errors"
	"fmt"

	"github.com/erp/gst/internal/domain/shared"
)

// CodeInvalidStateName is the domain error code for unknown place-of-supply names.
const CodeInvalidStateName = "INVALID_STATE_NAME"

// ErrInvalidStateName matches any *InvalidStateError via errors.Is.
var ErrInvalidStateName = errors.New("invalid state name")

// InvalidStateError reports a state or union territory name that is not in
// the reference lists.
type InvalidStateError struct {
	State string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("Invalid state: %s", e.State)
}

// Is lets callers test with errors.Is(err, ErrInvalidStateName).
func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidStateName
}

// Unwrap exposes the error as a *shared.DomainError so the HTTP layer can map
// it like any other business error.
func (e *InvalidStateError) Unwrap() error {
	return shared.NewDomainError(CodeInvalidStateName, e.Error())
}
