package rst

import (
	"errors"
	"fmt"

	"github.com/dgallion1/xml2rst/internal/adornment"
)

var (
	ErrUnsupportedElement = errors.New("unsupported element")

	// ErrDepthExhausted matches *adornment.DepthError values returned by
	// Render when sections nest deeper than the adornment specification.
	ErrDepthExhausted = adornment.ErrDepthExhausted
)

// UnsupportedElementError names an element the renderer has no rule for.
type UnsupportedElementError struct {
	Role   string
	Path   string
	Reason string
}

func (e *UnsupportedElementError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported element <%s> at %s: %s", e.Role, e.Path, e.Reason)
	}
	return fmt.Sprintf("unsupported element <%s> at %s", e.Role, e.Path)
}

func (e *UnsupportedElementError) Is(target error) bool {
	return target == ErrUnsupportedElement
}
