package field

import (
	"errors"
	"fmt"
)

// ErrCRSMismatch is returned when points and boundary do not share one
// coordinate reference. Alignment happens upstream; the core refuses
// mismatched input rather than reprojecting.
var ErrCRSMismatch = errors.New("coordinate reference systems do not match")

// ErrMissingCRS is returned when a layer carries no CRS at all.
var ErrMissingCRS = errors.New("layer has no coordinate reference system")

// EnsureSameCRS verifies two CRS identifiers are present and equal.
func EnsureSameCRS(a, b string) error {
	if a == "" || b == "" {
		return ErrMissingCRS
	}
	if a != b {
		return fmt.Errorf("%w: %q vs %q", ErrCRSMismatch, a, b)
	}
	return nil
}
