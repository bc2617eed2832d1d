package nft

import (
	"errors"
	"fmt"
	"strings"

	"icrc-nft-gallery/internal/ledger"
)

// Validation and guard errors. All are resolved locally, before any
// ledger call is made.
var (
	// ErrInvalidIdentifier is returned when user input does not parse
	// as a principal.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrTokenNotFound is returned when a token identifier is unknown.
	ErrTokenNotFound = errors.New("token not found")

	// ErrNotOwner is returned when an owner-only operation is invoked
	// by a non-owner. This is a UI-level guard; the ledger re-enforces
	// ownership independently.
	ErrNotOwner = errors.New("signed-in identity does not own this token")

	// ErrNotAdmin is returned when mint or burn is invoked by a
	// non-administrator.
	ErrNotAdmin = errors.New("operation restricted to the administrator")

	// ErrMissingField is returned when a mint request omits a required
	// field.
	ErrMissingField = errors.New("name, description and image URL are required")

	// ErrExpiryNotFuture is returned when an approval expiry is not in
	// the future.
	ErrExpiryNotFuture = errors.New("expiry must be a future timestamp")

	// ErrMissingResult is returned when the ledger answers a request
	// batch with no corresponding result element.
	ErrMissingResult = errors.New("ledger returned no result for the request")
)

// BurnError reports the tokens a burn request failed on.
type BurnError struct {
	Failures []ledger.BurnFailure
}

func (e *BurnError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("token %d: %s", f.TokenID, f.Err.Error())
	}
	return "burn failed for " + strings.Join(parts, "; ")
}
