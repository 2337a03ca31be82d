package lifecycle

import "errors"

var (
	// ErrOriginalNotFound means no original matched the device-scoped lookup.
	ErrOriginalNotFound = errors.New("Original not found")
	// ErrCartoonNotFound means no cartoon matched the device-scoped lookup.
	ErrCartoonNotFound = errors.New("Cartoon not found")
	// ErrAlreadyFinalized means a downloaded face already exists for the
	// original. Finalization is one-way and one-time; a repeat attempt is a
	// client-correctable conflict, not a server fault.
	ErrAlreadyFinalized = errors.New("Face-cut already exists for this original image")
)
