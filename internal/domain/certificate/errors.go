package certificate

import "errors"

// Expected per-file failures. The watch loop quarantines the file and
// records a parse_error event for each of them; none aborts the loop.
var (
	ErrUnsupportedFilename     = errors.New("unsupported filename")
	ErrContentExtractionFailed = errors.New("content extraction failed")
	ErrSerialNotFound          = errors.New("serial not found in filename or document")
	ErrFileVanished            = errors.New("file vanished while waiting for it to settle")
)

// Failures after a file has left the import directory.
var (
	ErrRelocationFailed  = errors.New("relocation failed")
	ErrPersistenceFailed = errors.New("persistence failed")
)

// IsExpected reports whether err belongs to the closed set of per-file
// failures that route a certificate to quarantine.
func IsExpected(err error) bool {
	return errors.Is(err, ErrUnsupportedFilename) ||
		errors.Is(err, ErrContentExtractionFailed) ||
		errors.Is(err, ErrSerialNotFound) ||
		errors.Is(err, ErrFileVanished) ||
		errors.Is(err, ErrRelocationFailed)
}
