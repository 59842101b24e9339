package certificate

import (
	"fmt"
	"strings"
	"time"
)

// Classification is the normalized record that reaches both the archive and
// the ledger on the success path.
type Classification struct {
	Serial     string
	TestedAt   time.Time
	DeviceType string
	Result     Result
}

// Classify reconciles filename and content findings. It is a pure function:
// the same inputs always produce the same record.
func Classify(name FilenameFacts, nameErr error, content ContentFacts, contentErr error) (Classification, error) {
	if nameErr != nil {
		if IsExpected(nameErr) {
			return Classification{}, nameErr
		}
		return Classification{}, fmt.Errorf("%w: %v", ErrUnsupportedFilename, nameErr)
	}
	if contentErr != nil {
		return Classification{}, WrapExtraction(contentErr)
	}

	serial := strings.ToUpper(strings.TrimSpace(name.Serial))
	if serial == "" {
		serial = strings.TrimSpace(content.FallbackSerial)
	}
	if serial == "" {
		return Classification{}, ErrSerialNotFound
	}

	return Classification{
		Serial:     serial,
		TestedAt:   name.TestedAt,
		DeviceType: strings.TrimSpace(content.DeviceType),
		Result:     NormalizeResult(string(content.Result)),
	}, nil
}

// WrapExtraction tags a text extraction failure as ErrContentExtractionFailed
// while keeping the underlying cause in the chain.
func WrapExtraction(cause error) error {
	if cause == nil {
		return nil
	}
	if IsExpected(cause) {
		return cause
	}
	return fmt.Errorf("%w: %w", ErrContentExtractionFailed, cause)
}
