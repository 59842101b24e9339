package certificate

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// SerialLength is the number of significant trailing characters of the
// filename token.
const SerialLength = 8

var filenamePattern = regexp.MustCompile(`(?i)^(\d{8})_(\d{2})_(\d{2})_(\d{2})_([A-Za-z0-9]+?)_Calibration`)

// FilenameFacts is what the certificate file name encodes.
type FilenameFacts struct {
	TestedAt time.Time
	Serial   string
}

// ParseFilename reads the test timestamp and device serial from a bare file
// name such as 20260224_10_52_38_8323918ARRJ3290_Calibration_EN.pdf.
// The timestamp is interpreted in loc (UTC when nil).
func ParseFilename(name string, loc *time.Location) (FilenameFacts, error) {
	if loc == nil {
		loc = time.UTC
	}

	m := filenamePattern.FindStringSubmatch(name)
	if m == nil {
		return FilenameFacts{}, fmt.Errorf("%w: %q", ErrUnsupportedFilename, name)
	}

	testedAt, err := time.ParseInLocation("20060102150405", m[1]+m[2]+m[3]+m[4], loc)
	if err != nil {
		return FilenameFacts{}, fmt.Errorf("%w: %q: %v", ErrUnsupportedFilename, name, err)
	}

	token := m[5]
	if len(token) > SerialLength {
		token = token[len(token)-SerialLength:]
	}

	return FilenameFacts{
		TestedAt: testedAt,
		Serial:   strings.ToUpper(token),
	}, nil
}
