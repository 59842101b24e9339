package certificate

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	deviceTypePattern     = regexp.MustCompile(`(?im)^\s*Device\s*type\s*[:\-]?\s*(.+?)\s*$`)
	overallResultPattern  = regexp.MustCompile(`(?i)Overall\s*result\s*[:\-]?\s*(Passed|Failed)`)
	fallbackSerialPattern = regexp.MustCompile(`\b[A-Z0-9]{8}\b`)
)

// ContentFacts is what the certificate body says about the device.
// Empty strings mean the label was not found.
type ContentFacts struct {
	DeviceType     string
	Result         Result
	FullText       string
	FallbackSerial string
}

// ExtractContent searches the concatenated page text for the device type,
// the overall result and a fallback serial candidate. A missing or
// unrecognized result label is not an error; Result stays empty.
func ExtractContent(pages []string) ContentFacts {
	normalized := make([]string, 0, len(pages))
	for _, page := range pages {
		normalized = append(normalized, norm.NFKC.String(page))
	}
	text := strings.Join(normalized, "\n")

	facts := ContentFacts{FullText: text}

	if m := deviceTypePattern.FindStringSubmatch(text); m != nil {
		facts.DeviceType = strings.TrimSpace(m[1])
	}

	if m := overallResultPattern.FindStringSubmatch(text); m != nil {
		switch strings.ToLower(m[1]) {
		case "passed":
			facts.Result = ResultPass
		case "failed":
			facts.Result = ResultFail
		}
	}

	facts.FallbackSerial = fallbackSerialPattern.FindString(text)
	return facts
}
