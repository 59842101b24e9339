package certificate

import "strings"

// Result is the normalized outcome of a calibration test.
type Result string

const (
	ResultPass    Result = "PASS"
	ResultFail    Result = "FAIL"
	ResultUnknown Result = "UNKNOWN"
)

// UnknownSerial is recorded when no serial could be resolved.
const UnknownSerial = "UNKNOWN"

// ParseStatus tells whether an event came from a fully parsed certificate.
type ParseStatus string

const (
	ParseStatusOK    ParseStatus = "ok"
	ParseStatusError ParseStatus = "parse_error"
)

// NormalizeResult maps anything but PASS/FAIL to UNKNOWN.
func NormalizeResult(raw string) Result {
	switch Result(strings.ToUpper(strings.TrimSpace(raw))) {
	case ResultPass:
		return ResultPass
	case ResultFail:
		return ResultFail
	default:
		return ResultUnknown
	}
}

// ParseResultFilter accepts only the three stored result values.
func ParseResultFilter(raw string) (Result, bool) {
	switch r := Result(strings.ToUpper(strings.TrimSpace(raw))); r {
	case ResultPass, ResultFail, ResultUnknown:
		return r, true
	default:
		return "", false
	}
}
