package certificate

import "testing"

func TestExtractContentResultLabels(t *testing.T) {
	cases := []struct {
		text string
		want Result
	}{
		{text: "Overall result: Passed", want: ResultPass},
		{text: "overall RESULT - failed", want: ResultFail},
		{text: "Overall result: Pending", want: ""},
		{text: "no label here", want: ""},
	}

	for _, tc := range cases {
		got := ExtractContent([]string{tc.text})
		if got.Result != tc.want {
			t.Fatalf("ExtractContent(%q) result = %q, want %q", tc.text, got.Result, tc.want)
		}
	}
}

func TestExtractContentDeviceTypeAndFallbackSerial(t *testing.T) {
	pages := []string{
		"Calibration certificate\nDevice type:   X-am 2500  \nSerial ARRJ3290",
		"Overall result: Passed",
	}

	got := ExtractContent(pages)
	if got.DeviceType != "X-am 2500" {
		t.Fatalf("ExtractContent() device_type = %q", got.DeviceType)
	}
	if got.Result != ResultPass {
		t.Fatalf("ExtractContent() result = %q", got.Result)
	}
	if got.FallbackSerial != "ARRJ3290" {
		t.Fatalf("ExtractContent() fallback serial = %q", got.FallbackSerial)
	}
	if got.FullText != pages[0]+"\n"+pages[1] {
		t.Fatalf("ExtractContent() full text = %q", got.FullText)
	}
}

func TestExtractContentDeviceTypeFirstMatchCaseInsensitive(t *testing.T) {
	got := ExtractContent([]string{"DEVICE TYPE - Pac 8000\nDevice type: X-am 2500"})
	if got.DeviceType != "Pac 8000" {
		t.Fatalf("ExtractContent() device_type = %q, want Pac 8000", got.DeviceType)
	}
}

func TestExtractContentNormalizesCompatibilityForms(t *testing.T) {
	// Full-width letters as emitted by some PDF generators.
	got := ExtractContent([]string{"Overall result: Ｐａｓｓｅｄ"})
	if got.Result != ResultPass {
		t.Fatalf("ExtractContent() result = %q, want PASS", got.Result)
	}
}

func TestExtractContentDeviceTypeOnNextLine(t *testing.T) {
	got := ExtractContent([]string{"Device type:\nX-am 2500\nOverall result: Passed"})
	if got.DeviceType != "X-am 2500" {
		t.Fatalf("ExtractContent() device_type = %q, want X-am 2500", got.DeviceType)
	}
}
