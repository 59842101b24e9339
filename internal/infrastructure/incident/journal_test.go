package incident

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gasdock/internal/ports"
)

func TestJournalAppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "incidents.jsonl")
	j := NewJournal(path)
	ctx := context.Background()

	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for _, stage := range []string{"recording", "quarantining"} {
		if err := j.Report(ctx, ports.Incident{
			IngestID:   "id-" + stage,
			Path:       "/import/a.pdf",
			Stage:      stage,
			Cause:      "boom",
			OccurredAt: at,
		}); err != nil {
			t.Fatalf("Report(%s) error = %v", stage, err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer f.Close()

	var got []record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var r record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatalf("unmarshal line %q: %v", scanner.Text(), err)
		}
		got = append(got, r)
	}
	if len(got) != 2 {
		t.Fatalf("journal lines = %d, want 2", len(got))
	}
	if got[1].Stage != "quarantining" || got[1].OccurredAt != "2026-03-01T08:00:00Z" {
		t.Fatalf("second record = %+v", got[1])
	}
}
