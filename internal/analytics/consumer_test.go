package analytics

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"patient-management-api/internal/event"
)

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("bad log line %q: %v", sc.Text(), err)
		}
		out = append(out, m)
	}
	return out
}

func TestHandleValidEvent(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsumer(zerolog.New(&buf))

	c.Handle(context.Background(), event.Marshal(&event.PatientEvent{
		PatientID: "p-1", Name: "Alice", Email: "alice@x.com", EventType: event.TypePatientCreated,
	}))

	lines := logLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d", len(lines))
	}
	l := lines[0]
	if l["level"] != "info" || l["patient_id"] != "p-1" || l["patient_name"] != "Alice" || l["patient_email"] != "alice@x.com" {
		t.Errorf("unexpected log line %v", l)
	}
}

func TestHandleMalformedThenValid(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsumer(zerolog.New(&buf))

	stream := [][]byte{
		{0xff, 0xff, 0xff},
		event.Marshal(&event.PatientEvent{PatientID: "p-2", Name: "Bob", Email: "bob@x.com"}),
	}
	for _, body := range stream {
		c.Handle(context.Background(), body)
	}

	lines := logLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(lines))
	}
	if lines[0]["level"] != "error" || lines[0]["message"] != "error deserializing event" || lines[0]["error"] == nil {
		t.Errorf("expected decode error log, got %v", lines[0])
	}
	if lines[1]["level"] != "info" || lines[1]["patient_id"] != "p-2" {
		t.Errorf("expected valid event after malformed one, got %v", lines[1])
	}
}
