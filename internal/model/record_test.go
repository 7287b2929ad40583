package model

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestNewRecord_StampsOverwriteForwarderFields(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 3, 14, 9, 26, 53, 589793238, time.UTC)

	// A forwarder trying to spoof the stamped fields loses to the receiver.
	rec, err := NewRecord(map[string]any{
		"message":       "login failed",
		FieldReceivedAt: "1999-01-01T00:00:00Z",
		FieldSource:     "evil:1",
	}, "192.168.1.50:51234", now)
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}

	if got := rec.Source(); got != "192.168.1.50:51234" {
		t.Errorf("Source = %q, want %q", got, "192.168.1.50:51234")
	}
	if got, want := rec.ReceivedAt(), now.Format(time.RFC3339Nano); got != want {
		t.Errorf("ReceivedAt = %q, want %q", got, want)
	}
	if _, err := time.Parse(time.RFC3339Nano, rec.ReceivedAt()); err != nil {
		t.Errorf("ReceivedAt %q does not parse as RFC3339Nano: %v", rec.ReceivedAt(), err)
	}
}

func TestNewRecord_TimestampIsUTC(t *testing.T) {
	t.Parallel()
	loc := time.FixedZone("PST", -8*3600)
	local := time.Date(2025, 6, 1, 15, 0, 0, 0, loc)

	rec, err := NewRecord(map[string]any{"m": "x"}, "a:1", local)
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	if got, want := rec.ReceivedAt(), "2025-06-01T23:00:00Z"; got != want {
		t.Errorf("ReceivedAt = %q, want UTC %q", got, want)
	}
}

func TestRecord_JSONCarriesAllFields(t *testing.T) {
	t.Parallel()
	rec, err := NewRecord(map[string]any{
		"event_id": int64(4625),
		"message":  "An account failed to log on",
	}, "10.1.2.3:4000", time.Now())
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(rec.JSON(), &decoded); err != nil {
		t.Fatalf("canonical form is not valid JSON: %v", err)
	}
	if decoded["message"] != "An account failed to log on" {
		t.Errorf("message = %v, want original value", decoded["message"])
	}
	if decoded[FieldSource] != "10.1.2.3:4000" {
		t.Errorf("source = %v, want stamped address", decoded[FieldSource])
	}
	if _, ok := decoded[FieldReceivedAt]; !ok {
		t.Error("canonical form is missing received_at")
	}
	if rec.Size() != len(rec.JSON()) {
		t.Errorf("Size = %d, want %d", rec.Size(), len(rec.JSON()))
	}
}

func TestRecord_MarshalJSONEmitsCanonicalForm(t *testing.T) {
	t.Parallel()
	rec, err := NewRecord(map[string]any{"message": "hi"}, "a:1", time.Now())
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}

	out, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(out, rec.JSON()) {
		t.Errorf("Marshal = %s, want canonical %s", out, rec.JSON())
	}
}

func TestRecord_ZeroValueMarshalsAsNull(t *testing.T) {
	t.Parallel()
	out, err := json.Marshal(Record{})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != "null" {
		t.Errorf("Marshal = %s, want null", out)
	}
}
