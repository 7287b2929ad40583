package model

import (
	"encoding/json"
	"time"
)

// Field names injected by the receiver. Forwarder-supplied values for these
// keys are always overwritten.
const (
	FieldReceivedAt = "received_at"
	FieldSource     = "source"
)

// Record is a single ingested log event: the forwarder's decoded JSON object
// plus the two receiver-stamped fields. A Record is immutable once built;
// the store hands out copies of the struct, and nothing mutates the fields
// map or the serialized form after construction.
type Record struct {
	fields map[string]any
	raw    []byte // canonical JSON including stamped fields
}

// NewRecord stamps the decoded object with the receive timestamp and the
// originating peer address, then freezes it. The stamped values win over any
// forwarder-supplied "received_at" or "source".
func NewRecord(fields map[string]any, source string, receivedAt time.Time) (Record, error) {
	fields[FieldReceivedAt] = receivedAt.UTC().Format(time.RFC3339Nano)
	fields[FieldSource] = source

	raw, err := json.Marshal(fields)
	if err != nil {
		return Record{}, err
	}
	return Record{fields: fields, raw: raw}, nil
}

// Field returns a stamped or forwarder-supplied field value.
func (r Record) Field(name string) (any, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// Source returns the stamped peer address.
func (r Record) Source() string {
	s, _ := r.fields[FieldSource].(string)
	return s
}

// ReceivedAt returns the stamped receive timestamp.
func (r Record) ReceivedAt() string {
	s, _ := r.fields[FieldReceivedAt].(string)
	return s
}

// JSON returns the record's canonical serialized form. Callers must not
// modify the returned slice.
func (r Record) JSON() []byte {
	return r.raw
}

// Size returns the serialized length in bytes, used for ingest accounting.
func (r Record) Size() int {
	return len(r.raw)
}

// MarshalJSON emits the canonical form directly so query responses never
// re-serialize stored records.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.raw == nil {
		return []byte("null"), nil
	}
	return r.raw, nil
}
