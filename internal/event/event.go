// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

// Package event decodes raw broker payloads into sensor events and produces
// redacted copies for unauthenticated viewers.
package event

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
)

// Field names written onto every event. They always reflect where and when
// the relay received the message, whatever the sensor put in the payload.
const (
	FieldIdentifier       = "identifier"
	FieldSourceIdentifier = "source_identifier"
	FieldChannel          = "channel"
	FieldTimestamp        = "timestamp"
	FieldIngestTime       = "ingest_time"
)

// ErrMalformed is matched by errors.Is for payloads that are not a JSON object.
var ErrMalformed = errors.New("malformed event payload")

// DecodeError reports why a payload was rejected.
type DecodeError struct {
	Channel string
	Reason  string
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode event on %q: %s: %v", e.Channel, e.Reason, e.Err)
	}
	return fmt.Sprintf("decode event on %q: %s", e.Channel, e.Reason)
}

// Is makes every DecodeError match ErrMalformed.
func (e *DecodeError) Is(target error) bool {
	return target == ErrMalformed
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Event is one decoded sensor record. Treat it as immutable: Sanitized and
// the cache hand out copies, never the backing map.
type Event struct {
	Payload          map[string]any
	SourceIdentifier string
	Channel          string
	IngestTime       time.Time
}

// Decode parses raw (bytes or string) as a JSON object received from
// sourceIdentifier on channel. Invalid UTF-8 is dropped rather than
// rejected.
func Decode(raw []byte, sourceIdentifier, channel string) (Event, error) {
	return DecodeAt(raw, sourceIdentifier, channel, time.Now())
}

// DecodeString is Decode for payloads that arrive as text.
func DecodeString(raw, sourceIdentifier, channel string) (Event, error) {
	return DecodeAt([]byte(raw), sourceIdentifier, channel, time.Now())
}

// DecodeAt is Decode with an explicit ingest time.
func DecodeAt(raw []byte, sourceIdentifier, channel string, now time.Time) (Event, error) {
	if !utf8.Valid(raw) {
		raw = bytes.ToValidUTF8(raw, nil)
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Event{}, &DecodeError{Channel: channel, Reason: "empty payload"}
	}
	if trimmed[0] != '{' {
		return Event{}, &DecodeError{Channel: channel, Reason: "payload is not a JSON object"}
	}

	var payload map[string]any
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return Event{}, &DecodeError{Channel: channel, Reason: "invalid JSON", Err: err}
	}
	if dec.More() {
		return Event{}, &DecodeError{Channel: channel, Reason: "trailing data after JSON object"}
	}
	if payload == nil {
		payload = map[string]any{}
	}

	ev := Event{
		Payload:          payload,
		SourceIdentifier: sourceIdentifier,
		Channel:          channel,
		IngestTime:       now,
	}
	ev.stamp()
	return ev, nil
}

// stamp overwrites the provenance fields in the payload.
func (e *Event) stamp() {
	e.Payload[FieldIdentifier] = e.SourceIdentifier
	e.Payload[FieldSourceIdentifier] = e.SourceIdentifier
	e.Payload[FieldChannel] = e.Channel
	e.Payload[FieldTimestamp] = EpochSeconds(e.IngestTime)
	e.Payload[FieldIngestTime] = e.IngestTime.UTC().Format(time.RFC3339Nano)
}

// Sanitized returns a copy with every denylisted field removed at any depth.
func (e Event) Sanitized() Event {
	return DefaultSanitizer.Event(e)
}

// MarshalJSON emits the flat payload, provenance fields included.
func (e Event) MarshalJSON() ([]byte, error) {
	if e.Payload == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(e.Payload)
}

// Get returns a top-level payload field.
func (e Event) Get(key string) (any, bool) {
	v, ok := e.Payload[key]
	return v, ok
}

// EpochSeconds converts t to fractional seconds since the Unix epoch.
func EpochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// FromEpochSeconds is the inverse of EpochSeconds, to microsecond precision.
func FromEpochSeconds(s float64) time.Time {
	sec := int64(s)
	usec := int64((s - float64(sec)) * 1e6)
	return time.Unix(sec, usec*int64(time.Microsecond))
}

// ChannelKind returns the part of a channel name before the first dot,
// which by convention names the honeypot (dionaea.connections -> dionaea).
func ChannelKind(channel string) string {
	if i := strings.IndexByte(channel, '.'); i > 0 {
		return channel[:i]
	}
	return channel
}
