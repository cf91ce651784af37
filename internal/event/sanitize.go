// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

package event

// DefaultRedactedFields are stripped from anything shown to anonymous viewers.
var DefaultRedactedFields = []string{
	"hostIP",
	"local_host",
	"victimIP",
	"password",
	"secret",
}

// DefaultSanitizer redacts DefaultRedactedFields.
var DefaultSanitizer = NewSanitizer()

// Sanitizer removes denylisted keys from decoded JSON values. Key matching
// is exact and case-sensitive.
type Sanitizer struct {
	deny map[string]struct{}
}

// NewSanitizer builds a sanitizer over DefaultRedactedFields plus extra.
// The defaults are always included.
func NewSanitizer(extra ...string) *Sanitizer {
	deny := make(map[string]struct{}, len(DefaultRedactedFields)+len(extra))
	for _, k := range DefaultRedactedFields {
		deny[k] = struct{}{}
	}
	for _, k := range extra {
		if k != "" {
			deny[k] = struct{}{}
		}
	}
	return &Sanitizer{deny: deny}
}

// Denied reports whether key is redacted.
func (s *Sanitizer) Denied(key string) bool {
	_, ok := s.deny[key]
	return ok
}

// Sanitize returns v with denylisted keys removed from every nested object.
// v is never modified; maps and slices are copied, scalars pass through.
func (s *Sanitizer) Sanitize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if s.Denied(k) {
				continue
			}
			out[k] = s.Sanitize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = s.Sanitize(val)
		}
		return out
	default:
		return v
	}
}

// Event returns a sanitized copy of e. Provenance fields are kept.
func (s *Sanitizer) Event(e Event) Event {
	payload, _ := s.Sanitize(e.Payload).(map[string]any)
	if payload == nil {
		payload = map[string]any{}
	}
	e.Payload = payload
	return e
}

// Sanitize applies DefaultSanitizer.
func Sanitize(v any) any {
	return DefaultSanitizer.Sanitize(v)
}
