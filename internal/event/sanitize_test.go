// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

package event

import (
	"reflect"
	"testing"
)

// containsDenied walks v and reports any denylisted key at any depth.
func containsDenied(s *Sanitizer, v any) bool {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if s.Denied(k) || containsDenied(s, val) {
				return true
			}
		}
	case []any:
		for _, val := range t {
			if containsDenied(s, val) {
				return true
			}
		}
	}
	return false
}

func TestSanitize_RemovesDeniedKeysAtAnyDepth(t *testing.T) {
	input := map[string]any{
		"src_ip":   "1.2.3.4",
		"hostIP":   "10.0.0.5",
		"password": "hunter2",
		"session": map[string]any{
			"victimIP":   "10.0.0.6",
			"local_host": "sensor.lan",
			"commands":   []any{"uname -a", map[string]any{"secret": "x", "cmd": "id"}},
		},
		"list": []any{[]any{map[string]any{"password": "p"}}},
	}

	out := Sanitize(input)
	if containsDenied(DefaultSanitizer, out) {
		t.Fatalf("sanitized output still contains denied keys: %v", out)
	}

	m := out.(map[string]any)
	if m["src_ip"] != "1.2.3.4" {
		t.Errorf("src_ip lost: %v", m)
	}
	session := m["session"].(map[string]any)
	cmds := session["commands"].([]any)
	if cmds[0] != "uname -a" {
		t.Errorf("scalar list element changed: %v", cmds[0])
	}
	if inner := cmds[1].(map[string]any); inner["cmd"] != "id" {
		t.Errorf("nested map lost allowed key: %v", inner)
	}
}

func TestSanitize_DoesNotMutateInput(t *testing.T) {
	input := map[string]any{
		"password": "p",
		"nested":   map[string]any{"secret": "s", "ok": true},
		"arr":      []any{map[string]any{"hostIP": "h"}},
	}
	snapshot := map[string]any{
		"password": "p",
		"nested":   map[string]any{"secret": "s", "ok": true},
		"arr":      []any{map[string]any{"hostIP": "h"}},
	}

	_ = Sanitize(input)
	if !reflect.DeepEqual(input, snapshot) {
		t.Errorf("input mutated: %v", input)
	}
}

func TestSanitize_Scalars(t *testing.T) {
	for _, v := range []any{nil, "password", 3.5, true} {
		if got := Sanitize(v); got != v {
			t.Errorf("Sanitize(%v) = %v", v, got)
		}
	}
}

func TestSanitize_CaseSensitive(t *testing.T) {
	out := Sanitize(map[string]any{"Password": "kept", "hostip": "kept"}).(map[string]any)
	if len(out) != 2 {
		t.Errorf("keys differing in case should be kept: %v", out)
	}
}

func TestNewSanitizer_ExtendsDefaults(t *testing.T) {
	s := NewSanitizer("username", "")
	out := s.Sanitize(map[string]any{"username": "root", "password": "x", "port": 22}).(map[string]any)
	if _, ok := out["username"]; ok {
		t.Error("extra key should be redacted")
	}
	if _, ok := out["password"]; ok {
		t.Error("default key should still be redacted")
	}
	if out["port"] != 22 {
		t.Error("unrelated key should be kept")
	}
}

func TestEvent_Sanitized(t *testing.T) {
	ev, err := DecodeString(`{"src_ip":"1.2.3.4","password":"x"}`, "ident", "malware")
	if err != nil {
		t.Fatal(err)
	}
	clean := ev.Sanitized()

	if _, ok := clean.Payload["password"]; ok {
		t.Error("password should be redacted")
	}
	if clean.Payload["src_ip"] != "1.2.3.4" {
		t.Error("src_ip should be kept")
	}
	if clean.SourceIdentifier != "ident" || clean.Channel != "malware" || !clean.IngestTime.Equal(ev.IngestTime) {
		t.Error("provenance must survive sanitization")
	}
	if _, ok := ev.Payload["password"]; !ok {
		t.Error("original event must not be mutated")
	}
}
