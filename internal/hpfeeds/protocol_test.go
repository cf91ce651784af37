// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

package hpfeeds

import (
	"bytes"
	"crypto/sha1" //nolint:gosec // test vector for the protocol hash
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, OpPublish, []byte("hello")); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	raw := buf.Bytes()
	if got := binary.BigEndian.Uint32(raw[:4]); got != 10 {
		t.Errorf("length = %d, want 10 (header included)", got)
	}
	if raw[4] != OpPublish {
		t.Errorf("op = %d, want %d", raw[4], OpPublish)
	}

	frame, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if frame.Op != OpPublish || string(frame.Body) != "hello" {
		t.Errorf("frame = %+v", frame)
	}
}

func TestReadFrame_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want error
	}{
		{"empty", nil, io.EOF},
		{"short header", []byte{0, 0}, io.ErrUnexpectedEOF},
		{"length below header", []byte{0, 0, 0, 3, 1}, ErrShortFrame},
		{"too large", []byte{0x7f, 0, 0, 0, 3}, ErrFrameTooLarge},
		{"truncated body", []byte{0, 0, 0, 9, 3, 'a'}, io.ErrUnexpectedEOF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadFrame(bytes.NewReader(tt.raw))
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWriteFrame_TooLarge(t *testing.T) {
	err := WriteFrame(io.Discard, OpPublish, make([]byte, MaxFrameSize))
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("err = %v, want ErrFrameTooLarge", err)
	}
}

func TestAuthHash(t *testing.T) {
	nonce := []byte{1, 2, 3, 4}
	want := sha1.Sum(append([]byte{1, 2, 3, 4}, "s3cret"...)) //nolint:gosec // test vector
	if got := AuthHash(nonce, "s3cret"); !bytes.Equal(got, want[:]) {
		t.Errorf("AuthHash = %x, want %x", got, want)
	}
	if !VerifyAuth(nonce, "s3cret", want[:]) {
		t.Error("VerifyAuth rejected a valid hash")
	}
	if VerifyAuth(nonce, "wrong", want[:]) {
		t.Error("VerifyAuth accepted the wrong secret")
	}
}

func TestInfoAuthEncoding(t *testing.T) {
	body, err := EncodeInfo("mhnbroker", []byte{9, 9, 9, 9})
	if err != nil {
		t.Fatal(err)
	}
	name, nonce, err := DecodeInfo(body)
	if err != nil || name != "mhnbroker" || !bytes.Equal(nonce, []byte{9, 9, 9, 9}) {
		t.Errorf("DecodeInfo = %q %v %v", name, nonce, err)
	}

	auth, err := EncodeAuth("collector", "s", nonce)
	if err != nil {
		t.Fatal(err)
	}
	ident, hash, err := DecodeAuth(auth)
	if err != nil || ident != "collector" || len(hash) != sha1.Size {
		t.Errorf("DecodeAuth = %q %x %v", ident, hash, err)
	}
}

func TestSubscribeEncoding(t *testing.T) {
	body, err := EncodeSubscribe("collector", "dionaea.connections")
	if err != nil {
		t.Fatal(err)
	}
	// channel follows the ident with no length prefix
	if want := "\x09collectordionaea.connections"; string(body) != want {
		t.Errorf("body = %q, want %q", body, want)
	}
	ident, channel, err := DecodeSubscribe(body)
	if err != nil || ident != "collector" || channel != "dionaea.connections" {
		t.Errorf("DecodeSubscribe = %q %q %v", ident, channel, err)
	}
}

func TestPublishEncoding(t *testing.T) {
	body, err := EncodePublish("sensor-1", "cowrie.sessions", []byte(`{"a":1}`))
	if err != nil {
		t.Fatal(err)
	}
	ident, channel, payload, err := DecodePublish(body)
	if err != nil {
		t.Fatal(err)
	}
	if ident != "sensor-1" || channel != "cowrie.sessions" || string(payload) != `{"a":1}` {
		t.Errorf("DecodePublish = %q %q %q", ident, channel, payload)
	}

	if _, _, _, err := DecodePublish([]byte{5, 'a'}); err == nil {
		t.Error("expected error for truncated ident")
	}
	if _, _, _, err := DecodePublish([]byte{1, 'a', 9, 'b'}); err == nil {
		t.Error("expected error for truncated channel")
	}
}

func TestStringTooLong(t *testing.T) {
	if _, err := EncodeSubscribe(strings.Repeat("x", 256), "c"); err == nil {
		t.Error("expected error for 256 byte ident")
	}
}

func TestBrokerErrorIs(t *testing.T) {
	var err error = &BrokerError{Message: "authfail"}
	if !errors.Is(err, ErrAuthFailed) {
		t.Error("authfail should match ErrAuthFailed")
	}
	err = &BrokerError{Message: "accessfail: channel"}
	if !errors.Is(err, ErrAccessDenied) || errors.Is(err, ErrAuthFailed) {
		t.Error("accessfail should match only ErrAccessDenied")
	}
}

func TestOpName(t *testing.T) {
	if OpName(OpSubscribe) != "subscribe" || OpName(42) != "op(42)" {
		t.Errorf("OpName mismatch: %s %s", OpName(OpSubscribe), OpName(42))
	}
}
