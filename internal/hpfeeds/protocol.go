// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

// Package hpfeeds implements the hpfeeds publish/subscribe wire protocol
// used by MHN honeypot sensors.
//
// Every frame is a 5-byte header followed by an op-specific body:
//
//	uint32 length (big endian, header included) | uint8 op | body
//
// Strings inside bodies are length-prefixed with a single byte ("strpack8").
// Clients authenticate with SHA1(nonce || secret), where the nonce comes
// from the broker's INFO frame.
package hpfeeds

import (
	"bytes"
	"crypto/sha1" //nolint:gosec // SHA1 is mandated by the hpfeeds auth handshake
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Op codes.
const (
	OpError       byte = 0
	OpInfo        byte = 1
	OpAuth        byte = 2
	OpPublish     byte = 3
	OpSubscribe   byte = 4
	OpUnsubscribe byte = 5
)

const (
	headerSize = 5

	// MaxFrameSize bounds a single frame, header included.
	MaxFrameSize = 1 << 20

	// NonceSize is the length of the INFO nonce.
	NonceSize = 4
)

var (
	ErrFrameTooLarge = errors.New("hpfeeds: frame exceeds maximum size")
	ErrShortFrame    = errors.New("hpfeeds: frame shorter than its header")
	ErrUnexpectedOp  = errors.New("hpfeeds: unexpected op")
	ErrAuthFailed    = errors.New("hpfeeds: authentication failed")
	ErrAccessDenied  = errors.New("hpfeeds: access denied")
)

// Frame is one decoded protocol unit.
type Frame struct {
	Op   byte
	Body []byte
}

// OpName returns a readable name for op.
func OpName(op byte) string {
	switch op {
	case OpError:
		return "error"
	case OpInfo:
		return "info"
	case OpAuth:
		return "auth"
	case OpPublish:
		return "publish"
	case OpSubscribe:
		return "subscribe"
	case OpUnsubscribe:
		return "unsubscribe"
	default:
		return fmt.Sprintf("op(%d)", op)
	}
}

// ReadFrame reads exactly one frame from r.
func ReadFrame(r io.Reader) (Frame, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, err
	}
	size := binary.BigEndian.Uint32(hdr[:4])
	if size < headerSize {
		return Frame{}, ErrShortFrame
	}
	if size > MaxFrameSize {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}
	body := make([]byte, size-headerSize)
	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Frame{}, err
	}
	return Frame{Op: hdr[4], Body: body}, nil
}

// AppendFrame appends the encoded frame to dst.
func AppendFrame(dst []byte, op byte, body []byte) ([]byte, error) {
	size := headerSize + len(body)
	if size > MaxFrameSize {
		return dst, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}
	dst = binary.BigEndian.AppendUint32(dst, uint32(size)) //nolint:gosec // bounded by MaxFrameSize
	dst = append(dst, op)
	return append(dst, body...), nil
}

// WriteFrame writes one frame to w in a single Write call.
func WriteFrame(w io.Writer, op byte, body []byte) error {
	buf, err := AppendFrame(make([]byte, 0, headerSize+len(body)), op, body)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

func appendString8(dst []byte, s string) ([]byte, error) {
	if len(s) > 255 {
		return dst, fmt.Errorf("hpfeeds: string %q longer than 255 bytes", s[:32])
	}
	dst = append(dst, byte(len(s)))
	return append(dst, s...), nil
}

func readString8(b []byte) (string, []byte, error) {
	if len(b) < 1 {
		return "", nil, io.ErrUnexpectedEOF
	}
	n := int(b[0])
	if len(b) < 1+n {
		return "", nil, io.ErrUnexpectedEOF
	}
	return string(b[1 : 1+n]), b[1+n:], nil
}

// AuthHash computes SHA1(nonce || secret).
func AuthHash(nonce []byte, secret string) []byte {
	h := sha1.New() //nolint:gosec // protocol requirement
	h.Write(nonce)
	h.Write([]byte(secret))
	return h.Sum(nil)
}

// EncodeInfo builds an INFO body: strpack8(name) | nonce.
func EncodeInfo(name string, nonce []byte) ([]byte, error) {
	b, err := appendString8(nil, name)
	if err != nil {
		return nil, err
	}
	return append(b, nonce...), nil
}

// DecodeInfo splits an INFO body into broker name and nonce.
func DecodeInfo(body []byte) (name string, nonce []byte, err error) {
	name, rest, err := readString8(body)
	if err != nil {
		return "", nil, fmt.Errorf("hpfeeds: bad info frame: %w", err)
	}
	return name, rest, nil
}

// EncodeAuth builds an AUTH body: strpack8(ident) | SHA1(nonce || secret).
func EncodeAuth(ident, secret string, nonce []byte) ([]byte, error) {
	b, err := appendString8(nil, ident)
	if err != nil {
		return nil, err
	}
	return append(b, AuthHash(nonce, secret)...), nil
}

// DecodeAuth splits an AUTH body into ident and hash.
func DecodeAuth(body []byte) (ident string, hash []byte, err error) {
	ident, rest, err := readString8(body)
	if err != nil {
		return "", nil, fmt.Errorf("hpfeeds: bad auth frame: %w", err)
	}
	return ident, rest, nil
}

// VerifyAuth reports whether hash proves knowledge of secret for nonce.
func VerifyAuth(nonce []byte, secret string, hash []byte) bool {
	return bytes.Equal(AuthHash(nonce, secret), hash)
}

// EncodeSubscribe builds a SUBSCRIBE (or UNSUBSCRIBE) body:
// strpack8(ident) | channel. The channel is not length-prefixed.
func EncodeSubscribe(ident, channel string) ([]byte, error) {
	b, err := appendString8(nil, ident)
	if err != nil {
		return nil, err
	}
	return append(b, channel...), nil
}

// DecodeSubscribe splits a SUBSCRIBE body into ident and channel.
func DecodeSubscribe(body []byte) (ident, channel string, err error) {
	ident, rest, err := readString8(body)
	if err != nil {
		return "", "", fmt.Errorf("hpfeeds: bad subscribe frame: %w", err)
	}
	return ident, string(rest), nil
}

// EncodePublish builds a PUBLISH body:
// strpack8(ident) | strpack8(channel) | payload.
func EncodePublish(ident, channel string, payload []byte) ([]byte, error) {
	b, err := appendString8(make([]byte, 0, 2+len(ident)+len(channel)+len(payload)), ident)
	if err != nil {
		return nil, err
	}
	if b, err = appendString8(b, channel); err != nil {
		return nil, err
	}
	return append(b, payload...), nil
}

// DecodePublish splits a PUBLISH body. The returned payload aliases body.
func DecodePublish(body []byte) (ident, channel string, payload []byte, err error) {
	ident, rest, err := readString8(body)
	if err != nil {
		return "", "", nil, fmt.Errorf("hpfeeds: bad publish frame: %w", err)
	}
	channel, payload, err = readString8(rest)
	if err != nil {
		return "", "", nil, fmt.Errorf("hpfeeds: bad publish frame: %w", err)
	}
	return ident, channel, payload, nil
}

// BrokerError is an ERROR frame sent by the broker.
type BrokerError struct {
	Message string
}

func (e *BrokerError) Error() string {
	return "hpfeeds: broker error: " + e.Message
}

// Is maps the broker's well-known messages onto sentinel errors.
func (e *BrokerError) Is(target error) bool {
	switch target {
	case ErrAuthFailed:
		return strings.HasPrefix(e.Message, "authfail")
	case ErrAccessDenied:
		return strings.HasPrefix(e.Message, "accessfail")
	}
	return false
}
