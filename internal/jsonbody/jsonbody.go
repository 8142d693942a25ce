// Package jsonbody classifies an HTTP request body before any business logic
// sees it.
//
// Every request ends up in exactly one of three states:
//
//	Absent:  nothing was sent (no body, an empty body, or an empty JSON array)
//	Valid:   the body decoded cleanly into T
//	Invalid: the body was rejected; Result.Err says why
//
// Classification never returns a Go error. All outcomes are values, so a
// caller that switches on Result.Kind has to deal with each one.
package jsonbody

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

// DefaultLimit is the largest body accepted when Config.Limit is unset (2 MiB).
const DefaultLimit int64 = 2 << 20

// readChunk bounds how much is pulled from the transport per read, so an
// oversized body is noticed after at most one chunk past the limit.
const readChunk = 32 << 10

// Kind is the top-level classification of a request body.
type Kind int

const (
	Absent Kind = iota
	Valid
	Invalid
)

func (k Kind) String() string {
	switch k {
	case Absent:
		return "absent"
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Reason explains an Invalid classification.
type Reason int

const (
	// ReasonOverflowKnownLength: the declared Content-Length exceeds the limit.
	// The body is never read.
	ReasonOverflowKnownLength Reason = iota + 1
	// ReasonOverflow: the streamed body grew past the limit.
	ReasonOverflow
	// ReasonContentType: the media type is missing or not JSON-compatible.
	ReasonContentType
	// ReasonDeserialize: the bytes are not a valid encoding of T.
	ReasonDeserialize
	// ReasonPayload: the transport failed while the body was being read.
	ReasonPayload
)

func (r Reason) String() string {
	switch r {
	case ReasonOverflowKnownLength:
		return "overflow_known_length"
	case ReasonOverflow:
		return "overflow"
	case ReasonContentType:
		return "content_type"
	case ReasonDeserialize:
		return "deserialize"
	case ReasonPayload:
		return "payload"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// Error describes why a body was classified Invalid.
type Error struct {
	Reason   Reason
	Declared int64 // Content-Length, for ReasonOverflowKnownLength
	Limit    int64 // for both overflow reasons
	Err      error // underlying decode or transport error, if any
}

func (e *Error) Error() string {
	switch e.Reason {
	case ReasonOverflowKnownLength:
		return fmt.Sprintf("payload of %d bytes exceeds the limit of %d bytes", e.Declared, e.Limit)
	case ReasonOverflow:
		return fmt.Sprintf("payload exceeds the limit of %d bytes", e.Limit)
	case ReasonContentType:
		return "unsupported or missing Content-Type header"
	case ReasonDeserialize:
		return fmt.Sprintf("error deserializing payload: %v", e.Err)
	case ReasonPayload:
		return fmt.Sprintf("error reading payload: %v", e.Err)
	default:
		return fmt.Sprintf("invalid payload (%s)", e.Reason)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Result is the outcome of Classify. Value is only meaningful when Kind is
// Valid and Err is only set when Kind is Invalid.
type Result[T any] struct {
	Kind  Kind
	Value T
	Err   *Error
}

// AbsentResult, ValidResult and InvalidResult build results directly. They are
// mostly useful in tests of code that consumes a Result.
func AbsentResult[T any]() Result[T] {
	return Result[T]{Kind: Absent}
}

func ValidResult[T any](v T) Result[T] {
	return Result[T]{Kind: Valid, Value: v}
}

func InvalidResult[T any](err *Error) Result[T] {
	return Result[T]{Kind: Invalid, Err: err}
}

// Config controls Classify.
type Config struct {
	// Limit is the maximum body size in bytes. Zero or negative means DefaultLimit.
	Limit int64
	// ContentTypeRequired rejects requests whose media type is not
	// JSON-compatible (and not accepted by AcceptContentType).
	ContentTypeRequired bool
	// AcceptContentType, when set, is consulted for media types that are not
	// JSON-compatible. It receives the lower-cased media type without parameters.
	AcceptContentType func(mediaType string) bool
}

// DefaultConfig returns a 2 MiB limit with content-type enforcement on and no
// extra media types.
func DefaultConfig() Config {
	return Config{
		Limit:               DefaultLimit,
		ContentTypeRequired: true,
	}
}

// AcceptMediaTypes returns a predicate for Config.AcceptContentType that
// accepts exactly the listed media types.
func AcceptMediaTypes(types ...string) func(string) bool {
	if len(types) == 0 {
		return nil
	}
	allowed := make(map[string]struct{}, len(types))
	for _, t := range types {
		allowed[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	return func(mediaType string) bool {
		_, ok := allowed[mediaType]
		return ok
	}
}

func (c Config) limit() int64 {
	if c.Limit <= 0 {
		return DefaultLimit
	}
	return c.Limit
}

// Classify reads and decodes r's body as T.
//
// Checks run in this order, and the first one that decides the outcome wins:
//  1. Content-Length of zero: Absent, body untouched.
//  2. Content-Length above the limit: Invalid(OverflowKnownLength), body untouched.
//  3. Unknown Content-Length and an empty stream: Absent.
//  4. Media type not acceptable (when required): Invalid(ContentType).
//  5. Stream the body; past the limit: Invalid(Overflow); read failure or
//     cancelled request context: Invalid(Payload).
//  6. Zero bytes read: Absent.
//  7. Decode failure: Invalid(Deserialize).
//  8. Body is an empty JSON array: Absent.
//  9. Otherwise Valid.
func Classify[T any](r *http.Request, cfg Config) Result[T] {
	limit := cfg.limit()

	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		return AbsentResult[T]()
	}
	if r.ContentLength > limit {
		return InvalidResult[T](&Error{
			Reason:   ReasonOverflowKnownLength,
			Declared: r.ContentLength,
			Limit:    limit,
		})
	}

	var src io.Reader = r.Body
	if r.ContentLength < 0 {
		// Without a declared length only the stream can say whether a body
		// was sent at all.
		br := bufio.NewReader(r.Body)
		if _, err := br.Peek(1); err != nil {
			if errors.Is(err, io.EOF) {
				return AbsentResult[T]()
			}
			return InvalidResult[T](&Error{Reason: ReasonPayload, Err: err})
		}
		src = br
	}

	if cfg.ContentTypeRequired && !acceptable(r.Header.Get("Content-Type"), cfg.AcceptContentType) {
		return InvalidResult[T](&Error{Reason: ReasonContentType})
	}

	body, bodyErr := readBody(r.Context(), src, r.ContentLength, limit)
	if bodyErr != nil {
		return InvalidResult[T](bodyErr)
	}
	if len(body) == 0 {
		return AbsentResult[T]()
	}

	var value T
	if err := decode(body, &value); err != nil {
		return InvalidResult[T](&Error{Reason: ReasonDeserialize, Err: err})
	}
	if isEmptyArray(body) {
		return AbsentResult[T]()
	}
	return ValidResult(value)
}

// acceptable reports whether the Content-Type header names a JSON-compatible
// media type: application/json, any */json subtype, any +json suffix, or one
// the caller's predicate accepts.
func acceptable(header string, accept func(string) bool) bool {
	if header == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return false
	}
	if strings.HasSuffix(mediaType, "/json") || strings.HasSuffix(mediaType, "+json") {
		return true
	}
	return accept != nil && accept(mediaType)
}

func readBody(ctx context.Context, src io.Reader, capHint, limit int64) ([]byte, *Error) {
	if capHint < 0 || capHint > limit {
		capHint = 0
	}
	body := make([]byte, 0, capHint)
	chunk := make([]byte, readChunk)

	for {
		if err := ctx.Err(); err != nil {
			return nil, &Error{Reason: ReasonPayload, Err: err}
		}

		n, err := src.Read(chunk)
		if n > 0 {
			if int64(len(body))+int64(n) > limit {
				return nil, &Error{Reason: ReasonOverflow, Limit: limit}
			}
			body = append(body, chunk[:n]...)
		}
		if errors.Is(err, io.EOF) {
			return body, nil
		}
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return nil, &Error{Reason: ReasonOverflow, Limit: limit}
			}
			return nil, &Error{Reason: ReasonPayload, Err: err}
		}
	}
}

// decode is strict: unknown object fields and anything after the first JSON
// value are errors.
func decode(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}

func isEmptyArray(body []byte) bool {
	var trimmed [2]byte
	n := 0
	for _, b := range body {
		switch b {
		case ' ', '\t', '\n', '\r', '\f':
			continue
		}
		if n == len(trimmed) {
			return false
		}
		trimmed[n] = b
		n++
	}
	return n == 2 && trimmed[0] == '[' && trimmed[1] == ']'
}
