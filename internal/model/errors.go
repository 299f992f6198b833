package model

import (
	"fmt"
	"time"
)

// SourceErrorKind classifies a listing source failure.
type SourceErrorKind int

const (
	SourceTransient SourceErrorKind = iota // network, timeout, 429
	SourceAuth                             // 401
	SourceMalformed                        // body could not be decoded
)

func (k SourceErrorKind) String() string {
	switch k {
	case SourceTransient:
		return "transient"
	case SourceAuth:
		return "auth"
	case SourceMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// SourceError wraps a listing source failure so retry logic can inspect it.
type SourceError struct {
	Kind       SourceErrorKind
	StatusCode int           // zero when no response was received
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *SourceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("source %s (HTTP %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("source %s: %v", e.Kind, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// StoreError wraps a persistence failure. A failed write leaves prior state intact.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// SinkErrorKind classifies a delivery failure.
type SinkErrorKind int

const (
	SinkOther SinkErrorKind = iota
	SinkNotFound
	SinkForbidden
)

func (k SinkErrorKind) String() string {
	switch k {
	case SinkNotFound:
		return "not found"
	case SinkForbidden:
		return "forbidden"
	default:
		return "other"
	}
}

// SinkError wraps a delivery failure for one destination.
type SinkError struct {
	Kind          SinkErrorKind
	DestinationID string
	Err           error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("send to %s (%s): %v", e.DestinationID, e.Kind, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}
