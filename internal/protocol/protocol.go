// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package protocol models the line-oriented JSON output of the posture
// analyzer process.
package protocol

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrUnknownKind is returned by Encode for a Decoded with no recognized Kind.
var ErrUnknownKind = errors.New("unknown record kind")

// Kind discriminates the record types the analyzer emits.
type Kind string

const (
	KindPosture Kind = "posture"
	KindError   Kind = "error"
	KindStatus  Kind = "status"
)

// Wire defaults for fields the analyzer may omit.
const (
	DefaultPostureLabel  = "unknown"
	DefaultErrorMessage  = "Unknown error"
	DefaultStatusMessage = "Unknown status"
	DefaultErrorCode     = 1
)

// PostureResult is one per-frame detection sample.
type PostureResult struct {
	At        time.Time
	IsLeaning bool
	Posture   string
	Code      int
}

// DetectionError is an error reported by the analyzer, or synthesized locally
// for lines the decoder could not make sense of.
type DetectionError struct {
	At      time.Time
	Message string
	Code    int
}

// StatusUpdate is a lifecycle status line from the analyzer.
type StatusUpdate struct {
	At      time.Time
	Message string
	Code    int
}

// Decoded is the routed form of one analyzer output line. Exactly the field
// matching Kind is populated.
type Decoded struct {
	Kind    Kind
	Posture PostureResult
	Err     DetectionError
	Status  StatusUpdate

	// Malformed marks records synthesized from lines the decoder could not
	// parse; Err then carries the original line.
	Malformed bool
}

// wireRecord mirrors the analyzer's JSON line. Pointer fields distinguish
// absent keys from zero values so wire defaults apply only when a key is
// genuinely missing.
type wireRecord struct {
	Type      *string  `json:"type"`
	Timestamp *float64 `json:"timestamp"`
	IsLeaning *bool    `json:"is_leaning"`
	Posture   *string  `json:"posture"`
	Message   *string  `json:"message"`
	Code      *int     `json:"code"`
}

// Decode parses a single analyzer output line. Lines that are not valid
// records, or whose type is missing or unrecognized, come back as a KindError
// record carrying the original line. Decoding never fails hard: one bad line
// must not take down the stream.
func Decode(line []byte) Decoded {
	var rec wireRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return undecodable(string(line))
	}
	if rec.Type == nil {
		return undecodable(string(line))
	}

	at := time.UnixMilli(0)
	if rec.Timestamp != nil {
		// Wire timestamps are fractional seconds since epoch; keep
		// millisecond precision.
		at = time.UnixMilli(int64(*rec.Timestamp * 1000))
	}

	switch Kind(*rec.Type) {
	case KindPosture:
		p := PostureResult{At: at, Posture: DefaultPostureLabel}
		if rec.IsLeaning != nil {
			p.IsLeaning = *rec.IsLeaning
		}
		if rec.Posture != nil {
			p.Posture = *rec.Posture
		}
		if rec.Code != nil {
			p.Code = *rec.Code
		}
		return Decoded{Kind: KindPosture, Posture: p}
	case KindError:
		e := DetectionError{At: at, Message: DefaultErrorMessage, Code: DefaultErrorCode}
		if rec.Message != nil {
			e.Message = *rec.Message
		}
		if rec.Code != nil {
			e.Code = *rec.Code
		}
		return Decoded{Kind: KindError, Err: e}
	case KindStatus:
		s := StatusUpdate{At: at, Message: DefaultStatusMessage}
		if rec.Message != nil {
			s.Message = *rec.Message
		}
		if rec.Code != nil {
			s.Code = *rec.Code
		}
		return Decoded{Kind: KindStatus, Status: s}
	default:
		return undecodable(string(line))
	}
}

// undecodable wraps an unparsable line as an error-stream record so it stays
// visible without crashing the decoder.
func undecodable(line string) Decoded {
	return Decoded{Kind: KindError, Malformed: true, Err: DetectionError{
		At:      time.Now(),
		Message: line,
		Code:    DefaultErrorCode,
	}}
}

// wireOut is the encode-side mirror of wireRecord. IsLeaning is a pointer so
// false still serializes for posture records.
type wireOut struct {
	Timestamp float64 `json:"timestamp"`
	Type      string  `json:"type"`
	Code      int     `json:"code"`
	IsLeaning *bool   `json:"is_leaning,omitempty"`
	Posture   string  `json:"posture,omitempty"`
	Message   string  `json:"message,omitempty"`
}

// Encode renders d back into the analyzer's wire form.
func Encode(d Decoded) ([]byte, error) {
	switch d.Kind {
	case KindPosture:
		leaning := d.Posture.IsLeaning
		return json.Marshal(wireOut{
			Timestamp: wireTimestamp(d.Posture.At),
			Type:      string(KindPosture),
			Code:      d.Posture.Code,
			IsLeaning: &leaning,
			Posture:   d.Posture.Posture,
		})
	case KindError:
		return json.Marshal(wireOut{
			Timestamp: wireTimestamp(d.Err.At),
			Type:      string(KindError),
			Code:      d.Err.Code,
			Message:   d.Err.Message,
		})
	case KindStatus:
		return json.Marshal(wireOut{
			Timestamp: wireTimestamp(d.Status.At),
			Type:      string(KindStatus),
			Code:      d.Status.Code,
			Message:   d.Status.Message,
		})
	default:
		return nil, ErrUnknownKind
	}
}

func wireTimestamp(at time.Time) float64 {
	return float64(at.UnixMilli()) / 1000
}
