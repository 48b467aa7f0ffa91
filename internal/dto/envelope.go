package dto

import (
	"encoding/json"
	"time"

	apperrors "bucheron/internal/errors"
)

// Response is the envelope every API endpoint answers with.
type Response struct {
	Success   bool                         `json:"success"`
	Data      interface{}                  `json:"data,omitempty"`
	Message   string                       `json:"message,omitempty"`
	Type      string                       `json:"type,omitempty"`
	Details   []apperrors.ValidationDetail `json:"details,omitempty"`
	TraceID   string                       `json:"traceId,omitempty"`
	Timestamp time.Time                    `json:"timestamp"`
}

// RawResponse is the client-side view of Response with data left undecoded.
type RawResponse struct {
	Success bool                         `json:"success"`
	Data    json.RawMessage              `json:"data"`
	Message string                       `json:"message"`
	Type    string                       `json:"type"`
	Details []apperrors.ValidationDetail `json:"details"`
	TraceID string                       `json:"traceId"`
}

const (
	TypeValidation       = "VALIDATION_ERROR"
	TypeNotFound         = "NOT_FOUND"
	TypeConflict         = "CONFLICT"
	TypeDeadlock         = "DEADLOCK"
	TypeUnsupportedMedia = "UNSUPPORTED_MEDIA_TYPE"
	TypeTooLarge         = "PAYLOAD_TOO_LARGE"
	TypeInternal         = "INTERNAL_ERROR"
)
