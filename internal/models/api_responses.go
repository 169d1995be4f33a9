// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package models

import "time"

// APIResponse is the error envelope. Successful responses are bare JSON
// arrays and objects for compatibility with the existing web client.
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "data": null,
//	  "metadata": {"timestamp": "2026-01-28T12:00:00Z"},
//	  "error": {
//	    "code": "VALIDATION_ERROR",
//	    "message": "Rating must be between 0.5 and 5.0 in steps of 0.5",
//	    "details": {"field": "Rating"}
//	  }
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// APIError carries a machine-readable code and a human-readable message.
//
// Codes:
//   - VALIDATION_ERROR: request failed validation
//   - BAD_REQUEST: malformed parameter or body
//   - NOT_FOUND: unknown user or movie
//   - CONFLICT: username already taken
//   - RATE_LIMITED: too many rating writes
//   - INTERNAL_ERROR: anything else, details only in logs
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
