// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/curator-app/curator/internal/logging"
	"github.com/curator-app/curator/internal/middleware"
	"github.com/curator-app/curator/internal/query"
	syncpkg "github.com/curator-app/curator/internal/sync"
)

// APIResponse is the envelope every JSON endpoint writes.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError carries a machine-readable code alongside the message.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// Error codes used across handlers.
const (
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeBadGateway    = "BAD_GATEWAY"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// respondJSON writes a JSON body with the given status.
func respondJSON(w http.ResponseWriter, status int, body *APIResponse) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(body)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondData writes a 200 success envelope around data.
func respondData(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusOK, &APIResponse{Success: true, Data: data})
}

// respondAccepted writes a 202 for work started in the background.
func respondAccepted(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusAccepted, &APIResponse{Success: true, Data: data})
}

// respondError writes an error envelope. The request id from the middleware
// context rides along so a client report can be matched to log lines.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	respondJSON(w, status, &APIResponse{
		Success: false,
		Error: &APIError{
			Code:      code,
			Message:   message,
			RequestID: middleware.GetRequestID(r.Context()),
		},
	})
}

// respondServiceError maps domain sentinels onto HTTP statuses. Anything
// unrecognized is a 500 with the detail kept to the logs.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, query.ErrInvalidOptions):
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, query.ErrNotFound):
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "entity not found")
	case errors.Is(err, syncpkg.ErrSyncInProgress):
		respondError(w, r, http.StatusConflict, ErrCodeConflict, "a sync is already running")
	default:
		logging.Error().Err(err).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Msg("Request failed")
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "internal error")
	}
}

// decodeBody decodes a JSON request body into v.
func decodeBody(r *http.Request, v interface{}) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(v)
}
