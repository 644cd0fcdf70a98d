// Package handler exposes the feed server's remote procedures over HTTP.
//
// Every procedure answers with a JSON object carrying "success". Failures
// always have the same shape:
//
//	{"success": false, "error": "缺少豆单数据", "code": "missing_record"}
//
// plus "field" when a single input field is at fault.
//
// ERROR CODES:
// "code" is what clients branch on; "error" is shown to people and may
// change wording at any time. The mapping from domain errors lives in
// statusOf:
//
//	apperror.ErrValidation       400  validation_error
//	apperror.ErrUnauthenticated  401  unauthenticated
//	apperror.ErrNotFound         404  not_found
//	apperror.ErrConflict         409  conflict
//	apperror.ErrMissingRecord    422  missing_record
//	apperror.ErrRemoteCall       502  remote_call_failed
//	anything else                500  internal_error
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/brewlog/internal/apperror"
)

// maxBodyBytes bounds every procedure request. Batch imports are the
// largest payloads the server accepts.
const maxBodyBytes = 8 << 20

// ErrorResponse is the failure body of every procedure.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
}

// writeJSON sends data with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status go out with the first body byte. Anything set on
// w.Header() after Encode starts writing is silently dropped, so the order
// is always:
//  1. w.Header().Set(...)
//  2. w.WriteHeader(status)
//  3. json.Encode(data)
//
// An encoding failure after step 2 can only be logged; the client has
// already seen the status line.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// statusOf maps an error onto an HTTP status and a machine-readable code.
//
// errors.Is walks the whole chain, so a service error such as
//
//	fmt.Errorf("service/publish: %w", apperror.MissingRecord("缺少豆单数据"))
//
// still lands on 422. The order of cases only matters for errors that carry
// two sentinels, which apperror never builds.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrMissingRecord):
		return http.StatusUnprocessableEntity, "missing_record"
	case errors.Is(err, apperror.ErrRemoteCall):
		return http.StatusBadGateway, "remote_call_failed"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeError maps a domain error onto a failure response.
//
// Only *apperror.AppError messages are shown to clients. Errors outside the
// apperror taxonomy (a locked SQLite file, a Redis timeout) are reported as
// a generic 500 "服务器内部错误": their text can hold file paths, query
// fragments or addresses. The services log the original before returning
// it.
func writeError(w http.ResponseWriter, err error) {
	status, code := statusOf(err)

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "服务器内部错误",
			Code:  "internal_error",
		})
		return
	}

	writeJSON(w, status, ErrorResponse{
		Error: appErr.Message,
		Code:  code,
		Field: appErr.Field,
	})
}

// decodeJSON reads the request body into dst. An empty body leaves dst
// untouched so procedures without arguments accept a bare POST.
//
// The body is capped at maxBodyBytes with http.MaxBytesReader. Hitting the
// cap is a validation error on "body", and the server also closes the
// connection once the handler returns.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.ValidationFailed("body", fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		}
		return apperror.ValidationFailed("body", "invalid JSON body: "+err.Error())
	}
	return nil
}
