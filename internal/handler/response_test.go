package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sakif/brewlog/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ===== ERROR MAPPING TESTS =====

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
		wantField  string
	}{
		{
			name:       "validation keeps field",
			err:        apperror.ValidationFailed("pageSize", "pageSize must be positive"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation_error",
			wantMsg:    "pageSize must be positive",
			wantField:  "pageSize",
		},
		{
			name:       "unauthenticated",
			err:        apperror.Unauthenticated("未获取到用户 OpenID"),
			wantStatus: http.StatusUnauthorized,
			wantCode:   "unauthenticated",
			wantMsg:    "未获取到用户 OpenID",
		},
		{
			name:       "not found",
			err:        apperror.NotFound("record", "b1"),
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
			wantMsg:    "record not found with id b1",
		},
		{
			name:       "conflict",
			err:        apperror.Conflict("record", "b1"),
			wantStatus: http.StatusConflict,
			wantCode:   "conflict",
			wantMsg:    "record conflict with id b1",
		},
		{
			name:       "missing record",
			err:        apperror.MissingRecord("缺少豆单数据"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "missing_record",
			wantMsg:    "缺少豆单数据",
		},
		{
			name:       "remote call",
			err:        apperror.RemoteCallFailed("code2Session", "", errors.New("dial tcp: timeout")),
			wantStatus: http.StatusBadGateway,
			wantCode:   "remote_call_failed",
			wantMsg:    "code2Session: dial tcp: timeout",
		},
		{
			name:       "wrapped app error",
			err:        fmt.Errorf("service/publish: saving: %w", apperror.NotFound("record", "b2")),
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
			wantMsg:    "record not found with id b2",
		},
		{
			name:       "plain error hides details",
			err:        errors.New("sqlite: database is locked"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
			wantMsg:    "服务器内部错误",
		},
		{
			name:       "app error without sentinel",
			err:        &apperror.AppError{Message: "odd"},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
			wantMsg:    "odd",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var body map[string]any
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantCode, body["code"])
			assert.Equal(t, tt.wantMsg, body["error"])
			if tt.wantField == "" {
				assert.NotContains(t, body, "field")
			} else {
				assert.Equal(t, tt.wantField, body["field"])
			}
		})
	}
}

func TestStatusOf_MatchesWriteError(t *testing.T) {
	for _, sentinel := range []error{
		apperror.ErrValidation,
		apperror.ErrUnauthenticated,
		apperror.ErrNotFound,
		apperror.ErrConflict,
		apperror.ErrMissingRecord,
		apperror.ErrRemoteCall,
	} {
		status, code := statusOf(sentinel)
		assert.NotEqual(t, http.StatusInternalServerError, status, sentinel)
		assert.NotEqual(t, "internal_error", code, sentinel)

		rr := httptest.NewRecorder()
		writeError(rr, &apperror.AppError{Err: sentinel, Message: "x"})
		assert.Equal(t, status, rr.Code, sentinel)
	}
}

// ===== DECODE TESTS =====

func TestDecodeJSON(t *testing.T) {
	type args struct {
		Page int `json:"page"`
	}

	tests := []struct {
		name      string
		body      string
		want      args
		wantErr   bool
		wantInMsg string
	}{
		{name: "object", body: `{"page":3}`, want: args{Page: 3}},
		{name: "empty body keeps defaults", body: "", want: args{Page: 7}},
		{name: "unknown fields ignored", body: `{"page":2,"extra":true}`, want: args{Page: 2}},
		{name: "malformed", body: `{"page":`, wantErr: true, wantInMsg: "invalid JSON body"},
		{name: "wrong type", body: `{"page":"two"}`, wantErr: true, wantInMsg: "invalid JSON body"},
		{
			name:      "too large",
			body:      `{"page":1,"pad":"` + strings.Repeat("x", maxBodyBytes) + `"}`,
			wantErr:   true,
			wantInMsg: fmt.Sprintf("exceeds %d bytes", maxBodyBytes),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/getDiscoverList", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()

			got := args{Page: 7}
			err := decodeJSON(rr, req, &got)

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, apperror.ErrValidation)
				assert.Equal(t, "body", apperror.FieldOf(err))
				assert.Contains(t, err.Error(), tt.wantInMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
