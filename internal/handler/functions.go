package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/brewlog/internal/apperror"
	"github.com/sakif/brewlog/internal/auth"
	"github.com/sakif/brewlog/internal/model"
	"github.com/sakif/brewlog/internal/service"
)

// ImportKeyHeader carries the plaintext bulk import key.
const ImportKeyHeader = "X-Import-Key"

// FunctionsHandler serves POST /api/functions/{name}.
//
//	login               → AuthService.Login
//	saveUserProfile     → AuthService.SaveProfile     (session required)
//	publishRecord       → PublishService.Publish      (session required)
//	getDiscoverList     → DiscoverService.List
//	batchPublishRecords → BatchService.Publish        (import key required)
type FunctionsHandler struct {
	auth       *service.AuthService
	publish    *service.PublishService
	discover   *service.DiscoverService
	batch      *service.BatchService
	importKeys *auth.KeyVerifier
	logger     *slog.Logger
}

func NewFunctionsHandler(
	authSvc *service.AuthService,
	publish *service.PublishService,
	discover *service.DiscoverService,
	batch *service.BatchService,
	importKeys *auth.KeyVerifier,
	logger *slog.Logger,
) *FunctionsHandler {
	return &FunctionsHandler{
		auth:       authSvc,
		publish:    publish,
		discover:   discover,
		batch:      batch,
		importKeys: importKeys,
		logger:     logger,
	}
}

// =========================================================================
// LOGIN
// =========================================================================

type loginRequest struct {
	Code     string `json:"code"`
	Provider string `json:"provider"`
}

type loginResponse struct {
	Success bool `json:"success"`
	*model.LoginResult
}

// HandleLogin exchanges a provider code for an openid and session token.
func (h *FunctionsHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Login(r.Context(), req.Code, req.Provider)
	if err != nil {
		h.logFailure(r, "login", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Success: true, LoginResult: result})
}

// HandleSaveUserProfile stores the caller's display profile.
func (h *FunctionsHandler) HandleSaveUserProfile(w http.ResponseWriter, r *http.Request) {
	var profile model.Profile
	if err := decodeJSON(w, r, &profile); err != nil {
		writeError(w, err)
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	if err := h.auth.SaveProfile(r.Context(), userID, profile); err != nil {
		h.logFailure(r, "saveUserProfile", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// =========================================================================
// PUBLISH
// =========================================================================

type publishRequest struct {
	BeanData *model.PublishInput `json:"beanData"`
}

type publishResponse struct {
	Success bool `json:"success"`
	*service.PublishResult
}

// HandlePublishRecord upserts the caller's record into the shared feed.
func (h *FunctionsHandler) HandlePublishRecord(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	result, err := h.publish.Publish(r.Context(), userID, req.BeanData)
	if err != nil {
		h.logFailure(r, "publishRecord", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, publishResponse{Success: true, PublishResult: result})
}

// =========================================================================
// DISCOVER
// =========================================================================

type discoverResponse struct {
	Success bool `json:"success"`
	*service.DiscoverPage
}

type discoverFailure struct {
	Success bool                    `json:"success"`
	Error   string                  `json:"error"`
	Data    []model.PublishedRecord `json:"data"`
}

// HandleGetDiscoverList returns one page of the shared feed. A storage
// failure still answers with an empty data array so clients can render.
func (h *FunctionsHandler) HandleGetDiscoverList(w http.ResponseWriter, r *http.Request) {
	var q service.DiscoverQuery
	if err := decodeJSON(w, r, &q); err != nil {
		writeError(w, err)
		return
	}

	page, err := h.discover.List(r.Context(), q)
	if err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusInternalServerError, discoverFailure{
			Error: service.MsgDiscoverFailed,
			Data:  []model.PublishedRecord{},
		})
		return
	}
	writeJSON(w, http.StatusOK, discoverResponse{Success: true, DiscoverPage: page})
}

// =========================================================================
// BATCH IMPORT
// =========================================================================

type batchResponse struct {
	Success bool `json:"success"`
	*service.BatchResult
}

// HandleBatchPublishRecords imports one window of exported feed records.
func (h *FunctionsHandler) HandleBatchPublishRecords(w http.ResponseWriter, r *http.Request) {
	if err := h.importKeys.Verify(r.Header.Get(ImportKeyHeader)); err != nil {
		h.logger.Warn("batch import rejected",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("error", err.Error()),
		)
		msg := "import key is invalid"
		if errors.Is(err, auth.ErrImportDisabled) {
			msg = "bulk import is disabled on this server"
		}
		writeError(w, apperror.Unauthenticated(msg))
		return
	}

	var in service.BatchInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.batch.Publish(r.Context(), in)
	if err != nil {
		h.logFailure(r, "batchPublishRecords", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Success: true, BatchResult: result})
}

// HandleUnknown answers procedures that do not exist.
func (h *FunctionsHandler) HandleUnknown(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{
		Error: "unknown procedure " + r.URL.Path,
		Code:  "not_found",
	})
}

// logFailure logs server faults at Error and client mistakes at Info.
func (h *FunctionsHandler) logFailure(r *http.Request, procedure string, err error) {
	status, _ := statusOf(err)
	level := slog.LevelInfo
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "procedure failed",
		slog.String("procedure", procedure),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)
}
