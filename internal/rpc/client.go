// Package rpc is the client side of the feed server's remote procedures.
// Every procedure is a JSON POST to /api/functions/{name} whose answer
// carries "success" and, on failure, "error".
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sakif/brewlog/internal/apperror"
	"github.com/sakif/brewlog/internal/model"
	"github.com/sakif/brewlog/internal/service"
)

// Procedure names.
const (
	ProcLogin           = "login"
	ProcSaveUserProfile = "saveUserProfile"
	ProcPublishRecord   = "publishRecord"
	ProcGetDiscoverList = "getDiscoverList"
	ProcBatchPublish    = "batchPublishRecords"
)

// ImportKeyHeader carries the bulk import key.
const ImportKeyHeader = "X-Import-Key"

const maxResponseBytes = 8 << 20

// TokenSource supplies the session token attached to every call. An empty
// token sends the call anonymously.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// Client calls the feed server. Calls are never retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	log        *slog.Logger
}

// NewClient returns a client for the server at baseURL. tokens may be nil.
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		log:        logger.With("adapter", "rpc"),
	}
}

// envelope is the part of every answer the transport inspects.
type envelope struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
	Field   string `json:"field"`
}

// Call invokes procedure name with payload and decodes the answer into
// result, which may be nil. Any failure is an apperror.ErrRemoteCall whose
// message is the server's own error text when it sent one. Unauthenticated
// and validation answers also match apperror.ErrUnauthenticated and
// apperror.ErrValidation.
func (c *Client) Call(ctx context.Context, name string, payload, result any) error {
	return c.call(ctx, name, payload, result, nil)
}

func (c *Client) call(ctx context.Context, name string, payload, result any, header http.Header) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperror.RemoteCallFailed(name, "", fmt.Errorf("encoding request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/functions/"+name, bytes.NewReader(body))
	if err != nil {
		return apperror.RemoteCallFailed(name, "", fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return apperror.RemoteCallFailed(name, "", fmt.Errorf("reading session token: %w", err))
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.WarnContext(ctx, "rpc request failed", slog.String("procedure", name), slog.String("error", err.Error()))
		return apperror.RemoteCallFailed(name, "", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return apperror.RemoteCallFailed(name, "", fmt.Errorf("reading response: %w", err))
	}

	c.log.DebugContext(ctx, "rpc response",
		slog.String("procedure", name),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	var env envelope
	decodeErr := json.Unmarshal(data, &env)
	failed := resp.StatusCode != http.StatusOK || decodeErr != nil || (env.Success != nil && !*env.Success)
	if failed {
		return remoteError(name, resp.StatusCode, env, decodeErr)
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return apperror.RemoteCallFailed(name, "", fmt.Errorf("decoding response: %w", err))
		}
	}
	return nil
}

func remoteError(name string, status int, env envelope, decodeErr error) error {
	var cause error
	switch status {
	case http.StatusUnauthorized:
		cause = apperror.Unauthenticated(env.Error)
	case http.StatusBadRequest:
		cause = apperror.ValidationFailed(env.Field, env.Error)
	case http.StatusUnprocessableEntity:
		cause = apperror.MissingRecord(env.Error)
	default:
		cause = fmt.Errorf("status %d", status)
	}
	if decodeErr != nil && env.Error == "" {
		cause = errors.Join(cause, fmt.Errorf("decoding response: %w", decodeErr))
	}
	return apperror.RemoteCallFailed(name, env.Error, cause)
}

// =========================================================================
// PROCEDURES
// =========================================================================

type loginRequest struct {
	Code     string `json:"code"`
	Provider string `json:"provider,omitempty"`
}

// Login exchanges a provider code. It satisfies local.Authenticator
// together with SaveUserProfile.
func (c *Client) Login(ctx context.Context, code, provider string) (model.LoginResult, error) {
	var res model.LoginResult
	err := c.Call(ctx, ProcLogin, loginRequest{Code: code, Provider: provider}, &res)
	return res, err
}

// SaveUserProfile stores the display profile for the session's openid.
func (c *Client) SaveUserProfile(ctx context.Context, profile model.Profile) error {
	return c.Call(ctx, ProcSaveUserProfile, profile, nil)
}

type publishRequest struct {
	BeanData model.PublishInput `json:"beanData"`
}

// PublishRecord upserts one record into the shared feed.
func (c *Client) PublishRecord(ctx context.Context, in model.PublishInput) (*service.PublishResult, error) {
	var res service.PublishResult
	if err := c.Call(ctx, ProcPublishRecord, publishRequest{BeanData: in}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetDiscoverList fetches one feed page. It satisfies feed.Fetcher.
func (c *Client) GetDiscoverList(ctx context.Context, q service.DiscoverQuery) (*service.DiscoverPage, error) {
	var page service.DiscoverPage
	if err := c.Call(ctx, ProcGetDiscoverList, q, &page); err != nil {
		return nil, err
	}
	if page.Data == nil {
		page.Data = []model.PublishedRecord{}
	}
	return &page, nil
}

// BatchPublish imports one window of records using the operator's import key.
func (c *Client) BatchPublish(ctx context.Context, importKey string, in service.BatchInput) (*service.BatchResult, error) {
	var res service.BatchResult
	header := http.Header{}
	header.Set(ImportKeyHeader, importKey)
	if err := c.call(ctx, ProcBatchPublish, in, &res, header); err != nil {
		return nil, err
	}
	return &res, nil
}
