package users

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-otp-auth/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	lookupPath      = "/users/internal/lookup"
	bootstrapPath   = "/users/internal/bootstrap"
	recordLoginPath = "/users/internal/record-login"
	apiKeyHeader    = "x-internal-api-key"

	unavailableMessage = "user service unavailable"
)

// HTTPDirectory talks to the user service's internal endpoints.
type HTTPDirectory struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  zerolog.Logger
}

var _ Directory = (*HTTPDirectory)(nil)

type HTTPDirectoryOption func(*HTTPDirectory)

func WithHTTPClient(client *http.Client) HTTPDirectoryOption {
	return func(d *HTTPDirectory) {
		d.client = client
	}
}

func WithLogger(logger zerolog.Logger) HTTPDirectoryOption {
	return func(d *HTTPDirectory) {
		d.logger = logger
	}
}

func NewHTTPDirectory(baseURL, apiKey string, options ...HTTPDirectoryOption) *HTTPDirectory {
	d := &HTTPDirectory{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 5 * time.Second},
		logger:  log.Logger,
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type userData struct {
	User *Snapshot `json:"user"`
}

func (d *HTTPDirectory) LookupOrCreate(ctx context.Context, req LookupRequest) (*Snapshot, error) {
	var found userData
	if err := d.post(ctx, lookupPath, req, &found); err != nil {
		return nil, err
	}
	if found.User != nil {
		return found.User, nil
	}

	var created userData
	if err := d.post(ctx, bootstrapPath, req, &created); err != nil {
		return nil, err
	}
	if created.User == nil || created.User.ID == "" {
		return nil, errors.New(errors.ErrUnavailable, unavailableMessage)
	}
	d.logger.Info().Str("userId", created.User.ID).Msg("user bootstrapped")
	return created.User, nil
}

func (d *HTTPDirectory) RecordLogin(ctx context.Context, userID string, meta LoginMetadata) error {
	body := struct {
		UserID string `json:"userId"`
		LoginMetadata
	}{UserID: userID, LoginMetadata: meta}
	return d.post(ctx, recordLoginPath, body, nil)
}

func (d *HTTPDirectory) post(ctx context.Context, path string, body, out any) error {
	if d.apiKey == "" {
		return errors.Wrap(errors.ErrUnavailable, unavailableMessage, fmt.Errorf("internal api key is not configured"))
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(errors.ErrUnavailable, unavailableMessage, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(errors.ErrUnavailable, unavailableMessage, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, d.apiKey)

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Error().Err(err).Str("path", path).Msg("unable to reach user service")
		return errors.Wrap(errors.ErrUnavailable, unavailableMessage, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && resp.StatusCode < 300 {
		return errors.Wrap(errors.ErrUnavailable, unavailableMessage, err)
	}
	if resp.StatusCode >= 300 || !env.Success {
		d.logger.Error().Int("status", resp.StatusCode).Str("path", path).Str("message", env.Message).Msg("user service error")
		return errors.Wrap(errors.ErrUnavailable, unavailableMessage, fmt.Errorf("%s returned %d", path, resp.StatusCode))
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return errors.Wrap(errors.ErrUnavailable, unavailableMessage, err)
	}
	return nil
}
