package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// maxKeyCRMResponseSize limits the response body size to prevent memory exhaustion
const maxKeyCRMResponseSize = 10 * 1024 * 1024

// Request describes one call to the KeyCRM API
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is JSON-encoded when non-nil
	Body any
	// ExpectedCode is the success code KeyCRM embeds in the response body
	ExpectedCode int
}

// KeyCRMClient issues authenticated JSON requests to the KeyCRM API and
// classifies the outcome
type KeyCRMClient struct {
	config     *KeyCRMConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewKeyCRMClient creates a client with the given configuration.
// A nil httpClient gets one bounded by the configured timeout.
func NewKeyCRMClient(config *KeyCRMConfig, httpClient *http.Client, logger *zap.Logger) (*KeyCRMClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KeyCRMClient{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Do performs the request and returns the raw JSON body on success.
// Failures are *TransportError, *RemoteError or ErrInvalidResponse.
func (c *KeyCRMClient) Do(ctx context.Context, apiKey string, r Request) ([]byte, error) {
	if apiKey == "" {
		return nil, ErrKeyCRMConfigMissingAPIKey
	}

	endpoint := strings.TrimRight(c.config.APIBaseURL, "/") + r.Path
	if len(r.Query) > 0 {
		endpoint += "?" + r.Query.Encode()
	}

	var reader io.Reader
	if r.Body != nil {
		bodyBytes, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("keycrm: failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("keycrm: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := c.logger.With(
		zap.String("method", r.Method),
		zap.String("path", r.Path),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		transportErr := &TransportError{Code: classifyTransportError(err), Err: err}
		log.Warn("KeyCRM request failed", zap.String("error_code", transportErr.Code), zap.Error(err))
		return nil, transportErr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxKeyCRMResponseSize))
	if err != nil {
		transportErr := &TransportError{Code: classifyTransportError(err), Err: err}
		log.Warn("KeyCRM response read failed", zap.Int("status", resp.StatusCode), zap.Error(err))
		return nil, transportErr
	}

	log = log.With(zap.Int("status", resp.StatusCode), zap.ByteString("response", body))

	if err := checkResponse(resp.StatusCode, body, r.ExpectedCode); err != nil {
		log.Warn("KeyCRM response rejected", zap.Error(err))
		return nil, err
	}

	log.Info("KeyCRM response")
	return body, nil
}

// checkResponse classifies a received response.
// An embedded code takes precedence over the HTTP status.
func checkResponse(status int, body []byte, expectedCode int) error {
	if !json.Valid(body) {
		if status >= http.StatusBadRequest {
			return &RemoteError{Code: status, Message: http.StatusText(status)}
		}
		return ErrInvalidResponse
	}

	var envelope KeyCRMEnvelope
	// Bodies that are not objects carry no envelope
	_ = json.Unmarshal(body, &envelope)

	if envelope.Code != nil {
		code, err := envelope.Code.Int64()
		if err != nil {
			return fmt.Errorf("%w: non-numeric code %q", ErrInvalidResponse, envelope.Code.String())
		}
		if expectedCode != 0 && int(code) != expectedCode {
			return &RemoteError{Code: int(code), Message: envelope.Message}
		}
		return nil
	}

	if status >= http.StatusBadRequest {
		message := envelope.Message
		if message == "" {
			message = http.StatusText(status)
		}
		return &RemoteError{Code: status, Message: message}
	}
	return nil
}
