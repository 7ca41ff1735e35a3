// Package semantic calls the remote semantic analysis service for a
// transcript. It is the preferred summarization path; any transport error,
// non-success status or malformed payload is a failure, and the caller
// falls back to the local heuristics.
package semantic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"finecho-go/internal/config"
	"finecho-go/internal/logger"
	"finecho-go/internal/types"
)

// Client talks to the semantic analysis service.
type Client struct {
	url        string
	apiKey     string
	model      string
	timeout    time.Duration
	httpClient *http.Client
}

func New(cfg *config.Config) *Client {
	return &Client{
		url:        cfg.SemanticURL,
		apiKey:     cfg.SemanticKey,
		model:      cfg.SemanticModel,
		timeout:    cfg.SemanticTimeout,
		httpClient: &http.Client{Timeout: cfg.SemanticTimeout},
	}
}

type analyzeRequest struct {
	Model      string `json:"model,omitempty"`
	Transcript string `json:"transcript"`
}

// Analyze submits the transcript and decodes the analysis object. Server
// errors are retried with exponential backoff inside the configured budget.
func (c *Client) Analyze(ctx context.Context, transcript string) (*types.SemanticAnalysis, error) {
	if c.url == "" {
		return nil, errors.New("semantic service not configured")
	}
	log := logger.New().WithField("module", "semantic")

	payload, _ := json.Marshal(analyzeRequest{Model: c.model, Transcript: transcript})

	var out types.SemanticAnalysis
	var lastErr error
	op := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.url, bytes.NewReader(payload))
		if err != nil {
			lastErr = err
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("semantic server error: %s", string(body))
			return lastErr
		}
		if resp.StatusCode >= 300 {
			lastErr = fmt.Errorf("semantic request rejected (status=%d): %s", resp.StatusCode, string(body))
			return backoff.Permanent(lastErr)
		}
		if len(body) == 0 {
			lastErr = errors.New("semantic response empty")
			return lastErr
		}
		if err := json.Unmarshal(body, &out); err != nil {
			lastErr = fmt.Errorf("json decode error: %v body=%s", err, string(body))
			return lastErr
		}
		if out.Summary == "" {
			lastErr = errors.New("semantic response missing summary")
			return lastErr
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.timeout
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		log.WithField("error", lastErr.Error()).Warn("semantic analysis failed")
		return nil, lastErr
	}
	return &out, nil
}
