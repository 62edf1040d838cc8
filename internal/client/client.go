// Package client talks to the clip API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	clipsv1 "viralcut/internal/contracts/clips/v1"
	"viralcut/internal/httpkit"
	"viralcut/internal/pkg/errors"
)

// HTTPClient calls the clip API. Process blocks until the whole batch has
// rendered, so the default timeout is generous.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Minute},
	}
}

// WithHTTPClient replaces the underlying http.Client.
func (c *HTTPClient) WithHTTPClient(hc *http.Client) *HTTPClient {
	c.client = hc
	return c
}

// Process renders req synchronously.
func (c *HTTPClient) Process(ctx context.Context, req clipsv1.ProcessRequest) (clipsv1.ProcessResponse, error) {
	var out clipsv1.ProcessResponse
	err := c.do(ctx, http.MethodPost, "/api/process-clips", req, &out)
	return out, err
}

// Submit queues req and returns the new batch.
func (c *HTTPClient) Submit(ctx context.Context, req clipsv1.ProcessRequest) (clipsv1.Batch, error) {
	var out clipsv1.BatchResponse
	err := c.do(ctx, http.MethodPost, "/api/batches", req, &out)
	return out.Batch, err
}

// Batch fetches a queued batch with its progress.
func (c *HTTPClient) Batch(ctx context.Context, id string) (clipsv1.Batch, error) {
	var out clipsv1.BatchResponse
	err := c.do(ctx, http.MethodGet, "/api/batches/"+url.PathEscape(id), nil, &out)
	return out.Batch, err
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	op := "client." + strings.ToLower(method)

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, op, "failed to encode request")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, op, "failed to build request")
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return errors.WrapWithCode(err, errors.CodeCanceled, op, "request canceled")
		}
		return errors.WrapWithCode(err, errors.CodeUnavailable, op, "clip API unreachable")
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return decodeError(res)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return errors.Wrap(err, op, "failed to decode response")
	}
	return nil
}

// decodeError turns an API error envelope back into a coded error.
func decodeError(res *http.Response) error {
	var env httpkit.ErrorEnvelope
	raw, _ := io.ReadAll(io.LimitReader(res.Body, httpkit.MaxJSONBody))
	if err := json.Unmarshal(raw, &env); err != nil || env.Error.Code == "" {
		return errors.Newf(statusCode(res.StatusCode), "clip API http %d", res.StatusCode)
	}
	return errors.New(errors.Code(env.Error.Code), env.Error.Message).WithFields(env.Error.Details)
}

func statusCode(status int) errors.Code {
	switch status {
	case http.StatusBadRequest:
		return errors.CodeValidation
	case http.StatusNotFound:
		return errors.CodeNotFound
	case http.StatusConflict:
		return errors.CodeConflict
	case http.StatusServiceUnavailable:
		return errors.CodeUnavailable
	case http.StatusGatewayTimeout:
		return errors.CodeTimeout
	default:
		return errors.CodeInternal
	}
}
