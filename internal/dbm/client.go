// Package dbm is a typed client for the DoubleClick Bid Manager v1 REST API.
package dbm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/j-veylop/bidmanager-cli/internal/logger"
)

// DefaultBaseURL is the v1 API root.
const DefaultBaseURL = "https://www.googleapis.com/doubleclickbidmanager/v1"

// QueryGetter fetches the current state of a single query.
type QueryGetter interface {
	GetQuery(ctx context.Context, queryID int64) (*Query, error)
}

// Service is the remote surface the CLIs consume.
type Service interface {
	QueryGetter
	ListQueries(ctx context.Context) ([]Query, error)
	RunQuery(ctx context.Context, queryID int64, req RunQueryRequest) error
	DownloadLineItems(ctx context.Context, req DownloadLineItemsRequest) (*DownloadLineItemsResponse, error)
	UploadLineItems(ctx context.Context, req UploadLineItemsRequest) (*UploadLineItemsResponse, error)
}

// Client implements Service over HTTP. The http.Client is expected to
// authorize requests (see internal/auth).
type Client struct {
	httpClient *http.Client
	baseURL    string
}

var _ Service = (*Client)(nil)

// NewClient creates a client for baseURL; an empty baseURL selects DefaultBaseURL.
func NewClient(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// ListQueries returns every query visible to the authenticated user.
func (c *Client) ListQueries(ctx context.Context) ([]Query, error) {
	var resp ListQueriesResponse
	if err := c.do(ctx, "listqueries", http.MethodGet, "/queries", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Queries, nil
}

// GetQuery fetches a query. A 404 is reported as ErrQueryNotFound.
func (c *Client) GetQuery(ctx context.Context, queryID int64) (*Query, error) {
	var q Query
	err := c.do(ctx, "getquery", http.MethodGet, queryPath(queryID), nil, &q)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %d", ErrQueryNotFound, queryID)
		}
		return nil, err
	}
	return &q, nil
}

// RunQuery starts a new run of a query.
func (c *Client) RunQuery(ctx context.Context, queryID int64, req RunQueryRequest) error {
	return c.do(ctx, "runquery", http.MethodPost, queryPath(queryID), req, nil)
}

// DownloadLineItems fetches the (optionally filtered) line items as CSV.
func (c *Client) DownloadLineItems(ctx context.Context, req DownloadLineItemsRequest) (*DownloadLineItemsResponse, error) {
	var resp DownloadLineItemsResponse
	if err := c.do(ctx, "downloadlineitems", http.MethodPost, "/lineitems/downloadlineitems", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UploadLineItems sends modified line items back to the API.
func (c *Client) UploadLineItems(ctx context.Context, req UploadLineItemsRequest) (*UploadLineItemsResponse, error) {
	var resp UploadLineItemsResponse
	if err := c.do(ctx, "uploadlineitems", http.MethodPost, "/lineitems/uploadlineitems", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func queryPath(queryID int64) string {
	return "/query/" + strconv.FormatInt(queryID, 10)
}

// do issues a JSON request and decodes a JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logger.Debug("api request", "operation", op, "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s request failed: %w", ErrTransport, op, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read %s response: %w", ErrTransport, op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Operation: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: failed to parse %s response: %w", ErrTransport, op, err)
	}
	return nil
}
