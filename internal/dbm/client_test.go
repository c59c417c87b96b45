package dbm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

// MockRoundTripper implements http.RoundTripper for testing
type MockRoundTripper struct {
	RoundTripFunc func(req *http.Request) (*http.Response, error)
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.RoundTripFunc(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestClient(fn func(req *http.Request) (*http.Response, error)) *Client {
	return NewClient(&http.Client{Transport: &MockRoundTripper{RoundTripFunc: fn}}, "https://dbm.test/v1/")
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(nil, "")
	if c.baseURL != DefaultBaseURL {
		t.Errorf("baseURL = %q, want %q", c.baseURL, DefaultBaseURL)
	}
	if c.httpClient == nil {
		t.Error("httpClient should default to http.DefaultClient")
	}
}

func TestClient_ListQueries(t *testing.T) {
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodGet || req.URL.String() != "https://dbm.test/v1/queries" {
			t.Errorf("unexpected request %s %s", req.Method, req.URL)
		}
		return jsonResponse(200, `{"kind":"doubleclickbidmanager#listQueriesResponse","queries":[
			{"queryId":"1467803708563","metadata":{"title":"adzai_lld_daily","running":false}},
			{"queryId":"1467803955654","metadata":{"title":"adzai_browser","running":true}}]}`), nil
	})

	queries, err := c.ListQueries(context.Background())
	if err != nil {
		t.Fatalf("ListQueries failed: %v", err)
	}
	if len(queries) != 2 {
		t.Fatalf("expected 2 queries, got %d", len(queries))
	}
	if queries[0].ID() != 1467803708563 || queries[0].Metadata.Title != "adzai_lld_daily" {
		t.Errorf("unexpected first query %+v", queries[0])
	}
	if !queries[1].Metadata.Running {
		t.Error("second query should be running")
	}
}

func TestClient_ListQueries_Empty(t *testing.T) {
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"kind":"doubleclickbidmanager#listQueriesResponse"}`), nil
	})

	queries, err := c.ListQueries(context.Background())
	if err != nil {
		t.Fatalf("ListQueries failed: %v", err)
	}
	if len(queries) != 0 {
		t.Errorf("expected no queries, got %d", len(queries))
	}
}

func TestClient_GetQuery(t *testing.T) {
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/v1/query/1467803708563" {
			t.Errorf("unexpected path %s", req.URL.Path)
		}
		return jsonResponse(200, `{"queryId":"1467803708563","metadata":{
			"title":"adzai_lld_daily","running":false,
			"latestReportRunTimeMs":"1467900000000",
			"googleCloudStoragePathForLatestReport":"https://storage.googleapis.com/bucket/report.csv"}}`), nil
	})

	q, err := c.GetQuery(context.Background(), 1467803708563)
	if err != nil {
		t.Fatalf("GetQuery failed: %v", err)
	}
	if !q.Metadata.HasReport() {
		t.Error("expected query to have a report")
	}
	if q.Metadata.LatestReportRunTimeMs != 1467900000000 {
		t.Errorf("LatestReportRunTimeMs = %d", q.Metadata.LatestReportRunTimeMs)
	}
	if q.Metadata.GoogleCloudStoragePathForLatestReport != "https://storage.googleapis.com/bucket/report.csv" {
		t.Errorf("unexpected report path %q", q.Metadata.GoogleCloudStoragePathForLatestReport)
	}
}

func TestClient_GetQuery_NotFound(t *testing.T) {
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(404, `{"error":{"code":404}}`), nil
	})

	_, err := c.GetQuery(context.Background(), 1)
	if !errors.Is(err, ErrQueryNotFound) {
		t.Errorf("expected ErrQueryNotFound, got %v", err)
	}
}

func TestClient_RunQuery(t *testing.T) {
	var got RunQueryRequest
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", req.Method)
		}
		if ct := req.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(req.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		return jsonResponse(204, ""), nil
	})

	if err := c.RunQuery(context.Background(), 7, RunQueryRequest{DataRange: "LAST_7_DAYS"}); err != nil {
		t.Fatalf("RunQuery failed: %v", err)
	}
	if got.DataRange != "LAST_7_DAYS" {
		t.Errorf("dataRange = %q", got.DataRange)
	}
}

func TestClient_DownloadLineItems(t *testing.T) {
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		body, _ := io.ReadAll(req.Body)
		want := `{"filterType":"ADVERTISER_ID","format":"CSV","filterIds":["1","2"]}`
		if string(body) != want {
			t.Errorf("body = %s, want %s", body, want)
		}
		return jsonResponse(200, `{"lineItems":"Line Item Id,Name\n1,a\n"}`), nil
	})

	resp, err := c.DownloadLineItems(context.Background(), DownloadLineItemsRequest{
		FilterType: FilterAdvertiserID,
		FilterIDs:  []string{"1", "2"},
		Format:     "CSV",
	})
	if err != nil {
		t.Fatalf("DownloadLineItems failed: %v", err)
	}
	if resp.LineItems != "Line Item Id,Name\n1,a\n" {
		t.Errorf("unexpected payload %q", resp.LineItems)
	}
}

func TestClient_UploadLineItems(t *testing.T) {
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"uploadStatus":{"errors":["bad header"],"rowStatus":[{"rowNumber":3,"errors":["bad bid"]}]}}`), nil
	})

	resp, err := c.UploadLineItems(context.Background(), UploadLineItemsRequest{LineItems: "x", DryRun: true})
	if err != nil {
		t.Fatalf("UploadLineItems failed: %v", err)
	}
	errs := resp.UploadStatus.AllErrors()
	if len(errs) != 2 || errs[0] != "bad header" || errs[1] != "row 3: bad bid" {
		t.Errorf("unexpected errors %v", errs)
	}
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name      string
		transport func(req *http.Request) (*http.Response, error)
	}{
		{
			name: "NetworkError",
			transport: func(req *http.Request) (*http.Response, error) {
				return nil, errors.New("connection refused")
			},
		},
		{
			name: "StatusError",
			transport: func(req *http.Request) (*http.Response, error) {
				return jsonResponse(500, "backend error"), nil
			},
		},
		{
			name: "JSONError",
			transport: func(req *http.Request) (*http.Response, error) {
				return jsonResponse(200, "not json"), nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(tt.transport)
			_, err := c.ListQueries(context.Background())
			if !errors.Is(err, ErrTransport) {
				t.Errorf("expected ErrTransport, got %v", err)
			}
		})
	}
}

func TestAPIError(t *testing.T) {
	err := &APIError{Operation: "getquery", Status: 403, Body: "forbidden"}
	if !errors.Is(err, ErrTransport) {
		t.Error("APIError should unwrap to ErrTransport")
	}
	if err.Error() != "getquery failed (status 403): forbidden" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
