package dbm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Int64String is an int64 that travels as a JSON string, the way the API
// encodes int64 fields. Bare JSON numbers are accepted as well.
type Int64String int64

// MarshalJSON encodes the value as a quoted decimal string.
func (i Int64String) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatInt(int64(i), 10))), nil
}

// UnmarshalJSON accepts "123", 123 and null.
func (i *Int64String) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*i = 0
		return nil
	}
	s := string(data)
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	if s == "" {
		*i = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid int64 value %s: %w", string(data), err)
	}
	*i = Int64String(v)
	return nil
}

// Query is a saved report definition.
type Query struct {
	Metadata *QueryMetadata `json:"metadata,omitempty"`
	Params   *QueryParams   `json:"params,omitempty"`
	QueryID  Int64String    `json:"queryId"`
}

// ID returns the query id as a plain int64.
func (q *Query) ID() int64 {
	return int64(q.QueryID)
}

// QueryMetadata carries the state of a query at the instant it was fetched.
type QueryMetadata struct {
	Title                                 string      `json:"title"`
	DataRange                             string      `json:"dataRange,omitempty"`
	Format                                string      `json:"format,omitempty"`
	GoogleCloudStoragePathForLatestReport string      `json:"googleCloudStoragePathForLatestReport,omitempty"`
	LatestReportRunTimeMs                 Int64String `json:"latestReportRunTimeMs,omitempty"`
	Running                               bool        `json:"running"`
}

// HasReport reports whether the query has ever produced a report.
func (m *QueryMetadata) HasReport() bool {
	return m != nil && m.LatestReportRunTimeMs > 0
}

// LatestReportRunTime returns the last run as a UTC time. It is the zero
// time when no report exists.
func (m *QueryMetadata) LatestReportRunTime() time.Time {
	if !m.HasReport() {
		return time.Time{}
	}
	return time.UnixMilli(int64(m.LatestReportRunTimeMs)).UTC()
}

// QueryParams holds the report definition parameters.
type QueryParams struct {
	Type string `json:"type,omitempty"`
}

// ListQueriesResponse is the response of queries.listqueries.
type ListQueriesResponse struct {
	Kind    string  `json:"kind,omitempty"`
	Queries []Query `json:"queries,omitempty"`
}

// RunQueryRequest is the body of queries.runquery.
type RunQueryRequest struct {
	DataRange string `json:"dataRange,omitempty"`
}

// FilterType narrows a line item download.
type FilterType string

// Filter types accepted by lineitems.downloadlineitems.
const (
	FilterAdvertiserID     FilterType = "ADVERTISER_ID"
	FilterInsertionOrderID FilterType = "INSERTION_ORDER_ID"
	FilterLineItemID       FilterType = "LINE_ITEM_ID"
)

// FilterTypes lists the valid filter types.
var FilterTypes = []FilterType{FilterAdvertiserID, FilterInsertionOrderID, FilterLineItemID}

// ParseFilterType validates s against FilterTypes.
func ParseFilterType(s string) (FilterType, error) {
	ft := FilterType(s)
	if slices.Contains(FilterTypes, ft) {
		return ft, nil
	}
	return "", InvalidArgument("invalid filter type %q, acceptable values: %s", s, joinValues(FilterTypes))
}

// DataRange is the date range used when a query is run.
type DataRange string

// DataRanges lists the ranges runquery accepts without explicit start/end times.
var DataRanges = []DataRange{
	"CURRENT_DAY", "PREVIOUS_DAY",
	"WEEK_TO_DATE", "MONTH_TO_DATE", "QUARTER_TO_DATE", "YEAR_TO_DATE",
	"PREVIOUS_WEEK", "PREVIOUS_HALF_MONTH", "PREVIOUS_MONTH", "PREVIOUS_QUARTER", "PREVIOUS_YEAR",
	"LAST_7_DAYS", "LAST_14_DAYS", "LAST_30_DAYS", "LAST_60_DAYS", "LAST_90_DAYS", "LAST_365_DAYS",
	"ALL_TIME",
}

// ParseDataRange validates s against DataRanges.
func ParseDataRange(s string) (DataRange, error) {
	dr := DataRange(strings.ToUpper(strings.TrimSpace(s)))
	if slices.Contains(DataRanges, dr) {
		return dr, nil
	}
	return "", InvalidArgument("invalid date range %q, acceptable values: %s", s, joinValues(DataRanges))
}

// DownloadLineItemsRequest is the body of lineitems.downloadlineitems.
type DownloadLineItemsRequest struct {
	FilterType FilterType `json:"filterType,omitempty"`
	Format     string     `json:"format,omitempty"`
	FileSpec   string     `json:"fileSpec,omitempty"`
	FilterIDs  []string   `json:"filterIds,omitempty"`
}

// DownloadLineItemsResponse carries the CSV payload.
type DownloadLineItemsResponse struct {
	LineItems string `json:"lineItems"`
}

// UploadLineItemsRequest is the body of lineitems.uploadlineitems.
type UploadLineItemsRequest struct {
	LineItems string `json:"lineItems"`
	Format    string `json:"format,omitempty"`
	DryRun    bool   `json:"dryRun"`
}

// UploadLineItemsResponse reports per-row outcomes of an upload.
type UploadLineItemsResponse struct {
	UploadStatus *UploadStatus `json:"uploadStatus,omitempty"`
}

// UploadStatus is the status block of an upload response.
type UploadStatus struct {
	Errors    []string    `json:"errors,omitempty"`
	RowStatus []RowStatus `json:"rowStatus,omitempty"`
}

// RowStatus is the outcome for a single uploaded row.
type RowStatus struct {
	EntityName string      `json:"entityName,omitempty"`
	Errors     []string    `json:"errors,omitempty"`
	EntityID   Int64String `json:"entityId,omitempty"`
	RowNumber  int         `json:"rowNumber,omitempty"`
	Changed    bool        `json:"changed,omitempty"`
	Persisted  bool        `json:"persisted,omitempty"`
}

// AllErrors flattens the top-level and per-row errors of an upload.
func (s *UploadStatus) AllErrors() []string {
	if s == nil {
		return nil
	}
	errs := slices.Clone(s.Errors)
	for _, row := range s.RowStatus {
		for _, e := range row.Errors {
			errs = append(errs, fmt.Sprintf("row %d: %s", row.RowNumber, e))
		}
	}
	return errs
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

// Compile-time checks for the JSON codecs.
var (
	_ json.Marshaler   = Int64String(0)
	_ json.Unmarshaler = (*Int64String)(nil)
)
