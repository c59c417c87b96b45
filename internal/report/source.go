package report

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/j-veylop/bidmanager-cli/internal/dbm"
)

// Resource is an open remote report file.
type Resource struct {
	Body io.ReadCloser
	// Length is the declared size in bytes, or -1 when unknown.
	Length int64
}

// Opener opens the resource behind a report location.
type Opener interface {
	Open(ctx context.Context, location string) (*Resource, error)
}

// HTTPOpener opens http and https locations. Report paths are signed URLs,
// so the client does not need to carry API credentials.
type HTTPOpener struct {
	Client *http.Client
}

// Open issues a GET and returns the body with its Content-Length.
func (o *HTTPOpener) Open(ctx context.Context, location string) (*Resource, error) {
	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create report request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: report request failed: %w", dbm.ErrTransport, err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		return nil, &dbm.APIError{Operation: "report download", Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	// net/http reports -1 when Content-Length is absent.
	return &Resource{Body: resp.Body, Length: resp.ContentLength}, nil
}

// GCSOpener opens gs://bucket/object locations with the Cloud Storage client.
type GCSOpener struct {
	client  *storage.Client
	options []option.ClientOption
}

// NewGCSOpener creates an opener that dials Cloud Storage lazily on first use.
func NewGCSOpener(opts ...option.ClientOption) *GCSOpener {
	return &GCSOpener{options: opts}
}

// Open streams the object and declares its stored size.
func (o *GCSOpener) Open(ctx context.Context, location string) (*Resource, error) {
	bucket, key, err := parseGCSPath(location)
	if err != nil {
		return nil, err
	}

	if o.client == nil {
		client, err := storage.NewClient(ctx, o.options...)
		if err != nil {
			return nil, fmt.Errorf("%w: create GCS client: %w", dbm.ErrTransport, err)
		}
		o.client = client
	}

	r, err := o.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", dbm.ErrTransport, location, err)
	}
	return &Resource{Body: r, Length: r.Attrs.Size}, nil
}

// Close releases the Cloud Storage client if one was created.
func (o *GCSOpener) Close() error {
	if o.client == nil {
		return nil
	}
	return o.client.Close()
}

// parseGCSPath extracts bucket and key from a "gs://bucket/path/to/file" URI.
func parseGCSPath(path string) (bucket, key string, err error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", "", fmt.Errorf("parse GCS path %q: %w", path, err)
	}
	if u.Scheme != "gs" {
		return "", "", fmt.Errorf("expected gs:// scheme, got %q in %q", u.Scheme, path)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("empty bucket or key in GCS path %q", path)
	}
	return bucket, key, nil
}

// SchemeOpener dispatches on the URL scheme of the location.
type SchemeOpener map[string]Opener

// NewSchemeOpener wires http, https and gs locations.
func NewSchemeOpener(httpClient *http.Client, gcs Opener) SchemeOpener {
	web := &HTTPOpener{Client: httpClient}
	so := SchemeOpener{"http": web, "https": web}
	if gcs != nil {
		so["gs"] = gcs
	}
	return so
}

// Open routes location to the opener registered for its scheme.
func (s SchemeOpener) Open(ctx context.Context, location string) (*Resource, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid report location %q: %w", dbm.ErrInvalidArgument, location, err)
	}
	opener, ok := s[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, dbm.InvalidArgument("unsupported report location scheme %q", u.Scheme)
	}
	return opener.Open(ctx, location)
}
