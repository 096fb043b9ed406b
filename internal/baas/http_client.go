package baas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// fullListBatch is the page size used when walking every page of a collection.
const fullListBatch = 500

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 1 << 20

// HTTPClient talks to the backend's REST API.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
}

// Ensure HTTPClient implements the backend interfaces.
var (
	_ Backend       = (*HTTPClient)(nil)
	_ Writer        = (*HTTPClient)(nil)
	_ Authenticator = (*HTTPClient)(nil)
)

// NewHTTPClient creates a client for the backend at baseURL.
// baseURL must be absolute (scheme and host).
func NewHTTPClient(baseURL string, timeout time.Duration) (*HTTPClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("backend URL %q must be absolute http(s)", baseURL)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// BaseURL returns the backend base URL without a trailing slash.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// List returns one page of matching records.
// GET /api/collections/{collection}/records?page=&perPage=&filter=&sort=&expand=
func (c *HTTPClient) List(ctx context.Context, collection string, query ListQuery) (*ListResult, error) {
	params := listParams(query)
	params.Set("page", strconv.Itoa(max(query.Page, 1)))
	if query.PerPage > 0 {
		params.Set("perPage", strconv.Itoa(query.PerPage))
	}

	var result ListResult
	if err := c.do(ctx, http.MethodGet, recordsPath(collection), params, nil, &result); err != nil {
		return nil, wrapAPIError(err, "list "+collection)
	}
	if result.Items == nil {
		result.Items = []Record{}
	}
	return &result, nil
}

// GetFullList walks every page of matching records in batches, skipping the
// total count which the backend would otherwise recompute for each batch.
func (c *HTTPClient) GetFullList(ctx context.Context, collection string, query ListQuery) ([]Record, error) {
	records := []Record{}
	for page := 1; ; page++ {
		params := listParams(query)
		params.Set("page", strconv.Itoa(page))
		params.Set("perPage", strconv.Itoa(fullListBatch))
		params.Set("skipTotal", "1")

		var result ListResult
		if err := c.do(ctx, http.MethodGet, recordsPath(collection), params, nil, &result); err != nil {
			return nil, wrapAPIError(err, "full list "+collection)
		}
		records = append(records, result.Items...)
		if len(result.Items) < fullListBatch {
			return records, nil
		}
	}
}

// GetOne retrieves a single record by id.
// GET /api/collections/{collection}/records/{id}
func (c *HTTPClient) GetOne(ctx context.Context, collection string, id string, expand ...string) (Record, error) {
	if id == "" {
		return nil, fmt.Errorf("get %s: %w: empty id", collection, ErrNotFound)
	}
	params := url.Values{}
	if len(expand) > 0 {
		params.Set("expand", strings.Join(expand, ","))
	}

	var record Record
	if err := c.do(ctx, http.MethodGet, recordsPath(collection)+"/"+url.PathEscape(id), params, nil, &record); err != nil {
		return nil, wrapAPIError(err, "get "+collection)
	}
	return record, nil
}

// FileURL resolves a stored file reference against this backend.
func (c *HTTPClient) FileURL(record Record, filename string) string {
	return FileURL(c.baseURL, record, filename)
}

// Update patches a record on behalf of the viewer whose token is in ctx.
// PATCH /api/collections/{collection}/records/{id}
func (c *HTTPClient) Update(ctx context.Context, collection string, id string, fields map[string]any) (Record, error) {
	var record Record
	if err := c.do(ctx, http.MethodPatch, recordsPath(collection)+"/"+url.PathEscape(id), nil, fields, &record); err != nil {
		return nil, wrapAPIError(err, "update "+collection)
	}
	return record, nil
}

// AuthWithPassword authenticates against an auth collection.
// POST /api/collections/{collection}/auth-with-password
func (c *HTTPClient) AuthWithPassword(ctx context.Context, collection, identity, password string) (*AuthResult, error) {
	payload := map[string]string{
		"identity": identity,
		"password": password,
	}

	var result AuthResult
	path := "/api/collections/" + url.PathEscape(collection) + "/auth-with-password"
	if err := c.do(ctx, http.MethodPost, path, nil, payload, &result); err != nil {
		return nil, wrapAPIError(err, "auth with password")
	}
	if result.Token == "" {
		return nil, fmt.Errorf("auth with password: %w: empty token", ErrUnauthorized)
	}
	return &result, nil
}

// do performs a request and decodes a JSON response into out.
// Non-2xx responses are returned as *APIError.
func (c *HTTPClient) do(ctx context.Context, method, path string, params url.Values, body any, out any) error {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Debug("failed to close backend response body", "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode backend response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, apiErr)
	}
	apiErr.StatusCode = resp.StatusCode
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

func recordsPath(collection string) string {
	return "/api/collections/" + url.PathEscape(collection) + "/records"
}

func listParams(query ListQuery) url.Values {
	params := url.Values{}
	if filter := query.Filter.String(); filter != "" {
		params.Set("filter", filter)
	}
	if query.Sort != "" {
		params.Set("sort", query.Sort)
	}
	if len(query.Expand) > 0 {
		params.Set("expand", strings.Join(query.Expand, ","))
	}
	return params
}
