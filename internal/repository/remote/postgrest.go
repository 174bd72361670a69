package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	restPath   = "/rest/v1"
	pingTable  = "torres"
	pingColumn = "id_torre"
)

// PostgREST is the authoritative store reached through a Supabase-style REST API.
type PostgREST struct {
	client *resty.Client
}

var _ Store = (*PostgREST)(nil)

// APIError is a non-2xx answer from the REST API.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("postgrest %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("postgrest %d: %s", e.Status, e.Message)
}

func NewPostgREST(baseURL, apiKey string, timeout time.Duration) *PostgREST {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")+restPath).
		SetTimeout(timeout).
		SetHeader("apikey", apiKey).
		SetAuthToken(apiKey).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)
	return &PostgREST{client: client}
}

func (p *PostgREST) Insert(ctx context.Context, table string, row map[string]any) (map[string]any, error) {
	var out []map[string]any
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody(row).
		SetResult(&out).
		SetError(&APIError{}).
		Post("/" + table)
	if err := checkResponse(resp, err); err != nil {
		return nil, fmt.Errorf("insert into %s: %w", table, err)
	}
	if len(out) == 0 {
		return row, nil
	}
	return out[0], nil
}

func (p *PostgREST) Select(ctx context.Context, table string, filters ...Filter) ([]map[string]any, error) {
	params := filterValues(filters)
	params.Set("select", "*")

	var out []map[string]any
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParamsFromValues(params).
		SetResult(&out).
		SetError(&APIError{}).
		Get("/" + table)
	if err := checkResponse(resp, err); err != nil {
		return nil, fmt.Errorf("select from %s: %w", table, err)
	}
	return out, nil
}

func (p *PostgREST) Update(ctx context.Context, table string, values map[string]any, filters ...Filter) ([]map[string]any, error) {
	if len(filters) == 0 {
		return nil, fmt.Errorf("update %s: refusing to update without filters", table)
	}
	var out []map[string]any
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=representation").
		SetQueryParamsFromValues(filterValues(filters)).
		SetBody(values).
		SetResult(&out).
		SetError(&APIError{}).
		Patch("/" + table)
	if err := checkResponse(resp, err); err != nil {
		return nil, fmt.Errorf("update %s: %w", table, err)
	}
	return out, nil
}

// Count asks the API for an exact count and reads it from Content-Range.
func (p *PostgREST) Count(ctx context.Context, table string, filters ...Filter) (int, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Prefer", "count=exact").
		SetQueryParamsFromValues(filterValues(filters)).
		SetError(&APIError{}).
		Head("/" + table)
	if err := checkResponse(resp, err); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	n, err := parseContentRange(resp.Header().Get("Content-Range"))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func (p *PostgREST) Ping(ctx context.Context) error {
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("select", pingColumn).
		SetQueryParam("limit", "1").
		SetError(&APIError{}).
		Get("/" + pingTable)
	return checkResponse(resp, err)
}

func (p *PostgREST) Close() {}

func filterValues(filters []Filter) url.Values {
	v := url.Values{}
	for _, f := range filters {
		switch f.Op {
		case OpNotNull:
			v.Add(f.Column, string(OpNotNull))
		default:
			v.Add(f.Column, fmt.Sprintf("%s.%v", f.Op, f.Value))
		}
	}
	return v
}

func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if !resp.IsError() {
		return nil
	}
	if apiErr, ok := resp.Error().(*APIError); ok && apiErr.Message != "" {
		apiErr.Status = resp.StatusCode()
		return apiErr
	}
	msg := strings.TrimSpace(resp.String())
	if msg == "" {
		msg = http.StatusText(resp.StatusCode())
	}
	return &APIError{Status: resp.StatusCode(), Message: msg}
}

// parseContentRange reads the total from "0-24/25" or "*/25".
func parseContentRange(h string) (int, error) {
	i := strings.LastIndexByte(h, '/')
	if i < 0 || i == len(h)-1 {
		return 0, fmt.Errorf("malformed Content-Range %q", h)
	}
	total := h[i+1:]
	if total == "*" {
		return 0, fmt.Errorf("Content-Range %q has no exact count", h)
	}
	n, err := strconv.Atoi(total)
	if err != nil {
		return 0, fmt.Errorf("malformed Content-Range %q: %w", h, err)
	}
	return n, nil
}
