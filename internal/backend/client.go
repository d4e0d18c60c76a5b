// Package backend is the REST client for the commission management backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/commissiondesk/internal/shared"
)

// APIError is returned for non-2xx backend responses.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
}

// Is lets a 404 match shared.ErrNotFound.
func (e *APIError) Is(target error) bool {
	return target == shared.ErrNotFound && e.Status == http.StatusNotFound
}

// MessageOf returns the server-provided message carried by err, or fallback.
func MessageOf(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	return fallback
}

// Client wraps interactions with the commission backend.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	serviceToken string
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithServiceToken sets the bearer token used when the context carries no viewer token.
func WithServiceToken(token string) Option {
	return func(c *Client) {
		c.serviceToken = token
	}
}

// NewClient constructs a new client.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetStatuses returns the status directory.
func (c *Client) GetStatuses(ctx context.Context) ([]Status, error) {
	var out []Status
	if err := c.getList(ctx, "/statuses", nil, &out); err != nil {
		return nil, fmt.Errorf("get statuses: %w", err)
	}
	return out, nil
}

// GetDealByID loads a single deal.
func (c *Client) GetDealByID(ctx context.Context, id ID) (Deal, error) {
	var deal Deal
	if err := c.do(ctx, http.MethodGet, "/deals/"+url.PathEscape(id.String()), nil, nil, &deal); err != nil {
		return Deal{}, fmt.Errorf("get deal %s: %w", id, err)
	}
	return deal, nil
}

// GetDeals returns a filtered page of deals.
func (c *Client) GetDeals(ctx context.Context, filters DealFilters, page, pageSize int) (DealPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(pageSize))
	if filters.StatusID != "" {
		q.Set("statusId", filters.StatusID.String())
	}
	if filters.AgentID != "" {
		q.Set("agentId", filters.AgentID.String())
	}
	if filters.Search != "" {
		q.Set("search", filters.Search)
	}
	var result DealPage
	if err := c.do(ctx, http.MethodGet, "/deals", q, nil, &result); err != nil {
		return DealPage{}, fmt.Errorf("get deals: %w", err)
	}
	return result, nil
}

// UpdateDealStatus moves a deal to the given status.
func (c *Client) UpdateDealStatus(ctx context.Context, dealID, statusID ID) error {
	body := map[string]ID{"statusId": statusID}
	if err := c.do(ctx, http.MethodPut, "/deals/"+url.PathEscape(dealID.String())+"/status", nil, body, nil); err != nil {
		return fmt.Errorf("update deal %s status: %w", dealID, err)
	}
	return nil
}

// UpdateDeal persists overview and finance edits.
func (c *Client) UpdateDeal(ctx context.Context, dealID ID, patch DealPatch) error {
	if err := c.do(ctx, http.MethodPatch, "/deals/"+url.PathEscape(dealID.String()), nil, patch, nil); err != nil {
		return fmt.Errorf("update deal %s: %w", dealID, err)
	}
	return nil
}

// CompleteCompliance asks the backend to run its compliance completion transition.
func (c *Client) CompleteCompliance(ctx context.Context, dealID ID) error {
	if err := c.do(ctx, http.MethodPost, "/deals/"+url.PathEscape(dealID.String())+"/compliance/complete", nil, nil, nil); err != nil {
		return fmt.Errorf("complete compliance for deal %s: %w", dealID, err)
	}
	return nil
}

// RecordCollection appends a collection ledger entry.
func (c *Client) RecordCollection(ctx context.Context, req CollectionRequest) (Collection, error) {
	var out Collection
	if err := c.do(ctx, http.MethodPost, "/collections", nil, req, &out); err != nil {
		return Collection{}, fmt.Errorf("record collection for deal %s: %w", req.DealID, err)
	}
	return out, nil
}

// TransferCommission appends a transfer ledger entry.
func (c *Client) TransferCommission(ctx context.Context, req TransferRequest) (Transfer, error) {
	var out Transfer
	if err := c.do(ctx, http.MethodPost, "/transfers", nil, req, &out); err != nil {
		return Transfer{}, fmt.Errorf("transfer commission for deal %s: %w", req.DealID, err)
	}
	return out, nil
}

// GetDealAgents lists transfer recipients for a deal.
func (c *Client) GetDealAgents(ctx context.Context, dealID ID) (DealAgents, error) {
	var out DealAgents
	if err := c.do(ctx, http.MethodGet, "/deals/"+url.PathEscape(dealID.String())+"/agents", nil, nil, &out); err != nil {
		return DealAgents{}, fmt.Errorf("get deal %s agents: %w", dealID, err)
	}
	return out, nil
}

// GetDealCollections lists collections recorded against a deal.
func (c *Client) GetDealCollections(ctx context.Context, dealID ID) ([]Collection, error) {
	var out []Collection
	if err := c.getList(ctx, "/deals/"+url.PathEscape(dealID.String())+"/collections", nil, &out); err != nil {
		return nil, fmt.Errorf("get deal %s collections: %w", dealID, err)
	}
	return out, nil
}

// GetDealTransfers lists transfers recorded against a deal.
func (c *Client) GetDealTransfers(ctx context.Context, dealID ID) ([]Transfer, error) {
	var out []Transfer
	if err := c.getList(ctx, "/deals/"+url.PathEscape(dealID.String())+"/transfers", nil, &out); err != nil {
		return nil, fmt.Errorf("get deal %s transfers: %w", dealID, err)
	}
	return out, nil
}

// GetCollectionSources lists where collected money may come from.
func (c *Client) GetCollectionSources(ctx context.Context) ([]SelectOption, error) {
	var out []SelectOption
	if err := c.getList(ctx, "/collection-sources", nil, &out); err != nil {
		return nil, fmt.Errorf("get collection sources: %w", err)
	}
	return out, nil
}

// GetCollectionTypes lists collection type selectors.
func (c *Client) GetCollectionTypes(ctx context.Context) ([]SelectOption, error) {
	var out []SelectOption
	if err := c.getList(ctx, "/collection-types", nil, &out); err != nil {
		return nil, fmt.Errorf("get collection types: %w", err)
	}
	return out, nil
}

// getList decodes either a bare JSON array or a {"data": [...]} envelope.
func (c *Client) getList(ctx context.Context, path string, query url.Values, dest any) error {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, query, nil, &raw); err != nil {
		return err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '{' {
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return err
		}
		if len(envelope.Data) == 0 {
			return nil
		}
		trimmed = envelope.Data
	}
	return json.Unmarshal(trimmed, dest)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, dest any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth := c.authorization(ctx); auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return &APIError{Status: resp.StatusCode, Message: readMessage(resp.Body)}
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

func (c *Client) authorization(ctx context.Context) string {
	if p, ok := shared.PrincipalFromContext(ctx); ok && p.Authorization != "" {
		return p.Authorization
	}
	if c.serviceToken != "" {
		return "Bearer " + c.serviceToken
	}
	return ""
}

// readMessage extracts a human readable message from an error body.
func readMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return ""
	}
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	switch {
	case body.Message != "":
		return body.Message
	case body.Error != "":
		return body.Error
	default:
		return body.Detail
	}
}
