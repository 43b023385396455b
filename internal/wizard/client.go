package wizard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/apierror"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/draft"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/dto"
)

// ErrUnauthorized means the session token was missing, expired or rejected.
var ErrUnauthorized = errors.New("wizard: session rejected")

// StatusError is any other non-2xx answer from the backend.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("wizard: backend returned %d: %s", e.Code, e.Detail)
}

// Client talks to the draft endpoints with a session token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, sessionToken string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      sessionToken,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func draftQuery(productID, variantID string) string {
	q := url.Values{}
	q.Set("product_id", productID)
	if variantID != "" {
		q.Set("variant_id", variantID)
	}
	return q.Encode()
}

func (c *Client) LoadDraft(ctx context.Context, productID, variantID string) (*draft.Draft, error) {
	var out dto.DraftResponse
	err := c.do(ctx, http.MethodGet, "/api/wizard/draft?"+draftQuery(productID, variantID), nil, &out)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return nil, draft.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if out.Draft == nil {
		return nil, draft.ErrNotFound
	}
	return out.Draft, nil
}

func (c *Client) SaveDraft(ctx context.Context, productID, variantID string, d draft.Draft) error {
	req := dto.SaveDraftRequest{ProductID: productID, Draft: &d}
	if variantID != "" {
		req.VariantID = &variantID
	}
	return c.do(ctx, http.MethodPost, "/api/wizard/draft", req, nil)
}

func (c *Client) DeleteDraft(ctx context.Context, productID, variantID string) error {
	return c.do(ctx, http.MethodDelete, "/api/wizard/draft?"+draftQuery(productID, variantID), nil, nil)
}

// ListDrafts returns the keys the current staff user has saved.
func (c *Client) ListDrafts(ctx context.Context) ([]dto.DraftKeyResponse, error) {
	var out dto.DraftListResponse
	if err := c.do(ctx, http.MethodGet, "/api/wizard/drafts", nil, &out); err != nil {
		return nil, err
	}
	return out.Drafts, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("wizard: marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("wizard: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("wizard: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode >= 300:
		var apiErr apierror.APIError
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&apiErr)
		return &StatusError{Code: resp.StatusCode, Detail: apiErr.Detail}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("wizard: decode response: %w", err)
	}
	return nil
}
