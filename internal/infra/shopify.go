package infra

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"
)

// ErrShopifyUnauthorized is returned when Shopify rejects the access token.
var ErrShopifyUnauthorized = errors.New("shopify: access token rejected")

var shopDomainRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9\-]*\.myshopify\.com$`)

// ValidShopDomain reports whether shop looks like "<name>.myshopify.com".
func ValidShopDomain(shop string) bool {
	return shopDomainRe.MatchString(shop)
}

// AccessTokenResponse is Shopify's answer to the OAuth code exchange. Online
// tokens carry the staff user they were issued for.
type AccessTokenResponse struct {
	AccessToken    string `json:"access_token"`
	Scope          string `json:"scope"`
	ExpiresIn      int    `json:"expires_in"`
	AssociatedUser *struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	} `json:"associated_user"`
}

// ShopifyVariant is the subset of a product variant the wizard shows.
type ShopifyVariant struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Price string `json:"price"`
	SKU   string `json:"sku"`
}

// ShopifyImage is a product image.
type ShopifyImage struct {
	Src string `json:"src"`
}

// ShopifyProduct is the subset of a product the wizard shows.
type ShopifyProduct struct {
	ID       int64            `json:"id"`
	Title    string           `json:"title"`
	Handle   string           `json:"handle"`
	Status   string           `json:"status"`
	Variants []ShopifyVariant `json:"variants"`
	Image    *ShopifyImage    `json:"image"`
}

// ShopifyClient talks to the Shopify OAuth and Admin REST endpoints.
type ShopifyClient struct {
	apiKey     string
	apiSecret  string
	apiVersion string
	httpClient *http.Client
	// endpoint builds the base URL for a shop; replaced in tests.
	endpoint func(shop string) string
}

func NewShopifyClient(apiKey, apiSecret, apiVersion string) *ShopifyClient {
	return &ShopifyClient{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		apiVersion: apiVersion,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		endpoint:   func(shop string) string { return "https://" + shop },
	}
}

// WithBaseURL points every shop at baseURL. Used against test servers.
func (c *ShopifyClient) WithBaseURL(baseURL string) *ShopifyClient {
	cp := *c
	cp.endpoint = func(string) string { return strings.TrimRight(baseURL, "/") }
	return &cp
}

// AuthorizeURL builds the install/consent URL. Per-user grant makes Shopify
// issue an online token tied to the staff member who approves.
func (c *ShopifyClient) AuthorizeURL(shop, scopes, redirectURI, state string) string {
	q := url.Values{}
	q.Set("client_id", c.apiKey)
	q.Set("scope", scopes)
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	q.Add("grant_options[]", "per-user")
	return c.endpoint(shop) + "/admin/oauth/authorize?" + q.Encode()
}

// VerifyQueryHMAC checks the hmac parameter Shopify appends to redirects.
func (c *ShopifyClient) VerifyQueryHMAC(query url.Values) bool {
	got := query.Get("hmac")
	if got == "" {
		return false
	}
	keys := make([]string, 0, len(query))
	for k := range query {
		if k == "hmac" || k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+strings.Join(query[k], ","))
	}

	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(strings.Join(parts, "&")))
	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(strings.ToLower(got)))
}

// VerifyWebhookHMAC checks the X-Shopify-Hmac-Sha256 header of a webhook body.
func (c *ShopifyClient) VerifyWebhookHMAC(body []byte, header string) bool {
	if header == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write(body)
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(header))
}

// ExchangeCode trades an OAuth authorization code for an access token.
func (c *ShopifyClient) ExchangeCode(ctx context.Context, shop, code string) (*AccessTokenResponse, error) {
	body, err := json.Marshal(map[string]string{
		"client_id":     c.apiKey,
		"client_secret": c.apiSecret,
		"code":          code,
	})
	if err != nil {
		return nil, fmt.Errorf("shopify: marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(shop)+"/admin/oauth/access_token", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("shopify: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("shopify: token exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("shopify: token exchange returned %d", resp.StatusCode)
	}

	var result AccessTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("shopify: decode token response: %w", err)
	}
	if result.AccessToken == "" {
		return nil, errors.New("shopify: token response without access_token")
	}
	return &result, nil
}

// ListProducts fetches the first page of a shop's products.
func (c *ShopifyClient) ListProducts(ctx context.Context, shop, accessToken string) ([]ShopifyProduct, error) {
	u := fmt.Sprintf("%s/admin/api/%s/products.json?limit=250&fields=id,title,handle,status,variants,image",
		c.endpoint(shop), c.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("shopify: create request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("shopify: list products: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, ErrShopifyUnauthorized
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("shopify: list products returned %d", resp.StatusCode)
	}

	var result struct {
		Products []ShopifyProduct `json:"products"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("shopify: decode products: %w", err)
	}
	if result.Products == nil {
		result.Products = []ShopifyProduct{}
	}
	return result.Products, nil
}
