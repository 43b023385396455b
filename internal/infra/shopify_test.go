package infra

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPISecret = "hush"

func signQuery(q url.Values) string {
	mac := hmac.New(sha256.New, []byte(testAPISecret))
	mac.Write([]byte(q.Encode()))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestValidShopDomain(t *testing.T) {
	assert.True(t, ValidShopDomain("acme-3d.myshopify.com"))
	assert.False(t, ValidShopDomain("acme.example.com"))
	assert.False(t, ValidShopDomain("evil.com/.myshopify.com"))
	assert.False(t, ValidShopDomain(""))
}

func TestVerifyQueryHMAC(t *testing.T) {
	c := NewShopifyClient("key", testAPISecret, "2024-10")
	q := url.Values{}
	q.Set("code", "abc")
	q.Set("shop", "acme.myshopify.com")
	q.Set("state", "n1")
	q.Set("timestamp", "1700000000")
	// url.Values.Encode sorts keys, matching Shopify's canonical message
	q.Set("hmac", signQuery(q))

	assert.True(t, c.VerifyQueryHMAC(q))

	q.Set("code", "tampered")
	assert.False(t, c.VerifyQueryHMAC(q))

	q.Del("hmac")
	assert.False(t, c.VerifyQueryHMAC(q))
}

func TestVerifyWebhookHMAC(t *testing.T) {
	c := NewShopifyClient("key", testAPISecret, "2024-10")
	body := []byte(`{"domain":"acme.myshopify.com"}`)
	mac := hmac.New(sha256.New, []byte(testAPISecret))
	mac.Write(body)
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	assert.True(t, c.VerifyWebhookHMAC(body, sig))
	assert.False(t, c.VerifyWebhookHMAC([]byte(`{}`), sig))
	assert.False(t, c.VerifyWebhookHMAC(body, ""))
}

func TestAuthorizeURL_RequestsOnlineToken(t *testing.T) {
	c := NewShopifyClient("key", testAPISecret, "2024-10")
	raw := c.AuthorizeURL("acme.myshopify.com", "read_products", "https://app/cb", "nonce")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "acme.myshopify.com", u.Host)
	assert.Equal(t, "/admin/oauth/authorize", u.Path)
	assert.Equal(t, "per-user", u.Query().Get("grant_options[]"))
	assert.Equal(t, "nonce", u.Query().Get("state"))
}

func TestExchangeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/admin/oauth/access_token", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "the-code", body["code"])
		_, _ = w.Write([]byte(`{"access_token":"shpat_1","scope":"read_products","expires_in":86399,
			"associated_user":{"id":42,"email":"staff@acme.test"}}`))
	}))
	defer srv.Close()

	c := NewShopifyClient("key", testAPISecret, "2024-10").WithBaseURL(srv.URL)
	tok, err := c.ExchangeCode(context.Background(), "acme.myshopify.com", "the-code")
	require.NoError(t, err)
	assert.Equal(t, "shpat_1", tok.AccessToken)
	require.NotNil(t, tok.AssociatedUser)
	assert.EqualValues(t, 42, tok.AssociatedUser.ID)
}

func TestListProducts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Shopify-Access-Token") != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "/admin/api/2024-10/products.json", r.URL.Path)
		_, _ = w.Write([]byte(`{"products":[{"id":1,"title":"Mug","variants":[{"id":11,"title":"Default","price":"9.90"}]}]}`))
	}))
	defer srv.Close()

	c := NewShopifyClient("key", testAPISecret, "2024-10").WithBaseURL(srv.URL)

	products, err := c.ListProducts(context.Background(), "acme.myshopify.com", "good")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Mug", products[0].Title)
	assert.Equal(t, "9.90", products[0].Variants[0].Price)

	_, err = c.ListProducts(context.Background(), "acme.myshopify.com", "bad")
	assert.ErrorIs(t, err, ErrShopifyUnauthorized)
}
