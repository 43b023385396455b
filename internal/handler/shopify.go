package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/apierror"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/dto"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/middleware"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/service"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 1 << 20

type ShopifyHandler struct {
	svc          service.ShopifyService
	secureCookie bool
}

func NewShopifyHandler(svc service.ShopifyService, secureCookie bool) *ShopifyHandler {
	return &ShopifyHandler{svc: svc, secureCookie: secureCookie}
}

// Auth godoc
// @Summary Start the Shopify OAuth install flow
// @Tags shopify
// @Param shop query string true "Shop domain (example.myshopify.com)"
// @Success 302
// @Failure 400 {object} apierror.APIError
// @Router /api/shopify/auth [get]
func (h *ShopifyHandler) Auth(c *gin.Context) {
	var q dto.AuthQuery
	if !bindQueryAndValidate(c, &q) {
		return
	}
	redirect, err := h.svc.BeginAuth(c.Request.Context(), q.Shop)
	if errors.Is(err, service.ErrInvalidShop) {
		c.JSON(http.StatusBadRequest, apierror.New("invalid shop domain"))
		return
	}
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Redirect(http.StatusFound, redirect)
}

// Callback godoc
// @Summary Complete the Shopify OAuth flow and open a session
// @Tags shopify
// @Produce json
// @Param shop query string true "Shop domain"
// @Param code query string true "Authorization code"
// @Param state query string true "State nonce"
// @Param hmac query string true "Request signature"
// @Success 200 {object} dto.SessionResponse
// @Failure 400 {object} apierror.APIError
// @Failure 401 {object} apierror.APIError
// @Failure 502 {object} apierror.APIError
// @Router /api/shopify/callback [get]
func (h *ShopifyHandler) Callback(c *gin.Context) {
	var q dto.CallbackQuery
	if !bindQueryAndValidate(c, &q) {
		return
	}

	sess, err := h.svc.CompleteAuth(c.Request.Context(), c.Request.URL.Query())
	switch {
	case errors.Is(err, service.ErrInvalidShop):
		c.JSON(http.StatusBadRequest, apierror.New("invalid shop domain"))
		return
	case errors.Is(err, service.ErrInvalidSignature), errors.Is(err, service.ErrInvalidState):
		c.JSON(http.StatusUnauthorized, apierror.New(err.Error()))
		return
	case errors.Is(err, service.ErrNoAssociatedUser):
		c.JSON(http.StatusBadRequest, apierror.New("an online (per-user) token is required"))
		return
	case errors.Is(err, service.ErrShopifyUnavailable), errors.Is(err, service.ErrNoShopToken):
		c.JSON(http.StatusBadGateway, apierror.New("could not complete authorization with Shopify"))
		return
	case err != nil:
		_ = c.Error(err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, sess.Token, sess.ExpiresIn, "/", "", h.secureCookie, true)
	c.JSON(http.StatusOK, sess)
}

// Products godoc
// @Summary List the shop's products
// @Tags shopify
// @Produce json
// @Success 200 {object} dto.ProductListResponse
// @Failure 401 {object} apierror.APIError
// @Failure 502 {object} apierror.APIError
// @Router /api/shopify/products [get]
func (h *ShopifyHandler) Products(c *gin.Context) {
	claims := middleware.GetClaims(c)
	products, err := h.svc.ListProducts(c.Request.Context(), claims.Shop, claims.UserID)
	switch {
	case errors.Is(err, service.ErrNoShopToken):
		c.JSON(http.StatusUnauthorized, apierror.New("shop is not authorized, reinstall the app"))
		return
	case errors.Is(err, service.ErrShopifyUnavailable):
		c.JSON(http.StatusBadGateway, apierror.New("Shopify is unavailable, try again"))
		return
	case err != nil:
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.ProductListResponse{Products: products})
}

// AppUninstalled godoc
// @Summary Shopify app/uninstalled webhook
// @Tags shopify
// @Accept json
// @Produce json
// @Success 200 {object} dto.OKResponse
// @Failure 400 {object} apierror.APIError
// @Failure 401 {object} apierror.APIError
// @Router /api/shopify/webhooks/app-uninstalled [post]
func (h *ShopifyHandler) AppUninstalled(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("unreadable body"))
		return
	}

	err = h.svc.HandleUninstall(c.Request.Context(), body, c.GetHeader("X-Shopify-Hmac-Sha256"))
	switch {
	case errors.Is(err, service.ErrInvalidSignature):
		c.JSON(http.StatusUnauthorized, apierror.New("invalid webhook signature"))
		return
	case errors.Is(err, service.ErrInvalidShop):
		c.JSON(http.StatusBadRequest, apierror.New("invalid shop domain"))
		return
	case err != nil:
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.OKResponse{OK: true})
}
