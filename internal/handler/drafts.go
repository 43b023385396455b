package handler

import (
	"errors"
	"net/http"

	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/apierror"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/draft"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/dto"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/middleware"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/service"

	"github.com/gin-gonic/gin"
)

type DraftsHandler struct{ svc service.DraftService }

func NewDraftsHandler(svc service.DraftService) *DraftsHandler { return &DraftsHandler{svc: svc} }

// sessionKey scopes a draft key to the caller's shop and staff user.
func sessionKey(c *gin.Context, productID, variantID string) draft.Key {
	claims := middleware.GetClaims(c)
	return draft.Key{
		TenantID:  claims.Shop,
		ActorID:   claims.UserID,
		ProductID: productID,
		VariantID: variantID,
	}
}

// Get godoc
// @Summary Load the saved wizard draft for a product
// @Tags wizard
// @Produce json
// @Param product_id query string true "Shopify product id"
// @Param variant_id query string false "Shopify variant id"
// @Success 200 {object} dto.DraftResponse
// @Failure 401 {object} apierror.APIError
// @Failure 404 {object} apierror.APIError
// @Router /api/wizard/draft [get]
func (h *DraftsHandler) Get(c *gin.Context) {
	var q dto.DraftQuery
	if !bindQueryAndValidate(c, &q) {
		return
	}

	d, err := h.svc.Get(c.Request.Context(), sessionKey(c, q.ProductID, q.VariantID))
	if errors.Is(err, service.ErrDraftNotFound) {
		c.JSON(http.StatusNotFound, apierror.New("draft not found"))
		return
	}
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.DraftResponse{Draft: d})
}

// Save godoc
// @Summary Save (replace) the wizard draft for a product
// @Tags wizard
// @Accept json
// @Produce json
// @Param body body dto.SaveDraftRequest true "Draft"
// @Success 200 {object} dto.OKResponse
// @Failure 400 {object} apierror.APIError
// @Failure 401 {object} apierror.APIError
// @Router /api/wizard/draft [post]
func (h *DraftsHandler) Save(c *gin.Context) {
	var req dto.SaveDraftRequest
	if !bindAndValidate(c, &req) {
		return
	}
	variantID := ""
	if req.VariantID != nil {
		variantID = *req.VariantID
	}

	if err := h.svc.Save(c.Request.Context(), sessionKey(c, req.ProductID, variantID), *req.Draft); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.OKResponse{OK: true})
}

// Delete godoc
// @Summary Discard the wizard draft for a product ("start over")
// @Tags wizard
// @Produce json
// @Param product_id query string true "Shopify product id"
// @Param variant_id query string false "Shopify variant id"
// @Success 200 {object} dto.OKResponse
// @Failure 401 {object} apierror.APIError
// @Router /api/wizard/draft [delete]
func (h *DraftsHandler) Delete(c *gin.Context) {
	var q dto.DraftQuery
	if !bindQueryAndValidate(c, &q) {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), sessionKey(c, q.ProductID, q.VariantID)); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.OKResponse{OK: true})
}

// List godoc
// @Summary List the caller's saved drafts
// @Tags wizard
// @Produce json
// @Success 200 {object} dto.DraftListResponse
// @Failure 401 {object} apierror.APIError
// @Router /api/wizard/drafts [get]
func (h *DraftsHandler) List(c *gin.Context) {
	claims := middleware.GetClaims(c)
	keys, err := h.svc.List(c.Request.Context(), claims.Shop, claims.UserID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := dto.DraftListResponse{Drafts: make([]dto.DraftKeyResponse, 0, len(keys))}
	for _, k := range keys {
		item := dto.DraftKeyResponse{ProductID: k.ProductID}
		if k.VariantID != "" {
			v := k.VariantID
			item.VariantID = &v
		}
		resp.Drafts = append(resp.Drafts, item)
	}
	c.JSON(http.StatusOK, resp)
}
