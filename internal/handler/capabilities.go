package handler

import (
	"errors"
	"net/http"

	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/apierror"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/dto"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/service"

	"github.com/gin-gonic/gin"
)

type CapabilitiesHandler struct{ svc service.CapabilityService }

func NewCapabilitiesHandler(svc service.CapabilityService) *CapabilitiesHandler {
	return &CapabilitiesHandler{svc: svc}
}

// List godoc
// @Summary Capability catalog, optionally filtered by category
// @Tags capabilities
// @Produce json
// @Param category query string false "dimensions | appearance | personalization | structure"
// @Success 200 {object} dto.CapabilityListResponse
// @Failure 400 {object} apierror.APIError
// @Router /api/capabilities [get]
func (h *CapabilitiesHandler) List(c *gin.Context) {
	defs, err := h.svc.Catalog(c.Query("category"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	c.JSON(http.StatusOK, dto.CapabilityListResponse{Capabilities: defs})
}

// Enable godoc
// @Summary Default configuration for a newly enabled capability
// @Tags capabilities
// @Accept json
// @Produce json
// @Param id path string true "Capability id"
// @Param body body dto.EnableCapabilityRequest false "Current part ids"
// @Success 200 {object} capability.Configuration
// @Failure 404 {object} apierror.APIError
// @Router /api/capabilities/{id}/enable [post]
func (h *CapabilitiesHandler) Enable(c *gin.Context) {
	var req dto.EnableCapabilityRequest
	if c.Request.ContentLength != 0 && !bindAndValidate(c, &req) {
		return
	}
	cfg, err := h.svc.Enable(c.Param("id"), req.PartIDs)
	if errors.Is(err, service.ErrUnknownCapability) {
		c.JSON(http.StatusNotFound, apierror.New("unknown capability"))
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// Quote godoc
// @Summary Price delta of a customer selection under a configuration
// @Tags capabilities
// @Accept json
// @Produce json
// @Param body body dto.QuoteRequest true "Configuration and selection"
// @Success 200 {object} dto.QuoteResponse
// @Failure 400 {object} apierror.APIError
// @Router /api/capabilities/quote [post]
func (h *CapabilitiesHandler) Quote(c *gin.Context) {
	var req dto.QuoteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Quote(*req.Configuration, req.Selection)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	c.JSON(http.StatusOK, resp)
}
