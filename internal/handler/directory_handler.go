package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sep-portal-api/pkg/directory"
	"github.com/noah-isme/sep-portal-api/pkg/response"
)

type directoryService interface {
	FetchPanchayaths(ctx context.Context) []directory.Panchayath
	FetchWards(ctx context.Context, panchayathID string) []directory.Ward
	FetchAgents(ctx context.Context, panchayathID string) []directory.Agent
}

// DirectoryHandler proxies the external read-only directory. Upstream
// failures surface as empty lists.
type DirectoryHandler struct {
	directory directoryService
}

// NewDirectoryHandler constructs DirectoryHandler.
func NewDirectoryHandler(directory directoryService) *DirectoryHandler {
	return &DirectoryHandler{directory: directory}
}

// Panchayaths godoc
// @Summary Directory panchayaths
// @Tags Directory
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /directory/panchayaths [get]
func (h *DirectoryHandler) Panchayaths(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.directory.FetchPanchayaths(c.Request.Context()), nil)
}

// Wards godoc
// @Summary Wards of a directory panchayath
// @Tags Directory
// @Produce json
// @Param id path string true "Directory panchayath ID"
// @Success 200 {object} response.Envelope
// @Router /directory/panchayaths/{id}/wards [get]
func (h *DirectoryHandler) Wards(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.directory.FetchWards(c.Request.Context(), c.Param("id")), nil)
}

// Agents godoc
// @Summary Directory agents
// @Tags Directory
// @Produce json
// @Param panchayath_id query string false "Restrict to one panchayath"
// @Success 200 {object} response.Envelope
// @Router /directory/agents [get]
func (h *DirectoryHandler) Agents(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.directory.FetchAgents(c.Request.Context(), c.Query("panchayath_id")), nil)
}
