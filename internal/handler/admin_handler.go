package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/zer0-A1/emineon-search/internal/capability"
	"github.com/zer0-A1/emineon-search/internal/model"
	"github.com/zer0-A1/emineon-search/internal/pkg/errcode"
	"github.com/zer0-A1/emineon-search/internal/pkg/response"
	"github.com/zer0-A1/emineon-search/internal/repo"
	"github.com/zer0-A1/emineon-search/internal/schedule"
	"github.com/zer0-A1/emineon-search/internal/service"
)

// AdminHandler exposes the operational surface: manual reindex triggers,
// bulk rebuilds, provisioning, job health and the degradation flags.
type AdminHandler struct {
	reindex *service.ReindexService
	store   *repo.SearchDocumentRepo
	caps    *capability.State
	jobs    *schedule.Scheduler
}

func NewAdminHandler(reindex *service.ReindexService, store *repo.SearchDocumentRepo, caps *capability.State, jobs *schedule.Scheduler) *AdminHandler {
	return &AdminHandler{reindex: reindex, store: store, caps: caps, jobs: jobs}
}

type reindexRequest struct {
	SourceType string `json:"source_type"`
	SourceID   string `json:"source_id"`
	Reason     string `json:"reason"`
}

func (h *AdminHandler) Reindex(c *gin.Context) {
	var req reindexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	st, err := model.ParseSourceType(req.SourceType)
	if err != nil {
		response.Error(c, errcode.ErrInvalidSourceType, err.Error())
		return
	}
	if req.SourceID == "" {
		response.Error(c, errcode.ErrInvalid, "source_id is required")
		return
	}
	reason := service.Reason(req.Reason)
	if reason == "" {
		reason = service.ReasonUpdate
	}
	h.reindex.Trigger(st, req.SourceID, reason)
	response.Success(c, gin.H{"accepted": true})
}

type reindexAllRequest struct {
	SourceType string `json:"source_type"`
}

func (h *AdminHandler) ReindexAll(c *gin.Context) {
	var req reindexAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	st, err := model.ParseSourceType(req.SourceType)
	if err != nil {
		response.Error(c, errcode.ErrInvalidSourceType, err.Error())
		return
	}
	result, err := h.reindex.ReindexAll(c.Request.Context(), st)
	if err != nil {
		response.Errorf(c, errcode.ErrReindexFailed, "reindex %s: %v", st, err)
		return
	}
	response.Success(c, result)
}

// Jobs reports the last run outcome of every scheduled maintenance job.
func (h *AdminHandler) Jobs(c *gin.Context) {
	if h.jobs == nil {
		response.Success(c, gin.H{})
		return
	}
	response.Success(c, h.jobs.Status())
}

func (h *AdminHandler) Provision(c *gin.Context) {
	if err := h.store.Provision(c.Request.Context()); err != nil {
		response.Error(c, errcode.ErrProvisionFailed, err.Error())
		return
	}
	response.Success(c, h.caps.Snapshot())
}

func (h *AdminHandler) Capability(c *gin.Context) {
	response.Success(c, h.caps.Snapshot())
}

// CapabilityReset clears the degradation flags after the operator has
// re-provisioned the missing capability. There is no automatic recovery.
func (h *AdminHandler) CapabilityReset(c *gin.Context) {
	h.caps.Reset(c.Request.Context())
	response.Success(c, h.caps.Snapshot())
}
