package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/zer0-A1/emineon-search/internal/model"
	"github.com/zer0-A1/emineon-search/internal/pkg/errcode"
	apperrors "github.com/zer0-A1/emineon-search/internal/pkg/errors"
	"github.com/zer0-A1/emineon-search/internal/pkg/response"
	"github.com/zer0-A1/emineon-search/internal/service"
)

type SearchHandler struct {
	search *service.SearchService
}

func NewSearchHandler(search *service.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

type searchRequest struct {
	Query   string           `json:"query"`
	Limit   int              `json:"limit"`
	Weights *service.Weights `json:"weights"`
	Types   []string         `json:"types"`
}

func (h *SearchHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	types := make([]model.SourceType, 0, len(req.Types))
	for _, raw := range req.Types {
		st, err := model.ParseSourceType(raw)
		if err != nil {
			response.Error(c, errcode.ErrInvalidSourceType, err.Error())
			return
		}
		types = append(types, st)
	}
	hits, err := h.search.Search(c.Request.Context(), service.SearchRequest{
		Query:   req.Query,
		Limit:   req.Limit,
		Weights: req.Weights,
		Types:   types,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidQuery) {
			response.Error(c, errcode.ErrInvalidQuery, "invalid query")
			return
		}
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"hits": hits})
}
