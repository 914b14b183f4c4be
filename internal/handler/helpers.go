package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/zer0-A1/emineon-search/internal/pkg/errcode"
	apperrors "github.com/zer0-A1/emineon-search/internal/pkg/errors"
	"github.com/zer0-A1/emineon-search/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	switch {
	case apperrors.IsNotFound(err):
		response.Error(c, errcode.ErrNotFound, "not found")
	case apperrors.IsConflict(err):
		response.Error(c, errcode.ErrConflict, "conflict")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
