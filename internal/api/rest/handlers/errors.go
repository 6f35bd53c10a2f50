package handlers

import (
	"errors"
	"net/http"

	"github.com/Dhoini/affiliate-service/internal/domain"
	"github.com/Dhoini/affiliate-service/pkg/logger"
	"github.com/Dhoini/affiliate-service/pkg/req"
	"github.com/Dhoini/affiliate-service/pkg/res"
	"github.com/gin-gonic/gin"
)

// respondError переводит ошибку сервиса в HTTP-ответ
func respondError(c *gin.Context, err error, log *logger.Logger) {
	var verrs domain.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		res.JsonErrorResponse(c, res.ErrorResponse{Error: "Validation failed", Details: verrs}, http.StatusBadRequest, log)
	case errors.Is(err, domain.ErrUnauthenticated):
		res.JsonErrorResponse(c, res.ErrorResponse{Error: "Unauthorized"}, http.StatusUnauthorized, log)
	case errors.Is(err, domain.ErrForbidden):
		res.JsonErrorResponse(c, res.ErrorResponse{Error: "Forbidden"}, http.StatusForbidden, log)
	case errors.Is(err, domain.ErrLinkNotFound):
		res.JsonErrorResponse(c, res.ErrorResponse{Error: "Invalid affiliate code"}, http.StatusNotFound, log)
	case errors.Is(err, domain.ErrNotFound):
		res.JsonErrorResponse(c, res.ErrorResponse{Error: "Not found"}, http.StatusNotFound, log)
	case errors.Is(err, domain.ErrInvalidInput):
		res.JsonErrorResponse(c, res.ErrorResponse{Error: err.Error()}, http.StatusBadRequest, log)
	case errors.Is(err, domain.ErrDuplicate):
		res.JsonErrorResponse(c, res.ErrorResponse{Error: "Conflict"}, http.StatusConflict, log)
	default:
		log.Errorw("Unhandled error", "error", err, "path", c.Request.URL.Path)
		res.JsonErrorResponse(c, res.ErrorResponse{Error: "Internal server error"}, http.StatusInternalServerError, log)
	}
}

// respondBadBody ответ на тело запроса, которое не удалось разобрать или провалидировать
func respondBadBody(c *gin.Context, err error, log *logger.Logger) {
	res.JsonErrorResponse(c, res.ErrorResponse{Error: "Invalid request body", Details: fieldErrorsOrNil(err)}, http.StatusBadRequest, log)
}

func fieldErrorsOrNil(err error) any {
	if fields := req.FieldErrors(err); len(fields) > 0 {
		return fields
	}
	return nil
}
