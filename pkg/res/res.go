package res

import (
	"github.com/Dhoini/affiliate-service/pkg/logger"
	"github.com/gin-gonic/gin"
)

// ErrorResponse представляет формат JSON-ответа для ошибок.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`                // Сообщение об ошибке (для пользователя)
	ErrorCode int    `json:"error_code,omitempty"` // Код ошибки (для программной обработки)
	Details   any    `json:"details,omitempty"`    // Детали ошибки (например, ошибки валидации)
}

// JsonResponse отправляет JSON-ответ с заданным статусом.
func JsonResponse(c *gin.Context, data any, status int) {
	c.JSON(status, data)
}

// JsonErrorResponse отправляет JSON ответ ошибки и прерывает цепочку обработчиков.
func JsonErrorResponse(c *gin.Context, errResponse ErrorResponse, status int, log *logger.Logger) {
	errResponse.ErrorCode = status
	c.AbortWithStatusJSON(status, errResponse)
	if status >= 500 {
		log.Errorw("Error response", "status", status, "error", errResponse.Error, "path", c.Request.URL.Path)
		return
	}
	log.Warnw("Error response", "status", status, "error", errResponse.Error, "path", c.Request.URL.Path)
}
