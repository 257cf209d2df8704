package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Freeeeeet/slot_booking/internal/service"
)

var kindStatus = map[service.Kind]int{
	service.KindValidation: http.StatusBadRequest,
	service.KindConflict:   http.StatusConflict,
	service.KindNotFound:   http.StatusNotFound,
	service.KindTransient:  http.StatusServiceUnavailable,
	service.KindInternal:   http.StatusInternalServerError,
}

// writeError maps a service error onto a status code and JSON body.
func (h *Handler) writeError(c *gin.Context, err error) {
	kind := service.KindOf(err)
	status := kindStatus[kind]

	body := gin.H{"error": err.Error(), "kind": kind.String()}
	var overlap *service.OverlapError
	if errors.As(err, &overlap) {
		body["conflict"] = overlap.Conflict
	}

	// причину сбоя хранилища клиенту не отдаём
	switch kind {
	case service.KindTransient:
		h.logger.Warn("Request failed, retryable",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(ctxRequestID)),
			zap.Error(err),
		)
		body["error"] = "temporarily unable to complete the request, please retry"
	case service.KindInternal:
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(ctxRequestID)),
			zap.Error(err),
		)
		body["error"] = "internal error"
	}

	c.JSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "kind": service.KindValidation.String()})
}
