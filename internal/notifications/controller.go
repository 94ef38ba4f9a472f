package notifications

import (
	"io"
	"net/http"

	"seatflow/internal/shared/apperrors"
	"seatflow/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

const maxNotificationBytes = 64 << 10

type Controller struct {
	processor *Processor
}

func NewController(processor *Processor) *Controller {
	return &Controller{processor: processor}
}

// ReceiveEventNotification handles POST /api/v1/notifications/events
func (ctrl *Controller) ReceiveEventNotification(c *gin.Context) {
	ctrl.receive(c, Kind.IsEvent)
}

// ReceiveSeatNotification handles POST /api/v1/notifications/seats
func (ctrl *Controller) ReceiveSeatNotification(c *gin.Context) {
	ctrl.receive(c, Kind.IsSeat)
}

func (ctrl *Controller) receive(c *gin.Context, accepts func(Kind) bool) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxNotificationBytes))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	n, err := Decode(body)
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid notification", nil, err.Error())
		return
	}
	if !accepts(n.Kind()) {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Notification kind not accepted on this endpoint", nil, string(n.Kind()))
		return
	}

	if err := ctrl.processor.Handle(c.Request.Context(), n, SourceWebhook); err != nil {
		// A 503 lets the proxy deliver again later
		response.RespondError(c, apperrors.Unavailable(err, "notification could not be processed"))
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Notification processed", gin.H{
		"kind":     n.Kind(),
		"eventoId": n.ExternalEventID(),
	}, nil)
}
