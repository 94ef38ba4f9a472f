package seats

import (
	"net/http"

	"seatflow/internal/shared/middleware"
	"seatflow/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

func (c *Controller) GetSeatMap(ctx *gin.Context) {
	eventID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid event ID", nil, err.Error())
		return
	}

	var userID *uuid.UUID
	if id, ok := middleware.OptionalUserID(ctx); ok {
		userID = &id
	}

	seatMap, err := c.service.GetSeatMap(ctx.Request.Context(), eventID, userID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Seat map retrieved successfully", seatMap, nil)
}

func (c *Controller) GetSeatSummary(ctx *gin.Context) {
	eventID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid event ID", nil, err.Error())
		return
	}

	summary, err := c.service.GetSeatSummary(ctx.Request.Context(), eventID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Seat summary retrieved successfully", summary, nil)
}
