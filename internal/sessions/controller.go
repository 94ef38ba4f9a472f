package sessions

import (
	"net/http"

	"seatflow/internal/shared/middleware"
	"seatflow/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	manager Manager
}

func NewController(manager Manager) *Controller {
	return &Controller{manager: manager}
}

func (ctrl *Controller) StartSession(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	session, err := ctrl.manager.Start(c.Request.Context(), userID, uuid.MustParse(req.EventID))
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Purchase session started", ToResponse(session, ctrl.manager.Now()), nil)
}

func (ctrl *Controller) GetCurrentSession(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	session, err := ctrl.manager.Current(c.Request.Context(), userID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	if session == nil {
		response.RespondJSON(c, "error", http.StatusNotFound, "No active purchase session", nil, nil)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Purchase session retrieved", ToResponse(session, ctrl.manager.Now()), nil)
}

func (ctrl *Controller) SetSeats(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	var req SetSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	session, err := ctrl.manager.SetSeats(c.Request.Context(), userID, req.Seats)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Seats selected", ToResponse(session, ctrl.manager.Now()), nil)
}

func (ctrl *Controller) SetAttendees(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	var req SetAttendeesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	session, err := ctrl.manager.SetAttendees(c.Request.Context(), userID, req.Attendees)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Attendees assigned", ToResponse(session, ctrl.manager.Now()), nil)
}

func (ctrl *Controller) RenewSession(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	session, err := ctrl.manager.Renew(c.Request.Context(), userID)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Purchase session renewed", ToResponse(session, ctrl.manager.Now()), nil)
}

// ClearSession releases the session. Idempotent.
func (ctrl *Controller) ClearSession(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	if err := ctrl.manager.Clear(c.Request.Context(), userID); err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Purchase session cleared", nil, nil)
}
