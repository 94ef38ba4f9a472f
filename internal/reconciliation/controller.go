package reconciliation

import (
	"net/http"
	"strconv"

	"seatflow/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	jobs *JobProcessor
}

func NewController(jobs *JobProcessor) *Controller {
	return &Controller{jobs: jobs}
}

// SyncCatalog handles POST /api/v1/admin/sync/catalog
func (ctrl *Controller) SyncCatalog(c *gin.Context) {
	report, err := ctrl.jobs.SyncCatalog(c.Request.Context())
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Catalog synced", report, nil)
}

// SyncEvent handles POST /api/v1/admin/sync/events/:externalId
func (ctrl *Controller) SyncEvent(c *gin.Context) {
	externalID, err := strconv.ParseInt(c.Param("externalId"), 10, 64)
	if err != nil || externalID <= 0 {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid external event ID", nil, c.Param("externalId"))
		return
	}

	outcome, err := ctrl.jobs.SyncEvent(c.Request.Context(), externalID)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Event synced", gin.H{
		"external_id": externalID,
		"outcome":     outcome,
	}, nil)
}

// RetryPending handles POST /api/v1/admin/reconciliation/retry
func (ctrl *Controller) RetryPending(c *gin.Context) {
	report, err := ctrl.jobs.RetryPending(c.Request.Context())
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Pending sales retried", report, nil)
}

// SyncSales handles POST /api/v1/admin/reconciliation/sales-sync
func (ctrl *Controller) SyncSales(c *gin.Context) {
	report, err := ctrl.jobs.SyncSales(c.Request.Context())
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Sales synced", report, nil)
}

// GetStatus handles GET /api/v1/admin/reconciliation/status
func (ctrl *Controller) GetStatus(c *gin.Context) {
	response.RespondJSON(c, "success", http.StatusOK, "Reconciliation status retrieved", ctrl.jobs.GetJobStatus(), nil)
}
