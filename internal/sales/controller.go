package sales

import (
	"errors"
	"io"
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

// LockSeats handles POST /api/v1/sessions/current/lock. The body is optional.
func (ctrl *Controller) LockSeats(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	var req LockSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	result, err := ctrl.service.LockSeats(c.Request.Context(), userID, req.Seats)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Seats locked", result, nil)
}

// Checkout handles POST /api/v1/sales/checkout. A sale still awaiting
// confirmation is not an error and is answered with 202.
func (ctrl *Controller) Checkout(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	sale, err := ctrl.service.Checkout(c.Request.Context(), userID)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	if sale.IsConfirmed() {
		response.RespondJSON(c, "success", http.StatusCreated, "Sale confirmed", sale.ToResponse(), nil)
		return
	}
	response.RespondJSON(c, "success", http.StatusAccepted, "Sale recorded, confirmation pending", sale.ToResponse(), nil)
}

func (ctrl *Controller) ListSales(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	var query SaleListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}

	result, err := ctrl.service.ListSales(c.Request.Context(), userID, query)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Sales retrieved successfully", result, nil)
}

func (ctrl *Controller) GetSale(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	saleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid sale ID", nil, err.Error())
		return
	}

	sale, err := ctrl.service.GetSale(c.Request.Context(), userID, saleID)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Sale retrieved successfully", sale.ToResponse(), nil)
}

// Admin handlers

func (ctrl *Controller) ListAllSales(c *gin.Context) {
	var query SaleListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}

	result, err := ctrl.service.ListAllSales(c.Request.Context(), query)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Sales retrieved successfully", result, nil)
}

func (ctrl *Controller) CloseSale(c *gin.Context) {
	saleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid sale ID", nil, err.Error())
		return
	}

	var req CloseSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	sale, err := ctrl.service.CloseSale(c.Request.Context(), saleID, req.Note)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Sale closed", sale.ToResponse(), nil)
}
