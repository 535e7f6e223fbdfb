package billing

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wipay/subscriber-api/internal/handler"
	billingService "github.com/wipay/subscriber-api/internal/service/billing"
)

type Handler struct {
	service *billingService.Service
}

func NewHandler(service *billingService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	invoices := r.Group("/invoices")
	{
		invoices.POST("", h.CreateInvoice)
		invoices.GET("/:id", h.GetInvoice)
		invoices.POST("/:id/pay", h.RequestPayment)
		invoices.POST("/:id/confirm", h.ConfirmPayment)
	}

	r.GET("/customers/:id/invoices", h.ListInvoices)
}

type createInvoiceRequest struct {
	CustomerID string    `json:"customer_id" binding:"required"`
	PlanID     string    `json:"plan_id"`
	Amount     float64   `json:"amount" binding:"required,gt=0"`
	Currency   string    `json:"currency" binding:"required"`
	DueDate    time.Time `json:"due_date" binding:"required"`
}

type payRequest struct {
	Phone string `json:"phone" binding:"required,msisdn"`
}

func (h *Handler) CreateInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid customer ID"))
		return
	}

	var planID *uuid.UUID
	if req.PlanID != "" {
		id, err := uuid.Parse(req.PlanID)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid plan ID"))
			return
		}
		planID = &id
	}

	invoice, err := h.service.CreateInvoice(c.Request.Context(), customerID, planID, req.Amount, req.Currency, req.DueDate)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(invoice))
}

func (h *Handler) GetInvoice(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid invoice ID"))
		return
	}

	invoice, err := h.service.GetInvoice(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(invoice))
}

func (h *Handler) ListInvoices(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid customer ID"))
		return
	}

	invoices, err := h.service.ListInvoices(c.Request.Context(), customerID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(invoices))
}

func (h *Handler) RequestPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid invoice ID"))
		return
	}

	var req payRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	result, err := h.service.RequestPayment(c.Request.Context(), id, req.Phone)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusAccepted, handler.NewSuccessResponse(result))
}

func (h *Handler) ConfirmPayment(c *gin.Context) {
	identity, ok := handler.CurrentIdentity(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid invoice ID"))
		return
	}

	result, err := h.service.ConfirmPayment(c.Request.Context(), id, identity.UserID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}
