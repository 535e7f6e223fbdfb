package customer

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wipay/subscriber-api/internal/handler"
	customerService "github.com/wipay/subscriber-api/internal/service/customer"
)

type Handler struct {
	service *customerService.Service
}

func NewHandler(service *customerService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	customers := r.Group("/customers")
	{
		customers.POST("", h.CreateCustomer)
		customers.GET("", h.ListCustomers)
		customers.GET("/:id", h.GetCustomer)
		customers.POST("/:id/subscribe", h.Subscribe)
		customers.POST("/:id/change-plan", h.ChangePlan)
		customers.POST("/:id/cancel", h.CancelSubscription)
		customers.GET("/:id/equipment", h.ListEquipment)
	}

	equipment := r.Group("/equipment")
	{
		equipment.POST("", h.AddEquipment)
		equipment.POST("/:id/assign", h.AssignEquipment)
		equipment.POST("/:id/return", h.ReturnEquipment)
	}

	plans := r.Group("/plans")
	{
		plans.POST("", h.CreatePlan)
	}
}

// RegisterCatalogRoutes mounts the read-only plan catalog, which the router
// serves through a short-lived response cache.
func (h *Handler) RegisterCatalogRoutes(r *gin.RouterGroup) {
	r.GET("/plans", h.ListPlans)
}

type createCustomerRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone" binding:"required,msisdn"`
	Address string `json:"address"`
}

type createPlanRequest struct {
	Name         string  `json:"name" binding:"required"`
	SpeedMbps    int     `json:"speed_mbps" binding:"required,gt=0"`
	MonthlyPrice float64 `json:"monthly_price" binding:"required,gt=0"`
	Currency     string  `json:"currency" binding:"required"`
}

type subscribeRequest struct {
	PlanID string `json:"plan_id" binding:"required"`
}

type addEquipmentRequest struct {
	SerialNumber string `json:"serial_number" binding:"required"`
	Model        string `json:"model"`
}

type assignEquipmentRequest struct {
	CustomerID string `json:"customer_id" binding:"required"`
}

func (h *Handler) CreateCustomer(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	customer, err := h.service.CreateCustomer(c.Request.Context(), req.Name, req.Email, req.Phone, req.Address)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(customer))
}

func (h *Handler) GetCustomer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid customer ID"))
		return
	}

	customer, err := h.service.GetCustomer(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(customer))
}

func (h *Handler) ListCustomers(c *gin.Context) {
	customers, err := h.service.ListCustomers(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(customers))
}

func (h *Handler) CreatePlan(c *gin.Context) {
	var req createPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	plan, err := h.service.CreatePlan(c.Request.Context(), req.Name, req.SpeedMbps, req.MonthlyPrice, req.Currency)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(plan))
}

func (h *Handler) ListPlans(c *gin.Context) {
	plans, err := h.service.ListPlans(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(plans))
}

func (h *Handler) Subscribe(c *gin.Context) {
	identity, ok := handler.CurrentIdentity(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid customer ID"))
		return
	}

	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	planID, err := uuid.Parse(req.PlanID)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid plan ID"))
		return
	}

	sub, err := h.service.Subscribe(c.Request.Context(), customerID, planID, identity.UserID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(sub))
}

func (h *Handler) ChangePlan(c *gin.Context) {
	identity, ok := handler.CurrentIdentity(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid customer ID"))
		return
	}

	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	planID, err := uuid.Parse(req.PlanID)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid plan ID"))
		return
	}

	sub, err := h.service.ChangePlan(c.Request.Context(), customerID, planID, identity.UserID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(sub))
}

func (h *Handler) CancelSubscription(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid customer ID"))
		return
	}

	if err := h.service.CancelSubscription(c.Request.Context(), customerID); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) AddEquipment(c *gin.Context) {
	var req addEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	eq, err := h.service.AddEquipment(c.Request.Context(), req.SerialNumber, req.Model)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(eq))
}

func (h *Handler) AssignEquipment(c *gin.Context) {
	equipmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid equipment ID"))
		return
	}

	var req assignEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid customer ID"))
		return
	}

	if err := h.service.AssignEquipment(c.Request.Context(), equipmentID, customerID); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) ReturnEquipment(c *gin.Context) {
	equipmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid equipment ID"))
		return
	}

	if err := h.service.ReturnEquipment(c.Request.Context(), equipmentID); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) ListEquipment(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid customer ID"))
		return
	}

	equipment, err := h.service.ListEquipmentForCustomer(c.Request.Context(), customerID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(equipment))
}
