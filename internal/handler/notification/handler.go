package notification

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wipay/subscriber-api/internal/handler"
	"github.com/wipay/subscriber-api/internal/model"
	"github.com/wipay/subscriber-api/internal/realtime"
	notificationService "github.com/wipay/subscriber-api/internal/service/notification"
)

type Handler struct {
	service *notificationService.Service
}

func NewHandler(service *notificationService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notifications")
	{
		notifications.GET("", h.List)
		notifications.GET("/counts", h.Counts)
		notifications.POST("/read-all", h.MarkAllRead)
		notifications.POST("/:id/read", h.MarkRead)
		notifications.POST("/:id/archive", h.Archive)
		notifications.DELETE("/:id", h.Delete)
	}
}

func (h *Handler) RegisterStreamRoutes(r *gin.RouterGroup) {
	streams := r.Group("/notifications")
	{
		streams.GET("/stream", h.Stream)
		streams.GET("/counts/stream", h.StreamCounts)
	}
}

func listOptions(c *gin.Context) model.ListOptions {
	opts := model.ListOptions{
		IncludeArchived: c.Query("include_archived") == "true",
	}
	if raw := c.Query("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			opts.Limit = limit
		}
	}
	return opts
}

func (h *Handler) List(c *gin.Context) {
	identity, ok := handler.CurrentIdentity(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	notifications, err := h.service.List(c.Request.Context(), identity.UserID, listOptions(c))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(notifications))
}

func (h *Handler) Counts(c *gin.Context) {
	identity, ok := handler.CurrentIdentity(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	counts, err := h.service.Counts(c.Request.Context(), identity.UserID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(counts))
}

func (h *Handler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid notification ID"))
		return
	}

	if err := h.service.MarkAsRead(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	identity, ok := handler.CurrentIdentity(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	if err := h.service.MarkAllAsRead(c.Request.Context(), identity.UserID); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) Archive(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid notification ID"))
		return
	}

	if err := h.service.Archive(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid notification ID"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) Stream(c *gin.Context) {
	identity, ok := handler.CurrentIdentity(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	opts := listOptions(c)

	handler.StreamSnapshots(c, func(fn func([]*model.Notification)) (realtime.CancelFunc, error) {
		return h.service.SubscribeToList(c.Request.Context(), identity.UserID, opts, fn)
	})
}

func (h *Handler) StreamCounts(c *gin.Context) {
	identity, ok := handler.CurrentIdentity(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	handler.StreamSnapshots(c, func(fn func(*model.NotificationCounts)) (realtime.CancelFunc, error) {
		return h.service.SubscribeToCounts(c.Request.Context(), identity.UserID, fn)
	})
}
