package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wipay/subscriber-api/internal/handler"
	"github.com/wipay/subscriber-api/internal/model"
	"github.com/wipay/subscriber-api/internal/realtime"
	chatService "github.com/wipay/subscriber-api/internal/service/chat"
)

type Handler struct {
	service *chatService.Service
}

func NewHandler(service *chatService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	sessions := r.Group("/chat/sessions")
	{
		sessions.POST("", h.CreateSession)
		sessions.GET("", h.ListSessions)
		sessions.GET("/:id", h.GetSession)
		sessions.POST("/:id/assign", h.AssignSession)
		sessions.POST("/:id/close", h.CloseSession)
		sessions.GET("/:id/messages", h.ListMessages)
		sessions.POST("/:id/messages", h.SendMessage)
		sessions.POST("/:id/read", h.MarkAllRead)
	}
}

// RegisterStreamRoutes mounts the server-sent-event endpoints. They are kept
// off the request-timeout chain; a stream lives as long as its client.
func (h *Handler) RegisterStreamRoutes(r *gin.RouterGroup) {
	streams := r.Group("/chat/sessions")
	{
		streams.GET("/stream", h.StreamSessions)
		streams.GET("/:id/messages/stream", h.StreamMessages)
	}
}

type createSessionRequest struct {
	Subject string `json:"subject" binding:"required"`
}

type sendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *Handler) CreateSession(c *gin.Context) {
	identity, ok := handler.CurrentIdentity(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	session, err := h.service.CreateSession(c.Request.Context(), identity.UserID, identity.Name, identity.Email, req.Subject)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(session))
}

// ListSessions returns every session for admins and the caller's own sessions
// for everyone else.
func (h *Handler) ListSessions(c *gin.Context) {
	identity, ok := handler.CurrentIdentity(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var (
		sessions []*model.ChatSession
		err      error
	)
	if identity.IsAdmin() {
		sessions, err = h.service.ListAll(c.Request.Context())
	} else {
		sessions, err = h.service.ListForUser(c.Request.Context(), identity.UserID)
	}
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(sessions))
}

func (h *Handler) GetSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid session ID"))
		return
	}

	session, err := h.service.GetSession(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(session))
}

func (h *Handler) AssignSession(c *gin.Context) {
	identity, ok := handler.CurrentIdentity(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	if !identity.IsAdmin() {
		c.JSON(http.StatusForbidden, handler.NewErrorResponse("only admins can claim sessions"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid session ID"))
		return
	}

	if err := h.service.AssignToSelf(c.Request.Context(), id, identity.UserID, identity.Name); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) CloseSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid session ID"))
		return
	}

	if err := h.service.Close(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) ListMessages(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid session ID"))
		return
	}

	messages, err := h.service.ListMessages(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(messages))
}

func (h *Handler) SendMessage(c *gin.Context) {
	identity, ok := handler.CurrentIdentity(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid session ID"))
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	role := model.SenderRoleUser
	if identity.IsAdmin() {
		role = model.SenderRoleAdmin
	}

	message, err := h.service.Append(c.Request.Context(), id, identity.UserID, identity.Name, role, req.Content)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(message))
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	identity, ok := handler.CurrentIdentity(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid session ID"))
		return
	}

	if err := h.service.MarkAllRead(c.Request.Context(), id, identity.UserID); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

// StreamSessions pushes the caller's session list as it changes: the admin
// view covers every session, the customer view only their own.
func (h *Handler) StreamSessions(c *gin.Context) {
	identity, ok := handler.CurrentIdentity(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	handler.StreamSnapshots(c, func(fn func([]*model.ChatSession)) (realtime.CancelFunc, error) {
		if identity.IsAdmin() {
			return h.service.SubscribeAll(c.Request.Context(), fn)
		}
		return h.service.SubscribeForUser(c.Request.Context(), identity.UserID, fn)
	})
}

func (h *Handler) StreamMessages(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid session ID"))
		return
	}

	handler.StreamSnapshots(c, func(fn func([]*model.ChatMessage)) (realtime.CancelFunc, error) {
		return h.service.SubscribeMessages(c.Request.Context(), id, fn)
	})
}
