package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wipay/subscriber-api/internal/middleware"
	"github.com/wipay/subscriber-api/internal/model"
)

// Identity is the authenticated caller, as placed on the context by the auth
// middleware.
type Identity struct {
	UserID uuid.UUID
	Name   string
	Email  string
	Role   model.UserRole
}

func CurrentIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(middleware.ContextUserID)
	if !ok {
		return Identity{}, false
	}
	userID, ok := v.(uuid.UUID)
	if !ok {
		return Identity{}, false
	}
	return Identity{
		UserID: userID,
		Name:   c.GetString(middleware.ContextName),
		Email:  c.GetString(middleware.ContextEmail),
		Role:   model.UserRole(c.GetString(middleware.ContextRole)),
	}, true
}

func (i Identity) IsAdmin() bool {
	return i.Role == model.UserRoleAdmin
}
