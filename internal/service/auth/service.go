package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/wipay/subscriber-api/internal/model"
	"github.com/wipay/subscriber-api/internal/repository"
	"github.com/wipay/subscriber-api/pkg/auth"
	apperrors "github.com/wipay/subscriber-api/pkg/errors"
	"github.com/wipay/subscriber-api/pkg/security"
)

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type Service struct {
	users  repository.UserRepository
	jwtSvc auth.JWTService
	hasher security.Hasher
}

func NewService(users repository.UserRepository, jwtSvc auth.JWTService, hasher security.Hasher) *Service {
	return &Service{
		users:  users,
		jwtSvc: jwtSvc,
		hasher: hasher,
	}
}

func (s *Service) Register(ctx context.Context, name, email, password string, role model.UserRole, customerID *uuid.UUID) (*model.User, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.Validation("name is required")
	}
	if strings.TrimSpace(email) == "" {
		return nil, apperrors.Validation("email is required")
	}
	if len(password) < 8 {
		return nil, apperrors.Validation("password must be at least 8 characters")
	}
	if role != model.UserRoleAdmin && role != model.UserRoleCustomer {
		return nil, apperrors.Validation("invalid role")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	user := &model.User{
		Name:         name,
		Email:        strings.ToLower(email),
		PasswordHash: hash,
		Role:         role,
		CustomerID:   customerID,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*model.User, *TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil, apperrors.Unauthorized(err)
		}
		return nil, nil, err
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, nil, apperrors.Unauthorized(err)
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.jwtSvc.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}

	user, err := s.users.Get(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}
	return s.issueTokens(user)
}

func (s *Service) ValidateToken(token string) (*model.TokenClaims, error) {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}
	return claims, nil
}

func (s *Service) issueTokens(user *model.User) (*TokenPair, error) {
	access, err := s.jwtSvc.GenerateAccessToken(user)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	refresh, err := s.jwtSvc.GenerateRefreshToken(user)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
