package user

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tandera.com/daypillar/internal/modules/user/dto"
	"tandera.com/daypillar/internal/modules/user/repository"
	"tandera.com/daypillar/pkg/apperror"
)

type UserService interface {
	GetMe(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error)
	UpdateMe(ctx context.Context, userID uuid.UUID, req dto.UpdateUserRequest) (*dto.UserResponse, error)
}

type userService struct {
	repo repository.UserRepository
}

func NewUserService(repo repository.UserRepository) UserService {
	return &userService{repo: repo}
}

func (s *userService) GetMe(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user", apperror.ErrNotFound)
	}

	return &dto.UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Timezone:    user.Timezone,
		CreatedAt:   user.CreatedAt,
	}, nil
}

func (s *userService) UpdateMe(ctx context.Context, userID uuid.UUID, req dto.UpdateUserRequest) (*dto.UserResponse, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user", apperror.ErrNotFound)
	}

	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
	}
	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil {
			return nil, fmt.Errorf("%w: unknown timezone", apperror.ErrBadRequest)
		}
		user.Timezone = *req.Timezone
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	return &dto.UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Timezone:    user.Timezone,
		CreatedAt:   user.CreatedAt,
	}, nil
}
