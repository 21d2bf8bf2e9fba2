package services

import (
	"context"
	"errors"
	"log"

	"smpc-microfin/internal/adapters/persistence/models"
	"smpc-microfin/internal/adapters/persistence/repositories"
	"smpc-microfin/internal/core/domain"

	"gorm.io/gorm"
)

// ErrGroupNameTaken is returned when a group name is already in use
var ErrGroupNameTaken = errors.New("group name already taken")

// GroupService handles lending group administration
type GroupService struct {
	groupRepo repositories.GroupRepository
}

// NewGroupService creates a new group service
func NewGroupService(groupRepo repositories.GroupRepository) *GroupService {
	return &GroupService{groupRepo: groupRepo}
}

// CreateGroupInput represents a new lending group
type CreateGroupInput struct {
	Name       string
	Leader     string
	MeetingDay string
}

// Create registers a new lending group
func (s *GroupService) Create(ctx context.Context, input *CreateGroupInput) (*models.Group, error) {
	if input.Name == "" {
		return nil, domain.ErrInvalidInput
	}

	taken, err := s.groupRepo.ExistsByName(ctx, input.Name)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrGroupNameTaken
	}

	group := &models.Group{
		Name:       input.Name,
		Leader:     input.Leader,
		MeetingDay: input.MeetingDay,
		IsActive:   true,
	}
	if err := s.groupRepo.Create(ctx, group); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrGroupNameTaken
		}
		return nil, err
	}

	log.Printf("✅ Group created: %s", group.Name)
	return group, nil
}

// Get fetches a group by ID
func (s *GroupService) Get(ctx context.Context, id uint) (*models.Group, error) {
	group, err := s.groupRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrGroupNotFound
		}
		return nil, err
	}
	return group, nil
}

// List lists lending groups
func (s *GroupService) List(ctx context.Context, offset, limit int) ([]*models.Group, int64, error) {
	return s.groupRepo.List(ctx, offset, limit)
}
