package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"reliefledger/internal/common"
	"reliefledger/internal/models"
	"reliefledger/internal/repositories"

	"github.com/google/uuid"
)

type ShelterService interface {
	Create(ctx context.Context, caller models.Caller, shelter *models.Shelter) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Shelter, error)
	Update(ctx context.Context, caller models.Caller, shelter *models.Shelter) error
	List(ctx context.Context, limit, offset int) ([]*models.Shelter, error)
}

type shelterService struct {
	shelterRepo repositories.ShelterRepository
}

func NewShelterService(shelterRepo repositories.ShelterRepository) ShelterService {
	return &shelterService{
		shelterRepo: shelterRepo,
	}
}

func validateShelter(shelter *models.Shelter) error {
	shelter.Name = strings.TrimSpace(shelter.Name)
	if shelter.Name == "" {
		return common.InvalidInput(common.MsgShelterNameRequired)
	}
	if shelter.Capacity != nil && *shelter.Capacity <= 0 {
		return common.InvalidInput(common.MsgShelterCapacity)
	}
	return nil
}

func (s *shelterService) Create(ctx context.Context, caller models.Caller, shelter *models.Shelter) error {
	if err := requireAdmin(caller, "register shelters"); err != nil {
		return err
	}
	if err := validateShelter(shelter); err != nil {
		return err
	}

	now := time.Now().UTC()
	shelter.ID = uuid.New()
	shelter.IsActive = true
	shelter.CreatedAt = now
	shelter.UpdatedAt = now

	return s.shelterRepo.Create(ctx, shelter)
}

func (s *shelterService) GetByID(ctx context.Context, id uuid.UUID) (*models.Shelter, error) {
	shelter, err := s.shelterRepo.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, common.NotFound(common.MsgShelterNotFound, id.String())
	}
	return shelter, err
}

func (s *shelterService) Update(ctx context.Context, caller models.Caller, shelter *models.Shelter) error {
	if err := requireAdmin(caller, "change shelters"); err != nil {
		return err
	}
	if err := validateShelter(shelter); err != nil {
		return err
	}

	shelter.UpdatedAt = time.Now().UTC()
	err := s.shelterRepo.Update(ctx, shelter)
	if errors.Is(err, repositories.ErrNotFound) {
		return common.NotFound(common.MsgShelterNotFound, shelter.ID.String())
	}
	return err
}

func (s *shelterService) List(ctx context.Context, limit, offset int) ([]*models.Shelter, error) {
	return s.shelterRepo.List(ctx, limit, offset)
}
