package notifications

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/adityaverma/bazaarkart-backend/pkg/db/models"
	pkgerrors "github.com/adityaverma/bazaarkart-backend/pkg/errors"
)

// Service exposes the vendor-facing notification operations.
type Service interface {
	ListForVendor(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]models.VendorNotification, error)
	MarkRead(ctx context.Context, vendorID, notificationID uuid.UUID) error
}

type service struct {
	repo Repository
}

// NewService builds a notifications service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New("notifications repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListForVendor(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]models.VendorNotification, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	return s.repo.ListForVendor(ctx, vendorID, limit, offset)
}

func (s *service) MarkRead(ctx context.Context, vendorID, notificationID uuid.UUID) error {
	if vendorID == uuid.Nil || notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor id and notification id are required")
	}
	affected, err := s.repo.MarkRead(ctx, vendorID, notificationID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}
