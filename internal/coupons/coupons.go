package coupons

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/adityaverma/bazaarkart-backend/pkg/db/models"
	pkgerrors "github.com/adityaverma/bazaarkart-backend/pkg/errors"
)

// Repository manages coupon persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	IncrementUsage(ctx context.Context, id uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a coupon repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.WithContext(ctx).First(&coupon, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

// IncrementUsage bumps used_count with a guard on the limit in a single
// statement, so two concurrent checkouts cannot both consume the last use.
// Returns false when the limit was already exhausted.
func (r *repository) IncrementUsage(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("id = ? AND (usage_limit = 0 OR used_count < usage_limit)", id).
		UpdateColumns(map[string]any{
			"used_count": gorm.Expr("used_count + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Service validates and applies coupons during checkout.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Apply(ctx context.Context, input ApplyInput) (*Applied, error)
}

type service struct {
	repo Repository
}

// ApplyInput carries the coupon code and the order context it discounts.
type ApplyInput struct {
	Code       string
	UserID     uuid.UUID
	ItemsPrice decimal.Decimal
}

// Applied reports the discount a successfully consumed coupon grants.
type Applied struct {
	Coupon   *models.Coupon
	Discount decimal.Decimal
}

// NewService wires a coupon service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

var hundred = decimal.NewFromInt(100)

func (s *service) Apply(ctx context.Context, input ApplyInput) (*Applied, error) {
	if input.Code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	coupon, err := s.repo.FindByCode(ctx, input.Code)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}

	if !coupon.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon is not active")
	}
	if coupon.ExpiresAt != nil && coupon.ExpiresAt.Before(time.Now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon has expired")
	}
	if len(coupon.AssignedUserIDs) > 0 && !assignedTo(coupon, input.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "coupon is not assigned to this user")
	}
	if coupon.MinOrderValue.IsPositive() && input.ItemsPrice.LessThan(coupon.MinOrderValue) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order value below coupon minimum")
	}

	consumed, err := s.repo.IncrementUsage(ctx, coupon.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume coupon")
	}
	if !consumed {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon usage limit reached")
	}

	discount := input.ItemsPrice.Mul(coupon.DiscountPercent).Div(hundred).Round(2)
	if coupon.MaxDiscount.IsPositive() && discount.GreaterThan(coupon.MaxDiscount) {
		discount = coupon.MaxDiscount
	}

	return &Applied{Coupon: coupon, Discount: discount}, nil
}

func assignedTo(coupon *models.Coupon, userID uuid.UUID) bool {
	id := userID.String()
	for _, assigned := range coupon.AssignedUserIDs {
		if assigned == id {
			return true
		}
	}
	return false
}
