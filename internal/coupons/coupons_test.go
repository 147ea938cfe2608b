package coupons

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/adityaverma/bazaarkart-backend/pkg/db/models"
	pkgerrors "github.com/adityaverma/bazaarkart-backend/pkg/errors"
)

type fakeRepository struct {
	findFn      func(ctx context.Context, code string) (*models.Coupon, error)
	incrementFn func(ctx context.Context, id uuid.UUID) (bool, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	if f.findFn != nil {
		return f.findFn(ctx, code)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) IncrementUsage(ctx context.Context, id uuid.UUID) (bool, error) {
	if f.incrementFn != nil {
		return f.incrementFn(ctx, id)
	}
	return true, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func activeCoupon() *models.Coupon {
	return &models.Coupon{
		ID:              uuid.New(),
		Code:            "FESTIVE10",
		DiscountPercent: dec("10"),
		MaxDiscount:     dec("200"),
		Active:          true,
	}
}

func TestApply_ComputesDiscount(t *testing.T) {
	coupon := activeCoupon()
	repo := &fakeRepository{
		findFn: func(ctx context.Context, code string) (*models.Coupon, error) {
			return coupon, nil
		},
	}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	applied, err := svc.Apply(context.Background(), ApplyInput{
		Code:       "FESTIVE10",
		UserID:     uuid.New(),
		ItemsPrice: dec("1500"),
	})
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if !applied.Discount.Equal(dec("150")) {
		t.Fatalf("discount = %s, want 150", applied.Discount)
	}

	// Cap kicks in on large orders.
	applied, err = svc.Apply(context.Background(), ApplyInput{
		Code:       "FESTIVE10",
		UserID:     uuid.New(),
		ItemsPrice: dec("5000"),
	})
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if !applied.Discount.Equal(dec("200")) {
		t.Fatalf("capped discount = %s, want 200", applied.Discount)
	}
}

func TestApply_Rejections(t *testing.T) {
	userID := uuid.New()
	expired := time.Now().Add(-time.Hour)

	tests := []struct {
		name      string
		coupon    func() *models.Coupon
		exhausted bool
		wantCode  pkgerrors.Code
	}{
		{
			name: "inactive",
			coupon: func() *models.Coupon {
				c := activeCoupon()
				c.Active = false
				return c
			},
			wantCode: pkgerrors.CodeValidation,
		},
		{
			name: "expired",
			coupon: func() *models.Coupon {
				c := activeCoupon()
				c.ExpiresAt = &expired
				return c
			},
			wantCode: pkgerrors.CodeValidation,
		},
		{
			name: "not assigned to user",
			coupon: func() *models.Coupon {
				c := activeCoupon()
				c.AssignedUserIDs = pq.StringArray{uuid.NewString()}
				return c
			},
			wantCode: pkgerrors.CodeForbidden,
		},
		{
			name: "below minimum order value",
			coupon: func() *models.Coupon {
				c := activeCoupon()
				c.MinOrderValue = dec("2000")
				return c
			},
			wantCode: pkgerrors.CodeValidation,
		},
		{
			name:      "usage exhausted",
			coupon:    activeCoupon,
			exhausted: true,
			wantCode:  pkgerrors.CodeValidation,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeRepository{
				findFn: func(ctx context.Context, code string) (*models.Coupon, error) {
					return tc.coupon(), nil
				},
			}
			if tc.exhausted {
				repo.incrementFn = func(ctx context.Context, id uuid.UUID) (bool, error) {
					return false, nil
				}
			}
			svc, err := NewService(repo)
			if err != nil {
				t.Fatalf("unexpected service error: %v", err)
			}

			_, err = svc.Apply(context.Background(), ApplyInput{
				Code:       "FESTIVE10",
				UserID:     userID,
				ItemsPrice: dec("1500"),
			})
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != tc.wantCode {
				t.Fatalf("expected %s, got %v", tc.wantCode, err)
			}
		})
	}
}

func TestApply_AssignedUserPasses(t *testing.T) {
	userID := uuid.New()
	coupon := activeCoupon()
	coupon.AssignedUserIDs = pq.StringArray{userID.String()}
	repo := &fakeRepository{
		findFn: func(ctx context.Context, code string) (*models.Coupon, error) {
			return coupon, nil
		},
	}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	if _, err := svc.Apply(context.Background(), ApplyInput{
		Code:       "FESTIVE10",
		UserID:     userID,
		ItemsPrice: dec("1000"),
	}); err != nil {
		t.Fatalf("Apply error: %v", err)
	}
}
