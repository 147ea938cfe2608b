package orders

import (
	"testing"

	"github.com/adityaverma/bazaarkart-backend/pkg/enums"
)

func TestMapToVendorStatus(t *testing.T) {
	tests := []struct {
		in   enums.OrderStatus
		want enums.VendorOrderStatus
	}{
		{enums.OrderStatusPending, enums.VendorOrderStatusPending},
		{enums.OrderStatusProcessing, enums.VendorOrderStatusConfirmed},
		{enums.OrderStatusShipped, enums.VendorOrderStatusShipped},
		{enums.OrderStatusOutForDelivery, enums.VendorOrderStatusShipped},
		{enums.OrderStatusDelivered, enums.VendorOrderStatusDelivered},
		{enums.OrderStatusCancelled, enums.VendorOrderStatusCancelled},
		{enums.OrderStatusReturned, enums.VendorOrderStatusReturned},
	}
	for _, tt := range tests {
		got, err := MapToVendorStatus(tt.in)
		if err != nil {
			t.Fatalf("MapToVendorStatus(%s) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("MapToVendorStatus(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if _, err := MapToVendorStatus(enums.OrderStatus("Lost")); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from enums.OrderStatus
		to   enums.OrderStatus
		want bool
	}{
		{"forward step", enums.OrderStatusPending, enums.OrderStatusProcessing, true},
		{"forward skip", enums.OrderStatusProcessing, enums.OrderStatusDelivered, true},
		{"same status", enums.OrderStatusShipped, enums.OrderStatusShipped, false},
		{"backward", enums.OrderStatusShipped, enums.OrderStatusProcessing, false},
		{"cancel before ship", enums.OrderStatusProcessing, enums.OrderStatusCancelled, true},
		{"cancel after ship", enums.OrderStatusShipped, enums.OrderStatusCancelled, false},
		{"cancel after delivery", enums.OrderStatusDelivered, enums.OrderStatusCancelled, false},
		{"return from delivered", enums.OrderStatusDelivered, enums.OrderStatusReturned, true},
		{"return before delivery", enums.OrderStatusShipped, enums.OrderStatusReturned, false},
		{"out of cancelled", enums.OrderStatusCancelled, enums.OrderStatusProcessing, false},
		{"out of returned", enums.OrderStatusReturned, enums.OrderStatusDelivered, false},
		{"out of delivered forward", enums.OrderStatusDelivered, enums.OrderStatusShipped, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}
