package shipping

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/adityaverma/bazaarkart-backend/pkg/config"
)

func TestCancelShipmentSuccess(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-Api-Key")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client, err := NewClient(config.ShippingConfig{BaseURL: srv.URL, APIKey: "key-1"}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if err := client.CancelShipment(context.Background(), "order-1"); err != nil {
		t.Fatalf("CancelShipment: %v", err)
	}
	if gotPath != "/shipments/order-1/cancel" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotKey != "key-1" {
		t.Fatalf("unexpected api key header %q", gotKey)
	}
}

func TestCancelShipmentNotFoundIsNoop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client, err := NewClient(config.ShippingConfig{BaseURL: srv.URL}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if err := client.CancelShipment(context.Background(), "order-1"); err != nil {
		t.Fatalf("expected 404 to be treated as no-op, got %v", err)
	}
}

func TestCancelShipmentServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := NewClient(config.ShippingConfig{BaseURL: srv.URL}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if err := client.CancelShipment(context.Background(), "order-1"); err == nil {
		t.Fatal("expected error for upstream failure")
	}
}

func TestCancelShipmentValidation(t *testing.T) {
	client, err := NewClient(config.ShippingConfig{BaseURL: "http://example.com"}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if err := client.CancelShipment(context.Background(), ""); err == nil {
		t.Fatal("expected validation error for empty order id")
	}

	if _, err := NewClient(config.ShippingConfig{}, nil); err == nil {
		t.Fatal("expected error for missing base url")
	}
}
