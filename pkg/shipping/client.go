package shipping

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/adityaverma/bazaarkart-backend/pkg/config"
	pkgerrors "github.com/adityaverma/bazaarkart-backend/pkg/errors"
	"github.com/adityaverma/bazaarkart-backend/pkg/logger"
)

const defaultCancelTimeout = 5 * time.Second

// Client talks to the external shipment provider. Cancellation is best
// effort; callers treat failures as advisory and never roll back on them.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *logger.Logger
}

// Canceller is the surface order cancellation needs.
type Canceller interface {
	CancelShipment(ctx context.Context, orderID string) error
}

// NewClient builds the shipping adapter from configuration.
func NewClient(cfg config.ShippingConfig, logg *logger.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("shipping base url is required")
	}
	timeout := cfg.CancelTimeout
	if timeout <= 0 {
		timeout = defaultCancelTimeout
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		http:    &http.Client{Timeout: timeout},
		logger:  logg,
	}, nil
}

// CancelShipment asks the provider to stop fulfillment for the order.
func (c *Client) CancelShipment(ctx context.Context, orderID string) error {
	if strings.TrimSpace(orderID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	url := fmt.Sprintf("%s/shipments/%s/cancel", c.baseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building shipment cancel request")
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "shipment cancel request failed")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if c.logger != nil {
			c.logger.Info(c.logger.WithOrderID(ctx, orderID), "shipment cancel accepted")
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		// No shipment was ever created for the order, nothing to cancel.
		return nil
	default:
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("shipment cancel returned status %d", resp.StatusCode))
	}
}
