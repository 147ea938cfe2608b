package controllers

import (
	"time"

	"github.com/google/uuid"

	"github.com/adityaverma/bazaarkart-backend/pkg/db/models"
	"github.com/adityaverma/bazaarkart-backend/pkg/types"
)

// Monetary fields are serialized as decimal strings so clients never round
// them through binary floats.

type orderResponse struct {
	ID          uuid.UUID `json:"id"`
	OrderNumber int64     `json:"order_number"`
	Status      string    `json:"status"`

	ItemsPrice    string  `json:"items_price"`
	TaxPrice      string  `json:"tax_price"`
	ShippingPrice string  `json:"shipping_price"`
	Discount      string  `json:"discount"`
	TotalPrice    string  `json:"total_price"`
	CouponCode    *string `json:"coupon_code,omitempty"`

	PaymentMethod  string  `json:"payment_method"`
	PaymentOrderID *string `json:"payment_order_id,omitempty"`
	IsPaid         bool    `json:"is_paid"`

	ReturnStatus  string  `json:"return_status"`
	Refunded      bool    `json:"refunded"`
	RefundOutcome *string `json:"refund_outcome,omitempty"`

	GSTClaimed bool    `json:"gst_claimed"`
	BuyerGSTIN *string `json:"buyer_gstin,omitempty"`
	GSTRate    string  `json:"gst_rate"`

	ShippingAddress types.Address       `json:"shipping_address"`
	Items           []orderItemResponse `json:"items,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type orderItemResponse struct {
	ProductID uuid.UUID  `json:"product_id"`
	VendorID  *uuid.UUID `json:"vendor_id,omitempty"`
	Name      string     `json:"name"`
	Price     string     `json:"price"`
	Qty       int        `json:"qty"`
	Image     *string    `json:"image,omitempty"`
}

type vendorOrderResponse struct {
	ID       uuid.UUID `json:"id"`
	OrderID  uuid.UUID `json:"order_id"`
	VendorID uuid.UUID `json:"vendor_id"`

	Subtotal   string `json:"subtotal"`
	Tax        string `json:"tax"`
	Commission string `json:"commission"`
	NetAmount  string `json:"net_amount"`

	Status       string `json:"status"`
	ReturnStatus string `json:"return_status"`
	PayoutStatus string `json:"payout_status"`

	Items []vendorOrderItemResponse `json:"items,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type vendorOrderItemResponse struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	Qty       int       `json:"qty"`
}

func newOrderResponse(order *models.Order) orderResponse {
	if order == nil {
		return orderResponse{}
	}
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ProductID: item.ProductID,
			VendorID:  item.VendorID,
			Name:      item.Name,
			Price:     item.Price.StringFixed(2),
			Qty:       item.Qty,
			Image:     item.Image,
		})
	}
	var outcome *string
	if order.RefundOutcome != nil {
		value := string(*order.RefundOutcome)
		outcome = &value
	}
	return orderResponse{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		Status:          string(order.Status),
		ItemsPrice:      order.ItemsPrice.StringFixed(2),
		TaxPrice:        order.TaxPrice.StringFixed(2),
		ShippingPrice:   order.ShippingPrice.StringFixed(2),
		Discount:        order.Discount.StringFixed(2),
		TotalPrice:      order.TotalPrice.StringFixed(2),
		CouponCode:      order.CouponCode,
		PaymentMethod:   string(order.PaymentMethod),
		PaymentOrderID:  order.PaymentOrderID,
		IsPaid:          order.IsPaid,
		ReturnStatus:    string(order.ReturnStatus),
		Refunded:        order.Refunded,
		RefundOutcome:   outcome,
		GSTClaimed:      order.GSTClaimed,
		BuyerGSTIN:      order.BuyerGSTIN,
		GSTRate:         order.GSTRate.StringFixed(2),
		ShippingAddress: order.ShippingAddress,
		Items:           items,
		CreatedAt:       order.CreatedAt,
	}
}

func newVendorOrderResponse(vo models.VendorOrder) vendorOrderResponse {
	items := make([]vendorOrderItemResponse, 0, len(vo.Items))
	for _, item := range vo.Items {
		items = append(items, vendorOrderItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price.StringFixed(2),
			Qty:       item.Qty,
		})
	}
	return vendorOrderResponse{
		ID:           vo.ID,
		OrderID:      vo.OrderID,
		VendorID:     vo.VendorID,
		Subtotal:     vo.Subtotal.StringFixed(2),
		Tax:          vo.Tax.StringFixed(2),
		Commission:   vo.Commission.StringFixed(2),
		NetAmount:    vo.NetAmount.StringFixed(2),
		Status:       string(vo.Status),
		ReturnStatus: string(vo.ReturnStatus),
		PayoutStatus: string(vo.PayoutStatus),
		Items:        items,
		CreatedAt:    vo.CreatedAt,
	}
}
