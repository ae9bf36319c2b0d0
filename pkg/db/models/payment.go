package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/swiftbasket/swiftbasket-backend/pkg/enums"
)

// Payment tracks the gateway session attached to an order plus whatever the
// gateway sent back on its webhook. GatewayResponse is stored raw because
// three historical schema generations wrote the external order id under
// different keys; ExternalOrderID reads all of them.
type Payment struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index:idx_payments_order"`
	UserID          uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	SessionID       string              `gorm:"column:session_id;not null"`
	GatewayOrderID  string              `gorm:"column:gateway_order_id"`
	Amount          int                 `gorm:"column:amount;not null"`
	Status          enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'created'"`
	Refunded        bool                `gorm:"column:refunded;not null;default:false"`
	GatewayResponse json.RawMessage     `gorm:"column:gateway_response;type:jsonb"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// gatewayResponseShape covers every historical layout of the stored webhook
// payload: the current payment_response.order.order_id, the legacy typo key
// paymentResonse, and the oldest flat cfoOrder_id.
type gatewayResponseShape struct {
	PaymentResponse *struct {
		Order struct {
			OrderID string `json:"order_id"`
		} `json:"order"`
	} `json:"payment_response"`
	LegacyResponse *struct {
		Order struct {
			OrderID string `json:"order_id"`
		} `json:"order"`
	} `json:"paymentResonse"`
	FlatOrderID string `json:"cfoOrder_id"`
}

// ExternalOrderID resolves the gateway's order id from whichever field it was
// stored under. The structured column wins; the stored response shapes are the
// fallback chain. Empty string means no external payment state exists.
func (p *Payment) ExternalOrderID() string {
	if p == nil {
		return ""
	}
	if p.GatewayOrderID != "" {
		return p.GatewayOrderID
	}
	if len(p.GatewayResponse) == 0 {
		return ""
	}
	var shape gatewayResponseShape
	if err := json.Unmarshal(p.GatewayResponse, &shape); err != nil {
		return ""
	}
	if shape.PaymentResponse != nil && shape.PaymentResponse.Order.OrderID != "" {
		return shape.PaymentResponse.Order.OrderID
	}
	if shape.LegacyResponse != nil && shape.LegacyResponse.Order.OrderID != "" {
		return shape.LegacyResponse.Order.OrderID
	}
	return shape.FlatOrderID
}
