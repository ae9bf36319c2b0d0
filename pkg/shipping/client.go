package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/swiftbasket/swiftbasket-backend/pkg/config"
	"github.com/swiftbasket/swiftbasket-backend/pkg/logger"
	"github.com/swiftbasket/swiftbasket-backend/pkg/types"
)

const shipmentPath = "/v2/shipments"

// Client pushes confirmed orders to the courier aggregator. Shipment creation
// is strictly best-effort: a failure is logged, never propagated into the
// order flow.
type Client struct {
	httpClient *http.Client
	baseURL    string
	email      string
	token      string
	logg       *logger.Logger
}

// ShipmentLine is one order line forwarded to the courier.
type ShipmentLine struct {
	Name  string `json:"name"`
	Units int    `json:"units"`
	Price int    `json:"selling_price"`
	SKU   string `json:"sku"`
}

// ShipmentRequest mirrors the aggregator's order-creation payload.
type ShipmentRequest struct {
	OrderNumber string         `json:"order_id"`
	OrderDate   time.Time      `json:"order_date"`
	Name        string         `json:"billing_customer_name"`
	Phone       string         `json:"billing_phone"`
	Address     types.Address  `json:"billing_address"`
	Lines       []ShipmentLine `json:"order_items"`
	SubTotal    int            `json:"sub_total"`
	CODAmount   int            `json:"cod_amount,omitempty"`
}

// NewClient builds the courier client. A missing base URL disables shipment
// pushes entirely, which keeps local development decoupled from the courier.
func NewClient(cfg config.ShippingConfig, logg *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		email:      cfg.Email,
		token:      cfg.Token,
		logg:       logg,
	}
}

// Enabled reports whether shipment pushes are configured.
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

// CreateShipment registers the order with the courier. Errors are returned so
// callers can log them, but callers never fail an order on them.
func (c *Client) CreateShipment(ctx context.Context, req ShipmentRequest) error {
	if !c.Enabled() {
		return nil
	}
	encoded, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode shipment: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+shipmentPath, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build shipment request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	if c.email != "" {
		httpReq.Header.Set("X-Account-Email", c.email)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("push shipment: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("courier responded %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}
