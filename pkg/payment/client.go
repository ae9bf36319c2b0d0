package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/swiftbasket/swiftbasket-backend/pkg/config"
	"github.com/swiftbasket/swiftbasket-backend/pkg/logger"
)

const (
	sessionPath = "/v1/sessions"
	refundPath  = "/v1/refunds"

	// RefundStatusUnknown means the gateway call never completed; the caller
	// must probe with GetRefund before retrying.
	RefundStatusUnknown   = "unknown"
	RefundStatusProcessed = "processed"
	RefundStatusPending   = "pending"
	RefundStatusFailed    = "failed"
	RefundStatusNotFound  = "not_found"
)

var (
	errBaseURLRequired = errors.New("payment gateway base url is required")
	errAppIDRequired   = errors.New("payment gateway app id is required")
	errSecretRequired  = errors.New("payment gateway secret key is required")
)

// Client talks to the hosted payment gateway over HTTP. Every call carries a
// hard timeout; a timed-out call has an unknown outcome, not a failed one.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	appID         string
	secretKey     string
	webhookSecret string
	currency      string
	logg          *logger.Logger
}

// SessionRequest describes the charge to stage before the order row exists.
type SessionRequest struct {
	OrderNumber  string `json:"order_number"`
	Amount       int    `json:"amount"`
	Currency     string `json:"currency"`
	CustomerID   string `json:"customer_id"`
	CallbackPath string `json:"callback_path,omitempty"`
}

// Session is the staged gateway charge the client redirects the shopper to.
type Session struct {
	SessionID      string `json:"session_id"`
	GatewayOrderID string `json:"order_id"`
	PaymentURL     string `json:"payment_url"`
}

// RefundRequest carries the idempotency handle so a retried refund can never
// double-pay.
type RefundRequest struct {
	RefundID       string `json:"refund_id"`
	GatewayOrderID string `json:"order_id"`
	Amount         int    `json:"amount"`
	Reason         string `json:"reason,omitempty"`
}

// RefundResult is the gateway's view of one refund.
type RefundResult struct {
	RefundID string          `json:"refund_id"`
	Status   string          `json:"status"`
	Raw      json.RawMessage `json:"-"`
}

// NewClient validates gateway credentials and builds the HTTP client.
func NewClient(cfg config.PaymentConfig, logg *logger.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	if strings.TrimSpace(cfg.AppID) == "" {
		return nil, errAppIDRequired
	}
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errSecretRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       baseURL,
		appID:         cfg.AppID,
		secretKey:     cfg.SecretKey,
		webhookSecret: cfg.WebhookSecret,
		currency:      cfg.Currency,
		logg:          logg,
	}, nil
}

// CreateSession stages a charge for the given amount. Called before any order
// row is written so a gateway failure leaves no local state behind.
func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if req.Amount < 0 {
		return nil, fmt.Errorf("session amount must not be negative: %d", req.Amount)
	}
	if req.Currency == "" {
		req.Currency = c.currency
	}
	var session Session
	if err := c.do(ctx, http.MethodPost, sessionPath, req, &session); err != nil {
		return nil, fmt.Errorf("create payment session: %w", err)
	}
	if session.SessionID == "" || session.GatewayOrderID == "" {
		return nil, errors.New("gateway returned incomplete session")
	}
	return &session, nil
}

// Refund asks the gateway to return the full order amount. The same RefundID
// resubmitted returns the original result instead of paying twice.
func (c *Client) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	if req.RefundID == "" {
		return nil, errors.New("refund id is required")
	}
	if req.GatewayOrderID == "" {
		return nil, errors.New("gateway order id is required")
	}
	var result RefundResult
	if err := c.do(ctx, http.MethodPost, refundPath, req, &result); err != nil {
		return nil, fmt.Errorf("request refund: %w", err)
	}
	return &result, nil
}

// GetRefund reports the gateway-side status of a refund. Returns a result
// with RefundStatusNotFound when the gateway has never seen the id, which
// tells the caller the earlier attempt never landed and a retry is safe.
func (c *Client) GetRefund(ctx context.Context, refundID string) (*RefundResult, error) {
	if refundID == "" {
		return nil, errors.New("refund id is required")
	}
	var result RefundResult
	err := c.do(ctx, http.MethodGet, refundPath+"/"+refundID, nil, &result)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return &RefundResult{RefundID: refundID, Status: RefundStatusNotFound}, nil
		}
		return nil, fmt.Errorf("fetch refund status: %w", err)
	}
	return &result, nil
}

// VerifyWebhookSignature checks the HMAC-SHA256 signature the gateway sends
// with every webhook delivery.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	if c.webhookSecret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature)))) == 1
}

// APIError is a non-2xx gateway response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway responded %d: %s", e.StatusCode, e.Body)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-App-Id", c.appID)
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		if result, ok := out.(*RefundResult); ok {
			result.Raw = raw
		}
	}
	return nil
}

// IsTimeout reports whether the error means the call never completed, so the
// outcome on the gateway side is unknown.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
