package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/swiftbasket/swiftbasket-backend/api/responses"
	ordersvc "github.com/swiftbasket/swiftbasket-backend/internal/orders"
	pkgerrors "github.com/swiftbasket/swiftbasket-backend/pkg/errors"
	"github.com/swiftbasket/swiftbasket-backend/pkg/logger"
)

const gatewaySignatureHeader = "X-Gateway-Signature"

// PaymentConfirmer settles a verified gateway notification against the order.
type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, conf ordersvc.PaymentConfirmation) error
}

type signatureVerifier interface {
	VerifyWebhookSignature(body []byte, signature string) bool
}

type paymentWebhookPayload struct {
	SessionID string `json:"session_id"`
	OrderID   string `json:"order_id"`
	Status    string `json:"status"`
}

// PaymentWebhook receives the gateway's payment notification. The raw body is
// HMAC-verified before anything is decoded; replays settle to the same state
// and are acknowledged with 200 so the gateway stops retrying.
func PaymentWebhook(svc PaymentConfirmer, verifier signatureVerifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		if verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment client unavailable"))
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get(gatewaySignatureHeader)
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "gateway signature missing"))
			return
		}
		if !verifier.VerifyWebhookSignature(body, signature) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "gateway signature mismatch"))
			return
		}

		var payload paymentWebhookPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload"))
			return
		}
		if payload.SessionID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session_id required"))
			return
		}

		if err := svc.ConfirmPayment(ctx, ordersvc.PaymentConfirmation{
			SessionID:      payload.SessionID,
			GatewayOrderID: payload.OrderID,
			Status:         payload.Status,
			RawBody:        body,
		}); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, "webhook processed", nil)
	}
}
