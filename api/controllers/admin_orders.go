package controllers

import (
	"net/http"

	"github.com/swiftbasket/swiftbasket-backend/api/responses"
	"github.com/swiftbasket/swiftbasket-backend/api/validators"
	ordersvc "github.com/swiftbasket/swiftbasket-backend/internal/orders"
	refundsvc "github.com/swiftbasket/swiftbasket-backend/internal/refunds"
	"github.com/swiftbasket/swiftbasket-backend/pkg/enums"
	pkgerrors "github.com/swiftbasket/swiftbasket-backend/pkg/errors"
	"github.com/swiftbasket/swiftbasket-backend/pkg/logger"
)

type orderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AdminOrderStatus moves an order along the fulfillment ladder. Delivery is the
// terminal transition that banks the earned coins; cancellation is rejected
// here and must go through the cancel endpoint.
func AdminOrderStatus(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		actorID, role, err := caller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload orderStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ChangeStatus(r.Context(), ordersvc.StatusInput{
			OrderID: orderID,
			Status:  enums.OrderStatus(payload.Status),
			ActorID: actorID,
			Role:    role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, "order status updated", order)
	}
}

type returnDecisionRequest struct {
	Approve bool `json:"approve"`
}

// AdminReturnDecision settles a pending return request. Approval restores the
// spent coins and queues the gateway refund.
func AdminReturnDecision(svc refundsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refund service unavailable"))
			return
		}

		actorID, _, err := caller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload returnDecisionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.DecideReturn(r.Context(), refundsvc.ReturnDecision{
			OrderID: orderID,
			ActorID: actorID,
			Approve: payload.Approve,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, "return decision recorded", order)
	}
}
