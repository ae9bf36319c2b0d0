package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/swiftbasket/swiftbasket-backend/api/middleware"
	"github.com/swiftbasket/swiftbasket-backend/api/responses"
	"github.com/swiftbasket/swiftbasket-backend/api/validators"
	ordersvc "github.com/swiftbasket/swiftbasket-backend/internal/orders"
	refundsvc "github.com/swiftbasket/swiftbasket-backend/internal/refunds"
	"github.com/swiftbasket/swiftbasket-backend/pkg/enums"
	pkgerrors "github.com/swiftbasket/swiftbasket-backend/pkg/errors"
	"github.com/swiftbasket/swiftbasket-backend/pkg/logger"
	"github.com/swiftbasket/swiftbasket-backend/pkg/pagination"
)

type placeOrderRequest struct {
	AddressID  uuid.UUID  `json:"address_id" validate:"required"`
	CouponID   *uuid.UUID `json:"coupon_id"`
	Donation   int        `json:"donation" validate:"omitempty,min=0"`
	CoinsToUse int        `json:"coins_to_use" validate:"omitempty,min=0"`
	OrderType  string     `json:"order_type" validate:"omitempty,oneof=OnlineStore LocalStore"`
}

// PlaceOrder runs checkout: snapshot the cart, settle coupon and coins, open a
// gateway payment session, and hand the redirect URL back to the client.
func PlaceOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		userID, role, err := caller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload placeOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderType := enums.OrderTypeOnlineStore
		if payload.OrderType != "" {
			orderType, err = enums.ParseOrderType(payload.OrderType)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order type"))
				return
			}
		}

		placed, err := svc.Place(r.Context(), ordersvc.PlaceInput{
			UserID:     userID,
			Role:       role,
			AddressID:  payload.AddressID,
			CouponID:   payload.CouponID,
			Donation:   payload.Donation,
			CoinsToUse: payload.CoinsToUse,
			OrderType:  orderType,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, "order placed", placed)
	}
}

// ListOrders pages through the caller's order history, newest first.
func ListOrders(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		userID, _, err := caller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), userID, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, "", page)
	}
}

// OrderDetail returns one order with its payment row, owner or staff only.
func OrderDetail(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		userID, role, err := caller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID, userID, role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, "", order)
	}
}

// CancelOrder cancels an undelivered order; coin reversal and the gateway
// refund follow asynchronously.
func CancelOrder(svc refundsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refund service unavailable"))
			return
		}

		userID, role, err := caller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Cancel(r.Context(), refundsvc.CancelInput{
			OrderID: orderID,
			ActorID: userID,
			Role:    role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, "order cancelled", order)
	}
}

type returnOrderRequest struct {
	Reason   string  `json:"reason" validate:"required,min=3,max=500"`
	Comment  *string `json:"comment" validate:"omitempty,max=1000"`
	ImageURL *string `json:"image_url" validate:"omitempty,max=2048"`
}

// ReturnOrder files a return request on a delivered order inside the window.
func ReturnOrder(svc refundsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refund service unavailable"))
			return
		}

		userID, _, err := caller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload returnOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.RequestReturn(r.Context(), refundsvc.ReturnInput{
			OrderID:  orderID,
			UserID:   userID,
			Reason:   payload.Reason,
			Comment:  payload.Comment,
			ImageURL: payload.ImageURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, "return requested", order)
	}
}

func orderIDParam(r *http.Request) (uuid.UUID, error) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}

func caller(r *http.Request) (uuid.UUID, enums.ActorRole, error) {
	userID, err := callerID(r)
	if err != nil {
		return uuid.Nil, "", err
	}
	role, err := enums.ParseActorRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return uuid.Nil, "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid actor role")
	}
	return userID, role, nil
}
