package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/swiftbasket/swiftbasket-backend/api/middleware"
	"github.com/swiftbasket/swiftbasket-backend/api/responses"
	"github.com/swiftbasket/swiftbasket-backend/api/validators"
	cartsvc "github.com/swiftbasket/swiftbasket-backend/internal/cart"
	pkgerrors "github.com/swiftbasket/swiftbasket-backend/pkg/errors"
	"github.com/swiftbasket/swiftbasket-backend/pkg/logger"
)

type addCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	UnitID    uuid.UUID `json:"unit_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"omitempty,min=1,max=99"`
}

// CartAddItem adds a unit to the caller's cart or bumps its quantity.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quantity := payload.Quantity
		if quantity == 0 {
			quantity = 1
		}

		line, err := svc.AddItem(r.Context(), userID, payload.ProductID, payload.UnitID, quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, "item added to cart", line)
	}
}

// CartAdjustItem bumps a cart line up or down by one; hitting zero removes it.
func CartAdjustItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, unitID, err := cartLineParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var line *cartsvc.LineMutation
		switch chi.URLParam(r, "direction") {
		case "increment":
			line, err = svc.Increment(r.Context(), userID, productID, unitID)
		case "decrement":
			line, err = svc.Decrement(r.Context(), userID, productID, unitID)
		default:
			err = pkgerrors.New(pkgerrors.CodeValidation, "direction must be increment or decrement")
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, "cart updated", line)
	}
}

// CartRemoveItem drops a line from the cart regardless of quantity.
func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, unitID, err := cartLineParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		line, err := svc.RemoveItem(r.Context(), userID, productID, unitID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, "item removed from cart", line)
	}
}

// CartSummary returns the checkout preview: priced lines, coupon discount,
// shipping fee, donation, and the coin block when the user qualifies.
func CartSummary(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		couponID, err := validators.ParseQueryUUID(r, "coupon")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		donation, err := validators.ParseQueryInt(r, "donate", 0, 0, 100000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Summary(r.Context(), userID, couponID, donation)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, "", summary)
	}
}

func cartLineParams(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	productID, err := uuid.Parse(chi.URLParam(r, "productId"))
	if err != nil {
		return uuid.Nil, uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
	}
	unitID, err := uuid.Parse(chi.URLParam(r, "unitId"))
	if err != nil {
		return uuid.Nil, uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit id")
	}
	return productID, unitID, nil
}

func callerID(r *http.Request) (uuid.UUID, error) {
	if r == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return userID, nil
}
