package controllers

import (
	"net/http"

	"github.com/swiftbasket/swiftbasket-backend/api/responses"
	"github.com/swiftbasket/swiftbasket-backend/api/validators"
	coinsvc "github.com/swiftbasket/swiftbasket-backend/internal/coins"
	"github.com/swiftbasket/swiftbasket-backend/pkg/db/models"
	pkgerrors "github.com/swiftbasket/swiftbasket-backend/pkg/errors"
	"github.com/swiftbasket/swiftbasket-backend/pkg/logger"
	"github.com/swiftbasket/swiftbasket-backend/pkg/pagination"
)

type coinAccount struct {
	Qualified    bool                     `json:"qualified"`
	Balance      int                      `json:"balance"`
	Transactions []models.CoinTransaction `json:"transactions"`
	NextCursor   string                   `json:"next_cursor,omitempty"`
}

// CoinAccount returns the caller's coin balance and ledger history. Users who
// have never completed an order get an unqualified empty account so clients
// keep the coin program hidden.
func CoinAccount(svc coinsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coin service unavailable"))
			return
		}

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		qualified, err := svc.HasQualifyingOrders(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !qualified {
			responses.WriteSuccess(w, "", coinAccount{Transactions: []models.CoinTransaction{}})
			return
		}

		balance, err := svc.Balance(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		history, nextCursor, err := svc.History(r.Context(), userID, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, "", coinAccount{
			Qualified:    true,
			Balance:      balance,
			Transactions: history,
			NextCursor:   nextCursor,
		})
	}
}
