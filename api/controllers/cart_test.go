package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftbasket/swiftbasket-backend/api/middleware"
	cartsvc "github.com/swiftbasket/swiftbasket-backend/internal/cart"
	pkgerrors "github.com/swiftbasket/swiftbasket-backend/pkg/errors"
)

type stubCartService struct {
	line    *cartsvc.LineMutation
	summary *cartsvc.BillSummary
	err     error

	lastUserID   uuid.UUID
	lastQuantity int
	lastCouponID *uuid.UUID
	lastDonation int
}

func (s *stubCartService) AddItem(ctx context.Context, userID, productID, unitID uuid.UUID, quantity int) (*cartsvc.LineMutation, error) {
	s.lastUserID = userID
	s.lastQuantity = quantity
	return s.line, s.err
}

func (s *stubCartService) Increment(ctx context.Context, userID, productID, unitID uuid.UUID) (*cartsvc.LineMutation, error) {
	s.lastUserID = userID
	return s.line, s.err
}

func (s *stubCartService) Decrement(ctx context.Context, userID, productID, unitID uuid.UUID) (*cartsvc.LineMutation, error) {
	s.lastUserID = userID
	return s.line, s.err
}

func (s *stubCartService) RemoveItem(ctx context.Context, userID, productID, unitID uuid.UUID) (*cartsvc.LineMutation, error) {
	s.lastUserID = userID
	return s.line, s.err
}

func (s *stubCartService) Quote(ctx context.Context, userID uuid.UUID) (*cartsvc.Quote, error) {
	return nil, s.err
}

func (s *stubCartService) Summary(ctx context.Context, userID uuid.UUID, couponID *uuid.UUID, donation int) (*cartsvc.BillSummary, error) {
	s.lastUserID = userID
	s.lastCouponID = couponID
	s.lastDonation = donation
	return s.summary, s.err
}

func (s *stubCartService) ClearLines(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	return s.err
}

func authedRequest(method, target string, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	return req.WithContext(middleware.WithRole(req.Context(), "user"))
}

func withURLParams(req *http.Request, pairs ...string) *http.Request {
	routeCtx := chi.NewRouteContext()
	for i := 0; i+1 < len(pairs); i += 2 {
		routeCtx.URLParams.Add(pairs[i], pairs[i+1])
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestCartAddItemSuccess(t *testing.T) {
	productID := uuid.New()
	unitID := uuid.New()
	service := &stubCartService{line: &cartsvc.LineMutation{ProductID: productID, UnitID: unitID, Quantity: 2, CartCount: 3}}
	handler := CartAddItem(service, nil)

	body := fmt.Sprintf(`{"product_id":"%s","unit_id":"%s","quantity":2}`, productID, unitID)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/cart/items", body))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if service.lastQuantity != 2 {
		t.Fatalf("expected quantity 2 forwarded, got %d", service.lastQuantity)
	}

	var envelope struct {
		Success bool                 `json:"success"`
		Data    cartsvc.LineMutation `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Success {
		t.Fatal("expected success envelope")
	}
	if envelope.Data.CartCount != 3 {
		t.Fatalf("unexpected cart count: %d", envelope.Data.CartCount)
	}
}

func TestCartAddItemDefaultsQuantity(t *testing.T) {
	service := &stubCartService{line: &cartsvc.LineMutation{Quantity: 1}}
	handler := CartAddItem(service, nil)

	body := fmt.Sprintf(`{"product_id":"%s","unit_id":"%s"}`, uuid.New(), uuid.New())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/cart/items", body))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if service.lastQuantity != 1 {
		t.Fatalf("expected default quantity 1, got %d", service.lastQuantity)
	}
}

func TestCartAddItemRequiresAuthContext(t *testing.T) {
	handler := CartAddItem(&stubCartService{}, nil)

	body := fmt.Sprintf(`{"product_id":"%s","unit_id":"%s"}`, uuid.New(), uuid.New())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCartAdjustItemRejectsUnknownDirection(t *testing.T) {
	handler := CartAdjustItem(&stubCartService{}, nil)

	req := authedRequest(http.MethodPatch, "/api/v1/cart/items/x/y/sideways", "")
	req = withURLParams(req, "productId", uuid.NewString(), "unitId", uuid.NewString(), "direction", "sideways")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartAdjustItemDecrement(t *testing.T) {
	service := &stubCartService{line: &cartsvc.LineMutation{Quantity: 0, Removed: true}}
	handler := CartAdjustItem(service, nil)

	req := authedRequest(http.MethodPatch, "/api/v1/cart/items/x/y/decrement", "")
	req = withURLParams(req, "productId", uuid.NewString(), "unitId", uuid.NewString(), "direction", "decrement")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data cartsvc.LineMutation `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.Removed {
		t.Fatal("expected line reported as removed")
	}
}

func TestCartSummaryForwardsCouponAndDonation(t *testing.T) {
	couponID := uuid.New()
	service := &stubCartService{summary: &cartsvc.BillSummary{ItemTotal: 400, Discount: 30, ShippingFee: 50, Donation: 20, GrandTotal: 440}}
	handler := CartSummary(service, nil)

	target := fmt.Sprintf("/api/v1/cart/summary?coupon=%s&donate=20", couponID)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, target, ""))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if service.lastCouponID == nil || *service.lastCouponID != couponID {
		t.Fatalf("expected coupon id %s forwarded", couponID)
	}
	if service.lastDonation != 20 {
		t.Fatalf("expected donation 20, got %d", service.lastDonation)
	}

	var envelope struct {
		Data cartsvc.BillSummary `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.GrandTotal != 440 {
		t.Fatalf("unexpected grand total: %d", envelope.Data.GrandTotal)
	}
}

func TestCartSummaryRejectsBadCoupon(t *testing.T) {
	handler := CartSummary(&stubCartService{}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/api/v1/cart/summary?coupon=not-a-uuid", ""))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartSummaryServiceError(t *testing.T) {
	handler := CartSummary(&stubCartService{err: pkgerrors.New(pkgerrors.CodeNotFound, "cart empty")}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/api/v1/cart/summary", ""))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}

	var envelope struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Success {
		t.Fatal("expected failure envelope")
	}
	if envelope.Error.Code != string(pkgerrors.CodeNotFound) {
		t.Fatalf("unexpected error code: %s", envelope.Error.Code)
	}
}
