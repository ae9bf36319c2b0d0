package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code   Code
		status int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeStateConflict, http.StatusConflict},
		{CodeInsufficientBalance, http.StatusBadRequest},
		{CodeInvalidOrderAmount, http.StatusBadRequest},
		{CodeDependency, http.StatusBadGateway},
		{CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		if got := MetadataFor(tc.code).HTTPStatus; got != tc.status {
			t.Fatalf("MetadataFor(%s) status = %d, want %d", tc.code, got, tc.status)
		}
	}
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	t.Parallel()

	meta := MetadataFor(Code("SOMETHING_ELSE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unexpected status %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("gateway timeout")
	err := Wrap(CodeDependency, cause, "refund call failed")

	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable via errors.Is")
	}
	if typed := As(err); typed == nil || typed.Code() != CodeDependency {
		t.Fatalf("unexpected typed error: %v", err)
	}
}

func TestAsReturnsNilForPlainErrors(t *testing.T) {
	t.Parallel()

	if As(fmt.Errorf("plain")) != nil {
		t.Fatal("plain error should not convert")
	}
	if As(nil) != nil {
		t.Fatal("nil error should not convert")
	}
}

func TestDumpCollectsChain(t *testing.T) {
	t.Parallel()

	inner := fmt.Errorf("db write failed")
	err := Wrap(CodeInternal, inner, "persist order")

	dump := Dump(err)
	if dump.Code != CodeInternal {
		t.Fatalf("unexpected dump code %s", dump.Code)
	}
	if len(dump.Chain) < 2 {
		t.Fatalf("expected full chain, got %v", dump.Chain)
	}
}
