package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	cases := map[Code]int{
		CodeValidation: http.StatusBadRequest,
		CodeNotFound:   http.StatusNotFound,
		CodeRateLimit:  http.StatusTooManyRequests,
		CodePayment:    http.StatusPaymentRequired,
		CodeDependency: http.StatusServiceUnavailable,
	}
	for code, status := range cases {
		if got := MetadataFor(code).HTTPStatus; got != status {
			t.Fatalf("code %s: expected status %d got %d", code, status, got)
		}
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("NOPE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("boom")
	err := Wrap(CodeDependency, cause, "lookup coupon")
	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be discoverable")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("unexpected code %s", err.Code())
	}
}

func TestAsThroughWrappingChain(t *testing.T) {
	typed := New(CodeValidation, "bad input")
	wrapped := fmt.Errorf("outer: %w", typed)
	if got := As(wrapped); got == nil || got.Code() != CodeValidation {
		t.Fatalf("expected typed error through chain, got %v", got)
	}
	if As(stdErrors.New("plain")) != nil {
		t.Fatal("expected nil for untyped error")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeValidation, "validation failed").WithDetails(map[string]string{"code": "is required"})
	details, ok := err.Details().(map[string]string)
	if !ok || details["code"] != "is required" {
		t.Fatalf("unexpected details: %v", err.Details())
	}
}
