package utils

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestKindOf(t *testing.T) {
	if got := KindOf(nil); got != "" {
		t.Fatalf("KindOf(nil) = %q; want empty", got)
	}

	err := NewError(ErrorKindInvalidState, "token %s is already completed", "2501-000001")
	if got := KindOf(err); got != ErrorKindInvalidState {
		t.Fatalf("KindOf(AppError) = %q; want InvalidState", got)
	}

	// Kinds survive wrapping.
	wrapped := fmt.Errorf("creating certificate: %w", err)
	if got := KindOf(wrapped); got != ErrorKindInvalidState {
		t.Fatalf("KindOf(wrapped) = %q; want InvalidState", got)
	}

	if got := KindOf(ErrorRecordNotFound); got != ErrorKindNotFound {
		t.Fatalf("KindOf(ErrorRecordNotFound) = %q; want NotFound", got)
	}

	if got := KindOf(errors.New("disk on fire")); got != ErrorKindInternal {
		t.Fatalf("KindOf(plain error) = %q; want Internal", got)
	}
}

func TestInsufficientStockError(t *testing.T) {
	err := &InsufficientStockError{
		Unit:      "U1",
		Floor:     "F2",
		Pocket:    "P3",
		Available: decimal.NewFromInt(5),
		Requested: decimal.NewFromInt(20),
	}

	if got := KindOf(err); got != ErrorKindInsufficientStock {
		t.Fatalf("KindOf = %q; want InsufficientStock", got)
	}

	// The message identifies the location and both quantities.
	msg := err.Error()
	for _, want := range []string{"U1", "F2", "P3", "5", "20"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("error message %q missing %q", msg, want)
		}
	}

	// Callers recover the quantities through errors.As.
	var insufficient *InsufficientStockError
	wrapped := fmt.Errorf("transfer failed: %w", err)
	if !errors.As(wrapped, &insufficient) {
		t.Fatal("errors.As failed to unwrap InsufficientStockError")
	}
	if !insufficient.Available.Equal(decimal.NewFromInt(5)) || !insufficient.Requested.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("unexpected quantities: available=%s requested=%s", insufficient.Available, insufficient.Requested)
	}
}
