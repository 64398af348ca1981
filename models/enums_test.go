package models_test

import (
	"encoding/json"
	"testing"

	"github.com/goormlabs/orders_backend/models"
)

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from models.OrderStatus
		to   models.OrderStatus
		ok   bool
	}{
		{models.OrderStatusPending, models.OrderStatusApproved, true},
		{models.OrderStatusApproved, models.OrderStatusCompleted, true},
		{models.OrderStatusPending, models.OrderStatusCompleted, false},
		{models.OrderStatusApproved, models.OrderStatusPending, false},
		{models.OrderStatusCompleted, models.OrderStatusApproved, false},
		{models.OrderStatusCompleted, models.OrderStatusPending, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.ok {
			t.Fatalf("%s -> %s: got %v, want %v", c.from, c.to, got, c.ok)
		}
	}
}

func TestDeliveryStatusTransitions(t *testing.T) {
	cases := []struct {
		from models.DeliveryStatus
		to   models.DeliveryStatus
		ok   bool
	}{
		{models.DeliveryStatusOrderCompleted, models.DeliveryStatusInProgress, true},
		// direct completion without an explicit start is allowed
		{models.DeliveryStatusOrderCompleted, models.DeliveryStatusDeliveryCompleted, true},
		{models.DeliveryStatusInProgress, models.DeliveryStatusDeliveryCompleted, true},
		{models.DeliveryStatusInProgress, models.DeliveryStatusOrderCompleted, false},
		{models.DeliveryStatusDeliveryCompleted, models.DeliveryStatusInProgress, false},
		{models.DeliveryStatusDeliveryCompleted, models.DeliveryStatusOrderCompleted, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.ok {
			t.Fatalf("%s -> %s: got %v, want %v", c.from, c.to, got, c.ok)
		}
	}
}

func TestPaymentStatusTransitions(t *testing.T) {
	if !models.PaymentStatusPending.CanTransitionTo(models.PaymentStatusCompleted) {
		t.Fatal("PENDING -> COMPLETED must be allowed")
	}
	if models.PaymentStatusCompleted.CanTransitionTo(models.PaymentStatusPending) {
		t.Fatal("COMPLETED -> PENDING must be rejected")
	}
}

func TestEnumJSONRoundTrip(t *testing.T) {
	b, err := json.Marshal(models.DeliveryStatusInProgress)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"DELIVERY_IN_PROGRESS"` {
		t.Fatalf("unexpected marshal output: %s", b)
	}

	var status models.DeliveryStatus
	if err := json.Unmarshal(b, &status); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if status != models.DeliveryStatusInProgress {
		t.Fatalf("round trip mismatch: %s", status)
	}

	var grade models.Grade
	if err := json.Unmarshal([]byte(`"PREMIUM"`), &grade); err != nil {
		t.Fatalf("unmarshal grade: %v", err)
	}
	if grade != models.GradePremium {
		t.Fatalf("round trip mismatch: %s", grade)
	}
}

func TestEnumUnmarshalRejectsUnknownValues(t *testing.T) {
	var orderStatus models.OrderStatus
	if err := json.Unmarshal([]byte(`"SHIPPED"`), &orderStatus); err == nil {
		t.Fatal("expected error for unknown order status")
	}
	if err := json.Unmarshal([]byte(`42`), &orderStatus); err == nil {
		t.Fatal("expected error for non-string order status")
	}

	var grade models.Grade
	if err := json.Unmarshal([]byte(`"PLATINUM"`), &grade); err == nil {
		t.Fatal("expected error for unknown grade")
	}

	var txnType models.TransactionType
	if err := json.Unmarshal([]byte(`"ADJUSTMENT"`), &txnType); err == nil {
		t.Fatal("expected error for unknown transaction type")
	}
}
