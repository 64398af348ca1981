package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Domain failures raised by order/inventory operations. Message formatting is
// deferred to the HTTP boundary; these carry structured data only.

type InsufficientStockError struct {
	ProductName string
	Requested   decimal.Decimal
	Available   decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %s, available %s",
		e.ProductName, e.Requested.String(), e.Available.String())
}

type OrderNotFoundError struct {
	OrderId int
}

func (e *OrderNotFoundError) Error() string {
	return fmt.Sprintf("order not found: %d", e.OrderId)
}

type OrderItemsNotSelectedError struct{}

func (e *OrderItemsNotSelectedError) Error() string {
	return "no order items selected"
}

type DeliveryCompleteError struct {
	MessageKey string
	Args       []interface{}
}

func (e *DeliveryCompleteError) Error() string {
	return e.MessageKey
}

type PaymentCompleteError struct {
	MessageKey string
	Args       []interface{}
}

func (e *PaymentCompleteError) Error() string {
	return e.MessageKey
}

// OrderProcessingError wraps an unexpected persistence failure during an order
// mutation so callers can distinguish it from business-rule failures.
type OrderProcessingError struct {
	Cause error
}

func (e *OrderProcessingError) Error() string {
	return "order processing failed: " + e.Cause.Error()
}

func (e *OrderProcessingError) Unwrap() error {
	return e.Cause
}
