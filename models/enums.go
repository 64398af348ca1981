package models

import (
	"encoding/json"
	"errors"
	"strconv"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusApproved  OrderStatus = "APPROVED"
	OrderStatusCompleted OrderStatus = "COMPLETED"
)

// legal forward transitions only
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return next == OrderStatusApproved
	case OrderStatusApproved:
		return next == OrderStatusCompleted
	}
	return false
}

// convert enum to send response
func (s OrderStatus) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(s))), nil
}

// convert input to enum type
func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.New("order status must be string")
	}
	switch str {
	case "PENDING":
		*s = OrderStatusPending
	case "APPROVED":
		*s = OrderStatusApproved
	case "COMPLETED":
		*s = OrderStatusCompleted
	default:
		return errors.New("invalid order status")
	}
	return nil
}

type DeliveryStatus string

const (
	DeliveryStatusOrderCompleted    DeliveryStatus = "ORDER_COMPLETED"
	DeliveryStatusInProgress        DeliveryStatus = "DELIVERY_IN_PROGRESS"
	DeliveryStatusDeliveryCompleted DeliveryStatus = "DELIVERY_COMPLETED"
)

func (s DeliveryStatus) CanTransitionTo(next DeliveryStatus) bool {
	switch s {
	case DeliveryStatusOrderCompleted:
		return next == DeliveryStatusInProgress || next == DeliveryStatusDeliveryCompleted
	case DeliveryStatusInProgress:
		return next == DeliveryStatusDeliveryCompleted
	}
	return false
}

func (s DeliveryStatus) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(s))), nil
}

func (s *DeliveryStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.New("delivery status must be string")
	}
	switch str {
	case "ORDER_COMPLETED":
		*s = DeliveryStatusOrderCompleted
	case "DELIVERY_IN_PROGRESS":
		*s = DeliveryStatusInProgress
	case "DELIVERY_COMPLETED":
		*s = DeliveryStatusDeliveryCompleted
	default:
		return errors.New("invalid delivery status")
	}
	return nil
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
)

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return s == PaymentStatusPending && next == PaymentStatusCompleted
}

func (s PaymentStatus) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(s))), nil
}

func (s *PaymentStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.New("payment status must be string")
	}
	switch str {
	case "PENDING":
		*s = PaymentStatusPending
	case "COMPLETED":
		*s = PaymentStatusCompleted
	default:
		return errors.New("invalid payment status")
	}
	return nil
}

type TransactionType string

const (
	TransactionTypeReceiving     TransactionType = "RECEIVING"
	TransactionTypeOrderConsumed TransactionType = "ORDER_CONSUMED"
)

func (t TransactionType) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(t))), nil
}

func (t *TransactionType) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.New("transaction type must be string")
	}
	switch str {
	case "RECEIVING":
		*t = TransactionTypeReceiving
	case "ORDER_CONSUMED":
		*t = TransactionTypeOrderConsumed
	default:
		return errors.New("invalid transaction type")
	}
	return nil
}

type Grade string

const (
	GradeNone    Grade = "NONE"
	GradeBasic   Grade = "BASIC"
	GradeBronze  Grade = "BRONZE"
	GradeSilver  Grade = "SILVER"
	GradeGold    Grade = "GOLD"
	GradePremium Grade = "PREMIUM"
)

func (g Grade) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(g))), nil
}

func (g *Grade) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.New("grade must be string")
	}
	grades := map[string]Grade{
		"NONE":    GradeNone,
		"BASIC":   GradeBasic,
		"BRONZE":  GradeBronze,
		"SILVER":  GradeSilver,
		"GOLD":    GradeGold,
		"PREMIUM": GradePremium,
	}
	var ok bool
	*g, ok = grades[str]
	if !ok {
		return errors.New("invalid grade")
	}
	return nil
}
