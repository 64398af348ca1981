package models

import (
	"context"
	"time"

	"github.com/goormlabs/orders_backend/config"
	"gorm.io/gorm"
)

// InvoiceHistory is the append-only print audit. One row per generation;
// rows are never updated.
type InvoiceHistory struct {
	ID         int       `gorm:"primary_key" json:"id"`
	OrderId    int       `gorm:"index;not null" json:"order_id"`
	InvoiceId  string    `gorm:"size:50;not null" json:"invoice_id"`
	PrintedAt  time.Time `gorm:"autoCreateTime" json:"printed_at"`
	PrintedBy  string    `gorm:"size:100;not null" json:"printed_by"`
	PrintCount int       `gorm:"not null;default:1" json:"print_count"`
}

// CreateInvoiceHistory appends the audit row on the caller's transaction.
// PrintCount is a constant 1 unless INVOICE_AUDIT_ACCUMULATE is set, in
// which case it carries a running count of generations for the order.
func CreateInvoiceHistory(tx *gorm.DB, orderId int, invoiceId string, actor string) (*InvoiceHistory, error) {

	printCount := 1
	if config.InvoiceAuditAccumulate() {
		var prior int64
		if err := tx.Model(&InvoiceHistory{}).
			Where("order_id = ?", orderId).Count(&prior).Error; err != nil {
			return nil, err
		}
		printCount = int(prior) + 1
	}

	history := InvoiceHistory{
		OrderId:    orderId,
		InvoiceId:  invoiceId,
		PrintedBy:  actor,
		PrintCount: printCount,
	}
	if err := tx.Create(&history).Error; err != nil {
		return nil, err
	}
	return &history, nil
}

func GetInvoiceHistories(ctx context.Context, orderId int) ([]*InvoiceHistory, error) {

	db := config.GetDB()
	var results []*InvoiceHistory
	err := db.WithContext(ctx).
		Where("order_id = ?", orderId).
		Order("printed_at DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
