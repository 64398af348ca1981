package models

import "github.com/goormlabs/orders_backend/config"

func MigrateTable() error {
	db := config.GetDB()
	return db.AutoMigrate(
		&Company{},
		&Product{},
		&Inventory{},
		&InventoryTransaction{},
		&OrderNumberSequence{},
		&Order{},
		&OrderItem{},
		&InvoiceHistory{},
		&OrderSummaryMonthly{},
		&CompanyDiscountHistory{},
	)
}
