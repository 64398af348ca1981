package models

import (
	"context"
	"errors"
	"time"

	"github.com/goormlabs/orders_backend/config"
	"github.com/goormlabs/orders_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Inventory struct {
	ID             int             `gorm:"primary_key" json:"id"`
	ProductId      int             `gorm:"uniqueIndex;not null" json:"product_id" binding:"required"`
	CurrentStock   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"current_stock"`
	ReservedStock  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"reserved_stock"`
	MinStockLevel  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"min_stock_level"`
	ReorderPoint   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"reorder_point"`
	LastStockCheck *time.Time      `json:"last_stock_check"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (inv Inventory) AvailableStock() decimal.Decimal {
	return inv.CurrentStock.Sub(inv.ReservedStock)
}

func (inv Inventory) IsOutOfStock() bool {
	return inv.AvailableStock().LessThanOrEqual(decimal.Zero)
}

func (inv Inventory) IsLowStock() bool {
	return inv.AvailableStock().LessThanOrEqual(inv.MinStockLevel)
}

func (inv Inventory) NeedsReorder() bool {
	return inv.AvailableStock().LessThanOrEqual(inv.ReorderPoint)
}

func (inv Inventory) CanOrder(qty decimal.Decimal) bool {
	return qty.GreaterThan(decimal.Zero) && inv.AvailableStock().GreaterThanOrEqual(qty)
}

// InventoryTransaction is an append-only ledger row. Rows are never updated
// after creation; corrections happen through compensating rows.
type InventoryTransaction struct {
	ID          int             `gorm:"primary_key" json:"id"`
	Type        TransactionType `gorm:"type:enum('RECEIVING','ORDER_CONSUMED');not null" json:"type"`
	ProductId   int             `gorm:"index;not null" json:"product_id"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	Note        string          `gorm:"size:255" json:"note"`
	ProcessedBy string          `gorm:"size:100;not null" json:"processed_by"`
	OrderId     *int            `gorm:"index" json:"order_id"`
	BatchRef    *string         `gorm:"size:100;index" json:"batch_ref"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// BeforeSave enforces the ledger sign invariant: consumption rows carry
// negative quantities, receiving rows positive ones. Queries summing the
// ledger rely on this.
func (t *InventoryTransaction) BeforeSave(tx *gorm.DB) error {
	_ = tx // signature required by gorm; tx may be nil in tests
	if t == nil || t.Quantity.IsZero() {
		return nil
	}
	switch t.Type {
	case TransactionTypeOrderConsumed:
		if t.Quantity.IsPositive() {
			t.Quantity = t.Quantity.Neg()
		}
	case TransactionTypeReceiving:
		if t.Quantity.IsNegative() {
			t.Quantity = t.Quantity.Neg()
		}
	}
	return nil
}

// CheckAvailability is a read-only availability check. It is advisory only:
// the consuming write re-validates sufficiency at mutation time.
func CheckAvailability(ctx context.Context, productId int, qty decimal.Decimal) error {

	product, err := utils.FetchModel[Product](ctx, productId)
	if err != nil {
		return err
	}

	db := config.GetDB()
	var inventory Inventory
	if err := db.WithContext(ctx).Where("product_id = ?", productId).First(&inventory).Error; err != nil {
		return &InsufficientStockError{
			ProductName: product.Name,
			Requested:   qty,
			Available:   decimal.Zero,
		}
	}

	if !inventory.CanOrder(qty) {
		return &InsufficientStockError{
			ProductName: product.Name,
			Requested:   qty,
			Available:   inventory.AvailableStock(),
		}
	}
	return nil
}

// reserveStock holds qty against available stock with a single conditional
// update. Zero rows affected means the stock is gone, reported as a fresh
// InsufficientStockError rather than trusting any earlier read.
func reserveStock(tx *gorm.DB, productId int, qty decimal.Decimal, productName string) error {

	result := tx.Model(&Inventory{}).
		Where("product_id = ? AND current_stock - reserved_stock >= ?", productId, qty).
		Update("reserved_stock", gorm.Expr("reserved_stock + ?", qty))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var inventory Inventory
		available := decimal.Zero
		if err := tx.Where("product_id = ?", productId).First(&inventory).Error; err == nil {
			available = inventory.AvailableStock()
		}
		return &InsufficientStockError{
			ProductName: productName,
			Requested:   qty,
			Available:   available,
		}
	}
	return nil
}

func releaseReservation(tx *gorm.DB, productId int, qty decimal.Decimal) error {
	return tx.Model(&Inventory{}).
		Where("product_id = ?", productId).
		Update("reserved_stock", gorm.Expr("GREATEST(reserved_stock - ?, 0)", qty)).Error
}

// consumeStock converts a reservation into consumption: decrements current
// and reserved stock together and appends the ORDER_CONSUMED ledger row, all
// on the caller's transaction. The conditional update is the real guard.
func consumeStock(tx *gorm.DB, item OrderItem, orderId int, actor string) error {

	result := tx.Model(&Inventory{}).
		Where("product_id = ? AND current_stock >= ? AND reserved_stock >= ?",
			item.ProductId, item.Quantity, item.Quantity).
		Updates(map[string]interface{}{
			"current_stock":  gorm.Expr("current_stock - ?", item.Quantity),
			"reserved_stock": gorm.Expr("reserved_stock - ?", item.Quantity),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var inventory Inventory
		available := decimal.Zero
		if err := tx.Where("product_id = ?", item.ProductId).First(&inventory).Error; err == nil {
			available = inventory.AvailableStock()
		}
		return &InsufficientStockError{
			ProductName: item.ProductName,
			Requested:   item.Quantity,
			Available:   available,
		}
	}

	transaction := InventoryTransaction{
		Type:        TransactionTypeOrderConsumed,
		ProductId:   item.ProductId,
		Quantity:    item.Quantity.Neg(),
		UnitPrice:   item.UnitPrice,
		TotalAmount: item.Quantity.Mul(item.UnitPrice),
		ProcessedBy: actor,
		OrderId:     &orderId,
	}
	return tx.Create(&transaction).Error
}

type ReceiveStockInput struct {
	ProductId int             `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	BatchRef  string          `json:"batch_ref"`
}

// ReceiveStock increments stock and appends the RECEIVING ledger row in one
// transaction. The inventory row is created on first receipt for products
// onboarded before the inventory table existed.
func ReceiveStock(ctx context.Context, input *ReceiveStockInput, actor string) (*InventoryTransaction, error) {

	if input.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, errors.New("quantity must be positive")
	}

	if err := utils.ValidateResourceId[Product](ctx, input.ProductId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()

	now := time.Now()
	result := tx.WithContext(ctx).Model(&Inventory{}).
		Where("product_id = ?", input.ProductId).
		Updates(map[string]interface{}{
			"current_stock":    gorm.Expr("current_stock + ?", input.Quantity),
			"last_stock_check": now,
		})
	if result.Error != nil {
		tx.Rollback()
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		inventory := Inventory{
			ProductId:      input.ProductId,
			CurrentStock:   input.Quantity,
			LastStockCheck: &now,
		}
		if err := tx.WithContext(ctx).Create(&inventory).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	transaction := InventoryTransaction{
		Type:        TransactionTypeReceiving,
		ProductId:   input.ProductId,
		Quantity:    input.Quantity,
		UnitPrice:   input.UnitPrice,
		TotalAmount: input.Quantity.Mul(input.UnitPrice),
		ProcessedBy: actor,
		BatchRef:    utils.NilIfEmpty(input.BatchRef),
	}
	if err := tx.WithContext(ctx).Create(&transaction).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &transaction, nil
}

func GetInventory(ctx context.Context, productId int) (*Inventory, error) {

	db := config.GetDB()
	var result Inventory
	err := db.WithContext(ctx).Where("product_id = ?", productId).First(&result).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &result, nil
}

func GetLowStockInventories(ctx context.Context) ([]*Inventory, error) {

	db := config.GetDB()
	var results []*Inventory
	err := db.WithContext(ctx).
		Where("current_stock - reserved_stock <= min_stock_level").
		Order("product_id").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func GetInventoryTransactions(ctx context.Context, productId *int, transactionType *TransactionType, orderId *int) ([]*InventoryTransaction, error) {

	db := config.GetDB()
	var results []*InventoryTransaction

	dbCtx := db.WithContext(ctx)
	if productId != nil && *productId > 0 {
		dbCtx = dbCtx.Where("product_id = ?", *productId)
	}
	if transactionType != nil && *transactionType != "" {
		dbCtx = dbCtx.Where("type = ?", *transactionType)
	}
	if orderId != nil && *orderId > 0 {
		dbCtx = dbCtx.Where("order_id = ?", *orderId)
	}
	err := dbCtx.Order("created_at DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
