package models

import (
	"context"
	"time"

	"github.com/goormlabs/orders_backend/config"
	"github.com/goormlabs/orders_backend/utils"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int             `gorm:"primary_key" json:"id"`
	Code        string          `gorm:"size:50;uniqueIndex;not null" json:"code" binding:"required"`
	Name        string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Description string          `gorm:"size:255" json:"description"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	IsActive    *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProduct struct {
	Code          string          `json:"code" binding:"required"`
	Name          string          `json:"name" binding:"required"`
	Description   string          `json:"description"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	MinStockLevel decimal.Decimal `json:"min_stock_level"`
	ReorderPoint  decimal.Decimal `json:"reorder_point"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewProduct) validate(ctx context.Context, id int) error {
	if err := utils.ValidateUnique[Product](ctx, "code", input.Code, id); err != nil {
		return err
	}
	return nil
}

// CreateProduct onboards a product together with its empty inventory row,
// so stock operations never have to special-case a missing row after setup.
func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	product := Product{
		Code:        input.Code,
		Name:        input.Name,
		Description: input.Description,
		UnitPrice:   input.UnitPrice,
		IsActive:    utils.NewTrue(),
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&product).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	inventory := Inventory{
		ProductId:     product.ID,
		MinStockLevel: input.MinStockLevel,
		ReorderPoint:  input.ReorderPoint,
	}
	if err := tx.WithContext(ctx).Create(&inventory).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func UpdateProduct(ctx context.Context, id int, input *NewProduct) (*Product, error) {

	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	product, err := utils.FetchModel[Product](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err = db.WithContext(ctx).Model(&product).
		Updates(map[string]interface{}{
			"Code":        input.Code,
			"Name":        input.Name,
			"Description": input.Description,
			"UnitPrice":   input.UnitPrice,
		}).Error; err != nil {
		return nil, err
	}

	return product, nil
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	return utils.FetchModel[Product](ctx, id)
}

func GetProducts(ctx context.Context, name *string) ([]*Product, error) {

	db := config.GetDB()
	var results []*Product

	dbCtx := db.WithContext(ctx)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ? OR code LIKE ?", "%"+*name+"%", "%"+*name+"%")
	}
	err := dbCtx.Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
