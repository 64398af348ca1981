package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/goormlabs/orders_backend/config"
	"github.com/goormlabs/orders_backend/utils"
)

type Company struct {
	ID             int       `gorm:"primary_key" json:"id"`
	CompanyCode    string    `gorm:"size:36;uniqueIndex;not null" json:"company_code"`
	Name           string    `gorm:"size:100;not null" json:"name" binding:"required"`
	BusinessNumber string    `gorm:"size:30" json:"business_number"`
	ContactName    string    `gorm:"size:100" json:"contact_name"`
	Phone          string    `gorm:"size:30" json:"phone"`
	Email          string    `gorm:"size:100" json:"email"`
	Address        string    `gorm:"size:255" json:"address"`
	IsActive       *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCompany struct {
	Name           string `json:"name" binding:"required"`
	BusinessNumber string `json:"business_number"`
	ContactName    string `json:"contact_name"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	Address        string `json:"address"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewCompany) validate(ctx context.Context, id int) error {
	if err := utils.ValidateUnique[Company](ctx, "name", input.Name, id); err != nil {
		return err
	}
	return nil
}

func CreateCompany(ctx context.Context, input *NewCompany) (*Company, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	company := Company{
		CompanyCode:    uuid.NewString(),
		Name:           input.Name,
		BusinessNumber: input.BusinessNumber,
		ContactName:    input.ContactName,
		Phone:          input.Phone,
		Email:          input.Email,
		Address:        input.Address,
		IsActive:       utils.NewTrue(),
	}

	db := config.GetDB()
	// db action
	err := db.WithContext(ctx).Create(&company).Error
	if err != nil {
		return nil, err
	}
	return &company, nil
}

func UpdateCompany(ctx context.Context, id int, input *NewCompany) (*Company, error) {

	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	company, err := utils.FetchModel[Company](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	// db action
	if err = db.WithContext(ctx).Model(&company).
		Updates(map[string]interface{}{
			"Name":           input.Name,
			"BusinessNumber": input.BusinessNumber,
			"ContactName":    input.ContactName,
			"Phone":          input.Phone,
			"Email":          input.Email,
			"Address":        input.Address,
		}).Error; err != nil {
		return nil, err
	}

	return company, nil
}

func ToggleActiveCompany(ctx context.Context, id int, isActive bool) (*Company, error) {

	company, err := utils.FetchModel[Company](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err = db.WithContext(ctx).Model(&company).
		Update("IsActive", isActive).Error; err != nil {
		return nil, err
	}
	return company, nil
}

func GetCompany(ctx context.Context, id int) (*Company, error) {
	return utils.FetchModel[Company](ctx, id)
}

func GetCompanies(ctx context.Context, name *string) ([]*Company, error) {

	db := config.GetDB()
	var results []*Company

	dbCtx := db.WithContext(ctx)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	// db query
	err := dbCtx.Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
