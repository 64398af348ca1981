package models

import (
	"context"
	"time"

	"github.com/goormlabs/orders_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"
)

// Aggregate rollups. The order workflow only reads these; they are rebuilt
// by the backfill command (cmd/backfill-monthly-summary).

type OrderSummaryMonthly struct {
	ID          int             `gorm:"primary_key" json:"id"`
	CompanyId   int             `gorm:"uniqueIndex:idx_company_period;not null" json:"company_id"`
	Year        int             `gorm:"uniqueIndex:idx_company_period;not null" json:"year"`
	Month       int             `gorm:"uniqueIndex:idx_company_period;not null" json:"month"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	OrderCount  int             `gorm:"default:0" json:"order_count"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type CompanyDiscountHistory struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	CompanyId          int             `gorm:"index;not null" json:"company_id"`
	Year               int             `gorm:"index;not null" json:"year"`
	Grade              Grade           `gorm:"type:enum('NONE','BASIC','BRONZE','SILVER','GOLD','PREMIUM');not null" json:"grade"`
	DiscountRate       decimal.Decimal `gorm:"type:decimal(5,2);default:0" json:"discount_rate"`
	PreviousYearAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"previous_year_amount"`
	AppliedAt          time.Time       `gorm:"autoCreateTime" json:"applied_at"`
}

// GetPreviousYearAmount sums the monthly rollups of the year before the
// given one.
func GetPreviousYearAmount(ctx context.Context, companyId int, year int) (decimal.Decimal, error) {

	db := config.GetDB()
	var total decimal.NullDecimal
	err := db.WithContext(ctx).Model(&OrderSummaryMonthly{}).
		Where("company_id = ? AND year = ?", companyId, year-1).
		Select("SUM(total_amount)").Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// CurrentDiscountRate resolves the percent rate an order placed now earns,
// from the company's trailing-year volume.
func CurrentDiscountRate(ctx context.Context, companyId int) (decimal.Decimal, error) {
	previousYearAmount, err := GetPreviousYearAmount(ctx, companyId, time.Now().Year())
	if err != nil {
		return decimal.Zero, err
	}
	return EvaluateGrade(previousYearAmount).RecommendedRate(), nil
}

type monthlyRollup struct {
	CompanyId   int
	TotalAmount decimal.Decimal
	OrderCount  int
}

// RebuildMonthlySummary recomputes one company-month rollup table slice from
// the orders placed in that month and upserts the rows.
func RebuildMonthlySummary(ctx context.Context, year int, month time.Month) (int, error) {

	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	db := config.GetDB()
	var rollups []monthlyRollup
	err := db.WithContext(ctx).Model(&Order{}).
		Select("company_id, SUM(final_amount) AS total_amount, COUNT(*) AS order_count").
		Where("order_date >= ? AND order_date < ? AND order_status <> ?", start, end, OrderStatusPending).
		Group("company_id").
		Scan(&rollups).Error
	if err != nil {
		return 0, err
	}

	for _, rollup := range rollups {
		summary := OrderSummaryMonthly{
			CompanyId:   rollup.CompanyId,
			Year:        year,
			Month:       int(month),
			TotalAmount: rollup.TotalAmount,
			OrderCount:  rollup.OrderCount,
		}
		err := db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "company_id"}, {Name: "year"}, {Name: "month"}},
			DoUpdates: clause.AssignmentColumns([]string{"total_amount", "order_count"}),
		}).Create(&summary).Error
		if err != nil {
			return 0, err
		}
	}
	return len(rollups), nil
}

// RebuildCompanyDiscountHistory snapshots each company's grade for the given
// year from the rebuilt rollups.
func RebuildCompanyDiscountHistory(ctx context.Context, year int) (int, error) {

	db := config.GetDB()
	var companyIds []int
	err := db.WithContext(ctx).Model(&Company{}).Select("id").Scan(&companyIds).Error
	if err != nil {
		return 0, err
	}

	count := 0
	for _, companyId := range companyIds {
		previousYearAmount, err := GetPreviousYearAmount(ctx, companyId, year)
		if err != nil {
			return count, err
		}
		grade := EvaluateGrade(previousYearAmount)
		history := CompanyDiscountHistory{
			CompanyId:          companyId,
			Year:               year,
			Grade:              grade,
			DiscountRate:       grade.RecommendedRate(),
			PreviousYearAmount: previousYearAmount,
		}
		if err := db.WithContext(ctx).Create(&history).Error; err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func GetCompanyDiscountHistories(ctx context.Context, companyId int) ([]*CompanyDiscountHistory, error) {

	db := config.GetDB()
	var results []*CompanyDiscountHistory
	err := db.WithContext(ctx).
		Where("company_id = ?", companyId).
		Order("year DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
