package models

import "github.com/shopspring/decimal"

// Loyalty discount engine. Pure decimal arithmetic, no db access.
//
// Grades are derived from a company's trailing-year purchase volume with
// inclusive lower bounds, so an amount exactly at a threshold earns the
// higher grade.

var (
	gradeThresholdBronze  = decimal.NewFromInt(10_000_000)
	gradeThresholdSilver  = decimal.NewFromInt(30_000_000)
	gradeThresholdGold    = decimal.NewFromInt(80_000_000)
	gradeThresholdPremium = decimal.NewFromInt(150_000_000)

	oneHundred = decimal.NewFromInt(100)
)

func EvaluateGrade(previousYearAmount decimal.Decimal) Grade {
	if previousYearAmount.LessThanOrEqual(decimal.Zero) {
		return GradeNone
	}
	switch {
	case previousYearAmount.GreaterThanOrEqual(gradeThresholdPremium):
		return GradePremium
	case previousYearAmount.GreaterThanOrEqual(gradeThresholdGold):
		return GradeGold
	case previousYearAmount.GreaterThanOrEqual(gradeThresholdSilver):
		return GradeSilver
	case previousYearAmount.GreaterThanOrEqual(gradeThresholdBronze):
		return GradeBronze
	}
	return GradeBasic
}

func (g Grade) RecommendedRate() decimal.Decimal {
	switch g {
	case GradePremium:
		return decimal.NewFromFloat(6.0)
	case GradeGold:
		return decimal.NewFromFloat(5.0)
	case GradeSilver:
		return decimal.NewFromFloat(3.0)
	case GradeBronze:
		return decimal.NewFromFloat(2.0)
	case GradeBasic:
		return decimal.NewFromFloat(1.0)
	}
	return decimal.Zero
}

// ApplyDiscount returns the discount amount for orderAmount at the given
// percent rate, rounded half-up to 2 decimal places. Rates above 100 are
// clamped to 100; non-positive inputs yield zero.
func ApplyDiscount(orderAmount decimal.Decimal, rate decimal.Decimal) decimal.Decimal {
	if orderAmount.LessThanOrEqual(decimal.Zero) || rate.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	if rate.GreaterThan(oneHundred) {
		rate = oneHundred
	}
	return orderAmount.Mul(rate).Div(oneHundred).Round(2)
}

// FinalAmount is never negative, even when discountAmount is inconsistent
// with orderAmount.
func FinalAmount(orderAmount decimal.Decimal, discountAmount decimal.Decimal) decimal.Decimal {
	final := orderAmount.Sub(discountAmount)
	if final.IsNegative() {
		return decimal.Zero
	}
	return final
}
