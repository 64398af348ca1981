package models_test

import (
	"testing"

	"github.com/goormlabs/orders_backend/models"
	"github.com/shopspring/decimal"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}

func TestEvaluateGradeThresholdsAreInclusive(t *testing.T) {
	cases := []struct {
		amount string
		want   models.Grade
	}{
		{"-1", models.GradeNone},
		{"0", models.GradeNone},
		{"0.01", models.GradeBasic},
		{"9999999.99", models.GradeBasic},
		{"10000000", models.GradeBronze},
		{"29999999.99", models.GradeBronze},
		{"30000000", models.GradeSilver},
		{"79999999.99", models.GradeSilver},
		{"80000000", models.GradeGold},
		{"149999999.99", models.GradeGold},
		{"150000000", models.GradePremium},
		{"999999999", models.GradePremium},
	}
	for _, c := range cases {
		if got := models.EvaluateGrade(dec(t, c.amount)); got != c.want {
			t.Fatalf("EvaluateGrade(%s) = %s; want %s", c.amount, got, c.want)
		}
	}
}

func TestRecommendedRatePerGrade(t *testing.T) {
	cases := []struct {
		grade models.Grade
		want  string
	}{
		{models.GradePremium, "6"},
		{models.GradeGold, "5"},
		{models.GradeSilver, "3"},
		{models.GradeBronze, "2"},
		{models.GradeBasic, "1"},
		{models.GradeNone, "0"},
	}
	for _, c := range cases {
		if got := c.grade.RecommendedRate(); !got.Equal(dec(t, c.want)) {
			t.Fatalf("RecommendedRate(%s) = %s; want %s", c.grade, got.String(), c.want)
		}
	}
}

func TestApplyDiscount(t *testing.T) {
	cases := []struct {
		name   string
		amount string
		rate   string
		want   string
	}{
		{"five percent of 100k", "100000", "5", "5000.00"},
		{"rounds half up", "100.10", "5", "5.01"},
		{"rounds down below half", "1234.56", "2.5", "30.86"},
		{"rate above 100 clamps to full amount", "100000", "150", "100000.00"},
		{"zero amount", "0", "5", "0"},
		{"negative amount", "-10", "5", "0"},
		{"zero rate", "100000", "0", "0"},
		{"negative rate", "100000", "-3", "0"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := models.ApplyDiscount(dec(t, c.amount), dec(t, c.rate))
			if !got.Equal(dec(t, c.want)) {
				t.Fatalf("ApplyDiscount(%s, %s) = %s; want %s", c.amount, c.rate, got.String(), c.want)
			}
		})
	}
}

func TestFinalAmountNeverNegative(t *testing.T) {
	if got := models.FinalAmount(dec(t, "100000"), dec(t, "5000")); !got.Equal(dec(t, "95000")) {
		t.Fatalf("FinalAmount(100000, 5000) = %s; want 95000", got.String())
	}
	if got := models.FinalAmount(dec(t, "100"), dec(t, "250")); !got.Equal(decimal.Zero) {
		t.Fatalf("FinalAmount(100, 250) = %s; want 0", got.String())
	}
	if got := models.FinalAmount(dec(t, "100"), dec(t, "100")); !got.Equal(decimal.Zero) {
		t.Fatalf("FinalAmount(100, 100) = %s; want 0", got.String())
	}
}

func TestGradeRatePipeline(t *testing.T) {
	// A company that bought 85M last year is GOLD and gets 5% off a 100k order.
	grade := models.EvaluateGrade(dec(t, "85000000"))
	if grade != models.GradeGold {
		t.Fatalf("expected GOLD, got %s", grade)
	}
	discount := models.ApplyDiscount(dec(t, "100000"), grade.RecommendedRate())
	if !discount.Equal(dec(t, "5000.00")) {
		t.Fatalf("expected discount 5000.00, got %s", discount.String())
	}
	final := models.FinalAmount(dec(t, "100000"), discount)
	if !final.Equal(dec(t, "95000.00")) {
		t.Fatalf("expected final 95000.00, got %s", final.String())
	}
}
