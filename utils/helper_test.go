package utils_test

import (
	"testing"
	"time"

	"github.com/goormlabs/orders_backend/utils"
)

func TestEndOfNextMonth(t *testing.T) {
	cases := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			"mid january",
			time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC),
			time.Date(2025, 2, 28, 23, 59, 59, 0, time.UTC),
		},
		{
			"leap year february target",
			time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC),
		},
		{
			"december rolls into next year",
			time.Date(2025, 12, 5, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC),
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := utils.EndOfNextMonth(c.in); !got.Equal(c.want) {
				t.Fatalf("EndOfNextMonth(%s) = %s; want %s", c.in, got, c.want)
			}
		})
	}
}

func TestGetMonthRange(t *testing.T) {
	start, end := utils.GetMonthRange(2025, time.February)
	if !start.Equal(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start: %s", start)
	}
	if !end.Equal(time.Date(2025, 2, 28, 23, 59, 59, 0, time.UTC)) {
		t.Fatalf("unexpected end: %s", end)
	}
}

func TestNilIfEmpty(t *testing.T) {
	if utils.NilIfEmpty("") != nil {
		t.Fatal("expected nil for empty string")
	}
	if got := utils.NilIfEmpty("batch-1"); got == nil || *got != "batch-1" {
		t.Fatalf("expected pointer to value, got %v", got)
	}
	if utils.NilIfEmpty(0) != nil {
		t.Fatal("expected nil for zero int")
	}
}

func TestParseDecimal(t *testing.T) {
	d, err := utils.ParseDecimal(" 123.45 ")
	if err != nil {
		t.Fatalf("ParseDecimal: %v", err)
	}
	if d.String() != "123.45" {
		t.Fatalf("got %s", d.String())
	}
	if _, err := utils.ParseDecimal(""); err == nil {
		t.Fatal("expected error for empty string")
	}
	if _, err := utils.ParseDecimal("abc"); err == nil {
		t.Fatal("expected error for non-numeric string")
	}
}
