package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/goormlabs/orders_backend/config"
	"github.com/goormlabs/orders_backend/models"
	"github.com/goormlabs/orders_backend/utils"
)

func main() {
	year := flag.Int("year", 0, "Optional: year to rebuild (defaults to the previous month's year)")
	month := flag.Int("month", 0, "Optional: month 1-12 to rebuild (defaults to the previous month)")
	gradesFor := flag.Int("grades-for", 0, "Optional: also rebuild discount grade history for this year (0 = skip)")
	flag.Parse()

	ctx := context.Background()
	// Explicit DB connect (config no longer connects DB in init()).
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	// Ensure schema is up-to-date (creates order_summary_monthlies if missing).
	utils.ErrorPanic(models.MigrateTable())

	ctx = utils.SetUserNameInContext(ctx, "BackfillMonthlySummary")

	if *year == 0 || *month == 0 {
		start, _ := utils.GetPreviousMonthRange()
		if *year == 0 {
			*year = start.Year()
		}
		if *month == 0 {
			*month = int(start.Month())
		}
	}
	if *month < 1 || *month > 12 {
		fmt.Fprintf(os.Stderr, "invalid month: %d\n", *month)
		os.Exit(1)
	}

	fmt.Printf("Rebuilding order_summary_monthlies year=%d month=%d\n", *year, *month)
	rows, err := models.RebuildMonthlySummary(ctx, *year, time.Month(*month))
	if err != nil {
		fmt.Fprintf(os.Stderr, "monthly summary rebuild failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Upserted %d company rows\n", rows)

	if *gradesFor != 0 {
		fmt.Printf("Rebuilding company_discount_histories year=%d\n", *gradesFor)
		companies, err := models.RebuildCompanyDiscountHistory(ctx, *gradesFor)
		if err != nil {
			fmt.Fprintf(os.Stderr, "discount history rebuild failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Recorded grades for %d companies\n", companies)
	}

	fmt.Println("Backfill complete")
}
