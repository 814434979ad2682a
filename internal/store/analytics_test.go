package store

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var analyticsNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func TestAnalyticsEmptyStore(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	summary, err := Summary(ctx, db, analyticsNow)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if !summary.MonthRevenue.IsZero() || !summary.YearRevenue.IsZero() || !summary.TodayRevenue.IsZero() {
		t.Errorf("Expected zero revenue on empty store, got %+v", summary)
	}
	if summary.MonthSaleCount != 0 {
		t.Errorf("Expected zero sale count, got %d", summary.MonthSaleCount)
	}

	sellers, err := TopSellers(ctx, db, 0)
	if err != nil {
		t.Fatalf("TopSellers: %v", err)
	}
	if len(sellers) != 0 {
		t.Errorf("Expected empty ranking, got %v", sellers)
	}

	trend, err := SixMonthTrend(ctx, db, analyticsNow)
	if err != nil {
		t.Fatalf("SixMonthTrend: %v", err)
	}
	if len(trend) != 6 {
		t.Fatalf("Expected 6 buckets, got %d", len(trend))
	}
	for _, bucket := range trend {
		if !bucket.Revenue.IsZero() {
			t.Errorf("Expected zero bucket %s, got %s", bucket.Label, bucket.Revenue)
		}
	}
}

func TestSummaryBucketsByCalendar(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	product := createTestProduct(t, db, "Amortecedor", "100.00", 100)

	// today: 2 * 50 = 100
	insertRawSale(t, db, product.ID, 2, "50.0", "2026-03-15T08:30:00Z")
	// same month, other day: 1 * 80 = 80
	insertRawSale(t, db, product.ID, 1, "80.0", "2026-03-02T10:00:00Z")
	// same year, other month: 3 * 10 = 30
	insertRawSale(t, db, product.ID, 3, "10.0", "2026-01-20T10:00:00Z")
	// previous year: must only count toward nothing
	insertRawSale(t, db, product.ID, 5, "100.0", "2025-12-31T10:00:00Z")
	// unparsable and missing timestamps: excluded everywhere
	insertRawSale(t, db, product.ID, 9, "999.0", "not-a-date")
	insertRawSale(t, db, product.ID, 9, "999.0", nil)

	summary, err := Summary(ctx, db, analyticsNow)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}

	if !summary.TodayRevenue.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected today revenue 100, got %s", summary.TodayRevenue)
	}
	if !summary.MonthRevenue.Equal(decimal.NewFromInt(180)) {
		t.Errorf("Expected month revenue 180, got %s", summary.MonthRevenue)
	}
	if summary.MonthSaleCount != 2 {
		t.Errorf("Expected 2 sales in month, got %d", summary.MonthSaleCount)
	}
	if !summary.YearRevenue.Equal(decimal.NewFromInt(210)) {
		t.Errorf("Expected year revenue 210, got %s", summary.YearRevenue)
	}
}

func TestSixMonthTrendCrossesYearBoundary(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	product := createTestProduct(t, db, "Vela", "10.00", 100)

	// Oldest bucket for now=2026-03 is 2025-10.
	insertRawSale(t, db, product.ID, 1, "40.0", "2025-10-05T10:00:00Z")
	insertRawSale(t, db, product.ID, 2, "30.0", "2025-12-24T10:00:00Z")
	insertRawSale(t, db, product.ID, 1, "25.0", "2026-03-01T10:00:00Z")
	// Outside the window.
	insertRawSale(t, db, product.ID, 1, "500.0", "2025-09-30T10:00:00Z")

	trend, err := SixMonthTrend(ctx, db, analyticsNow)
	if err != nil {
		t.Fatalf("SixMonthTrend: %v", err)
	}

	labels := make([]string, len(trend))
	for i, bucket := range trend {
		labels[i] = bucket.Label
	}
	wantLabels := []string{"Out/25", "Nov/25", "Dez/25", "Jan/26", "Fev/26", "Mar/26"}
	if !reflect.DeepEqual(labels, wantLabels) {
		t.Fatalf("Expected labels %v, got %v", wantLabels, labels)
	}

	wantRevenue := []int64{40, 0, 60, 0, 0, 25}
	for i, want := range wantRevenue {
		if !trend[i].Revenue.Equal(decimal.NewFromInt(want)) {
			t.Errorf("Bucket %s: expected revenue %d, got %s", trend[i].Label, want, trend[i].Revenue)
		}
	}
}

func TestTopSellersRanking(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	winner := createTestProduct(t, db, "Pastilha de freio", "90.00", 100)
	runnerUp := createTestProduct(t, db, "Disco de freio", "150.00", 100)

	// Same product, two sales: quantities merge into one bucket.
	insertRawSale(t, db, winner.ID, 4, "90.0", "2026-03-01T10:00:00Z")
	insertRawSale(t, db, winner.ID, 6, "90.0", "2026-03-02T10:00:00Z")
	insertRawSale(t, db, runnerUp.ID, 5, "150.0", "2026-03-03T10:00:00Z")

	sellers, err := TopSellers(ctx, db, 10)
	if err != nil {
		t.Fatalf("TopSellers: %v", err)
	}
	if len(sellers) != 2 {
		t.Fatalf("Expected 2 sellers, got %d", len(sellers))
	}

	if sellers[0].Name != "Pastilha de freio" || sellers[0].TotalQuantity != 10 {
		t.Errorf("Expected winner with 10 units, got %s with %d", sellers[0].Name, sellers[0].TotalQuantity)
	}
	if !sellers[0].TotalRevenue.Equal(decimal.NewFromInt(900)) {
		t.Errorf("Expected winner revenue 900, got %s", sellers[0].TotalRevenue)
	}
	if sellers[1].Name != "Disco de freio" || sellers[1].TotalQuantity != 5 {
		t.Errorf("Expected runner-up with 5 units, got %s with %d", sellers[1].Name, sellers[1].TotalQuantity)
	}
}

func TestTopSellersDeletedProductKeepsBucket(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	product := createTestProduct(t, db, "Radiador", "300.00", 100)
	insertRawSale(t, db, product.ID, 3, "300.0", "2026-03-01T10:00:00Z")
	insertRawSale(t, db, product.ID, 2, "300.0", "2026-03-02T10:00:00Z")

	if err := DeleteProduct(ctx, db, product.ID); err != nil {
		t.Fatalf("Delete product: %v", err)
	}

	sellers, err := TopSellers(ctx, db, 10)
	if err != nil {
		t.Fatalf("TopSellers after delete: %v", err)
	}
	if len(sellers) != 1 {
		t.Fatalf("Dangling sales must share one bucket per product, got %d buckets", len(sellers))
	}
	if sellers[0].Name != RemovedProductName {
		t.Errorf("Expected placeholder name, got %q", sellers[0].Name)
	}
	if sellers[0].TotalQuantity != 5 {
		t.Errorf("Expected 5 units, got %d", sellers[0].TotalQuantity)
	}
}

func TestTopSellersOrphanSalesStaySeparate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	// No product at all: each sale is its own bucket.
	insertRawSale(t, db, nil, 7, "10.0", "2026-03-01T10:00:00Z")
	insertRawSale(t, db, nil, 2, "10.0", "2026-03-02T10:00:00Z")

	sellers, err := TopSellers(ctx, db, 10)
	if err != nil {
		t.Fatalf("TopSellers: %v", err)
	}
	if len(sellers) != 2 {
		t.Fatalf("Expected one bucket per orphan sale, got %d", len(sellers))
	}
	if sellers[0].TotalQuantity != 7 || sellers[1].TotalQuantity != 2 {
		t.Errorf("Expected quantities 7 and 2, got %d and %d",
			sellers[0].TotalQuantity, sellers[1].TotalQuantity)
	}
	for _, seller := range sellers {
		if seller.Name != RemovedProductName {
			t.Errorf("Expected placeholder name for orphan sale, got %q", seller.Name)
		}
	}
}

func TestTopSellersLimit(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		product := createTestProduct(t, db, "Produto", "10.00", 100)
		insertRawSale(t, db, product.ID, i+1, "10.0", "2026-03-01T10:00:00Z")
	}

	sellers, err := TopSellers(ctx, db, 2)
	if err != nil {
		t.Fatalf("TopSellers: %v", err)
	}
	if len(sellers) != 2 {
		t.Fatalf("Expected limit of 2, got %d", len(sellers))
	}
	if sellers[0].TotalQuantity != 4 || sellers[1].TotalQuantity != 3 {
		t.Errorf("Expected top quantities 4 and 3, got %d and %d",
			sellers[0].TotalQuantity, sellers[1].TotalQuantity)
	}
}

func TestAnalyticsReadsAreIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	product := createTestProduct(t, db, "Vela", "20.00", 100)
	insertRawSale(t, db, product.ID, 2, "20.0", "2026-03-10T10:00:00Z")
	insertRawSale(t, db, product.ID, 1, "20.0", "2026-02-10T10:00:00Z")

	first, err := Summary(ctx, db, analyticsNow)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	second, err := Summary(ctx, db, analyticsNow)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical summaries, got %+v then %+v", first, second)
	}

	firstTrend, err := SixMonthTrend(ctx, db, analyticsNow)
	if err != nil {
		t.Fatalf("SixMonthTrend: %v", err)
	}
	secondTrend, err := SixMonthTrend(ctx, db, analyticsNow)
	if err != nil {
		t.Fatalf("SixMonthTrend: %v", err)
	}
	if !reflect.DeepEqual(firstTrend, secondTrend) {
		t.Errorf("Expected identical trends")
	}
}

func TestAnalyticsTolerateLegacyNullAmounts(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.Exec(`
		INSERT INTO sales (product_id, customer_id, qty, price, sale_date)
		VALUES (NULL, NULL, NULL, NULL, '2026-03-10T10:00:00Z')`)
	if err != nil {
		t.Fatalf("Insert legacy sale: %v", err)
	}

	summary, err := Summary(ctx, db, analyticsNow)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if !summary.MonthRevenue.IsZero() {
		t.Errorf("Expected zero month revenue, got %s", summary.MonthRevenue)
	}
	if summary.MonthSaleCount != 1 {
		t.Errorf("Expected the legacy sale counted, got %d", summary.MonthSaleCount)
	}

	sellers, err := TopSellers(ctx, db, 0)
	if err != nil {
		t.Fatalf("TopSellers: %v", err)
	}
	if len(sellers) != 1 || sellers[0].TotalQuantity != 0 {
		t.Fatalf("Expected one zero-quantity bucket, got %v", sellers)
	}
	if sellers[0].Name != RemovedProductName {
		t.Errorf("Expected placeholder name, got %q", sellers[0].Name)
	}
}
