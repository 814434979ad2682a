package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Sales analytics are a pure projection over the full sale log, recomputed
// on every read. There are no stored aggregates, so there is nothing to
// invalidate; two reads with no intervening writes always agree.

type DashboardSummary struct {
	MonthRevenue   decimal.Decimal `json:"month_revenue"`
	YearRevenue    decimal.Decimal `json:"year_revenue"`
	TodayRevenue   decimal.Decimal `json:"today_revenue"`
	MonthSaleCount int             `json:"month_sale_count"`
}

// TrendBucket is one calendar month of revenue.
type TrendBucket struct {
	Label   string          `json:"label"`
	Revenue decimal.Decimal `json:"revenue"`
}

type TopSeller struct {
	ProductID     *int64          `json:"product_id"`
	Name          string          `json:"name"`
	TotalQuantity int             `json:"total_qty"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
}

var monthAbbrev = [12]string{
	"Jan", "Fev", "Mar", "Abr", "Mai", "Jun",
	"Jul", "Ago", "Set", "Out", "Nov", "Dez",
}

// saleFact is one usable row of the sale log: the raw sale joined with the
// product name, with the timestamp already parsed. Rows whose timestamp is
// missing or unparsable never become facts and so are excluded from every
// aggregate.
type saleFact struct {
	saleID      int64
	productID   *int64
	quantity    int
	unitPrice   decimal.Decimal
	date        time.Time
	productName string
	hasName     bool
}

func (f *saleFact) amount() decimal.Decimal {
	return f.unitPrice.Mul(decimal.NewFromInt(int64(f.quantity)))
}

func loadSaleFacts(ctx context.Context, db *sql.DB) ([]saleFact, error) {
	query := `
		SELECT s.id, s.product_id, COALESCE(s.qty, 0), COALESCE(s.price, 0), s.sale_date, p.name
		FROM sales s
		LEFT JOIN products p ON p.id = s.product_id`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, persistence("load sale log", err)
	}
	defer rows.Close()

	var facts []saleFact
	for rows.Next() {
		var (
			fact        saleFact
			productID   sql.NullInt64
			saleDate    sql.NullString
			productName sql.NullString
		)

		err := rows.Scan(&fact.saleID, &productID, &fact.quantity,
			&fact.unitPrice, &saleDate, &productName)
		if err != nil {
			return nil, persistence("scan sale log", err)
		}

		if !saleDate.Valid {
			continue
		}
		date, err := time.Parse(time.RFC3339Nano, saleDate.String)
		if err != nil {
			continue
		}
		fact.date = date

		if productID.Valid {
			fact.productID = &productID.Int64
		}
		if productName.Valid {
			fact.productName = productName.String
			fact.hasName = true
		}

		facts = append(facts, fact)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence("load sale log", err)
	}

	return facts, nil
}

// Summary computes the dashboard header totals for the calendar day, month
// and year that contain now. MonthSaleCount counts sale records, not units.
func Summary(ctx context.Context, db *sql.DB, now time.Time) (*DashboardSummary, error) {
	facts, err := loadSaleFacts(ctx, db)
	if err != nil {
		return nil, err
	}

	summary := &DashboardSummary{
		MonthRevenue: decimal.Zero,
		YearRevenue:  decimal.Zero,
		TodayRevenue: decimal.Zero,
	}

	year, month, day := now.Date()
	for i := range facts {
		fact := &facts[i]
		y, m, d := fact.date.In(now.Location()).Date()
		amount := fact.amount()

		if y == year {
			summary.YearRevenue = summary.YearRevenue.Add(amount)
		}
		if y == year && m == month {
			summary.MonthRevenue = summary.MonthRevenue.Add(amount)
			summary.MonthSaleCount++
		}
		if y == year && m == month && d == day {
			summary.TodayRevenue = summary.TodayRevenue.Add(amount)
		}
	}

	return summary, nil
}

// SixMonthTrend returns six calendar-month buckets, oldest first, ending at
// the month containing now. Months without sales yield a zero bucket.
func SixMonthTrend(ctx context.Context, db *sql.DB, now time.Time) ([]TrendBucket, error) {
	facts, err := loadSaleFacts(ctx, db)
	if err != nil {
		return nil, err
	}

	monthly := make(map[string]decimal.Decimal)
	for i := range facts {
		fact := &facts[i]
		y, m, _ := fact.date.In(now.Location()).Date()
		key := fmt.Sprintf("%d-%d", y, int(m))
		monthly[key] = monthly[key].Add(fact.amount())
	}

	buckets := make([]TrendBucket, 0, 6)
	for i := 5; i >= 0; i-- {
		// Normalizing through time.Date keeps month arithmetic correct
		// across year boundaries.
		ref := time.Date(now.Year(), now.Month()-time.Month(i), 1, 0, 0, 0, 0, now.Location())
		y, m, _ := ref.Date()
		key := fmt.Sprintf("%d-%d", y, int(m))

		revenue := decimal.Zero
		if total, ok := monthly[key]; ok {
			revenue = total
		}

		buckets = append(buckets, TrendBucket{
			Label:   fmt.Sprintf("%s/%02d", monthAbbrev[int(m)-1], y%100),
			Revenue: revenue,
		})
	}

	return buckets, nil
}

// TopSellers ranks products by total units sold across the whole log.
// Sales that kept their product_id group under it even after the product was
// deleted (the name falls back to the removed-product placeholder); sales
// recorded with no product at all each form their own bucket.
func TopSellers(ctx context.Context, db *sql.DB, limit int) ([]TopSeller, error) {
	if limit <= 0 {
		limit = 10
	}

	facts, err := loadSaleFacts(ctx, db)
	if err != nil {
		return nil, err
	}

	groups := make(map[string]*TopSeller)
	for i := range facts {
		fact := &facts[i]

		var key string
		if fact.productID != nil {
			key = "product-" + strconv.FormatInt(*fact.productID, 10)
		} else {
			key = "no-id-" + strconv.FormatInt(fact.saleID, 10)
		}

		seller, ok := groups[key]
		if !ok {
			name := RemovedProductName
			if fact.hasName {
				name = fact.productName
			}
			seller = &TopSeller{
				ProductID:    fact.productID,
				Name:         name,
				TotalRevenue: decimal.Zero,
			}
			groups[key] = seller
		}

		seller.TotalQuantity += fact.quantity
		seller.TotalRevenue = seller.TotalRevenue.Add(fact.amount())
	}

	ranking := make([]TopSeller, 0, len(groups))
	for _, seller := range groups {
		ranking = append(ranking, *seller)
	}

	sort.SliceStable(ranking, func(i, j int) bool {
		if ranking[i].TotalQuantity != ranking[j].TotalQuantity {
			return ranking[i].TotalQuantity > ranking[j].TotalQuantity
		}
		return ranking[i].TotalRevenue.GreaterThan(ranking[j].TotalRevenue)
	})

	if len(ranking) > limit {
		ranking = ranking[:limit]
	}

	return ranking, nil
}
