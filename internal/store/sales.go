package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rsouza/parts-catalog/internal/database"
	"github.com/rsouza/parts-catalog/internal/models"
)

// RemovedProductName is shown for sales whose product was deleted after the
// sale was recorded.
const RemovedProductName = "Produto removido"

type SaleInput struct {
	ProductID  int64
	CustomerID *int64
	Quantity   int
	UnitPrice  decimal.Decimal
}

// RecordSale inserts the sale and decrements the product's stock as one
// atomic unit: either both effects commit or neither does. The quantity and
// unit price are frozen on the sale row; later product edits never touch
// them.
func RecordSale(ctx context.Context, db *sql.DB, in SaleInput) (*models.Sale, error) {
	if in.Quantity <= 0 {
		return nil, invalidf("qty", "must be greater than zero")
	}
	if !in.UnitPrice.IsPositive() {
		return nil, invalidf("price", "must be greater than zero")
	}

	sale := &models.Sale{
		ProductID:  &in.ProductID,
		CustomerID: in.CustomerID,
		Quantity:   in.Quantity,
		UnitPrice:  in.UnitPrice,
	}

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var stock int
		err := tx.QueryRowContext(ctx,
			"SELECT stock FROM products WHERE id = ?", in.ProductID).Scan(&stock)
		if err != nil {
			if err == sql.ErrNoRows {
				return &NotFoundError{Entity: "product", ID: in.ProductID}
			}
			return persistence("read stock", err)
		}

		if stock < in.Quantity {
			return &InsufficientStockError{
				ProductID: in.ProductID,
				Available: stock,
				Requested: in.Quantity,
			}
		}

		sale.SaleDate = time.Now().UTC()

		err = tx.QueryRowContext(ctx,
			`INSERT INTO sales (product_id, customer_id, qty, price, sale_date)
			 VALUES (?, ?, ?, ?, ?)
			 RETURNING id`,
			in.ProductID, in.CustomerID, in.Quantity, in.UnitPrice,
			sale.SaleDate.Format(time.RFC3339Nano)).Scan(&sale.ID)
		if err != nil {
			return persistence("insert sale", err)
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE products
			 SET stock = stock - ?
			 WHERE id = ?
			   AND stock >= ?`,
			in.Quantity, in.ProductID, in.Quantity)
		if err != nil {
			return persistence("decrement stock", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return persistence("decrement stock", err)
		}
		if rowsAffected == 0 {
			// Guarded decrement: never lets stock go negative even if the
			// earlier read raced another writer.
			return &InsufficientStockError{
				ProductID: in.ProductID,
				Available: stock,
				Requested: in.Quantity,
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return sale, nil
}

// RecordStockEntry increments the product's stock by quantityAdded and, when
// newPurchasePrice is non-nil, overwrites the purchase price in the same
// statement. Returns the updated product.
func RecordStockEntry(ctx context.Context, db *sql.DB, productID int64, quantityAdded int, newPurchasePrice *decimal.Decimal) (*models.Product, error) {
	if quantityAdded <= 0 {
		return nil, invalidf("qty", "must be greater than zero")
	}

	var price interface{}
	if newPurchasePrice != nil {
		price = *newPurchasePrice
	}

	var product *models.Product

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE products
			 SET stock = stock + ?,
			     purchase_price = COALESCE(?, purchase_price)
			 WHERE id = ?`,
			quantityAdded, price, productID)
		if err != nil {
			return persistence("stock entry", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return persistence("stock entry", err)
		}
		if rowsAffected == 0 {
			return &NotFoundError{Entity: "product", ID: productID}
		}

		product, err = GetProduct(ctx, tx, productID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return product, nil
}

// ListSales returns the most recent sales, newest first, with product and
// customer names resolved where the referents still exist. A deleted product
// renders as the removed-product placeholder; a deleted or absent customer
// renders with no name.
func ListSales(ctx context.Context, db *sql.DB, limit int) ([]models.Sale, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT s.id, s.product_id, s.customer_id, COALESCE(s.qty, 0), COALESCE(s.price, 0),
		       s.sale_date, p.name, c.name
		FROM sales s
		LEFT JOIN products p ON p.id = s.product_id
		LEFT JOIN customers c ON c.id = s.customer_id
		ORDER BY datetime(s.sale_date) DESC, s.id ASC
		LIMIT ?`

	rows, err := db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, persistence("list sales", err)
	}
	defer rows.Close()

	var sales []models.Sale
	for rows.Next() {
		var (
			sale         models.Sale
			productID    sql.NullInt64
			customerID   sql.NullInt64
			saleDate     sql.NullString
			productName  sql.NullString
			customerName sql.NullString
		)

		err := rows.Scan(&sale.ID, &productID, &customerID, &sale.Quantity,
			&sale.UnitPrice, &saleDate, &productName, &customerName)
		if err != nil {
			return nil, persistence("scan sale", err)
		}

		if productID.Valid {
			sale.ProductID = &productID.Int64
		}
		if customerID.Valid {
			sale.CustomerID = &customerID.Int64
		}
		if saleDate.Valid {
			if t, err := time.Parse(time.RFC3339Nano, saleDate.String); err == nil {
				sale.SaleDate = t
			}
		}

		sale.ProductName = RemovedProductName
		if productName.Valid {
			sale.ProductName = productName.String
		}
		if customerName.Valid {
			sale.CustomerName = customerName.String
		}

		sales = append(sales, sale)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence("list sales", err)
	}

	return sales, nil
}
