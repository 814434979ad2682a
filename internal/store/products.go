package store

import (
	"context"
	"database/sql"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/rsouza/parts-catalog/internal/database"
	"github.com/rsouza/parts-catalog/internal/models"
)

// querier is satisfied by both *sql.DB and *sql.Tx so reads can run inside or
// outside a transaction.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// ProductInput carries the editable fields of a product. The sku is never
// part of the input: it is assigned once at creation and immutable after.
type ProductInput struct {
	Name          string
	Description   string
	Manufacturer  string
	CarModel      string
	CarYear       string
	Condition     string
	PurchasePrice decimal.Decimal
	SalePrice     decimal.Decimal
	Stock         int
	LowThreshold  int
	Image         string
}

func validateProductInput(in *ProductInput) error {
	if in.Name == "" {
		return invalidf("name", "must not be empty")
	}
	if !in.SalePrice.IsPositive() {
		return invalidf("sale_price", "must be greater than zero")
	}
	if in.PurchasePrice.IsNegative() {
		return invalidf("purchase_price", "must not be negative")
	}
	if in.SalePrice.LessThan(in.PurchasePrice) {
		return invalidf("sale_price", "must not be lower than purchase price")
	}
	if in.Stock < 0 {
		return invalidf("stock", "must not be negative")
	}
	if in.LowThreshold < 0 {
		return invalidf("low_threshold", "must not be negative")
	}

	switch in.Condition {
	case "":
		in.Condition = models.ConditionNew
	case models.ConditionNew, models.ConditionUsed:
	default:
		return invalidf("condition", "must be %q or %q", models.ConditionNew, models.ConditionUsed)
	}

	return nil
}

// Only name is NOT NULL in the schema. Files restored from older backups
// leave the optional columns NULL, so reads coalesce them to their zero
// values instead of failing the scan.
const productColumns = `id, COALESCE(sku, ''), name, COALESCE(description, ''), COALESCE(manufacturer, ''),
	COALESCE(car_model, ''), COALESCE(car_year, ''), COALESCE(condition, 'new'),
	COALESCE(purchase_price, 0), COALESCE(sale_price, 0), COALESCE(stock, 0),
	COALESCE(low_threshold, 3), COALESCE(image, '')`

func scanProduct(row *sql.Row) (*models.Product, error) {
	product := &models.Product{}
	err := row.Scan(
		&product.ID,
		&product.SKU,
		&product.Name,
		&product.Description,
		&product.Manufacturer,
		&product.CarModel,
		&product.CarYear,
		&product.Condition,
		&product.PurchasePrice,
		&product.SalePrice,
		&product.Stock,
		&product.LowThreshold,
		&product.Image,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}

// CreateProduct validates the input and inserts a new product with the next
// free sku. The sku lookup and the insert share one transaction so two
// concurrent creates can never pick the same number.
func CreateProduct(ctx context.Context, db *sql.DB, in ProductInput) (*models.Product, error) {
	if err := validateProductInput(&in); err != nil {
		return nil, err
	}

	var product *models.Product

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		sku, err := nextSKU(ctx, tx)
		if err != nil {
			return err
		}

		query := `
			INSERT INTO products (sku, name, description, manufacturer, car_model, car_year,
				condition, purchase_price, sale_price, stock, low_threshold, image)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING ` + productColumns

		product, err = scanProduct(tx.QueryRowContext(ctx, query,
			sku, in.Name, in.Description, in.Manufacturer, in.CarModel, in.CarYear,
			in.Condition, in.PurchasePrice, in.SalePrice, in.Stock, in.LowThreshold, in.Image))
		if err != nil {
			return persistence("create product", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return product, nil
}

// nextSKU derives the next sequential sku from the current numeric maximum.
// Skus are monotonically increasing and never reused, even after deletes of
// the latest product are followed by new inserts within the same run.
func nextSKU(ctx context.Context, tx *sql.Tx) (string, error) {
	var last sql.NullInt64
	err := tx.QueryRowContext(ctx,
		"SELECT MAX(CAST(sku AS INTEGER)) FROM products").Scan(&last)
	if err != nil {
		return "", persistence("next sku", err)
	}

	return strconv.FormatInt(last.Int64+1, 10), nil
}

func GetProduct(ctx context.Context, db querier, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ?`

	product, err := scanProduct(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &NotFoundError{Entity: "product", ID: id}
		}
		return nil, persistence("get product", err)
	}

	return product, nil
}

// UpdateProduct applies the same validation as create. The sku column is
// deliberately absent from the UPDATE.
func UpdateProduct(ctx context.Context, db *sql.DB, id int64, in ProductInput) (*models.Product, error) {
	if err := validateProductInput(&in); err != nil {
		return nil, err
	}

	query := `
		UPDATE products
		SET name = ?, description = ?, manufacturer = ?, car_model = ?, car_year = ?,
			condition = ?, purchase_price = ?, sale_price = ?, stock = ?, low_threshold = ?, image = ?
		WHERE id = ?`

	result, err := db.ExecContext(ctx, query,
		in.Name, in.Description, in.Manufacturer, in.CarModel, in.CarYear,
		in.Condition, in.PurchasePrice, in.SalePrice, in.Stock, in.LowThreshold, in.Image, id)
	if err != nil {
		return nil, persistence("update product", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, persistence("update product", err)
	}
	if rowsAffected == 0 {
		return nil, &NotFoundError{Entity: "product", ID: id}
	}

	return GetProduct(ctx, db, id)
}

// DeleteProduct is a hard delete. Sales that reference the product keep
// their product_id and resolve to a "removed product" placeholder at read
// time. Deleting an id that does not exist fails with NotFoundError.
func DeleteProduct(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		return persistence("delete product", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return persistence("delete product", err)
	}
	if rowsAffected == 0 {
		return &NotFoundError{Entity: "product", ID: id}
	}

	return nil
}

// ListProducts returns the whole catalog ordered by name under Brazilian
// Portuguese collation, so accented names sort next to their base letter
// instead of after "z".
func ListProducts(ctx context.Context, db *sql.DB) ([]models.Product, error) {
	return queryProducts(ctx, db, `SELECT `+productColumns+` FROM products`)
}

// SearchProducts filters by name or sku prefix, backed by the two catalog
// indexes.
func SearchProducts(ctx context.Context, db *sql.DB, term string) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE name LIKE ? OR sku LIKE ?`
	pattern := term + "%"
	return queryProducts(ctx, db, query, pattern, pattern)
}

// ListLowStock returns products at or below their advisory restock level.
func ListLowStock(ctx context.Context, db *sql.DB) ([]models.Product, error) {
	return queryProducts(ctx, db, `SELECT `+productColumns+` FROM products WHERE stock <= low_threshold`)
}

func queryProducts(ctx context.Context, db *sql.DB, query string, args ...interface{}) ([]models.Product, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistence("list products", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var product models.Product
		err := rows.Scan(
			&product.ID,
			&product.SKU,
			&product.Name,
			&product.Description,
			&product.Manufacturer,
			&product.CarModel,
			&product.CarYear,
			&product.Condition,
			&product.PurchasePrice,
			&product.SalePrice,
			&product.Stock,
			&product.LowThreshold,
			&product.Image,
		)
		if err != nil {
			return nil, persistence("scan product", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence("list products", err)
	}

	sortProductsByName(products)
	return products, nil
}

func sortProductsByName(products []models.Product) {
	c := collate.New(language.BrazilianPortuguese)
	sort.SliceStable(products, func(i, j int) bool {
		switch c.CompareString(products[i].Name, products[j].Name) {
		case -1:
			return true
		case 1:
			return false
		}
		return products[i].ID < products[j].ID
	})
}
