package store

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/rsouza/parts-catalog/internal/models"
)

func CreateCustomer(ctx context.Context, db *sql.DB, in ContactInput) (*models.Customer, error) {
	if err := validateContact(&in); err != nil {
		return nil, err
	}

	customer := &models.Customer{}

	query := `
		INSERT INTO customers (name, phone, email)
		VALUES (?, ?, ?)
		RETURNING id, name, phone, email`

	err := db.QueryRowContext(ctx, query, in.Name, in.Phone, in.Email).Scan(
		&customer.ID,
		&customer.Name,
		&customer.Phone,
		&customer.Email,
	)
	if err != nil {
		return nil, persistence("create customer", err)
	}

	return customer, nil
}

func GetCustomer(ctx context.Context, db *sql.DB, id int64) (*models.Customer, error) {
	customer := &models.Customer{}

	query := `SELECT id, name, COALESCE(phone, ''), COALESCE(email, '') FROM customers WHERE id = ?`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&customer.ID,
		&customer.Name,
		&customer.Phone,
		&customer.Email,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &NotFoundError{Entity: "customer", ID: id}
		}
		return nil, persistence("get customer", err)
	}

	return customer, nil
}

func UpdateCustomer(ctx context.Context, db *sql.DB, id int64, in ContactInput) (*models.Customer, error) {
	if err := validateContact(&in); err != nil {
		return nil, err
	}

	result, err := db.ExecContext(ctx,
		"UPDATE customers SET name = ?, phone = ?, email = ? WHERE id = ?",
		in.Name, in.Phone, in.Email, id)
	if err != nil {
		return nil, persistence("update customer", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, persistence("update customer", err)
	}
	if rowsAffected == 0 {
		return nil, &NotFoundError{Entity: "customer", ID: id}
	}

	return GetCustomer(ctx, db, id)
}

// DeleteCustomer is a hard delete with no cascade: sales keep their
// customer_id and render without a customer name.
func DeleteCustomer(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, "DELETE FROM customers WHERE id = ?", id)
	if err != nil {
		return persistence("delete customer", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return persistence("delete customer", err)
	}
	if rowsAffected == 0 {
		return &NotFoundError{Entity: "customer", ID: id}
	}

	return nil
}

// ListCustomers returns all customers ordered by collated name. An optional
// search term filters on name, phone or email.
func ListCustomers(ctx context.Context, db *sql.DB, search string) ([]models.Customer, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, COALESCE(phone, ''), COALESCE(email, '') FROM customers`)
	if err != nil {
		return nil, persistence("list customers", err)
	}
	defer rows.Close()

	var customers []models.Customer
	for rows.Next() {
		var customer models.Customer
		err := rows.Scan(&customer.ID, &customer.Name, &customer.Phone, &customer.Email)
		if err != nil {
			return nil, persistence("scan customer", err)
		}
		if matchesContact(search, customer.Name, customer.Phone, customer.Email) {
			customers = append(customers, customer)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, persistence("list customers", err)
	}

	c := collate.New(language.BrazilianPortuguese)
	sort.SliceStable(customers, func(i, j int) bool {
		switch c.CompareString(customers[i].Name, customers[j].Name) {
		case -1:
			return true
		case 1:
			return false
		}
		return customers[i].ID < customers[j].ID
	})

	return customers, nil
}

func matchesContact(search string, fields ...string) bool {
	term := strings.ToLower(strings.TrimSpace(search))
	if term == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}
