package store

import (
	"context"
	"database/sql"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/rsouza/parts-catalog/internal/models"
)

func CreateSupplier(ctx context.Context, db *sql.DB, in ContactInput) (*models.Supplier, error) {
	if err := validateContact(&in); err != nil {
		return nil, err
	}

	supplier := &models.Supplier{}

	query := `
		INSERT INTO suppliers (name, phone, email)
		VALUES (?, ?, ?)
		RETURNING id, name, phone, email`

	err := db.QueryRowContext(ctx, query, in.Name, in.Phone, in.Email).Scan(
		&supplier.ID,
		&supplier.Name,
		&supplier.Phone,
		&supplier.Email,
	)
	if err != nil {
		return nil, persistence("create supplier", err)
	}

	return supplier, nil
}

func GetSupplier(ctx context.Context, db *sql.DB, id int64) (*models.Supplier, error) {
	supplier := &models.Supplier{}

	query := `SELECT id, name, COALESCE(phone, ''), COALESCE(email, '') FROM suppliers WHERE id = ?`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&supplier.ID,
		&supplier.Name,
		&supplier.Phone,
		&supplier.Email,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &NotFoundError{Entity: "supplier", ID: id}
		}
		return nil, persistence("get supplier", err)
	}

	return supplier, nil
}

func UpdateSupplier(ctx context.Context, db *sql.DB, id int64, in ContactInput) (*models.Supplier, error) {
	if err := validateContact(&in); err != nil {
		return nil, err
	}

	result, err := db.ExecContext(ctx,
		"UPDATE suppliers SET name = ?, phone = ?, email = ? WHERE id = ?",
		in.Name, in.Phone, in.Email, id)
	if err != nil {
		return nil, persistence("update supplier", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, persistence("update supplier", err)
	}
	if rowsAffected == 0 {
		return nil, &NotFoundError{Entity: "supplier", ID: id}
	}

	return GetSupplier(ctx, db, id)
}

func DeleteSupplier(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, "DELETE FROM suppliers WHERE id = ?", id)
	if err != nil {
		return persistence("delete supplier", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return persistence("delete supplier", err)
	}
	if rowsAffected == 0 {
		return &NotFoundError{Entity: "supplier", ID: id}
	}

	return nil
}

func ListSuppliers(ctx context.Context, db *sql.DB, search string) ([]models.Supplier, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, COALESCE(phone, ''), COALESCE(email, '') FROM suppliers`)
	if err != nil {
		return nil, persistence("list suppliers", err)
	}
	defer rows.Close()

	var suppliers []models.Supplier
	for rows.Next() {
		var supplier models.Supplier
		err := rows.Scan(&supplier.ID, &supplier.Name, &supplier.Phone, &supplier.Email)
		if err != nil {
			return nil, persistence("scan supplier", err)
		}
		if matchesContact(search, supplier.Name, supplier.Phone, supplier.Email) {
			suppliers = append(suppliers, supplier)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, persistence("list suppliers", err)
	}

	c := collate.New(language.BrazilianPortuguese)
	sort.SliceStable(suppliers, func(i, j int) bool {
		switch c.CompareString(suppliers[i].Name, suppliers[j].Name) {
		case -1:
			return true
		case 1:
			return false
		}
		return suppliers[i].ID < suppliers[j].ID
	})

	return suppliers, nil
}
