package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rsouza/parts-catalog/internal/backup"
	"github.com/rsouza/parts-catalog/internal/config"
	"github.com/rsouza/parts-catalog/internal/database"
	"github.com/rsouza/parts-catalog/internal/store"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("open catalog store")
	}
	defer db.Close()

	// The migrator gates startup: nothing touches the store until the
	// schema is current, and a partial migration aborts the process.
	if err := database.Migrate(context.Background(), db); err != nil {
		logger.Fatal().Err(err).Msg("migrate catalog store")
	}

	logger.Info().Str("path", cfg.Database.Path).Msg("catalog store ready")

	mux := http.NewServeMux()

	mux.HandleFunc("/products", handleProducts(db))
	mux.HandleFunc("/products/low-stock", handleLowStock(db))
	mux.HandleFunc("/products/", handleProductByID(db))
	mux.HandleFunc("/customers", handleCustomers(db))
	mux.HandleFunc("/customers/", handleCustomerByID(db))
	mux.HandleFunc("/suppliers", handleSuppliers(db))
	mux.HandleFunc("/suppliers/", handleSupplierByID(db))
	mux.HandleFunc("/sales", handleSales(db))
	mux.HandleFunc("/dashboard", handleDashboard(db))
	mux.HandleFunc("/dashboard/trend", handleTrend(db))
	mux.HandleFunc("/dashboard/top-sellers", handleTopSellers(db))
	mux.HandleFunc("/backup", handleBackup(db))

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      requestLogger(logger, mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info().Str("port", cfg.Server.Port).Msg("server starting")
	if err := server.ListenAndServe(); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}

func requestLogger(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

// productRequest carries raw user-entered strings. Money and count fields go
// through the ledger's input parsers, never through per-handler parsing.
type productRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Manufacturer  string `json:"manufacturer"`
	CarModel      string `json:"car_model"`
	CarYear       string `json:"car_year"`
	Condition     string `json:"condition"`
	PurchasePrice string `json:"purchase_price"`
	SalePrice     string `json:"sale_price"`
	Stock         string `json:"stock"`
	LowThreshold  string `json:"low_threshold"`
	Image         string `json:"image"`
}

func (req *productRequest) toInput() store.ProductInput {
	low := store.ParseQuantity(req.LowThreshold)
	if req.LowThreshold == "" {
		low = 3
	}
	return store.ProductInput{
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Manufacturer:  req.Manufacturer,
		CarModel:      req.CarModel,
		CarYear:       req.CarYear,
		Condition:     req.Condition,
		PurchasePrice: store.ParseCurrency(req.PurchasePrice),
		SalePrice:     store.ParseCurrency(req.SalePrice),
		Stock:         store.ParseQuantity(req.Stock),
		LowThreshold:  low,
		Image:         req.Image,
	}
}

func handleProducts(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		switch r.Method {
		case http.MethodPost:
			var req productRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			product, err := store.CreateProduct(ctx, db, req.toInput())
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusCreated, product)

		case http.MethodGet:
			if r.URL.Query().Get("low_stock") == "1" {
				products, err := store.ListLowStock(ctx, db)
				if err != nil {
					respondStoreError(w, err)
					return
				}
				respondJSON(w, http.StatusOK, products)
				return
			}

			var err error
			var products interface{}
			if term := r.URL.Query().Get("q"); term != "" {
				products, err = store.SearchProducts(ctx, db, term)
			} else {
				products, err = store.ListProducts(ctx, db)
			}
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, products)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleLowStock(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		products, err := store.ListLowStock(r.Context(), db)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, products)
	}
}

func handleProductByID(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		rest := strings.TrimPrefix(r.URL.Path, "/products/")
		if idStr, ok := strings.CutSuffix(rest, "/stock-entries"); ok {
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid product ID")
				return
			}
			handleStockEntry(ctx, w, r, db, id)
			return
		}

		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid product ID")
			return
		}

		switch r.Method {
		case http.MethodGet:
			product, err := store.GetProduct(ctx, db, id)
			if err != nil {
				respondStoreError(w, err)
				return
			}
			respondJSON(w, http.StatusOK, product)

		case http.MethodPut:
			var req productRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			product, err := store.UpdateProduct(ctx, db, id, req.toInput())
			if err != nil {
				respondStoreError(w, err)
				return
			}
			respondJSON(w, http.StatusOK, product)

		case http.MethodDelete:
			if err := store.DeleteProduct(ctx, db, id); err != nil {
				respondStoreError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleStockEntry(ctx context.Context, w http.ResponseWriter, r *http.Request, db *sql.DB, productID int64) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req struct {
		Quantity      string `json:"qty"`
		PurchasePrice string `json:"purchase_price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var newPrice *decimal.Decimal
	if req.PurchasePrice != "" {
		price := store.ParseCurrency(req.PurchasePrice)
		newPrice = &price
	}

	product, err := store.RecordStockEntry(ctx, db, productID, store.ParseQuantity(req.Quantity), newPrice)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

func handleContacts(db *sql.DB, create func(ctx context.Context, db *sql.DB, in store.ContactInput) (interface{}, error),
	list func(ctx context.Context, db *sql.DB, search string) (interface{}, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		switch r.Method {
		case http.MethodPost:
			var req store.ContactInput
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			contact, err := create(ctx, db, req)
			if err != nil {
				respondStoreError(w, err)
				return
			}
			respondJSON(w, http.StatusCreated, contact)

		case http.MethodGet:
			contacts, err := list(ctx, db, r.URL.Query().Get("q"))
			if err != nil {
				respondStoreError(w, err)
				return
			}
			respondJSON(w, http.StatusOK, contacts)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleCustomers(db *sql.DB) http.HandlerFunc {
	return handleContacts(db,
		func(ctx context.Context, db *sql.DB, in store.ContactInput) (interface{}, error) {
			return store.CreateCustomer(ctx, db, in)
		},
		func(ctx context.Context, db *sql.DB, search string) (interface{}, error) {
			return store.ListCustomers(ctx, db, search)
		})
}

func handleSuppliers(db *sql.DB) http.HandlerFunc {
	return handleContacts(db,
		func(ctx context.Context, db *sql.DB, in store.ContactInput) (interface{}, error) {
			return store.CreateSupplier(ctx, db, in)
		},
		func(ctx context.Context, db *sql.DB, search string) (interface{}, error) {
			return store.ListSuppliers(ctx, db, search)
		})
}

func handleCustomerByID(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/customers/"), 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid customer ID")
			return
		}

		switch r.Method {
		case http.MethodGet:
			customer, err := store.GetCustomer(ctx, db, id)
			if err != nil {
				respondStoreError(w, err)
				return
			}
			respondJSON(w, http.StatusOK, customer)

		case http.MethodPut:
			var req store.ContactInput
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			customer, err := store.UpdateCustomer(ctx, db, id, req)
			if err != nil {
				respondStoreError(w, err)
				return
			}
			respondJSON(w, http.StatusOK, customer)

		case http.MethodDelete:
			if err := store.DeleteCustomer(ctx, db, id); err != nil {
				respondStoreError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleSupplierByID(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/suppliers/"), 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid supplier ID")
			return
		}

		switch r.Method {
		case http.MethodGet:
			supplier, err := store.GetSupplier(ctx, db, id)
			if err != nil {
				respondStoreError(w, err)
				return
			}
			respondJSON(w, http.StatusOK, supplier)

		case http.MethodPut:
			var req store.ContactInput
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			supplier, err := store.UpdateSupplier(ctx, db, id, req)
			if err != nil {
				respondStoreError(w, err)
				return
			}
			respondJSON(w, http.StatusOK, supplier)

		case http.MethodDelete:
			if err := store.DeleteSupplier(ctx, db, id); err != nil {
				respondStoreError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleSales(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		switch r.Method {
		case http.MethodPost:
			var req struct {
				ProductID  int64  `json:"product_id"`
				CustomerID *int64 `json:"customer_id"`
				Quantity   string `json:"qty"`
				UnitPrice  string `json:"price"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			sale, err := store.RecordSale(ctx, db, store.SaleInput{
				ProductID:  req.ProductID,
				CustomerID: req.CustomerID,
				Quantity:   store.ParseQuantity(req.Quantity),
				UnitPrice:  store.ParseCurrency(req.UnitPrice),
			})
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusCreated, sale)

		case http.MethodGet:
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			sales, err := store.ListSales(ctx, db, limit)
			if err != nil {
				respondStoreError(w, err)
				return
			}
			respondJSON(w, http.StatusOK, sales)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleDashboard(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := store.Summary(r.Context(), db, time.Now())
		if err != nil {
			respondStoreError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, summary)
	}
}

func handleTrend(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		trend, err := store.SixMonthTrend(r.Context(), db, time.Now())
		if err != nil {
			respondStoreError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, trend)
	}
}

func handleTopSellers(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		sellers, err := store.TopSellers(r.Context(), db, limit)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, sellers)
	}
}

func handleBackup(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		var req struct {
			Destination string `json:"destination"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Destination == "" {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if err := backup.Snapshot(r.Context(), db, req.Destination); err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}

		respondJSON(w, http.StatusOK, map[string]string{"destination": req.Destination})
	}
}

func respondStoreError(w http.ResponseWriter, err error) {
	var (
		validationErr *store.ValidationError
		notFoundErr   *store.NotFoundError
		stockErr      *store.InsufficientStockError
	)

	switch {
	case errors.As(err, &validationErr):
		respondJSON(w, http.StatusBadRequest, map[string]string{
			"error": validationErr.Message,
			"field": validationErr.Field,
		})
	case errors.As(err, &notFoundErr):
		respondError(w, http.StatusNotFound, notFoundErr.Error())
	case errors.As(err, &stockErr):
		respondJSON(w, http.StatusConflict, map[string]interface{}{
			"error":     "insufficient stock",
			"available": stockErr.Available,
			"requested": stockErr.Requested,
		})
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
