// Package main provides a CLI tool for seeding the database with initial data.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"tally/internal/core/id"
	"tally/internal/core/security"
	"tally/internal/infrastructure/storage/postgres"
	"tally/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	if err := seedRoles(ctx, pool, log); err != nil {
		log.Fatalw("failed to seed roles", "error", err)
	}

	if err := seedAdminUser(ctx, pool, log); err != nil {
		log.Fatalw("failed to seed admin user", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoData(ctx, pool, log); err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

func seedRoles(ctx context.Context, pool *postgres.Pool, log *logger.Logger) error {
	roles := []struct {
		code string
		name string
		desc string
	}{
		{security.RoleAdmin, "Administrator", "Full access, including hard deletes and deleted-row visibility"},
		{security.RoleAccountant, "Accountant", "Catalogs, documents, stock and audit access"},
		{security.RoleManager, "Manager", "Catalogs and documents, no audit access"},
		{security.RoleViewer, "Viewer", "Read-only access"},
	}

	for _, r := range roles {
		_, err := pool.Exec(ctx, `
			INSERT INTO roles (id, code, name, description, is_system, created_at, updated_at)
			VALUES ($1, $2, $3, $4, true, now(), now())
			ON CONFLICT (code) DO NOTHING
		`, id.New(), r.code, r.name, r.desc)
		if err != nil {
			return fmt.Errorf("insert role %s: %w", r.code, err)
		}
	}

	log.Infow("roles seeded", "count", len(roles))
	return nil
}

func seedAdminUser(ctx context.Context, pool *postgres.Pool, log *logger.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	if adminEmail == "" {
		adminEmail = "admin@tally.local"
	}

	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "Admin123!"
	}

	// Check if admin already exists
	var existingID id.ID
	err := pool.QueryRow(ctx,
		`SELECT id FROM users WHERE email = $1 AND deleted_at IS NULL`,
		adminEmail,
	).Scan(&existingID)
	if err == nil {
		log.Infow("admin user already exists", "email", adminEmail, "user_id", existingID)
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check admin exists: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	userID := id.New()
	now := time.Now()

	_, err = pool.Exec(ctx, `
		INSERT INTO users (
			id, email, password_hash, first_name, last_name,
			is_active, is_admin, created_at, updated_at, version
		)
		VALUES ($1, $2, $3, 'System', 'Admin', true, true, $4, $4, 1)
	`, userID, adminEmail, string(passwordHash), now)
	if err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}

	var adminRoleID id.ID
	err = pool.QueryRow(ctx,
		`SELECT id FROM roles WHERE code = $1`, security.RoleAdmin,
	).Scan(&adminRoleID)
	if err != nil {
		log.Warnw("admin role not found, skipping role assignment", "error", err)
	} else {
		_, err = pool.Exec(ctx, `
			INSERT INTO user_roles (user_id, role_id, created_at)
			VALUES ($1, $2, now())
			ON CONFLICT (user_id, role_id) DO NOTHING
		`, userID, adminRoleID)
		if err != nil {
			log.Warnw("failed to assign admin role", "error", err)
		}
	}

	log.Infow("admin user created", "email", adminEmail, "user_id", userID)
	return nil
}

func seedDemoData(ctx context.Context, pool *postgres.Pool, log *logger.Logger) error {
	log.Info("seeding demo data...")

	// 1. Currencies. Exactly one base currency.
	currencies := []struct {
		name          string
		isoCode       string
		symbol        string
		decimalPlaces int
		isBase        bool
	}{
		{"Euro", "EUR", "€", 2, true},
		{"US Dollar", "USD", "$", 2, false},
		{"British Pound", "GBP", "£", 2, false},
	}

	currencyIDs := make(map[string]id.ID)
	for _, c := range currencies {
		currID := id.New()
		tag, err := pool.Exec(ctx, `
			INSERT INTO cat_currencies (
				id, code, name, iso_code, symbol, decimal_places, is_base,
				version, deletion_mark, attributes, created_at, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 1, false, '{}', now(), now())
			ON CONFLICT (code) WHERE NOT deletion_mark DO NOTHING
		`, currID, c.isoCode, c.name, c.isoCode, c.symbol, c.decimalPlaces, c.isBase)
		if err != nil {
			log.Warnw("failed to seed currency", "name", c.name, "error", err)
			continue
		}
		if tag.RowsAffected() == 0 {
			if err := pool.QueryRow(ctx,
				`SELECT id FROM cat_currencies WHERE code = $1 AND NOT deletion_mark`,
				c.isoCode,
			).Scan(&currID); err != nil {
				log.Warnw("failed to fetch existing currency", "code", c.isoCode, "error", err)
				continue
			}
		}
		currencyIDs[c.isoCode] = currID
	}

	// 2. Tax rates. One default.
	taxRates := []struct {
		code      string
		name      string
		rate      string
		isDefault bool
	}{
		{"VAT-STD", "Standard VAT", "20", true},
		{"VAT-RED", "Reduced VAT", "10", false},
		{"VAT-ZERO", "Zero VAT", "0", false},
	}

	taxRateIDs := make(map[string]id.ID)
	for _, t := range taxRates {
		trID := id.New()
		tag, err := pool.Exec(ctx, `
			INSERT INTO cat_tax_rates (
				id, code, name, rate, is_default,
				version, deletion_mark, attributes, created_at, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, 1, false, '{}', now(), now())
			ON CONFLICT (code) WHERE NOT deletion_mark DO NOTHING
		`, trID, t.code, t.name, t.rate, t.isDefault)
		if err != nil {
			log.Warnw("failed to seed tax rate", "name", t.name, "error", err)
			continue
		}
		if tag.RowsAffected() == 0 {
			if err := pool.QueryRow(ctx,
				`SELECT id FROM cat_tax_rates WHERE code = $1 AND NOT deletion_mark`,
				t.code,
			).Scan(&trID); err != nil {
				continue
			}
		}
		taxRateIDs[t.code] = trID
	}

	// 3. Category tree: two root folders with a child each.
	categories := []struct {
		code     string
		name     string
		parent   string // parent code, empty for root
		isFolder bool
	}{
		{"CAT-HW", "Hardware", "", true},
		{"CAT-HW-NET", "Networking", "CAT-HW", false},
		{"CAT-SVC", "Services", "", true},
		{"CAT-SVC-CONS", "Consulting", "CAT-SVC", false},
	}

	categoryIDs := make(map[string]id.ID)
	for _, cat := range categories {
		catID := id.New()
		var parentID any
		if cat.parent != "" {
			if pid, ok := categoryIDs[cat.parent]; ok {
				parentID = pid.String()
			}
		}
		tag, err := pool.Exec(ctx, `
			INSERT INTO cat_categories (
				id, code, name, parent_id, is_folder, sort_order,
				version, deletion_mark, attributes, created_at, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, 0, 1, false, '{}', now(), now())
			ON CONFLICT (code) WHERE NOT deletion_mark DO NOTHING
		`, catID, cat.code, cat.name, parentID, cat.isFolder)
		if err != nil {
			log.Warnw("failed to seed category", "name", cat.name, "error", err)
			continue
		}
		if tag.RowsAffected() == 0 {
			if err := pool.QueryRow(ctx,
				`SELECT id FROM cat_categories WHERE code = $1 AND NOT deletion_mark`,
				cat.code,
			).Scan(&catID); err != nil {
				continue
			}
		}
		categoryIDs[cat.code] = catID
	}

	// 4. Clients
	clients := []struct {
		code    string
		name    string
		ctype   string
		company string
		email   string
	}{
		{"CL-001", "Acme GmbH", "company", "Acme GmbH", "billing@acme.example"},
		{"CL-002", "Jane Smith", "individual", "", "jane@example.com"},
		{"CL-003", "Globex Ltd", "company", "Globex Ltd", "accounts@globex.example"},
	}

	for _, cl := range clients {
		var company any
		if cl.company != "" {
			company = cl.company
		}
		_, err := pool.Exec(ctx, `
			INSERT INTO cat_clients (
				id, code, name, type, company_name, email,
				version, deletion_mark, attributes, created_at, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, 1, false, '{}', now(), now())
			ON CONFLICT (code) WHERE NOT deletion_mark DO NOTHING
		`, id.New(), cl.code, cl.name, cl.ctype, company, cl.email)
		if err != nil {
			log.Warnw("failed to seed client", "name", cl.name, "error", err)
		}
	}

	// 5. Products
	eur := idOrNil(currencyIDs, "EUR")
	stdVAT := idOrNil(taxRateIDs, "VAT-STD")
	products := []struct {
		code       string
		name       string
		sku        string
		price      string
		category   string
		trackStock bool
	}{
		{"PRD-001", "Gigabit Switch 8-port", "SW-8P", "89.90", "CAT-HW-NET", true},
		{"PRD-002", "Cat6 Patch Cable 2m", "CBL-C6-2", "4.50", "CAT-HW-NET", true},
		{"PRD-003", "Network Design Consulting", "SVC-NETDSGN", "120.00", "CAT-SVC-CONS", false},
	}

	for _, p := range products {
		var categoryID any
		if cid, ok := categoryIDs[p.category]; ok {
			categoryID = cid.String()
		}
		_, err := pool.Exec(ctx, `
			INSERT INTO cat_products (
				id, code, name, sku, unit_price, currency_id, tax_rate_id,
				category_id, stock_quantity, track_stock,
				version, deletion_mark, attributes, created_at, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, 1, false, '{}', now(), now())
			ON CONFLICT (code) WHERE NOT deletion_mark DO NOTHING
		`, id.New(), p.code, p.name, p.sku, p.price, eur, stdVAT, categoryID, p.trackStock)
		if err != nil {
			log.Warnw("failed to seed product", "name", p.name, "error", err)
		}
	}

	log.Info("demo data seeded successfully")
	return nil
}

func idOrNil(m map[string]id.ID, key string) any {
	if v, ok := m[key]; ok {
		return v.String()
	}
	return nil
}
