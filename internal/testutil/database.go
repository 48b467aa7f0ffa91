package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"

	_ "github.com/go-sql-driver/mysql"

	"bucheron/internal/infrastructure/mysql"
)

const defaultTestDSN = "root:@tcp(localhost:3306)/bucheron_test?parseTime=true&charset=utf8mb4"

// SetupTestDB opens the MySQL test database (TEST_DATABASE_DSN, defaulting to
// bucheron_test on localhost) and skips the test when it is unreachable.
func SetupTestDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = defaultTestDSN
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("test database not available: %v", err)
	}

	return db
}

// CleanupTestDB empties every table and closes the connection.
func CleanupTestDB(t *testing.T, db *sql.DB) {
	if db == nil {
		return
	}

	for _, table := range mysql.Tables {
		if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}

	db.Close()
}

func SetupTestTables(t *testing.T, db *sql.DB) {
	if err := mysql.Migrate(context.Background(), db); err != nil {
		t.Fatalf("failed to create tables: %v", err)
	}
	for _, table := range mysql.Tables {
		if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			t.Fatalf("failed to clean table %s: %v", table, err)
		}
	}
}

// SeedCategory inserts a category and returns its id.
func SeedCategory(t *testing.T, db *sql.DB, slug, name string, featured bool) int {
	res, err := db.Exec(`INSERT INTO Categories (slug, name, description, featured, isActive, sortOrder)
		VALUES (?, ?, '', ?, 1, 0)`, slug, name, featured)
	if err != nil {
		t.Fatalf("seeding category: %v", err)
	}
	id, _ := res.LastInsertId()
	return int(id)
}

type ProductSeed struct {
	Slug       string
	Name       string
	Price      float64
	CategoryID int
	WoodType   string
	Stock      *int
	Featured   bool
	IsNew      bool
	Inactive   bool
}

// SeedProduct inserts a product and returns its id.
func SeedProduct(t *testing.T, db *sql.DB, p ProductSeed) int {
	res, err := db.Exec(`INSERT INTO Products (slug, name, description, price, unit, images, categoryId, woodType, stock, featured, isNew, isActive)
		VALUES (?, ?, '', ?, 'stère', '[]', ?, ?, ?, ?, ?, ?)`,
		p.Slug, p.Name, p.Price, p.CategoryID, p.WoodType, p.Stock, p.Featured, p.IsNew, !p.Inactive)
	if err != nil {
		t.Fatalf("seeding product: %v", err)
	}
	id, _ := res.LastInsertId()
	return int(id)
}

func IntPtr(v int) *int {
	return &v
}
