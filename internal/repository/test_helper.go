package repository

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/cinema-seats/reservation-engine/internal/database"
)

// setupTestDB connects to a real MySQL instance and applies the schema,
// skipping the test outright when no database is reachable. Grounded on
// the pack's SetupTestDB pattern (TEST_MYSQL_DSN env var, t.Skip
// instead of t.Fatal so these tests never fail a run with no database
// configured).
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		dsn = "root@tcp(localhost:3306)/cinema_seats_test?charset=utf8mb4&parseTime=true&loc=UTC"
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("skipping: open mysql: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		t.Skipf("skipping: mysql not available at %s: %v", dsn, err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate test schema: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func truncateAll(t *testing.T, db *sql.DB) {
	t.Helper()
	for _, stmt := range []string{
		"SET FOREIGN_KEY_CHECKS=0",
		"TRUNCATE TABLE sales",
		"TRUNCATE TABLE reservations",
		"TRUNCATE TABLE seats",
		"TRUNCATE TABLE sessions",
		"SET FOREIGN_KEY_CHECKS=1",
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("truncate: %v", err)
		}
	}
}
