package engine

import (
	"log/slog"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Quickbid0/quick-bid-jan-6-sub008/trust/cachestore"
	"github.com/Quickbid0/quick-bid-jan-6-sub008/trust/countstore"
	"github.com/Quickbid0/quick-bid-jan-6-sub008/trust/hasher"
)

// EngineTestFixture returns an engine backed by an in-memory sqlite database
// and in-process stores, migrated and ready to use.
func EngineTestFixture(t testing.TB) *Engine {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 logger.Discard,
	})
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	sqldb, err := db.DB()
	if err != nil {
		t.Fatalf("unwrapping sqlite handle: %v", err)
	}
	// a single connection keeps every session on the same :memory: database
	sqldb.SetMaxOpenConns(1)

	eng := &Engine{
		Logger:   slog.Default(),
		DB:       db,
		Hasher:   hasher.New("test-hash-key"),
		Counters: countstore.NewMemCountStore(),
		Cache:    cachestore.NewMemCacheStore(1000, time.Minute),
	}
	if err := eng.MigrateDatabase(); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return eng
}
