package database

import (
	"fmt"
	"testing"

	"github.com/woedy/ProxyHome/internal/domain"
	"github.com/woedy/ProxyHome/internal/security"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupProxyHomeTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	t.Setenv("PROXY_ENCRYPTION_KEY", "proxyhome-test-key")
	security.ResetProxyCipherForTests()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	if err := db.Exec("PRAGMA busy_timeout = 5000").Error; err != nil {
		t.Fatalf("set busy timeout: %v", err)
	}

	if err := db.AutoMigrate(
		&domain.Protocol{},
		&domain.Source{},
		&domain.Proxy{},
		&domain.FetchJob{},
		&domain.JobLog{},
		&domain.ProxyTest{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	if err := ensureProtocols(db); err != nil {
		t.Fatalf("seed protocols: %v", err)
	}

	DB = db

	t.Cleanup(func() {
		DB = nil
		security.ResetProxyCipherForTests()
	})

	return db
}

func float64Ptr(value float64) *float64 {
	return &value
}
