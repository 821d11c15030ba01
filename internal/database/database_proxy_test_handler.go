package database

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/woedy/ProxyHome/internal/domain"
)

const proxyTestParamsPerRow = 8

func insertProxyTests(tx *gorm.DB, tests []domain.ProxyTest) error {
	if len(tests) == 0 {
		return nil
	}

	limit := batchLimit(proxyTestParamsPerRow)
	for start := 0; start < len(tests); start += limit {
		end := start + limit
		if end > len(tests) {
			end = len(tests)
		}
		batch := tests[start:end]
		if err := tx.Create(&batch).Error; err != nil {
			return fmt.Errorf("insert proxy tests: %w", err)
		}
	}

	return nil
}

// RecordProxyTests appends audit rows outside of an upsert transaction.
func RecordProxyTests(tests []domain.ProxyTest) error {
	if DB == nil {
		return fmt.Errorf("record tests: database connection was not initialised")
	}
	return insertProxyTests(DB, tests)
}

// ListProxyTests returns the most recent probes of one proxy, newest first.
func ListProxyTests(proxyID uint64, limit int) ([]domain.ProxyTest, error) {
	if DB == nil {
		return nil, fmt.Errorf("list tests: database connection was not initialised")
	}
	if limit < 1 || limit > 500 {
		limit = 50
	}

	var tests []domain.ProxyTest
	err := DB.Where("proxy_id = ?", proxyID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&tests).Error
	if err != nil {
		return nil, err
	}
	return tests, nil
}

// PurgeProxyTests drops audit rows older than the cutoff. The audit trail is
// append-only in normal operation; this is the only path that removes rows.
func PurgeProxyTests(cutoff time.Time) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("purge tests: database connection was not initialised")
	}

	result := DB.Where("created_at < ?", cutoff).Delete(&domain.ProxyTest{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
