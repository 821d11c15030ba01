package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/woedy/ProxyHome/internal/domain"
)

// ResolveSourceIDs maps every distinct source name among the candidates to a
// sources row, creating rows that do not exist yet. Concurrent fetch jobs can
// race on the create; a unique violation just means someone else won, so the
// lookup is retried.
func ResolveSourceIDs(candidates []domain.Candidate) (map[string]uint, error) {
	if DB == nil {
		return nil, fmt.Errorf("resolve sources: database connection was not initialised")
	}

	type sourceMeta struct {
		tier uint8
	}
	wanted := make(map[string]sourceMeta)
	for _, candidate := range candidates {
		name := strings.TrimSpace(candidate.Source)
		if name == "" {
			continue
		}
		if _, ok := wanted[name]; !ok {
			wanted[name] = sourceMeta{tier: candidate.Tier}
		}
	}

	ids := make(map[string]uint, len(wanted))
	if len(wanted) == 0 {
		return ids, nil
	}

	err := DB.Transaction(func(tx *gorm.DB) error {
		for name, meta := range wanted {
			var source domain.Source
			err := tx.Where("name = ?", name).
				Attrs(&domain.Source{Name: name, Tier: meta.tier, IsActive: true}).
				FirstOrCreate(&source).Error
			if isUniqueViolation(err) {
				err = tx.Where("name = ?", name).First(&source).Error
			}
			if err != nil {
				return err
			}
			ids[name] = source.ID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ids, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func ListSources() ([]domain.Source, error) {
	if DB == nil {
		return nil, fmt.Errorf("list sources: database connection was not initialised")
	}

	var sources []domain.Source
	err := DB.Order("tier ASC, name ASC").Find(&sources).Error
	if err != nil {
		return nil, err
	}
	return sources, nil
}

// CountProxiesBySource reports how many stored proxies each source
// contributed, keyed by source name.
func CountProxiesBySource() (map[string]int64, error) {
	if DB == nil {
		return nil, fmt.Errorf("count by source: database connection was not initialised")
	}

	type sourceCount struct {
		Name  string
		Total int64
	}
	var rows []sourceCount
	err := DB.Model(&domain.Proxy{}).
		Select("sources.name AS name", "COUNT(*) AS total").
		Joins("JOIN sources ON sources.id = proxies.source_id").
		Group("sources.name").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Name] = row.Total
	}
	return counts, nil
}
