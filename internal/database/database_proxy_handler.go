package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/woedy/ProxyHome/internal/api/dto"
	"github.com/woedy/ProxyHome/internal/domain"
)

var (
	ErrProxyNotFound = errors.New("proxy not found")
)

// Batched statements stay below the driver parameter ceiling.
const (
	maxParamsPerBatch = 65000
	proxyParamsPerRow = 22
)

func batchLimit(paramsPerRow int) int {
	limit := maxParamsPerBatch / paramsPerRow
	if limit < 1 {
		limit = 1
	}
	return limit
}

// rankOrder is the serving order: better tiers first, premium endpoints
// before free ones within a tier, then fastest first. Proxies that were
// never timed sort last.
const rankOrder = "tier ASC, premium DESC, COALESCE(response_time, 1000000000) ASC"

// proxyRowFromCandidate converts one candidate to a storable row. Rows with
// no address, a zero port or an unknown protocol are rejected, not fatal.
func proxyRowFromCandidate(candidate domain.Candidate, sourceIDs map[string]uint) (domain.Proxy, bool) {
	if !candidate.Valid() {
		log.Warn("Skipping malformed candidate", "endpoint", candidate.Endpoint(), "source", candidate.Source)
		return domain.Proxy{}, false
	}

	protocolID, _ := domain.ProtocolIDFor(candidate.Protocol)
	row := domain.Proxy{
		Address:     candidate.Address,
		Port:        candidate.Port,
		ProtocolID:  protocolID,
		Tier:        candidate.Tier,
		Premium:     candidate.Premium,
		Username:    candidate.Username,
		Password:    candidate.Password,
		Country:     candidate.Country,
		CountryCode: candidate.CountryCode,
		Region:      candidate.Region,
		City:        candidate.City,
		Timezone:    candidate.Timezone,
	}
	if sourceID, ok := sourceIDs[candidate.Source]; ok {
		row.SourceID = &sourceID
	}
	return row, true
}

func buildProxyRows(candidates []domain.Candidate, sourceIDs map[string]uint) []domain.Proxy {
	rows := make([]domain.Proxy, 0, len(candidates))
	for _, candidate := range candidates {
		if row, ok := proxyRowFromCandidate(candidate, sourceIDs); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

func proxyMetadataAssignments() map[string]interface{} {
	return map[string]interface{}{
		"tier":         gorm.Expr("excluded.tier"),
		"premium":      gorm.Expr("excluded.premium"),
		"source_id":    gorm.Expr("excluded.source_id"),
		"username":     gorm.Expr("excluded.username"),
		"password":     gorm.Expr("excluded.password"),
		"country":      gorm.Expr("excluded.country"),
		"country_code": gorm.Expr("excluded.country_code"),
		"region":       gorm.Expr("excluded.region"),
		"city":         gorm.Expr("excluded.city"),
		"timezone":     gorm.Expr("excluded.timezone"),
		"updated_at":   gorm.Expr("CURRENT_TIMESTAMP"),
	}
}

// proxyProbeAssignments extends the metadata overwrite with probe outcome
// columns. Counters only ever move forward: the matching one is incremented
// based on the incoming row's is_working, the other is left alone.
func proxyProbeAssignments() map[string]interface{} {
	assignments := proxyMetadataAssignments()
	assignments["is_working"] = gorm.Expr("excluded.is_working")
	assignments["response_time"] = gorm.Expr("excluded.response_time")
	assignments["last_checked"] = gorm.Expr("excluded.last_checked")
	assignments["success_count"] = gorm.Expr("success_count + (CASE WHEN excluded.is_working THEN 1 ELSE 0 END)")
	assignments["failure_count"] = gorm.Expr("failure_count + (CASE WHEN excluded.is_working THEN 0 ELSE 1 END)")
	return assignments
}

func upsertProxyRows(tx *gorm.DB, rows []domain.Proxy, assignments map[string]interface{}) error {
	if len(rows) == 0 {
		return nil
	}

	limit := batchLimit(proxyParamsPerRow)
	for start := 0; start < len(rows); start += limit {
		end := start + limit
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "address"},
				{Name: "port"},
				{Name: "protocol_id"},
			},
			DoUpdates: clause.Assignments(assignments),
		}).Create(&batch).Error
		if err != nil {
			return fmt.Errorf("upsert proxies: %w", err)
		}
	}

	return nil
}

// StoreFetchedProxies persists candidates that were harvested without
// validation. Existing rows get their metadata refreshed; probe state
// (working flag, counters, last_checked) is left untouched.
func StoreFetchedProxies(candidates []domain.Candidate) (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("store proxies: database connection was not initialised")
	}

	sourceIDs, err := ResolveSourceIDs(candidates)
	if err != nil {
		return 0, err
	}

	rows := buildProxyRows(candidates, sourceIDs)
	if len(rows) == 0 {
		return 0, nil
	}

	err = DB.Transaction(func(tx *gorm.DB) error {
		return upsertProxyRows(tx, rows, proxyMetadataAssignments())
	})
	if err != nil {
		return 0, err
	}

	return len(rows), nil
}

// StoreValidatedProxies persists the outcome of a validation pass. Only
// candidates that answered the probe become (or refresh) proxy rows; every
// probe, pass or fail, is recorded as an audit row. Returns the number of
// working proxies stored.
func StoreValidatedProxies(results []domain.ProbeResult, jobID *uint64) (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("store proxies: database connection was not initialised")
	}

	working := make([]domain.Candidate, 0, len(results))
	for _, result := range results {
		if result.Success {
			working = append(working, result.Candidate)
		}
	}

	sourceIDs, err := ResolveSourceIDs(working)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	rows := make([]domain.Proxy, 0, len(working))
	for _, result := range results {
		if !result.Success {
			continue
		}
		row, ok := proxyRowFromCandidate(result.Candidate, sourceIDs)
		if !ok {
			continue
		}
		row.IsWorking = true
		row.ResponseTime = result.ResponseTime
		row.SuccessCount = 1
		checkedAt := result.CheckedAt
		if checkedAt.IsZero() {
			checkedAt = now
		}
		row.LastChecked = &checkedAt
		rows = append(rows, row)
	}

	err = DB.Transaction(func(tx *gorm.DB) error {
		if err := upsertProxyRows(tx, rows, proxyProbeAssignments()); err != nil {
			return err
		}

		idByKey, err := lookupProxyIDs(tx, rows)
		if err != nil {
			return err
		}

		audits := buildProbeAudits(results, idByKey, jobID)
		return insertProxyTests(tx, audits)
	})
	if err != nil {
		return 0, err
	}

	return len(rows), nil
}

// ApplyRecheckResults folds revalidation outcomes back into existing rows.
// proxies[i] must be the record results[i] was probed from.
func ApplyRecheckResults(proxies []domain.Proxy, results []domain.ProbeResult, jobID *uint64) error {
	if DB == nil {
		return fmt.Errorf("recheck proxies: database connection was not initialised")
	}
	if len(proxies) != len(results) {
		return fmt.Errorf("recheck proxies: %d records but %d results", len(proxies), len(results))
	}
	if len(proxies) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([]domain.Proxy, 0, len(proxies))
	audits := make([]domain.ProxyTest, 0, len(proxies))
	for idx := range proxies {
		record := proxies[idx]
		result := results[idx]

		record.ID = 0
		record.IsWorking = result.Success
		record.ResponseTime = result.ResponseTime
		if result.Success {
			record.SuccessCount = 1
			record.FailureCount = 0
		} else {
			record.SuccessCount = 0
			record.FailureCount = 1
			record.ResponseTime = nil
		}
		checkedAt := result.CheckedAt
		if checkedAt.IsZero() {
			checkedAt = now
		}
		record.LastChecked = &checkedAt
		rows = append(rows, record)

		proxyID := proxies[idx].ID
		audits = append(audits, domain.ProxyTest{
			ProxyID:      &proxyID,
			JobID:        jobID,
			Endpoint:     result.Candidate.Endpoint(),
			Success:      result.Success,
			ResponseTime: result.ResponseTime,
			EgressIP:     result.EgressIP,
			Error:        result.Error,
		})
	}

	return DB.Transaction(func(tx *gorm.DB) error {
		if err := upsertProxyRows(tx, rows, proxyProbeAssignments()); err != nil {
			return err
		}
		return insertProxyTests(tx, audits)
	})
}

func lookupProxyIDs(tx *gorm.DB, rows []domain.Proxy) (map[string]uint64, error) {
	idByKey := make(map[string]uint64, len(rows))
	if len(rows) == 0 {
		return idByKey, nil
	}

	limit := batchLimit(3)
	for start := 0; start < len(rows); start += limit {
		end := start + limit
		if end > len(rows) {
			end = len(rows)
		}

		tuples := make([][]interface{}, 0, end-start)
		for _, row := range rows[start:end] {
			tuples = append(tuples, []interface{}{row.Address, row.Port, row.ProtocolID})
		}

		var found []domain.Proxy
		err := tx.Select("id", "address", "port", "protocol_id").
			Where("(address, port, protocol_id) IN ?", tuples).
			Find(&found).Error
		if err != nil {
			return nil, fmt.Errorf("lookup proxy ids: %w", err)
		}

		for _, proxy := range found {
			key := fmt.Sprintf("%s:%d/%s", proxy.Address, proxy.Port, proxy.ProtocolName())
			idByKey[key] = proxy.ID
		}
	}

	return idByKey, nil
}

func buildProbeAudits(results []domain.ProbeResult, idByKey map[string]uint64, jobID *uint64) []domain.ProxyTest {
	audits := make([]domain.ProxyTest, 0, len(results))
	for _, result := range results {
		audit := domain.ProxyTest{
			JobID:        jobID,
			Endpoint:     result.Candidate.Endpoint(),
			Success:      result.Success,
			ResponseTime: result.ResponseTime,
			EgressIP:     result.EgressIP,
			Error:        result.Error,
		}
		if id, ok := idByKey[result.Candidate.Key()]; ok {
			proxyID := id
			audit.ProxyID = &proxyID
		}
		audits = append(audits, audit)
	}
	return audits
}

// GetProxiesForRevalidation returns working proxies whose last probe is
// older than the cutoff, stalest first.
func GetProxiesForRevalidation(cutoff time.Time) ([]domain.Proxy, error) {
	if DB == nil {
		return nil, fmt.Errorf("revalidation query: database connection was not initialised")
	}

	var proxies []domain.Proxy
	err := DB.Where("is_working = ? AND last_checked IS NOT NULL AND last_checked < ?", true, cutoff).
		Order("last_checked ASC").
		Find(&proxies).Error
	if err != nil {
		return nil, err
	}
	return proxies, nil
}

func applyProxyFilters(query *gorm.DB, filters dto.ProxyListFilters) *gorm.DB {
	if filters.Tier != 0 {
		query = query.Where("tier = ?", filters.Tier)
	}
	if filters.Protocol != "" {
		if protocolID, ok := domain.ProtocolIDFor(filters.Protocol); ok {
			query = query.Where("protocol_id = ?", protocolID)
		}
	}
	if filters.Working != nil {
		query = query.Where("is_working = ?", *filters.Working)
	}
	if filters.Premium != nil {
		query = query.Where("premium = ?", *filters.Premium)
	}
	if filters.CountryCode != "" {
		query = query.Where("country_code = ?", filters.CountryCode)
	}
	return query
}

// ListProxies returns one page of proxies in serving order plus the total
// number of rows matching the filters.
func ListProxies(filters dto.ProxyListFilters) ([]domain.Proxy, int64, error) {
	if DB == nil {
		return nil, 0, fmt.Errorf("list proxies: database connection was not initialised")
	}

	var total int64
	countQuery := applyProxyFilters(DB.Model(&domain.Proxy{}), filters)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filters.Page
	if page < 1 {
		page = 1
	}
	pageSize := filters.PageSize
	if pageSize < 1 || pageSize > 500 {
		pageSize = 100
	}

	var proxies []domain.Proxy
	query := applyProxyFilters(DB.Model(&domain.Proxy{}), filters).
		Order(rankOrder).
		Offset((page - 1) * pageSize).
		Limit(pageSize)
	if err := query.Find(&proxies).Error; err != nil {
		return nil, 0, err
	}

	return proxies, total, nil
}

// RankedProxies returns up to limit proxies in serving order. A limit of
// zero or less means no cap; workingOnly narrows the set to live proxies.
func RankedProxies(limit int, workingOnly bool) ([]domain.Proxy, error) {
	if DB == nil {
		return nil, fmt.Errorf("rank proxies: database connection was not initialised")
	}

	query := DB.Order(rankOrder)
	if workingOnly {
		query = query.Where("is_working = ?", true)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var proxies []domain.Proxy
	if err := query.Find(&proxies).Error; err != nil {
		return nil, err
	}
	return proxies, nil
}

func GetProxyByID(id uint64) (domain.Proxy, error) {
	if DB == nil {
		return domain.Proxy{}, fmt.Errorf("get proxy: database connection was not initialised")
	}

	var proxy domain.Proxy
	err := DB.First(&proxy, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Proxy{}, ErrProxyNotFound
	}
	if err != nil {
		return domain.Proxy{}, err
	}
	return proxy, nil
}

func CountWorkingProxies() (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("count proxies: database connection was not initialised")
	}

	var count int64
	err := DB.Model(&domain.Proxy{}).Where("is_working = ?", true).Count(&count).Error
	return count, err
}

// DeleteStaleProxies removes dead rows that have been around longer than
// the retention window. Audit rows cascade with them.
func DeleteStaleProxies(cutoff time.Time) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("delete proxies: database connection was not initialised")
	}

	result := DB.Where("is_working = ? AND created_at < ?", false, cutoff).Delete(&domain.Proxy{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// GetProxyStats aggregates the pool for the stats endpoint.
func GetProxyStats() (dto.ProxyStats, error) {
	if DB == nil {
		return dto.ProxyStats{}, fmt.Errorf("proxy stats: database connection was not initialised")
	}

	stats := dto.ProxyStats{
		ByTier:     map[string]int64{},
		ByProtocol: map[string]int64{},
	}

	if err := DB.Model(&domain.Proxy{}).Count(&stats.Total).Error; err != nil {
		return dto.ProxyStats{}, err
	}
	if err := DB.Model(&domain.Proxy{}).Where("is_working = ?", true).Count(&stats.Working).Error; err != nil {
		return dto.ProxyStats{}, err
	}

	type tierCount struct {
		Tier  uint8
		Total int64
	}
	var tiers []tierCount
	err := DB.Model(&domain.Proxy{}).
		Select("tier", "COUNT(*) AS total").
		Group("tier").
		Scan(&tiers).Error
	if err != nil {
		return dto.ProxyStats{}, err
	}
	for _, row := range tiers {
		stats.ByTier[fmt.Sprintf("tier_%d", row.Tier)] = row.Total
	}

	type protocolCount struct {
		Name  string
		Total int64
	}
	var protocols []protocolCount
	err = DB.Model(&domain.Proxy{}).
		Select("protocols.name AS name", "COUNT(*) AS total").
		Joins("JOIN protocols ON protocols.id = proxies.protocol_id").
		Group("protocols.name").
		Scan(&protocols).Error
	if err != nil {
		return dto.ProxyStats{}, err
	}
	for _, row := range protocols {
		stats.ByProtocol[row.Name] = row.Total
	}

	var avg sql.NullFloat64
	err = DB.Model(&domain.Proxy{}).
		Select("AVG(response_time)").
		Where("is_working = ? AND response_time IS NOT NULL", true).
		Scan(&avg).Error
	if err != nil {
		return dto.ProxyStats{}, err
	}
	if avg.Valid {
		stats.AvgResponseTime = &avg.Float64
	}

	return stats, nil
}
