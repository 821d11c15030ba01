package database

import (
	"fmt"

	"time"

	"github.com/woedy/ProxyHome/internal/domain"
	"github.com/woedy/ProxyHome/internal/support"

	"github.com/charmbracelet/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	DB *gorm.DB
)

type Config struct {
	ExistingDB   *gorm.DB
	Dialector    gorm.Dialector
	Logger       logger.Interface
	AutoMigrate  bool
	Migrations   []any
	SeedDefaults bool
}

type Option func(*Config)

func SetupDB(opts ...Option) (*gorm.DB, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	switch {
	case cfg.ExistingDB != nil:
		DB = cfg.ExistingDB
	case cfg.Dialector != nil:
		gormCfg := &gorm.Config{}
		if cfg.Logger != nil {
			gormCfg.Logger = cfg.Logger
		}
		db, err := gorm.Open(cfg.Dialector, gormCfg)
		if err != nil {
			return nil, fmt.Errorf("database: open connection: %w", err)
		}
		DB = db
		configureConnectionPool(db)
	default:
		return nil, fmt.Errorf("database: no dialector or existing connection provided")
	}

	if DB == nil {
		return nil, fmt.Errorf("database: connection was not configured")
	}

	if cfg.AutoMigrate && len(cfg.Migrations) > 0 {
		if err := DB.AutoMigrate(cfg.Migrations...); err != nil {
			return nil, fmt.Errorf("database: auto migrate: %w", err)
		}
		log.Info("Database migration completed.")
	}

	if cfg.SeedDefaults {
		if err := seedDefaults(DB); err != nil {
			return nil, fmt.Errorf("database: seed defaults: %w", err)
		}
	}

	if cfg.AutoMigrate {
		if err := ensureProxySchema(DB); err != nil {
			log.Error("Failed to ensure proxy schema", "error", err)
		}

		if err := ensureProxyTestSchema(DB); err != nil {
			log.Error("Failed to ensure proxy test schema", "error", err)
		}

		if err := ensureFetchJobSchema(DB); err != nil {
			log.Error("Failed to ensure fetch job schema", "error", err)
		}
	}

	return DB, nil
}

func defaultConfig() Config {
	return Config{
		Dialector:    postgres.Open(buildDSN()),
		Logger:       silentLogger(),
		AutoMigrate:  support.GetEnvBool("DB_AUTO_MIGRATE", true),
		Migrations:   defaultMigrations(),
		SeedDefaults: true,
	}
}

func buildDSN() string {
	dbHost := support.GetEnv("DB_HOST", "localhost")
	dbPort := support.GetEnv("DB_PORT", "5432")
	dbName := support.GetEnv("DB_NAME", "proxyhome")
	dbUser := support.GetEnv("DB_USERNAME", "admin")
	dbPassword := support.GetEnv("DB_PASSWORD", "admin")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		dbHost,
		dbPort,
		dbUser,
		dbPassword,
		dbName,
	)

	return dsn
}

func silentLogger() logger.Interface {
	return logger.New(
		log.Default(),
		logger.Config{LogLevel: logger.Silent},
	)
}

func defaultMigrations() []any {
	return []any{
		domain.Protocol{},
		domain.Source{},
		domain.Proxy{},
		domain.FetchJob{},
		domain.JobLog{},
		domain.ProxyTest{},
	}
}

func configureConnectionPool(db *gorm.DB) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Error("database: get sql.DB", "error", err)
		return
	}

	maxOpen := support.GetEnvInt("DB_MAX_OPEN_CONNS", 32)
	maxIdle := support.GetEnvInt("DB_MAX_IDLE_CONNS", maxOpen)
	if maxIdle > maxOpen {
		maxIdle = maxOpen
	}

	connLifetimeSeconds := support.GetEnvInt("DB_CONN_MAX_LIFETIME", 300)
	connIdleSeconds := support.GetEnvInt("DB_CONN_MAX_IDLE_TIME", 60)

	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	if maxIdle >= 0 {
		sqlDB.SetMaxIdleConns(maxIdle)
	}
	if connLifetimeSeconds > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(connLifetimeSeconds) * time.Second)
	}
	if connIdleSeconds > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(connIdleSeconds) * time.Second)
	}
}

func seedDefaults(db *gorm.DB) error {
	return ensureProtocols(db)
}

func ensureProtocols(db *gorm.DB) error {
	if !db.Migrator().HasTable(&domain.Protocol{}) {
		return nil
	}

	var count int64
	if err := db.Model(&domain.Protocol{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	protocols := []domain.Protocol{
		{Name: "http", ID: domain.ProtocolHTTPID},
		{Name: "socks4", ID: domain.ProtocolSOCKS4ID},
		{Name: "socks5", ID: domain.ProtocolSOCKS5ID},
	}

	return db.Create(&protocols).Error
}

func ensureProxySchema(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("nil database connection")
	}

	stmts := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_proxy_identity ON proxies (address, port, protocol_id)`,
		`CREATE INDEX IF NOT EXISTS idx_proxy_working_checked ON proxies (is_working, last_checked)`,
		`CREATE INDEX IF NOT EXISTS idx_proxy_rank ON proxies (tier ASC, premium DESC, response_time ASC NULLS LAST)`,
	}

	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("proxy schema: %w", err)
		}
	}

	return nil
}

func ensureProxyTestSchema(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("nil database connection")
	}

	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_proxy_tests_proxy_created ON proxy_tests (proxy_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_proxy_tests_job ON proxy_tests (job_id)`,
	}

	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("proxy test schema: %w", err)
		}
	}

	return nil
}

func ensureFetchJobSchema(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("nil database connection")
	}

	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_fetch_jobs_status_started ON fetch_jobs (status, started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_job_logs_job_created ON job_logs (job_id, created_at)`,
	}

	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("fetch job schema: %w", err)
		}
	}

	return nil
}
