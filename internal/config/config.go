package config

import (
	"sync"
	"time"

	"github.com/woedy/ProxyHome/internal/domain"
	"github.com/woedy/ProxyHome/internal/support"
)

// TierSettings bound how aggressively one harvest tier is probed.
type TierSettings struct {
	Timeout    time.Duration
	MaxWorkers int
}

// PremiumCredentials carries provider secrets for the premium tier. It is
// passed explicitly into the fetchers; nothing reads these from globals.
type PremiumCredentials struct {
	WebshareAPIKey     string
	OxylabsUsername    string
	OxylabsPassword    string
	BrightDataUsername string
	BrightDataPassword string
	BrightDataZone     string
}

func (c PremiumCredentials) HasWebshare() bool {
	return c.WebshareAPIKey != ""
}

func (c PremiumCredentials) HasOxylabs() bool {
	return c.OxylabsUsername != "" && c.OxylabsPassword != ""
}

func (c PremiumCredentials) HasBrightData() bool {
	return c.BrightDataUsername != "" && c.BrightDataPassword != "" && c.BrightDataZone != ""
}

type Settings struct {
	ListenAddress string
	APIKey        string
	JWTSecret     string

	CheckURL      string
	GeoIPDatabase string
	BrowserFetch  bool
	RespectRobots bool

	FetchPublicEvery time.Duration
	FetchBasicEvery  time.Duration
	RevalidateEvery  time.Duration
	RevalidateAfter  time.Duration
	RevalidateChunk  int
	RetentionAge     time.Duration
	JobDeadline      time.Duration

	Premium PremiumCredentials

	PremiumTier TierSettings
	PublicTier  TierSettings
	BasicTier   TierSettings
}

// TierSettings returns the probe bounds for a tier, falling back to the
// basic tier for anything unknown.
func (s Settings) TierSettings(tier uint8) TierSettings {
	switch tier {
	case domain.TierPremium:
		return s.PremiumTier
	case domain.TierPublic:
		return s.PublicTier
	default:
		return s.BasicTier
	}
}

var (
	settingsOnce sync.Once
	settings     Settings
)

func GetConfig() Settings {
	settingsOnce.Do(func() {
		settings = loadFromEnv()
	})
	return settings
}

// ResetConfigForTests drops the cached settings so the next GetConfig call
// re-reads the environment.
func ResetConfigForTests() {
	settingsOnce = sync.Once{}
	settings = Settings{}
}

func loadFromEnv() Settings {
	return Settings{
		ListenAddress: support.GetEnv("PROXYHOME_LISTEN", ":8090"),
		APIKey:        support.GetEnv("PROXYHOME_API_KEY", ""),
		JWTSecret:     support.GetEnv("PROXYHOME_JWT_SECRET", ""),

		CheckURL:      support.GetEnv("PROXYHOME_CHECK_URL", "http://httpbin.org/ip"),
		GeoIPDatabase: support.GetEnv("PROXYHOME_GEOIP_DB", ""),
		BrowserFetch:  support.GetEnvBool("PROXYHOME_BROWSER_FETCH", false),
		RespectRobots: support.GetEnvBool("PROXYHOME_RESPECT_ROBOTS", true),

		FetchPublicEvery: support.GetEnvDuration("PROXYHOME_FETCH_PUBLIC_EVERY", time.Hour),
		FetchBasicEvery:  support.GetEnvDuration("PROXYHOME_FETCH_BASIC_EVERY", 2*time.Hour),
		RevalidateEvery:  support.GetEnvDuration("PROXYHOME_REVALIDATE_EVERY", 30*time.Minute),
		RevalidateAfter:  support.GetEnvDuration("PROXYHOME_REVALIDATE_AFTER", time.Hour),
		RevalidateChunk:  support.GetEnvInt("PROXYHOME_REVALIDATE_CHUNK", 50),
		RetentionAge:     support.GetEnvDuration("PROXYHOME_RETENTION_AGE", 7*24*time.Hour),
		JobDeadline:      support.GetEnvDuration("PROXYHOME_JOB_DEADLINE", time.Hour),

		Premium: PremiumCredentials{
			WebshareAPIKey:     support.GetEnv("PROXYHOME_WEBSHARE_API_KEY", ""),
			OxylabsUsername:    support.GetEnv("PROXYHOME_OXYLABS_USERNAME", ""),
			OxylabsPassword:    support.GetEnv("PROXYHOME_OXYLABS_PASSWORD", ""),
			BrightDataUsername: support.GetEnv("PROXYHOME_BRIGHTDATA_USERNAME", ""),
			BrightDataPassword: support.GetEnv("PROXYHOME_BRIGHTDATA_PASSWORD", ""),
			BrightDataZone:     support.GetEnv("PROXYHOME_BRIGHTDATA_ZONE", ""),
		},

		PremiumTier: TierSettings{
			Timeout:    time.Duration(support.GetEnvInt("PROXYHOME_PREMIUM_TIMEOUT", 15)) * time.Second,
			MaxWorkers: support.GetEnvInt("PROXYHOME_PREMIUM_WORKERS", 10),
		},
		PublicTier: TierSettings{
			Timeout:    time.Duration(support.GetEnvInt("PROXYHOME_PUBLIC_TIMEOUT", 10)) * time.Second,
			MaxWorkers: support.GetEnvInt("PROXYHOME_PUBLIC_WORKERS", 30),
		},
		BasicTier: TierSettings{
			Timeout:    time.Duration(support.GetEnvInt("PROXYHOME_BASIC_TIMEOUT", 8)) * time.Second,
			MaxWorkers: support.GetEnvInt("PROXYHOME_BASIC_WORKERS", 40),
		},
	}
}
