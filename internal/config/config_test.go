package config

import (
	"testing"
	"time"

	"github.com/woedy/ProxyHome/internal/domain"
)

func TestGetConfigDefaults(t *testing.T) {
	ResetConfigForTests()
	t.Cleanup(ResetConfigForTests)

	cfg := GetConfig()

	if cfg.ListenAddress != ":8090" {
		t.Fatalf("ListenAddress = %q, want :8090", cfg.ListenAddress)
	}
	if cfg.CheckURL != "http://httpbin.org/ip" {
		t.Fatalf("CheckURL = %q, want http://httpbin.org/ip", cfg.CheckURL)
	}
	if cfg.RevalidateAfter != time.Hour {
		t.Fatalf("RevalidateAfter = %v, want 1h", cfg.RevalidateAfter)
	}
	if cfg.RevalidateChunk != 50 {
		t.Fatalf("RevalidateChunk = %d, want 50", cfg.RevalidateChunk)
	}
	if cfg.FetchPublicEvery != time.Hour {
		t.Fatalf("FetchPublicEvery = %v, want 1h", cfg.FetchPublicEvery)
	}
	if cfg.FetchBasicEvery != 2*time.Hour {
		t.Fatalf("FetchBasicEvery = %v, want 2h", cfg.FetchBasicEvery)
	}
	if cfg.RetentionAge != 7*24*time.Hour {
		t.Fatalf("RetentionAge = %v, want 168h", cfg.RetentionAge)
	}
}

func TestTierSettingsDefaults(t *testing.T) {
	ResetConfigForTests()
	t.Cleanup(ResetConfigForTests)

	cfg := GetConfig()

	cases := []struct {
		tier    uint8
		timeout time.Duration
		workers int
	}{
		{domain.TierPremium, 15 * time.Second, 10},
		{domain.TierPublic, 10 * time.Second, 30},
		{domain.TierBasic, 8 * time.Second, 40},
		{99, 8 * time.Second, 40},
	}

	for _, tc := range cases {
		got := cfg.TierSettings(tc.tier)
		if got.Timeout != tc.timeout || got.MaxWorkers != tc.workers {
			t.Fatalf("TierSettings(%d) = (%v, %d), want (%v, %d)", tc.tier, got.Timeout, got.MaxWorkers, tc.timeout, tc.workers)
		}
	}
}

func TestGetConfigEnvOverrides(t *testing.T) {
	t.Setenv("PROXYHOME_LISTEN", ":9999")
	t.Setenv("PROXYHOME_REVALIDATE_AFTER", "2h")
	t.Setenv("PROXYHOME_PUBLIC_WORKERS", "5")
	t.Setenv("PROXYHOME_WEBSHARE_API_KEY", "ws-token")
	ResetConfigForTests()
	t.Cleanup(ResetConfigForTests)

	cfg := GetConfig()

	if cfg.ListenAddress != ":9999" {
		t.Fatalf("ListenAddress = %q, want :9999", cfg.ListenAddress)
	}
	if cfg.RevalidateAfter != 2*time.Hour {
		t.Fatalf("RevalidateAfter = %v, want 2h", cfg.RevalidateAfter)
	}
	if cfg.PublicTier.MaxWorkers != 5 {
		t.Fatalf("PublicTier.MaxWorkers = %d, want 5", cfg.PublicTier.MaxWorkers)
	}
	if !cfg.Premium.HasWebshare() {
		t.Fatal("Premium.HasWebshare() = false after setting the key")
	}
	if cfg.Premium.HasOxylabs() {
		t.Fatal("Premium.HasOxylabs() = true without credentials")
	}
}
