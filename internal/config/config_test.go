package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("NEOKART_API_URL", "")
	t.Setenv("NEOKART_SEARCH_DEBOUNCE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Client.BaseURL != "http://localhost:8080" {
		t.Errorf("Expected default base URL, got %s", cfg.Client.BaseURL)
	}
	if cfg.Client.SearchDebounce != 300*time.Millisecond {
		t.Errorf("Expected 300ms search debounce, got %s", cfg.Client.SearchDebounce)
	}
	if cfg.Client.StateFile == "" {
		t.Error("State file should have a default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("NEOKART_API_URL", "https://shop.example.com")
	t.Setenv("NEOKART_HTTP_TIMEOUT", "3s")
	t.Setenv("NEOKART_PRICE_DEBOUNCE", "not-a-duration")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("LOW_STOCK_THRESHOLD", "9")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Client.BaseURL != "https://shop.example.com" {
		t.Errorf("Expected overridden base URL, got %s", cfg.Client.BaseURL)
	}
	if cfg.Client.Timeout != 3*time.Second {
		t.Errorf("Expected 3s timeout, got %s", cfg.Client.Timeout)
	}
	if cfg.Client.PriceDebounce != 500*time.Millisecond {
		t.Errorf("Invalid duration should fall back to default, got %s", cfg.Client.PriceDebounce)
	}
	if cfg.Server.SessionTTL != 2*time.Hour {
		t.Errorf("Expected 2h session TTL, got %s", cfg.Server.SessionTTL)
	}
	if cfg.Server.LowStockThreshold != 9 {
		t.Errorf("Expected low stock threshold 9, got %d", cfg.Server.LowStockThreshold)
	}
}

func TestLoadRejectsBadPageSize(t *testing.T) {
	t.Setenv("NEOKART_PAGE_SIZE", "0")

	if _, err := Load(); err == nil {
		t.Error("Expected error for zero page size")
	}
}
