package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.FeedMaxDeliveries != 5 {
		t.Errorf("expected default max deliveries 5, got %d", cfg.FeedMaxDeliveries)
	}
	if cfg.FeedStream != "changefeed" {
		t.Errorf("expected default stream name, got %q", cfg.FeedStream)
	}
	if cfg.ProjectionCron != "5 0 * * *" {
		t.Errorf("unexpected default projection schedule: %q", cfg.ProjectionCron)
	}
}

func TestLoadFeedMaxDeliveriesOverride(t *testing.T) {
	t.Setenv("FEED_MAX_DELIVERIES", "9")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.FeedMaxDeliveries != 9 {
		t.Errorf("expected override 9, got %d", cfg.FeedMaxDeliveries)
	}
}

func TestLoadRejectsInvalidFeedMaxDeliveries(t *testing.T) {
	t.Setenv("FEED_MAX_DELIVERIES", "lots")

	if _, err := Load(); err == nil {
		t.Fatal("expected invalid FEED_MAX_DELIVERIES to fail loading")
	}
}
