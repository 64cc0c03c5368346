package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadParsesAllSections(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
game:
  min_players: 4
  idle_timeout_minutes: 60
database:
  host: db.internal
  port: "5433"
  user: ti4bot
  name: sessions
  sslmode: require
  max_connections: 4
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run_mode = %q, expected longpoll default", cfg.Telegram.RunMode)
	}
	if cfg.Database.Host != "db.internal" || cfg.Database.Port != "5433" {
		t.Fatalf("database section not parsed: %+v", cfg.Database)
	}
	if cfg.Database.MaxConnections != 4 {
		t.Fatalf("max_connections = %d, expected 4", cfg.Database.MaxConnections)
	}
	if cfg.Game.MinPlayers != 4 {
		t.Fatalf("game.min_players = %d, expected 4", cfg.Game.MinPlayers)
	}
	// Normalize fills the remaining game defaults.
	if cfg.Game.MaxPlayers != 8 || cfg.Game.AgendaFromRound != 3 {
		t.Fatalf("game defaults not applied: %+v", cfg.Game)
	}
}

func TestLoadRejectsMissingToken(t *testing.T) {
	path := writeConfig(t, "telegram:\n  run_mode: longpoll\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a missing telegram token")
	}
}

func TestNormalizeRejectsBadRunMode(t *testing.T) {
	cfg := &Config{Telegram: TelegramConfig{Token: "123:abc", RunMode: "carrier-pigeon"}}
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected an error for an unknown run mode")
	}
}
