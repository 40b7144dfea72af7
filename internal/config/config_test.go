package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("MAX_ROOM_SIZE", "")
	t.Setenv("SEND_BUFFER", "")
	t.Setenv("STATIC_DIR", "")

	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("DatabaseURL = %q, want %q", cfg.DatabaseURL, "")
	}
	if cfg.MaxRoomSize != 10 {
		t.Errorf("MaxRoomSize = %d, want %d", cfg.MaxRoomSize, 10)
	}
	if cfg.SendBuffer != 16 {
		t.Errorf("SendBuffer = %d, want %d", cfg.SendBuffer, 16)
	}
	if cfg.StaticDir != "web" {
		t.Errorf("StaticDir = %q, want %q", cfg.StaticDir, "web")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("DATABASE_URL", "postgres://localhost/lobby")
	t.Setenv("MAX_ROOM_SIZE", "4")
	t.Setenv("SEND_BUFFER", "64")
	t.Setenv("STATIC_DIR", "/srv/web")

	cfg := Load()

	if cfg.Port != "3000" {
		t.Errorf("Port = %q, want %q", cfg.Port, "3000")
	}
	if cfg.DatabaseURL != "postgres://localhost/lobby" {
		t.Errorf("DatabaseURL = %q, want %q", cfg.DatabaseURL, "postgres://localhost/lobby")
	}
	if cfg.MaxRoomSize != 4 {
		t.Errorf("MaxRoomSize = %d, want %d", cfg.MaxRoomSize, 4)
	}
	if cfg.SendBuffer != 64 {
		t.Errorf("SendBuffer = %d, want %d", cfg.SendBuffer, 64)
	}
	if cfg.StaticDir != "/srv/web" {
		t.Errorf("StaticDir = %q, want %q", cfg.StaticDir, "/srv/web")
	}
}

func TestLoad_InvalidNumbers(t *testing.T) {
	t.Setenv("MAX_ROOM_SIZE", "abc")
	t.Setenv("SEND_BUFFER", "-3")

	cfg := Load()

	if cfg.MaxRoomSize != 10 {
		t.Errorf("MaxRoomSize = %d, want %d (fallback)", cfg.MaxRoomSize, 10)
	}
	if cfg.SendBuffer != 16 {
		t.Errorf("SendBuffer = %d, want %d (fallback)", cfg.SendBuffer, 16)
	}
}
