package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestFromEnvLayersOverDefaults(t *testing.T) {
	t.Setenv("SLOKED_ADDR", ":9090")
	t.Setenv("SLOKED_EXPIRY_DAYS", "3")
	t.Setenv("SLOKED_SQLITE_URI", "/tmp/test.db")

	c := FromEnv()
	if c.Addr != ":9090" {
		t.Fatalf("Addr = %q, want %q", c.Addr, ":9090")
	}
	if c.ExpiryDays != 3 {
		t.Fatalf("ExpiryDays = %d, want 3", c.ExpiryDays)
	}
	if c.SQLiteURI != "/tmp/test.db" {
		t.Fatalf("SQLiteURI = %q, want %q", c.SQLiteURI, "/tmp/test.db")
	}
	if c.MaxDocumentSize != Default().MaxDocumentSize {
		t.Fatalf("MaxDocumentSize = %d, want default unchanged", c.MaxDocumentSize)
	}
}

func TestFromEnvIgnoresUnsetVariables(t *testing.T) {
	c := FromEnv()
	want := Default()
	if c.Addr != want.Addr || c.LogLevel != want.LogLevel {
		t.Fatalf("FromEnv with nothing set = %+v, want %+v", c, want)
	}
}

func TestBindFlagsOverridesTakePrecedence(t *testing.T) {
	c := Default()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	c.BindFlags(fs)

	if err := fs.Parse([]string{"--addr", ":4040", "--ws-write-timeout", "5s"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Addr != ":4040" {
		t.Fatalf("Addr = %q, want %q", c.Addr, ":4040")
	}
	if c.WSWriteTimeout != 5*time.Second {
		t.Fatalf("WSWriteTimeout = %v, want 5s", c.WSWriteTimeout)
	}
}
