package devauth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/tallerhub/tallerhub/internal/ports"
)

func TestProvider_BeginAndExchange(t *testing.T) {
	prov, err := NewProvider(Config{UserID: "dev-admin", Email: "admin@taller.test", FirstName: "Dev"})
	if err != nil {
		t.Fatalf("NewProvider error: %v", err)
	}
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	prov.now = func() time.Time { return fixed }

	url, state, nonce, err := prov.Begin(context.Background(), ports.BeginInput{RedirectURL: "/"})
	if err != nil {
		t.Fatalf("Begin error: %v", err)
	}
	if !strings.HasPrefix(url, "/auth/callback?") || !strings.Contains(url, "state="+state) {
		t.Fatalf("unexpected authURL: %s", url)
	}
	if state == "" || nonce == "" || state == nonce {
		t.Fatal("state and nonce should be distinct random values")
	}

	id, err := prov.Exchange(context.Background(), ports.ExchangeInput{Code: "dev", State: state, Nonce: nonce})
	if err != nil {
		t.Fatalf("Exchange error: %v", err)
	}
	if id.UserID != "dev-admin" || id.Email != "admin@taller.test" || id.FirstName != "Dev" {
		t.Fatalf("unexpected identity: %+v", id)
	}
	if !id.ExpiresAt.Equal(fixed.Add(8 * time.Hour)) {
		t.Fatalf("unexpected expiry: %v", id.ExpiresAt)
	}
}

func TestNewProvider_Validation(t *testing.T) {
	if _, err := NewProvider(Config{Email: "x@y"}); err == nil {
		t.Fatal("expected error for missing UserID")
	}
	if _, err := NewProvider(Config{UserID: "u"}); err == nil {
		t.Fatal("expected error for missing Email")
	}
}
