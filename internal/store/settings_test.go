package store

import (
	"context"
	"testing"

	"github.com/erazemk/zastavljalnica/internal/db"
)

func TestGetJWTSecret_GeneratesAndPersists(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	secret1, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if len(secret1) != 64 { // 32 bytes = 64 hex chars
		t.Fatalf("expected 64 hex chars, got %d", len(secret1))
	}

	secret2, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if secret1 != secret2 {
		t.Fatalf("expected same secret, got %q and %q", secret1, secret2)
	}
}

func TestSettings(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	v, err := GetSetting(ctx, database, SettingCompanyPhone)
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if v != "" {
		t.Errorf("expected empty, got %q", v)
	}

	SetSetting(ctx, database, SettingCompanyPhone, "021111111")
	SetSetting(ctx, database, SettingCompanyPhone, "022222222")

	v, _ = GetSetting(ctx, database, SettingCompanyPhone)
	if v != "022222222" {
		t.Errorf("expected overwritten value, got %q", v)
	}
}
