package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/erp/construction/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"add billing index": "add_billing_index",
		"Add-Stock-Items":   "add_stock_items",
		"add__cash__ledger": "add_cash_ledger",
		"   spaces   ":      "spaces",
		"special!@#$chars":  "specialchars",
		"trailing_":         "trailing",
		"_leading":          "leading",
		"":                  "",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeName(in), in)
	}
}

func TestCreateMigration_NumbersSequentially(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "add cash index", "speed up journal listing")
	require.NoError(t, err)
	assert.Equal(t, uint(1), first.Version)
	assert.Equal(t, filepath.Join(dir, "000001_add_cash_index.up.sql"), first.UpPath)

	content, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "-- Description: speed up journal listing")

	second, err := CreateMigration(dir, "Add Stock Check", "")
	require.NoError(t, err)
	assert.Equal(t, uint(2), second.Version)
	assert.FileExists(t, second.DownPath)

	list, err := ListMigrations(dir)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "add_cash_index", list[0].Name)
	assert.Equal(t, "add_stock_check", list[1].Name)

	_, err = CreateMigration(dir, "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations_MissingDir(t *testing.T) {
	list, err := ListMigrations(filepath.Join(t.TempDir(), "none"))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := migrations.FS.ReadDir(".")
	require.NoError(t, err)

	dir := t.TempDir()
	for _, e := range entries {
		data, err := migrations.FS.ReadFile(e.Name())
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, e.Name()), data, 0o644))
	}

	list, err := ListMigrations(dir)
	require.NoError(t, err)
	require.NotEmpty(t, list)
	for i, mf := range list {
		assert.Equal(t, uint(i+1), mf.Version, "versions have no gaps")
		assert.NotEmpty(t, mf.UpPath, mf.Name)
		assert.NotEmpty(t, mf.DownPath, mf.Name)
	}
}
