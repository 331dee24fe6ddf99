package store

import (
	"testing"
	"testing/fstest"
)

func TestParseMigrations_SortsAndSkipsForeignFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/0002_login_event.sql": {Data: []byte("CREATE TABLE login_event();")},
		"sql/0001_account.sql":     {Data: []byte("CREATE TABLE account();")},
		"sql/README.md":            {Data: []byte("docs")},
		"sql/embed.go":             {Data: []byte("package migrations")},
	}

	migs, err := NewMigrator(fsys, "sql").ParseMigrations()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(migs) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migs))
	}
	if migs[0].Version != 1 || migs[0].Name != "account" {
		t.Fatalf("unexpected first migration: %+v", migs[0])
	}
	if migs[1].Version != 2 || migs[1].SQL != "CREATE TABLE login_event();" {
		t.Fatalf("unexpected second migration: %+v", migs[1])
	}
}

func TestParseMigrations_RejectsDuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"0001_a.sql": {Data: []byte("SELECT 1;")},
		"1_b.sql":    {Data: []byte("SELECT 2;")},
	}
	if _, err := NewMigrator(fsys, ".").ParseMigrations(); err == nil {
		t.Fatal("expected duplicate version error")
	}
}
