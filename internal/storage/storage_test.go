package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/jywlabs/scriptwiz/internal/session"
	"github.com/jywlabs/scriptwiz/internal/table"
)

func sample(id string) *session.Session {
	s := session.New(id)
	s.API = session.APIConfig{Provider: "OpenAI", APIKey: "sk-test", BaseURL: "https://example.test/v1", Model: "gpt-4o", Configured: true}
	s.Topic = "咖啡的历史"
	s.Outline = "1. 起源\n2. 传播"
	s.Storyboard = &table.Table{Columns: []string{"Scene", "Narration"}}
	s.Storyboard.Append("1", "很久以前")
	s.SetImagePrompt("1", "slow zoom")
	return s
}

// stores returns every backend that can run without external services.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()

	sqlite, err := Open(ctx, Options{Backend: BackendSQLite, Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"file":   NewFileStore(t.TempDir()),
		"sqlite": sqlite,
	}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want := sample("abc")

			if err := st.Save(ctx, want); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			got, err := st.Load(ctx, "abc")
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}

			if got.Topic != want.Topic || got.Outline != want.Outline {
				t.Errorf("text artifacts differ: %q/%q", got.Topic, got.Outline)
			}
			if got.API != want.API {
				t.Errorf("API differs: %+v", got.API)
			}
			if !reflect.DeepEqual(got.Storyboard.Columns, want.Storyboard.Columns) {
				t.Errorf("storyboard columns differ: %v", got.Storyboard.Columns)
			}
			if v, _ := got.Storyboard.Rows[0].Get("Narration"); v != "很久以前" {
				t.Errorf("storyboard row differs: %q", v)
			}
			if got.ImagePrompts["1"] != "slow zoom" {
				t.Errorf("image prompts differ: %v", got.ImagePrompts)
			}
		})
	}
}

func TestStore_Overwrite(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := sample("abc")
			if err := st.Save(ctx, s); err != nil {
				t.Fatal(err)
			}
			s.Topic = "tea"
			if err := st.Save(ctx, s); err != nil {
				t.Fatal(err)
			}

			got, err := st.Load(ctx, "abc")
			if err != nil {
				t.Fatal(err)
			}
			if got.Topic != "tea" {
				t.Errorf("expected overwritten topic, got %q", got.Topic)
			}
		})
	}
}

func TestStore_NotFoundAndDelete(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := st.Load(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}

			if err := st.Save(ctx, sample("b")); err != nil {
				t.Fatal(err)
			}
			if err := st.Save(ctx, sample("a")); err != nil {
				t.Fatal(err)
			}
			ids, err := st.List(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(ids, []string{"a", "b"}) {
				t.Errorf("expected [a b], got %v", ids)
			}

			if err := st.Delete(ctx, "a"); err != nil {
				t.Fatal(err)
			}
			if err := st.Delete(ctx, "a"); err != nil {
				t.Errorf("second delete should succeed, got %v", err)
			}
			if _, err := st.Load(ctx, "a"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound after delete, got %v", err)
			}
		})
	}
}

func TestStore_RejectsUnsafeIDs(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, id := range []string{"", "../etc", "a/b", ".hidden"} {
				if _, err := st.Load(ctx, id); err == nil || errors.Is(err, ErrNotFound) {
					t.Errorf("Load(%q): expected validation error, got %v", id, err)
				}
			}
		})
	}
}

func TestFileStore_AtomicWrite(t *testing.T) {
	dir := t.TempDir()
	st := NewFileStore(dir)
	if err := st.Save(context.Background(), sample("abc")); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(dir, SessionsDir, "abc.json.tmp")); !os.IsNotExist(err) {
		t.Error("temp file should be renamed away")
	}
	info, err := os.Stat(filepath.Join(dir, SessionsDir, "abc.json"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
	}
}

func TestLoadOrNew(t *testing.T) {
	st := NewFileStore(t.TempDir())
	s, err := LoadOrNew(context.Background(), st, "fresh")
	if err != nil {
		t.Fatalf("LoadOrNew failed: %v", err)
	}
	if s.ID != "fresh" || s.Topic != "" {
		t.Errorf("expected new empty session, got %+v", s)
	}
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()
	if _, err := Open(ctx, Options{Backend: "mongo"}); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, err := Open(ctx, Options{Backend: BackendPostgres}); err == nil {
		t.Error("expected error for postgres without dsn")
	}
	if _, err := Open(ctx, Options{Backend: BackendLibSQL}); err == nil {
		t.Error("expected error for libsql without dsn")
	}
}
