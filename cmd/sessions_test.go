package cmd

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/jywlabs/scriptwiz/internal/session"
	"github.com/jywlabs/scriptwiz/internal/storage"
)

func newSessionStore(t *testing.T, ids ...string) *storage.FileStore {
	t.Helper()
	st := storage.NewFileStore(t.TempDir())
	for _, id := range ids {
		if err := st.Save(context.Background(), session.New(id)); err != nil {
			t.Fatalf("Save(%s) error: %v", id, err)
		}
	}
	return st
}

func TestDeleteSessions_Preview(t *testing.T) {
	st := newSessionStore(t, "a", "b")

	var out bytes.Buffer
	if err := deleteSessions(context.Background(), st, []string{"a"}, true, &out); err != nil {
		t.Fatalf("deleteSessions() error: %v", err)
	}
	if !strings.Contains(out.String(), "Would remove: a") {
		t.Errorf("output = %q", out.String())
	}
	if !strings.Contains(out.String(), "Would remove 1 session(s)") {
		t.Errorf("output = %q, missing summary", out.String())
	}

	ids, _ := st.List(context.Background())
	if !slices.Equal(ids, []string{"a", "b"}) {
		t.Errorf("List() = %v, preview must not remove anything", ids)
	}
}

func TestDeleteSessions_Remove(t *testing.T) {
	st := newSessionStore(t, "a", "b", "c")

	var out bytes.Buffer
	if err := deleteSessions(context.Background(), st, []string{"a", "c"}, false, &out); err != nil {
		t.Fatalf("deleteSessions() error: %v", err)
	}
	if !strings.Contains(out.String(), "Removed 2 session(s)") {
		t.Errorf("output = %q", out.String())
	}
	ids, _ := st.List(context.Background())
	if !slices.Equal(ids, []string{"b"}) {
		t.Errorf("List() = %v, want [b]", ids)
	}
}

func TestDeleteSessions_Nothing(t *testing.T) {
	st := newSessionStore(t)

	var out bytes.Buffer
	if err := deleteSessions(context.Background(), st, nil, false, &out); err != nil {
		t.Fatalf("deleteSessions() error: %v", err)
	}
	if !strings.Contains(out.String(), "No sessions to remove.") {
		t.Errorf("output = %q", out.String())
	}
}

func TestDeleteSessions_InvalidID(t *testing.T) {
	st := newSessionStore(t)
	if err := deleteSessions(context.Background(), st, []string{"../x"}, false, &bytes.Buffer{}); err == nil {
		t.Fatal("expected an error for an invalid id")
	}
}
