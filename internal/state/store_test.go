package state

import (
	"testing"

	"github.com/dokzlo13/ledpanel/internal/db"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database.DB)
}

func TestStore_Versions(t *testing.T) {
	s := newStore(t)

	payload, version, err := s.Get("doc", "x")
	if err != nil || payload != nil || version != 0 {
		t.Fatalf("Get(missing) = %q, %d, %v", payload, version, err)
	}

	if err := s.Set("doc", "x", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Set("doc", "x", []byte(`{"a":2}`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	payload, version, err = s.Get("doc", "x")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(payload) != `{"a":2}` || version != 2 {
		t.Errorf("Get() = %s v%d, want {\"a\":2} v2", payload, version)
	}

	if err := s.Delete("doc", "x"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if payload, _, _ := s.Get("doc", "x"); payload != nil {
		t.Error("document still present after Delete")
	}
}

func TestStore_Clear(t *testing.T) {
	s := newStore(t)
	s.Set("a", "1", []byte("1"))
	s.Set("b", "1", []byte("1"))

	if err := s.Clear("a"); err != nil {
		t.Fatalf("Clear(a) error = %v", err)
	}
	if p, _, _ := s.Get("a", "1"); p != nil {
		t.Error("kind a not cleared")
	}
	if p, _, _ := s.Get("b", "1"); p == nil {
		t.Error("kind b cleared")
	}

	if err := s.Clear(""); err != nil {
		t.Fatalf("Clear(all) error = %v", err)
	}
	if p, _, _ := s.Get("b", "1"); p != nil {
		t.Error("Clear(\"\") left documents")
	}
}

func TestTypedStore(t *testing.T) {
	type doc struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	ts := NewTypedStore[doc](newStore(t), "doc")

	if _, ok, err := ts.Get("x"); ok || err != nil {
		t.Fatalf("Get(missing) = %v, %v", ok, err)
	}
	if err := ts.Set("x", doc{Name: "n", Count: 3}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, ok, err := ts.Get("x")
	if err != nil || !ok || got != (doc{Name: "n", Count: 3}) {
		t.Errorf("Get() = %+v, %v, %v", got, ok, err)
	}
	if ts.Kind() != "doc" {
		t.Errorf("Kind() = %q", ts.Kind())
	}
}
