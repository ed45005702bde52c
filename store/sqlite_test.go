package store

import (
	"bytes"
	"path/filepath"
	"testing"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteRoundTrip(t *testing.T) {
	s := newTestSQLite(t)

	if _, ok, err := s.Load("sessions"); err != nil || ok {
		t.Fatalf("load before save: ok=%v err=%v", ok, err)
	}

	if err := s.Save("sessions", []byte(`{"v":1}`)); err != nil {
		t.Fatal(err)
	}
	data, ok, err := s.Load("sessions")
	if err != nil || !ok {
		t.Fatalf("load after save: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(data, []byte(`{"v":1}`)) {
		t.Fatalf("data = %s", data)
	}

	// Upsert replaces the previous value.
	if err := s.Save("sessions", []byte(`{"v":2}`)); err != nil {
		t.Fatal(err)
	}
	data, _, _ = s.Load("sessions")
	if !bytes.Equal(data, []byte(`{"v":2}`)) {
		t.Fatalf("data after upsert = %s", data)
	}
}

func TestSQLiteDelete(t *testing.T) {
	s := newTestSQLite(t)

	if err := s.Save("scenarioProgress", []byte("{}")); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("scenarioProgress"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Load("scenarioProgress"); ok {
		t.Fatal("document survived delete")
	}
	if err := s.Delete("scenarioProgress"); err != nil {
		t.Fatal(err)
	}
}

func TestSQLiteKeysAreIndependent(t *testing.T) {
	s := newTestSQLite(t)

	s.Save("sessions", []byte("a"))
	s.Save("ttsHistory", []byte("b"))

	data, _, _ := s.Load("sessions")
	if !bytes.Equal(data, []byte("a")) {
		t.Fatalf("sessions = %s", data)
	}
	data, _, _ = s.Load("ttsHistory")
	if !bytes.Equal(data, []byte("b")) {
		t.Fatalf("ttsHistory = %s", data)
	}
}
