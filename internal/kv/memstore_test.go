package kv_test

import (
	"bytes"
	"testing"

	"github.com/flemzord/mnemo/internal/kv"
)

func TestMemStore_GetSetDelete(t *testing.T) {
	t.Parallel()

	s := kv.NewMemStore()

	if _, ok, err := s.Get("missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok=%v, err=%v; want absent, nil", ok, err)
	}

	if err := s.Set("doc", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Set: unexpected error: %v", err)
	}
	got, ok, err := s.Get("doc")
	if err != nil || !ok {
		t.Fatalf("Get(doc) = ok=%v, err=%v; want present, nil", ok, err)
	}
	if !bytes.Equal(got, []byte(`{"a":1}`)) {
		t.Errorf("Get(doc) = %q, want %q", got, `{"a":1}`)
	}

	if err := s.Set("doc", []byte(`{"a":2}`)); err != nil {
		t.Fatalf("Set(overwrite): unexpected error: %v", err)
	}
	got, _, _ = s.Get("doc")
	if !bytes.Equal(got, []byte(`{"a":2}`)) {
		t.Errorf("after overwrite: Get(doc) = %q, want %q", got, `{"a":2}`)
	}

	if err := s.Delete("doc"); err != nil {
		t.Fatalf("Delete: unexpected error: %v", err)
	}
	if _, ok, _ := s.Get("doc"); ok {
		t.Error("Get after Delete reports present")
	}

	// Deleting a missing key is a no-op.
	if err := s.Delete("doc"); err != nil {
		t.Errorf("Delete(missing): unexpected error: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("Close: unexpected error: %v", err)
	}
}

func TestMemStore_CopiesDocuments(t *testing.T) {
	t.Parallel()

	s := kv.NewMemStore()

	in := []byte("original")
	if err := s.Set("doc", in); err != nil {
		t.Fatalf("Set: unexpected error: %v", err)
	}
	in[0] = 'X'

	got, _, _ := s.Get("doc")
	if !bytes.Equal(got, []byte("original")) {
		t.Errorf("stored document aliased the caller's slice: %q", got)
	}

	got[0] = 'Y'
	again, _, _ := s.Get("doc")
	if !bytes.Equal(again, []byte("original")) {
		t.Errorf("returned document aliased store state: %q", again)
	}
}
