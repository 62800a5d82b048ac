package partychat

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/pebble/vfs"
	"github.com/google/go-cmp/cmp"
)

// storageBackends opens every backend against fresh temporary state.
func storageBackends(t *testing.T) map[string]Storage {
	t.Helper()

	file, err := NewFileStorage(filepath.Join(t.TempDir(), "store"))
	if err != nil {
		t.Fatal(err)
	}
	peb, err := OpenPebbleStorage("pebble", vfs.NewMem())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { peb.Close() })
	lite, err := OpenSQLiteStorage(filepath.Join(t.TempDir(), "partychat.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { lite.Close() })

	return map[string]Storage{
		"memory": NewMemoryStorage(),
		"file":   file,
		"pebble": peb,
		"sqlite": lite,
	}
}

func TestStorageBackends(t *testing.T) {
	for name, s := range storageBackends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Get("partychat:missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get(missing) err = %v, want ErrNotFound", err)
			}

			if err := s.Set("partychat:roomMessages:alice", []byte(`{"a":1}`)); err != nil {
				t.Fatal(err)
			}
			if err := s.Set("partychat:roomMessages:alice", []byte(`{"a":2}`)); err != nil {
				t.Fatal(err)
			}
			got, err := s.Get("partychat:roomMessages:alice")
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != `{"a":2}` {
				t.Fatalf("Get = %s, want overwritten value", got)
			}

			if err := s.Set("partychat:dmThreads:alice", []byte(`[]`)); err != nil {
				t.Fatal(err)
			}
			if err := s.Set("other:key", []byte(`x`)); err != nil {
				t.Fatal(err)
			}

			lister, ok := s.(KeyLister)
			if !ok {
				return
			}
			keys, err := lister.Keys("partychat:")
			if err != nil {
				t.Fatal(err)
			}
			want := []string{"partychat:dmThreads:alice", "partychat:roomMessages:alice"}
			if diff := cmp.Diff(want, keys); diff != "" {
				t.Fatalf("Keys mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMemoryStorageCopies(t *testing.T) {
	s := NewMemoryStorage()
	value := []byte("abc")
	if err := s.Set("k", value); err != nil {
		t.Fatal(err)
	}
	value[0] = 'z'
	got, _ := s.Get("k")
	got[1] = 'z'
	again, _ := s.Get("k")
	if string(again) != "abc" {
		t.Fatalf("stored value changed to %q", again)
	}
}

func TestFileStorageName(t *testing.T) {
	if got := fileName("partychat:roomMessages:a/b"); got != "partychat_roomMessages_a_b.json" {
		t.Fatalf("fileName = %q", got)
	}
}
