package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestNewStore(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewStore(tmpDir, nil)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	if store == nil {
		t.Fatal("NewStore() returned nil")
	}

	want := filepath.Join(tmpDir, DocumentName)
	if store.Path() != want {
		t.Errorf("Path() = %v, want %v", store.Path(), want)
	}
}

func TestNewStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	newDir := filepath.Join(tmpDir, "subdir", "nested")

	if _, err := NewStore(newDir, nil); err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	info, err := os.Stat(newDir)
	if err != nil {
		t.Fatalf("directory not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("expected directory, got file")
	}
}

func TestStore_SetManyGet(t *testing.T) {
	store, _ := NewStore(t.TempDir(), nil)

	if err := store.SetMany(map[string]string{"authToken": "abc"}); err != nil {
		t.Fatalf("SetMany() error = %v", err)
	}

	got, ok, err := store.Get("authToken")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if got != "abc" {
		t.Errorf("Get() = %q, want %q", got, "abc")
	}
}

func TestStore_Get_Missing(t *testing.T) {
	store, _ := NewStore(t.TempDir(), nil)

	got, ok, err := store.Get("nope")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok || got != "" {
		t.Errorf("Get() = (%q, %v), want (\"\", false)", got, ok)
	}
}

func TestStore_SetMany_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	first, _ := NewStore(dir, nil)

	err := first.SetMany(map[string]string{
		"authToken": "t1",
		"user":      `{"name":"A"}`,
	})
	if err != nil {
		t.Fatalf("SetMany() error = %v", err)
	}

	second, _ := NewStore(dir, nil)
	token, _, _ := second.Get("authToken")
	user, _, _ := second.Get("user")
	if token != "t1" {
		t.Errorf("token = %q, want t1", token)
	}
	if user != `{"name":"A"}` {
		t.Errorf("user = %q, want {\"name\":\"A\"}", user)
	}
}

func TestStore_DocumentPermissions(t *testing.T) {
	store, _ := NewStore(t.TempDir(), nil)
	if err := store.SetMany(map[string]string{"authToken": "secret"}); err != nil {
		t.Fatalf("SetMany() error = %v", err)
	}

	info, err := os.Stat(store.Path())
	if err != nil {
		t.Fatalf("stat document: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("document mode = %o, want 600", perm)
	}
}

func TestStore_Delete(t *testing.T) {
	store, _ := NewStore(t.TempDir(), nil)
	store.SetMany(map[string]string{"a": "1", "b": "2", "c": "3"})

	if err := store.Delete("a", "b", "missing"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	keys, err := store.Keys()
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if len(keys) != 1 || keys[0] != "c" {
		t.Errorf("Keys() = %v, want [c]", keys)
	}
}

func TestStore_Delete_Idempotent(t *testing.T) {
	store, _ := NewStore(t.TempDir(), nil)

	for i := 0; i < 3; i++ {
		if err := store.Delete("authToken", "user"); err != nil {
			t.Fatalf("Delete() #%d error = %v", i, err)
		}
	}
}

func TestStore_CorruptDocument(t *testing.T) {
	store, _ := NewStore(t.TempDir(), nil)
	if err := os.WriteFile(store.Path(), []byte("{not json"), 0600); err != nil {
		t.Fatalf("write corrupt document: %v", err)
	}

	_, _, err := store.Get("authToken")
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Get() error = %v, want ErrCorrupt", err)
	}

	// A write replaces the corrupt document
	if err := store.SetMany(map[string]string{"authToken": "fresh"}); err != nil {
		t.Fatalf("Set() after corruption error = %v", err)
	}
	got, ok, err := store.Get("authToken")
	if err != nil || !ok || got != "fresh" {
		t.Errorf("Get() = (%q, %v, %v), want (fresh, true, nil)", got, ok, err)
	}
}

func TestStore_Keys_Sorted(t *testing.T) {
	store, _ := NewStore(t.TempDir(), nil)
	store.SetMany(map[string]string{"user": "{}", "authToken": "x"})

	keys, _ := store.Keys()
	if len(keys) != 2 || keys[0] != "authToken" || keys[1] != "user" {
		t.Errorf("Keys() = %v, want [authToken user]", keys)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store, _ := NewStore(t.TempDir(), nil)

	var wg sync.WaitGroup
	iterations := 50

	for i := 0; i < iterations; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			store.SetMany(map[string]string{fmt.Sprintf("key-%d", n): fmt.Sprintf("%d", n)})
		}(i)
		go func(n int) {
			defer wg.Done()
			store.Get(fmt.Sprintf("key-%d", n))
		}(i)
	}
	wg.Wait()

	keys, err := store.Keys()
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if len(keys) != iterations {
		t.Errorf("len(Keys()) = %d, want %d", len(keys), iterations)
	}
}

// syncBuffer is a log sink safe to read while the watcher writes
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStore_Watch(t *testing.T) {
	dir := t.TempDir()
	logs := &syncBuffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	store, _ := NewStore(dir, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 16)
	if err := store.Watch(ctx, func() { changed <- struct{}{} }); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	// A second handle on the same directory stands in for another process
	other, _ := NewStore(dir, nil)
	if err := other.SetMany(map[string]string{"authToken": "abc"}); err != nil {
		t.Fatalf("SetMany() error = %v", err)
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification after external write")
	}

	if !strings.Contains(logs.String(), "storage document changed") {
		t.Errorf("change not logged through the store logger, got %q", logs.String())
	}
}

func TestStore_Watch_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewStore(dir, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 16)
	if err := store.Watch(ctx, func() { changed <- struct{}{} }); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0600); err != nil {
		t.Fatalf("write unrelated file: %v", err)
	}

	select {
	case <-changed:
		t.Fatal("unexpected notification for unrelated file")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestMemory(t *testing.T) {
	m := NewMemory()

	if err := m.SetMany(map[string]string{"authToken": "t", "user": "{}"}); err != nil {
		t.Fatalf("SetMany() error = %v", err)
	}
	if v, ok, _ := m.Get("authToken"); !ok || v != "t" {
		t.Errorf("Get(authToken) = (%q, %v), want (t, true)", v, ok)
	}

	m.Delete("authToken", "user")
	keys, _ := m.Keys()
	if len(keys) != 0 {
		t.Errorf("Keys() after Delete = %v, want empty", keys)
	}
}
