package localcache

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"whiteboard-sync-server/internal/domain"
)

func TestCacheSaveLoadRoundtrip(t *testing.T) {
	cache := New(t.TempDir())

	set := domain.DefaultDocumentSet("")
	page := domain.NewMarkdownPage("Notes", set.Projects[0].ID, "")
	page.Content = "# offline"
	set.Pages = append(set.Pages, page)
	set.ActivePageID = page.ID

	if err := cache.Save("guest", set); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded := cache.Load("guest")
	if len(loaded.Projects) != 1 || loaded.Projects[0].ID != set.Projects[0].ID {
		t.Errorf("Load() projects = %+v, want saved project", loaded.Projects)
	}
	if len(loaded.Pages) != 1 || loaded.Pages[0].Content != "# offline" {
		t.Errorf("Load() pages = %+v, want saved page", loaded.Pages)
	}
	if loaded.ActivePageID != page.ID {
		t.Errorf("Load() active page = %q, want %q", loaded.ActivePageID, page.ID)
	}
}

func TestCacheLoadMissingBlobYieldsDefaults(t *testing.T) {
	cache := New(t.TempDir())

	loaded := cache.Load("never-saved")
	if len(loaded.Projects) != 1 || loaded.Projects[0].Name != domain.DefaultProjectName {
		t.Errorf("Load() = %+v, want default document set", loaded)
	}
	if loaded.ActiveProjectID != loaded.Projects[0].ID {
		t.Error("Load() default set has no active project")
	}
}

func TestCacheLoadMalformedBlobRecovers(t *testing.T) {
	dir := t.TempDir()
	cache := New(dir)

	if err := cache.Save("guest", domain.DefaultDocumentSet("")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one cache blob, got %d (err %v)", len(entries), err)
	}
	blob := filepath.Join(dir, entries[0].Name())
	if err := os.WriteFile(blob, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("failed to corrupt blob: %v", err)
	}

	loaded := cache.Load("guest")
	if len(loaded.Projects) != 1 || loaded.Projects[0].Name != domain.DefaultProjectName {
		t.Errorf("Load() after corruption = %+v, want default document set", loaded)
	}
}

func TestCacheKeysDoNotCollide(t *testing.T) {
	cache := New(t.TempDir())

	setA := domain.DefaultDocumentSet("")
	setA.Projects[0].Name = "Set A"
	setB := domain.DefaultDocumentSet("")
	setB.Projects[0].Name = "Set B"

	if err := cache.Save("key-a", setA); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := cache.Save("key-b", setB); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if got := cache.Load("key-a").Projects[0].Name; got != "Set A" {
		t.Errorf("Load(key-a) = %q, want Set A", got)
	}
	if got := cache.Load("key-b").Projects[0].Name; got != "Set B" {
		t.Errorf("Load(key-b) = %q, want Set B", got)
	}
}

func TestDebouncerSupersedesPendingFlush(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var fired int32
	for i := 0; i < 5; i++ {
		d.Schedule(func() { atomic.AddInt32(&fired, 1) })
		time.Sleep(2 * time.Millisecond)
	}

	time.Sleep(60 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Errorf("debounced flush fired %d times, want exactly 1", got)
	}
}

func TestDebouncerCancel(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)

	var fired int32
	d.Schedule(func() { atomic.AddInt32(&fired, 1) })
	d.Cancel()

	time.Sleep(40 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 0 {
		t.Errorf("cancelled flush still fired %d times", got)
	}
}
