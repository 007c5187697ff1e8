package cache

import (
	"testing"
	"time"

	"github.com/ppiankov/toolrate/internal/model"
)

func TestPageCache_RoundTripKeepsText(t *testing.T) {
	pc := NewPageCache(NewMemoryCache(time.Minute, time.Minute), time.Minute)

	in := model.FetchResult{
		FinalURL:    "https://x.com/pricing",
		Status:      200,
		ContentType: "text/html",
		Text:        "<p>$29/month</p>",
	}
	if err := pc.Put("https://x.com/pricing", in); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok := pc.Get("https://x.com/pricing")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got != in {
		t.Errorf("got %+v, want %+v", got, in)
	}
}

func TestPageCache_SkipsFailures(t *testing.T) {
	mem := NewMemoryCache(time.Minute, time.Minute)
	pc := NewPageCache(mem, time.Minute)

	_ = pc.Put("https://x.com/missing", model.FetchResult{Status: 404})
	_ = pc.Put("https://x.com/down", model.FetchResult{})

	for _, url := range []string{"https://x.com/missing", "https://x.com/down"} {
		if _, ok := mem.Get(PageKey(url)); ok {
			t.Errorf("expected failed fetch of %s not to be cached", url)
		}
	}
}

func TestPageCache_DropsUndecodableEntry(t *testing.T) {
	mem := NewMemoryCache(time.Minute, time.Minute)
	pc := NewPageCache(mem, time.Minute)
	url := "https://x.com/pricing"

	if err := mem.Set(PageKey(url), []byte("{not json"), 0); err != nil {
		t.Fatal(err)
	}

	if _, ok := pc.Get(url); ok {
		t.Fatal("expected miss for undecodable entry")
	}
	if _, ok := mem.Get(PageKey(url)); ok {
		t.Error("expected undecodable entry to be deleted")
	}
}

func TestPageCache_ClearPurgesBothLayers(t *testing.T) {
	dir := t.TempDir()
	pc := NewPageCache(NewLayeredCache(time.Minute, dir, time.Hour), time.Hour)
	url := "https://x.com/pricing"

	if err := pc.Put(url, model.FetchResult{Status: 200, Text: "$29/month"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := pc.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	if _, ok := pc.Get(url); ok {
		t.Error("expected memory layer to be empty after Clear")
	}
	reopened := NewPageCache(NewLayeredCache(time.Minute, dir, time.Hour), time.Hour)
	if _, ok := reopened.Get(url); ok {
		t.Error("expected disk layer to be empty after Clear")
	}
}

func TestDiskCache_Expiry(t *testing.T) {
	dc := NewDiskCache(t.TempDir(), time.Hour)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	dc.now = func() time.Time { return now }

	if err := dc.Set("k1", []byte("v1"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if v, ok := dc.Get("k1"); !ok || string(v) != "v1" {
		t.Fatalf("expected hit, got %q %v", v, ok)
	}

	now = now.Add(2 * time.Hour)
	if _, ok := dc.Get("k1"); ok {
		t.Error("expected entry to expire")
	}
}

func TestDiskCache_DeleteMissingIsNotError(t *testing.T) {
	dc := NewDiskCache(t.TempDir(), time.Hour)
	if err := dc.Delete("absent"); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

func TestLayeredCache_DeleteRemovesBothLayers(t *testing.T) {
	dir := t.TempDir()
	lc := NewLayeredCache(time.Minute, dir, time.Hour)

	if err := lc.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := lc.Delete("k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, ok := lc.memory.Get("k"); ok {
		t.Error("expected memory entry to be deleted")
	}
	if _, ok := NewDiskCache(dir, time.Hour).Get("k"); ok {
		t.Error("expected disk entry to be deleted")
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	lc := NewLayeredCache(time.Minute, dir, time.Hour)

	// Seed only the disk layer
	disk := NewDiskCache(dir, time.Hour)
	if err := disk.Set("k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}

	if _, ok := lc.memory.Get("k"); ok {
		t.Fatal("memory layer should start empty")
	}
	if v, ok := lc.Get("k"); !ok || string(v) != "v" {
		t.Fatalf("expected layered hit, got %q %v", v, ok)
	}
	if _, ok := lc.memory.Get("k"); !ok {
		t.Error("expected disk hit to be promoted to memory")
	}
}
