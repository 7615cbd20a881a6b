package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "catalog.json"))

	if _, err := store.Load(ctx); !errors.Is(err, ErrNothingPersisted) {
		t.Fatalf("expected ErrNothingPersisted for a missing file, got %v", err)
	}

	want := Catalog{ProjectName: "Demo", Services: []Item{{Name: "A", Price: 1.25}, {Name: "B", Price: 0}}}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestFileStoreReadsLegacyPriceMap(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".service_config.json")
	if err := os.WriteFile(path, []byte(`{"0": 30, "2": 7.5, "nope": 1, "999": 3, "4": "x"}`), 0o600); err != nil {
		t.Fatalf("write legacy file: %v", err)
	}

	got, err := NewFileStore(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	defaults := DefaultCatalog()
	if len(got.Services) != len(defaults.Services) {
		t.Fatalf("expected %d services, got %d", len(defaults.Services), len(got.Services))
	}
	if got.Services[0].Price != 30 || got.Services[2].Price != 7.5 {
		t.Fatalf("legacy prices not applied: %+v %+v", got.Services[0], got.Services[2])
	}
	if got.Services[1].Price != defaults.Services[1].Price || got.Services[4].Price != defaults.Services[4].Price {
		t.Fatalf("missing or malformed keys must keep default prices")
	}
}

func TestFileStoreRejectsMalformedDocument(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	_, err := NewFileStore(path).Load(context.Background())
	if err == nil || errors.Is(err, ErrNothingPersisted) {
		t.Fatalf("expected a decode error, got %v", err)
	}
}

func TestMemoryStoreWithFileStoreSurvivesRestart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.json")

	first := NewMemoryStore(WithPersister(NewFileStore(path)))
	first.Load(ctx)
	if _, err := first.AddItem(ctx, Item{Name: "Extra", Price: 4.2}); err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}

	second := NewMemoryStore(WithPersister(NewFileStore(path)))
	second.Load(ctx)
	got, err := second.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot returned error: %v", err)
	}
	if len(got.Services) != len(DefaultCatalog().Services)+1 {
		t.Fatalf("expected added service to be persisted, got %d services", len(got.Services))
	}
	if last := got.Services[len(got.Services)-1]; last != (Item{Name: "Extra", Price: 4.2}) {
		t.Fatalf("unexpected last service %+v", last)
	}
}
