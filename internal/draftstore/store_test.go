package draftstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"folioBuilder/internal/database"
	"folioBuilder/internal/portfolio"
)

type fakeRedis struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (r *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := r.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (r *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		r.data[key] = string(v)
	case string:
		r.data[key] = v
	}
	r.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (r *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := r.data[k]; ok {
			delete(r.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func newTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// exerciseStore 对任意后端执行相同的读写删除检查。
func exerciseStore(t *testing.T, store portfolio.Store) {
	t.Helper()
	ctx := context.Background()
	key := portfolio.KeyFor("ws-1")

	if _, err := store.Get(ctx, key); !errors.Is(err, portfolio.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing key, got %v", err)
	}
	if err := store.Put(ctx, key, []byte(`{"name":"Ada"}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(ctx, key, []byte(`{"name":"Grace"}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `{"name":"Grace"}` {
		t.Fatalf("unexpected value %s", got)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, key); !errors.Is(err, portfolio.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestGormStore(t *testing.T) {
	exerciseStore(t, NewGormStore(newTestDB(t, "gormstore")))
}

func TestRedisStore(t *testing.T) {
	fake := newFakeRedis()
	exerciseStore(t, NewRedisStore(fake, time.Hour))

	store := NewRedisStore(fake, 30*time.Minute)
	if err := store.Put(context.Background(), "k", []byte("v")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if fake.ttls["k"] != 30*time.Minute {
		t.Fatalf("expected ttl to be forwarded, got %s", fake.ttls["k"])
	}
}

func TestBoltStore(t *testing.T) {
	store, err := OpenBoltStore(filepath.Join(t.TempDir(), "data", "folio.db"))
	if err != nil {
		t.Fatalf("open bolt: %v", err)
	}
	defer store.Close()
	exerciseStore(t, store)
}

func TestPersisterOverGormStore(t *testing.T) {
	ctx := context.Background()
	p := portfolio.NewPersister(NewGormStore(newTestDB(t, "persister")))

	f := portfolio.NewFormState()
	_ = f.SetField("name", "Ada")
	e, _ := f.AddEntry(portfolio.ListEducation)
	_, _ = f.UpdateEntry(portfolio.ListEducation, e.ID, map[string]string{"inst": "MIT"})
	p.Save(ctx, portfolio.KeyFor("ws"), f)

	loaded, ok := p.Load(ctx, portfolio.KeyFor("ws"))
	if !ok {
		t.Fatal("expected draft to load")
	}
	d := portfolio.Collect(loaded)
	if d.Name != "Ada" || len(d.Educations) != 1 || d.Educations[0].Institution != "MIT" {
		t.Fatalf("unexpected draft %+v", d)
	}
}
