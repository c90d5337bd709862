package scriptstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suyash-sneo/scriptstore/internal/fakestore"
	"github.com/suyash-sneo/scriptstore/store"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestRepo(t *testing.T) (*Repository, *fakestore.Store, *testClock) {
	t.Helper()
	fs := fakestore.New()
	clock := &testClock{now: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)}
	seq := 0
	ids := IDGeneratorFunc(func(now time.Time) (string, error) {
		seq++
		return fmt.Sprintf("%d%09d", now.UnixMilli(), seq), nil
	})
	return NewRepository(fs, WithNow(clock.Now), WithIDGenerator(ids)), fs, clock
}

func TestCreateStoresRecordAndIndex(t *testing.T) {
	repo, fs, clock := newTestRepo(t)
	ctx := context.Background()

	s, err := repo.Create(ctx, CreateInput{Name: "My Cool Script!", Content: "echo hi"})
	require.NoError(t, err)

	assert.Equal(t, "my-cool-script", s.Name)
	assert.Equal(t, "My Cool Script!", s.OriginalName)
	assert.Equal(t, "echo hi", s.Content)
	assert.Equal(t, clock.now, s.Created)
	assert.Equal(t, s.Created, s.Updated)

	id, ok := fs.Raw("name:my-cool-script")
	require.True(t, ok, "index entry missing")
	assert.Equal(t, s.ID, id)

	raw, ok := fs.Raw("script:" + s.ID)
	require.True(t, ok, "primary record missing")
	stored, err := decodeScript([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, s, stored)

	members, err := fs.Members(ctx, AllScriptsKey)
	require.NoError(t, err)
	assert.Equal(t, []string{s.ID}, members)
}

func TestCreateRequiresNameAndContent(t *testing.T) {
	repo, fs, _ := newTestRepo(t)
	ctx := context.Background()

	for _, in := range []CreateInput{{Name: "x"}, {Content: "y"}, {}} {
		_, err := repo.Create(ctx, in)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "Name and content are required", verr.Message)
	}
	assert.Zero(t, fs.Writes(), "validation failures must not write")
}

func TestCreateDisambiguatesTakenSlug(t *testing.T) {
	repo, fs, _ := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.Create(ctx, CreateInput{Name: "Deploy", Content: "a"})
	require.NoError(t, err)
	second, err := repo.Create(ctx, CreateInput{Name: "deploy!", Content: "b"})
	require.NoError(t, err)
	third, err := repo.Create(ctx, CreateInput{Name: "DEPLOY", Content: "c"})
	require.NoError(t, err)

	assert.Equal(t, "deploy", first.Name)
	assert.Equal(t, "deploy-2", second.Name)
	assert.Equal(t, "deploy-3", third.Name)

	id, _ := fs.Raw("name:deploy")
	assert.Equal(t, first.ID, id)
	id, _ = fs.Raw("name:deploy-2")
	assert.Equal(t, second.ID, id)
}

func TestCreateWithoutAlphanumericsFallsBackToID(t *testing.T) {
	repo, fs, _ := newTestRepo(t)

	s, err := repo.Create(context.Background(), CreateInput{Name: "???", Content: "x"})
	require.NoError(t, err)
	assert.Equal(t, "script-"+s.ID, s.Name)
	assert.Equal(t, "???", s.OriginalName)
	_, ok := fs.Raw("name:script-" + s.ID)
	assert.True(t, ok)
}

func TestListReturnsAllAndSkipsCorrupt(t *testing.T) {
	repo, fs, _ := newTestRepo(t)
	ctx := context.Background()

	empty, err := repo.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	a, err := repo.Create(ctx, CreateInput{Name: "a", Content: "1"})
	require.NoError(t, err)
	b, err := repo.Create(ctx, CreateInput{Name: "b", Content: "2"})
	require.NoError(t, err)
	require.NoError(t, fs.Set(ctx, "script:broken", []byte("{not json")))

	scripts, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, scripts, 2)
	assert.Equal(t, a, scripts[a.ID])
	assert.Equal(t, b, scripts[b.ID])
	assert.NotContains(t, scripts, "broken")
}

func TestListSkipsEntriesOfWrongType(t *testing.T) {
	repo, fs, _ := newTestRepo(t)
	ctx := context.Background()

	a, err := repo.Create(ctx, CreateInput{Name: "a", Content: "1"})
	require.NoError(t, err)
	_, err = fs.Pipeline(ctx, store.SAdd("script:set", "member"))
	require.NoError(t, err)

	scripts, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]Script{a.ID: a}, scripts)

	report, err := repo.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"set"}, report.Unreadable)
	assert.False(t, report.Changed())
}

func TestListAcceptsStringEncodedRecords(t *testing.T) {
	repo, fs, _ := newTestRepo(t)
	ctx := context.Background()

	legacy := `"{\"id\":\"old1\",\"name\":\"legacy\",\"originalName\":\"Legacy\",\"content\":\"ls\",\"created\":\"2024-01-02T03:04:05.678Z\",\"updated\":\"2024-01-02T03:04:05.678Z\"}"`
	require.NoError(t, fs.Set(ctx, "script:old1", []byte(legacy)))

	scripts, err := repo.List(ctx)
	require.NoError(t, err)
	require.Contains(t, scripts, "old1")
	assert.Equal(t, "legacy", scripts["old1"].Name)
	assert.Equal(t, "ls", scripts["old1"].Content)
	assert.Equal(t, 678*time.Millisecond, time.Duration(scripts["old1"].Created.Nanosecond()))
}

func TestUpdateReplacesContentOnly(t *testing.T) {
	repo, fs, clock := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, CreateInput{Name: "job", Content: "v1"})
	require.NoError(t, err)

	clock.Advance(1500 * time.Millisecond)
	updated, err := repo.Update(ctx, UpdateInput{ID: created.ID, Content: "v2"})
	require.NoError(t, err)

	assert.Equal(t, "v2", updated.Content)
	assert.Equal(t, created.Created, updated.Created)
	assert.Equal(t, created.Name, updated.Name)
	assert.Equal(t, created.OriginalName, updated.OriginalName)
	assert.True(t, updated.Updated.After(created.Updated))

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	id, _ := fs.Raw("name:job")
	assert.Equal(t, created.ID, id)
}

func TestUpdateNeverMovesUpdatedBackwards(t *testing.T) {
	repo, _, clock := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, CreateInput{Name: "job", Content: "v1"})
	require.NoError(t, err)

	clock.Advance(-time.Hour)
	updated, err := repo.Update(ctx, UpdateInput{ID: created.ID, Content: "v2"})
	require.NoError(t, err)
	assert.Equal(t, created.Updated, updated.Updated)
	assert.False(t, updated.Updated.Before(updated.Created))
}

func TestUpdateErrors(t *testing.T) {
	repo, fs, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Update(ctx, UpdateInput{ID: "x"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "ID and content are required", verr.Message)

	_, err = repo.Update(ctx, UpdateInput{ID: "nonexistent", Content: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, fs.Set(ctx, "script:bad", []byte("[]")))
	_, err = repo.Update(ctx, UpdateInput{ID: "bad", Content: "x"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.False(t, errors.As(err, &verr))
}

func TestDeleteRemovesRecordAndIndex(t *testing.T) {
	repo, fs, _ := newTestRepo(t)
	ctx := context.Background()

	s, err := repo.Create(ctx, CreateInput{Name: "foo", Content: "bar"})
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, s.ID))

	_, ok := fs.Raw("script:" + s.ID)
	assert.False(t, ok)
	_, ok = fs.Raw("name:foo")
	assert.False(t, ok)
	members, err := fs.Members(ctx, AllScriptsKey)
	require.NoError(t, err)
	assert.Empty(t, members)

	scripts, err := repo.List(ctx)
	require.NoError(t, err)
	assert.NotContains(t, scripts, s.ID)

	assert.ErrorIs(t, repo.Delete(ctx, s.ID), ErrNotFound)
}

func TestDeleteKeepsIndexOwnedByAnotherScript(t *testing.T) {
	repo, fs, _ := newTestRepo(t)
	ctx := context.Background()

	s, err := repo.Create(ctx, CreateInput{Name: "foo", Content: "bar"})
	require.NoError(t, err)
	require.NoError(t, fs.Set(ctx, "name:foo", []byte("someone-else")))

	require.NoError(t, repo.Delete(ctx, s.ID))
	id, ok := fs.Raw("name:foo")
	require.True(t, ok)
	assert.Equal(t, "someone-else", id)
}

func TestDeleteRequiresID(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	err := repo.Delete(context.Background(), "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "ID is required", verr.Message)
}

func TestLookupByName(t *testing.T) {
	repo, fs, _ := newTestRepo(t)
	ctx := context.Background()

	s, err := repo.Create(ctx, CreateInput{Name: "Backup DB", Content: "pg_dump"})
	require.NoError(t, err)

	got, err := repo.Lookup(ctx, "backup-db")
	require.NoError(t, err)
	assert.Equal(t, s, got)

	_, err = repo.Lookup(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, fs.Set(ctx, "name:dangling", []byte("gone")))
	_, err = repo.Lookup(ctx, "dangling")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreFailuresPropagate(t *testing.T) {
	repo, fs, _ := newTestRepo(t)
	ctx := context.Background()
	s, err := repo.Create(ctx, CreateInput{Name: "a", Content: "1"})
	require.NoError(t, err)

	boom := errors.New("connection refused")
	fs.Fail(boom)
	defer fs.Fail(nil)

	_, err = repo.List(ctx)
	assert.ErrorIs(t, err, boom)
	_, err = repo.Create(ctx, CreateInput{Name: "b", Content: "2"})
	assert.ErrorIs(t, err, boom)
	_, err = repo.Update(ctx, UpdateInput{ID: s.ID, Content: "3"})
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, repo.Delete(ctx, s.ID), boom)
}

func TestProbe(t *testing.T) {
	repo, fs, _ := newTestRepo(t)
	ctx := context.Background()

	res, err := repo.Probe(ctx)
	require.NoError(t, err)
	assert.Equal(t, "test-value", res.Value)
	_, ok := fs.Raw("test-key")
	assert.False(t, ok, "probe key should be cleaned up")

	fs.Fail(errors.New("down"))
	_, err = repo.Probe(ctx)
	assert.Error(t, err)
}
