package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"userserve/internal/store"
)

var userKind = Kind{Name: "User", Collection: "users", Prefix: "USR"}

func newTestService(t *testing.T) (*Commonserve, *store.MemoryStore) {
	t.Helper()
	st := newMemoryStoreWithIndex(t)
	return NewCommonserve(st, zap.NewNop()), st
}

func newMemoryStoreWithIndex(t *testing.T) *store.MemoryStore {
	t.Helper()
	st := store.NewMemoryStore()
	require.NoError(t, st.EnsureUniqueIndex(context.Background(), userKind.Collection, userKind.IDField()))
	return st
}

func TestKindNaming(t *testing.T) {
	assert.Equal(t, "USR", userKind.Prefix)
	assert.Equal(t, "userId", userKind.IDField())

	product := Kind{Name: "Product", Collection: "products", Prefix: "PRO"}
	assert.Equal(t, "productId", product.IDField())
}

func TestSequentialIDsAreIncreasing(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var prev string
	for i := 1; i <= 12; i++ {
		result := svc.Add(ctx, userKind, store.Document{"username": fmt.Sprintf("u%d", i)})
		require.True(t, result.Success, result.Err)

		doc := result.Data.(store.Document)
		id := doc["userId"].(string)
		assert.Equal(t, fmt.Sprintf("USR%05d", i), id)
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestGetByIDAfterAdd(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	added := svc.Add(ctx, userKind, store.Document{"email": "a@x.com"})
	require.True(t, added.Success)
	id := added.Data.(store.Document)["userId"].(string)

	got := svc.GetByID(ctx, userKind, id)
	require.True(t, got.Success)
	require.NotNil(t, got.Data)
	assert.Equal(t, id, got.Data.(store.Document)["userId"])
}

func TestGetByIDMissingIsSuccessWithNilData(t *testing.T) {
	svc, _ := newTestService(t)

	result := svc.GetByID(context.Background(), userKind, "USR04242")
	assert.True(t, result.Success)
	assert.Nil(t, result.Data)
	assert.Empty(t, result.Err)
}

func TestUpdateByIDMergesPartialFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	added := svc.Add(ctx, userKind, store.Document{
		"username": "alice",
		"email":    "a@x.com",
		"status":   "active",
	})
	require.True(t, added.Success)
	id := added.Data.(store.Document)["userId"].(string)

	updated := svc.UpdateByID(ctx, userKind, id, store.Document{"status": "suspended"})
	require.True(t, updated.Success)
	require.NotNil(t, updated.Data)

	doc := updated.Data.(store.Document)
	assert.Equal(t, "suspended", doc["status"], "supplied field applied")
	assert.Equal(t, "alice", doc["username"], "omitted field retained")
	assert.Equal(t, "a@x.com", doc["email"], "omitted field retained")
}

func TestUpdateByIDCannotChangeNaturalID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	added := svc.Add(ctx, userKind, store.Document{"username": "alice"})
	require.True(t, added.Success)
	id := added.Data.(store.Document)["userId"].(string)

	updated := svc.UpdateByID(ctx, userKind, id, store.Document{"userId": "USR09999", "username": "bob"})
	require.True(t, updated.Success)
	require.NotNil(t, updated.Data)
	assert.Equal(t, id, updated.Data.(store.Document)["userId"])
	assert.Equal(t, "bob", updated.Data.(store.Document)["username"])
}

func TestUpdateByIDMissing(t *testing.T) {
	svc, _ := newTestService(t)

	result := svc.UpdateByID(context.Background(), userKind, "USR04242", store.Document{"status": "x"})
	assert.True(t, result.Success)
	assert.Nil(t, result.Data)
}

func TestDeleteByIDReturnsPriorStateThenGone(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	added := svc.Add(ctx, userKind, store.Document{"username": "alice"})
	require.True(t, added.Success)
	id := added.Data.(store.Document)["userId"].(string)

	deleted := svc.DeleteByID(ctx, userKind, id)
	require.True(t, deleted.Success)
	require.NotNil(t, deleted.Data)
	assert.Equal(t, "alice", deleted.Data.(store.Document)["username"])

	got := svc.GetByID(ctx, userKind, id)
	assert.True(t, got.Success)
	assert.Nil(t, got.Data)
}

func TestAllocationFollowsHighestPresentID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		require.True(t, svc.Add(ctx, userKind, store.Document{"username": name}).Success)
	}

	// A gap in the middle does not disturb allocation; the next number
	// comes from the highest ID still present.
	require.True(t, svc.DeleteByID(ctx, userKind, "USR00002").Success)

	fourth := svc.Add(ctx, userKind, store.Document{"username": "d"})
	require.True(t, fourth.Success)
	assert.Equal(t, "USR00004", fourth.Data.(store.Document)["userId"])
}

func TestGetAllEmptyIsSuccess(t *testing.T) {
	svc, _ := newTestService(t)

	result := svc.GetAll(context.Background(), userKind)
	require.True(t, result.Success)
	assert.Empty(t, result.Data.([]store.Document))
}

func TestGetAllWithFilterPagination(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		require.True(t, svc.Add(ctx, userKind, store.Document{"role": "user"}).Success)
	}

	page3 := svc.GetAllWithFilter(ctx, userKind, nil, 3, 10)
	require.True(t, page3.Success)
	assert.Len(t, page3.Data.([]store.Document), 5)
	require.NotNil(t, page3.Pagination)
	assert.Equal(t, 3, page3.Pagination.CurrentPage)
	assert.Equal(t, 3, page3.Pagination.TotalPages)
	assert.EqualValues(t, 25, page3.Pagination.TotalCount)
	assert.False(t, page3.Pagination.HasNextPage)
	assert.True(t, page3.Pagination.HasPrevPage)

	page1 := svc.GetAllWithFilter(ctx, userKind, nil, 1, 10)
	require.True(t, page1.Success)
	assert.Len(t, page1.Data.([]store.Document), 10)
	assert.True(t, page1.Pagination.HasNextPage)
	assert.False(t, page1.Pagination.HasPrevPage)
}

func TestGetAllWithFilterCountsMatchesNotPage(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		require.True(t, svc.Add(ctx, userKind, store.Document{"role": "user"}).Success)
	}
	for i := 0; i < 3; i++ {
		require.True(t, svc.Add(ctx, userKind, store.Document{"role": "admin"}).Success)
	}

	result := svc.GetAllWithFilter(ctx, userKind, store.Filter{"role": store.Eq("user")}, 1, 5)
	require.True(t, result.Success)
	assert.Len(t, result.Data.([]store.Document), 5)
	assert.EqualValues(t, 7, result.Pagination.TotalCount, "total is the filtered count, not the page size")
	assert.Equal(t, 2, result.Pagination.TotalPages)
}

func TestNextIDOverflow(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	require.NoError(t, st.InsertOne(ctx, userKind.Collection, store.Document{"userId": "USR99999"}))

	_, err := svc.NextID(ctx, userKind)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exhausted")

	result := svc.Add(ctx, userKind, store.Document{"username": "late"})
	assert.False(t, result.Success)
}

func TestConcurrentAddsAllocateUniqueIDs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	const n = 20
	results := make([]Result, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.Add(ctx, userKind, store.Document{"slot": fmt.Sprint(i)})
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, r := range results {
		require.True(t, r.Success, r.Err)
		id := r.Data.(store.Document)["userId"].(string)
		assert.False(t, seen[id], "duplicate ID allocated: %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}

// dupStore injects duplicate-key failures to exercise the reallocation
// path taken when a writer in another process wins the race.
type dupStore struct {
	store.Store
	mu        sync.Mutex
	remaining int
}

func (d *dupStore) InsertOne(ctx context.Context, collection string, doc store.Document) error {
	d.mu.Lock()
	inject := d.remaining > 0
	if inject {
		d.remaining--
	}
	d.mu.Unlock()
	if inject {
		return store.ErrDuplicateKey
	}
	return d.Store.InsertOne(ctx, collection, doc)
}

func TestAddRetriesOnDuplicateKey(t *testing.T) {
	st := &dupStore{Store: newMemoryStoreWithIndex(t), remaining: 1}
	svc := NewCommonserve(st, zap.NewNop())

	result := svc.Add(context.Background(), userKind, store.Document{"username": "alice"})
	require.True(t, result.Success, result.Err)
	assert.Equal(t, "USR00001", result.Data.(store.Document)["userId"])
}

func TestAddSurfacesConflictAfterRetriesExhausted(t *testing.T) {
	st := &dupStore{Store: newMemoryStoreWithIndex(t), remaining: 100}
	svc := NewCommonserve(st, zap.NewNop())

	result := svc.Add(context.Background(), userKind, store.Document{"username": "alice"})
	require.False(t, result.Success)
	assert.Contains(t, result.Err, "after 3 attempts")
}
