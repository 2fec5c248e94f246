package feed

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/dashboard/internal/domain"
)

func TestReadWithoutUserSkipsStore(t *testing.T) {
	store := newFakeStore()
	cache := NewCache(store, NewBus())

	records, err := cache.Read(context.Background(), "", 5)
	require.NoError(t, err)
	require.Empty(t, records)
	require.Equal(t, 0, store.listCalls())
}

func TestReadRejectsNonPositiveLimit(t *testing.T) {
	store := newFakeStore()
	cache := NewCache(store, NewBus())

	_, err := cache.Read(context.Background(), "user-1", 0)
	require.ErrorIs(t, err, domain.ErrInvalidLimit)
	require.Equal(t, 0, store.listCalls())
}

func TestReadMemoizesPerKey(t *testing.T) {
	store := newFakeStore()
	store.seed("user-1", record("act-1", "user-1", time.Now().UTC()))
	cache := NewCache(store, NewBus())

	first, err := cache.Read(context.Background(), "user-1", 5)
	require.NoError(t, err)
	second, err := cache.Read(context.Background(), "user-1", 5)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 1, store.listCalls())

	// A different limit is a different key and queries again.
	_, err = cache.Read(context.Background(), "user-1", 3)
	require.NoError(t, err)
	require.Equal(t, 2, store.listCalls())
}

func TestCallersCannotMutateCachedEntries(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeStore()
	store.seed("user-1", record("act-1", "user-1", now))
	store.seed("user-1", record("act-2", "user-1", now.Add(time.Second)))
	cache := NewCache(store, NewBus())

	first, err := cache.Read(context.Background(), "user-1", 5)
	require.NoError(t, err)
	first[0].Title = "tampered"
	first[1] = domain.ActivityRecord{}

	// A later hit must serve the records as the store returned them.
	second, err := cache.Read(context.Background(), "user-1", 5)
	require.NoError(t, err)
	require.Equal(t, "Booked session", second[0].Title)
	require.Equal(t, "act-1", second[1].ID)
	require.Equal(t, 1, store.listCalls())

	second[0].Title = "tampered again"
	third, err := cache.Read(context.Background(), "user-1", 5)
	require.NoError(t, err)
	require.Equal(t, "Booked session", third[0].Title)
}

func TestInvalidationDropsAllLimitsForUser(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeStore()
	store.seed("user-1", record("act-1", "user-1", now))
	bus := NewBus()
	cache := NewCache(store, bus)

	_, err := cache.Read(context.Background(), "user-1", 5)
	require.NoError(t, err)
	_, err = cache.Read(context.Background(), "user-1", 1)
	require.NoError(t, err)
	require.Equal(t, 2, store.listCalls())

	store.seed("user-1", record("act-2", "user-1", now.Add(time.Second)))
	bus.Publish("user-1")

	records, err := cache.Read(context.Background(), "user-1", 5)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "act-2", records[0].ID, "newest record first after invalidation")

	_, err = cache.Read(context.Background(), "user-1", 1)
	require.NoError(t, err)
	require.Equal(t, 4, store.listCalls())
}

func TestInvalidationLeavesOtherUsersCached(t *testing.T) {
	store := newFakeStore()
	store.seed("user-1", record("act-1", "user-1", time.Now().UTC()))
	store.seed("user-2", record("act-2", "user-2", time.Now().UTC()))
	bus := NewBus()
	cache := NewCache(store, bus)

	_, err := cache.Read(context.Background(), "user-1", 5)
	require.NoError(t, err)
	_, err = cache.Read(context.Background(), "user-2", 5)
	require.NoError(t, err)

	bus.Publish("user-1")

	_, err = cache.Read(context.Background(), "user-2", 5)
	require.NoError(t, err)
	require.Equal(t, 2, store.listCalls())
}

func TestReadErrorIsWrappedAndNotCached(t *testing.T) {
	store := newFakeStore()
	cause := errors.New("connection refused")
	store.failList(cause)
	cache := NewCache(store, NewBus())

	_, err := cache.Read(context.Background(), "user-1", 5)
	var queryErr *domain.QueryError
	require.ErrorAs(t, err, &queryErr)
	require.ErrorIs(t, err, cause)

	store.failList(nil)
	store.seed("user-1", record("act-1", "user-1", time.Now().UTC()))

	records, err := cache.Read(context.Background(), "user-1", 5)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, 2, store.listCalls(), "failed read must not populate the cache")
}

func TestInFlightInvalidationIsNotMemoized(t *testing.T) {
	store := newFakeStore()
	store.seed("user-1", record("act-1", "user-1", time.Now().UTC()))
	bus := NewBus()
	cache := NewCache(store, bus)

	// An invalidation lands while the first query is in flight: its result
	// may be returned but must not stick in the cache.
	store.onList = func() { bus.Publish("user-1") }

	_, err := cache.Read(context.Background(), "user-1", 5)
	require.NoError(t, err)

	store.onList = nil
	_, err = cache.Read(context.Background(), "user-1", 5)
	require.NoError(t, err)
	require.Equal(t, 2, store.listCalls())
}

func TestCancelledReadIsNotMemoized(t *testing.T) {
	store := newFakeStore()
	store.seed("user-1", record("act-1", "user-1", time.Now().UTC()))
	cache := NewCache(store, NewBus())

	ctx, cancel := context.WithCancel(context.Background())
	store.onList = cancel

	_, err := cache.Read(ctx, "user-1", 5)
	require.NoError(t, err)

	store.onList = nil
	_, err = cache.Read(context.Background(), "user-1", 5)
	require.NoError(t, err)
	require.Equal(t, 2, store.listCalls())
}

// fakeStore is an in-memory domain.Store counting calls. Records are kept
// newest first per user, mirroring the real store's ordering contract.
type fakeStore struct {
	mu        sync.Mutex
	lists     int
	inserts   int
	records   map[string][]domain.ActivityRecord
	listErr   error
	insertErr error
	onList    func()
	nextID    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string][]domain.ActivityRecord)}
}

func (f *fakeStore) seed(userID string, rec domain.ActivityRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[userID] = append([]domain.ActivityRecord{rec}, f.records[userID]...)
}

func (f *fakeStore) failList(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

func (f *fakeStore) failInsert(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertErr = err
}

func (f *fakeStore) listCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

func (f *fakeStore) insertCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inserts
}

func (f *fakeStore) ListByUser(_ context.Context, userID string, limit int) ([]domain.ActivityRecord, error) {
	f.mu.Lock()
	f.lists++
	hook := f.onList
	err := f.listErr
	all := f.records[userID]
	if limit > len(all) {
		limit = len(all)
	}
	out := make([]domain.ActivityRecord, limit)
	copy(out, all[:limit])
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (f *fakeStore) Insert(_ context.Context, activity domain.NewActivity) (*domain.ActivityRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	f.nextID++
	rec := domain.ActivityRecord{
		ID:          "act-" + strconv.Itoa(f.nextID),
		UserID:      activity.UserID,
		Type:        activity.Type,
		Title:       activity.Title,
		Description: activity.Description,
		Metadata:    activity.Metadata,
		CreatedAt:   time.Now().UTC(),
	}
	f.records[activity.UserID] = append([]domain.ActivityRecord{rec}, f.records[activity.UserID]...)
	return &rec, nil
}

func record(id, userID string, createdAt time.Time) domain.ActivityRecord {
	return domain.ActivityRecord{
		ID:        id,
		UserID:    userID,
		Type:      domain.ActivitySessionBooked,
		Title:     "Booked session",
		Metadata:  map[string]any{},
		CreatedAt: createdAt,
	}
}
