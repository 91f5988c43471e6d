package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/inktoons/inktoons/app/models"
	"github.com/inktoons/inktoons/internal/pkg/ledgerstore"
)

type fakeLedgerRepo struct {
	mu     sync.Mutex
	rows   map[uint]*models.LedgerState
	nextID uint
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{rows: make(map[uint]*models.LedgerState)}
}

func (r *fakeLedgerRepo) Create(state *models.LedgerState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	state.ID = r.nextID
	cp := *state
	r.rows[state.UserID] = &cp
	return nil
}

func (r *fakeLedgerRepo) GetByUserID(userID uint) (*models.LedgerState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *row
	return &cp, nil
}

func (r *fakeLedgerRepo) Save(state *models.LedgerState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *state
	r.rows[state.UserID] = &cp
	return nil
}

type fakeRemoteStore struct {
	mu    sync.Mutex
	snaps map[uint]*models.LedgerState
	puts  int
}

func newFakeRemoteStore() *fakeRemoteStore {
	return &fakeRemoteStore{snaps: make(map[uint]*models.LedgerState)}
}

func (f *fakeRemoteStore) Get(_ context.Context, userID uint) (*models.LedgerState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.snaps[userID]
	if !ok {
		return nil, ledgerstore.ErrNotFound
	}
	cp := *snap
	return &cp, nil
}

func (f *fakeRemoteStore) Put(_ context.Context, state *models.LedgerState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *state
	f.snaps[state.UserID] = &cp
	f.puts++
	return nil
}

func (f *fakeRemoteStore) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts
}

func TestLoadCreatesWelcomeBalance(t *testing.T) {
	svc := NewService(newFakeLedgerRepo(), nil)

	state, err := svc.Load(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(models.WelcomeBalance), state.Balance)
	assert.Empty(t, state.SubscriptionPlan)

	// A second load returns the same ledger, no second bonus.
	again, err := svc.Load(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, state.ID, again.ID)
	assert.Equal(t, int64(models.WelcomeBalance), again.Balance)
}

func TestAddBalanceRejectsOverspend(t *testing.T) {
	svc := NewService(newFakeLedgerRepo(), nil)

	_, err := svc.Load(context.Background(), 1)
	require.NoError(t, err)

	_, err = svc.AddBalance(context.Background(), 1, -(models.WelcomeBalance + 1))
	require.ErrorIs(t, err, ErrInsufficientBalance)

	// The failed spend must not have touched the balance.
	state, err := svc.Load(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(models.WelcomeBalance), state.Balance)
}

func TestAddBalancePurchaseScenario(t *testing.T) {
	svc := NewService(newFakeLedgerRepo(), nil)

	// New user gets the welcome bonus, then buys the 150 pack.
	state, err := svc.AddBalance(context.Background(), 1, 150)
	require.NoError(t, err)
	assert.Equal(t, int64(models.WelcomeBalance+150), state.Balance)

	// Spending exactly the balance is allowed.
	state, err = svc.AddBalance(context.Background(), 1, -(models.WelcomeBalance + 150))
	require.NoError(t, err)
	assert.Equal(t, int64(0), state.Balance)
}

func TestSetSubscriptionStacks(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	svc := NewService(newFakeLedgerRepo(), nil, WithClock(func() time.Time { return now }))

	state, err := svc.SetSubscription(context.Background(), 1, "vip", 1)
	require.NoError(t, err)
	require.NotNil(t, state.SubscriptionExpiresAt)
	first := *state.SubscriptionExpiresAt
	assert.Equal(t, now.Add(30*24*time.Hour), first)

	// Buying again before expiry extends from the current expiry, not now.
	state, err = svc.SetSubscription(context.Background(), 1, "vip", 1)
	require.NoError(t, err)
	assert.Equal(t, first.Add(30*24*time.Hour), *state.SubscriptionExpiresAt)

	// After expiry the next purchase stacks from now again.
	now = first.Add(100 * 24 * time.Hour)
	state, err = svc.SetSubscription(context.Background(), 1, "vip_max", 1)
	require.NoError(t, err)
	assert.Equal(t, "vip_max", state.SubscriptionPlan)
	assert.Equal(t, now.Add(30*24*time.Hour), *state.SubscriptionExpiresAt)
}

func TestSetSubscriptionRejectsUnknownPlan(t *testing.T) {
	svc := NewService(newFakeLedgerRepo(), nil)

	_, err := svc.SetSubscription(context.Background(), 1, "platinum", 1)
	require.ErrorIs(t, err, ErrUnknownPlan)

	_, err = svc.SetSubscription(context.Background(), 1, "vip", 0)
	require.Error(t, err)
}

func TestLoadPrefersFresherRemote(t *testing.T) {
	repo := newFakeLedgerRepo()
	remote := newFakeRemoteStore()
	svc := NewService(repo, remote)

	local := models.NewLedgerState(9)
	local.Balance = 10
	local.MutatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(local))

	snap := models.NewLedgerState(9)
	snap.Balance = 400
	snap.SubscriptionPlan = "vip"
	snap.MutatedAt = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, remote.Put(context.Background(), snap))

	state, err := svc.Load(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, int64(400), state.Balance)
	assert.Equal(t, "vip", state.SubscriptionPlan)
}

func TestLoadKeepsFresherLocal(t *testing.T) {
	repo := newFakeLedgerRepo()
	remote := newFakeRemoteStore()
	svc := NewService(repo, remote)

	local := models.NewLedgerState(9)
	local.Balance = 275
	local.MutatedAt = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(local))

	snap := models.NewLedgerState(9)
	snap.Balance = 50
	snap.MutatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, remote.Put(context.Background(), snap))

	state, err := svc.Load(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, int64(275), state.Balance)
}

func TestLoadAdoptsRemoteForNewDevice(t *testing.T) {
	repo := newFakeLedgerRepo()
	remote := newFakeRemoteStore()
	svc := NewService(repo, remote)

	snap := models.NewLedgerState(4)
	snap.Balance = 620
	snap.SetFavorites([]string{"series-a", "series-b"})
	require.NoError(t, remote.Put(context.Background(), snap))

	state, err := svc.Load(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, int64(620), state.Balance)
	assert.Equal(t, []string{"series-a", "series-b"}, state.Favorites())

	// The adopted snapshot is now persisted locally.
	row, err := repo.GetByUserID(4)
	require.NoError(t, err)
	assert.Equal(t, int64(620), row.Balance)
}

func TestSyncDebouncesBursts(t *testing.T) {
	repo := newFakeLedgerRepo()
	remote := newFakeRemoteStore()
	svc := NewService(repo, remote)
	svc.Syncer().SetDebounce(50 * time.Millisecond)

	for i := 0; i < 5; i++ {
		_, err := svc.AddBalance(context.Background(), 3, 10)
		require.NoError(t, err)
	}
	svc.Syncer().Flush()

	// Five rapid mutations collapse into a single remote write carrying the
	// final balance. Load itself also schedules once on first creation.
	assert.LessOrEqual(t, remote.putCount(), 2)
	snap, err := remote.Get(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(models.WelcomeBalance+50), snap.Balance)
}

func TestBookkeepingMutators(t *testing.T) {
	svc := NewService(newFakeLedgerRepo(), nil)
	ctx := context.Background()

	state, err := svc.ToggleFavorite(ctx, 1, "series-x")
	require.NoError(t, err)
	assert.Equal(t, []string{"series-x"}, state.Favorites())

	state, err = svc.ToggleFavorite(ctx, 1, "series-x")
	require.NoError(t, err)
	assert.Empty(t, state.Favorites())

	state, err = svc.AddToHistory(ctx, 1, "series-a")
	require.NoError(t, err)
	state, err = svc.AddToHistory(ctx, 1, "series-b")
	require.NoError(t, err)
	state, err = svc.AddToHistory(ctx, 1, "series-a")
	require.NoError(t, err)
	assert.Equal(t, []string{"series-b", "series-a"}, state.History())

	state, err = svc.ToggleFollowAuthor(ctx, 1, "author-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"author-1"}, state.Following())

	state, err = svc.RateSeries(ctx, 1, "series-a", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, state.Ratings()["series-a"])

	_, err = svc.RateSeries(ctx, 1, "series-a", 6)
	require.Error(t, err)
}
