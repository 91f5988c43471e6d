package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/inktoons/inktoons/app/models"
	"github.com/inktoons/inktoons/app/repository"
	"github.com/inktoons/inktoons/internal/pkg/entitlements"
	"github.com/inktoons/inktoons/internal/pkg/ledgerstore"
)

var (
	// ErrInsufficientBalance rejects a spend that would drive the balance
	// negative. The caller prompts toward a top-up instead of failing silently.
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")

	// ErrUnknownPlan rejects a subscription purchase for a plan that is not
	// sold.
	ErrUnknownPlan = errors.New("ledger: unknown subscription plan")
)

// Subscription durations use a fixed month length so stacking is predictable.
const monthLength = 30 * 24 * time.Hour

// Service owns all ledger mutations for the application. Every change lands
// in memory and the local database synchronously, then a debounced write
// mirrors it to the remote store. Callers never write ledger fields directly.
type Service struct {
	repo   repository.LedgerRepository
	syncer *Syncer

	now func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the ledger service. remote may be nil for offline or
// unauthenticated use; the local database is then the only copy.
func NewService(repo repository.LedgerRepository, remote ledgerstore.RemoteStore, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.syncer = NewSyncer(repo, remote)
	return s
}

// Syncer exposes the debounced remote sync for lifecycle control (shutdown
// flush, tests).
func (s *Service) Syncer() *Syncer {
	return s.syncer
}

// Load returns the user's ledger, creating it with the welcome balance on
// first use. When a remote snapshot exists and is at least as fresh as the
// local row, the remote copy wins; arrival order never resurrects a stale
// balance.
func (s *Service) Load(ctx context.Context, userID uint) (*models.LedgerState, error) {
	local, err := s.repo.GetByUserID(userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if remote := s.syncer.Remote(); remote != nil {
		snap, rerr := remote.Get(ctx, userID)
		switch {
		case rerr == nil:
			if local == nil {
				adopted := cloneState(snap)
				adopted.UserID = userID
				if cerr := s.repo.Create(adopted); cerr != nil {
					return nil, cerr
				}
				return adopted, nil
			}
			if !snap.MutatedAt.Before(local.MutatedAt) {
				applySnapshot(local, snap)
				if serr := s.repo.Save(local); serr != nil {
					return nil, serr
				}
			}
			return local, nil
		case errors.Is(rerr, ledgerstore.ErrNotFound):
			// No mirror yet; fall through to local.
		default:
			// Remote unreachable: local state stays authoritative until the
			// next successful sync.
		}
	}

	if local != nil {
		return local, nil
	}

	state := models.NewLedgerState(userID)
	state.MutatedAt = s.now()
	if err := s.repo.Create(state); err != nil {
		return nil, err
	}
	s.syncer.Schedule(userID)
	return state, nil
}

// AddBalance credits (delta > 0) or spends (delta < 0) Inks. A spend that
// would make the balance negative is rejected before any mutation.
func (s *Service) AddBalance(ctx context.Context, userID uint, delta int64) (*models.LedgerState, error) {
	return s.mutate(ctx, userID, func(state *models.LedgerState) error {
		if state.Balance+delta < 0 {
			return fmt.Errorf("%w: balance=%d delta=%d", ErrInsufficientBalance, state.Balance, delta)
		}
		state.Balance += delta
		return nil
	})
}

// SetSubscription extends the subscription by months of fixed length,
// stacking from the later of now and the current expiry. The expiry is
// monotonically non-decreasing across purchases.
func (s *Service) SetSubscription(ctx context.Context, userID uint, plan string, months int) (*models.LedgerState, error) {
	if !entitlements.IsKnownPaidPlan(plan) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlan, plan)
	}
	if months <= 0 {
		return nil, fmt.Errorf("ledger: subscription duration must be positive, got %d", months)
	}

	normalized := string(entitlements.NormalizePlan(plan))
	return s.mutate(ctx, userID, func(state *models.LedgerState) error {
		base := s.now()
		if state.SubscriptionExpiresAt != nil && state.SubscriptionExpiresAt.After(base) {
			base = *state.SubscriptionExpiresAt
		}
		expiry := base.Add(time.Duration(months) * monthLength)
		state.SubscriptionPlan = normalized
		state.SubscriptionExpiresAt = &expiry
		return nil
	})
}

// SetProfileImage stores the user's profile image reference.
func (s *Service) SetProfileImage(ctx context.Context, userID uint, image string) (*models.LedgerState, error) {
	return s.mutate(ctx, userID, func(state *models.LedgerState) error {
		state.ProfileImage = image
		return nil
	})
}

// ToggleFavorite adds or removes a series from the favorites list.
func (s *Service) ToggleFavorite(ctx context.Context, userID uint, seriesID string) (*models.LedgerState, error) {
	return s.mutate(ctx, userID, func(state *models.LedgerState) error {
		state.SetFavorites(toggleEntry(state.Favorites(), seriesID))
		return nil
	})
}

// ToggleFollowAuthor adds or removes an author from the following list.
func (s *Service) ToggleFollowAuthor(ctx context.Context, userID uint, author string) (*models.LedgerState, error) {
	return s.mutate(ctx, userID, func(state *models.LedgerState) error {
		state.SetFollowing(toggleEntry(state.Following(), author))
		return nil
	})
}

// AddToHistory prepends a series to the reading history once.
func (s *Service) AddToHistory(ctx context.Context, userID uint, seriesID string) (*models.LedgerState, error) {
	return s.mutate(ctx, userID, func(state *models.LedgerState) error {
		history := state.History()
		for _, id := range history {
			if id == seriesID {
				return nil
			}
		}
		state.SetHistory(append([]string{seriesID}, history...))
		return nil
	})
}

// RateSeries records a 1..5 rating for a series.
func (s *Service) RateSeries(ctx context.Context, userID uint, seriesID string, rating int) (*models.LedgerState, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("ledger: rating must be 1..5, got %d", rating)
	}
	return s.mutate(ctx, userID, func(state *models.LedgerState) error {
		ratings := state.Ratings()
		ratings[seriesID] = rating
		state.SetRatings(ratings)
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, userID uint, fn func(*models.LedgerState) error) (*models.LedgerState, error) {
	state, err := s.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := fn(state); err != nil {
		return nil, err
	}
	state.MutatedAt = s.now()
	if err := s.repo.Save(state); err != nil {
		return nil, err
	}
	s.syncer.Schedule(userID)
	return state, nil
}

func toggleEntry(items []string, entry string) []string {
	for i, it := range items {
		if it == entry {
			return append(items[:i], items[i+1:]...)
		}
	}
	return append(items, entry)
}

func cloneState(src *models.LedgerState) *models.LedgerState {
	dst := *src
	dst.ID = 0
	return &dst
}

func applySnapshot(dst, src *models.LedgerState) {
	dst.Balance = src.Balance
	dst.SubscriptionPlan = src.SubscriptionPlan
	dst.SubscriptionExpiresAt = src.SubscriptionExpiresAt
	dst.ProfileImage = src.ProfileImage
	dst.FavoritesJSON = src.FavoritesJSON
	dst.HistoryJSON = src.HistoryJSON
	dst.FollowingJSON = src.FollowingJSON
	dst.RatingsJSON = src.RatingsJSON
	dst.MutatedAt = src.MutatedAt
}
