package missions

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/inktoons/inktoons/app/models"
	"github.com/inktoons/inktoons/app/repository"
	"github.com/inktoons/inktoons/internal/pkg/entitlements"
)

const (
	// setSize is the number of missions in a user's working set.
	setSize = 4
	// minCategories is the diversity floor for a generated set.
	minCategories = 3
	// maxDrawAttempts bounds the diversity retry loop.
	maxDrawAttempts = 10
)

var (
	ErrMissionNotFound = errors.New("missions: mission not found")
	ErrAlreadyClaimed  = errors.New("missions: mission already claimed")
	ErrNotComplete     = errors.New("missions: mission not complete")
	ErrAlreadySwapped  = errors.New("missions: mission already swapped")
	ErrNotReplaceable  = errors.New("missions: completed missions cannot be replaced")
)

// Engine owns the daily mission lifecycle: generation, progress tracking,
// claiming, and the one-time swap. Ledger credits stay with the caller; Claim
// only reports the reward of a successful claim.
type Engine struct {
	repo repository.MissionRepository

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand overrides the random source, used by tests for determinism.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a mission engine.
func NewEngine(repo repository.MissionRepository, opts ...Option) *Engine {
	e := &Engine{
		repo: repo,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CycleDate formats the UTC calendar date that keys a mission set.
func CycleDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// CurrentSet returns the user's mission set for today, generating a fresh one
// when none exists or the stored set belongs to an earlier cycle.
func (e *Engine) CurrentSet(userID uint, plan entitlements.Plan) ([]models.MissionInstance, error) {
	set, err := e.repo.GetSetForUser(userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	today := CycleDate(e.now())
	if len(set) > 0 && set[0].CycleDate == today {
		return set, nil
	}
	return e.Regenerate(userID, plan)
}

// Regenerate replaces the user's working set with a freshly drawn one. The
// previous set is discarded entirely, including claim and swap latches.
func (e *Engine) Regenerate(userID uint, plan entitlements.Plan) ([]models.MissionInstance, error) {
	defs := e.drawSet(entitlements.VIPMissionsAllowed(plan))
	today := CycleDate(e.now())

	set := make([]models.MissionInstance, 0, len(defs))
	for _, def := range defs {
		set = append(set, instanceFromDefinition(userID, today, def))
	}
	if err := e.repo.ReplaceSetForUser(userID, set); err != nil {
		return nil, err
	}
	return e.repo.GetSetForUser(userID)
}

// TrackAction applies one user action to every matching mission in today's
// set. Progress only ever moves forward and never exceeds the target. The
// updated set is returned for display.
func (e *Engine) TrackAction(userID uint, plan entitlements.Plan, action string) ([]models.MissionInstance, error) {
	set, err := e.CurrentSet(userID, plan)
	if err != nil {
		return nil, err
	}

	var changed []models.MissionInstance
	for i := range set {
		inst := &set[i]
		if inst.IsClaimed || inst.IsComplete() {
			continue
		}
		def, ok := Lookup(inst.PoolID)
		if !ok {
			continue
		}
		if applyAction(inst, def, action) {
			changed = append(changed, *inst)
		}
	}
	if len(changed) > 0 {
		if err := e.repo.SaveAll(changed); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// Claim marks a completed mission as claimed and returns its reward. A
// mission can be claimed once; repeat calls fail without a reward.
func (e *Engine) Claim(userID, missionID uint) (int, error) {
	inst, err := e.loadOwned(userID, missionID)
	if err != nil {
		return 0, err
	}
	if inst.IsClaimed {
		return 0, ErrAlreadyClaimed
	}
	if !inst.IsComplete() {
		return 0, ErrNotComplete
	}
	inst.IsClaimed = true
	if err := e.repo.Save(inst); err != nil {
		return 0, err
	}
	return inst.Reward, nil
}

// Replace swaps a mission for a fresh draw once. Completed or claimed
// missions stay, and a replacement can never be replaced again.
func (e *Engine) Replace(userID uint, plan entitlements.Plan, missionID uint) (*models.MissionInstance, error) {
	inst, err := e.loadOwned(userID, missionID)
	if err != nil {
		return nil, err
	}
	if inst.Swapped {
		return nil, ErrAlreadySwapped
	}
	if inst.IsClaimed || inst.IsComplete() {
		return nil, ErrNotReplaceable
	}

	set, err := e.repo.GetSetForUser(userID)
	if err != nil {
		return nil, err
	}
	usedIDs := make(map[string]bool, len(set))
	usedCategories := make(map[string]bool, len(set))
	for _, m := range set {
		usedIDs[m.PoolID] = true
		if m.ID != inst.ID {
			usedCategories[m.Category] = true
		}
	}

	var candidates, diverse []Definition
	for _, d := range Pool(entitlements.VIPMissionsAllowed(plan)) {
		if usedIDs[d.ID] {
			continue
		}
		candidates = append(candidates, d)
		if !usedCategories[d.Category] {
			diverse = append(diverse, d)
		}
	}
	if len(diverse) > 0 {
		candidates = diverse
	}
	if len(candidates) == 0 {
		return nil, ErrMissionNotFound
	}

	e.mu.Lock()
	chosen := candidates[e.rng.Intn(len(candidates))]
	e.mu.Unlock()

	fresh := instanceFromDefinition(userID, inst.CycleDate, chosen)
	fresh.ID = inst.ID
	fresh.Swapped = true
	if err := e.repo.Save(&fresh); err != nil {
		return nil, err
	}
	return &fresh, nil
}

func (e *Engine) loadOwned(userID, missionID uint) (*models.MissionInstance, error) {
	inst, err := e.repo.GetByID(missionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMissionNotFound
	}
	if err != nil {
		return nil, err
	}
	if inst.UserID != userID {
		return nil, ErrMissionNotFound
	}
	return inst, nil
}

// drawSet picks a reward pattern and fills it from the pool, preferring
// unseen categories per slot and retrying whole draws until the set spans
// enough distinct categories. After maxDrawAttempts tries, a plain draw
// without the diversity check is used.
func (e *Engine) drawSet(vip bool) []Definition {
	e.mu.Lock()
	defer e.mu.Unlock()

	available := Pool(vip)
	byReward := make(map[int][]Definition)
	for _, d := range available {
		byReward[d.Reward] = append(byReward[d.Reward], d)
	}

	for attempt := 0; attempt < maxDrawAttempts; attempt++ {
		pattern := rewardPatterns[e.rng.Intn(len(rewardPatterns))]

		var set []Definition
		usedIDs := make(map[string]bool)
		usedCategories := make(map[string]bool)
		possible := true

		for _, reward := range pattern {
			var candidates, diverse []Definition
			for _, d := range byReward[reward] {
				if usedIDs[d.ID] {
					continue
				}
				candidates = append(candidates, d)
				if !usedCategories[d.Category] {
					diverse = append(diverse, d)
				}
			}
			if len(candidates) == 0 {
				possible = false
				break
			}
			if len(diverse) > 0 {
				candidates = diverse
			}
			chosen := candidates[e.rng.Intn(len(candidates))]
			set = append(set, chosen)
			usedIDs[chosen.ID] = true
			usedCategories[chosen.Category] = true
		}

		if possible && len(usedCategories) >= minCategories {
			return set
		}
	}

	// Fallback: first pattern, no diversity requirement.
	var set []Definition
	usedIDs := make(map[string]bool)
	for _, reward := range rewardPatterns[0] {
		var candidates []Definition
		for _, d := range byReward[reward] {
			if !usedIDs[d.ID] {
				candidates = append(candidates, d)
			}
		}
		chosen := candidates[e.rng.Intn(len(candidates))]
		set = append(set, chosen)
		usedIDs[chosen.ID] = true
	}
	return set
}

func instanceFromDefinition(userID uint, cycleDate string, def Definition) models.MissionInstance {
	return models.MissionInstance{
		UserID:      userID,
		CycleDate:   cycleDate,
		PoolID:      def.ID,
		Title:       def.Title,
		Description: def.Description,
		Category:    def.Category,
		Reward:      def.Reward,
		Target:      def.Target,
	}
}

// applyAction advances the mission's counters for one action. Compound
// missions track each named counter up to its own threshold; the scalar
// progress is the capped sum so IsComplete stays meaningful.
func applyAction(inst *models.MissionInstance, def Definition, action string) bool {
	if def.Compound() {
		details := inst.ProgressDetails()
		advanced := false
		total := 0
		for _, c := range def.Counters {
			if c.Action == action && details[c.Name] < c.Target {
				details[c.Name]++
				advanced = true
			}
			if details[c.Name] > c.Target {
				details[c.Name] = c.Target
			}
			total += details[c.Name]
		}
		if !advanced {
			return false
		}
		inst.SetProgressDetails(details)
		inst.Progress = total
		return true
	}

	c := def.Counters[0]
	if c.Action != action || inst.Progress >= inst.Target {
		return false
	}
	inst.Progress++
	return true
}

// SubProgress is the per-counter progress view of a compound mission.
type SubProgress struct {
	Name      string `json:"name"`
	Done      int    `json:"done"`
	Target    int    `json:"target"`
	Remaining int    `json:"remaining"`
}

// SubProgressFor reports the remaining work per sub-counter. Simple missions
// return nil; their scalar progress suffices.
func SubProgressFor(inst *models.MissionInstance) []SubProgress {
	def, ok := Lookup(inst.PoolID)
	if !ok || !def.Compound() {
		return nil
	}
	details := inst.ProgressDetails()
	out := make([]SubProgress, 0, len(def.Counters))
	for _, c := range def.Counters {
		done := details[c.Name]
		if done > c.Target {
			done = c.Target
		}
		out = append(out, SubProgress{
			Name:      c.Name,
			Done:      done,
			Target:    c.Target,
			Remaining: c.Target - done,
		})
	}
	return out
}
