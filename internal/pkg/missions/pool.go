package missions

// Action types reported by the product surfaces. TrackAction matches them
// against the pool definitions below.
const (
	ActionChapterRead  = "chapter_read"
	ActionLike         = "like"
	ActionComment      = "comment"
	ActionRate         = "rate"
	ActionFollow       = "follow"
	ActionShare        = "share"
	ActionSearch       = "search"
	ActionVisitSeries  = "visit_series"
	ActionVisitProfile = "visit_profile"
	ActionLogin        = "login"
	ActionFilterGenre  = "filter_genre"
	ActionDownload     = "download"
)

// Counter is one tracked sub-goal of a mission. Simple missions have a single
// unnamed counter; compound missions carry several named ones, each with its
// own threshold.
type Counter struct {
	Name   string
	Action string
	Target int
}

// Definition is one entry of the static mission pool.
type Definition struct {
	ID          string
	Title       string
	Description string
	Reward      int
	Target      int
	Difficulty  string
	Category    string
	VIPOnly     bool
	Counters    []Counter
}

// Compound reports whether the mission tracks named sub-counters.
func (d Definition) Compound() bool {
	return len(d.Counters) > 1
}

func simple(action string, target int) []Counter {
	return []Counter{{Action: action, Target: target}}
}

// pool is the static mission catalog. Rewards come in five tiers and the
// generation patterns reference all of them, so every tier must keep at
// least one entry.
var pool = []Definition{
	// 5 Inks
	{ID: "pool_1", Title: "Curious Explorer", Description: "Visit the detail page of 2 series.", Reward: 5, Target: 2, Difficulty: "easy", Category: "explore", Counters: simple(ActionVisitSeries, 2)},
	{ID: "pool_2", Title: "First Steps", Description: "Read the first chapter of any series.", Reward: 5, Target: 1, Difficulty: "easy", Category: "read", Counters: simple(ActionChapterRead, 1)},
	{ID: "pool_3", Title: "Budding Fan", Description: "Like 1 chapter.", Reward: 5, Target: 1, Difficulty: "easy", Category: "engagement", Counters: simple(ActionLike, 1)},
	{ID: "pool_4", Title: "Treasure Hunter", Description: "Use the search to find a story.", Reward: 5, Target: 1, Difficulty: "easy", Category: "explore", Counters: simple(ActionSearch, 1)},
	{ID: "pool_5", Title: "Friendly Hello", Description: "Visit a creator's profile.", Reward: 5, Target: 1, Difficulty: "easy", Category: "social", Counters: simple(ActionVisitProfile, 1)},
	{ID: "pool_6", Title: "Welcome Back", Description: "Log in to Inktoons today.", Reward: 5, Target: 1, Difficulty: "easy", Category: "engagement", Counters: simple(ActionLogin, 1)},
	{ID: "pool_7", Title: "Quick Glance", Description: "Open 3 different comic covers.", Reward: 5, Target: 3, Difficulty: "easy", Category: "explore", Counters: simple(ActionVisitSeries, 3)},
	{ID: "pool_8", Title: "Genre Curious", Description: "Filter the catalog by a genre.", Reward: 5, Target: 1, Difficulty: "easy", Category: "read", Counters: simple(ActionFilterGenre, 1)},

	// 10 Inks
	{ID: "pool_9", Title: "Casual Reader", Description: "Read 3 chapters today.", Reward: 10, Target: 3, Difficulty: "medium", Category: "read", Counters: simple(ActionChapterRead, 3)},
	{ID: "pool_10", Title: "Double Check", Description: "Read chapters from 2 different series.", Reward: 10, Target: 2, Difficulty: "medium", Category: "explore", Counters: simple(ActionChapterRead, 2)},
	{ID: "pool_11", Title: "Loyal Follower", Description: "Follow 1 new author.", Reward: 10, Target: 1, Difficulty: "medium", Category: "social", Counters: simple(ActionFollow, 1)},
	{ID: "pool_12", Title: "Amateur Critic", Description: "Rate a series 5 stars.", Reward: 10, Target: 1, Difficulty: "medium", Category: "engagement", Counters: simple(ActionRate, 1)},
	{ID: "pool_13", Title: "Mini Marathon", Description: "Read 3 chapters of the same series in a row.", Reward: 10, Target: 3, Difficulty: "medium", Category: "read", Counters: simple(ActionChapterRead, 3)},
	{ID: "pool_14", Title: "Art Lover", Description: "Like 3 chapters.", Reward: 10, Target: 3, Difficulty: "medium", Category: "engagement", Counters: simple(ActionLike, 3)},

	// 15 Inks
	{ID: "pool_15", Title: "Avid Reader", Description: "Read 5 chapters of any genre.", Reward: 15, Target: 5, Difficulty: "medium", Category: "read", Counters: simple(ActionChapterRead, 5)},
	{ID: "pool_16", Title: "Community Voice", Description: "Leave a comment on a chapter.", Reward: 15, Target: 1, Difficulty: "medium", Category: "social", Counters: simple(ActionComment, 1)},
	{ID: "pool_17", Title: "Literary Diversity", Description: "Read 1 chapter from 3 different genres.", Reward: 15, Target: 3, Difficulty: "medium", Category: "explore", Counters: simple(ActionChapterRead, 3)},
	{ID: "pool_18", Title: "Release Hunter", Description: "Read the latest published chapter of a series.", Reward: 15, Target: 1, Difficulty: "medium", Category: "read", Counters: simple(ActionChapterRead, 1)},
	{ID: "pool_19", Title: "Sharing Is Caring", Description: "Share a series with a friend.", Reward: 15, Target: 1, Difficulty: "medium", Category: "social", Counters: simple(ActionShare, 1)},
	{ID: "pool_20", Title: "Daily Routine", Description: "Read a chapter in the morning and one in the evening.", Reward: 15, Target: 2, Difficulty: "medium", Category: "read", Counters: simple(ActionChapterRead, 2)},

	// 20 Inks
	{ID: "pool_21", Title: "Book Devourer", Description: "Read 10 chapters in total today.", Reward: 20, Target: 10, Difficulty: "hard", Category: "read", Counters: simple(ActionChapterRead, 10)},
	{ID: "pool_22", Title: "Influencer", Description: "Follow 3 authors and comment on 1 work.", Reward: 20, Target: 4, Difficulty: "hard", Category: "social", Counters: []Counter{
		{Name: "follows", Action: ActionFollow, Target: 3},
		{Name: "comments", Action: ActionComment, Target: 1},
	}},
	{ID: "pool_23", Title: "Debate Club", Description: "Write 3 constructive comments.", Reward: 20, Target: 3, Difficulty: "hard", Category: "engagement", Counters: simple(ActionComment, 3)},
	{ID: "pool_24", Title: "Deep Explorer", Description: "Read 5 chapters of a series you were not following.", Reward: 20, Target: 5, Difficulty: "hard", Category: "explore", Counters: simple(ActionChapterRead, 5)},

	// 25 Inks
	{ID: "pool_25", Title: "Ink Legend", Description: "Read 20 chapters today.", Reward: 25, Target: 20, Difficulty: "expert", Category: "read", Counters: simple(ActionChapterRead, 20)},
	{ID: "pool_26", Title: "Superfan", Description: "Rate 5 series and like 5 chapters.", Reward: 25, Target: 10, Difficulty: "expert", Category: "engagement", Counters: []Counter{
		{Name: "ratings", Action: ActionRate, Target: 5},
		{Name: "likes", Action: ActionLike, Target: 5},
	}},
	{ID: "pool_27", Title: "Elite Critic", Description: "Write 5 comments and rate 3 series.", Reward: 25, Target: 8, Difficulty: "expert", Category: "social", Counters: []Counter{
		{Name: "comments", Action: ActionComment, Target: 5},
		{Name: "ratings", Action: ActionRate, Target: 3},
	}},
	{ID: "pool_28", Title: "Ambassador", Description: "Share 5 different series.", Reward: 25, Target: 5, Difficulty: "expert", Category: "social", Counters: simple(ActionShare, 5)},

	// VIP exclusive
	{ID: "pool_vip_1", Title: "VIP Collector", Description: "Download 1 chapter for offline reading.", Reward: 20, Target: 1, Difficulty: "medium", Category: "engagement", VIPOnly: true, Counters: simple(ActionDownload, 1)},
}

// rewardPatterns are the sanctioned reward mixes for a generated set. Every
// pattern sums to a comparable daily payout.
var rewardPatterns = [][4]int{
	{5, 10, 20, 25},
	{5, 5, 25, 25},
	{10, 10, 20, 20},
	{5, 15, 20, 20},
	{10, 15, 15, 20},
	{5, 15, 15, 25},
}

// Pool returns the mission definitions available to a user. VIP-only entries
// are filtered out for free users.
func Pool(vip bool) []Definition {
	if vip {
		out := make([]Definition, len(pool))
		copy(out, pool)
		return out
	}
	out := make([]Definition, 0, len(pool))
	for _, d := range pool {
		if !d.VIPOnly {
			out = append(out, d)
		}
	}
	return out
}

// Lookup returns the pool definition for an ID.
func Lookup(id string) (Definition, bool) {
	for _, d := range pool {
		if d.ID == id {
			return d, true
		}
	}
	return Definition{}, false
}
