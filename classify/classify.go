// Package classify turns relayed clan chat lines into structured events. It
// holds the ordered lexical rule table that assigns each line a category, the
// per-category field extractors (player name, item, loot value, duration), and
// the bingo side-game matcher. Everything here is pure over immutable static
// tables, so a single instance is safe for concurrent use.
//
// The rule set is manually curated and deliberately approximate: lines are
// disambiguated by colon counts and first-colon offsets rather than real
// parsing. Historical data depends on these exact boundaries, so the rules
// must not be "fixed" even where they look buggy.
package classify

import "strings"

// Category is the closed set of event kinds a clan line can resolve to.
// Unrecognized is a valid terminal outcome, not an error.
type Category int

const (
	PlayerKill Category = iota
	Death
	Drop
	LevelUp
	Quest
	Pet
	PersonalBest
	CollectionLog
	CombatAchievement
	CombatTask
	ClanInvite
	ClanLeave
	DiaryComplete
	Unrecognized
)

var categoryNames = map[Category]string{
	PlayerKill:        "player_kill",
	Death:             "death",
	Drop:              "drop",
	LevelUp:           "level_up",
	Quest:             "quest",
	Pet:               "pet",
	PersonalBest:      "personal_best",
	CollectionLog:     "collection_log",
	CombatAchievement: "combat_achievement",
	CombatTask:        "combat_task",
	ClanInvite:        "clan_invite",
	ClanLeave:         "clan_leave",
	DiaryComplete:     "diary_complete",
	Unrecognized:      "unrecognized",
}

func (c Category) String() string {
	if s, ok := categoryNames[c]; ok {
		return s
	}
	return "unrecognized"
}

// Result is the immutable outcome of classifying one line.
type Result struct {
	Category Category
	// Route is the webhook routing key for the category, resolved to a URL by
	// the pipeline's route table. Empty for Unrecognized.
	Route string
	// Message is the original line with the category's decorative prefix.
	Message string
}

// rule is one entry of the ordered rule table. Rules are evaluated top to
// bottom; the first match wins and there is no backtracking.
type rule struct {
	category Category
	anyOf    []string // at least one must appear in the line
	allOf    []string // every one must appear in the line
	noneOf   []string // none may appear in the line
	// exactColons pins the total ':' count; -1 leaves it unconstrained.
	exactColons int
	// minColons requires at least this many ':' when > 0.
	minColons int
	// minColonIndex requires the first ':' to sit past this byte offset,
	// excluding lines where a name/clan prefix supplies an early colon.
	minColonIndex int
}

func (r rule) matches(line string, colons int) bool {
	if r.exactColons >= 0 && colons != r.exactColons {
		return false
	}
	if r.minColons > 0 && colons < r.minColons {
		return false
	}
	if len(r.anyOf) > 0 {
		hit := false
		for _, s := range r.anyOf {
			if strings.Contains(line, s) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	for _, s := range r.allOf {
		if !strings.Contains(line, s) {
			return false
		}
	}
	for _, s := range r.noneOf {
		if strings.Contains(line, s) {
			return false
		}
	}
	if r.minColonIndex > 0 {
		if i := strings.IndexByte(line, ':'); i <= r.minColonIndex {
			return false
		}
	}
	return true
}

// The table is process-wide immutable state. Order is a total order; ties are
// broken by position, never by specificity.
var rules = []rule{
	{
		category: PlayerKill,
		anyOf:    []string{" has defeated "},
		// guards against a known double-substitution artifact in the feed
		noneOf:      []string{"has been defeated by has defeated"},
		exactColons: 0,
	},
	{
		category: Death,
		anyOf: []string{
			" defeated by ",
			"has died and lost a life.",
			"has died and lost their Hardcore Ironman status.",
			"has died and lost their hardcore ironman status.",
		},
		exactColons: 0,
	},
	{
		category: Drop,
		anyOf: []string{
			"received a drop:",
			"received an item:",
			"loot from a raid:",
			"received a clue item:",
		},
		exactColons: 1,
	},
	{category: LevelUp, anyOf: []string{"has reached"}, exactColons: 0},
	{category: Quest, anyOf: []string{"completed a quest:"}, exactColons: 1},
	{
		category: Pet,
		anyOf: []string{
			"being followed:",
			"have been followed:",
			"backpack:",
			"something special:",
		},
		exactColons: 1,
	},
	{category: PersonalBest, anyOf: []string{"personal best:"}, exactColons: -1, minColonIndex: 12},
	{category: CollectionLog, anyOf: []string{"collection log item:"}, exactColons: 1},
	{category: ClanInvite, anyOf: []string{"invited into the clan"}, exactColons: 0},
	{category: ClanLeave, anyOf: []string{"has left the clan"}, exactColons: 0},
	{category: DiaryComplete, allOf: []string{"completed", "diary"}, exactColons: 0},
	{category: CombatAchievement, anyOf: []string{"Combat Achievement"}, exactColons: 0},
	{category: CombatTask, anyOf: []string{" combat task:"}, exactColons: -1, minColons: 1, minColonIndex: 12},
}

// prefixes decorate the republished message body per category.
var prefixes = map[Category]string{
	PlayerKill:        ":skull_crossbones:",
	Death:             ":headstone:",
	Drop:              ":moneybag:",
	LevelUp:           ":partying_face:",
	Quest:             ":tada:",
	Pet:               ":dragon:",
	PersonalBest:      ":medal:",
	CollectionLog:     ":closed_book:",
	CombatAchievement: ":blue_book:",
	CombatTask:        ":crossed_swords:",
	ClanInvite:        ":slight_smile:",
	ClanLeave:         ":cry:",
	DiaryComplete:     ":green_book:",
}

// routeKeys map categories to webhook routing keys. The pipeline validates
// that every key resolves to a URL at startup when dispatch is enabled.
var routeKeys = map[Category]string{
	PlayerKill:        "pk",
	Death:             "death",
	Drop:              "drop",
	LevelUp:           "level",
	Quest:             "quest",
	Pet:               "pet",
	PersonalBest:      "personal_best",
	CollectionLog:     "collection_log",
	CombatAchievement: "combat_achievement",
	CombatTask:        "combat_task",
	ClanInvite:        "invited",
	ClanLeave:         "left",
	DiaryComplete:     "diary",
}

// RouteKey returns the webhook routing key for a category, or "" for
// Unrecognized.
func RouteKey(c Category) string { return routeKeys[c] }

// RoutableCategories lists every category that resolves to a webhook route.
func RoutableCategories() []Category {
	out := make([]Category, 0, len(routeKeys))
	for c := PlayerKill; c < Unrecognized; c++ {
		out = append(out, c)
	}
	return out
}

// Classify assigns a line to exactly one category. It is total: every input
// yields a Result, falling back to Unrecognized when no rule matches.
func Classify(line string) Result {
	colons := strings.Count(line, ":")
	for _, r := range rules {
		if r.matches(line, colons) {
			return Result{
				Category: r.category,
				Route:    routeKeys[r.category],
				Message:  prefixes[r.category] + " " + line,
			}
		}
	}
	return Result{Category: Unrecognized, Message: line}
}
