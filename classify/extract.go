package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Extraction errors. All of them must be contained by the caller: a malformed
// line drops its record with a logged warning and processing continues.
var (
	ErrNoAnchor = errors.New("anchor phrase not found")
	ErrBadClock = errors.New("unrecognized clock format")
	ErrNoLoot   = errors.New("no loot value in line")
)

// Anchor phrases used to locate field boundaries inside a line. Each anchor's
// trim constant removes the grammatical connective preceding it, which is not
// part of the player name.
const (
	anchorDefeated = "defeated"
	anchorHasDied  = "has died"
	anchorReceived = "received"
	anchorReached  = " has reached "
	anchorAchieved = " has achieved a new"
	anchorBest     = "personal best: "
	anchorBossFrom = "has achieved a new "
	anchorBossTo   = " personal best:"
)

const (
	trimHas     = 5  // len(" has ") before "defeated" in kill lines
	trimHasBeen = 10 // len(" has been ") before "defeated" in death lines
	trimSpace   = 1  // single separating space
)

// PriceIndex resolves the live market value of an item mentioned in a line.
// Implementations must honor the context deadline; failures degrade to the
// zero-value loot path, never a crash.
type PriceIndex interface {
	LowPrice(ctx context.Context, line string) (int64, error)
}

// Extractor pulls structured fields out of classified lines. Prices backs the
// loot-value fallback when a drop line carries no parenthesized amount; a nil
// Prices disables that fallback.
type Extractor struct {
	Prices PriceIndex
}

// PlayerName returns the RSN a classified line originated from. The category
// selects which anchor phrase delimits the name.
func (e *Extractor) PlayerName(line string, cat Category) (string, error) {
	switch cat {
	case PlayerKill:
		i := strings.Index(line, anchorDefeated)
		if i < trimHas {
			return "", fmt.Errorf("player kill: %w", ErrNoAnchor)
		}
		return line[:i-trimHas], nil
	case Death:
		if i := strings.Index(line, anchorDefeated); i >= 0 {
			if i < trimHasBeen {
				return "", fmt.Errorf("death: %w", ErrNoAnchor)
			}
			return line[:i-trimHasBeen], nil
		}
		if i := strings.Index(line, anchorHasDied); i >= trimSpace {
			return line[:i-trimSpace], nil
		}
		return "", fmt.Errorf("death: %w", ErrNoAnchor)
	case Drop:
		i := strings.Index(line, anchorReceived)
		if i < trimSpace {
			return "", fmt.Errorf("drop: %w", ErrNoAnchor)
		}
		return line[:i-trimSpace], nil
	case LevelUp:
		i := strings.Index(line, anchorReached)
		if i < 0 {
			return "", fmt.Errorf("level up: %w", ErrNoAnchor)
		}
		return line[:i], nil
	case PersonalBest:
		i := strings.Index(line, anchorAchieved)
		if i < 0 {
			return "", fmt.Errorf("personal best: %w", ErrNoAnchor)
		}
		return line[:i], nil
	}
	return "", fmt.Errorf("category %s has no player name: %w", cat, ErrNoAnchor)
}

// itemBeforeParen captures the text between the colon and the opening paren of
// the value group, e.g. "... raid: Masori chaps (210,133,947 coins)."
var itemBeforeParen = regexp.MustCompile(`:\s*(.*?)\s*\(`)

// ItemName returns the dropped item from a Drop line. The second return is
// false for non-Drop categories and for lines the item cannot be cut from.
func (e *Extractor) ItemName(line string, cat Category) (string, bool) {
	if cat != Drop {
		return "", false
	}
	if strings.ContainsRune(line, '(') {
		if m := itemBeforeParen.FindStringSubmatch(line); m != nil {
			return m[1], true
		}
		return "", false
	}
	// No parentheses: the item runs from two past the colon to the last
	// character (a trailing period).
	i := strings.IndexByte(line, ':')
	if i < 0 || i+2 >= len(line) {
		return "", false
	}
	return line[i+2 : len(line)-1], true
}

// LootValue extracts the GP value of a kill or drop as a digits-only string in
// minor units. It tries, in order: a parenthesized "(N coins)" amount, the
// same after skipping a leading qualifier group like "(unf)" or "(10)", and
// finally a live price-index lookup keyed by item name. Every failure path
// returns the sentinel "0"; this function never propagates an error.
func (e *Extractor) LootValue(ctx context.Context, line string, cat Category) string {
	if cat != PlayerKill && cat != Drop {
		return "0"
	}
	if strings.ContainsRune(line, '(') {
		if v, ok := parenValue(line); ok {
			return v
		}
		return "0"
	}
	if e == nil || e.Prices == nil {
		return "0"
	}
	low, err := e.Prices.LowPrice(ctx, line)
	if err != nil {
		slog.Warn("price lookup failed; recording zero loot", slog.Any("err", err))
		return "0"
	}
	return strconv.FormatInt(low, 10)
}

func parenValue(line string) (string, bool) {
	open := strings.IndexByte(line, '(')
	closing := strings.IndexByte(line, ')')
	if open < 0 || closing < 0 || open+1 >= len(line) {
		return "", false
	}
	// A coins group opens with a digit and closes with the 's' of "coins".
	if isDigit(line[open+1]) && closing > 0 && line[closing-1] == 's' {
		return cutCoins(line, open, closing)
	}
	// A qualifier group precedes the real amount; skip past the first ')'.
	rest := line[closing+1:]
	open = strings.IndexByte(rest, '(')
	closing = strings.IndexByte(rest, ')')
	if open < 0 || closing < 0 {
		return "", false
	}
	return cutCoins(rest, open, closing)
}

// cutCoins slices the numeric text out of "(N coins)": one past the open
// paren through six before the close (the width of " coins"), commas removed.
func cutCoins(s string, open, closing int) (string, bool) {
	end := closing - 6
	if end <= open+1 {
		return "", false
	}
	return strings.ReplaceAll(s[open+1:end], ",", ""), true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// Duration parses the clock trailing "personal best: " into total seconds.
// The colon count selects the shape: 2 is H:M:S, 1 is M:S, 0 is bare seconds.
// Any other count is a fatal extraction error for the line.
func (e *Extractor) Duration(line string) (float64, error) {
	i := strings.Index(line, anchorBest)
	if i < 0 {
		return 0, fmt.Errorf("duration: %w", ErrNoAnchor)
	}
	clock := line[i+len(anchorBest):]
	parts := strings.Split(clock, ":")
	switch len(parts) {
	case 3:
		h, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, fmt.Errorf("duration hours %q: %w", parts[0], ErrBadClock)
		}
		m, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, fmt.Errorf("duration minutes %q: %w", parts[1], ErrBadClock)
		}
		s, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return 0, fmt.Errorf("duration seconds %q: %w", parts[2], ErrBadClock)
		}
		return float64(h)*3600 + float64(m)*60 + s, nil
	case 2:
		m, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, fmt.Errorf("duration minutes %q: %w", parts[0], ErrBadClock)
		}
		s, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return 0, fmt.Errorf("duration seconds %q: %w", parts[1], ErrBadClock)
		}
		return float64(m)*60 + s, nil
	case 1:
		s, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return 0, fmt.Errorf("duration seconds %q: %w", parts[0], ErrBadClock)
		}
		return s, nil
	}
	return 0, fmt.Errorf("duration with %d colons: %w", len(parts)-1, ErrBadClock)
}

// BossName returns the activity a personal best was achieved on, e.g.
// "Zulrah" from "steamyplank has achieved a new Zulrah personal best: 1:35".
func (e *Extractor) BossName(line string) (string, error) {
	from := strings.Index(line, anchorBossFrom)
	if from < 0 {
		return "", fmt.Errorf("boss name: %w", ErrNoAnchor)
	}
	to := strings.Index(line, anchorBossTo)
	if to < from+len(anchorBossFrom) {
		return "", fmt.Errorf("boss name: %w", ErrNoAnchor)
	}
	return line[from+len(anchorBossFrom) : to], nil
}

// FormatCoins renders a minor-unit value with comma group separators for
// display. Stripping the commas from the result recovers the input exactly.
func FormatCoins(n int64) string { return humanize.Comma(n) }

// ParseCoins parses a digits-only loot string (the LootValue output) into
// minor units.
func ParseCoins(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("loot value %q: %w", s, ErrNoLoot)
	}
	return n, nil
}
