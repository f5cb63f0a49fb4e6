package classify

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// stubPrices satisfies PriceIndex for loot-value fallback tests.
type stubPrices struct {
	low int64
	err error
}

func (s *stubPrices) LowPrice(ctx context.Context, line string) (int64, error) {
	return s.low, s.err
}

func TestPlayerName(t *testing.T) {
	ext := &Extractor{}
	cases := []struct {
		name string
		line string
		cat  Category
		want string
	}{
		{
			name: "player kill",
			line: "ScytheMane has defeated Hardcore Bob (1,500 coins).",
			cat:  PlayerKill,
			want: "ScytheMane",
		},
		{
			name: "death by player",
			line: "steamyplank has been defeated by Vorkath.",
			cat:  Death,
			want: "steamyplank",
		},
		{
			name: "hardcore death",
			line: "HC-Chyne has died and lost a life.",
			cat:  Death,
			want: "HC-Chyne",
		},
		{
			name: "drop",
			line: "Dooxsi received special loot from a raid: Masori chaps (210,133,947 coins).",
			cat:  Drop,
			want: "Dooxsi",
		},
		{
			name: "level up",
			line: "ryanlul has reached level 99 in Slayer.",
			cat:  LevelUp,
			want: "ryanlul",
		},
		{
			name: "personal best",
			line: "steamyplank has achieved a new Zulrah personal best: 1:35",
			cat:  PersonalBest,
			want: "steamyplank",
		},
		{
			name: "name with spaces",
			line: "Moose World has achieved a new Zulrah personal best: 1:35",
			cat:  PersonalBest,
			want: "Moose World",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ext.PlayerName(tc.line, tc.cat)
			if err != nil {
				t.Fatalf("PlayerName error: %v", err)
			}
			if got != tc.want {
				t.Errorf("PlayerName = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestPlayerNameMissingAnchor(t *testing.T) {
	ext := &Extractor{}
	for _, cat := range []Category{PlayerKill, Death, Drop, LevelUp, PersonalBest} {
		if _, err := ext.PlayerName("not a clan line at all", cat); !errors.Is(err, ErrNoAnchor) {
			t.Errorf("category %s: err = %v, want ErrNoAnchor", cat, err)
		}
	}
}

func TestItemName(t *testing.T) {
	ext := &Extractor{}
	cases := []struct {
		name string
		line string
		want string
	}{
		{
			name: "parenthesized value",
			line: "Dooxsi received special loot from a raid: Masori chaps (210,133,947 coins).",
			want: "Masori chaps",
		},
		{
			name: "no parentheses",
			line: "BigBossHoss received special loot from a raid: Osmumten's fang.",
			want: "Osmumten's fang",
		},
		{
			name: "plain drop",
			line: "jibbuh received a drop: Dragon claws (92,381,021 coins).",
			want: "Dragon claws",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ext.ItemName(tc.line, Drop)
			if !ok {
				t.Fatalf("ItemName reported no item")
			}
			if got != tc.want {
				t.Errorf("ItemName = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestItemNameNonDrop(t *testing.T) {
	ext := &Extractor{}
	if _, ok := ext.ItemName("steamyplank has been defeated by Vorkath.", Death); ok {
		t.Errorf("ItemName should not extract for non-Drop categories")
	}
}

func TestLootValue(t *testing.T) {
	ext := &Extractor{}
	ctx := context.Background()
	cases := []struct {
		name string
		line string
		cat  Category
		want string
	}{
		{
			name: "pk with coins",
			line: "A defeated B (1,234,567 coins).",
			cat:  PlayerKill,
			want: "1234567",
		},
		{
			name: "raid drop with coins",
			line: "A received special loot from a raid: Masori chaps (210,133,947 coins).",
			cat:  Drop,
			want: "210133947",
		},
		{
			name: "qualifier group before coins",
			line: "A received a drop: Dragon platebody (unf) (1,500 coins).",
			cat:  Drop,
			want: "1500",
		},
		{
			name: "quantity group before coins",
			line: "A received a drop: Cannonball (10) (2,000 coins).",
			cat:  Drop,
			want: "2000",
		},
		{
			name: "death always zero",
			line: "A has been defeated by Vorkath (1,000 coins).",
			cat:  Death,
			want: "0",
		},
		{
			name: "paren without coins suffix",
			line: "A received a drop: Something odd (weird).",
			cat:  Drop,
			want: "0",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ext.LootValue(ctx, tc.line, tc.cat); got != tc.want {
				t.Errorf("LootValue = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestLootValuePriceFallback(t *testing.T) {
	ctx := context.Background()
	line := "BigBossHoss received special loot from a raid: Osmumten's fang."

	ext := &Extractor{Prices: &stubPrices{low: 14790000}}
	if got := ext.LootValue(ctx, line, Drop); got != "14790000" {
		t.Errorf("LootValue with price index = %q, want 14790000", got)
	}

	ext = &Extractor{Prices: &stubPrices{err: errors.New("boom")}}
	if got := ext.LootValue(ctx, line, Drop); got != "0" {
		t.Errorf("LootValue with failing index = %q, want 0", got)
	}

	ext = &Extractor{}
	if got := ext.LootValue(ctx, line, Drop); got != "0" {
		t.Errorf("LootValue with no index = %q, want 0", got)
	}
}

func TestDuration(t *testing.T) {
	ext := &Extractor{}
	cases := []struct {
		name string
		line string
		want float64
	}{
		{name: "minutes and seconds", line: "X personal best: 1:35", want: 95.0},
		{name: "hours minutes seconds", line: "X personal best: 10:10:10.8", want: 36610.8},
		{name: "bare seconds", line: "X personal best: 42.6", want: 42.6},
		{name: "fractional seconds", line: "X personal best: 0:59.4", want: 59.4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ext.Duration(tc.line)
			if err != nil {
				t.Fatalf("Duration error: %v", err)
			}
			if got != tc.want {
				t.Errorf("Duration = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDurationErrors(t *testing.T) {
	ext := &Extractor{}
	if _, err := ext.Duration("no anchor here"); !errors.Is(err, ErrNoAnchor) {
		t.Errorf("missing anchor: err = %v, want ErrNoAnchor", err)
	}
	if _, err := ext.Duration("X personal best: 1:2:3:4"); !errors.Is(err, ErrBadClock) {
		t.Errorf("three colons: err = %v, want ErrBadClock", err)
	}
	if _, err := ext.Duration("X personal best: fast"); !errors.Is(err, ErrBadClock) {
		t.Errorf("non-numeric clock: err = %v, want ErrBadClock", err)
	}
}

func TestBossName(t *testing.T) {
	ext := &Extractor{}
	got, err := ext.BossName("steamyplank has achieved a new Zulrah personal best: 1:35")
	if err != nil {
		t.Fatalf("BossName error: %v", err)
	}
	if got != "Zulrah" {
		t.Errorf("BossName = %q, want Zulrah", got)
	}

	got, err = ext.BossName("Moose World has achieved a new Tombs of Amascut (team size: 5) Expert mode Overall personal best: 29:43")
	if err != nil {
		t.Fatalf("BossName error: %v", err)
	}
	if got != "Tombs of Amascut (team size: 5) Expert mode Overall" {
		t.Errorf("BossName = %q", got)
	}

	if _, err := ext.BossName("nothing to see"); !errors.Is(err, ErrNoAnchor) {
		t.Errorf("err = %v, want ErrNoAnchor", err)
	}
}

func TestCoinsRoundTrip(t *testing.T) {
	cases := []struct {
		n    int64
		want string
	}{
		{n: 0, want: "0"},
		{n: 1500, want: "1,500"},
		{n: 1234567, want: "1,234,567"},
		{n: 210133947, want: "210,133,947"},
	}
	for _, tc := range cases {
		display := FormatCoins(tc.n)
		if display != tc.want {
			t.Errorf("FormatCoins(%d) = %q, want %q", tc.n, display, tc.want)
		}
		back, err := ParseCoins(strings.ReplaceAll(display, ",", ""))
		if err != nil {
			t.Fatalf("ParseCoins(%q) error: %v", display, err)
		}
		if back != tc.n {
			t.Errorf("round trip %d -> %q -> %d", tc.n, display, back)
		}
	}
}
