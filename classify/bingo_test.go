package classify

import "testing"

func TestLoadBingo(t *testing.T) {
	b, err := LoadBingo()
	if err != nil {
		t.Fatalf("LoadBingo error: %v", err)
	}
	if len(b.items) == 0 {
		t.Fatal("no items loaded")
	}
	if len(b.teams) != 2 {
		t.Fatalf("expected 2 teams, got %d", len(b.teams))
	}
}

func TestAnnotate(t *testing.T) {
	b, err := LoadBingo()
	if err != nil {
		t.Fatalf("LoadBingo error: %v", err)
	}
	cases := []struct {
		name     string
		line     string
		eligible bool
		team     Team
	}{
		{
			name:     "eligible rostered drop",
			line:     "steamyplank received special loot from a raid: Osmumten's fang.",
			eligible: true,
			team:     "j22",
		},
		{
			name:     "eligible second roster",
			line:     "Nokowt received a drop: Twisted bow (1,149,489,200 coins).",
			eligible: true,
			team:     "vendirz",
		},
		{
			name:     "eligible unrostered player",
			line:     "RandomGuy received a drop: Elder maul (48,127,001 coins).",
			eligible: true,
			team:     TeamNone,
		},
		{
			name:     "rostered but not eligible",
			line:     "jibbuh received a drop: Rune platebody (38,902 coins).",
			eligible: false,
			team:     "j22",
		},
		{
			name:     "neither",
			line:     "Someone received a drop: Coal (192 coins).",
			eligible: false,
			team:     TeamNone,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := b.Annotate(tc.line)
			if a.Eligible != tc.eligible {
				t.Errorf("Eligible = %v, want %v", a.Eligible, tc.eligible)
			}
			if a.Team != tc.team {
				t.Errorf("Team = %q, want %q", a.Team, tc.team)
			}
		})
	}
}

// When players from both rosters appear in one line, the first roster wins
// regardless of position in the line.
func TestAnnotateTeamPriority(t *testing.T) {
	b, err := LoadBingo()
	if err != nil {
		t.Fatalf("LoadBingo error: %v", err)
	}
	a := b.Annotate("Cheeky watched as steamyplank received a drop: Osmumten's fang.")
	if !a.Eligible {
		t.Errorf("expected eligible")
	}
	if a.Team != "j22" {
		t.Errorf("Team = %q, want j22 (first roster priority)", a.Team)
	}
}
