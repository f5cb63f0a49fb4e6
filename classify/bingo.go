package classify

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Team identifies one of the two bingo rosters. Roster order in bingo.yaml is
// the priority order: the first roster containing a name in the line wins.
type Team string

const TeamNone Team = ""

// Annotation flags a record for the bingo side competition. Eligibility and
// team assignment are independent: a valuable drop by an unrostered player is
// flagged but unattributed.
type Annotation struct {
	Eligible bool
	Team     Team
}

// Bingo matches lines against the curated valuable-item allow-list and the
// two player rosters. Both are load-time static data; Annotate never mutates.
type Bingo struct {
	items []string
	teams []roster
}

type roster struct {
	name    Team
	players []string
}

//go:embed bingo.yaml
var bingoData []byte

type bingoFile struct {
	Items []string `yaml:"items"`
	Teams []struct {
		Name    string   `yaml:"name"`
		Players []string `yaml:"players"`
	} `yaml:"teams"`
}

// LoadBingo parses the embedded allow-list and rosters. A malformed data file
// is a startup-time fatal condition.
func LoadBingo() (*Bingo, error) {
	var f bingoFile
	if err := yaml.Unmarshal(bingoData, &f); err != nil {
		return nil, fmt.Errorf("parse bingo data: %w", err)
	}
	if len(f.Items) == 0 || len(f.Teams) == 0 {
		return nil, fmt.Errorf("bingo data missing items or teams")
	}
	b := &Bingo{items: f.Items}
	for _, t := range f.Teams {
		b.teams = append(b.teams, roster{name: Team(t.Name), players: t.Players})
	}
	return b, nil
}

// Annotate scans a line for allow-listed items and rostered player names.
func (b *Bingo) Annotate(line string) Annotation {
	a := Annotation{Team: TeamNone}
	for _, item := range b.items {
		if strings.Contains(line, item) {
			a.Eligible = true
			break
		}
	}
	for _, t := range b.teams {
		for _, p := range t.players {
			if strings.Contains(line, p) {
				a.Team = t.name
				return a
			}
		}
	}
	return a
}
