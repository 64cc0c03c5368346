package game

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// StrategyCard describes one of the eight strategy cards. The catalog is
// static; per-round claim state lives on the Session.
type StrategyCard struct {
	Name       string `yaml:"name" json:"name"`
	Initiative int    `yaml:"initiative" json:"initiative"`
	// GrantsSpeaker marks the card whose holder becomes speaker for the
	// following round (Politics in the base game).
	GrantsSpeaker bool `yaml:"grants_speaker" json:"grants_speaker,omitempty"`
}

//go:embed cards.yaml
var cardsYAML []byte

var catalog []StrategyCard

func init() {
	var doc struct {
		Cards []StrategyCard `yaml:"cards"`
	}
	if err := yaml.Unmarshal(cardsYAML, &doc); err != nil {
		panic(fmt.Sprintf("game: corrupt card catalog: %v", err))
	}
	seen := make(map[int]string, len(doc.Cards))
	for _, c := range doc.Cards {
		if c.Name == "" || c.Initiative < 1 || c.Initiative > len(doc.Cards) {
			panic(fmt.Sprintf("game: invalid card entry %+v", c))
		}
		if prev, dup := seen[c.Initiative]; dup {
			panic(fmt.Sprintf("game: initiative %d shared by %s and %s", c.Initiative, prev, c.Name))
		}
		seen[c.Initiative] = c.Name
	}
	sort.Slice(doc.Cards, func(i, j int) bool {
		return doc.Cards[i].Initiative < doc.Cards[j].Initiative
	})
	catalog = doc.Cards
}

// Cards returns the strategy card catalog sorted by initiative.
func Cards() []StrategyCard {
	out := make([]StrategyCard, len(catalog))
	copy(out, catalog)
	return out
}

// CardByName looks a card up by case-insensitive name.
func CardByName(name string) (StrategyCard, bool) {
	name = strings.TrimSpace(name)
	for _, c := range catalog {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return StrategyCard{}, false
}
