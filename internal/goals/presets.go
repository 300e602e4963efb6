package goals

import (
	"sort"
	"strings"

	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/domain"
)

var presets = map[string]Preset{
	"casual": {
		Weekly:  domain.Targets{"books": 1, "movies": 1, "activities": 2},
		Monthly: domain.Targets{"books": 3, "movies": 4, "animes": 1, "activities": 8},
	},
	"balanced": {
		Weekly:  domain.Targets{"books": 2, "movies": 2, "animes": 1, "activities": 3, "reports": 5},
		Monthly: domain.Targets{"books": 6, "movies": 8, "animes": 3, "activities": 12, "reports": 20},
	},
	"ambitious": {
		Weekly:  domain.Targets{"books": 3, "movies": 3, "animes": 2, "articles": 5, "activities": 5, "reports": 7},
		Monthly: domain.Targets{"books": 12, "movies": 12, "animes": 6, "articles": 20, "activities": 20, "reports": 28},
	},
}

// PresetByName returns a copy of a built-in preset.
func PresetByName(name string) (Preset, bool) {
	p, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Preset{}, false
	}
	return Preset{Weekly: p.Weekly.Clone(), Monthly: p.Monthly.Clone()}, true
}

// PresetNames lists the built-in presets.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
