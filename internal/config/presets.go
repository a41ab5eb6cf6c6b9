package config

import "sort"

// Preset is a known contract deployment.
type Preset struct {
	Address     string
	NetworkID   uint64
	Transformer string
	LogFile     string
}

var presets = map[string]Preset{
	"azrael": {
		Address:     "0x94D8f036a0fbC216Bb532D33bDF6564157Af0cD7",
		NetworkID:   1,
		Transformer: "azrael",
		LogFile:     "azrael.log",
	},
	"rkl_club_auction": {
		Address:     "0xa10bEa6303E89225D6fA516594632DddB6FBF3b5",
		NetworkID:   42,
		Transformer: "rkl_club_auction",
		LogFile:     "rkl_club_auction.log",
	},
}

func LookupPreset(name string) (Preset, bool) {
	p, ok := presets[name]
	return p, ok
}

func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
