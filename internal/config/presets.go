package config

import "sort"

// Presets holds named configurations grouped by system.
var Presets = map[string]map[string]*Config{
	"h1_prota": {
		"production": DefaultConfig(),
		"short":      shortRun(),
		"crowded":    crowded(),
	},
}

func shortRun() *Config {
	cfg := DefaultConfig()
	cfg.Platform = "CPU"
	cfg.Output.Steps = 100000
	cfg.Output.ReportInterval = 1000
	return cfg
}

// crowded packs several copies of each chain into a larger box.
func crowded() *Config {
	cfg := DefaultConfig()
	cfg.Box.A, cfg.Box.B, cfg.Box.C = 25, 25, 25
	cfg.Molecules[0].Count = 4
	cfg.Molecules[1].Count = 4
	cfg.Output.System = "H1_Prota_crowded_system.xml"
	cfg.Output.StartStructure = "start_crowded.pdb"
	return cfg
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(system, preset string) *Config {
	systemPresets, ok := Presets[system]
	if !ok {
		return nil
	}
	cfg, ok := systemPresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(system string) []string {
	systemPresets, ok := Presets[system]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(systemPresets))
	for name := range systemPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ListSystems() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
