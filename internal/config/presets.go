package config

import "sort"

// DetectionPresets are named detector settings selectable from the command
// line.
var DetectionPresets = map[string]DetectionConfig{
	"workflow": {Window: 70, Threshold: 0.003},
	"default":  {Window: 5, Threshold: 0.001},
	"strict":   {Window: 70, Threshold: 0.003, RequireMax: true},
	"fast":     {Window: 20, Threshold: 0.005},
}

func GetPreset(name string) (DetectionConfig, bool) {
	p, ok := DetectionPresets[name]
	return p, ok
}

func ListPresets() []string {
	names := make([]string, 0, len(DetectionPresets))
	for name := range DetectionPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
