package settings

import "sort"

// defaultKeymap maps protocol key names to RDKShell key codes
var defaultKeymap = map[string]int{
	"KEY_POWER":        116,
	"KEY_HOME":         36,
	"KEY_VOLUME_UP":    175,
	"KEY_VOLUME_DOWN":  174,
	"KEY_MUTE":         173,
	"KEY_EXIT":         27,
	"KEY_UP":           38,
	"KEY_PAGE_UP":      33,
	"KEY_PAGE_DOWN":    34,
	"KEY_RIGHT":        39,
	"KEY_DOWN":         40,
	"KEY_LEFT":         37,
	"KEY_ENTER":        13,
	"KEY_BACK":         8,
	"KEY_PLAY":         179,
	"KEY_PLAY_PAUSE":   179,
	"KEY_PAUSE":        179,
	"KEY_STOP":         178,
	"KEY_REWIND":       227,
	"KEY_FAST_FORWARD": 228,
	"KEY_MENU":         408,
	"KEY_0":            48,
	"KEY_1":            49,
	"KEY_2":            50,
	"KEY_3":            51,
	"KEY_4":            52,
	"KEY_5":            53,
	"KEY_6":            54,
	"KEY_7":            55,
	"KEY_8":            56,
	"KEY_9":            57,
	"KEY_RED":          403,
	"KEY_GREEN":        404,
	"KEY_YELLOW":       405,
	"KEY_BLUE":         406,
}

func (s *Settings) loadKeymap() {
	keymap := make(map[string]int, len(defaultKeymap))
	for name, code := range defaultKeymap {
		keymap[name] = code
	}

	// later files win per key
	for _, path := range []string{s.paths.Keymap, s.paths.PlatformKeymap} {
		var override map[string]int
		if !s.readOverride(path, &override) {
			continue
		}
		for name, code := range override {
			keymap[name] = code
		}
	}

	s.keymap = keymap
}

// KeyCode returns the device key code for a protocol key name
func (s *Settings) KeyCode(name string) (int, bool) {
	s.keymapOnce.Do(s.loadKeymap)
	code, ok := s.keymap[name]
	return code, ok
}

// KeyNames returns every mapped key name, sorted
func (s *Settings) KeyNames() []string {
	s.keymapOnce.Do(s.loadKeymap)
	names := make([]string, 0, len(s.keymap))
	for name := range s.keymap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Keymap returns a copy of the effective keymap
func (s *Settings) Keymap() map[string]int {
	s.keymapOnce.Do(s.loadKeymap)
	keymap := make(map[string]int, len(s.keymap))
	for name, code := range s.keymap {
		keymap[name] = code
	}
	return keymap
}
