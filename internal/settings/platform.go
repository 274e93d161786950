package settings

// VolumeRange is the accepted audio volume interval
type VolumeRange struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

// Platform holds the values read from the primary settings file
type Platform struct {
	SupportedLanguages []string    `json:"supportedLanguages" yaml:"supportedLanguages"`
	AudioVolume        VolumeRange `json:"audioVolume" yaml:"audioVolume"`
}

func defaultPlatform() Platform {
	return Platform{
		SupportedLanguages: []string{"en-US"},
		AudioVolume:        VolumeRange{Min: 0, Max: 100},
	}
}

func (s *Settings) loadPlatform() {
	platform := defaultPlatform()

	var override struct {
		SupportedLanguages []string     `json:"supportedLanguages" yaml:"supportedLanguages"`
		AudioVolume        *VolumeRange `json:"audioVolume" yaml:"audioVolume"`
	}
	if s.readOverride(s.paths.Settings, &override) {
		if len(override.SupportedLanguages) > 0 {
			platform.SupportedLanguages = override.SupportedLanguages
		}
		if v := override.AudioVolume; v != nil {
			if v.Min <= v.Max {
				platform.AudioVolume = *v
			} else {
				s.logger.Warn().
					Int("min", v.Min).
					Int("max", v.Max).
					Msg("Ignoring inverted audio volume range")
			}
		}
	}

	s.platform = platform
}

// SupportedLanguages returns the languages system/settings accepts
func (s *Settings) SupportedLanguages() []string {
	s.platformOnce.Do(s.loadPlatform)
	return append([]string(nil), s.platform.SupportedLanguages...)
}

// VolumeRange returns the accepted audio volume interval
func (s *Settings) VolumeRange() VolumeRange {
	s.platformOnce.Do(s.loadPlatform)
	return s.platform.AudioVolume
}

// SupportsLanguage reports whether lang is in the supported list
func (s *Settings) SupportsLanguage(lang string) bool {
	for _, supported := range s.SupportedLanguages() {
		if supported == lang {
			return true
		}
	}
	return false
}
