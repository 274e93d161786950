package settings

import (
	"strings"
	"time"
)

// DefaultTimeout applies to any transition without an explicit value
const DefaultTimeout = 2500 * time.Millisecond

// AppTimeouts are the settle delays applied after each lifecycle transition
type AppTimeouts struct {
	ColdLaunch       time.Duration
	ResumeLaunch     time.Duration
	ExitToDestroy    time.Duration
	ExitToBackground time.Duration
}

// DefaultAppTimeouts returns the delays used for apps with no entry
func DefaultAppTimeouts() AppTimeouts {
	return AppTimeouts{
		ColdLaunch:       DefaultTimeout,
		ResumeLaunch:     DefaultTimeout,
		ExitToDestroy:    DefaultTimeout,
		ExitToBackground: DefaultTimeout,
	}
}

// LifecycleApps lists the app ids the platform lifecycle file may configure
var LifecycleApps = []string{"YouTube", "Netflix", "PrimeVideo"}

// appTimeoutsFile is one entry of the platform lifecycle file; absent fields keep the default
type appTimeoutsFile struct {
	ColdLaunch       *int `json:"cold_launch_timeout_ms" yaml:"cold_launch_timeout_ms"`
	ResumeLaunch     *int `json:"resume_launch_timeout_ms" yaml:"resume_launch_timeout_ms"`
	ExitToDestroy    *int `json:"exit_to_destroy_timeout_ms" yaml:"exit_to_destroy_timeout_ms"`
	ExitToBackground *int `json:"exit_to_background_timeout_ms" yaml:"exit_to_background_timeout_ms"`
}

func (f appTimeoutsFile) apply(t AppTimeouts) AppTimeouts {
	set := func(dst *time.Duration, ms *int) {
		if ms != nil && *ms >= 0 {
			*dst = time.Duration(*ms) * time.Millisecond
		}
	}
	set(&t.ColdLaunch, f.ColdLaunch)
	set(&t.ResumeLaunch, f.ResumeLaunch)
	set(&t.ExitToDestroy, f.ExitToDestroy)
	set(&t.ExitToBackground, f.ExitToBackground)
	return t
}

func (s *Settings) loadTimeouts() {
	builtIn := DefaultAppTimeouts()
	builtIn.ColdLaunch = 6 * time.Second

	timeouts := map[string]AppTimeouts{
		strings.ToLower("YouTube"): builtIn,
	}

	var override map[string]appTimeoutsFile
	if s.readOverride(s.paths.PlatformLifecycle, &override) {
		for _, appID := range LifecycleApps {
			entry, ok := lookupFold(override, appID)
			if !ok {
				continue
			}
			current, ok := timeouts[strings.ToLower(appID)]
			if !ok {
				current = DefaultAppTimeouts()
			}
			timeouts[strings.ToLower(appID)] = entry.apply(current)
		}
		for appID := range override {
			if !isLifecycleApp(appID) {
				s.logger.Warn().Str("app_id", appID).Msg("Ignoring lifecycle timeouts for unknown app")
			}
		}
	}

	s.timeouts = timeouts
}

// AppTimeouts returns the settle delays for appID (case-insensitive)
func (s *Settings) AppTimeouts(appID string) AppTimeouts {
	s.timeoutsOnce.Do(s.loadTimeouts)
	if t, ok := s.timeouts[strings.ToLower(appID)]; ok {
		return t
	}
	return DefaultAppTimeouts()
}

func lookupFold(entries map[string]appTimeoutsFile, appID string) (appTimeoutsFile, bool) {
	for key, entry := range entries {
		if strings.EqualFold(key, appID) {
			return entry, true
		}
	}
	return appTimeoutsFile{}, false
}

func isLifecycleApp(appID string) bool {
	for _, known := range LifecycleApps {
		if strings.EqualFold(known, appID) {
			return true
		}
	}
	return false
}
