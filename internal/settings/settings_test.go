package settings_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dabbridge/internal/rdk"
	"dabbridge/internal/settings"
)

// fakeProps answers device property reads from a map and counts calls
type fakeProps struct {
	values map[rdk.Method]string
	err    error
	calls  int
}

func (f *fakeProps) Property(method rdk.Method, key string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	value, ok := f.values[method]
	if !ok {
		return "", errors.New("unavailable")
	}
	return value, nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// missingPaths points every override file at a location that does not exist
func missingPaths(dir string) settings.Paths {
	return settings.Paths{
		Settings:          filepath.Join(dir, "missing-settings.json"),
		Keymap:            filepath.Join(dir, "missing-keymap.json"),
		PlatformKeymap:    filepath.Join(dir, "missing-platform-keymap.json"),
		PlatformLifecycle: filepath.Join(dir, "missing-lifecycle.json"),
	}
}

func TestOptions(t *testing.T) {
	paths := missingPaths(t.TempDir())
	s := settings.New(settings.Options{Address: "10.0.0.7:9998", Debug: true, Paths: paths}, &fakeProps{})

	assert.Equal(t, "10.0.0.7:9998", s.DeviceAddress())
	assert.True(t, s.Debug())
	assert.Equal(t, paths, s.Paths())
}

func TestDeviceID(t *testing.T) {
	t.Run("reads the serial number once", func(t *testing.T) {
		props := &fakeProps{values: map[rdk.Method]string{rdk.GetSerialNumber: "SN-1"}}
		s := settings.New(settings.Options{Address: "127.0.0.1:9998"}, props)

		id, err := s.DeviceID()
		require.NoError(t, err)
		assert.Equal(t, "SN-1", id)

		_, _ = s.DeviceID()
		assert.Equal(t, 1, props.calls)
	})

	t.Run("configured id skips the device", func(t *testing.T) {
		props := &fakeProps{}
		s := settings.New(settings.Options{DeviceID: "fixed"}, props)

		id, err := s.DeviceID()
		require.NoError(t, err)
		assert.Equal(t, "fixed", id)
		assert.Zero(t, props.calls)
	})

	t.Run("failure is remembered", func(t *testing.T) {
		props := &fakeProps{err: errors.New("connection refused")}
		s := settings.New(settings.Options{}, props)

		_, err := s.DeviceID()
		require.Error(t, err)
		_, err = s.DeviceID()
		require.Error(t, err)
		assert.Equal(t, 1, props.calls)
	})
}

func TestIP(t *testing.T) {
	t.Run("uses the network service", func(t *testing.T) {
		props := &fakeProps{values: map[rdk.Method]string{rdk.GetIPSettings: "192.168.1.20"}}
		s := settings.New(settings.Options{Address: "127.0.0.1:9998"}, props)
		assert.Equal(t, "192.168.1.20", s.IP())
	})

	t.Run("falls back to the configured host", func(t *testing.T) {
		s := settings.New(settings.Options{Address: "10.0.0.7:9998"}, &fakeProps{})
		assert.Equal(t, "10.0.0.7", s.IP())
	})
}

func TestKeymap(t *testing.T) {
	t.Run("defaults without override files", func(t *testing.T) {
		s := settings.New(settings.Options{Paths: missingPaths(t.TempDir())}, &fakeProps{})

		code, ok := s.KeyCode("KEY_POWER")
		assert.True(t, ok)
		assert.Equal(t, 116, code)

		_, ok = s.KeyCode("KEY_UNKNOWN")
		assert.False(t, ok)
	})

	t.Run("later files win per key", func(t *testing.T) {
		dir := t.TempDir()
		paths := missingPaths(dir)
		paths.Keymap = writeFile(t, dir, "keymap.json", `{"KEY_POWER": 200, "KEY_CUSTOM": 7}`)
		paths.PlatformKeymap = writeFile(t, dir, "platform.json", `{"KEY_POWER": 300}`)
		s := settings.New(settings.Options{Paths: paths}, &fakeProps{})

		code, _ := s.KeyCode("KEY_POWER")
		assert.Equal(t, 300, code)
		code, _ = s.KeyCode("KEY_CUSTOM")
		assert.Equal(t, 7, code)
		code, _ = s.KeyCode("KEY_HOME")
		assert.Equal(t, 36, code)
	})

	t.Run("primary file alone overrides defaults", func(t *testing.T) {
		dir := t.TempDir()
		paths := missingPaths(dir)
		paths.Keymap = writeFile(t, dir, "keymap.json", `{"KEY_POWER": 200}`)
		s := settings.New(settings.Options{Paths: paths}, &fakeProps{})

		code, _ := s.KeyCode("KEY_POWER")
		assert.Equal(t, 200, code)
	})

	t.Run("accepts YAML overrides", func(t *testing.T) {
		dir := t.TempDir()
		paths := missingPaths(dir)
		paths.Keymap = writeFile(t, dir, "keymap.yml", "KEY_POWER: 201\n")
		s := settings.New(settings.Options{Paths: paths}, &fakeProps{})

		code, _ := s.KeyCode("KEY_POWER")
		assert.Equal(t, 201, code)
	})

	t.Run("malformed file keeps defaults", func(t *testing.T) {
		dir := t.TempDir()
		paths := missingPaths(dir)
		paths.Keymap = writeFile(t, dir, "keymap.json", `{"KEY_POWER": `)
		s := settings.New(settings.Options{Paths: paths}, &fakeProps{})

		code, _ := s.KeyCode("KEY_POWER")
		assert.Equal(t, 116, code)
	})

	t.Run("names are sorted", func(t *testing.T) {
		s := settings.New(settings.Options{Paths: missingPaths(t.TempDir())}, &fakeProps{})
		names := s.KeyNames()
		assert.IsIncreasing(t, names)
		assert.Contains(t, names, "KEY_ENTER")
	})
}

func TestAppTimeouts(t *testing.T) {
	t.Run("built-in cold launch for YouTube", func(t *testing.T) {
		s := settings.New(settings.Options{Paths: missingPaths(t.TempDir())}, &fakeProps{})

		yt := s.AppTimeouts("youtube")
		assert.Equal(t, 6*time.Second, yt.ColdLaunch)
		assert.Equal(t, settings.DefaultTimeout, yt.ResumeLaunch)

		assert.Equal(t, settings.DefaultAppTimeouts(), s.AppTimeouts("Netflix"))
		assert.Equal(t, settings.DefaultAppTimeouts(), s.AppTimeouts("SomeOtherApp"))
	})

	t.Run("platform file overrides known apps only", func(t *testing.T) {
		dir := t.TempDir()
		paths := missingPaths(dir)
		paths.PlatformLifecycle = writeFile(t, dir, "lifecycle.json", `{
			"Netflix": {"cold_launch_timeout_ms": 4000, "exit_to_background_timeout_ms": 1000},
			"youtube": {"resume_launch_timeout_ms": 1500},
			"Unknown": {"cold_launch_timeout_ms": 1}
		}`)
		s := settings.New(settings.Options{Paths: paths}, &fakeProps{})

		netflix := s.AppTimeouts("Netflix")
		assert.Equal(t, 4*time.Second, netflix.ColdLaunch)
		assert.Equal(t, time.Second, netflix.ExitToBackground)
		assert.Equal(t, settings.DefaultTimeout, netflix.ExitToDestroy)

		yt := s.AppTimeouts("YouTube")
		assert.Equal(t, 6*time.Second, yt.ColdLaunch)
		assert.Equal(t, 1500*time.Millisecond, yt.ResumeLaunch)

		assert.Equal(t, settings.DefaultAppTimeouts(), s.AppTimeouts("Unknown"))
	})
}

func TestPlatform(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		s := settings.New(settings.Options{Paths: missingPaths(t.TempDir())}, &fakeProps{})

		assert.Equal(t, []string{"en-US"}, s.SupportedLanguages())
		assert.Equal(t, settings.VolumeRange{Min: 0, Max: 100}, s.VolumeRange())
		assert.True(t, s.SupportsLanguage("en-US"))
		assert.False(t, s.SupportsLanguage("fr-FR"))
	})

	t.Run("settings file overrides", func(t *testing.T) {
		dir := t.TempDir()
		paths := missingPaths(dir)
		paths.Settings = writeFile(t, dir, "settings.json",
			`{"supportedLanguages": ["en-US", "fr-FR"], "audioVolume": {"min": 5, "max": 50}}`)
		s := settings.New(settings.Options{Paths: paths}, &fakeProps{})

		assert.Equal(t, []string{"en-US", "fr-FR"}, s.SupportedLanguages())
		assert.Equal(t, settings.VolumeRange{Min: 5, Max: 50}, s.VolumeRange())
	})

	t.Run("inverted range is ignored", func(t *testing.T) {
		dir := t.TempDir()
		paths := missingPaths(dir)
		paths.Settings = writeFile(t, dir, "settings.json", `{"audioVolume": {"min": 90, "max": 10}}`)
		s := settings.New(settings.Options{Paths: paths}, &fakeProps{})

		assert.Equal(t, settings.VolumeRange{Min: 0, Max: 100}, s.VolumeRange())
	})
}
