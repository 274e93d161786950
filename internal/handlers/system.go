package handlers

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/rs/zerolog"

	"dabbridge/internal/dab"
	"dabbridge/internal/logger"
	"dabbridge/internal/rdk"
	"dabbridge/internal/settings"
)

// Platform supplies the accepted values for system settings
type Platform interface {
	SupportedLanguages() []string
	SupportsLanguage(lang string) bool
	VolumeRange() settings.VolumeRange
}

const restartReason = "DAB_REQUEST"

// System implements system/restart and the system/settings/* operations
type System struct {
	rpc       rdk.Caller
	platform  Platform
	audioPort string
	logger    zerolog.Logger
}

func NewSystem(rpc rdk.Caller, platform Platform) *System {
	return &System{
		rpc:       rpc,
		platform:  platform,
		audioPort: rdk.DefaultAudioPort,
		logger:    logger.Component("system"),
	}
}

func (s *System) Register(t dab.Table) {
	t.Register(dab.OpSystemRestart, dab.Typed[dab.EmptyRequest, dab.EmptyResponse](s.restart))
	t.Register(dab.OpSystemSettingsList, dab.Typed[dab.EmptyRequest, dab.SettingsListResponse](s.list))
	t.Register(dab.OpSystemSettingsGet, dab.Typed[dab.EmptyRequest, dab.Settings](s.get))
	t.Register(dab.OpSystemSettingsSet, dab.Typed[dab.Settings, dab.Settings](s.set))
}

func (s *System) restart(dab.EmptyRequest) (dab.EmptyResponse, error) {
	s.logger.Info().Str("reason", restartReason).Msg("Rebooting device")
	if err := s.rpc.Call(rdk.Reboot, rdk.RebootParams{RebootReason: restartReason}, nil); err != nil {
		return dab.EmptyResponse{}, vendorError(s.logger, rdk.Reboot, err)
	}
	return dab.EmptyResponse{}, nil
}

func (s *System) list(dab.EmptyRequest) (dab.SettingsListResponse, error) {
	volume := s.platform.VolumeRange()
	return dab.SettingsListResponse{
		Language:    s.platform.SupportedLanguages(),
		AudioVolume: dab.VolumeRange{Min: volume.Min, Max: volume.Max},
		Mute:        true,
	}, nil
}

func (s *System) get(dab.EmptyRequest) (dab.Settings, error) {
	language, err := rdk.Invoke[rdk.UILanguage](s.rpc, rdk.GetUILanguage, nil)
	if err != nil {
		return dab.Settings{}, vendorError(s.logger, rdk.GetUILanguage, err)
	}

	port := rdk.AudioPortParams{AudioPort: s.audioPort}
	level, err := rdk.Invoke[rdk.VolumeLevelResult](s.rpc, rdk.GetVolumeLevel, port)
	if err != nil {
		return dab.Settings{}, vendorError(s.logger, rdk.GetVolumeLevel, err)
	}
	volume, err := parseVolume(level.VolumeLevel)
	if err != nil {
		return dab.Settings{}, vendorError(s.logger, rdk.GetVolumeLevel, err)
	}

	muted, err := rdk.Invoke[rdk.MutedResult](s.rpc, rdk.GetMuted, port)
	if err != nil {
		return dab.Settings{}, vendorError(s.logger, rdk.GetMuted, err)
	}

	return dab.Settings{
		Language:    &language.UILanguage,
		AudioVolume: &volume,
		Mute:        &muted.Muted,
	}, nil
}

// set validates every present field before applying any of them, then
// reports the resulting settings.
func (s *System) set(req dab.Settings) (dab.Settings, error) {
	if req.Language == nil && req.AudioVolume == nil && req.Mute == nil {
		return dab.Settings{}, dab.BadRequest("no settings to change")
	}
	if req.Language != nil && !s.platform.SupportsLanguage(*req.Language) {
		return dab.Settings{}, dab.BadRequest("language %s is not supported", *req.Language)
	}
	if req.AudioVolume != nil {
		volume := s.platform.VolumeRange()
		if *req.AudioVolume < volume.Min || *req.AudioVolume > volume.Max {
			return dab.Settings{}, dab.BadRequest("audioVolume must be between %d and %d", volume.Min, volume.Max)
		}
	}

	if req.Language != nil {
		if err := s.rpc.Call(rdk.SetUILanguage, rdk.UILanguage{UILanguage: *req.Language}, nil); err != nil {
			return dab.Settings{}, vendorError(s.logger, rdk.SetUILanguage, err)
		}
	}
	if req.AudioVolume != nil {
		params := rdk.SetVolumeLevelParams{AudioPort: s.audioPort, VolumeLevel: *req.AudioVolume}
		if err := s.rpc.Call(rdk.SetVolumeLevel, params, nil); err != nil {
			return dab.Settings{}, vendorError(s.logger, rdk.SetVolumeLevel, err)
		}
	}
	if req.Mute != nil {
		params := rdk.SetMutedParams{AudioPort: s.audioPort, Muted: *req.Mute}
		if err := s.rpc.Call(rdk.SetMuted, params, nil); err != nil {
			return dab.Settings{}, vendorError(s.logger, rdk.SetMuted, err)
		}
	}

	s.logger.Debug().
		Bool("language", req.Language != nil).
		Bool("audio_volume", req.AudioVolume != nil).
		Bool("mute", req.Mute != nil).
		Msg("System settings applied")

	return s.get(dab.EmptyRequest{})
}

// parseVolume accepts integral and fractional levels; the device reports
// either depending on firmware.
func parseVolume(n json.Number) (int, error) {
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid volume level %q", n)
	}
	return int(math.Round(f)), nil
}
