package handlers

import (
	"time"

	"github.com/rs/zerolog"

	"dabbridge/internal/dab"
	"dabbridge/internal/logger"
	"dabbridge/internal/rdk"
)

// KeySource resolves protocol key names to device key codes
type KeySource interface {
	KeyCode(name string) (int, bool)
	KeyNames() []string
}

const (
	longPressInterval    = 50 * time.Millisecond
	maxLongPressDuration = 60 * time.Second
)

// Input implements the input/* operations
type Input struct {
	rpc    rdk.Caller
	keys   KeySource
	sleep  func(time.Duration)
	logger zerolog.Logger
}

func NewInput(rpc rdk.Caller, keys KeySource) *Input {
	return &Input{
		rpc:    rpc,
		keys:   keys,
		sleep:  time.Sleep,
		logger: logger.Component("input"),
	}
}

func (in *Input) Register(t dab.Table) {
	t.Register(dab.OpInputKeyList, dab.Typed[dab.EmptyRequest, dab.KeyListResponse](in.list))
	t.Register(dab.OpInputKeyPress, dab.Typed[dab.KeyPressRequest, dab.EmptyResponse](in.press))
	t.Register(dab.OpInputLongKeyPress, dab.Typed[dab.LongKeyPressRequest, dab.EmptyResponse](in.longPress))
}

func (in *Input) list(dab.EmptyRequest) (dab.KeyListResponse, error) {
	return dab.KeyListResponse{KeyCodes: in.keys.KeyNames()}, nil
}

func (in *Input) resolve(name string) (int, error) {
	if name == "" {
		return 0, dab.BadRequest("keyCode is required")
	}
	code, ok := in.keys.KeyCode(name)
	if !ok {
		return 0, dab.BadRequest("keyCode %s is not supported", name)
	}
	return code, nil
}

func (in *Input) inject(code int) error {
	if err := in.rpc.Call(rdk.InjectKey, rdk.KeyParams{KeyCode: code, Modifiers: []string{}}, nil); err != nil {
		return vendorError(in.logger, rdk.InjectKey, err)
	}
	return nil
}

func (in *Input) press(req dab.KeyPressRequest) (dab.EmptyResponse, error) {
	code, err := in.resolve(req.KeyCode)
	if err != nil {
		return dab.EmptyResponse{}, err
	}
	return dab.EmptyResponse{}, in.inject(code)
}

// longPress repeats the key at a fixed interval for the requested duration
func (in *Input) longPress(req dab.LongKeyPressRequest) (dab.EmptyResponse, error) {
	code, err := in.resolve(req.KeyCode)
	if err != nil {
		return dab.EmptyResponse{}, err
	}
	duration := time.Duration(req.DurationMs) * time.Millisecond
	if duration <= 0 {
		return dab.EmptyResponse{}, dab.BadRequest("durationMs must be positive")
	}
	if duration > maxLongPressDuration {
		return dab.EmptyResponse{}, dab.BadRequest("durationMs must not exceed %d", maxLongPressDuration.Milliseconds())
	}

	in.logger.Debug().
		Str("key", req.KeyCode).
		Int("code", code).
		Dur("duration", duration).
		Msg("Long key press started")

	presses := 0
	for elapsed := time.Duration(0); elapsed < duration; elapsed += longPressInterval {
		if err := in.inject(code); err != nil {
			in.logger.Debug().Int("presses", presses).Msg("Long key press aborted")
			return dab.EmptyResponse{}, err
		}
		presses++
		in.sleep(longPressInterval)
	}

	in.logger.Debug().Int("presses", presses).Msg("Long key press finished")
	return dab.EmptyResponse{}, nil
}
