package handlers_test

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dabbridge/internal/dab"
	"dabbridge/internal/handlers"
	"dabbridge/internal/lifecycle"
	"dabbridge/internal/rdk"
	"dabbridge/internal/settings"
)

// fakeRPC answers with canned results per method and records calls
type fakeRPC struct {
	mu      sync.Mutex
	results map[rdk.Method]string
	fail    map[rdk.Method]error
	calls   []rdk.Method
	params  []interface{}
}

func newFakeRPC() *fakeRPC {
	return &fakeRPC{results: map[rdk.Method]string{}, fail: map[rdk.Method]error{}}
}

func (f *fakeRPC) Call(method rdk.Method, params interface{}, result interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, method)
	f.params = append(f.params, params)
	if err := f.fail[method]; err != nil {
		return err
	}
	if raw, ok := f.results[method]; ok && result != nil {
		return json.Unmarshal([]byte(raw), result)
	}
	return nil
}

func (f *fakeRPC) count(method rdk.Method) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.calls {
		if m == method {
			n++
		}
	}
	return n
}

type fakeSettings struct{}

func (fakeSettings) DeviceID() (string, error) { return "SN-42", nil }
func (fakeSettings) IP() string                { return "10.1.1.1" }

func (fakeSettings) KeyCode(name string) (int, bool) {
	code, ok := map[string]int{"KEY_ENTER": 13, "KEY_HOME": 36}[name]
	return code, ok
}

func (fakeSettings) KeyNames() []string { return []string{"KEY_ENTER", "KEY_HOME"} }

func (fakeSettings) SupportedLanguages() []string { return []string{"en-US", "de-DE"} }

func (fakeSettings) SupportsLanguage(lang string) bool {
	return lang == "en-US" || lang == "de-DE"
}

func (fakeSettings) VolumeRange() settings.VolumeRange { return settings.VolumeRange{Min: 0, Max: 50} }

// fakeLifecycle records the last request per operation
type fakeLifecycle struct {
	launched  []string
	contentID string
	state     lifecycle.State
	err       error
}

func (f *fakeLifecycle) Launch(appID string, params []string) error {
	f.launched = append(f.launched, appID)
	return f.err
}

func (f *fakeLifecycle) LaunchWithContent(appID, contentID string, params []string) error {
	f.contentID = contentID
	return f.err
}

func (f *fakeLifecycle) Exit(appID string, background bool) (lifecycle.State, error) {
	return f.state, f.err
}

func (f *fakeLifecycle) GetState(appID string) (lifecycle.State, error) {
	return f.state, f.err
}

func (f *fakeLifecycle) Catalog() *lifecycle.Catalog {
	return lifecycle.DefaultCatalog()
}

func newTable(rpc *fakeRPC, lc *fakeLifecycle) dab.Table {
	table := dab.Table{}
	handlers.Register(table, handlers.Deps{RPC: rpc, Lifecycle: lc, Settings: fakeSettings{}},
		dab.OpDeviceTelemetryStart, dab.OpDeviceTelemetryStop)
	return table
}

func handle(t *testing.T, table dab.Table, op, payload string) (map[string]interface{}, error) {
	t.Helper()
	h, ok := table.Lookup(op)
	require.True(t, ok, "no handler for %s", op)

	result, err := h.Handle([]byte(payload))
	if err != nil {
		return nil, err
	}
	data, encErr := dab.EncodeResult(result)
	require.NoError(t, encErr)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &fields))
	return fields, nil
}

func TestRegister(t *testing.T) {
	table := newTable(newFakeRPC(), &fakeLifecycle{})

	for _, op := range []string{
		dab.OpOperationsList, dab.OpApplicationsList, dab.OpApplicationsLaunch,
		dab.OpApplicationsLaunchContent, dab.OpApplicationsGetState, dab.OpApplicationsExit,
		dab.OpDeviceInfo, dab.OpSystemRestart, dab.OpSystemSettingsList, dab.OpSystemSettingsGet,
		dab.OpSystemSettingsSet, dab.OpInputKeyList, dab.OpInputKeyPress, dab.OpInputLongKeyPress,
		dab.OpHealthCheckGet, dab.OpVersion,
	} {
		_, ok := table.Lookup(op)
		assert.True(t, ok, op)
	}
}

func TestApplications(t *testing.T) {
	t.Run("list reports the catalogue", func(t *testing.T) {
		table := newTable(newFakeRPC(), &fakeLifecycle{})
		fields, err := handle(t, table, dab.OpApplicationsList, `{}`)
		require.NoError(t, err)
		assert.Len(t, fields["applications"], 3)
	})

	t.Run("launch", func(t *testing.T) {
		lc := &fakeLifecycle{}
		table := newTable(newFakeRPC(), lc)
		fields, err := handle(t, table, dab.OpApplicationsLaunch, `{"appId":"YouTube","parameters":["v=1"]}`)
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{"status": float64(200)}, fields)
		assert.Equal(t, []string{"YouTube"}, lc.launched)
	})

	t.Run("launch with content", func(t *testing.T) {
		lc := &fakeLifecycle{}
		table := newTable(newFakeRPC(), lc)
		_, err := handle(t, table, dab.OpApplicationsLaunchContent, `{"appId":"Netflix","contentId":"8010"}`)
		require.NoError(t, err)
		assert.Equal(t, "8010", lc.contentID)
	})

	t.Run("state is reported publicly", func(t *testing.T) {
		table := newTable(newFakeRPC(), &fakeLifecycle{state: lifecycle.Hibernated})
		fields, err := handle(t, table, dab.OpApplicationsGetState, `{"appId":"Netflix"}`)
		require.NoError(t, err)
		assert.Equal(t, "BACKGROUND", fields["state"])
	})

	t.Run("exit returns the reached state", func(t *testing.T) {
		table := newTable(newFakeRPC(), &fakeLifecycle{state: lifecycle.Stopped})
		fields, err := handle(t, table, dab.OpApplicationsExit, `{"appId":"Netflix"}`)
		require.NoError(t, err)
		assert.Equal(t, "STOPPED", fields["state"])
	})

	t.Run("lifecycle errors pass through", func(t *testing.T) {
		table := newTable(newFakeRPC(), &fakeLifecycle{err: dab.BadRequest("deeplink not supported for this app")})
		_, err := handle(t, table, dab.OpApplicationsLaunch, `{"appId":"PrimeVideo","parameters":["x"]}`)
		assert.Equal(t, dab.KindBadRequest, dab.KindOf(err))
	})
}

func TestDevice(t *testing.T) {
	t.Run("info combines device calls", func(t *testing.T) {
		rpc := newFakeRPC()
		rpc.results[rdk.GetDeviceInfo] = `{"make":"Acme","model_name":"X1","chipset_name":"BCM","serialNumber":"SN-42"}`
		rpc.results[rdk.GetSystemVersions] = `{"stbVersion":"1.2.3","stbTimestamp":"2024-01-01"}`
		table := newTable(rpc, &fakeLifecycle{})

		fields, err := handle(t, table, dab.OpDeviceInfo, `{}`)
		require.NoError(t, err)
		assert.Equal(t, "Acme", fields["manufacturer"])
		assert.Equal(t, "X1", fields["model"])
		assert.Equal(t, "1.2.3", fields["firmwareVersion"])
		assert.Equal(t, "SN-42", fields["deviceId"])
		assert.Equal(t, "10.1.1.1", fields["ip"])
	})

	t.Run("info failure is internal", func(t *testing.T) {
		rpc := newFakeRPC()
		rpc.fail[rdk.GetDeviceInfo] = errors.New("no such service")
		table := newTable(rpc, &fakeLifecycle{})

		_, err := handle(t, table, dab.OpDeviceInfo, `{}`)
		assert.Equal(t, dab.KindInternal, dab.KindOf(err))
	})

	t.Run("operations list includes telemetry", func(t *testing.T) {
		table := newTable(newFakeRPC(), &fakeLifecycle{})
		fields, err := handle(t, table, dab.OpOperationsList, `{}`)
		require.NoError(t, err)

		ops := []string{}
		for _, op := range fields["operations"].([]interface{}) {
			ops = append(ops, op.(string))
		}
		assert.Contains(t, ops, dab.OpOperationsList)
		assert.Contains(t, ops, dab.OpDeviceTelemetryStart)
		assert.Len(t, ops, len(table)+2)
	})

	t.Run("health and version", func(t *testing.T) {
		table := newTable(newFakeRPC(), &fakeLifecycle{})

		fields, err := handle(t, table, dab.OpHealthCheckGet, `{}`)
		require.NoError(t, err)
		assert.Equal(t, true, fields["healthy"])

		fields, err = handle(t, table, dab.OpVersion, `{}`)
		require.NoError(t, err)
		assert.Equal(t, []interface{}{"2.0"}, fields["versions"])
	})
}

func TestInput(t *testing.T) {
	t.Run("key list", func(t *testing.T) {
		table := newTable(newFakeRPC(), &fakeLifecycle{})
		fields, err := handle(t, table, dab.OpInputKeyList, `{}`)
		require.NoError(t, err)

		keys := []string{}
		for _, k := range fields["keyCodes"].([]interface{}) {
			keys = append(keys, k.(string))
		}
		assert.True(t, sort.StringsAreSorted(keys))
	})

	t.Run("key press injects the mapped code", func(t *testing.T) {
		rpc := newFakeRPC()
		table := newTable(rpc, &fakeLifecycle{})

		_, err := handle(t, table, dab.OpInputKeyPress, `{"keyCode":"KEY_ENTER"}`)
		require.NoError(t, err)
		require.Equal(t, []rdk.Method{rdk.InjectKey}, rpc.calls)
		assert.Equal(t, 13, rpc.params[0].(rdk.KeyParams).KeyCode)
	})

	t.Run("unknown key is a bad request", func(t *testing.T) {
		rpc := newFakeRPC()
		table := newTable(rpc, &fakeLifecycle{})

		_, err := handle(t, table, dab.OpInputKeyPress, `{"keyCode":"KEY_WARP"}`)
		assert.Equal(t, dab.KindBadRequest, dab.KindOf(err))
		assert.Empty(t, rpc.calls)
	})

	t.Run("long press repeats the key", func(t *testing.T) {
		rpc := newFakeRPC()
		table := newTable(rpc, &fakeLifecycle{})

		_, err := handle(t, table, dab.OpInputLongKeyPress, `{"keyCode":"KEY_HOME","durationMs":200}`)
		require.NoError(t, err)
		assert.Equal(t, 4, rpc.count(rdk.InjectKey))
	})

	t.Run("long press needs a duration", func(t *testing.T) {
		table := newTable(newFakeRPC(), &fakeLifecycle{})
		_, err := handle(t, table, dab.OpInputLongKeyPress, `{"keyCode":"KEY_HOME"}`)
		assert.Equal(t, dab.KindBadRequest, dab.KindOf(err))
	})
}

func TestSystem(t *testing.T) {
	settingsRPC := func() *fakeRPC {
		rpc := newFakeRPC()
		rpc.results[rdk.GetUILanguage] = `{"ui_language":"en-US","success":true}`
		rpc.results[rdk.GetVolumeLevel] = `{"volumeLevel":"30.0","success":true}`
		rpc.results[rdk.GetMuted] = `{"muted":false,"success":true}`
		return rpc
	}

	t.Run("restart reboots", func(t *testing.T) {
		rpc := newFakeRPC()
		table := newTable(rpc, &fakeLifecycle{})

		_, err := handle(t, table, dab.OpSystemRestart, `{}`)
		require.NoError(t, err)
		assert.Equal(t, 1, rpc.count(rdk.Reboot))
	})

	t.Run("list reports the platform limits", func(t *testing.T) {
		table := newTable(newFakeRPC(), &fakeLifecycle{})
		fields, err := handle(t, table, dab.OpSystemSettingsList, `{}`)
		require.NoError(t, err)
		assert.Equal(t, []interface{}{"en-US", "de-DE"}, fields["language"])
		assert.Equal(t, map[string]interface{}{"min": float64(0), "max": float64(50)}, fields["audioVolume"])
	})

	t.Run("get reads current values", func(t *testing.T) {
		table := newTable(settingsRPC(), &fakeLifecycle{})
		fields, err := handle(t, table, dab.OpSystemSettingsGet, `{}`)
		require.NoError(t, err)
		assert.Equal(t, "en-US", fields["language"])
		assert.Equal(t, float64(30), fields["audioVolume"])
		assert.Equal(t, false, fields["mute"])
	})

	t.Run("set applies present fields only", func(t *testing.T) {
		rpc := settingsRPC()
		table := newTable(rpc, &fakeLifecycle{})

		_, err := handle(t, table, dab.OpSystemSettingsSet, `{"language":"de-DE","mute":true}`)
		require.NoError(t, err)
		assert.Equal(t, 1, rpc.count(rdk.SetUILanguage))
		assert.Equal(t, 1, rpc.count(rdk.SetMuted))
		assert.Zero(t, rpc.count(rdk.SetVolumeLevel))
	})

	t.Run("unsupported language is rejected before any change", func(t *testing.T) {
		rpc := settingsRPC()
		table := newTable(rpc, &fakeLifecycle{})

		_, err := handle(t, table, dab.OpSystemSettingsSet, `{"language":"xx-XX","mute":true}`)
		assert.Equal(t, dab.KindBadRequest, dab.KindOf(err))
		assert.Empty(t, rpc.calls)
	})

	t.Run("volume out of range is rejected", func(t *testing.T) {
		table := newTable(settingsRPC(), &fakeLifecycle{})
		_, err := handle(t, table, dab.OpSystemSettingsSet, `{"audioVolume":80}`)
		assert.Equal(t, dab.KindBadRequest, dab.KindOf(err))
	})

	t.Run("empty set is rejected", func(t *testing.T) {
		table := newTable(settingsRPC(), &fakeLifecycle{})
		_, err := handle(t, table, dab.OpSystemSettingsSet, `{}`)
		assert.Equal(t, dab.KindBadRequest, dab.KindOf(err))
	})
}
