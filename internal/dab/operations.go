package dab

import "strings"

const (
	DefaultNamespace = "dab"
	DiscoveryTopic   = "dab/discovery"

	// Publish-only sub-topics; messages on them never get a reply
	MessagesSuffix  = "messages"
	TelemetrySuffix = "telemetry"

	ProtocolVersion = "2.0"
)

// Operation names
const (
	OpOperationsList            = "operations/list"
	OpApplicationsList          = "applications/list"
	OpApplicationsLaunch        = "applications/launch"
	OpApplicationsLaunchContent = "applications/launch-with-content"
	OpApplicationsGetState      = "applications/get-state"
	OpApplicationsExit          = "applications/exit"
	OpDeviceInfo                = "device/info"
	OpSystemRestart             = "system/restart"
	OpSystemSettingsList        = "system/settings/list"
	OpSystemSettingsGet         = "system/settings/get"
	OpSystemSettingsSet         = "system/settings/set"
	OpInputKeyList              = "input/key/list"
	OpInputKeyPress             = "input/key-press"
	OpInputLongKeyPress         = "input/long-key-press"
	OpHealthCheckGet            = "health-check/get"
	OpVersion                   = "version"
	OpDeviceTelemetryStart      = "device-telemetry/start"
	OpDeviceTelemetryStop       = "device-telemetry/stop"
)

// Topics builds the topic names for one device under a namespace
type Topics struct {
	Namespace string
	DeviceID  string
}

// Prefix returns "<namespace>/<device-id>/"
func (t Topics) Prefix() string {
	return t.Namespace + "/" + t.DeviceID + "/"
}

// Subscription returns the wildcard filter for every operation of the device
func (t Topics) Subscription() string {
	return t.Prefix() + "#"
}

// Messages returns the informational topic
func (t Topics) Messages() string {
	return t.Prefix() + MessagesSuffix
}

// Telemetry returns the topic periodic metrics are published on
func (t Topics) Telemetry() string {
	return t.Prefix() + TelemetrySuffix
}

// Operation strips the device prefix from topic. ok is false when topic
// does not belong to this device.
func (t Topics) Operation(topic string) (string, bool) {
	if !strings.HasPrefix(topic, t.Prefix()) {
		return "", false
	}
	return strings.TrimPrefix(topic, t.Prefix()), true
}

// IsInformational reports whether topic is a publish-only sub-topic
func IsInformational(topic string) bool {
	return strings.HasSuffix(topic, "/"+MessagesSuffix) || strings.HasSuffix(topic, "/"+TelemetrySuffix)
}
