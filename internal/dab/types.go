package dab

// Request and response bodies of the implemented operations. The status
// field is injected by the dispatcher and never declared here.

type EmptyRequest struct{}

type EmptyResponse struct{}

type DiscoveryResponse struct {
	IP       string `json:"ip"`
	DeviceID string `json:"deviceId"`
}

type OperationsListResponse struct {
	Operations []string `json:"operations"`
}

type Application struct {
	AppID string `json:"appId"`
}

type ApplicationsListResponse struct {
	Applications []Application `json:"applications"`
}

type LaunchRequest struct {
	AppID      string   `json:"appId"`
	Parameters []string `json:"parameters,omitempty"`
}

type LaunchWithContentRequest struct {
	AppID      string   `json:"appId"`
	ContentID  string   `json:"contentId"`
	Parameters []string `json:"parameters,omitempty"`
}

type GetStateRequest struct {
	AppID string `json:"appId"`
}

type ExitRequest struct {
	AppID      string `json:"appId"`
	Background bool   `json:"background,omitempty"`
}

type StateResponse struct {
	State string `json:"state"`
}

type DeviceInfoResponse struct {
	Manufacturer    string `json:"manufacturer"`
	Model           string `json:"model"`
	SerialNumber    string `json:"serialNumber"`
	ChipsetVersion  string `json:"chipset,omitempty"`
	FirmwareVersion string `json:"firmwareVersion"`
	FirmwareBuild   string `json:"firmwareBuild,omitempty"`
	DeviceID        string `json:"deviceId"`
	IP              string `json:"ip,omitempty"`
}

type KeyListResponse struct {
	KeyCodes []string `json:"keyCodes"`
}

type KeyPressRequest struct {
	KeyCode string `json:"keyCode"`
}

type LongKeyPressRequest struct {
	KeyCode    string `json:"keyCode"`
	DurationMs int    `json:"durationMs"`
}

type VolumeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type SettingsListResponse struct {
	Language    []string    `json:"language"`
	AudioVolume VolumeRange `json:"audioVolume"`
	Mute        bool        `json:"mute"`
}

// Settings is both the get response and the set request; set applies only
// the fields that are present.
type Settings struct {
	Language    *string `json:"language,omitempty"`
	AudioVolume *int    `json:"audioVolume,omitempty"`
	Mute        *bool   `json:"mute,omitempty"`
}

type HealthCheckResponse struct {
	Healthy bool `json:"healthy"`
}

type VersionResponse struct {
	Versions []string `json:"versions"`
}

type TelemetryStartRequest struct {
	Duration int `json:"duration"`
}

type TelemetryStartResponse struct {
	Duration int `json:"duration"`
}

// TelemetryMetric is published on the telemetry topic
type TelemetryMetric struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Metric    string `json:"metric"`
	Value     uint64 `json:"value"`
}

// OnlineNotice is published on the messages topic at startup
type OnlineNotice struct {
	Status   string `json:"status"`
	DeviceID string `json:"deviceId"`
}
