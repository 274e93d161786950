package rdk

// Thunder service methods used by the bridge
const (
	// RDKShell lifecycle
	GetState      Method = "org.rdk.RDKShell.1.getState"
	Launch        Method = "org.rdk.RDKShell.1.launch"
	Suspend       Method = "org.rdk.RDKShell.1.suspend"
	Destroy       Method = "org.rdk.RDKShell.1.destroy"
	Restore       Method = "org.rdk.RDKShell.1.restore"
	GetVisibility Method = "org.rdk.RDKShell.1.getVisibility"
	SetVisibility Method = "org.rdk.RDKShell.1.setVisibility"
	MoveToFront   Method = "org.rdk.RDKShell.1.moveToFront"
	SetFocus      Method = "org.rdk.RDKShell.1.setFocus"
	RegisterEvent Method = "org.rdk.RDKShell.1.register"

	// RDKShell input and resources
	InjectKey       Method = "org.rdk.RDKShell.1.injectKey"
	GetSystemMemory Method = "org.rdk.RDKShell.1.getSystemMemory"

	// System
	GetSerialNumber   Method = "org.rdk.System.1.getSerialNumber"
	GetDeviceInfo     Method = "org.rdk.System.1.getDeviceInfo"
	GetSystemVersions Method = "org.rdk.System.1.getSystemVersions"
	Reboot            Method = "org.rdk.System.1.reboot"

	// Network
	GetIPSettings Method = "org.rdk.Network.1.getIPSettings"

	// Preferences and audio
	GetUILanguage  Method = "org.rdk.UserPreferences.1.getUILanguage"
	SetUILanguage  Method = "org.rdk.UserPreferences.1.setUILanguage"
	GetVolumeLevel Method = "org.rdk.DisplaySettings.1.getVolumeLevel"
	SetVolumeLevel Method = "org.rdk.DisplaySettings.1.setVolumeLevel"
	GetMuted       Method = "org.rdk.DisplaySettings.1.getMuted"
	SetMuted       Method = "org.rdk.DisplaySettings.1.setMuted"
)

// RDKShell lifecycle events the event listener registers for
var LifecycleEvents = []string{
	"onApplicationActivated",
	"onApplicationLaunched",
	"onApplicationResumed",
	"onApplicationSuspended",
	"onApplicationTerminated",
	"onDestroyed",
	"onLaunched",
	"onSuspended",
}

const (
	// Endpoint is the JSON-RPC path on the device
	Endpoint = "/jsonrpc"

	JSONRPCVersion = "2.0"

	DefaultAudioPort = "HDMI0"
)
