package lifecycle

import (
	"encoding/json"
	"net/url"
	"strings"

	"dabbridge/internal/rdk"
)

// App describes how one protocol app id is driven on the device
type App struct {
	ID       string
	Callsign string

	// ContentKey is the launch parameter name a content id is passed as
	ContentKey string

	// DecodeParams percent-decodes launch parameters before joining them
	DecodeParams bool

	launchConfig func(query string) string
	deepLink     func(query string) (rdk.Method, interface{})
}

// LaunchConfiguration returns the cold launch configuration for params, or
// "" when the app takes none.
func (a App) LaunchConfiguration(params []string) string {
	if a.launchConfig == nil {
		return ""
	}
	return a.launchConfig(a.Query(params))
}

// SupportsDeepLink reports whether a running instance can take parameters
func (a App) SupportsDeepLink() bool {
	return a.deepLink != nil
}

// DeepLink returns the call that passes params to a running instance
func (a App) DeepLink(params []string) (rdk.Method, interface{}) {
	return a.deepLink(a.Query(params))
}

// Query joins params into a query string
func (a App) Query(params []string) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		if a.DecodeParams {
			if decoded, err := url.QueryUnescape(p); err == nil {
				p = decoded
			}
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, "&")
}

func jsonConfig(fields map[string]string) string {
	data, _ := json.Marshal(fields)
	return string(data)
}

const youTubeURL = "https://www.youtube.com/tv"

func youTubeLink(query string) string {
	if query == "" {
		return youTubeURL
	}
	return youTubeURL + "?" + query
}

// Catalog is the set of apps with known launch behavior
type Catalog struct {
	apps []App
}

// DefaultCatalog returns the apps supported out of the box
func DefaultCatalog() *Catalog {
	return &Catalog{apps: []App{
		{
			ID:         "YouTube",
			Callsign:   "Cobalt",
			ContentKey: "v",
			launchConfig: func(query string) string {
				return jsonConfig(map[string]string{"url": youTubeLink(query)})
			},
			deepLink: func(query string) (rdk.Method, interface{}) {
				return "Cobalt.1.deeplink", youTubeLink(query)
			},
		},
		{
			ID:           "Netflix",
			Callsign:     "Netflix",
			ContentKey:   "m",
			DecodeParams: true,
			launchConfig: func(query string) string {
				return jsonConfig(map[string]string{"querystring": query})
			},
			deepLink: func(query string) (rdk.Method, interface{}) {
				return "Netflix.1.systemcommand", map[string]string{"command": query}
			},
		},
		{
			ID:       "PrimeVideo",
			Callsign: "Amazon",
		},
	}}
}

// Lookup returns the app for appID (case-insensitive). Unknown ids map to a
// callsign of the same name with no configuration or deep link.
func (c *Catalog) Lookup(appID string) App {
	for _, app := range c.apps {
		if strings.EqualFold(app.ID, appID) {
			return app
		}
	}
	return App{ID: appID, Callsign: appID}
}

// Apps returns the catalogued apps
func (c *Catalog) Apps() []App {
	return append([]App(nil), c.apps...)
}
