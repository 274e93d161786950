// Copyright 2025 Arion Yau
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package lifecycle

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"dabbridge/internal/dab"
	"dabbridge/internal/logger"
	"dabbridge/internal/rdk"
	"dabbridge/internal/settings"
)

// Poll is a polling ceiling: Attempts queries spaced by Interval
type Poll struct {
	Interval time.Duration
	Attempts int
}

// Budget returns the wall-clock ceiling of the poll
func (p Poll) Budget() time.Duration {
	return time.Duration(p.Attempts) * p.Interval
}

var (
	// LaunchPoll waits up to 5s for an app to come to the foreground
	LaunchPoll = Poll{Interval: 250 * time.Millisecond, Attempts: 20}

	// ExitPoll waits up to 2s for an app to suspend or stop
	ExitPoll = Poll{Interval: 100 * time.Millisecond, Attempts: 20}
)

// TimeoutSource supplies per-app settle delays
type TimeoutSource interface {
	AppTimeouts(appID string) settings.AppTimeouts
}

// Controller drives application lifecycle transitions on the device. It never
// caches an app's state: every decision starts from a fresh device query.
type Controller struct {
	rpc      rdk.Caller
	timeouts TimeoutSource
	catalog  *Catalog
	launch   Poll
	exit     Poll
	sleep    func(time.Duration)
	wakeups  <-chan struct{}
	logger   zerolog.Logger
}

// Option configures a Controller
type Option func(*Controller)

// WithPolls overrides the launch and exit polling ceilings
func WithPolls(launch, exit Poll) Option {
	return func(c *Controller) {
		c.launch = launch
		c.exit = exit
	}
}

// WithSleep replaces time.Sleep for poll intervals and settle delays
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Controller) {
		c.sleep = sleep
	}
}

// WithWakeups lets device notifications cut a poll interval short
func WithWakeups(wakeups <-chan struct{}) Option {
	return func(c *Controller) {
		c.wakeups = wakeups
	}
}

// WithCatalog replaces the default app catalogue
func WithCatalog(catalog *Catalog) Option {
	return func(c *Controller) {
		c.catalog = catalog
	}
}

// NewController creates a lifecycle controller
func NewController(rpc rdk.Caller, timeouts TimeoutSource, opts ...Option) *Controller {
	c := &Controller{
		rpc:      rpc,
		timeouts: timeouts,
		catalog:  DefaultCatalog(),
		launch:   LaunchPoll,
		exit:     ExitPoll,
		sleep:    time.Sleep,
		logger:   logger.Component("lifecycle"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Catalog returns the app catalogue in use
func (c *Controller) Catalog() *Catalog {
	return c.catalog
}

// GetState returns the current state of appID
func (c *Controller) GetState(appID string) (State, error) {
	if appID == "" {
		return Stopped, dab.BadRequest("appId is required")
	}
	return c.queryState(c.catalog.Lookup(appID))
}

// Launch brings appID to the foreground, cold launching it when stopped and
// resuming it otherwise. Parameters are passed as launch configuration on a
// cold launch and as a deep link to a running instance.
func (c *Controller) Launch(appID string, params []string) error {
	if appID == "" {
		return dab.BadRequest("appId is required")
	}
	app := c.catalog.Lookup(appID)

	state, err := c.queryState(app)
	if err != nil {
		return err
	}

	if state == Hibernated {
		c.logger.Info().Str("app_id", app.ID).Msg("Restoring hibernated app")
		if err := c.invoke(rdk.Restore, rdk.Callsign{Callsign: app.Callsign}); err != nil {
			return err
		}
		if state, err = c.queryState(app); err != nil {
			return err
		}
	}

	cold := state == Stopped
	if cold {
		params := rdk.LaunchParams{
			Callsign:      app.Callsign,
			Type:          app.Callsign,
			Configuration: app.LaunchConfiguration(params),
		}
		c.logger.Info().
			Str("app_id", app.ID).
			Str("configuration", params.Configuration).
			Msg("Cold launching app")
		if err := c.invoke(rdk.Launch, params); err != nil {
			return err
		}
	} else {
		if len(params) > 0 {
			if !app.SupportsDeepLink() {
				return dab.BadRequest("deeplink not supported for this app")
			}
			method, linkParams := app.DeepLink(params)
			if err := c.invoke(method, linkParams); err != nil {
				return err
			}
		}
		c.logger.Info().
			Str("app_id", app.ID).
			Str("from", state.String()).
			Msg("Resuming app")
		if err := c.invoke(rdk.Launch, rdk.Callsign{Callsign: app.Callsign}); err != nil {
			return err
		}
	}

	reached, err := c.waitFor(app, c.launch, func(s State) bool { return s == Foreground })
	if err != nil {
		return err
	}
	if !reached {
		return dab.Internal("%s did not reach FOREGROUND within %s, app may not be visible to user", app.ID, c.launch.Budget())
	}

	timeouts := c.timeouts.AppTimeouts(app.ID)
	settle := timeouts.ResumeLaunch
	if cold {
		settle = timeouts.ColdLaunch
	}
	c.sleep(settle)

	return c.bringToFront(app)
}

// LaunchWithContent launches appID with contentID passed under the app's
// content parameter, ahead of any other parameters.
func (c *Controller) LaunchWithContent(appID, contentID string, params []string) error {
	if appID == "" {
		return dab.BadRequest("appId is required")
	}
	if contentID == "" {
		return dab.BadRequest("contentId is required")
	}
	app := c.catalog.Lookup(appID)
	if app.ContentKey == "" {
		return dab.BadRequest("launch with content not supported for this app")
	}
	withContent := append([]string{app.ContentKey + "=" + contentID}, params...)
	return c.Launch(app.ID, withContent)
}

// Exit destroys appID, or suspends it when background is set, and returns the
// state reached. An app that is not running is left alone.
func (c *Controller) Exit(appID string, background bool) (State, error) {
	if appID == "" {
		return Stopped, dab.BadRequest("appId is required")
	}
	app := c.catalog.Lookup(appID)

	state, err := c.queryState(app)
	if err != nil {
		return Stopped, err
	}
	if state == Stopped {
		c.logger.Debug().Str("app_id", app.ID).Msg("App not running, nothing to exit")
		return Stopped, nil
	}

	target := Stopped
	method := rdk.Destroy
	reachedTarget := func(s State) bool { return s == Stopped }
	if background {
		target = Background
		method = rdk.Suspend
		reachedTarget = State.IsBackground
	}

	c.logger.Info().
		Str("app_id", app.ID).
		Str("from", state.String()).
		Str("to", target.String()).
		Msg("Exiting app")

	if err := c.invoke(method, rdk.Callsign{Callsign: app.Callsign}); err != nil {
		return state, err
	}

	reached, err := c.waitFor(app, c.exit, reachedTarget)
	if err != nil {
		return state, err
	}
	if !reached {
		return state, dab.Internal("%s did not reach %s within %s", app.ID, target, c.exit.Budget())
	}

	timeouts := c.timeouts.AppTimeouts(app.ID)
	if background {
		c.sleep(timeouts.ExitToBackground)
	} else {
		c.sleep(timeouts.ExitToDestroy)
	}

	return target, nil
}

func (c *Controller) queryState(app App) (State, error) {
	result, err := rdk.Invoke[rdk.StateResult](c.rpc, rdk.GetState, nil)
	if err != nil {
		return Stopped, dab.Internal("%v", err)
	}
	for _, client := range result.State {
		if strings.EqualFold(client.Callsign, app.Callsign) {
			return fromShell(client.State), nil
		}
	}
	return Stopped, nil
}

// waitFor polls the app's state until done reports true or the poll ceiling
// is reached. A device notification ends the current interval early without
// using up an attempt; the wall-clock budget still bounds the loop.
func (c *Controller) waitFor(app App, poll Poll, done func(State) bool) (bool, error) {
	deadline := time.Now().Add(poll.Budget() + poll.Interval)
	for attempt := 0; attempt < poll.Attempts; {
		state, err := c.queryState(app)
		if err != nil {
			return false, err
		}
		if done(state) {
			return true, nil
		}
		if c.pause(poll.Interval) && time.Now().Before(deadline) {
			continue
		}
		attempt++
	}
	return false, nil
}

// pause waits for d and reports whether a notification ended it early
func (c *Controller) pause(d time.Duration) bool {
	if c.wakeups == nil {
		c.sleep(d)
		return false
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return false
	case <-c.wakeups:
		return true
	}
}

func (c *Controller) bringToFront(app App) error {
	client := strings.ToLower(app.Callsign)

	visibility, err := rdk.Invoke[rdk.VisibilityResult](c.rpc, rdk.GetVisibility, rdk.ClientRef{Client: client})
	if err != nil {
		return dab.Internal("%v", err)
	}
	if !visibility.Visible {
		if err := c.invoke(rdk.SetVisibility, rdk.SetVisibilityParams{Client: client, Visible: true}); err != nil {
			return err
		}
	}
	if err := c.invoke(rdk.MoveToFront, rdk.ClientRef{Client: client}); err != nil {
		return err
	}
	return c.invoke(rdk.SetFocus, rdk.ClientRef{Client: client})
}

func (c *Controller) invoke(method rdk.Method, params interface{}) error {
	if err := c.rpc.Call(method, params, nil); err != nil {
		return dab.Internal("%v", err)
	}
	return nil
}
