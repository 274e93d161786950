package handlers

import (
	"dabbridge/internal/dab"
	"dabbridge/internal/lifecycle"
)

// AppLifecycle is the lifecycle surface the application operations use
type AppLifecycle interface {
	Launch(appID string, params []string) error
	LaunchWithContent(appID, contentID string, params []string) error
	Exit(appID string, background bool) (lifecycle.State, error)
	GetState(appID string) (lifecycle.State, error)
	Catalog() *lifecycle.Catalog
}

// Applications implements the applications/* operations
type Applications struct {
	lifecycle AppLifecycle
}

func NewApplications(lc AppLifecycle) *Applications {
	return &Applications{lifecycle: lc}
}

func (a *Applications) Register(t dab.Table) {
	t.Register(dab.OpApplicationsList, dab.Typed[dab.EmptyRequest, dab.ApplicationsListResponse](a.list))
	t.Register(dab.OpApplicationsLaunch, dab.Typed[dab.LaunchRequest, dab.EmptyResponse](a.launch))
	t.Register(dab.OpApplicationsLaunchContent, dab.Typed[dab.LaunchWithContentRequest, dab.EmptyResponse](a.launchWithContent))
	t.Register(dab.OpApplicationsGetState, dab.Typed[dab.GetStateRequest, dab.StateResponse](a.getState))
	t.Register(dab.OpApplicationsExit, dab.Typed[dab.ExitRequest, dab.StateResponse](a.exit))
}

func (a *Applications) list(dab.EmptyRequest) (dab.ApplicationsListResponse, error) {
	apps := a.lifecycle.Catalog().Apps()
	resp := dab.ApplicationsListResponse{Applications: make([]dab.Application, 0, len(apps))}
	for _, app := range apps {
		resp.Applications = append(resp.Applications, dab.Application{AppID: app.ID})
	}
	return resp, nil
}

func (a *Applications) launch(req dab.LaunchRequest) (dab.EmptyResponse, error) {
	return dab.EmptyResponse{}, a.lifecycle.Launch(req.AppID, req.Parameters)
}

func (a *Applications) launchWithContent(req dab.LaunchWithContentRequest) (dab.EmptyResponse, error) {
	return dab.EmptyResponse{}, a.lifecycle.LaunchWithContent(req.AppID, req.ContentID, req.Parameters)
}

func (a *Applications) getState(req dab.GetStateRequest) (dab.StateResponse, error) {
	state, err := a.lifecycle.GetState(req.AppID)
	if err != nil {
		return dab.StateResponse{}, err
	}
	return dab.StateResponse{State: state.Public()}, nil
}

func (a *Applications) exit(req dab.ExitRequest) (dab.StateResponse, error) {
	state, err := a.lifecycle.Exit(req.AppID, req.Background)
	if err != nil {
		return dab.StateResponse{}, err
	}
	return dab.StateResponse{State: state.Public()}, nil
}
