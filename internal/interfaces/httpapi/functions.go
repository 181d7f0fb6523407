package httpapi

import (
	"context"
	"fmt"

	"github.com/riskibarqy/rugby-live/internal/usecase"
)

// function is one callable under /v1/functions. call returns the response key
// and its value.
type function struct {
	internal bool
	call     func(ctx context.Context, body []byte) (string, any, error)
}

func (h *Handler) registerFunctions() map[string]function {
	return map[string]function{
		"getLeagues":          {call: h.getLeagues},
		"getMatches":          {call: h.getMatches},
		"getMatch":            {call: h.getMatch},
		"getStandings":        {call: h.getStandings},
		"getTeams":            {call: h.getTeams},
		"registerDeviceToken": {call: h.registerDeviceToken},
		"sendNotification":    {internal: true, call: h.sendNotification},
		"watchMatch":          {call: h.watchMatch},
		"unwatchMatch":        {call: h.unwatchMatch},
		"getLiveMatches":      {call: h.getLiveMatches},
	}
}

type getMatchesRequest struct {
	Date   string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	League int64  `json:"league" validate:"omitempty,gt=0"`
	Season int    `json:"season" validate:"omitempty,gte=1900,lte=2100"`
	Live   bool   `json:"live"`
}

type matchIDRequest struct {
	ID int64 `json:"id" validate:"required,gt=0"`
}

type leagueSeasonRequest struct {
	League int64 `json:"league" validate:"omitempty,gt=0"`
	Season int   `json:"season" validate:"omitempty,gte=1900,lte=2100"`
}

type registerDeviceTokenRequest struct {
	UserID string `json:"userId" validate:"required,max=128"`
	Token  string `json:"token" validate:"required,max=4096"`
}

type sendNotificationRequest struct {
	Tokens   []string          `json:"tokens" validate:"required_without=UserIDs,omitempty,dive,required"`
	UserIDs  []string          `json:"userIds" validate:"required_without=Tokens,omitempty,dive,required"`
	Title    string            `json:"title" validate:"required,max=256"`
	Body     string            `json:"body" validate:"required,max=2048"`
	ImageURL string            `json:"imageUrl" validate:"omitempty,url"`
	Data     map[string]string `json:"data" validate:"omitempty,max=32,dive,keys,required,max=64,endkeys,max=1024"`
}

type watchResponse struct {
	MatchID int64   `json:"matchId"`
	Started bool    `json:"started"`
	Active  []int64 `json:"active"`
}

type unwatchResponse struct {
	MatchID int64   `json:"matchId"`
	Stopped bool    `json:"stopped"`
	Active  []int64 `json:"active"`
}

func (h *Handler) getLeagues(ctx context.Context, _ []byte) (string, any, error) {
	leagues, err := h.matches.ListLeagues(ctx)
	return "leagues", leagues, err
}

func (h *Handler) getMatches(ctx context.Context, body []byte) (string, any, error) {
	var req getMatchesRequest
	if err := h.decodeRequest(ctx, body, &req); err != nil {
		return "", nil, err
	}

	matches, err := h.matches.ListMatches(ctx, usecase.MatchQuery{
		Date:     req.Date,
		LeagueID: req.League,
		Season:   req.Season,
		Live:     req.Live,
	})
	return "matches", matches, err
}

func (h *Handler) getMatch(ctx context.Context, body []byte) (string, any, error) {
	var req matchIDRequest
	if err := h.decodeRequest(ctx, body, &req); err != nil {
		return "", nil, err
	}

	item, err := h.matches.GetMatch(ctx, req.ID)
	return "match", item, err
}

func (h *Handler) getStandings(ctx context.Context, body []byte) (string, any, error) {
	var req leagueSeasonRequest
	if err := h.decodeRequest(ctx, body, &req); err != nil {
		return "", nil, err
	}

	standings, err := h.matches.ListStandings(ctx, req.League, req.Season)
	return "standings", standings, err
}

func (h *Handler) getTeams(ctx context.Context, body []byte) (string, any, error) {
	var req leagueSeasonRequest
	if err := h.decodeRequest(ctx, body, &req); err != nil {
		return "", nil, err
	}

	teams, err := h.matches.ListTeams(ctx, req.League, req.Season)
	return "teams", teams, err
}

func (h *Handler) registerDeviceToken(ctx context.Context, body []byte) (string, any, error) {
	var req registerDeviceTokenRequest
	if err := h.decodeRequest(ctx, body, &req); err != nil {
		return "", nil, err
	}

	if err := h.notifications.RegisterDeviceToken(ctx, req.UserID, req.Token); err != nil {
		return "", nil, err
	}
	return "registered", true, nil
}

func (h *Handler) sendNotification(ctx context.Context, body []byte) (string, any, error) {
	var req sendNotificationRequest
	if err := h.decodeRequest(ctx, body, &req); err != nil {
		return "", nil, err
	}

	report, err := h.notifications.SendDirect(ctx, usecase.DirectNotificationInput{
		Tokens:   req.Tokens,
		UserIDs:  req.UserIDs,
		Title:    req.Title,
		Body:     req.Body,
		ImageURL: req.ImageURL,
		Data:     req.Data,
	})
	if err != nil {
		return "", nil, fmt.Errorf("send notification: %w", err)
	}
	return "report", report, nil
}

func (h *Handler) watchMatch(ctx context.Context, body []byte) (string, any, error) {
	var req matchIDRequest
	if err := h.decodeRequest(ctx, body, &req); err != nil {
		return "", nil, err
	}

	started, err := h.live.Watch(ctx, req.ID)
	if err != nil {
		return "", nil, err
	}
	return "watch", watchResponse{MatchID: req.ID, Started: started, Active: h.live.Active()}, nil
}

func (h *Handler) unwatchMatch(ctx context.Context, body []byte) (string, any, error) {
	var req matchIDRequest
	if err := h.decodeRequest(ctx, body, &req); err != nil {
		return "", nil, err
	}

	stopped, err := h.live.Unwatch(req.ID)
	if err != nil {
		return "", nil, err
	}
	return "unwatch", unwatchResponse{MatchID: req.ID, Stopped: stopped, Active: h.live.Active()}, nil
}

func (h *Handler) getLiveMatches(ctx context.Context, _ []byte) (string, any, error) {
	return "matches", h.live.Matches(), nil
}
