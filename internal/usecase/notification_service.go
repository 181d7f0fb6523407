package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/riskibarqy/rugby-live/internal/domain/match"
	"github.com/riskibarqy/rugby-live/internal/domain/user"
	"github.com/riskibarqy/rugby-live/internal/fanout"
	"github.com/riskibarqy/rugby-live/internal/platform/logging"
	"github.com/riskibarqy/rugby-live/internal/push"
)

// PushSender is satisfied by push.Relay.
type PushSender interface {
	Send(ctx context.Context, tokens []string, notification push.Notification) (push.Report, error)
}

// NotificationService turns live match transitions into pushes for the users
// following either team and keeps their token lists clean.
type NotificationService struct {
	sender PushSender
	users  user.Repository
	logger *logging.Logger
}

type DirectNotificationInput struct {
	Tokens   []string
	UserIDs  []string
	Title    string
	Body     string
	ImageURL string
	Data     map[string]string
}

func NewNotificationService(sender PushSender, users user.Repository, logger *logging.Logger) *NotificationService {
	if logger == nil {
		logger = logging.Default()
	}
	return &NotificationService{
		sender: sender,
		users:  users,
		logger: logger.Named("notifications"),
	}
}

// DetectTransition classifies the change from prev to current. Only one kind
// is reported: end beats start, and start beats a score change.
func DetectTransition(prev, current match.Match) (user.NotificationKind, bool) {
	switch {
	case match.IsFinishedStatus(current.Status) && !match.IsFinishedStatus(prev.Status):
		return user.KindMatchEnd, true
	case match.IsLiveStatus(current.Status) && (prev.Status == "" || prev.Status == match.StatusNotStarted):
		return user.KindMatchStart, true
	case match.IsLiveStatus(current.Status) && current.ScoreChanged(prev):
		return user.KindScoreUpdate, true
	default:
		return "", false
	}
}

// Run consumes match and event messages until ctx is done or the buses close.
func (s *NotificationService) Run(ctx context.Context, buses fanout.Buses) {
	updates, stopUpdates := buses.Matches.Subscribe()
	defer stopUpdates()
	arrivals, stopArrivals := buses.Arrived.Subscribe()
	defer stopArrivals()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-updates:
			if !ok {
				return
			}
			s.HandleMatchUpdated(ctx, msg)
		case msg, ok := <-arrivals:
			if !ok {
				return
			}
			s.HandleEventArrived(ctx, msg)
		}
	}
}

func (s *NotificationService) HandleMatchUpdated(ctx context.Context, msg fanout.MatchUpdated) {
	if msg.Previous == nil {
		return
	}
	kind, ok := DetectTransition(*msg.Previous, msg.Match)
	if !ok {
		return
	}

	var notification push.Notification
	switch kind {
	case user.KindMatchStart:
		notification = push.MatchStartMessage(msg.Match)
	case user.KindMatchEnd:
		notification = push.MatchEndMessage(msg.Match)
	default:
		notification = push.ScoreUpdateMessage(msg.Match)
	}
	s.notifyFollowers(ctx, kind, msg.Match, notification)
}

func (s *NotificationService) HandleEventArrived(ctx context.Context, msg fanout.EventArrived) {
	s.notifyFollowers(ctx, user.KindEvent, msg.Match, push.EventMessage(msg.Match, msg.Event))
}

func (s *NotificationService) notifyFollowers(ctx context.Context, kind user.NotificationKind, m match.Match, notification push.Notification) {
	ctx, span := startUsecaseSpan(ctx, "usecase.NotificationService.notifyFollowers")
	defer span.End()

	followers, err := s.users.ListByFavoriteTeams(ctx, []int64{m.Home.ID, m.Away.ID})
	if err != nil {
		s.logger.WarnContext(ctx, "list followers failed", "match_id", m.ID, "kind", kind, "error", err)
		return
	}

	tokens := make([]string, 0, len(followers))
	for _, follower := range followers {
		if !follower.Preferences.Allows(kind) {
			continue
		}
		tokens = append(tokens, follower.DeviceTokens...)
	}
	if len(tokens) == 0 {
		return
	}

	report, err := s.sender.Send(ctx, tokens, notification)
	if err != nil {
		s.logger.WarnContext(ctx, "match push failed", "match_id", m.ID, "kind", kind, "error", err)
	}
	s.prune(ctx, report.InvalidTokens)
}

// SendDirect pushes an ad-hoc notification to explicit tokens and/or the tokens of userIDs.
func (s *NotificationService) SendDirect(ctx context.Context, input DirectNotificationInput) (push.Report, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.NotificationService.SendDirect")
	defer span.End()

	if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Body) == "" {
		return push.Report{}, fmt.Errorf("%w: title and body are required", ErrInvalidInput)
	}
	if len(input.Tokens) == 0 && len(input.UserIDs) == 0 {
		return push.Report{}, fmt.Errorf("%w: tokens or userIds are required", ErrInvalidInput)
	}

	tokens := append([]string(nil), input.Tokens...)
	if len(input.UserIDs) > 0 {
		users, err := s.users.ListByIDs(ctx, input.UserIDs)
		if err != nil {
			return push.Report{}, fmt.Errorf("list users: %w", err)
		}
		for _, item := range users {
			tokens = append(tokens, item.DeviceTokens...)
		}
	}
	if len(tokens) == 0 {
		return push.Report{}, fmt.Errorf("%w: no device tokens registered for the given users", ErrNotFound)
	}

	report, err := s.sender.Send(ctx, tokens, push.Notification{
		Title:    input.Title,
		Body:     input.Body,
		ImageURL: input.ImageURL,
		Data:     input.Data,
	})
	s.prune(ctx, report.InvalidTokens)
	if err != nil {
		if errors.Is(err, push.ErrInvalidNotification) || errors.Is(err, push.ErrPayloadTooLarge) {
			return report, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return report, fmt.Errorf("%w: send push: %v", ErrDependencyUnavailable, err)
	}
	return report, nil
}

func (s *NotificationService) RegisterDeviceToken(ctx context.Context, userID, token string) error {
	userID = strings.TrimSpace(userID)
	token = strings.TrimSpace(token)
	if userID == "" || token == "" {
		return fmt.Errorf("%w: user id and token are required", ErrInvalidInput)
	}

	if err := s.users.AddDeviceToken(ctx, userID, token); err != nil {
		return fmt.Errorf("add device token: %w", err)
	}
	return nil
}

func (s *NotificationService) prune(ctx context.Context, tokens []string) {
	if len(tokens) == 0 {
		return
	}
	touched, err := s.users.RemoveDeviceTokens(ctx, tokens)
	if err != nil {
		s.logger.WarnContext(ctx, "prune invalid device tokens failed", "tokens", len(tokens), "error", err)
		return
	}
	s.logger.InfoContext(ctx, "pruned invalid device tokens", "tokens", len(tokens), "users", touched)
}
