package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/riskibarqy/rugby-live/internal/domain/user"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]user.User
}

func NewUserRepository(users []user.User) *UserRepository {
	items := make(map[string]user.User, len(users))
	for _, u := range users {
		items[u.ID] = cloneUser(u)
	}
	return &UserRepository{users: items}
}

func (r *UserRepository) GetByID(_ context.Context, userID string) (user.User, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[userID]
	if !ok {
		return user.User{}, false, nil
	}
	return cloneUser(u), true, nil
}

func (r *UserRepository) ListByIDs(_ context.Context, userIDs []string) ([]user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]user.User, 0, len(userIDs))
	for _, id := range userIDs {
		if u, ok := r.users[id]; ok {
			out = append(out, cloneUser(u))
		}
	}
	sortUsers(out)
	return slices.CompactFunc(out, func(a, b user.User) bool { return a.ID == b.ID }), nil
}

func (r *UserRepository) ListByFavoriteTeams(_ context.Context, teamIDs []int64) ([]user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]user.User, 0)
	for _, u := range r.users {
		if u.FollowsAny(teamIDs...) {
			out = append(out, cloneUser(u))
		}
	}
	sortUsers(out)
	return out, nil
}

// AddDeviceToken moves token to userID, creating the user with default
// preferences when it does not exist yet.
func (r *UserRepository) AddDeviceToken(_ context.Context, userID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, u := range r.users {
		if id == userID {
			continue
		}
		if idx := slices.Index(u.DeviceTokens, token); idx >= 0 {
			u.DeviceTokens = slices.Delete(u.DeviceTokens, idx, idx+1)
			r.users[id] = u
		}
	}

	u, ok := r.users[userID]
	if !ok {
		u = user.User{ID: userID, Preferences: user.DefaultPreferences()}
	}
	if !slices.Contains(u.DeviceTokens, token) {
		u.DeviceTokens = append(u.DeviceTokens, token)
	}
	r.users[userID] = u
	return nil
}

func (r *UserRepository) RemoveDeviceTokens(_ context.Context, tokens []string) (int64, error) {
	if len(tokens) == 0 {
		return 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var affected int64
	for id, u := range r.users {
		kept := slices.DeleteFunc(slices.Clone(u.DeviceTokens), func(token string) bool {
			return slices.Contains(tokens, token)
		})
		if len(kept) == len(u.DeviceTokens) {
			continue
		}
		u.DeviceTokens = kept
		r.users[id] = u
		affected++
	}
	return affected, nil
}

func cloneUser(u user.User) user.User {
	u.FavoriteTeams = slices.Clone(u.FavoriteTeams)
	u.DeviceTokens = slices.Clone(u.DeviceTokens)
	return u
}

func sortUsers(users []user.User) {
	slices.SortFunc(users, func(a, b user.User) int { return strings.Compare(a.ID, b.ID) })
}
