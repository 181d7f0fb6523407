package cache

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/rugby-live/internal/domain/user"
	basecache "github.com/riskibarqy/rugby-live/internal/platform/cache"
)

const userKeyPrefix = "user:"

// UserRepository caches follower lookups in front of another user.Repository.
// Recipient resolution runs on every live transition, so the same favorite
// team query repeats many times per match. Any token mutation drops every
// cached user entry.
type UserRepository struct {
	next  user.Repository
	cache *basecache.Store
	ttl   time.Duration
}

func NewUserRepository(next user.Repository, cache *basecache.Store, ttl time.Duration) *UserRepository {
	return &UserRepository{next: next, cache: cache, ttl: ttl}
}

func (r *UserRepository) GetByID(ctx context.Context, userID string) (user.User, bool, error) {
	v, err := r.cache.GetOrLoadWithTTL(ctx, userKeyPrefix+"id:"+userID, r.ttl, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		return cachedUserByID{value: item, exists: exists}, nil
	})
	if err != nil {
		return user.User{}, false, err
	}

	cached, _ := v.(cachedUserByID)
	return cloneUser(cached.value), cached.exists, nil
}

type cachedUserByID struct {
	value  user.User
	exists bool
}

func (r *UserRepository) ListByIDs(ctx context.Context, userIDs []string) ([]user.User, error) {
	return r.next.ListByIDs(ctx, userIDs)
}

func (r *UserRepository) ListByFavoriteTeams(ctx context.Context, teamIDs []int64) ([]user.User, error) {
	v, err := r.cache.GetOrLoadWithTTL(ctx, favoritesKey(teamIDs), r.ttl, func(ctx context.Context) (any, error) {
		return r.next.ListByFavoriteTeams(ctx, teamIDs)
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]user.User)
	out := make([]user.User, len(items))
	for i, item := range items {
		out[i] = cloneUser(item)
	}
	return out, nil
}

func (r *UserRepository) AddDeviceToken(ctx context.Context, userID, token string) error {
	defer r.cache.DeletePrefix(ctx, userKeyPrefix)
	return r.next.AddDeviceToken(ctx, userID, token)
}

func (r *UserRepository) RemoveDeviceTokens(ctx context.Context, tokens []string) (int64, error) {
	defer r.cache.DeletePrefix(ctx, userKeyPrefix)
	return r.next.RemoveDeviceTokens(ctx, tokens)
}

// favoritesKey is order-insensitive so home/away lookups share an entry.
func favoritesKey(teamIDs []int64) string {
	ids := slices.Clone(teamIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return userKeyPrefix + "favorites:" + strings.Join(parts, ",")
}

func cloneUser(u user.User) user.User {
	u.FavoriteTeams = slices.Clone(u.FavoriteTeams)
	u.DeviceTokens = slices.Clone(u.DeviceTokens)
	return u
}
