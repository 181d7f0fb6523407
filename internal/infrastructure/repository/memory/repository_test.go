package memory

import (
	"context"
	"testing"
	"time"

	"github.com/riskibarqy/rugby-live/internal/domain/league"
	"github.com/riskibarqy/rugby-live/internal/domain/team"
	"github.com/riskibarqy/rugby-live/internal/domain/user"
)

func TestLeagueRepository_KeepsCatalogOrder(t *testing.T) {
	t.Parallel()

	repo := NewLeagueRepository([]league.League{
		{ID: 16, Name: "Top 14", Season: 2024, IsDefault: true},
		{ID: 51, Name: "Six Nations", Season: 2025},
		{ID: 16, Name: "Top 14", Season: 2025, IsDefault: true},
	})

	items, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("list leagues: %v", err)
	}
	if len(items) != 2 || items[0].ID != 16 || items[1].ID != 51 {
		t.Fatalf("unexpected leagues: %+v", items)
	}
	if items[0].Season != 2025 {
		t.Fatalf("expected later entry to win, got season %d", items[0].Season)
	}

	if _, found, _ := repo.GetByID(context.Background(), 99); found {
		t.Fatalf("expected unknown league to be missing")
	}
}

func TestTeamRepository_ExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	repo := NewTeamRepository(time.Hour)
	repo.now = func() time.Time { return now }

	err := repo.ReplaceByLeague(context.Background(), 16, 2024, []team.Team{
		{ID: 107, Name: "Stade Toulousain"},
		{ID: 0, Name: "invalid"},
	})
	if err != nil {
		t.Fatalf("replace teams: %v", err)
	}

	got, found, _ := repo.ListByLeague(context.Background(), 16, 2024)
	if !found || len(got) != 1 {
		t.Fatalf("expected one stored team, found=%v teams=%+v", found, got)
	}
	if _, found, _ := repo.ListByLeague(context.Background(), 16, 2023); found {
		t.Fatalf("other seasons must be missing")
	}

	now = now.Add(2 * time.Hour)
	if _, found, _ := repo.ListByLeague(context.Background(), 16, 2024); found {
		t.Fatalf("expected expired entry to be missing")
	}
}

func TestUserRepository_DeviceTokens(t *testing.T) {
	t.Parallel()

	repo := NewUserRepository([]user.User{
		{ID: "user-1", FavoriteTeams: []int64{107}, DeviceTokens: []string{"tok-a"}},
		{ID: "user-2", FavoriteTeams: []int64{112}, DeviceTokens: []string{"tok-b", "tok-c"}},
	})
	ctx := context.Background()

	if err := repo.AddDeviceToken(ctx, "user-1", "tok-b"); err != nil {
		t.Fatalf("add device token: %v", err)
	}
	u2, _, _ := repo.GetByID(ctx, "user-2")
	if len(u2.DeviceTokens) != 1 || u2.DeviceTokens[0] != "tok-c" {
		t.Fatalf("expected tok-b to move away from user-2, got %v", u2.DeviceTokens)
	}

	if err := repo.AddDeviceToken(ctx, "user-3", "tok-d"); err != nil {
		t.Fatalf("add device token for new user: %v", err)
	}
	u3, found, _ := repo.GetByID(ctx, "user-3")
	if !found || u3.Preferences != user.DefaultPreferences() {
		t.Fatalf("expected new user with default preferences, got %+v", u3)
	}

	affected, err := repo.RemoveDeviceTokens(ctx, []string{"tok-a", "tok-c", "unknown"})
	if err != nil {
		t.Fatalf("remove device tokens: %v", err)
	}
	if affected != 2 {
		t.Fatalf("expected two users affected, got %d", affected)
	}

	followers, _ := repo.ListByFavoriteTeams(ctx, []int64{107, 112})
	if len(followers) != 2 || followers[0].ID != "user-1" {
		t.Fatalf("unexpected followers: %+v", followers)
	}
	if len(followers[0].DeviceTokens) != 1 || followers[0].DeviceTokens[0] != "tok-b" {
		t.Fatalf("unexpected user-1 tokens: %v", followers[0].DeviceTokens)
	}
}

func TestUserRepository_ListByIDsReturnsCopies(t *testing.T) {
	t.Parallel()

	repo := NewUserRepository([]user.User{{ID: "user-1", DeviceTokens: []string{"tok-a"}}})

	got, _ := repo.ListByIDs(context.Background(), []string{"user-1", "user-1", "ghost"})
	if len(got) != 1 {
		t.Fatalf("expected one user, got %d", len(got))
	}
	got[0].DeviceTokens[0] = "mutated"

	again, _, _ := repo.GetByID(context.Background(), "user-1")
	if again.DeviceTokens[0] != "tok-a" {
		t.Fatalf("repository state leaked through returned slice")
	}
}
