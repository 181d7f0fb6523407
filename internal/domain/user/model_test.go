package user

import "testing"

func TestNotificationPreferences_Allows(t *testing.T) {
	t.Parallel()

	prefs := DefaultPreferences()
	if !prefs.Allows(KindMatchStart) || !prefs.Allows(KindScoreUpdate) || !prefs.Allows(KindMatchEnd) {
		t.Fatalf("default preferences must allow start, score and end: %+v", prefs)
	}
	if prefs.Allows(KindEvent) {
		t.Fatalf("default preferences must not allow per-event pushes")
	}
	if prefs.Allows(NotificationKind("unknown")) {
		t.Fatalf("unknown kinds must be rejected")
	}
}

func TestUser_FollowsAny(t *testing.T) {
	t.Parallel()

	u := User{ID: "u1", FavoriteTeams: []int64{107, 462}}
	if !u.FollowsAny(1, 462) {
		t.Fatalf("expected user to follow team 462")
	}
	if u.FollowsAny(0, 5) {
		t.Fatalf("unexpected follow match")
	}
	if err := (User{}).Validate(); err == nil {
		t.Fatalf("expected validation error for blank id")
	}
}
