package storage

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"vidtube/internal/auth"
	"vidtube/internal/models"
)

func TestCreateUserNormalizesAndHashes(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	user, err := store.CreateUser(ctx, CreateUserParams{
		Username: "  Alice ",
		Email:    "Alice@Example.COM",
		FullName: " Alice Liddell ",
		Password: "correcthorse",
	})
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	if user.Username != "alice" || user.Email != "alice@example.com" {
		t.Fatalf("expected lowercased identifiers, got %q / %q", user.Username, user.Email)
	}
	if user.FullName != "Alice Liddell" {
		t.Fatalf("expected trimmed full name, got %q", user.FullName)
	}
	if user.PasswordHash == "correcthorse" || !strings.HasPrefix(user.PasswordHash, "pbkdf2$") {
		t.Fatalf("expected hashed password, got %q", user.PasswordHash)
	}
	if err := auth.VerifyPassword(user.PasswordHash, "correcthorse"); err != nil {
		t.Fatalf("expected stored hash to verify: %v", err)
	}
}

func TestCreateUserRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	createTestUser(t, store, "alice")

	_, err := store.CreateUser(ctx, CreateUserParams{
		Username: "alice",
		Email:    "other@example.com",
		FullName: "Other",
		Password: "correcthorse",
	})
	if !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists for username, got %v", err)
	}
	_, err = store.CreateUser(ctx, CreateUserParams{
		Username: "bob",
		Email:    "ALICE@example.com",
		FullName: "Bob",
		Password: "correcthorse",
	})
	if !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists for email, got %v", err)
	}
}

func TestCreateUserValidation(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	cases := []struct {
		name   string
		params CreateUserParams
	}{
		{"missing username", CreateUserParams{Email: "a@example.com", FullName: "A", Password: "correcthorse"}},
		{"bad email", CreateUserParams{Username: "a", Email: "not-an-email", FullName: "A", Password: "correcthorse"}},
		{"short password", CreateUserParams{Username: "a", Email: "a@example.com", FullName: "A", Password: "short"}},
		{"long password", CreateUserParams{Username: "a", Email: "a@example.com", FullName: "A", Password: strings.Repeat("x", 17)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := store.CreateUser(ctx, tc.params); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestSetRefreshTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	user := createTestUser(t, store, "alice")

	if err := store.SetRefreshToken(ctx, user.ID, "first"); err != nil {
		t.Fatalf("SetRefreshToken returned error: %v", err)
	}
	got, _, _ := store.GetUser(ctx, user.ID)
	if got.RefreshToken != "first" {
		t.Fatalf("expected stored token, got %q", got.RefreshToken)
	}
	if err := store.SetRefreshToken(ctx, user.ID, ""); err != nil {
		t.Fatalf("clearing token returned error: %v", err)
	}
	got, _, _ = store.GetUser(ctx, user.ID)
	if got.RefreshToken != "" {
		t.Fatalf("expected cleared token, got %q", got.RefreshToken)
	}
	if err := store.SetRefreshToken(ctx, "missing", "x"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUpdateUserPartial(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	user := createTestUser(t, store, "alice")

	name := "Alice P. Liddell"
	avatar := models.MediaAsset{URL: "https://cdn.example.com/a.png", PublicID: "avatars/a"}
	updated, err := store.UpdateUser(ctx, user.ID, UserUpdate{FullName: &name, Avatar: &avatar})
	if err != nil {
		t.Fatalf("UpdateUser returned error: %v", err)
	}
	if updated.FullName != name || updated.Avatar != avatar {
		t.Fatalf("unexpected update result: %+v", updated)
	}
	if updated.Email != user.Email {
		t.Fatalf("expected untouched email, got %q", updated.Email)
	}

	empty := " "
	if _, err := store.UpdateUser(ctx, user.ID, UserUpdate{FullName: &empty}); err == nil {
		t.Fatal("expected error for blank full name")
	}
}

func TestSetUserPassword(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	user := createTestUser(t, store, "alice")

	if err := store.SetUserPassword(ctx, user.ID, "newpassword1"); err != nil {
		t.Fatalf("SetUserPassword returned error: %v", err)
	}
	got, _, _ := store.GetUser(ctx, user.ID)
	if err := auth.VerifyPassword(got.PasswordHash, "newpassword1"); err != nil {
		t.Fatalf("expected new password to verify: %v", err)
	}
	if err := auth.VerifyPassword(got.PasswordHash, "correcthorse"); err == nil {
		t.Fatal("expected old password to stop verifying")
	}
}

func TestPushWatchHistoryFrontDeduplicates(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	user := createTestUser(t, store, "alice")

	for _, videoID := range []string{"v1", "v2", "v3", "v1"} {
		if err := store.PushWatchHistoryFront(ctx, user.ID, videoID); err != nil {
			t.Fatalf("PushWatchHistoryFront(%s) returned error: %v", videoID, err)
		}
	}
	history, err := store.UserWatchHistory(ctx, user.ID)
	if err != nil {
		t.Fatalf("UserWatchHistory returned error: %v", err)
	}
	want := []string{"v1", "v3", "v2"}
	if len(history) != len(want) {
		t.Fatalf("expected %v, got %v", want, history)
	}
	for i := range want {
		if history[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, history)
		}
	}
}

func TestRemoveFromWatchHistory(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	user := createTestUser(t, store, "alice")

	for _, videoID := range []string{"v1", "v2"} {
		if err := store.PushWatchHistoryFront(ctx, user.ID, videoID); err != nil {
			t.Fatalf("PushWatchHistoryFront returned error: %v", err)
		}
	}
	if err := store.RemoveFromWatchHistory(ctx, user.ID, "v1"); err != nil {
		t.Fatalf("RemoveFromWatchHistory returned error: %v", err)
	}
	history, _ := store.UserWatchHistory(ctx, user.ID)
	if len(history) != 1 || history[0] != "v2" {
		t.Fatalf("expected [v2], got %v", history)
	}
	// Absent id is a no-op.
	if err := store.RemoveFromWatchHistory(ctx, user.ID, "v1"); err != nil {
		t.Fatalf("removing absent id returned error: %v", err)
	}
}

func TestConcurrentPushNeverDuplicates(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	user := createTestUser(t, store, "alice")

	videoIDs := []string{"v1", "v2", "v3"}
	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 40; i++ {
				videoID := videoIDs[(worker+i)%len(videoIDs)]
				if err := store.PushWatchHistoryFront(ctx, user.ID, videoID); err != nil {
					t.Errorf("PushWatchHistoryFront returned error: %v", err)
					return
				}
			}
		}(worker)
	}
	wg.Wait()

	history, err := store.UserWatchHistory(ctx, user.ID)
	if err != nil {
		t.Fatalf("UserWatchHistory returned error: %v", err)
	}
	seen := make(map[string]int)
	for _, entry := range history {
		seen[entry]++
	}
	for videoID, count := range seen {
		if count > 1 {
			t.Fatalf("video %s appears %d times", videoID, count)
		}
	}
}

func TestFindUserLookups(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	user := createTestUser(t, store, "alice")

	byEmail, ok, err := store.FindUserByEmail(ctx, "ALICE@example.com")
	if err != nil || !ok || byEmail.ID != user.ID {
		t.Fatalf("expected email lookup to hit, ok=%v err=%v", ok, err)
	}
	byUsername, ok, err := store.FindUserByUsername(ctx, "Alice")
	if err != nil || !ok || byUsername.ID != user.ID {
		t.Fatalf("expected username lookup to hit, ok=%v err=%v", ok, err)
	}
	if _, ok, _ := store.FindUserByEmail(ctx, "nobody@example.com"); ok {
		t.Fatal("expected miss for unknown email")
	}
}
