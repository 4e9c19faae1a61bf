package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"vidtube/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	store, err := New("")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return store
}

func createTestUser(t *testing.T, store *Storage, username string) models.User {
	t.Helper()
	user, err := store.CreateUser(context.Background(), CreateUserParams{
		Username: username,
		Email:    username + "@example.com",
		FullName: "Test " + username,
		Password: "correcthorse",
	})
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	return user
}

func createTestVideo(t *testing.T, store *Storage, ownerID, title string) models.Video {
	t.Helper()
	video, err := store.CreateVideo(context.Background(), CreateVideoParams{
		OwnerID: ownerID,
		Title:   title,
		VideoFile: models.MediaAsset{
			URL:      "https://cdn.example.com/" + title + ".mp4",
			PublicID: "videos/" + title,
		},
		IsPublished: true,
	})
	if err != nil {
		t.Fatalf("CreateVideo returned error: %v", err)
	}
	return video
}

func TestPersistAndReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.json")
	store, err := New(path)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	user := createTestUser(t, store, "alice")
	video := createTestVideo(t, store, user.ID, "intro")
	if err := store.PushWatchHistoryFront(ctx, user.ID, video.ID); err != nil {
		t.Fatalf("PushWatchHistoryFront returned error: %v", err)
	}

	reloaded, err := New(path)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	got, ok, err := reloaded.GetUser(ctx, user.ID)
	if err != nil || !ok {
		t.Fatalf("expected user to survive reload, ok=%v err=%v", ok, err)
	}
	if len(got.WatchHistory) != 1 || got.WatchHistory[0] != video.ID {
		t.Fatalf("expected watch history to survive reload, got %v", got.WatchHistory)
	}
	if _, ok, _ := reloaded.GetVideo(ctx, video.ID); !ok {
		t.Fatal("expected video to survive reload")
	}
}

func TestPersistFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	user := createTestUser(t, store, "alice")

	store.persistOverride = func(dataset) error { return fmt.Errorf("disk full") }
	if err := store.SetRefreshToken(ctx, user.ID, "token"); err == nil {
		t.Fatal("expected persist failure to surface")
	}
	store.persistOverride = nil

	got, ok, err := store.GetUser(ctx, user.ID)
	if err != nil || !ok {
		t.Fatalf("expected user to remain, ok=%v err=%v", ok, err)
	}
	if got.RefreshToken != "" {
		t.Fatalf("expected refresh token rollback, got %q", got.RefreshToken)
	}
}

func TestPingRespectsContext(t *testing.T) {
	store := newTestStorage(t)
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping returned error: %v", err)
	}
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.Ping(cancelled); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
