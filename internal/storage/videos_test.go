package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"vidtube/internal/models"
)

func TestCreateVideoValidation(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	user := createTestUser(t, store, "alice")

	if _, err := store.CreateVideo(ctx, CreateVideoParams{OwnerID: user.ID, VideoFile: models.MediaAsset{URL: "u", PublicID: "p"}}); err == nil {
		t.Fatal("expected error for missing title")
	}
	if _, err := store.CreateVideo(ctx, CreateVideoParams{OwnerID: user.ID, Title: "t"}); err == nil {
		t.Fatal("expected error for missing media asset")
	}
	_, err := store.CreateVideo(ctx, CreateVideoParams{
		OwnerID:   "missing",
		Title:     "t",
		VideoFile: models.MediaAsset{URL: "u", PublicID: "p"},
	})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for unknown owner, got %v", err)
	}
}

func TestListVideosVisibility(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	owner := createTestUser(t, store, "alice")
	other := createTestUser(t, store, "bob")

	published := createTestVideo(t, store, owner.ID, "published")
	draft, err := store.CreateVideo(ctx, CreateVideoParams{
		OwnerID:   owner.ID,
		Title:     "draft",
		VideoFile: models.MediaAsset{URL: "u", PublicID: "p"},
	})
	if err != nil {
		t.Fatalf("CreateVideo returned error: %v", err)
	}
	createTestVideo(t, store, other.ID, "theirs")

	public, err := store.ListVideos(ctx, "")
	if err != nil {
		t.Fatalf("ListVideos returned error: %v", err)
	}
	for _, video := range public {
		if !video.IsPublished {
			t.Fatalf("unpublished video %s leaked into public listing", video.ID)
		}
	}

	mine, err := store.ListVideos(ctx, owner.ID)
	if err != nil {
		t.Fatalf("ListVideos(owner) returned error: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected both owner videos including draft, got %d", len(mine))
	}
	foundDraft := false
	for _, video := range mine {
		if video.ID == draft.ID {
			foundDraft = true
		}
		if video.ID != draft.ID && video.ID != published.ID {
			t.Fatalf("foreign video %s in owner listing", video.ID)
		}
	}
	if !foundDraft {
		t.Fatal("expected draft in owner listing")
	}
}

func TestSearchVideosFoldsCase(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	owner := createTestUser(t, store, "alice")
	video := createTestVideo(t, store, owner.ID, "Straße Tour")

	matches, err := store.SearchVideos(ctx, "STRASSE")
	if err != nil {
		t.Fatalf("SearchVideos returned error: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != video.ID {
		t.Fatalf("expected case-folded match, got %v", matches)
	}
	if matches, _ := store.SearchVideos(ctx, "  "); len(matches) != 0 {
		t.Fatalf("expected empty query to match nothing, got %v", matches)
	}
}

func TestIncrementViewCount(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	owner := createTestUser(t, store, "alice")
	video := createTestVideo(t, store, owner.ID, "intro")

	for i := 0; i < 3; i++ {
		if err := store.IncrementViewCount(ctx, video.ID); err != nil {
			t.Fatalf("IncrementViewCount returned error: %v", err)
		}
	}
	got, _, _ := store.GetVideo(ctx, video.ID)
	if got.Views != 3 {
		t.Fatalf("expected 3 views, got %d", got.Views)
	}
	if err := store.IncrementViewCount(ctx, "missing"); !errors.Is(err, ErrVideoNotFound) {
		t.Fatalf("expected ErrVideoNotFound, got %v", err)
	}
}

func TestDeleteVideoCascades(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	owner := createTestUser(t, store, "alice")
	viewer := createTestUser(t, store, "bob")
	video := createTestVideo(t, store, owner.ID, "intro")

	comment, err := store.CreateComment(ctx, video.ID, viewer.ID, "first")
	if err != nil {
		t.Fatalf("CreateComment returned error: %v", err)
	}
	if _, err := store.ToggleVideoLike(ctx, video.ID, viewer.ID); err != nil {
		t.Fatalf("ToggleVideoLike returned error: %v", err)
	}

	deleted, err := store.DeleteVideo(ctx, video.ID)
	if err != nil {
		t.Fatalf("DeleteVideo returned error: %v", err)
	}
	if deleted.VideoFile.PublicID != video.VideoFile.PublicID {
		t.Fatalf("expected deleted record to carry media ids, got %+v", deleted.VideoFile)
	}
	if _, ok, _ := store.GetVideo(ctx, video.ID); ok {
		t.Fatal("expected video removed")
	}
	if _, ok, _ := store.GetComment(ctx, comment.ID); ok {
		t.Fatal("expected comment removed with video")
	}
	if _, err := store.CountVideoLikes(ctx, video.ID); !errors.Is(err, ErrVideoNotFound) {
		t.Fatalf("expected likes removed with video, got %v", err)
	}
}

func TestVideosSortNewestFirst(t *testing.T) {
	ctx := context.Background()
	current := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store, err := New("", WithClock(func() time.Time {
		current = current.Add(time.Minute)
		return current
	}))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	owner := createTestUser(t, store, "alice")
	first := createTestVideo(t, store, owner.ID, "first")
	second := createTestVideo(t, store, owner.ID, "second")

	videos, err := store.ListVideos(ctx, "")
	if err != nil {
		t.Fatalf("ListVideos returned error: %v", err)
	}
	if len(videos) != 2 || videos[0].ID != second.ID || videos[1].ID != first.ID {
		t.Fatalf("expected newest first ordering, got %v", videos)
	}
}
