package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestCreateCommentValidation(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	owner := createTestUser(t, store, "alice")
	video := createTestVideo(t, store, owner.ID, "intro")

	if _, err := store.CreateComment(ctx, video.ID, owner.ID, "   "); err == nil {
		t.Fatal("expected error for blank comment")
	}
	if _, err := store.CreateComment(ctx, video.ID, owner.ID, strings.Repeat("x", MaxCommentLength+1)); err == nil {
		t.Fatal("expected error for oversized comment")
	}
	if _, err := store.CreateComment(ctx, "missing", owner.ID, "hi"); !errors.Is(err, ErrVideoNotFound) {
		t.Fatalf("expected ErrVideoNotFound, got %v", err)
	}
	if _, err := store.CreateComment(ctx, video.ID, "missing", "hi"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestListCommentsNewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	owner := createTestUser(t, store, "alice")
	video := createTestVideo(t, store, owner.ID, "intro")

	for _, content := range []string{"one", "two", "three"} {
		if _, err := store.CreateComment(ctx, video.ID, owner.ID, content); err != nil {
			t.Fatalf("CreateComment returned error: %v", err)
		}
	}
	comments, err := store.ListComments(ctx, video.ID, 2)
	if err != nil {
		t.Fatalf("ListComments returned error: %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("expected limit applied, got %d comments", len(comments))
	}
	if _, err := store.ListComments(ctx, "missing", 0); !errors.Is(err, ErrVideoNotFound) {
		t.Fatalf("expected ErrVideoNotFound, got %v", err)
	}
}

func TestDeleteComment(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	owner := createTestUser(t, store, "alice")
	video := createTestVideo(t, store, owner.ID, "intro")
	comment, err := store.CreateComment(ctx, video.ID, owner.ID, "hello")
	if err != nil {
		t.Fatalf("CreateComment returned error: %v", err)
	}

	if err := store.DeleteComment(ctx, comment.ID); err != nil {
		t.Fatalf("DeleteComment returned error: %v", err)
	}
	if err := store.DeleteComment(ctx, comment.ID); !errors.Is(err, ErrCommentNotFound) {
		t.Fatalf("expected ErrCommentNotFound, got %v", err)
	}
}

func TestToggleVideoLike(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	owner := createTestUser(t, store, "alice")
	viewer := createTestUser(t, store, "bob")
	video := createTestVideo(t, store, owner.ID, "intro")

	liked, err := store.ToggleVideoLike(ctx, video.ID, viewer.ID)
	if err != nil || !liked {
		t.Fatalf("expected first toggle to like, liked=%v err=%v", liked, err)
	}
	if count, _ := store.CountVideoLikes(ctx, video.ID); count != 1 {
		t.Fatalf("expected 1 like, got %d", count)
	}
	liked, err = store.ToggleVideoLike(ctx, video.ID, viewer.ID)
	if err != nil || liked {
		t.Fatalf("expected second toggle to unlike, liked=%v err=%v", liked, err)
	}
	if count, _ := store.CountVideoLikes(ctx, video.ID); count != 0 {
		t.Fatalf("expected 0 likes, got %d", count)
	}
	if _, err := store.ToggleVideoLike(ctx, "missing", viewer.ID); !errors.Is(err, ErrVideoNotFound) {
		t.Fatalf("expected ErrVideoNotFound, got %v", err)
	}
}
