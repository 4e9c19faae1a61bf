package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vidtube/internal/models"
	"vidtube/internal/storage"
)

func createVideoForUser(t *testing.T, store *storage.Storage, ownerID, title string) models.Video {
	t.Helper()
	video, err := store.CreateVideo(context.Background(), storage.CreateVideoParams{
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

func authedRequest(method, target, body string, user models.User) *http.Request {
	var request *http.Request
	if body != "" {
		request = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		request = httptest.NewRequest(method, target, nil)
	}
	return request.WithContext(ContextWithUser(request.Context(), user))
}

func userByEmail(t *testing.T, store *storage.Storage, email string) models.User {
	t.Helper()
	user, ok, err := store.FindUserByEmail(context.Background(), email)
	if err != nil || !ok {
		t.Fatalf("expected user %s, ok=%v err=%v", email, ok, err)
	}
	return user
}

func TestCreateVideoRequiresAuth(t *testing.T) {
	handler, _ := newTestHandler(t)
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/api/videos", strings.NewReader(`{"title":"x"}`))
	handler.Videos(recorder, request)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
}

func TestRecordViewUpdatesHistoryAndCounter(t *testing.T) {
	handler, store := newTestHandler(t)
	signupTestUser(t, handler, "alice@example.com")
	user := userByEmail(t, store, "alice@example.com")
	video := createVideoForUser(t, store, user.ID, "intro")

	for i := 0; i < 3; i++ {
		recorder := httptest.NewRecorder()
		handler.VideoByID(recorder, authedRequest(http.MethodPost, "/api/videos/"+video.ID+"/view", "", user))
		if recorder.Code != http.StatusOK {
			t.Fatalf("view returned %d: %s", recorder.Code, recorder.Body.String())
		}
	}

	got, _, _ := store.GetVideo(context.Background(), video.ID)
	if got.Views != 1 {
		t.Fatalf("expected repeat views to count once, got %d", got.Views)
	}
	history, _ := store.UserWatchHistory(context.Background(), user.ID)
	if len(history) != 1 || history[0] != video.ID {
		t.Fatalf("expected history [%s], got %v", video.ID, history)
	}
}

func TestRecordViewUnknownVideo(t *testing.T) {
	handler, store := newTestHandler(t)
	signupTestUser(t, handler, "alice@example.com")
	user := userByEmail(t, store, "alice@example.com")

	recorder := httptest.NewRecorder()
	handler.VideoByID(recorder, authedRequest(http.MethodPost, "/api/videos/missing/view", "", user))
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}
}

func TestWatchHistoryHydratedInOrder(t *testing.T) {
	handler, store := newTestHandler(t)
	signupTestUser(t, handler, "alice@example.com")
	user := userByEmail(t, store, "alice@example.com")
	first := createVideoForUser(t, store, user.ID, "first")
	second := createVideoForUser(t, store, user.ID, "second")

	for _, id := range []string{first.ID, second.ID} {
		recorder := httptest.NewRecorder()
		handler.VideoByID(recorder, authedRequest(http.MethodPost, "/api/videos/"+id+"/view", "", user))
		if recorder.Code != http.StatusOK {
			t.Fatalf("view returned %d", recorder.Code)
		}
	}

	recorder := httptest.NewRecorder()
	handler.Me(recorder, authedRequest(http.MethodGet, "/api/users/me/history", "", user))
	if recorder.Code != http.StatusOK {
		t.Fatalf("history returned %d: %s", recorder.Code, recorder.Body.String())
	}
	var payload struct {
		History []models.WatchHistoryEntry `json:"history"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(payload.History) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(payload.History))
	}
	if payload.History[0].Video.ID != second.ID || payload.History[1].Video.ID != first.ID {
		t.Fatalf("expected most-recent-first order, got %s then %s",
			payload.History[0].Video.ID, payload.History[1].Video.ID)
	}
	if payload.History[0].Owner.ID != user.ID {
		t.Fatalf("expected hydrated owner, got %+v", payload.History[0].Owner)
	}
}

func TestDeleteVideoForbiddenForNonOwner(t *testing.T) {
	handler, store := newTestHandler(t)
	signupTestUser(t, handler, "alice@example.com")
	signupTestUser(t, handler, "bob@example.com")
	owner := userByEmail(t, store, "alice@example.com")
	intruder := userByEmail(t, store, "bob@example.com")
	video := createVideoForUser(t, store, owner.ID, "intro")

	recorder := httptest.NewRecorder()
	handler.VideoByID(recorder, authedRequest(http.MethodDelete, "/api/videos/"+video.ID, "", intruder))
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", recorder.Code)
	}
	if _, ok, _ := store.GetVideo(context.Background(), video.ID); !ok {
		t.Fatal("video must survive a forbidden delete")
	}
}

func TestDeleteVideoRemovesRecord(t *testing.T) {
	handler, store := newTestHandler(t)
	signupTestUser(t, handler, "alice@example.com")
	owner := userByEmail(t, store, "alice@example.com")
	video := createVideoForUser(t, store, owner.ID, "intro")

	recorder := httptest.NewRecorder()
	handler.VideoByID(recorder, authedRequest(http.MethodDelete, "/api/videos/"+video.ID, "", owner))
	if recorder.Code != http.StatusOK {
		t.Fatalf("delete returned %d: %s", recorder.Code, recorder.Body.String())
	}
	if _, ok, _ := store.GetVideo(context.Background(), video.ID); ok {
		t.Fatal("expected video removed")
	}
}

func TestUnpublishedVideoHiddenFromOthers(t *testing.T) {
	handler, store := newTestHandler(t)
	signupTestUser(t, handler, "alice@example.com")
	signupTestUser(t, handler, "bob@example.com")
	owner := userByEmail(t, store, "alice@example.com")
	viewer := userByEmail(t, store, "bob@example.com")
	draft, err := store.CreateVideo(context.Background(), storage.CreateVideoParams{
		OwnerID:   owner.ID,
		Title:     "draft",
		VideoFile: models.MediaAsset{URL: "u", PublicID: "p"},
	})
	if err != nil {
		t.Fatalf("CreateVideo returned error: %v", err)
	}

	recorder := httptest.NewRecorder()
	handler.VideoByID(recorder, authedRequest(http.MethodGet, "/api/videos/"+draft.ID, "", viewer))
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign draft, got %d", recorder.Code)
	}

	ownerView := httptest.NewRecorder()
	handler.VideoByID(ownerView, authedRequest(http.MethodGet, "/api/videos/"+draft.ID, "", owner))
	if ownerView.Code != http.StatusOK {
		t.Fatalf("expected owner to see draft, got %d", ownerView.Code)
	}
}

func TestSuggestionsEndpoint(t *testing.T) {
	handler, store := newTestHandler(t)
	signupTestUser(t, handler, "alice@example.com")
	owner := userByEmail(t, store, "alice@example.com")
	video := createVideoForUser(t, store, owner.ID, "gopher tutorial")

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/api/videos/suggestions?q=GOPHER", nil)
	handler.VideoByID(recorder, request)
	if recorder.Code != http.StatusOK {
		t.Fatalf("suggestions returned %d: %s", recorder.Code, recorder.Body.String())
	}
	if !strings.Contains(recorder.Body.String(), video.ID) {
		t.Fatalf("expected match in %s", recorder.Body.String())
	}
}

func TestCommentLifecycle(t *testing.T) {
	handler, store := newTestHandler(t)
	signupTestUser(t, handler, "alice@example.com")
	signupTestUser(t, handler, "bob@example.com")
	owner := userByEmail(t, store, "alice@example.com")
	commenter := userByEmail(t, store, "bob@example.com")
	video := createVideoForUser(t, store, owner.ID, "intro")

	create := httptest.NewRecorder()
	handler.VideoByID(create, authedRequest(http.MethodPost, "/api/videos/"+video.ID+"/comments", `{"content":"nice"}`, commenter))
	if create.Code != http.StatusCreated {
		t.Fatalf("create comment returned %d: %s", create.Code, create.Body.String())
	}
	var created struct {
		Comment models.Comment `json:"comment"`
	}
	if err := json.Unmarshal(create.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode comment: %v", err)
	}

	list := httptest.NewRecorder()
	handler.VideoByID(list, httptest.NewRequest(http.MethodGet, "/api/videos/"+video.ID+"/comments", nil))
	if list.Code != http.StatusOK || !strings.Contains(list.Body.String(), "nice") {
		t.Fatalf("list comments returned %d: %s", list.Code, list.Body.String())
	}

	// The video owner may remove someone else's comment.
	del := httptest.NewRecorder()
	handler.VideoByID(del, authedRequest(http.MethodDelete, "/api/videos/"+video.ID+"/comments/"+created.Comment.ID, "", owner))
	if del.Code != http.StatusOK {
		t.Fatalf("delete comment returned %d: %s", del.Code, del.Body.String())
	}
	if _, ok, _ := store.GetComment(context.Background(), created.Comment.ID); ok {
		t.Fatal("expected comment removed")
	}
}

func TestToggleLikeEndpoint(t *testing.T) {
	handler, store := newTestHandler(t)
	signupTestUser(t, handler, "alice@example.com")
	owner := userByEmail(t, store, "alice@example.com")
	video := createVideoForUser(t, store, owner.ID, "intro")

	like := httptest.NewRecorder()
	handler.VideoByID(like, authedRequest(http.MethodPost, "/api/videos/"+video.ID+"/like", "", owner))
	if like.Code != http.StatusOK || !strings.Contains(like.Body.String(), "true") {
		t.Fatalf("like returned %d: %s", like.Code, like.Body.String())
	}

	count := httptest.NewRecorder()
	handler.VideoByID(count, httptest.NewRequest(http.MethodGet, "/api/videos/"+video.ID+"/likes", nil))
	if count.Code != http.StatusOK || !strings.Contains(count.Body.String(), "1") {
		t.Fatalf("likes returned %d: %s", count.Code, count.Body.String())
	}

	unlike := httptest.NewRecorder()
	handler.VideoByID(unlike, authedRequest(http.MethodPost, "/api/videos/"+video.ID+"/like", "", owner))
	if unlike.Code != http.StatusOK || !strings.Contains(unlike.Body.String(), "false") {
		t.Fatalf("unlike returned %d: %s", unlike.Code, unlike.Body.String())
	}
}

func TestUploadSignatureUnconfigured(t *testing.T) {
	handler, store := newTestHandler(t)
	signupTestUser(t, handler, "alice@example.com")
	user := userByEmail(t, store, "alice@example.com")

	recorder := httptest.NewRecorder()
	handler.VideoByID(recorder, authedRequest(http.MethodGet, "/api/videos/signature", "", user))
	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without media credentials, got %d", recorder.Code)
	}
}
