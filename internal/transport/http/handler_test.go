package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"quiniela-service/internal/app"
	"quiniela-service/internal/domain"
	"quiniela-service/internal/infra/memory"
)

const testAdminPIN = "1357"

func TestFullPredictionFlow(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	// Register.
	var alice domain.Participant
	resp := doJSON(t, server, http.MethodPost, "/api/users/register", "",
		map[string]string{"nickname": "Alice", "pin": "1234"}, &alice)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", resp.StatusCode)
	}
	if alice.ID == "" {
		t.Fatal("expected participant id")
	}

	// Submit a complete prediction set.
	resp = doJSON(t, server, http.MethodPost, "/api/predictions", "",
		map[string]any{"userId": alice.ID, "predictions": fullPredictionPayload()}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit: expected 201, got %d", resp.StatusCode)
	}

	// Mark the winner question correct as the operator.
	var update app.LeaderboardUpdate
	resp = doJSON(t, server, http.MethodPost, "/api/admin/answers/14", testAdminPIN,
		map[string]string{"answer": "Seattle Seahawks"}, &update)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mark: expected 200, got %d", resp.StatusCode)
	}
	if update.UpdatedQuestion != 14 || len(update.Leaderboard) != 1 {
		t.Fatalf("unexpected update: %+v", update)
	}
	if update.Leaderboard[0].Score != 20 {
		t.Fatalf("winner question must score 20, got %d", update.Leaderboard[0].Score)
	}

	// Public leaderboard hides answers until the operator flips visibility.
	var view app.LeaderboardView
	resp = doJSON(t, server, http.MethodGet, "/api/leaderboard", "", nil, &view)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("leaderboard: expected 200, got %d", resp.StatusCode)
	}
	if view.TotalParticipants != 1 || view.AnsweredQuestions != 1 {
		t.Fatalf("unexpected view: %+v", view)
	}
	if len(view.CorrectAnswers) != 0 {
		t.Fatalf("answers must stay hidden, got %+v", view.CorrectAnswers)
	}

	var entry domain.LeaderboardEntry
	resp = doJSON(t, server, http.MethodGet, "/api/leaderboard/position/"+alice.ID, "", nil, &entry)
	if resp.StatusCode != http.StatusOK || entry.Position != 1 {
		t.Fatalf("position: status %d entry %+v", resp.StatusCode, entry)
	}
}

func TestAdminRoutesRequirePIN(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	resp := doJSON(t, server, http.MethodGet, "/api/admin/participants", "", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without pin, got %d", resp.StatusCode)
	}
	resp = doJSON(t, server, http.MethodGet, "/api/admin/participants", "0000", nil, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 with wrong pin, got %d", resp.StatusCode)
	}
	resp = doJSON(t, server, http.MethodGet, "/api/admin/participants", testAdminPIN, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with pin, got %d", resp.StatusCode)
	}
}

func TestLockedRegistrationReturns403(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	resp := doJSON(t, server, http.MethodPut, "/api/admin/settings", testAdminPIN,
		map[string]bool{"predictionsLocked": true}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("lock: expected 200, got %d", resp.StatusCode)
	}

	resp = doJSON(t, server, http.MethodPost, "/api/users/register", "",
		map[string]string{"nickname": "Late", "pin": "1234"}, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 once locked, got %d", resp.StatusCode)
	}
}

func TestVerifyAdminPIN(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	resp := doJSON(t, server, http.MethodPost, "/api/admin/verify", "",
		map[string]string{"pin": testAdminPIN}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for right pin, got %d", resp.StatusCode)
	}
	resp = doJSON(t, server, http.MethodPost, "/api/admin/verify", "",
		map[string]string{"pin": "9999"}, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for wrong pin, got %d", resp.StatusCode)
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *app.Hub) {
	t.Helper()
	store := memory.NewStore()
	hub := app.NewHub(time.Minute)
	service := app.NewService(store, memory.NewAnswerCache(store), domain.DefaultCatalog(), hub)
	handler := NewHandler(service, hub, testAdminPIN)
	return httptest.NewServer(handler.Router()), hub
}

func doJSON(t *testing.T, server *httptest.Server, method, path, adminPIN string, body, out any) *http.Response {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, server.URL+path, &payload)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if adminPIN != "" {
		req.Header.Set("X-Admin-Pin", adminPIN)
	}
	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp
}

func fullPredictionPayload() map[string]string {
	payload := make(map[string]string)
	for _, q := range domain.DefaultCatalog().Questions() {
		payload[strconv.Itoa(q.ID)] = q.Options[0]
	}
	return payload
}
