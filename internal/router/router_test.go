package router

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"textbook-gateway/internal/backend"
	"textbook-gateway/internal/conversation"
	"textbook-gateway/internal/gatewayclient"
	"textbook-gateway/internal/handlers"
	"textbook-gateway/internal/logger"
	"textbook-gateway/internal/middleware"
	"textbook-gateway/internal/models"
	"textbook-gateway/internal/repository"
	"textbook-gateway/internal/services"
	"textbook-gateway/internal/storage"
	"textbook-gateway/internal/websocket"
)

// newTestServer wires the full gateway against a fake inference backend.
func newTestServer(t *testing.T, backendHandler http.HandlerFunc, limiter middleware.Limiter) *httptest.Server {
	t.Helper()
	backendSrv := httptest.NewServer(backendHandler)
	t.Cleanup(backendSrv.Close)

	log := logger.NewNop()
	dir := t.TempDir()
	store, err := storage.NewLocalStore(dir + "/uploads")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	hub := websocket.NewHub(nil, log)
	svc := services.NewTextbookService(repository.NewTextbookRepo(dir+"/textbooks.json"), store, hub, log)
	client := backend.NewClient(backendSrv.URL, time.Second)

	h := New(
		handlers.NewCatalogHandler(svc, client, log),
		handlers.NewUploadHandler(svc, 1<<20, log),
		handlers.NewChatHandler(client, log),
		handlers.NewQuizHandler(client, log),
		hub,
		limiter,
		log,
		"http://localhost:3000",
	)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestRouter_ChaptersFallbackWhenBackendDown(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}, nil)

	resp, err := http.Get(srv.URL + "/api/chapters/Physics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var list models.ChapterList
	json.NewDecoder(resp.Body).Decode(&list)
	if resp.StatusCode != http.StatusOK || len(list.Chapters) != 5 || list.Chapters[4].File != "/api/pdf/Physics/5" {
		t.Fatalf("unexpected response %d %+v", resp.StatusCode, list)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Fatalf("expected CORS header")
	}
}

func TestRouter_QuizAnswerRequiresBearer(t *testing.T) {
	called := false
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	}, nil)

	resp, err := http.Post(srv.URL+"/api/quiz/answer", "application/json", strings.NewReader(`{"messageId":"m","optionId":"a","isCorrect":true}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if called {
		t.Fatal("backend must not be contacted")
	}
}

func TestRouter_ChatRateLimited(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"ok"}`))
	}, middleware.NewRateLimiter(1, time.Minute))

	codes := []int{}
	for i := 0; i < 2; i++ {
		resp, err := http.Post(srv.URL+"/api/chat", "application/json", strings.NewReader(`{"message":"hi"}`))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes %v", codes)
	}
}

func TestRouter_Health(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {}, nil)
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/health", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestRouter_SessionChatEndToEnd(t *testing.T) {
	backendBody := `{"response":"Momentum is mass times velocity.","saved":false,"isQuiz":true,` +
		`"quiz":{"question":"Unit of momentum?","options":[{"id":"a","text":"kg·m/s","isCorrect":true},{"id":"b","text":"N","isCorrect":false}],"explanation":"p = mv"}}`
	var forwarded models.BackendChatRequest
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("no token should be forwarded for a signed-out user")
		}
		json.NewDecoder(r.Body).Decode(&forwarded)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(backendBody))
	}, nil)

	var reveal []func()
	sess := conversation.NewSession(gatewayclient.New(srv.URL, time.Second), nil,
		conversation.WithScheduler(func(d time.Duration, fn func()) func() bool {
			reveal = append(reveal, fn)
			return func() bool { return true }
		}),
	)
	if err := sess.Send(context.Background(), "What is momentum?"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if forwarded.Message != "What is momentum?" {
		t.Fatalf("backend received %+v", forwarded)
	}
	if len(reveal) != 1 {
		t.Fatalf("expected one scheduled quiz, got %d", len(reveal))
	}
	reveal[0]()

	msgs := sess.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected user, text, quiz; got %d messages", len(msgs))
	}
	if msgs[0].Role != conversation.RoleUser || msgs[0].Content != "What is momentum?" {
		t.Fatalf("unexpected first message %+v", msgs[0])
	}
	if msgs[1].Kind != conversation.KindText || msgs[1].Content != "Momentum is mass times velocity." {
		t.Fatalf("expected the explanation text second, got %+v", msgs[1])
	}
	if !msgs[2].IsQuiz() || msgs[2].QuizState.Status != conversation.Unanswered {
		t.Fatalf("expected an unanswered quiz last, got %+v", msgs[2])
	}

	var want struct {
		Quiz models.Quiz `json:"quiz"`
	}
	if err := json.Unmarshal([]byte(backendBody), &want); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(msgs[2].Quiz.Options, want.Quiz.Options) {
		t.Fatalf("options not mirrored:\n got %+v\nwant %+v", msgs[2].Quiz.Options, want.Quiz.Options)
	}
	if msgs[2].Quiz.Explanation != "p = mv" {
		t.Fatalf("explanation lost: %q", msgs[2].Quiz.Explanation)
	}
}
