package api_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gosse "github.com/tmaxmax/go-sse"

	"github.com/cvscreener/cvchat/internal/api"
	"github.com/cvscreener/cvchat/internal/models"
	"github.com/cvscreener/cvchat/internal/sse"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.Handler) api.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return api.NewClient(srv.URL, testLogger())
}

func TestCreateUser(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"user_id": 7, "name": body.Name})
	})

	client := newTestClient(t, mux)
	user, err := client.CreateUser(context.Background(), "ada")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if user.ID != 7 || user.Name != "ada" {
		t.Errorf("CreateUser() = %+v", user)
	}
}

func TestCreateUserConflictCarriesExistingIdentity(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"detail": map[string]any{
				"message": "User already exists",
				"user_id": 42,
				"name":    "ada",
			},
		})
	})

	client := newTestClient(t, mux)
	_, err := client.CreateUser(context.Background(), "ada")
	if err == nil {
		t.Fatal("CreateUser() error = nil, want conflict")
	}

	existing, ok := api.ExistingUser(err)
	if !ok {
		t.Fatalf("ExistingUser(%v) = false, want existing identity", err)
	}
	if existing.ID != 42 || existing.Name != "ada" {
		t.Errorf("ExistingUser() = %+v, want id 42", existing)
	}
}

func TestExistingUserRejectsOtherErrors(t *testing.T) {
	if _, ok := api.ExistingUser(io.ErrUnexpectedEOF); ok {
		t.Error("ExistingUser() accepted a non-API error")
	}
	if _, ok := api.ExistingUser(&api.APIError{Status: http.StatusUnauthorized, Detail: []byte(`"bad token"`)}); ok {
		t.Error("ExistingUser() accepted a conflict without a user id")
	}
}

func TestGetThreadNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/threads/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"detail": "Thread not found"})
	})

	client := newTestClient(t, mux)
	_, err := client.GetThread(context.Background(), "gone")
	if !api.IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false, want true", err)
	}
	if err != nil && !strings.Contains(err.Error(), "Thread not found") {
		t.Errorf("error message = %q, want backend detail", err.Error())
	}
}

func TestGetThreadMapsMessages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/threads/t1", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"thread_id": "t1",
			"user_id":   7,
			"messages": []map[string]any{
				{"id": "m1", "role": "user", "content": "hi", "created_at": "2026-01-01T00:00:00Z"},
				{"id": "m2", "role": "assistant", "content": "hello", "created_at": "2026-01-01T00:00:01Z"},
			},
		})
	})

	client := newTestClient(t, mux)
	thread, err := client.GetThread(context.Background(), "t1")
	if err != nil {
		t.Fatalf("GetThread() error = %v", err)
	}
	if thread.ID != "t1" || thread.UserID != "7" {
		t.Errorf("thread = %+v", thread)
	}
	if len(thread.Messages) != 2 || thread.Messages[1].Role != models.RoleAssistant {
		t.Errorf("messages = %+v", thread.Messages)
	}
}

func TestPostMessage(t *testing.T) {
	tests := []struct {
		name     string
		response map[string]any
		wantErr  bool
	}{
		{
			name:     "run id returned",
			response: map[string]any{"run_id": "r1"},
		},
		{
			name:     "missing run id is a hard error",
			response: map[string]any{"ok": true},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/threads/t1/messages", func(w http.ResponseWriter, _ *http.Request) {
				_ = json.NewEncoder(w).Encode(tt.response)
			})

			client := newTestClient(t, mux)
			runID, err := client.PostMessage(context.Background(), "t1", "ping")
			if tt.wantErr {
				if err == nil {
					t.Error("PostMessage() error = nil, want hard error")
				}
				return
			}
			if err != nil {
				t.Fatalf("PostMessage() error = %v", err)
			}
			if runID != "r1" {
				t.Errorf("runID = %q, want %q", runID, "r1")
			}
		})
	}
}

func TestGetRunToleratesNullFields(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/runs/r1", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"run_id": "r1", "thread_id": "t1", "status": "queued",
			"created_at": "2026-01-01T00:00:00Z",
			"started_at": null, "finished_at": null, "error": null
		}`))
	})

	client := newTestClient(t, mux)
	run, err := client.GetRun(context.Background(), "r1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if run.Status != models.RunQueued || run.StartedAt != "" || run.Error != "" {
		t.Errorf("run = %+v", run)
	}
	if run.Terminal() {
		t.Error("queued run reported as terminal")
	}
}

func TestOpenRunEventsRejectsFailureStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/runs/r1/events", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"detail": "Run not found"})
	})

	client := newTestClient(t, mux)
	if _, err := client.OpenRunEvents(context.Background(), "r1"); !api.IsNotFound(err) {
		t.Errorf("OpenRunEvents() error = %v, want not-found", err)
	}
}

func TestOpenRunEventsStreamsFrames(t *testing.T) {
	connected := make(chan struct{}, 1)
	sseSrv := &gosse.Server{
		OnSession: func(s *gosse.Session) (gosse.Subscription, bool) {
			select {
			case connected <- struct{}{}:
			default:
			}
			return gosse.Subscription{
				Client:      s,
				LastEventID: s.LastEventID,
				Topics:      []string{gosse.DefaultTopic},
			}, true
		},
	}

	mux := http.NewServeMux()
	mux.Handle("/runs/r1/events", sseSrv)
	client := newTestClient(t, mux)

	go func() {
		select {
		case <-connected:
		case <-time.After(2 * time.Second):
			return
		}
		// The subscriber is registered shortly after the session callback
		// fires; give the server a moment before publishing.
		time.Sleep(100 * time.Millisecond)
		publish := func(event, data string) {
			msg := &gosse.Message{Type: gosse.Type(event)}
			msg.AppendData(data)
			_ = sseSrv.Publish(msg)
		}
		publish("token", `{"text":"pon"}`)
		publish("token", `{"text":"g"}`)
		publish("final", `{"text":"pong","sources":["cv42"]}`)
		publish("done", `{"status":"done"}`)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	body, err := client.OpenRunEvents(ctx, "r1")
	if err != nil {
		t.Fatalf("OpenRunEvents() error = %v", err)
	}
	defer body.Close()

	var frames []sse.Frame
	for frame, err := range sse.Read(body) {
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		frames = append(frames, frame)
		if frame.Event == "done" {
			break
		}
	}

	if len(frames) != 4 {
		t.Fatalf("received %d frames, want 4: %+v", len(frames), frames)
	}
	if frames[0].Event != "token" || frames[0].Data != `{"text":"pon"}` {
		t.Errorf("first frame = %+v", frames[0])
	}
	if frames[2].Event != "final" || !strings.Contains(frames[2].Data, "cv42") {
		t.Errorf("final frame = %+v", frames[2])
	}
}
