package traffic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"airtrack/internal/services"
)

func TestUploadTakeSendsMultipartAudio(t *testing.T) {
	wav := []byte("RIFF-payload")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/voice/breaks/42/record" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart form: %v", err)
		}
		file, header, err := r.FormFile("audio")
		if err != nil {
			t.Errorf("missing audio part: %v", err)
		} else {
			defer file.Close()
			if header.Filename != "break-42-take.wav" {
				t.Errorf("unexpected filename %q", header.Filename)
			}
		}
		json.NewEncoder(w).Encode(Take{ID: 9, BreakID: 42, TakeNumber: 3, Filename: "break-42-take.wav", DurationSeconds: 12.5})
	}))
	defer server.Close()

	client := NewClientWithDoer(server.URL, "test-token", http.DefaultClient)
	take, err := client.UploadTake(context.Background(), 42, "break-42-take.wav", wav)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if take.ID != 9 || take.BreakID != 42 || take.TakeNumber != 3 {
		t.Fatalf("unexpected take: %#v", take)
	}
}

func TestUploadStandalonePath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/voice/recordings/standalone" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(Take{ID: 4, Filename: "standalone.wav"})
	}))
	defer server.Close()

	client := NewClientWithDoer(server.URL, "", http.DefaultClient)
	take, err := client.UploadStandalone(context.Background(), "standalone.wav", []byte("abc"))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if take.ID != 4 {
		t.Fatalf("unexpected take: %#v", take)
	}
}

func TestListTakes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/voice/breaks/7/takes" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode([]Take{
			{ID: 1, BreakID: 7, TakeNumber: 1},
			{ID: 2, BreakID: 7, TakeNumber: 2, IsSelected: true},
		})
	}))
	defer server.Close()

	client := NewClientWithDoer(server.URL, "token", http.DefaultClient)
	takes, err := client.ListTakes(context.Background(), 7)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(takes) != 2 || !takes[1].IsSelected {
		t.Fatalf("unexpected takes: %#v", takes)
	}
}

func TestSelectTakeUsesPut(t *testing.T) {
	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
	}))
	defer server.Close()

	client := NewClientWithDoer(server.URL, "token", http.DefaultClient)
	if err := client.SelectTake(context.Background(), 31); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if gotMethod != http.MethodPut || gotPath != "/voice/takes/31/select" {
		t.Fatalf("unexpected request %s %s", gotMethod, gotPath)
	}
}

func TestDeleteTake(t *testing.T) {
	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
	}))
	defer server.Close()

	client := NewClientWithDoer(server.URL, "token", http.DefaultClient)
	if err := client.DeleteTake(context.Background(), 31); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/voice/31" {
		t.Fatalf("unexpected request %s %s", gotMethod, gotPath)
	}
}

func TestPushToLibreTime(t *testing.T) {
	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
	}))
	defer server.Close()

	client := NewClientWithDoer(server.URL, "token", http.DefaultClient)
	if err := client.PushToLibreTime(context.Background(), 8); err != nil {
		t.Fatalf("push failed: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/voice/8/upload-to-libretime" {
		t.Fatalf("unexpected request %s %s", gotMethod, gotPath)
	}
}

func TestNotFoundMapsToSentinel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewClientWithDoer(server.URL, "token", http.DefaultClient)
	err := client.SelectTake(context.Background(), 99)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found sentinel, got %v", err)
	}
}

func TestServerErrorIncludesBodyDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "disk full", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClientWithDoer(server.URL, "token", http.DefaultClient)
	_, err := client.UploadTake(context.Background(), 1, "a.wav", []byte("x"))
	if !errors.Is(err, services.ErrUploadFailed) {
		t.Fatalf("expected upload-failed sentinel, got %v", err)
	}
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("error should carry the response detail, got %v", err)
	}
}

func TestUnreachableBackend(t *testing.T) {
	client := NewClientWithDoer("http://127.0.0.1:1", "token", http.DefaultClient)
	_, err := client.ListTakes(context.Background(), 1)
	if !errors.Is(err, services.ErrUploadFailed) {
		t.Fatalf("expected upload-failed sentinel, got %v", err)
	}
}

func TestNoTokenOmitsAuthorization(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode([]Take{})
	}))
	defer server.Close()

	client := NewClientWithDoer(server.URL, "", http.DefaultClient)
	if _, err := client.ListTakes(context.Background(), 2); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if gotAuth != "" {
		t.Fatalf("expected no authorization header, got %q", gotAuth)
	}
}
