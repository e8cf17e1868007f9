package scoringhttp

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestScorePostsMultipartWithBearer(t *testing.T) {
	var gotAuth string
	var gotField []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			gotField, _ = io.ReadAll(file)
			_ = file.Close()
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"score": 0.9}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "topsecret", "image", 5*time.Second)
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	score, err := client.Score(context.Background(), []byte("fake-jpeg"), "photo.jpg")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if score != 0.9 {
		t.Fatalf("expected score 0.9, got %v", score)
	}
	if gotAuth != "Bearer topsecret" {
		t.Fatalf("unexpected authorization header %q", gotAuth)
	}
	if string(gotField) != "fake-jpeg" {
		t.Fatalf("unexpected uploaded bytes %q", gotField)
	}
}

func TestScoreRejectsBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "", "image", 5*time.Second)
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	_, err = client.Score(context.Background(), []byte("x"), "")
	if err == nil {
		t.Fatal("expected error on 503")
	}

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %T", err)
	}
	if reqErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", reqErr.StatusCode)
	}
}

func TestNewClientValidatesURL(t *testing.T) {
	if _, err := NewClient("", "", "image", time.Second); err == nil {
		t.Fatal("expected error for empty url")
	}
	if _, err := NewClient("not a url", "", "image", time.Second); err == nil {
		t.Fatal("expected error for invalid url")
	}
}

func TestParseScoreShapes(t *testing.T) {
	testCases := []struct {
		name    string
		payload string
		want    float64
		wantErr bool
	}{
		{name: "score field", payload: `{"score": 0.72}`, want: 0.72},
		{name: "prediction synonym", payload: `{"prediction": 0.4}`, want: 0.4},
		{name: "nsfw synonym", payload: `{"nsfw": 0.91}`, want: 0.91},
		{name: "clamped above one", payload: `{"score": 3.2}`, want: 1},
		{name: "clamped below zero", payload: `{"score": -0.5}`, want: 0},
		{
			name:    "label pairs max of vocabulary",
			payload: `[{"label":"safe","score":0.8},{"label":"porn","score":0.3},{"label":"hentai","score":0.6}]`,
			want:    0.6,
		},
		{
			name:    "label case insensitive",
			payload: `[{"label":"NSFW","score":0.55}]`,
			want:    0.55,
		},
		{
			name:    "only safe labels means not nsfw",
			payload: `[{"label":"safe","score":0.99}]`,
			want:    0,
		},
		{
			name:    "nested predictions list",
			payload: `{"predictions":[{"label":"explicit","score":0.7}]}`,
			want:    0.7,
		},
		{name: "string score", payload: `{"score": "high"}`, wantErr: true},
		{name: "unknown object", payload: `{"verdict": 0.9}`, wantErr: true},
		{name: "unlabeled list", payload: `[{"foo": 1}]`, wantErr: true},
		{name: "empty list", payload: `[]`, wantErr: true},
		{name: "empty body", payload: ``, wantErr: true},
		{name: "plain number", payload: `0.5`, wantErr: true},
		{name: "garbage", payload: `<html>`, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseScore([]byte(tc.payload))
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected parse error, got score %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}
