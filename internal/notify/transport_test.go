package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTwilioClient_Send(t *testing.T) {
	var gotPath, gotTo, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotTo = r.PostFormValue("To")
		gotBody = r.PostFormValue("Body")
		if user, _, _ := r.BasicAuth(); user != "AC123" {
			t.Errorf("basic auth user = %q", user)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"sid": "SM42", "status": "queued"})
	}))
	defer srv.Close()

	c := NewTwilioClient("AC123", "secret", "+15550001111")
	c.BaseURL = srv.URL

	sid, err := c.Send(context.Background(), "+15552220000", "hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sid != "SM42" {
		t.Fatalf("sid = %q, want SM42", sid)
	}
	if !strings.Contains(gotPath, "/Accounts/AC123/Messages.json") {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotTo != "+15552220000" || gotBody != "hello" {
		t.Fatalf("form To=%q Body=%q", gotTo, gotBody)
	}
}

func TestTwilioClient_SendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"message": "invalid 'To' number", "code": 21211})
	}))
	defer srv.Close()

	c := NewTwilioClient("AC123", "secret", "+15550001111")
	c.BaseURL = srv.URL

	if _, err := c.Send(context.Background(), "bogus", "hello"); err == nil {
		t.Fatal("expected error on 400")
	} else if !strings.Contains(err.Error(), "invalid 'To' number") {
		t.Fatalf("error should carry provider detail, got %v", err)
	}
}

func TestSendGridClient_Send(t *testing.T) {
	var gotAuth string
	var gotPayload sgMail
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		w.Header().Set("X-Message-Id", "msg-7")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewSendGridClient("sg-key", "noreply@sentinel-app.com")
	c.BaseURL = srv.URL

	id, err := c.Send(context.Background(), "to@example.com", "subject", "text", "<p>html</p>")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if id != "msg-7" {
		t.Fatalf("message id = %q, want msg-7", id)
	}
	if gotAuth != "Bearer sg-key" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if len(gotPayload.Personalizations) != 1 || gotPayload.Personalizations[0].To[0].Email != "to@example.com" {
		t.Fatalf("recipient not carried: %+v", gotPayload)
	}
	if gotPayload.From.Email != "noreply@sentinel-app.com" || len(gotPayload.Content) != 2 {
		t.Fatalf("payload shape wrong: %+v", gotPayload)
	}
}

func TestSendGridClient_SendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"message":"bad key"}]}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewSendGridClient("wrong", "noreply@sentinel-app.com")
	c.BaseURL = srv.URL

	if _, err := c.Send(context.Background(), "to@example.com", "s", "t", "h"); err == nil {
		t.Fatal("expected error on 401")
	}
}
