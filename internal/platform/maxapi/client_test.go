package maxapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSendKeyboardRequestShape(t *testing.T) {
	var gotPath, gotChat, gotToken string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotChat = r.URL.Query().Get("chat_id")
		gotToken = r.URL.Query().Get("access_token")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", time.Second)
	rows := [][]Button{{CallbackButton("Голова", "symptom_head")}}
	if err := c.SendKeyboard(context.Background(), 77, "Где болит?", rows); err != nil {
		t.Fatalf("SendKeyboard: %v", err)
	}

	if gotPath != "/messages" || gotChat != "77" || gotToken != "tok" {
		t.Fatalf("unexpected request: path=%s chat=%s token=%s", gotPath, gotChat, gotToken)
	}
	if gotBody["text"] != "Где болит?" || gotBody["notify"] != true {
		t.Fatalf("unexpected body: %v", gotBody)
	}
	atts := gotBody["attachments"].([]interface{})
	att := atts[0].(map[string]interface{})
	if att["type"] != "inline_keyboard" {
		t.Fatalf("attachment type: %v", att["type"])
	}
	btn := att["payload"].(map[string]interface{})["buttons"].([]interface{})[0].([]interface{})[0].(map[string]interface{})
	if btn["payload"] != "symptom_head" || btn["type"] != "callback" {
		t.Fatalf("unexpected button: %v", btn)
	}
}

func TestSendMessageSendsEmptyAttachments(t *testing.T) {
	var raw string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		raw = string(b)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", time.Second)
	if err := c.SendMessage(context.Background(), 1, "hi"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if !strings.Contains(raw, `"attachments":[]`) {
		t.Fatalf("expected empty attachments array, got %s", raw)
	}
}

func TestNon2xxBecomesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":"verify.token"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad", time.Second)
	err := c.SendMessage(context.Background(), 1, "hi")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnauthorized || !strings.Contains(apiErr.Body, "verify.token") {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestSendFileUploadsThenAttachesToken(t *testing.T) {
	var srvURL string
	var attached map[string]interface{}
	var uploadedName string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/uploads":
			if r.URL.Query().Get("type") != "file" {
				t.Errorf("upload type: %s", r.URL.Query().Get("type"))
			}
			json.NewEncoder(w).Encode(map[string]string{"url": srvURL + "/upload-target"})
		case "/upload-target":
			_, hdr, err := r.FormFile("data")
			if err != nil {
				t.Errorf("form file: %v", err)
				return
			}
			uploadedName = hdr.Filename
			json.NewEncoder(w).Encode(map[string]string{"token": "file-token"})
		case "/messages":
			json.NewDecoder(r.Body).Decode(&attached)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()
	srvURL = srv.URL

	c := NewClient(srv.URL, "tok", time.Second)
	if err := c.SendFile(context.Background(), 5, "Отчёт", "report.pdf", []byte("%PDF")); err != nil {
		t.Fatalf("SendFile: %v", err)
	}
	if uploadedName != "report.pdf" {
		t.Fatalf("uploaded name: %q", uploadedName)
	}
	att := attached["attachments"].([]interface{})[0].(map[string]interface{})
	if att["type"] != "file" || att["payload"].(map[string]interface{})["token"] != "file-token" {
		t.Fatalf("unexpected attachment: %v", att)
	}
}

func TestSetWebhookAndMe(t *testing.T) {
	var sub subscriptionReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/subscriptions" && r.Method == http.MethodPost:
			json.NewDecoder(r.Body).Decode(&sub)
			w.Write([]byte(`{"success":true}`))
		case r.URL.Path == "/me":
			w.Write([]byte(`{"user_id":9,"first_name":"Health Compass","is_bot":true}`))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", time.Second)
	if err := c.SetWebhook(context.Background(), "https://example.org/webhook", "s"); err != nil {
		t.Fatalf("SetWebhook: %v", err)
	}
	if sub.URL != "https://example.org/webhook" || len(sub.UpdateTypes) != 4 || sub.Secret != "s" {
		t.Fatalf("unexpected subscription: %+v", sub)
	}
	info, err := c.Me(context.Background())
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if info.FirstName != "Health Compass" || !info.IsBot {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestDeleteWebhook(t *testing.T) {
	var method, path, target, token string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		target = r.URL.Query().Get("url")
		token = r.URL.Query().Get("access_token")
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", time.Second)
	if err := c.DeleteWebhook(context.Background(), "https://example.org/webhook"); err != nil {
		t.Fatalf("DeleteWebhook: %v", err)
	}
	if method != http.MethodDelete || path != "/subscriptions" || target != "https://example.org/webhook" || token != "tok" {
		t.Fatalf("unexpected request: %s %s url=%s token=%s", method, path, target, token)
	}
}
