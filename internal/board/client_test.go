package board

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClientLoginStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var creds map[string]string
		json.NewDecoder(r.Body).Decode(&creds)
		if creds["email"] != "admin@example.com" {
			t.Errorf("email = %q", creds["email"])
		}
		json.NewEncoder(w).Encode(map[string]string{
			"id": "u1", "name": "Admin", "email": creds["email"], "token": "tok-123",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, quietLogger())
	if err := client.Login(context.Background(), "admin@example.com", "password123"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if client.token != "tok-123" {
		t.Errorf("token = %q, want tok-123", client.token)
	}
}

func TestClientSendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, quietLogger())
	client.SetToken("tok-456")
	if _, err := client.ListOrders(context.Background(), ListOptions{}); err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if gotAuth != "Bearer tok-456" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestClientListOrdersQueryParams(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, quietLogger())
	_, err := client.ListOrders(context.Background(), ListOptions{Search: "alice", Status: "new"})
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if !strings.Contains(gotQuery, "search=alice") || !strings.Contains(gotQuery, "status=new") {
		t.Errorf("query = %q", gotQuery)
	}
}

func TestClientMapsErrorStatuses(t *testing.T) {
	tests := []struct {
		code    int
		message string
		want    error
	}{
		{http.StatusUnauthorized, "Not authorized, token failed", ErrUnauthorized},
		{http.StatusNotFound, "Order not found", ErrNotFound},
		{http.StatusConflict, "Order ID already exists", ErrConflict},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.code)
			json.NewEncoder(w).Encode(map[string]string{"message": tt.message})
		}))

		client := NewClient(srv.URL, quietLogger())
		_, err := client.ListOrders(context.Background(), ListOptions{})
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: err = %v, want %v", tt.code, err, tt.want)
		}
		if err == nil || !strings.Contains(err.Error(), tt.message) {
			t.Errorf("status %d: error %v lost server message %q", tt.code, err, tt.message)
		}
		srv.Close()
	}
}

func TestClientUploadSendsMultipartFiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		files := r.MultipartForm.File["files"]
		if len(files) != 2 {
			t.Errorf("got %d files, want 2", len(files))
		}
		json.NewEncoder(w).Encode([]string{"/files/a", "/files/b"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, quietLogger())
	locators, err := client.Upload(context.Background(), map[string]io.Reader{
		"sketch.png":   strings.NewReader("png bytes"),
		"measures.pdf": strings.NewReader("pdf bytes"),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if len(locators) != 2 {
		t.Errorf("locators = %v", locators)
	}
}
