package wallet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRemoteExecute(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(`{"transaction_hash":"0xabc"}`))
	}))
	defer srv.Close()

	remote := NewRemote(srv.URL, "0xdeadbeef", "0xgame")
	hash, err := remote.Execute(context.Background(), "move", []string{"0x3039", "0x1"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if hash != "0xabc" {
		t.Fatalf("hash = %q, want 0xabc", hash)
	}
	if gotPath != "/execute" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotBody["entrypoint"] != "move" || gotBody["contract_address"] != "0xgame" {
		t.Fatalf("body = %+v", gotBody)
	}
}

func TestRemoteExecute_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "session expired", http.StatusUnauthorized)
	}))
	defer srv.Close()

	remote := NewRemote(srv.URL, "0xdeadbeef", "0xgame")
	if _, err := remote.Execute(context.Background(), "move", nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestRemoteExecute_MissingHash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	remote := NewRemote(srv.URL, "0xdeadbeef", "0xgame")
	if _, err := remote.Execute(context.Background(), "fight", nil); err == nil {
		t.Fatal("expected error for missing transaction_hash")
	}
}

func TestRemoteAddress(t *testing.T) {
	remote := NewRemote("http://localhost:9999", "0xdeadbeef", "0xgame")
	if remote.Address() != "0xdeadbeef" {
		t.Fatalf("address = %q", remote.Address())
	}
}
