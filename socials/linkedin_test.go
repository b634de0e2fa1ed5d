package socials

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MuhammadSohaibRiaz/NexFLow/models"
)

func linkedInConn(accountID string) *models.PlatformConnection {
	return &models.PlatformConnection{
		Platform:    models.PlatformLinkedIn,
		AccessToken: "li-token",
		AccountID:   accountID,
		IsActive:    true,
	}
}

func TestAuthorURN(t *testing.T) {
	tests := []struct {
		accountID string
		want      string
	}{
		{"aBcD123xyz", "urn:li:person:aBcD123xyz"},
		{"987654", "urn:li:organization:987654"},
		{"", "urn:li:person:"},
	}
	for _, tt := range tests {
		if got := authorURN(tt.accountID); got != tt.want {
			t.Errorf("authorURN(%q) = %q, want %q", tt.accountID, got, tt.want)
		}
	}
}

func TestLinkedInPublishTextPost(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ugcPosts" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("X-Restli-Protocol-Version") != "2.0.0" {
			t.Error("missing Restli protocol header")
		}
		if r.Header.Get("Authorization") != "Bearer li-token" {
			t.Errorf("auth header = %q", r.Header.Get("Authorization"))
		}
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &gotBody)
		w.Write([]byte(`{"id": "urn:li:ugcPost:111"}`))
	}))
	defer server.Close()

	a := NewLinkedInAdapter()
	a.BaseURL = server.URL

	id, err := a.Publish(context.Background(), &models.Post{Content: "Professional update"}, linkedInConn("abc123x"))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if id != "urn:li:ugcPost:111" {
		t.Errorf("post id = %q", id)
	}
	if gotBody["author"] != "urn:li:person:abc123x" {
		t.Errorf("author = %v", gotBody["author"])
	}

	share := gotBody["specificContent"].(map[string]interface{})["com.linkedin.ugc.ShareContent"].(map[string]interface{})
	if share["shareMediaCategory"] != "NONE" {
		t.Errorf("media category = %v, want NONE", share["shareMediaCategory"])
	}
}

func TestLinkedInPublishImagePost(t *testing.T) {
	var uploaded []byte
	mux := http.NewServeMux()
	var server *httptest.Server

	mux.HandleFunc("/assets", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{
			"value": {
				"asset": "urn:li:digitalmediaAsset:222",
				"uploadMechanism": {
					"com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest": {
						"uploadUrl": %q
					}
				}
			}
		}`, server.URL+"/upload")
	})
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("upload method = %s, want PUT", r.Method)
		}
		uploaded, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/image.webp", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("raw-image-bytes"))
	})
	mux.HandleFunc("/ugcPosts", func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		json.Unmarshal(data, &body)
		share := body["specificContent"].(map[string]interface{})["com.linkedin.ugc.ShareContent"].(map[string]interface{})
		if share["shareMediaCategory"] != "IMAGE" {
			t.Errorf("media category = %v, want IMAGE", share["shareMediaCategory"])
		}
		media := share["media"].([]interface{})[0].(map[string]interface{})
		if media["media"] != "urn:li:digitalmediaAsset:222" {
			t.Errorf("attached asset = %v", media["media"])
		}
		w.Write([]byte(`{"id": "urn:li:ugcPost:333"}`))
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	a := NewLinkedInAdapter()
	a.BaseURL = server.URL

	post := &models.Post{Content: "With image", ImageURL: server.URL + "/image.webp"}
	id, err := a.Publish(context.Background(), post, linkedInConn("abc"))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if id != "urn:li:ugcPost:333" {
		t.Errorf("post id = %q", id)
	}
	if string(uploaded) != "raw-image-bytes" {
		t.Errorf("uploaded bytes = %q", uploaded)
	}
}

func TestLinkedInMediaFailureDegradesToText(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/assets", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message": "upload service unavailable"}`))
	})
	mux.HandleFunc("/ugcPosts", func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		json.Unmarshal(data, &body)
		share := body["specificContent"].(map[string]interface{})["com.linkedin.ugc.ShareContent"].(map[string]interface{})
		if share["shareMediaCategory"] != "NONE" {
			t.Errorf("media category = %v, want NONE after upload failure", share["shareMediaCategory"])
		}
		w.Write([]byte(`{"id": "urn:li:ugcPost:444"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	a := NewLinkedInAdapter()
	a.BaseURL = server.URL

	post := &models.Post{Content: "Image broke", ImageURL: "https://cdn.example.com/gone.webp"}
	id, err := a.Publish(context.Background(), post, linkedInConn("abc"))
	if err != nil {
		t.Fatalf("Publish should degrade, got error: %v", err)
	}
	if id != "urn:li:ugcPost:444" {
		t.Errorf("post id = %q", id)
	}
}

func TestLinkedInPublishSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message": "Invalid access token", "status": 401}`))
	}))
	defer server.Close()

	a := NewLinkedInAdapter()
	a.BaseURL = server.URL

	_, err := a.Publish(context.Background(), &models.Post{Content: "x"}, linkedInConn("abc"))
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "Invalid access token" {
		t.Errorf("error = %q, want platform message verbatim", err)
	}
}
