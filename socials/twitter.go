package socials

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/MuhammadSohaibRiaz/NexFLow/models"
	"golang.org/x/oauth2"
)

const (
	defaultTwitterAPIBaseURL    = "https://api.twitter.com"
	defaultTwitterUploadBaseURL = "https://upload.twitter.com"

	// Refresh the access token when it expires within this margin.
	twitterRefreshMargin = 5 * time.Minute
)

// TokenStore persists a rotated OAuth token back onto the connection row.
type TokenStore interface {
	UpdateConnectionToken(ctx context.Context, id uint, accessToken, refreshToken string, expiresAt time.Time) error
}

// TwitterAdapter creates tweets through the v2 API. It owns the OAuth
// refresh-token exchange: a token expiring within five minutes is refreshed
// and the rotated credentials are written back before posting. Image posts
// upload binary media through the legacy upload endpoint first; upload
// failures degrade to a text-only tweet.
type TwitterAdapter struct {
	APIBaseURL    string
	UploadBaseURL string
	TokenURL      string
	HTTPClient    *http.Client

	ClientID     string
	ClientSecret string
	Tokens       TokenStore

	now func() time.Time
}

func NewTwitterAdapter(clientID, clientSecret string, tokens TokenStore) *TwitterAdapter {
	return &TwitterAdapter{
		APIBaseURL:    defaultTwitterAPIBaseURL,
		UploadBaseURL: defaultTwitterUploadBaseURL,
		TokenURL:      defaultTwitterAPIBaseURL + "/2/oauth2/token",
		HTTPClient:    http.DefaultClient,
		ClientID:      clientID,
		ClientSecret:  clientSecret,
		Tokens:        tokens,
		now:           time.Now,
	}
}

type tweetRequest struct {
	Text  string `json:"text"`
	Media *struct {
		MediaIDs []string `json:"media_ids"`
	} `json:"media,omitempty"`
}

type tweetResponse struct {
	Data *struct {
		ID string `json:"id"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (a *TwitterAdapter) Publish(ctx context.Context, post *models.Post, conn *models.PlatformConnection) (string, error) {
	accessToken := conn.AccessToken

	if conn.TokenExpiringWithin(twitterRefreshMargin, a.now()) {
		refreshed, err := a.refreshToken(ctx, conn)
		if err != nil {
			return "", fmt.Errorf("Twitter token refresh failed: %w", err)
		}
		accessToken = refreshed
	}

	body := tweetRequest{Text: post.Content}

	if post.ImageURL != "" {
		mediaID, err := a.uploadMedia(ctx, accessToken, post.ImageURL)
		if err != nil {
			log.Printf("[Twitter] Media upload failed, posting text-only: %v", err)
		} else {
			body.Media = &struct {
				MediaIDs []string `json:"media_ids"`
			}{MediaIDs: []string{mediaID}}
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.APIBaseURL+"/2/tweets", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	res, err := a.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("Twitter request failed: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}

	var parsed tweetResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("unexpected Twitter response: %s", string(data))
	}
	if len(parsed.Errors) > 0 {
		return "", fmt.Errorf("Twitter API Error: %s", parsed.Errors[0].Message)
	}
	if parsed.Data == nil || parsed.Data.ID == "" {
		return "", fmt.Errorf("unexpected Twitter response: %s", string(data))
	}

	return parsed.Data.ID, nil
}

// refreshToken exchanges the connection's refresh token for a fresh access
// token and persists the rotation.
func (a *TwitterAdapter) refreshToken(ctx context.Context, conn *models.PlatformConnection) (string, error) {
	if conn.RefreshToken == "" {
		return "", fmt.Errorf("no refresh token available")
	}

	conf := &oauth2.Config{
		ClientID:     a.ClientID,
		ClientSecret: a.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  a.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.HTTPClient)
	token, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: conn.RefreshToken}).Token()
	if err != nil {
		return "", err
	}

	refreshToken := token.RefreshToken
	if refreshToken == "" {
		refreshToken = conn.RefreshToken
	}

	if err := a.Tokens.UpdateConnectionToken(ctx, conn.ID, token.AccessToken, refreshToken, token.Expiry); err != nil {
		return "", fmt.Errorf("failed to persist refreshed token: %w", err)
	}

	conn.AccessToken = token.AccessToken
	conn.RefreshToken = refreshToken
	expiry := token.Expiry
	conn.TokenExpiresAt = &expiry

	return token.AccessToken, nil
}

// uploadMedia downloads the stored image and uploads it through the legacy
// v1.1 media endpoint, returning the media id to attach.
func (a *TwitterAdapter) uploadMedia(ctx context.Context, accessToken, imageURL string) (string, error) {
	imageData, err := a.download(ctx, imageURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch image: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("media", "image")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(imageData); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.UploadBaseURL+"/1.1/media/upload.json", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	res, err := a.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	if res.StatusCode >= 300 {
		return "", fmt.Errorf("media upload returned %d: %s", res.StatusCode, string(data))
	}

	var parsed struct {
		MediaIDString string `json:"media_id_string"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil || parsed.MediaIDString == "" {
		return "", fmt.Errorf("unexpected upload response: %s", string(data))
	}
	return parsed.MediaIDString, nil
}

func (a *TwitterAdapter) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	res, err := a.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image fetch returned %d", res.StatusCode)
	}
	return io.ReadAll(res.Body)
}
