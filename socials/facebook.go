// Package socials holds the per-platform publish adapters. Each adapter
// takes a composed post plus its connection, performs the platform's HTTP
// publish call, and returns the platform's post id, surfacing the platform's
// own error message verbatim on failure.
package socials

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/MuhammadSohaibRiaz/NexFLow/models"
)

const defaultFacebookBaseURL = "https://graph.facebook.com/v19.0"

// FacebookAdapter posts to the connected Page's feed, or to the photos
// endpoint when the post carries an image.
type FacebookAdapter struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewFacebookAdapter() *FacebookAdapter {
	return &FacebookAdapter{
		BaseURL:    defaultFacebookBaseURL,
		HTTPClient: http.DefaultClient,
	}
}

type facebookResponse struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (a *FacebookAdapter) Publish(ctx context.Context, post *models.Post, conn *models.PlatformConnection) (string, error) {
	pageID := conn.AccountID

	if strings.HasPrefix(post.ImageURL, "http") {
		params := url.Values{}
		params.Set("url", post.ImageURL)
		params.Set("caption", post.Content)
		params.Set("access_token", conn.AccessToken)

		data, err := a.post(ctx, fmt.Sprintf("%s/%s/photos", a.BaseURL, pageID), params)
		if err != nil {
			return "", err
		}
		if data.PostID != "" {
			return data.PostID, nil
		}
		return data.ID, nil
	}

	params := url.Values{}
	params.Set("message", post.Content)
	params.Set("access_token", conn.AccessToken)

	data, err := a.post(ctx, fmt.Sprintf("%s/%s/feed", a.BaseURL, pageID), params)
	if err != nil {
		return "", err
	}
	return data.ID, nil
}

func (a *FacebookAdapter) post(ctx context.Context, endpoint string, params url.Values) (*facebookResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := a.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Facebook request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	var data facebookResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("unexpected Facebook response: %s", string(body))
	}
	if data.Error != nil {
		return nil, fmt.Errorf("%s", data.Error.Message)
	}
	if data.ID == "" && data.PostID == "" {
		return nil, fmt.Errorf("unexpected Facebook response: %s", string(body))
	}
	return &data, nil
}
