package socials

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/MuhammadSohaibRiaz/NexFLow/models"
)

const defaultLinkedInBaseURL = "https://api.linkedin.com/v2"

// LinkedInAdapter creates UGC shares, posting as a person or an organization
// depending on the stored account id. Image posts run a three-step media
// registration/upload/attach sequence; a media failure degrades the share to
// text-only instead of aborting.
type LinkedInAdapter struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewLinkedInAdapter() *LinkedInAdapter {
	return &LinkedInAdapter{
		BaseURL:    defaultLinkedInBaseURL,
		HTTPClient: http.DefaultClient,
	}
}

func (a *LinkedInAdapter) Publish(ctx context.Context, post *models.Post, conn *models.PlatformConnection) (string, error) {
	author := authorURN(conn.AccountID)

	var asset string
	if post.ImageURL != "" {
		uploaded, err := a.uploadImage(ctx, author, conn.AccessToken, post.ImageURL)
		if err != nil {
			log.Printf("[LinkedIn] Media upload failed, posting text-only: %v", err)
		} else {
			asset = uploaded
		}
	}

	body := map[string]interface{}{
		"author":         author,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]interface{}{
			"com.linkedin.ugc.ShareContent": shareContent(post.Content, asset),
		},
		"visibility": map[string]interface{}{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	data, err := a.postJSON(ctx, a.BaseURL+"/ugcPosts", conn.AccessToken, body)
	if err != nil {
		return "", err
	}

	var parsed struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil || parsed.ID == "" {
		return "", fmt.Errorf("unexpected LinkedIn response: %s", string(data))
	}
	return parsed.ID, nil
}

// authorURN maps a numeric account id to an organization URN and anything
// else to a person URN.
func authorURN(accountID string) string {
	if isNumeric(accountID) {
		return "urn:li:organization:" + accountID
	}
	return "urn:li:person:" + accountID
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func shareContent(text, asset string) map[string]interface{} {
	content := map[string]interface{}{
		"shareCommentary": map[string]string{
			"text": text,
		},
		"shareMediaCategory": "NONE",
	}
	if asset != "" {
		content["shareMediaCategory"] = "IMAGE"
		content["media"] = []map[string]interface{}{
			{
				"status": "READY",
				"media":  asset,
			},
		}
	}
	return content
}

// uploadImage runs the registerUpload/upload pair and returns the asset URN
// to attach.
func (a *LinkedInAdapter) uploadImage(ctx context.Context, author, accessToken, imageURL string) (string, error) {
	register := map[string]interface{}{
		"registerUploadRequest": map[string]interface{}{
			"recipes": []string{"urn:li:digitalmediaRecipe:feedshare-image"},
			"owner":   author,
			"serviceRelationships": []map[string]string{
				{
					"relationshipType": "OWNER",
					"identifier":       "urn:li:userGeneratedContent",
				},
			},
		},
	}

	data, err := a.postJSON(ctx, a.BaseURL+"/assets?action=registerUpload", accessToken, register)
	if err != nil {
		return "", fmt.Errorf("media registration failed: %w", err)
	}

	var reg struct {
		Value struct {
			Asset           string `json:"asset"`
			UploadMechanism struct {
				MediaUploadHTTPRequest struct {
					UploadURL string `json:"uploadUrl"`
				} `json:"com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest"`
			} `json:"uploadMechanism"`
		} `json:"value"`
	}
	if err := json.Unmarshal(data, &reg); err != nil {
		return "", fmt.Errorf("unexpected registration response: %s", string(data))
	}
	uploadURL := reg.Value.UploadMechanism.MediaUploadHTTPRequest.UploadURL
	if uploadURL == "" || reg.Value.Asset == "" {
		return "", fmt.Errorf("unexpected registration response: %s", string(data))
	}

	imageData, err := a.download(ctx, imageURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch image: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(imageData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	res, err := a.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("media upload failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return "", fmt.Errorf("media upload failed: %d %s", res.StatusCode, string(body))
	}

	return reg.Value.Asset, nil
}

func (a *LinkedInAdapter) postJSON(ctx context.Context, endpoint, accessToken string, body interface{}) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	res, err := a.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("LinkedIn request failed: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	if res.StatusCode >= 300 {
		var apiErr struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("%s", apiErr.Message)
		}
		return nil, fmt.Errorf("%s", string(data))
	}

	return data, nil
}

func (a *LinkedInAdapter) download(ctx context.Context, url string) ([]byte, error) {
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
