package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"auto_linkedin_post_publisher/logging"
)

const (
	registerUploadPath = "/v2/assets?action=registerUpload"
	ugcPostsPath       = "/v2/ugcPosts"

	feedshareImageRecipe = "urn:li:digitalmediaRecipe:feedshare-image"
	maxImageBytes        = 10 << 20
)

// Config holds the LinkedIn credentials.
type Config struct {
	AccessToken string
	AuthorURN   string
	BaseURL     string
}

// APIError is a non-2xx answer from one publishing step.
type APIError struct {
	Step       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("linkedin %s: status %d: %s", e.Step, e.StatusCode, e.Body)
}

type registerUploadReq struct {
	RegisterUploadRequest registerUploadBody `json:"registerUploadRequest"`
}

type registerUploadBody struct {
	Recipes              []string              `json:"recipes"`
	Owner                string                `json:"owner"`
	ServiceRelationships []serviceRelationship `json:"serviceRelationships"`
}

type serviceRelationship struct {
	RelationshipType string `json:"relationshipType"`
	Identifier       string `json:"identifier"`
}

type registerUploadResp struct {
	Value struct {
		UploadMechanism struct {
			HTTPRequest struct {
				UploadURL string `json:"uploadUrl"`
			} `json:"com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest"`
		} `json:"uploadMechanism"`
		Asset string `json:"asset"`
	} `json:"value"`
}

type ugcPost struct {
	Author          string            `json:"author"`
	LifecycleState  string            `json:"lifecycleState"`
	SpecificContent specificContent   `json:"specificContent"`
	Visibility      map[string]string `json:"visibility"`
}

type specificContent struct {
	ShareContent shareContent `json:"com.linkedin.ugc.ShareContent"`
}

type shareContent struct {
	ShareCommentary    shareText    `json:"shareCommentary"`
	ShareMediaCategory string       `json:"shareMediaCategory"`
	Media              []shareMedia `json:"media,omitempty"`
}

type shareText struct {
	Text string `json:"text"`
}

type shareMedia struct {
	Status string `json:"status"`
	Media  string `json:"media"`
}

type ugcPostResp struct {
	ID string `json:"id"`
}

// LinkedIn publishes posts in two phases: the image is registered and uploaded
// as an asset, then a post referencing the asset is created.
type LinkedIn struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

func New(cfg Config, client *http.Client, logger *slog.Logger) (*LinkedIn, error) {
	if cfg.AccessToken == "" || cfg.AuthorURN == "" {
		return nil, errors.New("linkedin access token and author urn are required")
	}
	if !strings.HasPrefix(cfg.AuthorURN, "urn:li:") {
		return nil, fmt.Errorf("linkedin author %q is not a urn", cfg.AuthorURN)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.linkedin.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &LinkedIn{cfg: cfg, client: client, logger: logging.OrDefault(logger, "publisher")}, nil
}

// Publish posts text with image and returns the post id. image is an http(s)
// URL or a local file path; empty means a text-only post.
func (p *LinkedIn) Publish(ctx context.Context, text, image string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errors.New("post text is required")
	}

	content := shareContent{
		ShareCommentary:    shareText{Text: text},
		ShareMediaCategory: "NONE",
	}
	if image != "" {
		data, ctype, err := p.readImage(ctx, image)
		if err != nil {
			return "", err
		}
		p.logger.Debug("image loaded", "source", image, "bytes", len(data), "content_type", ctype)

		uploadURL, asset, err := p.registerUpload(ctx)
		if err != nil {
			return "", err
		}
		if err := p.uploadBinary(ctx, uploadURL, data, ctype); err != nil {
			return "", err
		}
		p.logger.Info("image uploaded", "asset", asset)

		content.ShareMediaCategory = "IMAGE"
		content.Media = []shareMedia{{Status: "READY", Media: asset}}
	}

	postID, err := p.createPost(ctx, content)
	if err != nil {
		return "", err
	}
	p.logger.Info("post created", "post_id", postID)
	return postID, nil
}

func (p *LinkedIn) readImage(ctx context.Context, image string) ([]byte, string, error) {
	if !strings.HasPrefix(image, "http://") && !strings.HasPrefix(image, "https://") {
		data, err := os.ReadFile(image)
		if err != nil {
			return nil, "", err
		}
		return data, http.DetectContentType(data), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, image, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, "", &APIError{Step: "image download", StatusCode: resp.StatusCode, Body: image}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("download image: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, "", fmt.Errorf("image %s exceeds %d bytes", image, maxImageBytes)
	}
	ctype := resp.Header.Get("Content-Type")
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	return data, ctype, nil
}

func (p *LinkedIn) registerUpload(ctx context.Context) (uploadURL, asset string, err error) {
	body := registerUploadReq{RegisterUploadRequest: registerUploadBody{
		Recipes: []string{feedshareImageRecipe},
		Owner:   p.cfg.AuthorURN,
		ServiceRelationships: []serviceRelationship{{
			RelationshipType: "OWNER",
			Identifier:       "urn:li:userGeneratedContent",
		}},
	}}
	var data registerUploadResp
	if _, err := p.postJSON(ctx, "register upload", registerUploadPath, body, &data); err != nil {
		return "", "", err
	}
	uploadURL = data.Value.UploadMechanism.HTTPRequest.UploadURL
	if uploadURL == "" || data.Value.Asset == "" {
		return "", "", errors.New("linkedin register upload: missing upload url or asset")
	}
	return uploadURL, data.Value.Asset, nil
}

func (p *LinkedIn) uploadBinary(ctx context.Context, uploadURL string, data []byte, ctype string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.AccessToken)
	req.Header.Set("Content-Type", ctype)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("linkedin upload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{Step: "upload", StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return nil
}

func (p *LinkedIn) createPost(ctx context.Context, content shareContent) (string, error) {
	post := ugcPost{
		Author:          p.cfg.AuthorURN,
		LifecycleState:  "PUBLISHED",
		SpecificContent: specificContent{ShareContent: content},
		Visibility:      map[string]string{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	}
	var data ugcPostResp
	header, err := p.postJSON(ctx, "create post", ugcPostsPath, post, &data)
	if err != nil {
		return "", err
	}
	if id := header.Get("X-RestLi-Id"); id != "" {
		return id, nil
	}
	if data.ID == "" {
		return "", errors.New("linkedin create post: response carried no post id")
	}
	return data.ID, nil
}

func (p *LinkedIn) postJSON(ctx context.Context, step, path string, in, out any) (http.Header, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("linkedin %s: %w", step, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("linkedin %s: %w", step, err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, &APIError{Step: step, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if len(bytes.TrimSpace(raw)) > 0 && out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, fmt.Errorf("linkedin %s: decode: %w", step, err)
		}
	}
	return resp.Header, nil
}
