// Package instagram publishes articles to Instagram through the Graph API
// two-step flow: create a media container, then publish it.
package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pressline/pressline/pkg/models"
	"github.com/pressline/pressline/pkg/publisher"
)

const platformKey = "instagram"

const defaultGraphAPIBase = "https://graph.facebook.com/v18.0"

// Captions above this length get truncated, leaving room for hashtags.
const maxCaptionLength = 1800

const configSchema = `{
	"type": "object",
	"properties": {
		"access_token": {
			"type": "string"
		},
		"business_account_id": {
			"type": "string"
		},
		"hashtags": {
			"type": "array",
			"items": {"type": "string"}
		},
		"graph_api_base": {
			"type": "string",
			"description": "Override for tests"
		}
	},
	"required": ["access_token", "business_account_id"],
	"additionalProperties": true
}`

// Adapter implements publisher.Adapter for Instagram.
type Adapter struct {
	client *http.Client
	logger *slog.Logger

	// The Graph API has no idempotency primitive, so published tokens are
	// remembered in-process to suppress duplicate containers on retry.
	published sync.Map // idempotency token -> external ref
}

// NewAdapter creates an Instagram adapter.
func NewAdapter(client *http.Client, logger *slog.Logger) *Adapter {
	if client == nil {
		client = http.DefaultClient
	}

	return &Adapter{
		client: client,
		logger: logger.With("module", "instagram_adapter"),
	}
}

func (a *Adapter) ID() string {
	return platformKey
}

func (a *Adapter) Validate(_ context.Context, config map[string]any) error {
	return publisher.ValidateConfig(platformKey, configSchema, config)
}

func (a *Adapter) Publish(ctx context.Context, article *models.Article, config map[string]any, idempotencyToken string) (*publisher.Outcome, error) {
	if ref, ok := a.published.Load(idempotencyToken); ok {
		a.logger.InfoContext(ctx, "Token already published, suppressing duplicate",
			"token", idempotencyToken)

		return &publisher.Outcome{ExternalRef: ref.(string)}, nil
	}

	imageURL := article.FeaturedImage()
	if imageURL == "" {
		return nil, publisher.NewPermanentError(platformKey, fmt.Errorf("article has no media reference; instagram requires an image"))
	}

	accessToken, _ := config["access_token"].(string)
	accountID, _ := config["business_account_id"].(string)

	apiBase := defaultGraphAPIBase
	if override, ok := config["graph_api_base"].(string); ok && override != "" {
		apiBase = strings.TrimSuffix(override, "/")
	}

	containerID, err := a.createContainer(ctx, apiBase, accountID, accessToken, imageURL, buildCaption(article, config))
	if err != nil {
		return nil, err
	}

	mediaID, err := a.publishContainer(ctx, apiBase, accountID, accessToken, containerID)
	if err != nil {
		return nil, err
	}

	a.published.Store(idempotencyToken, mediaID)

	return &publisher.Outcome{ExternalRef: mediaID}, nil
}

func (a *Adapter) createContainer(ctx context.Context, apiBase, accountID, accessToken, imageURL, caption string) (string, error) {
	form := url.Values{}
	form.Set("image_url", imageURL)
	form.Set("caption", caption)
	form.Set("access_token", accessToken)

	return a.post(ctx, fmt.Sprintf("%s/%s/media", apiBase, accountID), form)
}

func (a *Adapter) publishContainer(ctx context.Context, apiBase, accountID, accessToken, containerID string) (string, error) {
	form := url.Values{}
	form.Set("creation_id", containerID)
	form.Set("access_token", accessToken)

	return a.post(ctx, fmt.Sprintf("%s/%s/media_publish", apiBase, accountID), form)
}

func (a *Adapter) post(ctx context.Context, endpoint string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", publisher.NewPermanentError(platformKey, err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", publisher.NewTransientError(platformKey, err)
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", publisher.FromStatusCode(platformKey, resp.StatusCode, string(payload))
	}

	var result struct {
		ID string `json:"id"`
	}

	if err := json.Unmarshal(payload, &result); err != nil {
		return "", publisher.NewPermanentError(platformKey, fmt.Errorf("unexpected response body: %w", err))
	}

	if result.ID == "" {
		return "", publisher.NewPermanentError(platformKey, fmt.Errorf("response missing id: %s", payload))
	}

	return result.ID, nil
}

// buildCaption assembles the caption from the article title and opening, then
// appends configured hashtags.
func buildCaption(article *models.Article, config map[string]any) string {
	caption := article.Title

	if body := strings.TrimSpace(article.Body); body != "" {
		intro, _, _ := strings.Cut(body, "\n\n")
		caption += "\n\n" + intro
	}

	if len(caption) > maxCaptionLength {
		cut := maxCaptionLength - 3
		// Back off to a rune start so the cut never splits a multibyte
		// character.
		for cut > 0 && !utf8.RuneStart(caption[cut]) {
			cut--
		}

		caption = caption[:cut] + "..."
	}

	if hashtags, ok := config["hashtags"].([]any); ok && len(hashtags) > 0 {
		tags := make([]string, 0, len(hashtags))

		for _, h := range hashtags {
			if tag, ok := h.(string); ok {
				tags = append(tags, "#"+strings.TrimPrefix(tag, "#"))
			}
		}

		caption += "\n\n" + strings.Join(tags, " ")
	}

	return caption
}
