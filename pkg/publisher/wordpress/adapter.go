// Package wordpress publishes articles to a WordPress site through the REST
// API v2, authenticated with an application password.
package wordpress

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/pressline/pressline/pkg/models"
	"github.com/pressline/pressline/pkg/publisher"
)

const platformKey = "wordpress"

const configSchema = `{
	"type": "object",
	"properties": {
		"url": {
			"type": "string",
			"description": "Base URL of the WordPress site"
		},
		"username": {
			"type": "string"
		},
		"app_password": {
			"type": "string",
			"description": "WordPress application password"
		},
		"post_status": {
			"type": "string",
			"enum": ["publish", "draft", "pending", "private"],
			"default": "publish"
		},
		"categories": {
			"type": "array",
			"items": {"type": "integer"}
		},
		"tags": {
			"type": "array",
			"items": {"type": "integer"}
		}
	},
	"required": ["url", "username", "app_password"],
	"additionalProperties": true
}`

// Adapter implements publisher.Adapter for WordPress.
type Adapter struct {
	client *http.Client
	logger *slog.Logger
}

// NewAdapter creates a WordPress adapter. The passed client's timeout is left
// alone; per-attempt deadlines arrive through the context.
func NewAdapter(client *http.Client, logger *slog.Logger) *Adapter {
	if client == nil {
		client = http.DefaultClient
	}

	return &Adapter{
		client: client,
		logger: logger.With("module", "wordpress_adapter"),
	}
}

func (a *Adapter) ID() string {
	return platformKey
}

func (a *Adapter) Validate(_ context.Context, config map[string]any) error {
	return publisher.ValidateConfig(platformKey, configSchema, config)
}

// Publish creates a post. WordPress has no idempotency-key header, so the
// adapter derives the post slug from the idempotency token and looks the slug
// up before creating; a retried call after a lost response finds the existing
// post instead of duplicating it.
func (a *Adapter) Publish(ctx context.Context, article *models.Article, config map[string]any, idempotencyToken string) (*publisher.Outcome, error) {
	siteURL, _ := config["url"].(string)
	username, _ := config["username"].(string)
	appPassword, _ := config["app_password"].(string)

	apiBase := strings.TrimSuffix(siteURL, "/") + "/wp-json/wp/v2"
	auth := "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+appPassword))

	slug := article.Metadata.Slug
	if slug == "" {
		slug = idempotencyToken
	}

	if existing, err := a.findBySlug(ctx, apiBase, auth, slug); err != nil {
		return nil, err
	} else if existing != "" {
		a.logger.InfoContext(ctx, "Post already exists for slug, skipping create",
			"slug", slug, "link", existing)

		return &publisher.Outcome{ExternalRef: existing}, nil
	}

	status, _ := config["post_status"].(string)
	if status == "" {
		status = "publish"
	}

	post := map[string]any{
		"title":   article.Title,
		"content": renderHTML(article),
		"status":  status,
		"slug":    slug,
		"excerpt": article.Metadata.MetaDescription,
	}

	if categories, ok := config["categories"].([]any); ok {
		post["categories"] = categories
	}

	if tags, ok := config["tags"].([]any); ok {
		post["tags"] = tags
	}

	body, err := json.Marshal(post)
	if err != nil {
		return nil, publisher.NewPermanentError(platformKey, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiBase+"/posts", bytes.NewReader(body))
	if err != nil {
		return nil, publisher.NewPermanentError(platformKey, err)
	}

	req.Header.Set("Authorization", auth)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		// Transport failures and deadline expiry are worth another attempt.
		return nil, publisher.NewTransientError(platformKey, err)
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, publisher.FromStatusCode(platformKey, resp.StatusCode, string(payload))
	}

	var created struct {
		ID   int    `json:"id"`
		Link string `json:"link"`
	}

	if err := json.Unmarshal(payload, &created); err != nil {
		return nil, publisher.NewPermanentError(platformKey, fmt.Errorf("unexpected response body: %w", err))
	}

	ref := created.Link
	if ref == "" {
		ref = fmt.Sprintf("%s/?p=%d", strings.TrimSuffix(siteURL, "/"), created.ID)
	}

	return &publisher.Outcome{ExternalRef: ref}, nil
}

func (a *Adapter) findBySlug(ctx context.Context, apiBase, auth, slug string) (string, error) {
	lookup := apiBase + "/posts?status=any&slug=" + url.QueryEscape(slug)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookup, nil)
	if err != nil {
		return "", publisher.NewPermanentError(platformKey, err)
	}

	req.Header.Set("Authorization", auth)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", publisher.NewTransientError(platformKey, err)
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", publisher.FromStatusCode(platformKey, resp.StatusCode, string(payload))
	}

	var posts []struct {
		Link string `json:"link"`
	}

	if err := json.Unmarshal(payload, &posts); err != nil {
		return "", publisher.NewPermanentError(platformKey, fmt.Errorf("unexpected lookup response: %w", err))
	}

	if len(posts) == 0 {
		return "", nil
	}

	return posts[0].Link, nil
}

// renderHTML wraps the article body paragraphs for the WordPress editor.
func renderHTML(article *models.Article) string {
	var b strings.Builder

	for _, para := range strings.Split(article.Body, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		b.WriteString("<p>")
		b.WriteString(para)
		b.WriteString("</p>\n")
	}

	if img := article.FeaturedImage(); img != "" {
		fmt.Fprintf(&b, "<img src=%q alt=%q />\n", img, article.Title)
	}

	return b.String()
}
