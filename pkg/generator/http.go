package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pressline/pressline/pkg/models"
)

const generatePath = "/api/v1/content/generate"

const defaultTimeout = 5 * time.Minute

// HTTPClient calls the content service over HTTP.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewHTTPClient creates a client for the content service at baseURL. A zero
// timeout falls back to the default; generation is slow, the budget is generous.
func NewHTTPClient(baseURL string, client *http.Client, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	if client == nil {
		client = http.DefaultClient
	}

	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
		timeout: timeout,
		logger:  logger.With("module", "content_generator"),
	}
}

// generatedContent mirrors the content service response document.
type generatedContent struct {
	Title        string `json:"title"`
	Introduction string `json:"introduction"`
	Sections     []struct {
		Heading string `json:"heading"`
		Content string `json:"content"`
	} `json:"sections"`
	FAQ []struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	} `json:"faq"`
	Conclusion    string `json:"conclusion"`
	WordCount     int    `json:"word_count"`
	FeaturedImage struct {
		URL string `json:"url"`
	} `json:"featured_image"`
	Metadata struct {
		Slug            string `json:"slug"`
		MetaDescription string `json:"meta_description"`
	} `json:"metadata"`
	Error string `json:"error,omitempty"`
}

func (c *HTTPClient) Generate(ctx context.Context, params models.ContentParams) (*models.Article, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(params)
	if err != nil {
		return nil, NewGenerationError("invalid content params", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generatePath, bytes.NewReader(body))
	if err != nil {
		return nil, NewGenerationError("failed to build request", err)
	}

	req.Header.Set("Content-Type", "application/json")

	c.logger.InfoContext(ctx, "Requesting content generation", "topic", params.Topic)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, NewGenerationError("content service unreachable", err)
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, NewGenerationError(
			fmt.Sprintf("content service returned %d: %s", resp.StatusCode, payload), nil)
	}

	var content generatedContent
	if err := json.Unmarshal(payload, &content); err != nil {
		return nil, NewGenerationError("malformed content service response", err)
	}

	if content.Error != "" {
		return nil, NewGenerationError(content.Error, nil)
	}

	if content.Title == "" {
		return nil, NewGenerationError("content service returned an empty article", nil)
	}

	return flatten(&content), nil
}

// flatten folds the structured document into the article body, sections and
// FAQ included, in reading order.
func flatten(content *generatedContent) *models.Article {
	var b strings.Builder

	writeBlock := func(text string) {
		if text == "" {
			return
		}

		if b.Len() > 0 {
			b.WriteString("\n\n")
		}

		b.WriteString(text)
	}

	writeBlock(content.Introduction)

	for _, section := range content.Sections {
		writeBlock(section.Heading)
		writeBlock(section.Content)
	}

	for _, item := range content.FAQ {
		writeBlock(item.Question)
		writeBlock(item.Answer)
	}

	writeBlock(content.Conclusion)

	article := &models.Article{
		Title:     content.Title,
		Body:      b.String(),
		WordCount: content.WordCount,
		Metadata: models.ArticleMetadata{
			Slug:            content.Metadata.Slug,
			MetaDescription: content.Metadata.MetaDescription,
		},
	}

	if content.FeaturedImage.URL != "" {
		article.MediaRefs = []string{content.FeaturedImage.URL}
	}

	return article
}
