package models

// ContentParams carries the content generation request. The orchestration core
// passes these through to the content service untouched.
type ContentParams struct {
	Topic          string   `json:"topic"                     validate:"required,min=3"`
	Language       string   `json:"language,omitempty"`
	TargetLength   int      `json:"target_length,omitempty"   validate:"omitempty,min=100"`
	Tone           string   `json:"tone,omitempty"`
	SEOLevel       string   `json:"seo_level,omitempty"`
	TargetKeywords []string `json:"target_keywords,omitempty"`
	IncludeImage   bool     `json:"include_image,omitempty"`
	IncludeFAQ     bool     `json:"include_faq,omitempty"`
	TargetAudience string   `json:"target_audience,omitempty"`
}

// Article is the structured output of content generation.
type Article struct {
	Title     string          `json:"title"`
	Body      string          `json:"body"`
	MediaRefs []string        `json:"media_refs,omitempty"`
	WordCount int             `json:"word_count,omitempty"`
	Metadata  ArticleMetadata `json:"metadata,omitempty"`
}

// ArticleMetadata holds SEO fields produced alongside the article.
type ArticleMetadata struct {
	Slug            string `json:"slug,omitempty"`
	MetaDescription string `json:"meta_description,omitempty"`
}

// FeaturedImage returns the first media reference, the convention used for the
// article's featured image, or an empty string when none was generated.
func (a *Article) FeaturedImage() string {
	if len(a.MediaRefs) == 0 {
		return ""
	}

	return a.MediaRefs[0]
}
