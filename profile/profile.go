// Package profile builds founder-profile records from public pages: fetch,
// readability extraction, markdown conversion, then generator structuring.
// Profile fetching is best effort; every failure degrades to a stub record
// so diligence never blocks on an unreachable page.
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	readability "github.com/go-shiori/go-readability"

	"github.com/c360studio/dealflow/llm"
	"github.com/c360studio/dealflow/memo"
)

// Profile record statuses.
const (
	StatusFetched     = "fetched"
	StatusUnavailable = "unavailable"
)

// maxProfileMarkdown caps the page text passed to the generator.
const maxProfileMarkdown = 12000

// Generator produces completions for the structuring prompt.
type Generator interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// PageFetcher retrieves raw page bytes.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) ([]byte, error)
}

// Service turns a founder name plus profile URL into a structured record.
type Service struct {
	fetcher   PageFetcher
	generator Generator
	converter *md.Converter
	logger    *slog.Logger
}

// NewService creates a profile service.
func NewService(fetcher PageFetcher, generator Generator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &Service{
		fetcher:   fetcher,
		generator: generator,
		converter: converter,
		logger:    logger,
	}
}

// Fetch builds the profile record for one founder. It never returns an
// error: any failure produces a stub with Status "unavailable".
func (s *Service) Fetch(ctx context.Context, name, profileURL string) *memo.FounderProfile {
	stub := &memo.FounderProfile{
		Name:      name,
		SourceURL: profileURL,
		Status:    StatusUnavailable,
	}
	if profileURL == "" {
		return stub
	}

	body, err := s.fetcher.Fetch(ctx, profileURL)
	if err != nil {
		s.logger.Warn("Profile page fetch failed", "url", profileURL, "error", err)
		return stub
	}

	markdown := s.pageMarkdown(body, profileURL)
	if strings.TrimSpace(markdown) == "" {
		s.logger.Warn("Profile page had no extractable content", "url", profileURL)
		return stub
	}
	if len(markdown) > maxProfileMarkdown {
		markdown = markdown[:maxProfileMarkdown]
	}

	resp, err := s.generator.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "user", Content: structurePrompt(name, markdown)},
		},
		Temperature: llm.Float64(0.1),
		MaxTokens:   1024,
	})
	if err != nil {
		s.logger.Warn("Profile structuring failed", "url", profileURL, "error", err)
		return stub
	}

	var parsed memo.FounderProfile
	if err := llm.Unmarshal(resp.Content, &parsed); err != nil {
		s.logger.Warn("Profile response unparseable", "url", profileURL, "error", err)
		return stub
	}

	if parsed.Name == "" {
		parsed.Name = name
	}
	parsed.SourceURL = profileURL
	parsed.Status = StatusFetched
	return &parsed
}

// pageMarkdown extracts the main content of a page as markdown. Readability
// isolates the article body; when it finds nothing the whole page is
// converted instead.
func (s *Service) pageMarkdown(body []byte, pageURL string) string {
	parsedURL, _ := url.Parse(pageURL)

	article, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err == nil && strings.TrimSpace(article.Content) != "" {
		if markdown, err := s.converter.ConvertString(article.Content); err == nil {
			return markdown
		}
	}

	markdown, err := s.converter.ConvertString(string(body))
	if err != nil {
		return ""
	}
	return markdown
}

func structurePrompt(name, markdown string) string {
	return fmt.Sprintf(`Extract the professional profile of %q from the page below.

Return ONLY a JSON object:
{"name": "...", "headline": "...", "education": ["..."], "employment": ["..."], "skills": ["..."]}

Rules:
- employment entries are "Role at Company (years)" where stated
- omit anything the page does not state; use [] for empty lists

Page:
---
%s
---`, name, markdown)
}

// FounderURLs picks the profile URLs worth fetching from a memo: the
// founder link first, the company page as fallback context.
func FounderURLs(m *memo.Memo1) []string {
	var urls []string
	if m.FounderLinkedInURL != "" && !memo.IsPlaceholder(m.FounderLinkedInURL) {
		urls = append(urls, m.FounderLinkedInURL)
	}
	if m.CompanyLinkedInURL != "" && !memo.IsPlaceholder(m.CompanyLinkedInURL) {
		urls = append(urls, m.CompanyLinkedInURL)
	}
	return urls
}

// PrimaryFounder returns the first founder name on the memo.
func PrimaryFounder(m *memo.Memo1) string {
	if len(m.FounderName) > 0 {
		return strings.TrimSpace(m.FounderName[0])
	}
	return ""
}
