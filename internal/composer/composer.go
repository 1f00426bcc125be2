// Package composer turns a session transcript into a structured draft via
// the text-generation backend.
package composer

import (
	"context"
	"encoding/json"
	"html"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/convergo/drafting-platform/internal/llm"
	"github.com/convergo/drafting-platform/internal/model"
	"github.com/convergo/drafting-platform/pkg/logger"
	"github.com/convergo/drafting-platform/pkg/metrics"
)

const systemPrompt = `You convert a human+AI session transcript into a WordPress draft article.
Output MUST be valid JSON only (no markdown fences, no extra text).
Use simple WordPress-friendly HTML in body_html: <p>, <h2>, <ul>, <li>, <strong>, <em>.
Keep it concise and readable.`

const userPromptHeader = `Create a draft article from this session.

Return JSON with exactly:
{
  "title": "...",
  "body_html": "...",
  "excerpt": "..."
}

Session transcript:
`

// Composer calls the generation backend and parses its output into a Draft.
type Composer struct {
	client  llm.Client
	model   string
	timeout time.Duration
	logger  *logger.Logger
}

// New creates a composer bound to a generation client.
func New(client llm.Client, model string, timeout time.Duration, log *logger.Logger) *Composer {
	return &Composer{
		client:  client,
		model:   model,
		timeout: timeout,
		logger:  log,
	}
}

// Compose produces a Draft from a transcript. A backend failure (HTTP
// error, timeout, missing envelope) is returned as an error; malformed
// model output is not an error and degrades to a reviewable fallback Draft.
func (c *Composer) Compose(ctx context.Context, site, transcript string) (*model.Draft, error) {
	start := time.Now()

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Complete(callCtx, &llm.CompletionRequest{
		Model: c.model,
		Messages: []llm.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPromptHeader + transcript},
		},
	})
	if err != nil {
		metrics.DraftComposeDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return nil, err
	}

	draft, parsed := parseDraft(resp.Content, site)
	status := "parsed"
	if !parsed {
		status = "fallback"
		c.logger.Warn("draft output unparsable, using fallback",
			zap.String("site", site),
			zap.Int("raw_chars", len(resp.Content)),
		)
	}
	metrics.DraftComposeDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	return draft, nil
}

// parseDraft extracts the draft JSON from raw model output. The boolean
// distinguishes a clean parse from the degraded fallback.
func parseDraft(raw, site string) (*model.Draft, bool) {
	trimmed := strings.TrimSpace(raw)
	candidate := extractLikelyJSON(trimmed)

	var parsed struct {
		Title    *string `json:"title"`
		BodyHTML *string `json:"body_html"`
		Excerpt  *string `json:"excerpt"`
	}
	if err := json.Unmarshal([]byte(candidate), &parsed); err == nil &&
		parsed.Title != nil && parsed.BodyHTML != nil && parsed.Excerpt != nil {
		draft := &model.Draft{
			Title:    strings.TrimSpace(*parsed.Title),
			BodyHTML: strings.TrimSpace(*parsed.BodyHTML),
			Excerpt:  strings.TrimSpace(*parsed.Excerpt),
		}
		if draft.Title == "" {
			draft.Title = fallbackTitle(site)
		}
		return draft, true
	}

	safe := strings.ReplaceAll(html.EscapeString(trimmed), "\n", "<br/>")
	return &model.Draft{
		Title:    fallbackTitle(site),
		BodyHTML: `<p><em>AI returned invalid JSON. Raw output below:</em></p><p>` + safe + `</p>`,
		Excerpt:  "Draft generated by ConVergo (needs review).",
	}, false
}

// extractLikelyJSON pulls the substring between the first '{' and the last
// '}', defending against incidental wrapping text around the JSON object.
func extractLikelyJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

func fallbackTitle(site string) string {
	return "ConVergo Article Draft - " + site
}

// RenderHTML builds the final post body: the excerpt as an emphasized lead
// paragraph followed by the article body.
func RenderHTML(d *model.Draft) string {
	var b strings.Builder
	if d.Excerpt != "" {
		b.WriteString("<p><em>")
		b.WriteString(html.EscapeString(d.Excerpt))
		b.WriteString("</em></p>")
	}
	b.WriteString(d.BodyHTML)
	return b.String()
}
