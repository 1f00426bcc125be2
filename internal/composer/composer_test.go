package composer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/convergo/drafting-platform/internal/llm"
	"github.com/convergo/drafting-platform/internal/model"
	"github.com/convergo/drafting-platform/pkg/logger"
)

type stubLLM struct {
	content string
	err     error
	gotReq  *llm.CompletionRequest
}

func (s *stubLLM) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.gotReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &llm.CompletionResponse{Content: s.content}, nil
}

func (s *stubLLM) Name() string { return "stub" }

func newComposer(client llm.Client) *Composer {
	return New(client, "test-model", 5*time.Second, logger.NewNop())
}

func TestComposeWellFormedOutput(t *testing.T) {
	stub := &stubLLM{content: `{"title":"T","body_html":"<p>B</p>","excerpt":"E"}`}

	draft, err := newComposer(stub).Compose(context.Background(), "acme", "USER: hi")
	require.NoError(t, err)
	require.Equal(t, &model.Draft{Title: "T", BodyHTML: "<p>B</p>", Excerpt: "E"}, draft)
}

func TestComposeStripsWrappingText(t *testing.T) {
	stub := &stubLLM{content: "Sure, here is the article:\n{\"title\":\"T\",\"body_html\":\"<p>B</p>\",\"excerpt\":\"E\"}\nHope that helps!"}

	draft, err := newComposer(stub).Compose(context.Background(), "acme", "USER: hi")
	require.NoError(t, err)
	require.Equal(t, "T", draft.Title)
	require.Equal(t, "<p>B</p>", draft.BodyHTML)
}

func TestComposeMalformedOutputDegrades(t *testing.T) {
	stub := &stubLLM{content: "not json"}

	draft, err := newComposer(stub).Compose(context.Background(), "acme", "USER: hi")
	require.NoError(t, err)
	require.Equal(t, "ConVergo Article Draft - acme", draft.Title)
	require.Contains(t, draft.BodyHTML, "not json")
	require.Contains(t, draft.Excerpt, "needs review")
}

func TestComposeMissingFieldDegrades(t *testing.T) {
	stub := &stubLLM{content: `{"title":"T","body_html":"<p>B</p>"}`}

	draft, err := newComposer(stub).Compose(context.Background(), "acme", "USER: hi")
	require.NoError(t, err)
	require.Equal(t, "ConVergo Article Draft - acme", draft.Title)
}

func TestComposeWrongFieldTypeDegrades(t *testing.T) {
	stub := &stubLLM{content: `{"title":42,"body_html":"<p>B</p>","excerpt":"E"}`}

	draft, err := newComposer(stub).Compose(context.Background(), "acme", "USER: hi")
	require.NoError(t, err)
	require.Equal(t, "ConVergo Article Draft - acme", draft.Title)
}

func TestComposeFallbackEscapesHTML(t *testing.T) {
	stub := &stubLLM{content: "<script>alert(1)</script>\nsecond line"}

	draft, err := newComposer(stub).Compose(context.Background(), "acme", "USER: hi")
	require.NoError(t, err)
	require.NotContains(t, draft.BodyHTML, "<script>")
	require.Contains(t, draft.BodyHTML, "&lt;script&gt;")
	require.Contains(t, draft.BodyHTML, "<br/>")
}

func TestComposeBackendFailureAborts(t *testing.T) {
	stub := &stubLLM{err: errors.New("connection refused")}

	_, err := newComposer(stub).Compose(context.Background(), "acme", "USER: hi")
	require.Error(t, err)
}

func TestComposeEmptyParsedTitleBackfilled(t *testing.T) {
	stub := &stubLLM{content: `{"title":"  ","body_html":"<p>B</p>","excerpt":"E"}`}

	draft, err := newComposer(stub).Compose(context.Background(), "acme", "USER: hi")
	require.NoError(t, err)
	require.Equal(t, "ConVergo Article Draft - acme", draft.Title)
}

func TestComposeSendsTranscriptAndInstructions(t *testing.T) {
	stub := &stubLLM{content: `{"title":"T","body_html":"<p>B</p>","excerpt":"E"}`}

	_, err := newComposer(stub).Compose(context.Background(), "acme", "USER: hello world")
	require.NoError(t, err)
	require.Len(t, stub.gotReq.Messages, 2)
	require.Equal(t, "system", stub.gotReq.Messages[0].Role)
	require.Contains(t, stub.gotReq.Messages[0].Content, "valid JSON only")
	require.Equal(t, "user", stub.gotReq.Messages[1].Role)
	require.Contains(t, stub.gotReq.Messages[1].Content, "USER: hello world")
}

func TestRenderHTML(t *testing.T) {
	d := &model.Draft{Title: "T", BodyHTML: "<p>B</p>", Excerpt: `say "hi"`}
	got := RenderHTML(d)
	require.Equal(t, `<p><em>say &#34;hi&#34;</em></p><p>B</p>`, got)

	d = &model.Draft{Title: "T", BodyHTML: "<p>B</p>"}
	require.Equal(t, "<p>B</p>", RenderHTML(d))
}
