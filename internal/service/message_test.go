package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/convergo/drafting-platform/internal/apperr"
	"github.com/convergo/drafting-platform/internal/guardrail"
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

func TestWriteMessage(t *testing.T) {
	st := newMemStore()
	svc := newTestMessageService(st)

	msg, err := svc.Write(context.Background(), "req-1", &model.WriteMessageRequest{
		Site:    "acme",
		Role:    "user",
		Content: "  Hello  ",
	})
	require.NoError(t, err)
	require.Equal(t, "Hello", msg.Content)
	require.Equal(t, model.RoleUser, msg.Role)
	require.NotEmpty(t, msg.ID)
	require.Len(t, st.messages, 1)
}

func TestWriteMessageRoleNormalization(t *testing.T) {
	st := newMemStore()
	svc := newTestMessageService(st)

	for _, tc := range []struct {
		role string
		want model.Role
	}{
		{"assistant", model.RoleAssistant},
		{" assistant ", model.RoleAssistant},
		{"user", model.RoleUser},
		{"system", model.RoleUser},
		{"", model.RoleUser},
		{"ASSISTANT", model.RoleUser},
	} {
		msg, err := svc.Write(context.Background(), "req-1", &model.WriteMessageRequest{
			Site:    "acme",
			Role:    tc.role,
			Content: "hi",
		})
		require.NoError(t, err)
		require.Equal(t, tc.want, msg.Role, "role %q", tc.role)
	}
}

func TestWriteMessageRejectsEmptyContent(t *testing.T) {
	st := newMemStore()
	svc := newTestMessageService(st)

	_, err := svc.Write(context.Background(), "req-1", &model.WriteMessageRequest{
		Site:    "acme",
		Content: "   \n\t ",
	})
	require.Equal(t, apperr.KindMissingContent, apperr.KindOf(err))
	require.Empty(t, st.messages)
}

func TestWriteMessageRejectsOversizedContent(t *testing.T) {
	st := newMemStore()
	svc := newTestMessageService(st)

	_, err := svc.Write(context.Background(), "req-1", &model.WriteMessageRequest{
		Site:    "acme",
		Content: strings.Repeat("a", guardrail.DefaultLimits().MessageMaxChars+1),
	})
	require.Equal(t, apperr.KindMessageTooLong, apperr.KindOf(err))
	require.Empty(t, st.messages)
}

func TestWriteMessageIntoEndedSession(t *testing.T) {
	st := newMemStore()
	sess := seedSession(t, st, "acme", "Hello")
	_, err := st.EndSession(context.Background(), sess.ID)
	require.NoError(t, err)

	svc := newTestMessageService(st)
	_, err = svc.Write(context.Background(), "req-1", &model.WriteMessageRequest{
		Site:      "acme",
		SessionID: sess.ID,
		Content:   "too late",
	})
	require.Equal(t, apperr.KindSessionEnded, apperr.KindOf(err))
	require.Len(t, st.messages, 1)
}

func TestWriteMessageWrongSiteSession(t *testing.T) {
	st := newMemStore()
	sess := seedSession(t, st, "acme")
	_ = seedSession(t, st, "globex")

	svc := newTestMessageService(st)
	_, err := svc.Write(context.Background(), "req-1", &model.WriteMessageRequest{
		Site:      "globex",
		SessionID: sess.ID,
		Content:   "hi",
	})
	require.Equal(t, apperr.KindSessionNotFound, apperr.KindOf(err))
}

func TestWriteMessageSessionLimit(t *testing.T) {
	st := newMemStore()
	sess := seedSession(t, st, "acme")

	limits := guardrail.Limits{MessageMaxChars: 100, SessionMaxMessages: 2}
	svc := NewMessageService(st, limits, nil, "", time.Second, logger.NewNop())

	for i := 0; i < 2; i++ {
		_, err := svc.Write(context.Background(), "req-1", &model.WriteMessageRequest{
			Site:      "acme",
			SessionID: sess.ID,
			Content:   "hi",
		})
		require.NoError(t, err)
	}

	_, err := svc.Write(context.Background(), "req-1", &model.WriteMessageRequest{
		Site:      "acme",
		SessionID: sess.ID,
		Content:   "one too many",
	})
	require.Equal(t, apperr.KindSessionMessageLimit, apperr.KindOf(err))
	require.Len(t, st.messages, 2)
}

func TestChatPersistsBothSides(t *testing.T) {
	st := newMemStore()
	sess := seedSession(t, st, "acme")

	stub := &stubLLM{content: "Nice to meet you"}
	svc := NewMessageService(st, guardrail.DefaultLimits(), stub, "test-model", time.Second, logger.NewNop())

	reply, err := svc.Chat(context.Background(), "req-1", &model.ChatRequest{
		Site:      "acme",
		SessionID: sess.ID,
		Message:   "Hello",
	})
	require.NoError(t, err)
	require.Equal(t, "Nice to meet you", reply)

	require.Len(t, st.messages, 2)
	require.Equal(t, model.RoleUser, st.messages[0].Role)
	require.Equal(t, "Hello", st.messages[0].Content)
	require.Equal(t, model.RoleAssistant, st.messages[1].Role)
	require.Equal(t, "Nice to meet you", st.messages[1].Content)

	require.Equal(t, "system", stub.gotReq.Messages[0].Role)
}

func TestChatWithoutBackend(t *testing.T) {
	st := newMemStore()
	svc := newTestMessageService(st)

	reply, err := svc.Chat(context.Background(), "req-1", &model.ChatRequest{
		Site:    "acme",
		Message: "Hello",
	})
	require.NoError(t, err)
	require.Contains(t, reply, "Message saved")
	require.Len(t, st.messages, 2)
}

func TestChatBackendFailureKeepsUserMessage(t *testing.T) {
	st := newMemStore()

	stub := &stubLLM{err: apperr.New(apperr.KindDraftGenerationFailed, "generation backend unavailable")}
	svc := NewMessageService(st, guardrail.DefaultLimits(), stub, "test-model", time.Second, logger.NewNop())

	_, err := svc.Chat(context.Background(), "req-1", &model.ChatRequest{
		Site:    "acme",
		Message: "Hello",
	})
	require.Error(t, err)
	require.Len(t, st.messages, 1)
	require.Equal(t, model.RoleUser, st.messages[0].Role)
}
