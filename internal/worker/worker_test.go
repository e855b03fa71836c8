package worker

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/evex-campus/backend/config"
	"github.com/evex-campus/backend/pkg/queue"
)

type fakeSender struct {
	sent []string
	err  error
}

func (f *fakeSender) Send(to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

func emailJob(t *testing.T, payload queue.EmailPayload) *queue.Job {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &queue.Job{ID: "job-1", Type: queue.JobTypeEmail, Payload: raw}
}

func TestProcessSendsEmail(t *testing.T) {
	sender := &fakeSender{}
	w := New(nil, sender, zap.NewNop())

	job := emailJob(t, queue.EmailPayload{
		NotificationType: "registration_confirmation",
		RecipientEmail:   "student@campus.edu",
		Subject:          "Registration confirmed",
		Body:             "See you there.",
	})
	require.NoError(t, w.process(job))
	require.Equal(t, []string{"student@campus.edu"}, sender.sent)
}

func TestProcessPropagatesSendFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp down")}
	w := New(nil, sender, zap.NewNop())

	job := emailJob(t, queue.EmailPayload{RecipientEmail: "s@campus.edu"})
	require.Error(t, w.process(job))
}

func TestProcessDropsMalformedPayload(t *testing.T) {
	sender := &fakeSender{}
	w := New(nil, sender, zap.NewNop())

	job := &queue.Job{ID: "job-2", Type: queue.JobTypeEmail, Payload: json.RawMessage("{not json")}
	require.NoError(t, w.process(job))
	require.Empty(t, sender.sent)
}

func TestProcessIgnoresUnknownJobType(t *testing.T) {
	w := New(nil, &fakeSender{}, zap.NewNop())
	job := &queue.Job{ID: "job-3", Type: "mystery"}
	require.NoError(t, w.process(job))
}

func TestSMTPSenderRequiresHost(t *testing.T) {
	s := NewSMTPSender(config.EmailConfig{})
	require.Error(t, s.Send("a@b.c", "hi", "body"))
}
