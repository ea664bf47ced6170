package notify_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accountbilling/pkg/email"
	"github.com/dmitrymomot/accountbilling/svc/notify"
)

type recorder struct {
	mu   sync.Mutex
	sent []email.SendEmailParams
	err  error
}

func (r *recorder) SendEmail(_ context.Context, p email.SendEmailParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, p)
	return nil
}

func TestNotifier_SendInvitation(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	n := notify.New(rec, notify.Config{SiteName: "Acme Cloud"}, nil)

	require.NoError(t, n.SendInvitation(context.Background(), "x@y.com", "Alice", "https://app.test/invite/123"))
	require.Len(t, rec.sent, 1)

	msg := rec.sent[0]
	assert.Equal(t, "x@y.com", msg.SendTo)
	assert.Equal(t, "Alice invited you to Acme Cloud", msg.Subject)
	assert.Contains(t, msg.BodyHTML, `href="https://app.test/invite/123"`)
	assert.Equal(t, "invitation", msg.Tag)
}

func TestNotifier_SendReceipt(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	n := notify.New(rec, notify.Config{}, nil)

	err := n.SendReceipt(context.Background(), "payer@example.com", notify.Receipt{
		User: "Bob", Amount: "10.00", Date: "10:00:00 Jan 02, 2024 PST", Status: "Completed", TxnID: "TX1",
	})
	require.NoError(t, err)
	require.Len(t, rec.sent, 1)
	body := rec.sent[0].BodyHTML
	for _, want := range []string{"Bob", "10.00", "Completed", "TX1"} {
		assert.Contains(t, body, want)
	}
	assert.NotContains(t, body, "{{")
}

func TestNotifier_SendAudit(t *testing.T) {
	t.Parallel()

	t.Run("skipped without operator address", func(t *testing.T) {
		t.Parallel()
		rec := &recorder{}
		n := notify.New(rec, notify.Config{}, nil)
		require.NoError(t, n.SendAudit(context.Background(), notify.Audit{}))
		assert.Empty(t, rec.sent)
	})

	t.Run("includes flags", func(t *testing.T) {
		t.Parallel()
		rec := &recorder{}
		n := notify.New(rec, notify.Config{OperatorEmail: "ops@example.com"}, nil)
		err := n.SendAudit(context.Background(), notify.Audit{
			Receipt:   notify.Receipt{TxnID: "TX1"},
			Valid:     true,
			Allowed:   false,
			AccountID: "acc-1",
			PlanID:    "plan-1",
		})
		require.NoError(t, err)
		require.Len(t, rec.sent, 1)
		assert.Equal(t, "ops@example.com", rec.sent[0].SendTo)
		assert.Contains(t, rec.sent[0].BodyHTML, "<td>true</td>")
		assert.Contains(t, rec.sent[0].BodyHTML, "<td>false</td>")
		assert.Contains(t, rec.sent[0].BodyHTML, "acc-1")
	})

	t.Run("sender failure", func(t *testing.T) {
		t.Parallel()
		rec := &recorder{err: errors.New("boom")}
		n := notify.New(rec, notify.Config{OperatorEmail: "ops@example.com"}, nil)
		assert.Error(t, n.SendAudit(context.Background(), notify.Audit{}))
	})
}
