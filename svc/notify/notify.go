// Package notify sends the invitation, payment receipt and operator audit
// emails.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/dmitrymomot/accountbilling/pkg/email"
	"github.com/dmitrymomot/accountbilling/pkg/logger"
)

type Notifier struct {
	sender email.EmailSender
	cfg    Config
	logger *slog.Logger
}

func New(sender email.EmailSender, cfg Config, log *slog.Logger) *Notifier {
	if sender == nil {
		panic("email sender cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{sender: sender, cfg: cfg, logger: log.With(logger.Component("notify"))}
}

// SendInvitation mails the invite link to the invited address.
func (n *Notifier) SendInvitation(ctx context.Context, to, senderName, link string) error {
	vars := map[string]string{
		"sender_name": senderName,
		"site_name":   n.cfg.SiteName,
		"invite_link": link,
	}
	return n.send(ctx, "invitation", to, email.Render(inviteSubject, vars), email.Render(inviteBody, vars))
}

// Receipt describes a processed payment.
type Receipt struct {
	User   string
	Amount string
	Date   string
	Status string
	TxnID  string
}

func (n *Notifier) SendReceipt(ctx context.Context, to string, r Receipt) error {
	vars := map[string]string{
		"user":           r.User,
		"payment_amount": r.Amount,
		"payment_date":   r.Date,
		"payment_status": r.Status,
		"txn_id":         r.TxnID,
	}
	return n.send(ctx, "receipt", to, receiptSubject, email.Render(receiptBody, vars))
}

// Audit is the operator view of a payment notification.
type Audit struct {
	Receipt
	Valid     bool
	Allowed   bool
	UserEmail string
	AccountID string
	PlanID    string
}

// SendAudit mails the operator. It is a no-op without OperatorEmail.
func (n *Notifier) SendAudit(ctx context.Context, a Audit) error {
	if n.cfg.OperatorEmail == "" {
		n.logger.WarnContext(ctx, "operator email not configured, audit mail skipped", logger.EventID(a.TxnID))
		return nil
	}
	vars := map[string]string{
		"is_valid":       strconv.FormatBool(a.Valid),
		"is_allowed":     strconv.FormatBool(a.Allowed),
		"user":           a.User,
		"user_email":     a.UserEmail,
		"payment_amount": a.Amount,
		"payment_date":   a.Date,
		"payment_status": a.Status,
		"txn_id":         a.TxnID,
		"account_id":     a.AccountID,
		"plan_id":        a.PlanID,
	}
	return n.send(ctx, "audit", n.cfg.OperatorEmail, auditSubject, email.Render(auditBody, vars))
}

func (n *Notifier) send(ctx context.Context, tag, to, subject, body string) error {
	if err := n.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   to,
		Subject:  subject,
		BodyHTML: body,
		Tag:      tag,
	}); err != nil {
		return fmt.Errorf("send %s email: %w", tag, err)
	}
	return nil
}
