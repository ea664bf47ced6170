package invite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/accountbilling/pkg/logger"
	"github.com/dmitrymomot/accountbilling/svc/account"
)

type (
	accountReader interface {
		Get(ctx context.Context, id string) (account.Account, error)
	}

	accessGranter interface {
		GrantAccess(ctx context.Context, accountID, userID string, asAdmin bool) error
	}

	mailer interface {
		SendInvitation(ctx context.Context, to, senderName, link string) error
	}
)

// Service issues, resolves and accepts invites.
type Service struct {
	store    Store
	accounts accountReader
	granter  accessGranter
	mailer   mailer
	hasher   *Hasher
	cfg      Config
	now      func() time.Time
	logger   *slog.Logger
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(cfg Config, store Store, accounts accountReader, granter accessGranter, m mailer, opts ...Option) *Service {
	if store == nil || accounts == nil || granter == nil || m == nil {
		panic("invite service dependencies cannot be nil")
	}
	s := &Service{
		store:    store,
		accounts: accounts,
		granter:  granter,
		mailer:   m,
		hasher:   NewHasher(cfg.Salt),
		cfg:      cfg,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("invite"))
	return s
}

// Issue stores an invite for email and mails the link. The issuer must be an
// admin of the account.
func (s *Service) Issue(ctx context.Context, callerID, callerName, accountID, email string, role account.Role) (Invite, error) {
	if role != account.RoleAdmin && role != account.RoleUser {
		return Invite{}, account.ErrInvalidRole
	}
	if Normalize(email) == "" {
		return Invite{}, fmt.Errorf("%w: email is required", account.ErrInvalidInvite)
	}
	acc, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return Invite{}, err
	}
	if !acc.IsAdmin(callerID) {
		return Invite{}, account.ErrPermissionDenied
	}

	inv := Invite{
		ID:          uuid.NewString(),
		HashedEmail: s.hasher.Hash(email),
		Owner:       callerID,
		AccountID:   accountID,
		Role:        role,
		Time:        s.now(),
	}
	if err := s.store.Create(ctx, inv); err != nil {
		return Invite{}, err
	}

	link := strings.TrimRight(s.cfg.URL, "/") + "/" + inv.ID
	if err := s.mailer.SendInvitation(ctx, strings.TrimSpace(email), callerName, link); err != nil {
		if derr := s.store.Delete(ctx, inv.ID); derr != nil {
			err = errors.Join(err, derr)
		}
		return Invite{}, err
	}

	s.logger.InfoContext(ctx, "invite issued",
		logger.InviteID(inv.ID), logger.AccountID(accountID), logger.UserID(callerID))
	return inv, nil
}

// Resolve returns the account an invite points to, provided callerEmail is
// the invited address.
func (s *Service) Resolve(ctx context.Context, inviteID, callerEmail string) (Details, error) {
	inv, err := s.matching(ctx, inviteID, callerEmail)
	if err != nil {
		return Details{}, err
	}
	acc, err := s.accounts.Get(ctx, inv.AccountID)
	if err != nil {
		return Details{}, err
	}
	return Details{AccountID: acc.ID, AccountName: acc.Name}, nil
}

// Accept grants the caller access and consumes the invite. The invite is
// deleted only after the grant succeeded.
func (s *Service) Accept(ctx context.Context, inviteID, callerEmail, callerID string) error {
	inv, err := s.matching(ctx, inviteID, callerEmail)
	if err != nil {
		return err
	}
	if !inv.Time.After(s.now().Add(-s.cfg.Expiry)) {
		return account.ErrInviteExpired
	}
	if err := s.granter.GrantAccess(ctx, inv.AccountID, callerID, inv.Role == account.RoleAdmin); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, inv.ID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "invite accepted",
		logger.InviteID(inv.ID), logger.AccountID(inv.AccountID), logger.UserID(callerID))
	return nil
}

func (s *Service) matching(ctx context.Context, inviteID, callerEmail string) (Invite, error) {
	inv, err := s.store.Get(ctx, inviteID)
	if err != nil {
		return Invite{}, fmt.Errorf("invite %s: %w", inviteID, err)
	}
	if Normalize(callerEmail) == "" || inv.HashedEmail != s.hasher.Hash(callerEmail) {
		return Invite{}, account.ErrInvalidInvite
	}
	return inv, nil
}
