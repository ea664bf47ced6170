package account

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/dmitrymomot/accountbilling/pkg/async"
	"github.com/dmitrymomot/accountbilling/pkg/logger"
)

// Service implements account creation and membership management.
type Service struct {
	store  Store
	users  Users
	logger *slog.Logger
}

func NewService(store Store, users Users, log *slog.Logger) *Service {
	if store == nil {
		panic("account store cannot be nil")
	}
	if users == nil {
		panic("users directory cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, users: users, logger: log.With(logger.Component("account"))}
}

// CreateAccount creates an account owned by ownerID and makes the owner its
// first admin.
func (s *Service) CreateAccount(ctx context.Context, ownerID, name string) (Account, error) {
	name = strings.TrimSpace(name)
	if ownerID == "" || name == "" {
		return Account{}, ErrInvalidAccountArg
	}
	acc := &Account{
		Name:         name,
		OwnerID:      ownerID,
		CreationTime: time.Now(),
	}
	if err := s.store.Create(ctx, acc); err != nil {
		return Account{}, fmt.Errorf("create account: %w", err)
	}
	if err := s.GrantAccess(ctx, acc.ID, ownerID, true); err != nil {
		return Account{}, err
	}
	s.logger.InfoContext(ctx, "account created", logger.AccountID(acc.ID), logger.UserID(ownerID))
	return s.store.Get(ctx, acc.ID)
}

// GrantAccess adds userID to the account's access list, and to admins when
// asAdmin. The caller is responsible for authorizing the grant.
func (s *Service) GrantAccess(ctx context.Context, accountID, userID string, asAdmin bool) error {
	_, err := s.store.Update(ctx, accountID, func(a *Account) error {
		return a.Grant(userID, asAdmin)
	})
	return err
}

// ChangeRole promotes, demotes or removes a member. callerID must be an admin.
func (s *Service) ChangeRole(ctx context.Context, callerID, accountID, userID string, role Role) error {
	if role != RoleAdmin && role != RoleUser && role != RoleRemove {
		return ErrInvalidRole
	}
	_, err := s.store.Update(ctx, accountID, func(a *Account) error {
		if !a.IsAdmin(callerID) {
			return ErrPermissionDenied
		}
		if err := a.ChangeRole(userID, role); err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("no user with id %s: %w", userID, ErrNotFound)
			}
			return err
		}
		return nil
	})
	if err == nil {
		s.logger.InfoContext(ctx, "member role changed",
			logger.AccountID(accountID), logger.UserID(userID), slog.String("role", string(role)))
	}
	return err
}

// RequireAdmin loads the account and fails unless callerID is one of its admins.
func (s *Service) RequireAdmin(ctx context.Context, callerID, accountID string) (Account, error) {
	acc, err := s.store.Get(ctx, accountID)
	if err != nil {
		return Account{}, err
	}
	if !acc.IsAdmin(callerID) {
		return Account{}, ErrPermissionDenied
	}
	return acc, nil
}

// ListUsers returns every member of the account sorted by display name.
func (s *Service) ListUsers(ctx context.Context, callerID, accountID string) ([]Member, error) {
	acc, err := s.RequireAdmin(ctx, callerID, accountID)
	if err != nil {
		return nil, err
	}

	futures := make([]*async.Future[User], len(acc.Access))
	for i, id := range acc.Access {
		futures[i] = async.Go(ctx, func(ctx context.Context) (User, error) {
			return s.users.Get(ctx, id)
		})
	}

	members := make([]Member, 0, len(acc.Access))
	for i, f := range futures {
		u, err := f.Await(ctx)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				u = User{ID: acc.Access[i]}
			} else {
				return nil, fmt.Errorf("load user %s: %w", acc.Access[i], err)
			}
		}
		members = append(members, memberOf(acc, u))
	}
	slices.SortStableFunc(members, func(a, b Member) int {
		return cmp.Compare(a.DisplayName, b.DisplayName)
	})
	return members, nil
}

// GetUser returns one member of the account.
func (s *Service) GetUser(ctx context.Context, callerID, accountID, userID string) (Member, error) {
	acc, err := s.RequireAdmin(ctx, callerID, accountID)
	if err != nil {
		return Member{}, err
	}
	if !acc.HasAccess(userID) {
		return Member{}, fmt.Errorf("no user with id %s: %w", userID, ErrNotFound)
	}
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return Member{}, fmt.Errorf("no user with id %s: %w", userID, err)
	}
	return memberOf(acc, u), nil
}

// AddUserByEmail grants an existing user access to the account.
func (s *Service) AddUserByEmail(ctx context.Context, callerID, accountID, email string, role Role) error {
	if role != RoleAdmin && role != RoleUser {
		return ErrInvalidRole
	}
	if _, err := s.RequireAdmin(ctx, callerID, accountID); err != nil {
		return err
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("no user with email %s: %w", email, err)
	}
	if err := s.GrantAccess(ctx, accountID, u.ID, role == RoleAdmin); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "member added", logger.AccountID(accountID), logger.UserID(u.ID))
	return nil
}

func memberOf(acc Account, u User) Member {
	role, _ := acc.RoleOf(u.ID)
	m := Member{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		PhotoURL:    u.PhotoURL,
		Role:        role,
	}
	if !u.LastLoginTime.IsZero() {
		m.LastLoginTime = u.LastLoginTime.UnixMilli()
	}
	return m
}
