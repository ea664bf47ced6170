package api

import (
	"github.com/dmitrymomot/accountbilling/handler"
	"github.com/dmitrymomot/accountbilling/svc/account"
)

type createAccountRequest struct {
	Name string `json:"name"`
}

func (s *server) createAccount(ctx handler.Context, req createAccountRequest) handler.Response {
	caller, err := callerFrom(ctx)
	if err != nil {
		return handler.Error(err)
	}
	acc, err := s.Accounts.CreateAccount(ctx, caller.ID, req.Name)
	if err != nil {
		return fail(err)
	}
	return handler.Success(map[string]any{"accountId": acc.ID})
}

type accountPath struct {
	AccountID string `path:"accountID"`
}

func (s *server) listUsers(ctx handler.Context, req accountPath) handler.Response {
	caller, err := callerFrom(ctx)
	if err != nil {
		return handler.Error(err)
	}
	members, err := s.Accounts.ListUsers(ctx, caller.ID, req.AccountID)
	if err != nil {
		return fail(err)
	}
	return handler.Success(map[string]any{"users": members})
}

type memberPath struct {
	AccountID string `path:"accountID"`
	UserID    string `path:"userID"`
}

func (s *server) getUser(ctx handler.Context, req memberPath) handler.Response {
	caller, err := callerFrom(ctx)
	if err != nil {
		return handler.Error(err)
	}
	member, err := s.Accounts.GetUser(ctx, caller.ID, req.AccountID, req.UserID)
	if err != nil {
		return fail(err)
	}
	return handler.Success(map[string]any{"user": member})
}

type changeRoleRequest struct {
	AccountID string       `path:"accountID" json:"-"`
	UserID    string       `path:"userID" json:"-"`
	Role      account.Role `json:"role"`
}

func (s *server) changeRole(ctx handler.Context, req changeRoleRequest) handler.Response {
	caller, err := callerFrom(ctx)
	if err != nil {
		return handler.Error(err)
	}
	if err := s.Accounts.ChangeRole(ctx, caller.ID, req.AccountID, req.UserID, req.Role); err != nil {
		return fail(err)
	}
	return handler.Success(nil)
}

type addUserRequest struct {
	AccountID string       `path:"accountID" json:"-"`
	Email     string       `json:"email"`
	Role      account.Role `json:"role"`
}

func (s *server) addUser(ctx handler.Context, req addUserRequest) handler.Response {
	caller, err := callerFrom(ctx)
	if err != nil {
		return handler.Error(err)
	}
	if err := s.Accounts.AddUserByEmail(ctx, caller.ID, req.AccountID, req.Email, req.Role); err != nil {
		return fail(err)
	}
	return handler.Success(nil)
}
