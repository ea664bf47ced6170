package api

import (
	"github.com/dmitrymomot/accountbilling/handler"
	"github.com/dmitrymomot/accountbilling/svc/account"
)

type issueInviteRequest struct {
	AccountID string       `path:"accountID" json:"-"`
	Email     string       `json:"email"`
	Role      account.Role `json:"role"`
}

func (s *server) issueInvite(ctx handler.Context, req issueInviteRequest) handler.Response {
	caller, err := callerFrom(ctx)
	if err != nil {
		return handler.Error(err)
	}
	inv, err := s.Invites.Issue(ctx, caller.ID, caller.Name, req.AccountID, req.Email, req.Role)
	if err != nil {
		return fail(err)
	}
	return handler.Success(map[string]any{"inviteId": inv.ID})
}

type invitePath struct {
	InviteID string `path:"inviteID"`
}

func (s *server) resolveInvite(ctx handler.Context, req invitePath) handler.Response {
	caller, err := callerFrom(ctx)
	if err != nil {
		return handler.Error(err)
	}
	details, err := s.Invites.Resolve(ctx, req.InviteID, caller.Email)
	if err != nil {
		return fail(err)
	}
	return handler.JSON(details)
}

func (s *server) acceptInvite(ctx handler.Context, req invitePath) handler.Response {
	caller, err := callerFrom(ctx)
	if err != nil {
		return handler.Error(err)
	}
	if err := s.Invites.Accept(ctx, req.InviteID, caller.Email, caller.ID); err != nil {
		return fail(err)
	}
	return handler.Success(nil)
}
