package api

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/accountbilling/handler"
	"github.com/dmitrymomot/accountbilling/svc/account"
	"github.com/dmitrymomot/accountbilling/svc/reconcile"
)

var ErrNoCaller = errors.New("request has no authenticated caller")

var errorCodes = []struct {
	target error
	status int
	code   string
}{
	{account.ErrVerificationFailed, http.StatusBadRequest, "verification_failed"},
	{reconcile.ErrMalformedEvent, http.StatusBadRequest, "invalid_argument"},
	{account.ErrPermissionDenied, http.StatusForbidden, "permission_denied"},
	{account.ErrEntitlementDenied, http.StatusForbidden, "entitlement_denied"},
	{account.ErrInvalidInvite, http.StatusBadRequest, "invalid_invite"},
	{account.ErrInviteExpired, http.StatusGone, "invite_expired"},
	{account.ErrAlreadyMember, http.StatusConflict, "already_exists"},
	{account.ErrInvalidRole, http.StatusBadRequest, "invalid_argument"},
	{account.ErrInvalidAccountArg, http.StatusBadRequest, "invalid_argument"},
	{account.ErrMissingPriceConfiguration, http.StatusUnprocessableEntity, "failed_precondition"},
	{account.ErrExternalProvider, http.StatusBadGateway, "provider_error"},
	{account.ErrNotFound, http.StatusNotFound, "not_found"},
}

// classify attaches an HTTP status and code to domain errors. The message
// stays the domain error text; unknown errors become 500 "internal".
func classify(err error) error {
	var httpErr handler.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}
	for _, c := range errorCodes {
		if errors.Is(err, c.target) {
			return handler.HTTPError{Status: c.status, Code: c.code, Err: err}
		}
	}
	return err
}

func fail(err error) handler.Response {
	return handler.Error(classify(err))
}
