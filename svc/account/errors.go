package account

import "errors"

// Error taxonomy shared by every service in the module. Callers match with
// errors.Is; messages are what the API caller eventually sees.
var (
	ErrPermissionDenied            = errors.New("permission denied")
	ErrNotFound                    = errors.New("not found")
	ErrAlreadyMember               = errors.New("user already has access to the account")
	ErrInvalidInvite               = errors.New("invalid invite details")
	ErrInviteExpired               = errors.New("invite has expired")
	ErrEntitlementDenied           = errors.New("missing entitlement")
	ErrVerificationFailed          = errors.New("event verification failed")
	ErrExternalProvider            = errors.New("payment provider error")
	ErrMissingPriceConfiguration   = errors.New("no price id attached to the plan")
	ErrReconciliationTargetMissing = errors.New("no account references the external id")

	ErrInvalidRole       = errors.New("invalid role or action")
	ErrConcurrentUpdate  = errors.New("account was modified concurrently, retries exhausted")
	ErrInvalidAccountArg = errors.New("invalid account arguments")
)
