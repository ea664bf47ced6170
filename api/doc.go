// Package api exposes the account, invitation and billing services over
// HTTP and receives Stripe and PayPal notifications.
//
// Caller routes live under /v1 and require a bearer token; provider webhooks
// live under /webhooks and authenticate by signature or verification
// round-trip instead.
package api
