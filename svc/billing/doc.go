// Package billing implements the caller-initiated subscription flows:
// subscribe or change plan, cancel, payment method updates, payment intents
// and hosted checkout sessions.
//
// The payment processor is reached through the Processor interface;
// StripeProcessor is the production implementation and shares one Stripe
// client across the process.
//
// Subscribe follows a fixed sequence. Account, plan, tax rates and the
// entitlement decision are loaded concurrently. An account that already
// references a subscription has it retrieved; a failed retrieve falls back to
// creating a new subscription. An existing subscription is then updated to
// the new price, and a failed update is logged and reported as
// OutcomeDegraded instead of failing the request.
package billing
