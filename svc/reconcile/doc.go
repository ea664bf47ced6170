// Package reconcile applies provider-initiated payment events to accounts.
//
// Stripe deliveries arrive signed and are verified, deduplicated by event id
// and applied synchronously by StripeWebhook. PayPal IPN deliveries carry no
// signature: IPNIngress only persists them to the task queue and returns, and
// IPNProcessor, running in the queue worker, verifies each one by posting it
// back to PayPal before touching any account.
//
// Both paths locate the account through its SubscriptionRef (Stripe) or the
// account id embedded in the payload (PayPal). A missing account fails the
// delivery so the provider or the queue retries it.
package reconcile
