// Package dedup keeps a short-lived record of processed payment-provider
// deliveries in Redis so retried webhooks and IPN messages are applied once.
package dedup
