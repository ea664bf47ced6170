// Package jwt issues and verifies HS256 tokens that carry the caller identity
// (user id, email, display name) for the account and billing API.
package jwt
