// Package email sends transactional mail.
//
// Production mail goes through Postmark; setting EMAIL_DEV_DIR switches New to
// a DevSender that writes every message to disk. Bodies are built from plain
// HTML templates with {{placeholder}} substitution via Render.
package email
