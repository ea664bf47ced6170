// Package httpserver runs the API's http.Server until the process context is
// cancelled and exposes the readiness handler used by /healthz.
package httpserver
