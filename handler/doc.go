// Package handler adapts typed request handlers to net/http.
//
// A HandlerFunc receives a bound request struct and returns a Response.
// Successful results are wrapped in {"data": ...}; failures returned through
// Error go to the ErrorHandler, which logs them and writes
// {"error":{"code":..,"message":..}}.
package handler
