package handler

import (
	"errors"
	"net/http"
)

var ErrNilResponse = errors.New("handler returned nil response")

// HTTPError carries a status code and a machine-readable code for the caller.
type HTTPError struct {
	Status int
	Code   string
	Err    error
}

func (e HTTPError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Status)
}

func (e HTTPError) Unwrap() error { return e.Err }

func BadRequest(err error) HTTPError {
	return HTTPError{Status: http.StatusBadRequest, Code: "invalid_argument", Err: err}
}

func Unauthorized(err error) HTTPError {
	return HTTPError{Status: http.StatusUnauthorized, Code: "unauthenticated", Err: err}
}
