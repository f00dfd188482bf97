package api

import (
	"errors"
	"net/http"

	"weekcal/internal/apperr"
)

// Classify turns a client error into an apperr failure. Errors that are
// already classified pass through; 401 means the credential went stale.
func Classify(msg string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if StatusCode(err) == http.StatusUnauthorized {
		return apperr.Auth(msg, err)
	}
	return apperr.Network(msg, err)
}

// ShareTokenRejected reports whether err is the service refusing a share
// token, as opposed to a transport failure.
func ShareTokenRejected(err error) bool {
	switch StatusCode(err) {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusGone:
		return true
	}
	return false
}
