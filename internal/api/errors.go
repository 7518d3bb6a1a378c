package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/samcharles93/headliner/internal/decode"
)

var ErrInvalidRequest = errors.New("invalid_request")

type invalidRequestError struct {
	msg   string
	param string
}

func (e invalidRequestError) Error() string {
	return e.msg
}

func (e invalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

func newInvalidRequest(param, msg string) error {
	return invalidRequestError{msg: msg, param: param}
}

// errorStatus maps a generation error to its HTTP status and envelope type.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, decode.ErrInvalidConfig):
		return http.StatusBadRequest, "invalid_request_error"
	case errors.Is(err, decode.ErrScorer):
		return http.StatusBadGateway, "upstream_error"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout_error"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}

// errorParam names the request field an error refers to, if any.
func errorParam(err error) string {
	var ir invalidRequestError
	if errors.As(err, &ir) {
		return ir.param
	}
	var ce *decode.ConfigError
	if errors.As(err, &ce) {
		return ce.Field
	}
	return ""
}
