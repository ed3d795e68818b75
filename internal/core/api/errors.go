package api

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/rulekeeper/internal/types"
)

// Error kinds are matched with errors.Is, never by message text.
//
//   NoSuchRule                  404  NotFound
//   Duplicate                   400  AlreadyExists
//   EvaluationFailure           400  InvalidArgument
//   malformed body / batch size 400  InvalidArgument
//   body over max_body_bytes    413  InvalidArgument
//   deadline exceeded           504  DeadlineExceeded
//   cancelled                   503  Canceled
//   Unknown and anything else   500  Internal

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error ErrorMessage `json:"error"`
}

// ErrorMessage carries the human-readable error.
type ErrorMessage struct {
	Message string `json:"message"`
}

func newErrorResponse(err error) ErrorResponse {
	return ErrorResponse{Error: ErrorMessage{Message: err.Error()}}
}

// errBadRequest marks decoding failures of request bodies and parameters.
var errBadRequest = errors.New("bad request")

type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string {
	return e.err.Error()
}

func (e *badRequestError) Unwrap() error {
	return e.err
}

func (e *badRequestError) Is(target error) bool {
	return target == errBadRequest
}

func badRequest(err error) error {
	return &badRequestError{err: err}
}

// HTTPStatus maps an API error to its HTTP status code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, types.ErrNoSuchRule):
		return http.StatusNotFound
	case errors.As(err, new(*http.MaxBytesError)):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, types.ErrDuplicateRule),
		errors.Is(err, types.ErrEvaluationFailed),
		errors.Is(err, types.ErrBatchTooLarge),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GRPCStatus maps an API error to a gRPC status error.
func GRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	var code codes.Code
	switch {
	case errors.Is(err, types.ErrNoSuchRule):
		code = codes.NotFound
	case errors.Is(err, types.ErrDuplicateRule):
		code = codes.AlreadyExists
	case errors.Is(err, types.ErrEvaluationFailed),
		errors.Is(err, types.ErrBatchTooLarge),
		errors.Is(err, errBadRequest):
		code = codes.InvalidArgument
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}
