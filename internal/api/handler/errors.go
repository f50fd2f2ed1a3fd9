package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ZertGraf/gerrit-automerge/internal/domain"
	"github.com/ZertGraf/gerrit-automerge/internal/gerrit"
	"github.com/ZertGraf/gerrit-automerge/internal/pkg/logger"
)

type ErrorCode string

const (
	CodeInvalidEvent          ErrorCode = "INVALID_EVENT"
	CodeInvalidParameter      ErrorCode = "INVALID_PARAMETER"
	CodeChangeNotFound        ErrorCode = "CHANGE_NOT_FOUND"
	CodeReviewUnavailable     ErrorCode = "REVIEW_UNAVAILABLE"
	CodeSubmitRejected        ErrorCode = "SUBMIT_REJECTED"
	CodePartialMerge          ErrorCode = "PARTIAL_MERGE"
	CodeDispatcherUnavailable ErrorCode = "DISPATCHER_UNAVAILABLE"
	CodeProcessingTimeout     ErrorCode = "PROCESSING_TIMEOUT"
	CodeInternal              ErrorCode = "INTERNAL_ERROR"
)

var ErrInvalidParameter = errors.New("invalid parameter")

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func WriteError(w http.ResponseWriter, err error, logger *logger.Logger) {
	status, response := mapError(err)

	if status < http.StatusInternalServerError || isDomainError(err) {
		logger.Warn("domain error",
			"error", err.Error(),
			"code", response.Error.Code,
		)
	} else {
		logger.Error("unexpected error",
			"error", err.Error(),
		)
	}

	writeJSON(w, status, response, logger)
}

func mapError(err error) (int, ErrorResponse) {
	detail := func(code ErrorCode) ErrorResponse {
		return ErrorResponse{Error: ErrorDetail{Code: code, Message: err.Error()}}
	}

	switch {
	case errors.Is(err, domain.ErrInvalidEvent):
		return http.StatusBadRequest, detail(CodeInvalidEvent)

	case errors.Is(err, ErrInvalidParameter):
		return http.StatusBadRequest, detail(CodeInvalidParameter)

	// a partial merge may also carry not-found member errors, so it goes first
	case errors.Is(err, domain.ErrPartialMerge):
		return http.StatusInternalServerError, detail(CodePartialMerge)

	case errors.Is(err, domain.ErrChangeNotFound):
		return http.StatusNotFound, detail(CodeChangeNotFound)

	case errors.Is(err, gerrit.ErrSubmitRejected):
		return http.StatusConflict, detail(CodeSubmitRejected)

	case errors.Is(err, domain.ErrReviewUnavailable):
		return http.StatusBadGateway, detail(CodeReviewUnavailable)

	case errors.Is(err, domain.ErrDispatcherStopped),
		errors.Is(err, domain.ErrDispatcherBusy):
		return http.StatusServiceUnavailable, detail(CodeDispatcherUnavailable)

	// the event keeps running in the dispatcher; only the caller stopped waiting
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout, ErrorResponse{
			Error: ErrorDetail{
				Code:    CodeProcessingTimeout,
				Message: "event accepted but still processing when the request ended",
			},
		}

	default:
		return http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    CodeInternal,
				Message: "internal server error",
			},
		}
	}
}

func isDomainError(err error) bool {
	return errors.Is(err, domain.ErrChangeNotFound) ||
		errors.Is(err, domain.ErrReviewUnavailable) ||
		errors.Is(err, domain.ErrPartialMerge) ||
		errors.Is(err, domain.ErrDispatcherStopped) ||
		errors.Is(err, domain.ErrDispatcherBusy) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
