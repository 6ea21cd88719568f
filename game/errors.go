package game

import (
	stderrors "errors"

	"github.com/openturf/turfkit/apiclient"
	"github.com/openturf/turfkit/connectivity"
	apperrors "github.com/openturf/turfkit/errors"
)

// toAppError translates pipeline and connectivity failures into the
// shared error vocabulary, so embedders switch on stable codes instead
// of transport details. The original error stays on the cause chain.
func toAppError(err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, connectivity.ErrQueueCleared) {
		return apperrors.New(apperrors.ErrCodeOffline, "queued request discarded").WithCause(err)
	}

	var apiErr *apiclient.Error
	if !stderrors.As(err, &apiErr) {
		return apperrors.Internal(err.Error()).WithCause(err)
	}

	code := apperrors.ErrCodeInternal
	switch {
	case apiErr.Code == apiclient.ErrCodeTimeout:
		code = apperrors.ErrCodeTimeout
	case apiErr.Code == apiclient.ErrCodeConnection:
		code = apperrors.ErrCodeConnectionFailed
	case apiErr.Code == apiclient.ErrCodeAuth:
		code = apperrors.ErrCodeUnauthorized
	case apiErr.Code == apiclient.ErrCodeRateLimit:
		code = apperrors.ErrCodeRateLimited
	case apiErr.Code == apiclient.ErrCodeCircuitOpen:
		code = apperrors.ErrCodeServiceUnavailable
	case apiErr.StatusCode == 404:
		code = apperrors.ErrCodeNotFound
	case apiErr.StatusCode == 409:
		code = apperrors.ErrCodeConflict
	case apiErr.Code == apiclient.ErrCodeClient:
		code = apperrors.ErrCodeInvalidInput
	case apiErr.Code == apiclient.ErrCodeServer:
		code = apperrors.ErrCodeServiceUnavailable
	}

	return apperrors.New(code, apiErr.Message).
		WithCause(apiErr).
		WithDetail("status", apiErr.StatusCode)
}
