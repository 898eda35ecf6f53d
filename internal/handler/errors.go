package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/Riddimental/Backend-Noctra/internal/domain"
	"github.com/Riddimental/Backend-Noctra/pkg/response"
)

var kindStatus = map[domain.Kind]int{
	domain.KindValidation:        http.StatusBadRequest,
	domain.KindConflict:          http.StatusConflict,
	domain.KindNotFound:          http.StatusNotFound,
	domain.KindSoldOut:           http.StatusConflict,
	domain.KindInvalidTransition: http.StatusConflict,
	domain.KindAuthorization:     http.StatusForbidden,
	domain.KindInfrastructure:    http.StatusServiceUnavailable,
}

// statusForKind returns the HTTP status of a domain error kind
func statusForKind(k domain.Kind) int {
	if status, ok := kindStatus[k]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// errorResponse converts any error returned by a service into a status and body.
// Infrastructure and unknown errors never leak their cause to the client.
func errorResponse(err error) (int, *response.Response) {
	var de *domain.Error
	if errors.As(err, &de) {
		status := statusForKind(de.Kind)
		switch de.Kind {
		case domain.KindInfrastructure:
			return status, response.ServiceUnavailable("")
		case domain.KindUnknown:
			return status, response.InternalError("")
		}
		if de.Field != "" {
			return status, response.ErrorWithDetails(de.Code, de.Message, map[string]string{"field": de.Field})
		}
		return status, response.Error(de.Code, de.Message)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, response.Error(response.ErrCodeTimeout, "request timed out")
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, response.ServiceUnavailable("request cancelled")
	}
	return http.StatusInternalServerError, response.InternalError("")
}
