package api

import (
	"errors"
	"net/http"

	"planql/internal/domain"
)

// httpStatusFromDomainError maps compiler errors to HTTP status codes.
// Resolution and validation failures are the client's problem (422);
// malformed request bodies are 400; configuration faults are 500.
func httpStatusFromDomainError(err error) int {
	var (
		unknownTable  *domain.UnknownTableError
		unknownColumn *domain.UnknownColumnError
		unresolved    *domain.UnresolvedMetricError
		invalidFilter *domain.InvalidFilterError
		invalidOrder  *domain.InvalidOrderByError
		unsafeStmt    *domain.UnsafeStatementError
		configErr     *domain.ConfigurationError
	)

	switch {
	case errors.As(err, &unknownTable),
		errors.As(err, &unknownColumn),
		errors.As(err, &unresolved),
		errors.As(err, &invalidFilter),
		errors.As(err, &invalidOrder),
		errors.As(err, &unsafeStmt):
		return http.StatusUnprocessableEntity
	case errors.As(err, &configErr):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
