package httpadapter

import (
	"net/http"

	"github.com/docverity/docverity/internal/core/domain"
)

// mapErrorToHTTPStatus translates engine error kinds to response codes.
// Fetch failures are the upstream's fault (the image host), decode and
// unwrap failures are the caller's.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrImageDecode), domain.IsKind(err, domain.ErrHTMLUnwrap):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrImageFetch):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrVerificationNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
