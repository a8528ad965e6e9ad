package rest

import (
	"errors"
	"net/http"

	"datingapp/core/member/domain"
	"datingapp/modules/middleware/problem"
)

// ProblemFromDomainError maps member sentinel errors to RFC 7807 problems.
func ProblemFromDomainError(r *http.Request, err error) *problem.Problem {
	at := problem.WithInstance(r.URL.Path)
	switch {
	case errors.Is(err, domain.ErrMemberNotFound), errors.Is(err, domain.ErrPhotoNotFound):
		return problem.NotFound(err.Error(), at)
	case errors.Is(err, domain.ErrPhotoIsMain),
		errors.Is(err, domain.ErrAlreadyMain),
		errors.Is(err, domain.ErrUnsupportedImage):
		return problem.BadRequest(err.Error(), at)
	case errors.Is(err, domain.ErrInvalidData):
		return problem.BadRequest("invalid request", at)
	case errors.Is(err, domain.ErrPrecondition):
		return problem.PreconditionFailed(err.Error(), at)
	default:
		return problem.Internal("server error", at)
	}
}
