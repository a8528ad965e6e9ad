package rest

import (
	"net/http"
	"strconv"
	"strings"

	"datingapp/core/member/domain"
	"datingapp/modules/api/params"
	"datingapp/modules/api/serde"
	"datingapp/modules/etag"
	"datingapp/modules/middleware/problem"
	"datingapp/modules/paging"
)

// ListMembers pages through members other than the caller. Gender defaults to
// the opposite of the caller's.
func (a *MemberAPI) ListMembers(w http.ResponseWriter, r *http.Request) {
	page, err := params.Paging(r, a.maxPageSize)
	if err != nil {
		problem.Write(w, params.Problem(r, err))
		return
	}

	var (
		gender  string
		orderBy string
		minAge  = domain.DefaultMinAge
		maxAge  = domain.DefaultMaxAge
	)
	for name, dst := range map[string]any{
		"gender":  &gender,
		"orderBy": &orderBy,
		"minAge":  &minAge,
		"maxAge":  &maxAge,
	} {
		if err := params.Query(r, name, false, dst); err != nil {
			problem.Write(w, params.Problem(r, err))
			return
		}
	}

	list, err := a.app.GetMembers(r.Context(), domain.MemberParams{
		CurrentUsername: caller(r).Username,
		Gender:          domain.Gender(gender),
		MinAge:          minAge,
		MaxAge:          maxAge,
		OrderBy:         domain.OrderBy(orderBy),
		Paging:          page,
	})
	if err != nil {
		problem.Write(w, ProblemFromDomainError(r, err))
		return
	}

	paging.WriteHeader(w, list)
	serde.WriteJSON(w, http.StatusOK, paging.Map(list, MemberDTO).Items)
}

// GetMember returns one member with its photos and an ETag. The owner also
// sees photos still waiting for moderation.
func (a *MemberAPI) GetMember(w http.ResponseWriter, r *http.Request) {
	var username string
	if err := params.Path(r, "username", &username); err != nil {
		problem.Write(w, params.Problem(r, err))
		return
	}

	self := strings.EqualFold(strings.TrimSpace(username), caller(r).Username)
	m, err := a.app.GetMember(r.Context(), username, self)
	if err != nil {
		problem.Write(w, ProblemFromDomainError(r, err))
		return
	}

	tag := strconv.Quote(etag.ETag(m))
	w.Header().Set("ETag", tag)
	if r.Header.Get("If-None-Match") == tag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	serde.WriteJSON(w, http.StatusOK, MemberDTO(*m))
}
