package rest

import (
	"errors"
	"net/http"
	"strconv"

	"datingapp/core/member/domain"
	"datingapp/modules/api/dto"
	"datingapp/modules/api/params"
	"datingapp/modules/api/serde"
	"datingapp/modules/etag"
	"datingapp/modules/middleware/problem"

	"github.com/oapi-codegen/nullable"
)

// ifMatchVersion reads the optional If-Match header. 0 means no check.
func ifMatchVersion(r *http.Request) (int64, error) {
	h := r.Header.Get("If-Match")
	if h == "" || h == "*" {
		return 0, nil
	}
	return etag.ParseVersion(h)
}

// UpdateMember replaces the caller's profile fields.
func (a *MemberAPI) UpdateMember(w http.ResponseWriter, r *http.Request) {
	version, err := ifMatchVersion(r)
	if err != nil {
		problem.Write(w, problem.BadRequest("invalid etag format",
			problem.WithInvalidParam("If-Match", "expected \"v:<version>\""),
			problem.WithInstance(r.URL.Path),
		))
		return
	}

	var body dto.MemberUpdate
	if err := serde.DecodeValid(w, r, &body); err != nil {
		problem.Write(w, params.BodyProblem(r, err))
		return
	}

	updated, err := a.app.UpdateMember(r.Context(), domain.UpdateMemberParams{
		Username: caller(r).Username,
		Version:  version,
		Fields: domain.ProfileFields{
			Introduction: body.Introduction,
			LookingFor:   body.LookingFor,
			Interests:    body.Interests,
			City:         body.City,
			Country:      body.Country,
		},
	})
	a.writeUpdated(w, r, updated, err)
}

// ModifyMember applies a partial update: absent fields are kept and null
// fields are cleared.
func (a *MemberAPI) ModifyMember(w http.ResponseWriter, r *http.Request) {
	version, err := ifMatchVersion(r)
	if err != nil {
		problem.Write(w, problem.BadRequest("invalid etag format",
			problem.WithInvalidParam("If-Match", "expected \"v:<version>\""),
			problem.WithInstance(r.URL.Path),
		))
		return
	}

	var body dto.MemberPatch
	if err := serde.DecodeValid(w, r, &body); err != nil {
		problem.Write(w, params.BodyProblem(r, err))
		return
	}

	patch := domain.MemberPatch{
		Username:     caller(r).Username,
		Version:      version,
		Introduction: patchField(body.Introduction),
		LookingFor:   patchField(body.LookingFor),
		Interests:    patchField(body.Interests),
		City:         patchField(body.City),
		Country:      patchField(body.Country),
	}
	if patch.Empty() {
		problem.Write(w, problem.UnprocessableEntity("validation failed",
			problem.WithInvalidParam("body", "no fields to update"),
			problem.WithInstance(r.URL.Path),
		))
		return
	}

	updated, err := a.app.ModifyMember(r.Context(), patch)
	a.writeUpdated(w, r, updated, err)
}

func patchField(n nullable.Nullable[string]) domain.PatchField {
	switch {
	case !n.IsSpecified():
		return domain.PatchField{}
	case n.IsNull():
		return domain.PatchField{Set: true, Null: true}
	default:
		return domain.PatchField{Set: true, Value: n.MustGet()}
	}
}

// writeUpdated answers 204 with the new ETag, or 412 with the current one.
func (a *MemberAPI) writeUpdated(w http.ResponseWriter, r *http.Request, updated *domain.Member, err error) {
	if err != nil {
		if errors.Is(err, domain.ErrPrecondition) {
			if latest, gerr := a.app.GetMember(r.Context(), caller(r).Username, true); gerr == nil {
				w.Header().Set("ETag", strconv.Quote(etag.ETag(latest)))
			}
		}
		problem.Write(w, ProblemFromDomainError(r, err))
		return
	}
	w.Header().Set("ETag", strconv.Quote(etag.ETag(updated)))
	w.WriteHeader(http.StatusNoContent)
}
