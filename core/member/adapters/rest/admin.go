package rest

import (
	"context"
	"net/http"

	"datingapp/modules/api/dto"
	"datingapp/modules/api/params"
	"datingapp/modules/api/serde"
	"datingapp/modules/middleware/problem"

	"github.com/gofrs/uuid/v5"
)

func (a *MemberAPI) PhotosToModerate(w http.ResponseWriter, r *http.Request) {
	photos, err := a.app.GetUnapprovedPhotos(r.Context())
	if err != nil {
		problem.Write(w, ProblemFromDomainError(r, err))
		return
	}
	out := make([]dto.PhotoForApproval, len(photos))
	for i, p := range photos {
		out[i] = photoForApprovalDTO(p)
	}
	serde.WriteJSON(w, http.StatusOK, out)
}

func (a *MemberAPI) ApprovePhoto(w http.ResponseWriter, r *http.Request) {
	a.moderate(w, r, a.app.ApprovePhoto)
}

func (a *MemberAPI) RejectPhoto(w http.ResponseWriter, r *http.Request) {
	a.moderate(w, r, a.app.RejectPhoto)
}

func (a *MemberAPI) moderate(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID) error) {
	var id uuid.UUID
	if err := params.Path(r, "photoId", &id); err != nil {
		problem.Write(w, params.Problem(r, err))
		return
	}
	if err := op(r.Context(), id); err != nil {
		problem.Write(w, ProblemFromDomainError(r, err))
		return
	}
	w.WriteHeader(http.StatusOK)
}
