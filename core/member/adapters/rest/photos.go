package rest

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"path"

	"datingapp/modules/api/params"
	"datingapp/modules/api/serde"
	"datingapp/modules/middleware/problem"

	"github.com/gofrs/uuid/v5"
)

// AddPhoto stores the multipart "file" part for the caller.
func (a *MemberAPI) AddPhoto(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			problem.Write(w, problem.RequestEntityTooLarge("photo too large", problem.WithInstance(r.URL.Path)))
			return
		}
		problem.Write(w, problem.BadRequest("a multipart \"file\" part is required",
			problem.WithInvalidParam("file", "is required"),
			problem.WithInstance(r.URL.Path),
		))
		return
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	contentType, content, err := sniffContentType(file)
	if err != nil {
		problem.Write(w, problem.BadRequest("could not read the uploaded file", problem.WithInstance(r.URL.Path)))
		return
	}

	username := caller(r).Username
	photo, err := a.app.AddPhoto(r.Context(), username, header.Filename, contentType, content)
	if err != nil {
		problem.Write(w, ProblemFromDomainError(r, err))
		return
	}

	w.Header().Set("Location", path.Join("/api/users", username))
	serde.WriteJSON(w, http.StatusCreated, PhotoDTO(*photo))
}

// sniffContentType ignores the declared part type and detects it from the
// first 512 bytes, which the returned reader replays.
func sniffContentType(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, err
	}
	head = head[:n]
	return http.DetectContentType(head), io.MultiReader(bytes.NewReader(head), r), nil
}

func (a *MemberAPI) SetMainPhoto(w http.ResponseWriter, r *http.Request) {
	var id uuid.UUID
	if err := params.Path(r, "photoId", &id); err != nil {
		problem.Write(w, params.Problem(r, err))
		return
	}
	if err := a.app.SetMainPhoto(r.Context(), caller(r).Username, id); err != nil {
		problem.Write(w, ProblemFromDomainError(r, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *MemberAPI) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	var id uuid.UUID
	if err := params.Path(r, "photoId", &id); err != nil {
		problem.Write(w, params.Problem(r, err))
		return
	}
	if err := a.app.DeletePhoto(r.Context(), caller(r).Username, id); err != nil {
		problem.Write(w, ProblemFromDomainError(r, err))
		return
	}
	w.WriteHeader(http.StatusOK)
}
