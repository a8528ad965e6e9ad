// Copyright 2025 Nhat-Nguyen Nguyen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package middleware

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"strings"
	"sync"

	"datingapp/modules/middleware/problem"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	nethttpmiddleware "github.com/oapi-codegen/nethttp-middleware"
)

// FieldViolation is one parameter or body field rejected by the document.
type FieldViolation struct {
	Field  string
	Reason string
}

type docKey struct {
	fsys fs.FS
	path string
}

type docEntry struct {
	doc *openapi3.T
	err error
}

var (
	docsMu sync.Mutex
	docs   = map[docKey]docEntry{}
)

// LoadDocument reads and validates an OpenAPI document once per (fsys, path).
func LoadDocument(ctx context.Context, fsys fs.FS, path string) (*openapi3.T, error) {
	key := docKey{fsys: fsys, path: path}

	docsMu.Lock()
	defer docsMu.Unlock()
	if e, ok := docs[key]; ok {
		return e.doc, e.err
	}

	doc, err := loadDocument(ctx, fsys, path)
	docs[key] = docEntry{doc: doc, err: err}
	return doc, err
}

func loadDocument(ctx context.Context, fsys fs.FS, path string) (*openapi3.T, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, err
	}
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, err
	}
	return doc, nil
}

// OpenAPIValidation checks parameters and JSON bodies against doc before the
// router sees the request. Requests for paths the document does not describe
// are rejected with 404.
func OpenAPIValidation(doc *openapi3.T) func(http.Handler) http.Handler {
	opts := &nethttpmiddleware.Options{
		Options: openapi3filter.Options{
			MultiError:         true,
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		},
		DoNotValidateServers:  true,
		SilenceServersWarning: true,
		ErrorHandlerWithOpts: func(ctx context.Context, err error, w http.ResponseWriter, r *http.Request, eo nethttpmiddleware.ErrorHandlerOpts) {
			status := eo.StatusCode
			if status == 0 {
				status = http.StatusBadRequest
			}
			if bodyViolation(err) {
				status = http.StatusUnprocessableEntity
			}

			popts := []problem.Option{problem.WithStatus(status), problem.WithInstance(r.URL.Path)}
			if status == http.StatusBadRequest || status == http.StatusUnprocessableEntity {
				for _, v := range Violations(err) {
					popts = append(popts, problem.WithInvalidParam(v.Field, v.Reason))
				}
			}
			detail := "request does not match the API contract"
			switch status {
			case http.StatusNotFound:
				detail = "no such route"
			case http.StatusMethodNotAllowed:
				detail = "method not allowed"
			}
			problem.Write(w, problem.New(append(popts, problem.WithDetail(detail))...))
		},
	}
	return nethttpmiddleware.OapiRequestValidatorWithOptions(doc, opts)
}

// Violations flattens a validation error into per-field reasons. Reasons never
// echo request input back.
func Violations(err error) []FieldViolation {
	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		var out []FieldViolation
		for _, item := range multi {
			out = append(out, Violations(item)...)
		}
		return out
	}
	return []FieldViolation{violation(err)}
}

func violation(err error) FieldViolation {
	var re *openapi3filter.RequestError
	if errors.As(err, &re) {
		var se *openapi3.SchemaError
		if errors.As(re.Err, &se) {
			if re.Parameter != nil {
				return FieldViolation{Field: re.Parameter.Name, Reason: se.Reason}
			}
			return FieldViolation{Field: topLevelField(se.JSONPointer()), Reason: se.Reason}
		}
		var multi openapi3.MultiError
		if errors.As(re.Err, &multi) && len(multi) > 0 {
			v := violation(multi[0])
			if re.Parameter != nil {
				v.Field = re.Parameter.Name
			}
			return v
		}
		if re.Parameter != nil {
			return FieldViolation{Field: re.Parameter.Name, Reason: safeReason(re.Reason)}
		}
		return FieldViolation{Field: "body", Reason: safeReason(re.Reason)}
	}

	var se *openapi3.SchemaError
	if errors.As(err, &se) {
		return FieldViolation{Field: topLevelField(se.JSONPointer()), Reason: se.Reason}
	}
	return FieldViolation{Field: "request", Reason: "invalid value"}
}

func topLevelField(pointer []string) string {
	if len(pointer) == 0 || pointer[0] == "" {
		return "body"
	}
	return pointer[0]
}

// bodyViolation reports whether err is about a well-formed but invalid body.
func bodyViolation(err error) bool {
	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		for _, item := range multi {
			if bodyViolation(item) {
				return true
			}
		}
		return false
	}
	var re *openapi3filter.RequestError
	if errors.As(err, &re) {
		if re.RequestBody == nil {
			return false
		}
		var se *openapi3.SchemaError
		return errors.As(re.Err, &se) || errors.As(re.Err, &multi)
	}
	var se *openapi3.SchemaError
	return errors.As(err, &se)
}

func safeReason(reason string) string {
	lower := strings.ToLower(reason)
	switch {
	case reason == "":
		return "invalid value"
	case strings.Contains(lower, "must be one of"):
		return reason
	case strings.Contains(lower, "doesn't match schema"):
		return "doesn't match schema"
	case strings.Contains(lower, "required"):
		return "is required"
	default:
		return "invalid value"
	}
}
