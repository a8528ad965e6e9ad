// Package params binds query and path parameters the way the OpenAPI
// document declares them.
package params

import (
	"errors"
	"net/http"

	"datingapp/modules/api/serde"
	"datingapp/modules/middleware/problem"
	"datingapp/modules/paging"

	"github.com/oapi-codegen/runtime"
)

// Error names the parameter that failed to bind.
type Error struct {
	Name string
	Err  error
}

func (e *Error) Error() string { return e.Name + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Query binds a form-style, exploded query parameter. An absent optional
// parameter leaves dst untouched.
func Query(r *http.Request, name string, required bool, dst any) error {
	if err := runtime.BindQueryParameter("form", true, required, name, r.URL.Query(), dst); err != nil {
		return &Error{Name: name, Err: err}
	}
	return nil
}

// Path binds a simple-style path parameter of the matched route pattern.
func Path(r *http.Request, name string, dst any) error {
	err := runtime.BindStyledParameterWithOptions("simple", name, r.PathValue(name), dst, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return &Error{Name: name, Err: err}
	}
	return nil
}

// Paging reads pageNumber and pageSize and clamps them to maxSize.
func Paging(r *http.Request, maxSize int) (paging.Params, error) {
	var number, size int
	if err := Query(r, "pageNumber", false, &number); err != nil {
		return paging.Params{}, err
	}
	if err := Query(r, "pageSize", false, &size); err != nil {
		return paging.Params{}, err
	}
	return paging.NewParams(number, size, maxSize), nil
}

// Problem turns a binding error into a 400 naming the parameter.
func Problem(r *http.Request, err error) *problem.Problem {
	name := "request"
	var perr *Error
	if errors.As(err, &perr) {
		name = perr.Name
	}
	return problem.BadRequest("invalid request parameter(s)",
		problem.WithInvalidParam(name, "invalid value"),
		problem.WithInstance(r.URL.Path),
	)
}

// BodyProblem maps a decode failure to 400, an oversized body to 413 and a
// validation failure to 422.
func BodyProblem(r *http.Request, err error) *problem.Problem {
	var verr *serde.ValidationError
	if errors.As(err, &verr) {
		opts := []problem.Option{problem.WithInstance(r.URL.Path)}
		for _, f := range verr.Fields {
			opts = append(opts, problem.WithInvalidParam(f.Field, f.Reason))
		}
		return problem.UnprocessableEntity("validation failed", opts...)
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return problem.RequestEntityTooLarge("request body too large", problem.WithInstance(r.URL.Path))
	}
	return problem.BadRequest("malformed request body", problem.WithInstance(r.URL.Path))
}
