package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/tabinico/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names, not Go ones.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads the request body into dst and validates it.
// Every failure wraps domain.ErrValidation except an oversized body, which
// keeps its *http.MaxBytesError.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return fmt.Errorf("%w: request body is required", domain.ErrValidation)
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return err
		}
		return fmt.Errorf("%w: malformed JSON body: %v", domain.ErrValidation, err)
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrValidation, describe(verrs[0]))
	}
	return fmt.Errorf("%w: %v", domain.ErrValidation, err)
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "url":
		return field + " must be a URL"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, fe.Param())
	}
	return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
}

// pathParam binds a simple-style path parameter.
func pathParam(r *http.Request, name string, dst any) error {
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), dst,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false})
	if err != nil {
		return fmt.Errorf("%w: invalid path parameter %s: %v", domain.ErrValidation, name, err)
	}
	return nil
}

// queryParam binds a form-style query parameter. Optional parameters should
// bind into a pointer so absence stays distinguishable from the zero value.
func queryParam(r *http.Request, name string, required bool, dst any) error {
	if err := runtime.BindQueryParameter("form", true, required, name, r.URL.Query(), dst); err != nil {
		return fmt.Errorf("%w: invalid query parameter %s: %v", domain.ErrValidation, name, err)
	}
	return nil
}

// nullable distinguishes an absent JSON field from an explicit null.
type nullable[T any] struct {
	Set   bool
	Value *T
}

func (n *nullable[T]) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}
