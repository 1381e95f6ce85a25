package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// StatusCoder is implemented by foreign errors that know their HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// From converts any failure value into one or more Errors. It is total:
// nil, errors of any type, strings, error-like maps and slices of all of
// these are accepted, and the result always has at least one element.
//
// Slices flatten element-wise; errors.Join trees flatten the same way.
// Values of unrecognized shape become a KindInternal error whose detail is
// the value's fmt representation.
func From(v any) []*Error {
	switch t := v.(type) {
	case nil:
		return []*Error{unknown()}
	case *Error:
		if t == nil {
			return []*Error{unknown()}
		}
		return []*Error{t}
	case Error:
		return []*Error{&t}
	case []*Error:
		return flatten(len(t), func(i int) any { return t[i] })
	case []error:
		return flatten(len(t), func(i int) any { return t[i] })
	case []any:
		return flatten(len(t), func(i int) any { return t[i] })
	case error:
		return fromError(t)
	case string:
		return []*Error{E(KindInternal, t)}
	case map[string]any:
		return []*Error{fromMap(t)}
	case fmt.Stringer:
		return []*Error{E(KindInternal, t.String())}
	default:
		return []*Error{E(KindInternal, fmt.Sprint(v))}
	}
}

// FirstStatus returns the status of the first error, or 500 when errs is
// empty. Only the first error is consulted.
func FirstStatus(errs []*Error) int {
	if len(errs) == 0 || errs[0] == nil || errs[0].Status <= 0 {
		return http.StatusInternalServerError
	}
	return errs[0].Status
}

func unknown() *Error {
	return E(KindInternal, "an unknown error occurred")
}

func flatten(n int, at func(int) any) []*Error {
	if n == 0 {
		return []*Error{unknown()}
	}
	out := make([]*Error, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, From(at(i))...)
	}
	return out
}

func fromError(err error) []*Error {
	if multi, ok := err.(interface{ Unwrap() []error }); ok {
		if errs := multi.Unwrap(); len(errs) > 0 {
			return flatten(len(errs), func(i int) any { return errs[i] })
		}
	}
	var ae *Error
	if errors.As(err, &ae) && ae != nil {
		return []*Error{ae}
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		st := sc.StatusCode()
		if st >= 400 && st < 600 {
			return []*Error{New(st, err.Error(), WithCause(err))}
		}
	}
	return []*Error{E(KindInternal, err.Error(), WithCause(err))}
}

// fromMap accepts error-object shaped maps such as the ones user hooks build
// from decoded JSON: {"status": "404", "code": "...", "detail": "..."}.
func fromMap(m map[string]any) *Error {
	status := http.StatusInternalServerError
	switch s := m["status"].(type) {
	case int:
		status = s
	case float64:
		status = int(s)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			status = n
		}
	}
	if status < 400 || status > 599 {
		status = http.StatusInternalServerError
	}
	str := func(k string) string {
		if v, ok := m[k].(string); ok {
			return v
		}
		return ""
	}
	detail := str("detail")
	if detail == "" {
		detail = str("message")
	}
	if detail == "" {
		detail = fmt.Sprint(m)
	}
	e := New(status, detail)
	if c := str("code"); c != "" {
		e = e.WithCode(c)
	}
	if t := str("title"); t != "" {
		e = e.WithTitle(t)
	}
	return e
}
