// Package apierr is the normalized error model of the request pipeline.
//
// Every failure the pipeline sees, whatever its shape, is converted into one
// or more *Error values by From before it is placed on a response. An Error
// always carries an HTTP status; Code, Title, Source and Meta are optional
// and end up verbatim in the error document.
package apierr

import (
	"fmt"
	"maps"
	"strconv"
)

// Source points at the part of the request that caused an Error.
type Source struct {
	Pointer   string `json:"pointer,omitempty"`
	Parameter string `json:"parameter,omitempty"`
	Header    string `json:"header,omitempty"`
}

// Error is one API error.
//
// Mutation helpers (WithX) return a shallow copy so values can be shared
// between goroutines and reused as templates.
type Error struct {
	Kind   Kind
	Status int
	Code   string
	Title  string
	Detail string
	Source *Source
	Meta   map[string]any

	// Cause is the wrapped underlying failure, if any. It never reaches the
	// rendered document.
	Cause error
}

// E builds an Error of kind k with the kind's default status.
//
//	apierr.E(apierr.KindNotFound, `no resource type "people" is registered`,
//	    apierr.WithCode("type_not_found"),
//	)
func E(k Kind, detail string, opts ...Option) *Error {
	e := &Error{Kind: k, Status: k.Status(), Detail: detail}
	for _, opt := range opts {
		e = opt(e)
	}
	return e
}

// New builds an Error from a bare status, picking the Kind via KindForStatus.
func New(status int, detail string, opts ...Option) *Error {
	return E(KindForStatus(status), detail, append([]Option{WithStatus(status)}, opts...)...)
}

// Error implements the error interface.
//
// Format: "<status> <code>: <detail>", code omitted when empty.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Detail
	if msg == "" {
		msg = e.Title
	}
	if e.Code != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("%d: %s", e.Status, msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// StatusText returns the status as the decimal string used in documents.
func (e *Error) StatusText() string {
	return strconv.Itoa(e.Status)
}

func (e *Error) WithStatus(status int) *Error {
	cp := *e
	if status > 0 {
		cp.Status = status
	}
	return &cp
}

func (e *Error) WithCode(code string) *Error {
	cp := *e
	cp.Code = code
	return &cp
}

func (e *Error) WithTitle(title string) *Error {
	cp := *e
	cp.Title = title
	return &cp
}

func (e *Error) WithDetail(detail string) *Error {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithSource returns a copy of e pointing at src. The Source is copied too.
func (e *Error) WithSource(src Source) *Error {
	cp := *e
	cp.Source = &src
	return &cp
}

// WithMeta returns a copy of e with k=v merged into Meta. The map is always
// copied, never written in place.
func (e *Error) WithMeta(k string, v any) *Error {
	cp := *e
	m := make(map[string]any, len(cp.Meta)+1)
	maps.Copy(m, cp.Meta)
	m[k] = v
	cp.Meta = m
	return &cp
}

// WithCause returns a copy of e wrapping err. A nil err returns e unchanged.
func (e *Error) WithCause(err error) *Error {
	if err == nil {
		return e
	}
	cp := *e
	cp.Cause = err
	return &cp
}
