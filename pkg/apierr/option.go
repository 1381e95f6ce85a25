package apierr

// Option is a functional option applied by E and New.
type Option func(*Error) *Error

func WithStatus(status int) Option {
	return func(e *Error) *Error { return e.WithStatus(status) }
}

func WithCode(code string) Option {
	return func(e *Error) *Error { return e.WithCode(code) }
}

func WithTitle(title string) Option {
	return func(e *Error) *Error { return e.WithTitle(title) }
}

// WithPointer sets Source.Pointer, a JSON pointer into the request document.
func WithPointer(pointer string) Option {
	return func(e *Error) *Error { return e.WithSource(Source{Pointer: pointer}) }
}

// WithParameter sets Source.Parameter, the offending query parameter.
func WithParameter(name string) Option {
	return func(e *Error) *Error { return e.WithSource(Source{Parameter: name}) }
}

// WithHeader sets Source.Header, the offending request header.
func WithHeader(name string) Option {
	return func(e *Error) *Error { return e.WithSource(Source{Header: name}) }
}

func WithMeta(k string, v any) Option {
	return func(e *Error) *Error { return e.WithMeta(k, v) }
}

func WithCause(err error) Option {
	return func(e *Error) *Error { return e.WithCause(err) }
}
