package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

type statusErr struct{ code int }

func (e statusErr) Error() string   { return fmt.Sprintf("status %d", e.code) }
func (e statusErr) StatusCode() int { return e.code }

type label string

func (l label) String() string { return "label:" + string(l) }

func TestE_DefaultStatusPerKind(t *testing.T) {
	require.Equal(t, http.StatusNotFound, E(KindNotFound, "x").Status)
	require.Equal(t, http.StatusUnsupportedMediaType, E(KindUnsupportedMedia, "x").Status)
	require.Equal(t, http.StatusNotAcceptable, E(KindNegotiation, "x").Status)
	require.Equal(t, http.StatusInternalServerError, E(Kind("bogus"), "x").Status)

	e := E(KindValidation, "method", WithStatus(http.StatusMethodNotAllowed), WithCode("method_not_allowed"))
	require.Equal(t, http.StatusMethodNotAllowed, e.Status)
	require.Equal(t, "405 method_not_allowed: method", e.Error())
}

func TestError_CopyOnWrite(t *testing.T) {
	e1 := E(KindMalformed, "bad").WithMeta("a", 1)
	e2 := e1.WithMeta("b", 2).WithSource(Source{Pointer: "/data"})

	require.Len(t, e1.Meta, 1)
	require.Len(t, e2.Meta, 2)
	require.Nil(t, e1.Source)
	require.Equal(t, "/data", e2.Source.Pointer)
}

func TestError_Unwrap(t *testing.T) {
	root := errors.New("root")
	e := E(KindInternal, "x", WithCause(root))
	require.ErrorIs(t, e, root)

	var target *Error
	require.ErrorAs(t, fmt.Errorf("wrapped: %w", e), &target)
	require.Same(t, e, target)
}

func TestFrom_Total(t *testing.T) {
	cases := []struct {
		name   string
		in     any
		n      int
		status int
	}{
		{"nil", nil, 1, 500},
		{"nil api error", (*Error)(nil), 1, 500},
		{"api error", E(KindNotFound, "gone"), 1, 404},
		{"api error value", *E(KindConflict, "dup"), 1, 409},
		{"plain error", errors.New("boom"), 1, 500},
		{"status coder", statusErr{code: 403}, 1, 403},
		{"status coder out of range", statusErr{code: 200}, 1, 500},
		{"string", "boom", 1, 500},
		{"stringer", label("x"), 1, 500},
		{"int", 42, 1, 500},
		{"map", map[string]any{"status": "422", "detail": "d", "code": "c"}, 1, 422},
		{"map float status", map[string]any{"status": float64(404)}, 1, 404},
		{"empty slice", []any{}, 1, 500},
		{"mixed slice", []any{E(KindNotFound, "a"), "b", errors.New("c")}, 3, 404},
		{"error slice", []error{errors.New("a"), E(KindMalformed, "b")}, 2, 500},
		{"nested slice", []any{[]any{E(KindForbidden, "a"), 1}, "x"}, 3, 403},
		{"joined", errors.Join(E(KindMalformed, "a"), E(KindNotFound, "b")), 2, 400},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := From(tc.in)
			require.Len(t, out, tc.n)
			for _, e := range out {
				require.NotNil(t, e)
			}
			require.Equal(t, tc.status, FirstStatus(out))
		})
	}
}

func TestFrom_KeepsDetailAndCause(t *testing.T) {
	root := errors.New("disk on fire")
	out := From(root)
	require.Equal(t, "disk on fire", out[0].Detail)
	require.ErrorIs(t, out[0], root)

	out = From(label("x"))
	require.Equal(t, "label:x", out[0].Detail)
	require.Equal(t, KindInternal, out[0].Kind)
}

func TestFirstStatus_FirstErrorWins(t *testing.T) {
	errs := []*Error{E(KindMalformed, "a"), E(KindNotFound, "b"), E(KindInternal, "c")}
	require.Equal(t, http.StatusBadRequest, FirstStatus(errs))
	require.Equal(t, http.StatusInternalServerError, FirstStatus(nil))
}

func TestKindForStatus(t *testing.T) {
	require.Equal(t, KindNotFound, KindForStatus(404))
	require.Equal(t, KindValidation, KindForStatus(418))
	require.Equal(t, KindInternal, KindForStatus(503))
}
