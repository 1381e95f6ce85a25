// Package negotiate picks a response media type from an Accept header.
package negotiate

import (
	"errors"
	"mime"
	"strconv"
	"strings"
)

// APIMediaType is the structured API media type. Accept entries for it that
// carry parameters other than q, ext or profile are ignored.
const APIMediaType = "application/vnd.api+json"

// ErrNotAcceptable is returned when no supported type is acceptable.
var ErrNotAcceptable = errors.New("negotiate: no acceptable media type")

// Negotiator is the default negotiator. The zero value is ready to use.
type Negotiator struct{}

// Negotiate implements the pipeline's negotiation contract.
func (Negotiator) Negotiate(accept string, supported []string) (string, error) {
	return Negotiate(accept, supported)
}

type mediaRange struct {
	typ, sub string
	q        float64
}

// Negotiate returns the supported type with the highest quality in accept.
// Ties go to the type listed first in supported. An empty Accept header
// accepts the first supported type.
func Negotiate(accept string, supported []string) (string, error) {
	if len(supported) == 0 {
		return "", ErrNotAcceptable
	}
	if strings.TrimSpace(accept) == "" {
		return supported[0], nil
	}
	ranges := parseAccept(accept)

	best, bestQ := "", 0.0
	for _, s := range supported {
		typ, sub, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "/")
		if !ok {
			continue
		}
		q := quality(ranges, typ, sub)
		if q > bestQ {
			best, bestQ = s, q
		}
	}
	if best == "" {
		return "", ErrNotAcceptable
	}
	return best, nil
}

// quality returns the q of the most specific range matching typ/sub.
func quality(ranges []mediaRange, typ, sub string) float64 {
	q, specificity := 0.0, -1
	for _, r := range ranges {
		var rank int
		switch {
		case r.typ == typ && r.sub == sub:
			rank = 2
		case r.typ == typ && r.sub == "*":
			rank = 1
		case r.typ == "*" && r.sub == "*":
			rank = 0
		default:
			continue
		}
		if rank > specificity {
			q, specificity = r.q, rank
		}
	}
	return q
}

func parseAccept(accept string) []mediaRange {
	parts := strings.Split(accept, ",")
	out := make([]mediaRange, 0, len(parts))
	for _, part := range parts {
		mt, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		typ, sub, ok := strings.Cut(mt, "/")
		if !ok {
			continue
		}
		r := mediaRange{typ: typ, sub: sub, q: 1}
		if v, ok := params["q"]; ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f < 0 || f > 1 {
				continue
			}
			r.q = f
		}
		if mt == APIMediaType && hasForeignParams(params) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func hasForeignParams(params map[string]string) bool {
	for k := range params {
		switch k {
		case "q", "ext", "profile":
		default:
			return true
		}
	}
	return false
}
