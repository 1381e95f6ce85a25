package pipeline

import (
	"context"
	"fmt"

	"github.com/r9s-ai/open-resource-api/pkg/apierr"
)

// OutcomeKind tags the result of a Stage.
type OutcomeKind uint8

const (
	// Continue runs the next stage.
	Continue OutcomeKind = iota
	// ShortCircuit skips the remaining stages and goes straight to
	// response assembly; the stage has already filled in the response.
	ShortCircuit
	// Failed skips the remaining stages and goes to error aggregation.
	Failed
)

func (k OutcomeKind) String() string {
	switch k {
	case ShortCircuit:
		return "short_circuit"
	case Failed:
		return "failed"
	default:
		return "continue"
	}
}

// Outcome is what a Stage returns. Errors holds the raw failure values of
// a Failed outcome; they are normalized by the aggregator.
type Outcome struct {
	Kind   OutcomeKind
	Errors []any
}

func proceed() Outcome { return Outcome{Kind: Continue} }

func shortCircuit() Outcome { return Outcome{Kind: ShortCircuit} }

func fail(errs ...any) Outcome { return Outcome{Kind: Failed, Errors: errs} }

// failOn returns fail(err) when err is non-nil and proceed otherwise.
func failOn(err error) Outcome {
	if err != nil {
		return fail(err)
	}
	return proceed()
}

// Exchange is the state a Stage works on: the request, the response being
// built, and the opaque framework handles passed to Handle.
type Exchange struct {
	Request      *Request
	Response     *Response
	FrameworkReq any
	FrameworkRes any
}

// Stage is one step of the pipeline.
type Stage struct {
	Name string
	Run  func(ctx context.Context, ex *Exchange) Outcome
}

// runStages runs stages in order until one does not Continue. A panicking
// stage is reported as a Failed outcome.
func runStages(ctx context.Context, stages []Stage, ex *Exchange) (string, Outcome) {
	for _, st := range stages {
		out := runStage(ctx, st, ex)
		if out.Kind != Continue {
			return st.Name, out
		}
	}
	return "", proceed()
}

func runStage(ctx context.Context, st Stage, ex *Exchange) (out Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			out = fail(apierr.E(apierr.KindInternal, "internal error in stage "+st.Name,
				apierr.WithCause(fmt.Errorf("panic: %v", rec)),
			))
		}
	}()
	return st.Run(ctx, ex)
}
