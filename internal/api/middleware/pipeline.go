// Package middleware implements the request pipeline: an explicit, ordered
// list of interceptors driven by a fixed loop around the route handler.
//
// The standard order, outermost first, is
//
//	Boundary -> AuditRecorder -> Tracing -> SecurityHeaders -> CORS -> RateLimit -> Authenticator -> handler
//
// Every stage receives the request and a Next continuation and returns an
// error. The driver converts panics from any stage into *PanicError values,
// so the outermost Boundary sees every failure as an ordinary error.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"

	"github.com/phrazzld/usergate/internal/api/shared"
	"github.com/phrazzld/usergate/internal/platform/logger"
)

// CorrelationIDHeader carries the request's correlation id on every response.
const CorrelationIDHeader = "X-Correlation-ID"

// Next continues the pipeline with the next stage.
type Next func(w http.ResponseWriter, r *http.Request) error

// Interceptor is one pipeline stage. It may short-circuit by writing a
// response and returning nil without calling next.
type Interceptor interface {
	Name() string
	Intercept(w http.ResponseWriter, r *http.Request, next Next) error
}

// InterceptorFunc adapts a function to the Interceptor interface.
type InterceptorFunc struct {
	StageName string
	Fn        func(w http.ResponseWriter, r *http.Request, next Next) error
}

// Name implements Interceptor.
func (f InterceptorFunc) Name() string { return f.StageName }

// Intercept implements Interceptor.
func (f InterceptorFunc) Intercept(w http.ResponseWriter, r *http.Request, next Next) error {
	return f.Fn(w, r, next)
}

// PanicError is a recovered panic from a stage or the handler.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes a panic value that is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Pipeline runs its stages in order around a handler.
type Pipeline struct {
	stages  []Interceptor
	handler http.Handler
	logger  *slog.Logger
}

// NewPipeline creates a pipeline. Stages run in the order given, the first
// one outermost. Nil stages are skipped.
func NewPipeline(handler http.Handler, log *slog.Logger, stages ...Interceptor) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	kept := make([]Interceptor, 0, len(stages))
	for _, s := range stages {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Pipeline{stages: kept, handler: handler, logger: log}
}

// Stages returns the stage names in execution order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// ServeHTTP assigns the correlation id, then drives the stages.
func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	traceID := shared.NewTraceID()
	ctx := shared.WithTraceID(r.Context(), traceID)
	ctx = logger.WithLogger(ctx, p.logger.With(slog.String("trace_id", traceID)))
	r = r.WithContext(ctx)

	w.Header().Set(CorrelationIDHeader, traceID)

	if err := p.run(0, w, r); err != nil {
		// Only reachable when the outermost stage itself fails.
		p.logger.Error("unhandled pipeline failure",
			slog.String("error", err.Error()),
			slog.String("trace_id", traceID),
			slog.String("path", r.URL.Path),
			slog.String("method", r.Method))
	}
}

func (p *Pipeline) run(i int, w http.ResponseWriter, r *http.Request) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			err = &PanicError{Value: rec, Stack: debug.Stack()}
		}
	}()

	if i == len(p.stages) {
		return serveHandler(p.handler, w, r)
	}
	return p.stages[i].Intercept(w, r, func(w http.ResponseWriter, r *http.Request) error {
		return p.run(i+1, w, r)
	})
}

// failureSlot holds the first error a handler reports.
type failureSlot struct {
	mu  sync.Mutex
	err error
}

type failureSlotKey struct{}

func serveHandler(h http.Handler, w http.ResponseWriter, r *http.Request) error {
	slot := &failureSlot{}
	h.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), failureSlotKey{}, slot)))

	slot.mu.Lock()
	defer slot.mu.Unlock()
	return slot.err
}

// ReportError hands a handler failure to the pipeline, which classifies it
// after the handler returns. The handler must not write a response after
// calling it. The first reported error wins. Outside a pipeline the failure
// is classified and written immediately.
func ReportError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}
	slot, ok := r.Context().Value(failureSlotKey{}).(*failureSlot)
	if !ok {
		WriteFailure(w, r, err)
		return
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()
	if slot.err == nil {
		slot.err = err
	}
}
