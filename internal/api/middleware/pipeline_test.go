package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/usergate/internal/api/shared"
	"github.com/phrazzld/usergate/internal/failure"
	"github.com/phrazzld/usergate/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordingStage(name string, calls *[]string) Interceptor {
	return InterceptorFunc{StageName: name, Fn: func(w http.ResponseWriter, r *http.Request, next Next) error {
		*calls = append(*calls, name+":in")
		err := next(w, r)
		*calls = append(*calls, name+":out")
		return err
	}}
}

func TestPipelineRunsStagesInOrder(t *testing.T) {
	log, _ := logger.GetTestLogger(t)
	var calls []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "handler")
	})

	p := NewPipeline(handler, log,
		recordingStage("first", &calls),
		nil,
		recordingStage("second", &calls),
	)
	p.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"first", "second"}, p.Stages())
	assert.Equal(t, []string{"first:in", "second:in", "handler", "second:out", "first:out"}, calls)
}

func TestPipelineAssignsCorrelationID(t *testing.T) {
	var seen string
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.GetTraceID(r.Context())
	}))

	rec := h.serve(httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Len(t, seen, 32)
	assert.Equal(t, seen, rec.Header().Get(CorrelationIDHeader))
}

func TestPipelineRecoversHandlerPanic(t *testing.T) {
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("nil map write in handler")
	}))

	rec := h.serve(httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, CategoryInternal, resp.Error)
	assert.NotContains(t, rec.Body.String(), "nil map write")

	entries := h.logs.EntriesWithMessage("request failed")
	require.Len(t, entries, 1)
	assert.Equal(t, "nil map write in handler", entries[0]["panic"])
	assert.NotEmpty(t, entries[0]["stack"])
}

func TestPipelineRecoversStagePanic(t *testing.T) {
	log, buf := logger.GetTestLogger(t)
	exploding := InterceptorFunc{StageName: "exploding", Fn: func(http.ResponseWriter, *http.Request, Next) error {
		panic(errors.New("stage blew up"))
	}}

	p := NewPipeline(okHandler("unreachable"), log, NewBoundary(), exploding)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	logger.AssertLogContains(t, buf, "stage blew up")
}

func TestPipelineRepanicsAbortHandler(t *testing.T) {
	log, _ := logger.GetTestLogger(t)
	p := NewPipeline(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}), log, NewBoundary())

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		p.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestPipelineLogsFailureWithoutBoundary(t *testing.T) {
	log, buf := logger.GetTestLogger(t)
	p := NewPipeline(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ReportError(w, r, errors.New("orphaned failure"))
	}), log)

	p.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Len(t, buf.EntriesWithMessage("unhandled pipeline failure"), 1)
}

func TestReportErrorFirstWins(t *testing.T) {
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ReportError(w, r, failure.ErrNotFound)
		ReportError(w, r, failure.ErrConflict)
		ReportError(w, r, nil)
	}))

	rec := h.serve(httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportErrorOutsidePipeline(t *testing.T) {
	rec := httptest.NewRecorder()
	ReportError(rec, httptest.NewRequest(http.MethodGet, "/", nil), failure.ErrConflict)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, CategoryConflict, decodeError(t, rec).Error)
}

func TestPanicErrorUnwrap(t *testing.T) {
	cause := errors.New("cause")
	assert.ErrorIs(t, &PanicError{Value: cause}, cause)
	assert.NoError(t, (&PanicError{Value: "text"}).Unwrap())
	assert.Equal(t, "panic: text", (&PanicError{Value: "text"}).Error())
}
