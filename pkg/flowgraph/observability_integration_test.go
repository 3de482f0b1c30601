package flowgraph

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// captureHandler records slog records as maps, including attrs added
// with Logger.With.
type captureHandler struct {
	mu      sync.Mutex
	records []map[string]any
	shared  *captureHandler
	attrs   []slog.Attr
}

func newCaptureLogger(h *captureHandler) *slog.Logger {
	h.shared = h
	return slog.New(h)
}

func (h *captureHandler) root() *captureHandler {
	if h.shared != nil {
		return h.shared
	}
	return h
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	data := map[string]any{
		"level": r.Level.String(),
		"msg":   r.Message,
	}
	for _, a := range h.attrs {
		data[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		data[a.Key] = a.Value.Any()
		return true
	})

	root := h.root()
	root.mu.Lock()
	root.records = append(root.records, data)
	root.mu.Unlock()
	return nil
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &captureHandler{
		shared: h.root(),
		attrs:  append(append([]slog.Attr(nil), h.attrs...), attrs...),
	}
}

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

func (h *captureHandler) all() []map[string]any {
	root := h.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	return append([]map[string]any(nil), root.records...)
}

func (h *captureHandler) find(msg string) map[string]any {
	for _, r := range h.all() {
		if r["msg"] == msg {
			return r
		}
	}
	return nil
}

// TestRun_WithObservabilityLogger tests run and node lifecycle logging.
func TestRun_WithObservabilityLogger(t *testing.T) {
	h := &captureHandler{}
	compiled, err := triageGraph(classifyAs("supplies")).Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), Triage{}, WithObservabilityLogger(newCaptureLogger(h)))
	require.NoError(t, err)

	var msgs []string
	for _, r := range h.all() {
		msgs = append(msgs, r["msg"].(string))
	}
	assert.Equal(t, []string{
		"workflow run starting",
		"node starting", "node completed",
		"node starting", "node completed",
		"node starting", "node completed",
		"workflow run completed",
	}, msgs)

	done := h.find("workflow run completed")
	assert.EqualValues(t, 3, done["nodes_executed"])
}

// TestRun_LogsFailureWithLastNode tests the failure log.
func TestRun_LogsFailureWithLastNode(t *testing.T) {
	h := &captureHandler{}
	compiled, err := NewGraph[Triage]().
		AddNode("classify", makeFailingNode(errors.New("empty question"))).
		AddEdge("classify", END).
		SetEntry("classify").
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), Triage{}, WithObservabilityLogger(newCaptureLogger(h)))
	require.Error(t, err)

	failed := h.find("workflow run failed")
	require.NotNil(t, failed)
	assert.Equal(t, "classify", failed["last_node"])
	assert.NotNil(t, h.find("node failed"))
}

// TestRun_NodeLoggerIsEnriched tests that ctx.Logger() carries run and node IDs.
func TestRun_NodeLoggerIsEnriched(t *testing.T) {
	h := &captureHandler{}
	logNode := func(ctx Context, s Triage) (Triage, error) {
		ctx.Logger().Info("inside node")
		return s, nil
	}
	compiled, err := NewGraph[Triage]().
		AddNode("patient_flow", logNode).
		AddEdge("patient_flow", END).
		SetEntry("patient_flow").
		Compile()
	require.NoError(t, err)

	ctx := NewContext(context.Background(), WithLogger(newCaptureLogger(h)), WithContextRunID("run-1"))
	_, err = compiled.Run(ctx, Triage{})
	require.NoError(t, err)

	rec := h.find("inside node")
	require.NotNil(t, rec)
	assert.Equal(t, "run-1", rec["run_id"])
	assert.Equal(t, "patient_flow", rec["node_id"])
	assert.EqualValues(t, 1, rec["attempt"])
}

// TestRun_WithMetrics tests that node and run metrics reach the provider.
func TestRun_WithMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	original := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	t.Cleanup(func() {
		otel.SetMeterProvider(original)
		_ = provider.Shutdown(context.Background())
	})

	compiled, err := triageGraph(classifyAs("beds")).Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), Triage{}, WithMetrics(true))
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	assert.True(t, names["healthops.node.executions"])
	assert.True(t, names["healthops.workflow.runs"])
}

// TestRun_WithTracing tests that node spans nest under the run span and
// that work started inside a node sees the node span.
func TestRun_WithTracing(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})

	tracer := tp.Tracer("test")
	child := func(ctx Context, s Triage) (Triage, error) {
		_, span := tracer.Start(ctx, "model.call")
		span.End()
		return s, nil
	}

	compiled, err := NewGraph[Triage]().
		AddNode("classify", child).
		AddEdge("classify", END).
		SetEntry("classify").
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), Triage{}, WithTracing(true), WithGraphName("triage"))
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 3)

	byName := map[string]tracetest.SpanStub{}
	for _, s := range spans {
		byName[s.Name] = s
	}
	run, ok := byName["healthops.run"]
	require.True(t, ok)
	node, ok := byName["healthops.node.classify"]
	require.True(t, ok)
	call, ok := byName["model.call"]
	require.True(t, ok)

	assert.Equal(t, run.SpanContext.SpanID(), node.Parent.SpanID())
	assert.Equal(t, node.SpanContext.SpanID(), call.Parent.SpanID())
}
