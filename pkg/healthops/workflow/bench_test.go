package workflow

import (
	"context"
	"testing"

	"github.com/randalmurphal/healthops/pkg/flowgraph"
	"github.com/randalmurphal/healthops/pkg/flowgraph/llm"
)

func BenchmarkNew(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := New(); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkRun_Specialist measures a full turn through a specialist with
// an instant model, so the cost is graph execution, merging and prompts.
func BenchmarkRun_Specialist(b *testing.B) {
	benchmarkRun(b, "patient flow", "Findings:\n- ER busy", "Summary.\nRecommendations:\n- open overflow")
}

func BenchmarkRun_General(b *testing.B) {
	benchmarkRun(b, "hello", "Hi there.")
}

func benchmarkRun(b *testing.B, responses ...string) {
	w, err := New()
	if err != nil {
		b.Fatal(err)
	}
	mock := llm.NewMockClient("").WithResponses(responses...)
	ctx := flowgraph.NewContext(context.Background(), flowgraph.WithLLM(mock))
	initial := turn("How is the ER?")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mock.Reset()
		if _, err := w.Run(ctx, initial); err != nil {
			b.Fatal(err)
		}
	}
}
