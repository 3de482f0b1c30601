package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/healthops/pkg/flowgraph"
	fgerrors "github.com/randalmurphal/healthops/pkg/flowgraph/errors"
	"github.com/randalmurphal/healthops/pkg/flowgraph/llm"
	"github.com/randalmurphal/healthops/pkg/healthops/conversation"
	"github.com/randalmurphal/healthops/pkg/healthops/nodes"
	"github.com/randalmurphal/healthops/pkg/healthops/state"
	"github.com/randalmurphal/healthops/pkg/healthops/store"
	"github.com/randalmurphal/healthops/pkg/healthops/workflow"
)

// scripted answers the classifier with classification and every other
// call with a fixed analysis.
func scripted(classification string) *llm.MockClient {
	return llm.NewMockClient("").WithCompleteFunc(func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		if strings.Contains(req.SystemPrompt, "Current input:") {
			return &llm.CompletionResponse{Content: classification}, nil
		}
		return &llm.CompletionResponse{Content: "Summary line.\nRecommendations:\n- Act on it"}, nil
	})
}

func newAgent(t *testing.T, client llm.Client, opts ...Option) *Agent {
	t.Helper()
	a, err := New(client, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestProcess(t *testing.T) {
	mock := scripted("patient flow issue")
	a := newAgent(t, mock)

	start := time.Now()
	resp, err := a.Process(context.Background(), Request{ThreadID: "t1", Input: "How full is the ER?"})
	require.NoError(t, err)

	assert.Equal(t, "t1", resp.ThreadID)
	assert.Equal(t, "Summary line.\nRecommendations:\n- Act on it", resp.Response)
	assert.Equal(t, state.TaskPatientFlow, resp.Task)
	assert.Equal(t, state.PriorityMedium, resp.Priority)
	require.NotNil(t, resp.Analysis)
	assert.Equal(t, []string{"Act on it"}, resp.Analysis.Recommendations)
	assert.Equal(t, 300, resp.Metrics.PatientFlow.TotalBeds)
	assert.False(t, resp.Timestamp.Before(start))
	assert.Equal(t, 3, mock.CallCount())

	history, err := a.GetConversationHistory(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, state.RoleUser, history[0].Role)
	assert.Equal(t, "How full is the ER?", history[0].Content)
	assert.Equal(t, nodes.PatientFlow, history[1].Name)
	assert.Equal(t, nodes.OutputSynthesizer, history[2].Name)
}

func TestProcess_RejectsBlankInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t"} {
		mock := scripted("general")
		a := newAgent(t, mock)

		_, err := a.Process(context.Background(), Request{ThreadID: "t1", Input: input})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, CodeInputValidation, ve.Code)
		assert.Equal(t, input, ve.Details["provided_input"])
		assert.Zero(t, mock.CallCount())

		threads, err := a.Threads(context.Background())
		require.NoError(t, err)
		assert.Empty(t, threads)
	}
}

func TestProcess_GeneratesThreadID(t *testing.T) {
	a := newAgent(t, scripted("general"))

	resp, err := a.Process(context.Background(), Request{Input: "hello"})
	require.NoError(t, err)
	_, err = uuid.Parse(resp.ThreadID)
	assert.NoError(t, err)

	other, err := a.Process(context.Background(), Request{Input: "hello"})
	require.NoError(t, err)
	assert.NotEqual(t, resp.ThreadID, other.ThreadID)
}

func TestProcess_MultiTurn(t *testing.T) {
	a := newAgent(t, scripted("general"))
	ctx := context.Background()

	_, err := a.Process(ctx, Request{ThreadID: "t1", Input: "first"})
	require.NoError(t, err)
	_, err = a.Process(ctx, Request{ThreadID: "t1", Input: "second"})
	require.NoError(t, err)

	history, err := a.GetConversationHistory(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, "first", history[0].Content)
	assert.Equal(t, "second", history[2].Content)
}

func TestProcess_FailureLeavesThreadUntouched(t *testing.T) {
	ctx := context.Background()
	boom := fgerrors.Transient(errors.New("rate limited"), "model call")

	fail := false
	mock := llm.NewMockClient("").WithCompleteFunc(func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		if fail {
			return nil, boom
		}
		return &llm.CompletionResponse{Content: "general chat"}, nil
	})
	a := newAgent(t, mock)

	_, err := a.Process(ctx, Request{ThreadID: "t1", Input: "first"})
	require.NoError(t, err)

	fail = true
	_, err = a.Process(ctx, Request{ThreadID: "t1", Input: "second"})
	var pe *ProcessingError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, CodeProcessing, pe.Code)
	assert.Equal(t, nodes.InputAnalyzer, pe.NodeID)
	assert.Equal(t, "*errors.errorString", pe.CauseType)
	assert.True(t, pe.Retryable())
	assert.ErrorIs(t, err, boom)

	history, err := a.GetConversationHistory(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, history, 2, "failed turn must not be committed")
	assert.Equal(t, "first", history[0].Content)
}

func TestProcess_NodePanic(t *testing.T) {
	panicky := nodes.Func(func(flowgraph.Context, state.State) (state.Update, error) {
		panic("boom")
	})
	w, err := workflow.New(workflow.WithNode(nodes.OutputSynthesizer, panicky))
	require.NoError(t, err)

	a := newAgent(t, scripted("general"), WithWorkflow(w))
	_, err = a.Process(context.Background(), Request{ThreadID: "t1", Input: "hi"})

	var pe *ProcessingError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, CodeProcessing, pe.Code)
	assert.Equal(t, nodes.OutputSynthesizer, pe.NodeID)
	assert.ErrorIs(t, err, flowgraph.ErrNodePanicked)
}

func TestProcess_ContextAndMetrics(t *testing.T) {
	mock := scripted("resource question")
	a := newAgent(t, mock)

	occupied := 270
	resp, err := a.Process(context.Background(), Request{
		ThreadID: "t1",
		Input:    "Can we afford more gloves?",
		Context:  map[string]any{"budget_info": "Supply budget 80% spent", "shift": "night"},
		Metrics: &state.MetricsPatch{
			PatientFlow: &state.PatientFlowPatch{OccupiedBeds: &occupied},
			Resources:   &state.ResourcePatch{SupplyLevels: map[string]float64{"gloves": 0.1}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 270, resp.Metrics.PatientFlow.OccupiedBeds)
	assert.Equal(t, map[string]float64{"gloves": 0.1}, resp.Metrics.Resources.SupplyLevels)

	var resourcePrompt string
	for _, call := range mock.Calls {
		if len(call.Messages) > 0 && strings.Contains(call.Messages[0].Content, "Evaluate resource utilization") {
			resourcePrompt = call.Messages[0].Content
		}
	}
	assert.Contains(t, resourcePrompt, "Supply budget 80% spent")
	assert.Contains(t, resourcePrompt, "gloves: 10% (critical)")
}

func TestProcess_RejectsInvalidMetrics(t *testing.T) {
	mock := scripted("general")
	a := newAgent(t, mock)

	negative := -1
	_, err := a.Process(context.Background(), Request{
		ThreadID: "t1",
		Input:    "hi",
		Metrics:  &state.MetricsPatch{Resources: &state.ResourcePatch{PendingRequests: &negative}},
	})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, CodeStateValidation, ve.Code)
	assert.ErrorIs(t, err, state.ErrInvalidState)
	assert.Zero(t, mock.CallCount())
}

func TestResetConversation(t *testing.T) {
	ctx := context.Background()
	a := newAgent(t, scripted("general"))

	_, err := a.Process(ctx, Request{ThreadID: "t1", Input: "hi"})
	require.NoError(t, err)

	ok, err := a.ResetConversation(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, ok)

	history, err := a.GetConversationHistory(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, history)

	// Resetting an unknown thread also succeeds.
	ok, err = a.ResetConversation(ctx, "never-seen")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGetConversationHistory_Unknown(t *testing.T) {
	a := newAgent(t, scripted("general"))
	history, err := a.GetConversationHistory(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestProcess_ConcurrentSameThread(t *testing.T) {
	a := newAgent(t, scripted("general"))
	ctx := context.Background()

	const turns = 10
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := a.Process(ctx, Request{ThreadID: "shared", Input: "ping"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	history, err := a.GetConversationHistory(ctx, "shared")
	require.NoError(t, err)
	assert.Len(t, history, turns*2)
	assert.Zero(t, a.locks.size())
}

type failingStore struct {
	*store.MemoryStore
	err error
}

func (f failingStore) Save(context.Context, string, []byte, int) (int, error) {
	return 0, f.err
}

func TestProcess_StoreError(t *testing.T) {
	boom := errors.New("disk full")
	reg := conversation.NewRegistry(failingStore{MemoryStore: store.NewMemoryStore(), err: boom})
	a := newAgent(t, scripted("general"), WithRegistry(reg))

	_, err := a.Process(context.Background(), Request{ThreadID: "t1", Input: "hi"})
	var pe *ProcessingError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, CodeStore, pe.Code)
	assert.ErrorIs(t, err, boom)
}

func TestNew_RequiresClient(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestWrapRunError_Unexpected(t *testing.T) {
	err := wrapRunError(errors.New("odd"))
	var pe *ProcessingError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, CodeUnexpected, pe.Code)
	assert.Empty(t, pe.NodeID)
	assert.Equal(t, "*errors.errorString", pe.CauseType)
}
