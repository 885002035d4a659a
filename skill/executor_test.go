package skill

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoke/convoke/core"
	"github.com/convoke/convoke/logging"
)

func newTestExecutor(t *testing.T) (*Executor, *Registry) {
	t.Helper()
	r := newTestRegistry()
	require.NoError(t, r.Register(context.Background(), FinanceSkill()))
	return NewExecutor(r, logging.NoOpLogger{}), r
}

func TestExecuteSuccess(t *testing.T) {
	ctx := context.Background()
	e, r := newTestExecutor(t)
	e.Bind("finance", func(_ context.Context, params map[string]any, _ *core.Skill, _, _ string) (any, error) {
		return map[string]any{"symbol": params["symbol"], "price": 123.45}, nil
	})

	res := e.Execute(ctx, core.SkillExecution{
		SkillID:    "finance",
		Parameters: map[string]any{"symbol": "AAPL"},
		AgentID:    "agent-1",
	})
	require.True(t, res.OK())
	payload := res.Result.(map[string]any)
	assert.Equal(t, "AAPL", payload["symbol"])

	// result is persisted for audit
	stored, err := r.GetResult(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusSuccess, stored.Status)
}

func TestExecuteImplementationError(t *testing.T) {
	e, _ := newTestExecutor(t)
	e.Bind("finance", func(context.Context, map[string]any, *core.Skill, string, string) (any, error) {
		return nil, errors.New("provider down")
	})

	res := e.Execute(context.Background(), core.SkillExecution{
		SkillID:    "finance",
		Parameters: map[string]any{"symbol": "AAPL"},
	})
	assert.Equal(t, core.StatusError, res.Status)
	assert.Contains(t, res.Error, "provider down")
}

func TestExecutePanicRecovered(t *testing.T) {
	e, _ := newTestExecutor(t)
	e.Bind("finance", func(context.Context, map[string]any, *core.Skill, string, string) (any, error) {
		panic("boom")
	})

	res := e.Execute(context.Background(), core.SkillExecution{
		SkillID:    "finance",
		Parameters: map[string]any{"symbol": "AAPL"},
	})
	assert.Equal(t, core.StatusError, res.Status)
	assert.Contains(t, res.Error, "panicked")
}

func TestExecuteValidationFailure(t *testing.T) {
	e, _ := newTestExecutor(t)
	e.Bind("finance", func(context.Context, map[string]any, *core.Skill, string, string) (any, error) {
		t.Fatal("implementation must not run on invalid parameters")
		return nil, nil
	})

	res := e.Execute(context.Background(), core.SkillExecution{SkillID: "finance"})
	assert.Equal(t, core.StatusError, res.Status)
	assert.Contains(t, res.Error, "validation")
}

func TestExecuteUnknownSkill(t *testing.T) {
	e, _ := newTestExecutor(t)
	res := e.Execute(context.Background(), core.SkillExecution{SkillID: "nope"})
	assert.Equal(t, core.StatusError, res.Status)
	assert.Contains(t, res.Error, "not found")
}

func TestExecuteUnboundSkill(t *testing.T) {
	e, _ := newTestExecutor(t)
	res := e.Execute(context.Background(), core.SkillExecution{
		SkillID:    "finance",
		Parameters: map[string]any{"symbol": "AAPL"},
	})
	assert.Equal(t, core.StatusError, res.Status)
	assert.Contains(t, res.Error, "no implementation bound")
}
