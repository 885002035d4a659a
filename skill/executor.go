package skill

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/convoke/convoke/core"
	"github.com/convoke/convoke/logging"
)

// Implementation is the bound behavior of a skill. It receives the
// normalized parameters and the call context and may fail with an error; the
// executor converts every failure into an error SkillResult.
type Implementation func(ctx context.Context, params map[string]any, skill *core.Skill, agentID, conversationID string) (any, error)

// Executor dispatches skill executions: registry lookup, validation,
// implementation invocation with panic recovery, and uniform result capture.
// Nothing escapes the executor boundary as a raised error.
type Executor struct {
	registry  *Registry
	validator *Validator
	logger    logging.Logger

	mu    sync.RWMutex
	impls map[string]Implementation
}

// NewExecutor creates an Executor over the registry.
func NewExecutor(registry *Registry, logger logging.Logger) *Executor {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Executor{
		registry:  registry,
		validator: NewValidator(),
		logger:    logger,
		impls:     map[string]Implementation{},
	}
}

// Bind attaches an implementation to a skill ID. Explicit binding is the
// only discovery mechanism; rebinding replaces the previous implementation.
func (e *Executor) Bind(skillID string, impl Implementation) {
	e.mu.Lock()
	e.impls[skillID] = impl
	e.mu.Unlock()
}

// Bound reports whether the skill has an implementation.
func (e *Executor) Bound(skillID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.impls[skillID]
	return ok
}

// Execute runs one skill execution and always returns a SkillResult, success
// or error. The result is persisted for audit on a best-effort basis.
func (e *Executor) Execute(ctx context.Context, exec core.SkillExecution) *core.SkillResult {
	start := time.Now()
	result := e.run(ctx, exec)
	result.Metadata = map[string]any{
		"agent_id":        exec.AgentID,
		"conversation_id": exec.ConversationID,
		"duration_ms":     time.Since(start).Milliseconds(),
	}

	if err := e.registry.StoreResult(ctx, result); err != nil {
		e.logger.Warn("failed to persist skill result", "skill_id", exec.SkillID, "error", err)
	}

	logging.SkillCall(e.logger, exec.SkillID, time.Since(start), result.Error)
	return result
}

func (e *Executor) run(ctx context.Context, exec core.SkillExecution) (result *core.SkillResult) {
	defer func() {
		if r := recover(); r != nil {
			result = core.NewSkillError(exec.SkillID, fmt.Sprintf("skill implementation panicked: %v", r))
		}
	}()

	sk, err := e.registry.Get(ctx, exec.SkillID)
	if err != nil {
		return core.NewSkillError(exec.SkillID, err.Error())
	}

	validation := e.validator.Validate(sk, exec.Parameters)
	if !validation.Valid {
		return core.NewSkillError(exec.SkillID, "parameter validation failed: "+validation.ErrorSummary())
	}

	e.mu.RLock()
	impl, ok := e.impls[exec.SkillID]
	e.mu.RUnlock()
	if !ok {
		return core.NewSkillError(exec.SkillID, fmt.Sprintf("no implementation bound for skill %q", exec.SkillID))
	}

	payload, err := impl(ctx, validation.Params, sk, exec.AgentID, exec.ConversationID)
	if err != nil {
		return core.NewSkillError(exec.SkillID, err.Error())
	}
	return core.NewSkillResult(exec.SkillID, payload)
}
