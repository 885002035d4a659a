package agent

import "github.com/convoke/convoke/core"

// State names one node of the per-turn state machine.
type State string

const (
	// StateReasoning is the initial state of every turn.
	StateReasoning State = "reasoning"
	// StateSkillExecution runs the skill selected by reasoning.
	StateSkillExecution State = "skill_execution"
	// StateResponseFormulation produces the user-facing reply.
	StateResponseFormulation State = "response_formulation"
	// StateEnd is the terminal state.
	StateEnd State = "end"
)

// Transition is the pure transition function of the state machine. After
// reasoning the turn visits skill execution only when a skill was selected;
// skill execution always proceeds to response formulation, which always
// ends the turn.
func Transition(s State, state *core.ConversationState) State {
	switch s {
	case StateReasoning:
		if state.CurrentSkill != nil {
			return StateSkillExecution
		}
		return StateResponseFormulation
	case StateSkillExecution:
		return StateResponseFormulation
	case StateResponseFormulation:
		return StateEnd
	default:
		return StateEnd
	}
}
