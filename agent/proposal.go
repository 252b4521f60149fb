package agent

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/tobhei/docuchat/structured"
)

// Proposal is the parsed form of a Thinking step: either a tool invocation
// or a final answer. The closed set keeps loop transitions explicit instead
// of string-sniffing model output downstream.
type Proposal interface{ isProposal() }

// ToolCallProposal asks the loop to dispatch a named tool.
type ToolCallProposal struct {
	Name  string
	Input string
}

func (ToolCallProposal) isProposal() {}

// FinalAnswer ends the loop with the given text.
type FinalAnswer struct {
	Text string
}

func (FinalAnswer) isProposal() {}

const finalAnswerAction = "final answer"

// parseProposal interprets raw model text. The expected shape is a JSON
// object {"action": <tool name or "Final Answer">, "action_input": ...};
// the object is isolated with the string-aware scanner so surrounding prose
// is tolerated. Text without a usable object is treated as a final answer.
func parseProposal(text string) Proposal {
	if candidate, ok := structured.FirstObject(text); ok {
		action := gjson.Get(candidate, "action")
		if action.Exists() {
			name := strings.TrimSpace(action.String())
			input := actionInput(gjson.Get(candidate, "action_input"))
			if strings.EqualFold(name, finalAnswerAction) {
				return FinalAnswer{Text: input}
			}
			if name != "" {
				return ToolCallProposal{Name: name, Input: input}
			}
		}
	}

	// Some models emit the react-style text form even when asked for JSON.
	if idx := strings.LastIndex(text, "Final Answer:"); idx >= 0 {
		return FinalAnswer{Text: strings.TrimSpace(text[idx+len("Final Answer:"):])}
	}

	return FinalAnswer{Text: strings.TrimSpace(text)}
}

// actionInput renders action_input as a string; structured inputs are
// passed to tools as compact JSON.
func actionInput(v gjson.Result) string {
	if !v.Exists() {
		return ""
	}
	if v.Type == gjson.String {
		return v.String()
	}
	var compact any
	if err := json.Unmarshal([]byte(v.Raw), &compact); err == nil {
		if data, err := json.Marshal(compact); err == nil {
			return string(data)
		}
	}
	return v.Raw
}
