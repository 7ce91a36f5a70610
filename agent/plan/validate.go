package plan

import (
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/vizta/agent/contract"
)

// Validator checks plans against one agent's declared tool set. It never
// performs I/O.
type Validator struct {
	allowed map[contractx.ToolID]struct{}
}

func NewValidator(tools []contractx.ToolID) *Validator {
	allowed := make(map[contractx.ToolID]struct{}, len(tools))
	for _, t := range tools {
		allowed[t] = struct{}{}
	}
	return &Validator{allowed: allowed}
}

func (v *Validator) Allows(tool contractx.ToolID) bool {
	_, ok := v.allowed[tool]
	return ok && tool.Valid()
}

// Parse sanitizes and decodes model text, then validates the result.
func (v *Validator) Parse(text string) (contractx.Plan, error) {
	cleaned, err := Sanitize(text)
	if err != nil {
		return contractx.Plan{}, err
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return contractx.Plan{}, fmt.Errorf("%w: %v", contractx.ErrPlanParse, err)
	}
	return v.Validate(raw)
}

func (v *Validator) Validate(raw map[string]any) (contractx.Plan, error) {
	if raw == nil {
		return contractx.Plan{}, fmt.Errorf("%w: plan is empty", contractx.ErrInvalidPlan)
	}
	body, ok := raw["plan"].(map[string]any)
	if !ok {
		return contractx.Plan{}, fmt.Errorf("%w: missing plan object", contractx.ErrInvalidPlan)
	}

	action, err := parseAction(stringField(body, "action"))
	if err != nil {
		return contractx.Plan{}, err
	}

	out := contractx.Plan{
		Action:    action,
		Reasoning: stringField(body, "reasoning"),
		FollowUp:  firstNonEmpty(stringField(raw, "follow_up"), stringField(body, "follow_up")),
		Thought:   stringField(raw, "thought"),
	}

	switch action {
	case contractx.ActionDirectExecution:
		tool, err := v.tool(stringField(body, "tool"))
		if err != nil {
			return contractx.Plan{}, err
		}
		out.Tool = tool
		out.Args = mapField(body, "args")

	case contractx.ActionMultiStepExecution:
		steps, err := v.steps(body)
		if err != nil {
			return contractx.Plan{}, err
		}
		out.Steps = steps
		out.Tool = steps[0].Tool
		out.Args = steps[0].Args

	case contractx.ActionNeedsClarification:
		if out.FollowUp == "" {
			out.FollowUp = out.Reasoning
		}
	}

	return out, nil
}

func (v *Validator) tool(name string) (contractx.ToolID, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: tool is required for direct execution", contractx.ErrInvalidPlan)
	}
	id, ok := contractx.ParseToolID(name)
	if !ok || !v.Allows(id) {
		return "", fmt.Errorf("%w: unknown tool %q", contractx.ErrInvalidPlan, name)
	}
	return id, nil
}

func (v *Validator) steps(body map[string]any) ([]contractx.PlanStep, error) {
	rawSteps, _ := body["steps"].([]any)
	if len(rawSteps) == 0 {
		// a single tool is accepted as a one-step plan
		if name := stringField(body, "tool"); name != "" {
			tool, err := v.tool(name)
			if err != nil {
				return nil, err
			}
			return []contractx.PlanStep{{Tool: tool, Args: mapField(body, "args")}}, nil
		}
		return nil, fmt.Errorf("%w: multi-step plan has no steps", contractx.ErrInvalidPlan)
	}

	steps := make([]contractx.PlanStep, 0, len(rawSteps))
	for i, rs := range rawSteps {
		step, ok := rs.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: step %d is not an object", contractx.ErrInvalidPlan, i)
		}
		tool, err := v.tool(stringField(step, "tool"))
		if err != nil {
			return nil, err
		}
		steps = append(steps, contractx.PlanStep{Tool: tool, Args: mapField(step, "args")})
	}
	return steps, nil
}

func parseAction(s string) (contractx.PlanAction, error) {
	key := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.TrimSpace(s)))
	switch key {
	case "directexecution":
		return contractx.ActionDirectExecution, nil
	case "multistepexecution":
		return contractx.ActionMultiStepExecution, nil
	case "needsclarification":
		return contractx.ActionNeedsClarification, nil
	case "":
		return "", fmt.Errorf("%w: action is required", contractx.ErrInvalidPlan)
	default:
		return "", fmt.Errorf("%w: unsupported action %q", contractx.ErrInvalidPlan, s)
	}
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func mapField(m map[string]any, key string) map[string]any {
	out, _ := m[key].(map[string]any)
	if out == nil {
		return map[string]any{}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
