package automation

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/opportunity-scout/internal/utils"
)

// State is the lifecycle position of a run as reported by the service.
type State string

const (
	StatePending   State = "PENDING"
	StateRunning   State = "RUNNING"
	StateCompleted State = "COMPLETED"
	StateFailed    State = "FAILED"
	StateCancelled State = "CANCELLED"
)

// Payload locations, checked in order at the top level and then under "data".
var payloadKeys = []string{"result", "result_json", "resultJson"}

// RunStatus is a point-in-time view of one run.
type RunStatus struct {
	RunID  string
	Status string
	Result any
	Error  string
}

// State compares the reported status case-insensitively. Unknown values are
// reported as running.
func (s *RunStatus) State() State {
	switch State(strings.ToUpper(strings.TrimSpace(s.Status))) {
	case StateCompleted:
		return StateCompleted
	case StateFailed:
		return StateFailed
	case StateCancelled:
		return StateCancelled
	case StatePending:
		return StatePending
	default:
		return StateRunning
	}
}

// IsTerminal reports whether the run will not change any more.
func (s *RunStatus) IsTerminal() bool {
	switch s.State() {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// HasResult reports whether a payload is attached.
func (s *RunStatus) HasResult() bool {
	return present(s.Result)
}

type envelope struct {
	RunID  string `mapstructure:"run_id"`
	ID     string `mapstructure:"id"`
	Status string `mapstructure:"status"`
	Error  any    `mapstructure:"error"`
	Data   any    `mapstructure:"data"`
}

func parseStatus(runID string, body map[string]any) (*RunStatus, error) {
	var env envelope
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &env,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(body); err != nil {
		return nil, fmt.Errorf("decode run status: %w", err)
	}

	nested, _ := env.Data.(map[string]any)

	status := &RunStatus{
		RunID:  firstNonEmpty(env.RunID, env.ID, runID),
		Status: env.Status,
		Result: findPayload(body, nested),
		Error:  errorText(env.Error),
	}

	if nested != nil {
		if status.Status == "" {
			status.Status = utils.AsText(nested["status"])
		}
		if status.Error == "" {
			status.Error = errorText(nested["error"])
		}
	}

	return status, nil
}

func findPayload(body, nested map[string]any) any {
	for _, scope := range []map[string]any{body, nested} {
		for _, key := range payloadKeys {
			if v, ok := scope[key]; ok && present(v) {
				return v
			}
		}
	}
	return nil
}

func errorText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case map[string]any:
		for _, key := range []string{"message", "error", "detail", "reason"} {
			if text := utils.AsText(val[key]); text != "" {
				return text
			}
		}
		return ""
	default:
		return utils.AsText(val)
	}
}

func present(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(val) != ""
	default:
		return true
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
