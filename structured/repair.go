package structured

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/tobhei/docuchat/logging"
	"github.com/tobhei/docuchat/model"
)

// Check validates a decoded JSON candidate. It receives the raw candidate
// text so implementations can use path queries without re-marshalling. A
// check failure is treated exactly like a decode failure and triggers a
// repair attempt.
type Check func(raw string) error

// EqualLengthArrays returns a Check requiring that, when both paths are
// present as arrays, they have the same length. Used for parallel
// labels/values payloads.
func EqualLengthArrays(pathA, pathB string) Check {
	return func(raw string) error {
		a := gjson.Get(raw, pathA)
		b := gjson.Get(raw, pathB)
		if !a.IsArray() || !b.IsArray() {
			return nil
		}
		la, lb := len(a.Array()), len(b.Array())
		if la != lb {
			return fmt.Errorf("arrays %q and %q must have the same length (got %d and %d)", pathA, pathB, la, lb)
		}
		return nil
	}
}

// RequireArray returns a Check demanding a non-empty array at path.
func RequireArray(path string) Check {
	return func(raw string) error {
		v := gjson.Get(raw, path)
		if !v.IsArray() || len(v.Array()) == 0 {
			return fmt.Errorf("field %q must be a non-empty array", path)
		}
		return nil
	}
}

// RepairExhaustedError reports that the model's output could not be parsed
// within the configured repair budget. It is a normal, reportable outcome,
// not a fault: callers degrade to a textual answer.
type RepairExhaustedError struct {
	Attempts int
	LastErr  error
}

func (e *RepairExhaustedError) Error() string {
	return fmt.Sprintf("could not parse model output after %d attempt(s): %v", e.Attempts, e.LastErr)
}

// Unwrap exposes the final parse or check failure.
func (e *RepairExhaustedError) Unwrap() error { return e.LastErr }

// RepairerOptions configures a Repairer.
type RepairerOptions struct {
	// MaxRepairs bounds how many repair prompts are sent after the initial
	// parse fails. The total number of parse attempts is MaxRepairs+1.
	MaxRepairs int
	Logger     logging.Logger
}

// Repairer extracts and validates JSON from free-form model text, asking
// the model to fix its own malformed output when extraction or validation
// fails.
type Repairer struct {
	model model.Model
	opts  RepairerOptions
}

// NewRepairer constructs a Repairer with a default budget of one repair
// round-trip.
func NewRepairer(m model.Model, optFns ...func(o *RepairerOptions)) *Repairer {
	opts := RepairerOptions{
		MaxRepairs: 1,
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Repairer{model: m, opts: opts}
}

// Parse runs the extract/decode/check pipeline against text. On success it
// returns the decoded object plus the raw candidate JSON it came from. On
// failure it builds a repair prompt embedding the error and the offending
// text, re-invokes the model, and retries; exhausting the budget yields a
// *RepairExhaustedError.
func (r *Repairer) Parse(ctx context.Context, text string, checks ...Check) (map[string]any, string, error) {
	current := text
	var lastErr error

	for attempt := 0; attempt <= r.opts.MaxRepairs; attempt++ {
		payload, raw, err := r.tryParse(current, checks)
		if err == nil {
			r.opts.Logger.Debug("structured.parse.ok", "attempt", attempt+1)
			return payload, raw, nil
		}
		lastErr = err
		r.opts.Logger.Warn("structured.parse.failed", "attempt", attempt+1, "error", err.Error())

		if attempt == r.opts.MaxRepairs {
			break
		}

		fixed, merr := r.model.Complete(ctx, repairPrompt(err, current))
		if merr != nil {
			// The repair channel itself failed; report the original parse
			// failure with the budget spent so far.
			return nil, "", &RepairExhaustedError{Attempts: attempt + 1, LastErr: fmt.Errorf("%v (repair call failed: %w)", err, merr)}
		}
		current = strings.TrimSpace(fixed)
	}

	return nil, "", &RepairExhaustedError{Attempts: r.opts.MaxRepairs + 1, LastErr: lastErr}
}

func (r *Repairer) tryParse(text string, checks []Check) (map[string]any, string, error) {
	candidate, ok := FirstObject(text)
	if !ok {
		return nil, "", fmt.Errorf("no JSON object found in output")
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
		return nil, "", fmt.Errorf("invalid JSON: %w", err)
	}

	for _, check := range checks {
		if err := check(candidate); err != nil {
			return nil, "", err
		}
	}
	return payload, candidate, nil
}

func repairPrompt(cause error, offending string) string {
	return fmt.Sprintf(`The following JSON was invalid or inconsistent.
Error: %v
Fix it and return valid JSON only. Do not add explanations.

JSON to fix:
%s`, cause, offending)
}
