package automation

import (
	"encoding/json"
	"fmt"
	"time"
)

// The plain-struct aliases drop the methods below so encoding/json does not
// recurse into them.
type (
	ruleFields  Rule
	inputFields CreateInput
)

func (r Rule) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ruleFields
		IdleAfter string `json:"idle_after,omitempty"`
	}{ruleFields(r), formatIdleAfter(r.IdleAfter)})
}

func (r *Rule) UnmarshalJSON(b []byte) error {
	aux := struct {
		*ruleFields
		IdleAfter string `json:"idle_after"`
	}{ruleFields: (*ruleFields)(r)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	d, err := parseIdleAfter(aux.IdleAfter)
	if err != nil {
		return err
	}
	r.IdleAfter = d
	return nil
}

// UnmarshalJSON accepts idle_after as a Go duration string ("96h", "90m").
func (in *CreateInput) UnmarshalJSON(b []byte) error {
	aux := struct {
		*inputFields
		IdleAfter string `json:"idle_after"`
	}{inputFields: (*inputFields)(in)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	d, err := parseIdleAfter(aux.IdleAfter)
	if err != nil {
		return err
	}
	in.IdleAfter = d
	return nil
}

func formatIdleAfter(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

func parseIdleAfter(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: idle_after: %v", ErrInvalidRule, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: idle_after must not be negative", ErrInvalidRule)
	}
	return d, nil
}
