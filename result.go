package emailprobe

import (
	"encoding/json"

	"github.com/optimode/emailprobe/check"
)

// Result is the outcome of verifying one address.
type Result struct {
	// Email is the input exactly as given.
	Email string
	// Address is the parsed input, nil when ValidFormat is false.
	Address     *Address
	ValidFormat bool
	Deliverable bool
	FullInbox   bool
	HostExists  bool
	CatchAll    bool
	// Message explains a failure or a blocked probe, if any.
	Message string
}

// MarshalJSON writes the parsed address under "address", or the raw
// input string when the input could not be parsed.
func (r Result) MarshalJSON() ([]byte, error) {
	var addr any = r.Email
	if r.Address != nil {
		addr = r.Address
	}
	return json.Marshal(struct {
		Address     any    `json:"address"`
		ValidFormat bool   `json:"valid_format"`
		Deliverable bool   `json:"deliverable"`
		FullInbox   bool   `json:"full_inbox"`
		HostExists  bool   `json:"host_exists"`
		CatchAll    bool   `json:"catch_all"`
		Message     string `json:"message,omitempty"`
	}{addr, r.ValidFormat, r.Deliverable, r.FullInbox, r.HostExists, r.CatchAll, r.Message})
}

// apply merges the fields set in v into r.
func (r *Result) apply(v check.Verdict) {
	if v.Has(check.FieldDeliverable) {
		r.Deliverable = v.Deliverable
	}
	if v.Has(check.FieldHostExists) {
		r.HostExists = v.HostExists
	}
	if v.Has(check.FieldFullInbox) {
		r.FullInbox = v.FullInbox
	}
	if v.Has(check.FieldMessage) {
		r.Message = v.Message
	}
}
