package check

import (
	"bytes"
	"fmt"
)

// Field is a bit set of the verdict fields a Verdict carries.
type Field uint8

const (
	FieldDeliverable Field = 1 << iota
	FieldHostExists
	FieldFullInbox
	FieldMessage
)

// Verdict is a partial update of a verification result. Only the fields
// named in Set are meaningful; the rest must be left as they are.
type Verdict struct {
	Set         Field
	Deliverable bool
	HostExists  bool
	FullInbox   bool
	Message     string
}

// Has reports whether f is set in v.
func (v Verdict) Has(f Field) bool { return v.Set&f != 0 }

// Reply messages set by the classifier.
const (
	MessageBlocked        = "Blocked by mail server"
	MessageLocalError     = "Local error processing, try again later."
	MessageServiceUnavail = "Service not available, try again later."
	messageUnrecognised   = "Unrecognised error: "
)

// DefaultBlocklistKeywords flag a 550 reply as a rejection of the prober
// rather than of the mailbox. Matching is case-sensitive.
var DefaultBlocklistKeywords = []string{
	"spamhaus",
	"proofpoint",
	"cloudmark",
	"banned",
	"blacklisted",
	"blocked",
	"block list",
	"denied",
}

type rule struct {
	verdict       Verdict
	scanBlocklist bool
}

// rules maps RCPT reply codes to verdicts. 250 and 251 are not errors
// and never reach the classifier. Read-only after init.
//
// See https://www.greenend.org.uk/rjk/tech/smtpreplies.html#RCPT
var rules = map[int]rule{
	550: {verdict: Verdict{Set: FieldDeliverable | FieldHostExists, HostExists: true}, scanBlocklist: true},
	551: {verdict: Verdict{Set: FieldDeliverable | FieldHostExists, HostExists: true}},
	553: {verdict: Verdict{Set: FieldDeliverable | FieldHostExists, HostExists: true}},
	552: {verdict: Verdict{Set: FieldDeliverable | FieldHostExists | FieldFullInbox, Deliverable: true, HostExists: true, FullInbox: true}},
	441: {verdict: Verdict{Set: FieldDeliverable | FieldHostExists | FieldFullInbox, Deliverable: true, HostExists: true, FullInbox: true}},
	450: {verdict: Verdict{Set: FieldDeliverable | FieldHostExists, HostExists: true}},
	451: {verdict: Verdict{Set: FieldDeliverable | FieldMessage, Message: MessageLocalError}},
	452: {verdict: Verdict{Set: FieldDeliverable | FieldFullInbox, Deliverable: true, FullInbox: true}},
	521: {verdict: Verdict{Set: FieldDeliverable | FieldHostExists}},
	421: {verdict: Verdict{Set: FieldDeliverable | FieldHostExists | FieldMessage, HostExists: true, Message: MessageServiceUnavail}},
}

// Classifier maps rejected RCPT replies to verdicts.
// It is immutable and safe for concurrent use.
type Classifier struct {
	keywords [][]byte
}

var defaultClassifier = NewClassifier(DefaultBlocklistKeywords)

// DefaultClassifier returns the shared classifier using DefaultBlocklistKeywords.
func DefaultClassifier() *Classifier { return defaultClassifier }

// NewClassifier returns a classifier that scans 550 replies for keywords.
func NewClassifier(keywords []string) *Classifier {
	kw := make([][]byte, 0, len(keywords))
	for _, k := range keywords {
		if k != "" {
			kw = append(kw, []byte(k))
		}
	}
	return &Classifier{keywords: kw}
}

// Classify returns the verdict for a RCPT reply.
func (c *Classifier) Classify(code int, response []byte) Verdict {
	r, ok := rules[code]
	if !ok {
		return Verdict{
			Set:     FieldDeliverable | FieldMessage,
			Message: fmt.Sprintf("%s%s", messageUnrecognised, response),
		}
	}

	v := r.verdict
	if r.scanBlocklist && c.blocked(response) {
		v.Set |= FieldMessage
		v.Message = MessageBlocked
	}
	return v
}

func (c *Classifier) blocked(response []byte) bool {
	for _, k := range c.keywords {
		if bytes.Contains(response, k) {
			return true
		}
	}
	return false
}
