// Package check contains the building blocks of a deliverability check:
// MX resolution, the SMTP recipient probe and the classification of
// SMTP replies into verdicts.
// These types can be used directly, but the recommended approach is
// to use the Verifier from the github.com/optimode/emailprobe package.
package check
