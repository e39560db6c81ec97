package config

import (
	"os"
	"strings"
)

// StrictLoanStatusFlow enforces the intended approval graph:
// pending -> {approved, rejected}, approved -> disbursed.
// The default (off) preserves the historical behavior where any status can be
// assigned from any other.
//
// Set via env:
// - STRICT_LOAN_STATUS_FLOW=true
func StrictLoanStatusFlow() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("STRICT_LOAN_STATUS_FLOW")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// DirectNotificationDispatch controls the background outbox dispatcher that
// publishes scheduled reminders to Pub/Sub.
//
// Set via env:
// - NOTIFY_DIRECT_DISPATCH=false to disable (e.g. when a push-based pipeline
//   drains the outbox instead).
//
// Default: run. Reminder rows are claimed with SKIP LOCKED and publishing is
// at-least-once, so a duplicate dispatcher instance is safe.
func DirectNotificationDispatch() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("NOTIFY_DIRECT_DISPATCH")))
	if v == "false" || v == "0" || v == "no" || v == "n" {
		return false
	}
	return true
}
