/*
policy.go - Process-wide leave policy

PURPOSE:
  One immutable value holds every configuration knob the engine reads:
  expiry policy kind, carryover, alert window, per-category allowances and
  the initial status of new requests. It is passed explicitly into each
  computation and never read from process-wide state.

POLICY KINDS:
  PolicyCalendar:
    - Entitlement expires Dec 31 of the grant year
    - Fixed one-year carryover: final expiry is Dec 31 of the next year

  PolicyAnniversary:
    - Entitlement expires the day before the first anniversary of the grant
    - CarryoverMonths > 0 extends the final expiry by that many months

EXAMPLE:
  policy := timeoff.DefaultPolicy()
  policy.Kind = timeoff.PolicyCalendar
  policy.Allowances.PersonalDays = 7
  if err := policy.Validate(); err != nil { ... }

SEE ALSO:
  - expiry.go: Uses Kind and CarryoverMonths
  - entitlement.go: Uses Allowances
  - config/config.go: Builds a Policy from YAML
*/
package timeoff

import (
	"fmt"

	"github.com/warp/leave-engine/generic"
)

type PolicyKind string

const (
	PolicyCalendar    PolicyKind = "calendar"
	PolicyAnniversary PolicyKind = "anniversary"
)

// DefaultAlertWindowDays is how far ahead of expiry an alert is raised.
const DefaultAlertWindowDays = 60

// Policy is the engine's entire configuration surface.
type Policy struct {
	Kind            PolicyKind
	CarryoverMonths int // anniversary only; 0 means final expiry = first expiry
	AlertWindowDays int
	Allowances      Allowances

	// InitialStatus is the status of a newly created request: approved for
	// auto-approval workflows, pending when explicit review is required.
	InitialStatus Status
}

func DefaultPolicy() Policy {
	return Policy{
		Kind:            PolicyAnniversary,
		CarryoverMonths: 0,
		AlertWindowDays: DefaultAlertWindowDays,
		Allowances:      DefaultAllowances(),
		InitialStatus:   StatusApproved,
	}
}

func (p Policy) Validate() error {
	switch p.Kind {
	case PolicyCalendar, PolicyAnniversary:
	default:
		return fmt.Errorf("%w: unknown kind %q", generic.ErrInvalidPolicy, p.Kind)
	}
	if p.CarryoverMonths < 0 {
		return fmt.Errorf("%w: carryover months must not be negative", generic.ErrInvalidPolicy)
	}
	if p.AlertWindowDays < 0 {
		return fmt.Errorf("%w: alert window must not be negative", generic.ErrInvalidPolicy)
	}
	if p.InitialStatus != StatusPending && p.InitialStatus != StatusApproved {
		return fmt.Errorf("%w: initial status must be pending or approved, got %q", generic.ErrInvalidPolicy, p.InitialStatus)
	}
	a := p.Allowances
	if a.SickDays < 0 || a.PersonalDays < 0 || a.MarriageDays < 0 {
		return fmt.Errorf("%w: allowances must not be negative", generic.ErrInvalidPolicy)
	}
	for c, d := range a.Extra {
		if !c.Valid() {
			return fmt.Errorf("%w: allowance for %s: %w", generic.ErrInvalidPolicy, c, generic.ErrInvalidCategory)
		}
		if d < 0 {
			return fmt.Errorf("%w: allowance for %s must not be negative", generic.ErrInvalidPolicy, c)
		}
	}
	return nil
}

// PolicySource supplies the policy in force. Services call it on every
// operation, so a reloaded configuration takes effect on the next call.
type PolicySource interface {
	Policy() Policy
}

// StaticPolicy is a PolicySource that never changes.
type StaticPolicy Policy

func (s StaticPolicy) Policy() Policy { return Policy(s) }
