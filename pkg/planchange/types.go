package planchange

import (
	"errors"
	"fmt"
)

// Classification describes how a target plan relates to the account's current one.
type Classification string

const (
	ClassNewSubscription  Classification = "new_subscription"
	ClassCurrent          Classification = "current"
	ClassUpgrade          Classification = "upgrade"
	ClassDowngradeSafe    Classification = "downgrade_safe"
	ClassDowngradeWarning Classification = "downgrade_warning"
)

// IsDowngrade reports whether the change reduces included capacity or keeps it equal on another plan.
func (c Classification) IsDowngrade() bool {
	return c == ClassDowngradeSafe || c == ClassDowngradeWarning
}

// Strategy is a named resolution path for executing a plan change.
type Strategy string

const (
	StrategyImmediate              Strategy = "immediate"
	StrategyImmediateWithSelection Strategy = "immediate_with_selection"
	StrategyPayForExtra            Strategy = "pay_for_extra"
	StrategySuspendExcess          Strategy = "suspend_excess"
	StrategyEndOfPeriod            Strategy = "end_of_period"
)

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case StrategyImmediate, StrategyImmediateWithSelection, StrategyPayForExtra,
		StrategySuspendExcess, StrategyEndOfPeriod:
		return st, nil
	default:
		return "", errors.Join(ErrUnknownStrategy, fmt.Errorf("strategy %q", s))
	}
}

// Valid reports whether the strategy is a known one.
func (s Strategy) Valid() bool {
	_, err := ParseStrategy(string(s))
	return err == nil
}

// needsSelection reports whether the strategy requires explicit device ids.
func (s Strategy) needsSelection() bool {
	return s == StrategyImmediateWithSelection || s == StrategySuspendExcess
}

// StrategiesFor lists the strategies offered for a classification, recommended first.
func StrategiesFor(c Classification) []Strategy {
	switch c {
	case ClassNewSubscription, ClassUpgrade:
		return []Strategy{StrategyImmediate}
	case ClassDowngradeSafe:
		return []Strategy{StrategyImmediate, StrategyEndOfPeriod}
	case ClassDowngradeWarning:
		return []Strategy{StrategyEndOfPeriod, StrategyImmediateWithSelection, StrategyPayForExtra, StrategySuspendExcess}
	default:
		return nil
	}
}

// Status is the outcome variant of a successful Execute.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusScheduled Status = "scheduled"
)
