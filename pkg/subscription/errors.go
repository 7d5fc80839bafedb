package subscription

import "errors"

var (
	ErrSubscriptionNotFound    = errors.New("subscription.errors.subscription_not_found")
	ErrScheduledChangeNotFound = errors.New("subscription.errors.scheduled_change_not_found")
	ErrNoActiveSubscription    = errors.New("subscription.errors.no_active_subscription")
)
