package subscription

// Status represents the current state of a subscription.
type Status string

const (
	StatusActive   Status = "active"
	StatusPastDue  Status = "past_due"
	StatusCanceled Status = "canceled"
)

// ScheduledChangeStatus is the lifecycle of a deferred plan change intent.
type ScheduledChangeStatus string

const (
	ScheduledPending  ScheduledChangeStatus = "pending"
	ScheduledApplied  ScheduledChangeStatus = "applied"
	ScheduledCanceled ScheduledChangeStatus = "canceled"
)
