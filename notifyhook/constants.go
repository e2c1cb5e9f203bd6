package notifyhook

// Topic constants for notifications.
const (
	// Subscription topics
	TopicSubscriptionCreated = "subscription.created"
	TopicSubscriptionUpdated = "subscription.updated"
	TopicCapacityRejected    = "subscription.rejected"

	// Project topics
	TopicProjectChanged = "project.changed"
	TopicProjectFunded  = "project.funded"
	TopicLedgerDrift    = "project.ledger_drift"
)

// Audience constants for notifications.
const (
	AudienceInvestor = "investor"
	AudienceStartup  = "startup"
	AudienceOps      = "ops"
)

// Priority levels for notifications.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// allTopics returns all known notification topics.
func allTopics() []string {
	return []string{
		TopicSubscriptionCreated,
		TopicSubscriptionUpdated,
		TopicCapacityRejected,
		TopicProjectChanged,
		TopicProjectFunded,
		TopicLedgerDrift,
	}
}
