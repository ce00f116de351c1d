// Package queue defines message payloads exchanged over the message broker.
package queue

// LoyaltyAwardEvent is published after an account is created so loyalty
// points can be awarded off the request path. Consumers get everything
// they need without querying the primary database; the request that
// triggered the award never waits on this event.
type LoyaltyAwardEvent struct {
	UserID    uint64 `json:"user_id"`
	Email     string `json:"email"`
	Points    uint32 `json:"points"`
	Reason    string `json:"reason"`
	AwardedAt string `json:"awarded_at"`
}
