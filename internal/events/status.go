package events

type EventStatus string

const (
	StatusActive   EventStatus = "active"
	StatusInactive EventStatus = "inactive"
)
