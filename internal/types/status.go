package types

// Status is a type for the lifecycle state of a record in the database.
// Deleted records are soft-deleted and excluded from every scope scan.
// Any changes to this type should be reflected in the database schema by running migrations
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
	StatusDeleted  Status = "deleted"
)
