// Package repository persists reports and the user profile. The interfaces
// here are the capabilities the rest of the application depends on; file,
// DynamoDB and Postgres implementations are interchangeable.
package repository

import (
	"context"

	"healthkinator/internal/domain"
)

// ReportStore is the append-mostly report collection.
type ReportStore interface {
	// Save persists a report, replacing any existing report with the
	// same ID.
	Save(ctx context.Context, r domain.Report) error
	// List returns all reports sorted newest first. Missing or unreadable
	// data degrades to an empty list where the backend allows it.
	List(ctx context.Context) ([]domain.Report, error)
	// Clear removes every stored report.
	Clear(ctx context.Context) error
}

// ProfileStore holds the single user profile record.
type ProfileStore interface {
	SaveProfile(ctx context.Context, p domain.UserProfile) error
	// LoadProfile returns the stored profile, or the default profile when
	// none is stored or the stored record cannot be read.
	LoadProfile(ctx context.Context) (domain.UserProfile, error)
}
