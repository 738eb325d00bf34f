package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertClient(ctx context.Context, db *gorm.DB, client *ClientRecord) error
	FindClient(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ClientRecord, error)
	DeleteClient(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	InsertIncident(ctx context.Context, db *gorm.DB, incident *IncidentRecord) error
	// ListIncidents returns the client's incidents starting within [from, to), ordered by start time.
	ListIncidents(ctx context.Context, db *gorm.DB, clientID snowflake.ID, from, to time.Time) ([]*IncidentRecord, error)
}
