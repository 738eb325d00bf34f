package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/smallbiznis/freshwall/internal/billing/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ClientRecord is a stored client together with its default billing configuration.
type ClientRecord struct {
	ID        snowflake.ID                                            `gorm:"primaryKey" json:"id"`
	Name      string                                                  `gorm:"type:text;not null" json:"name"`
	Email     string                                                  `gorm:"type:text" json:"email"`
	Defaults  datatypes.JSONType[*billingdomain.BillingConfiguration] `gorm:"type:json" json:"defaults"`
	CreatedAt time.Time                                               `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time                                               `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt                                          `gorm:"index" json:"-"`
}

func (ClientRecord) TableName() string { return "clients" }

// Snapshot converts the row into the value the resolver consumes.
func (c ClientRecord) Snapshot() billingdomain.Client {
	return billingdomain.Client{
		ID:       c.ID.String(),
		Name:     c.Name,
		Email:    c.Email,
		Defaults: c.Defaults.Data(),
	}
}

// IncidentRecord is one logged job.
type IncidentRecord struct {
	ID            snowflake.ID                                            `gorm:"primaryKey" json:"id"`
	ClientID      snowflake.ID                                            `gorm:"not null;index:idx_incidents_client_start,priority:1" json:"client_id"`
	Area          float64                                                 `gorm:"not null;default:0" json:"area"`
	StartTime     time.Time                                               `gorm:"not null;index:idx_incidents_client_start,priority:2" json:"start_time"`
	EndTime       time.Time                                               `gorm:"not null" json:"end_time"`
	Billing       datatypes.JSONType[*billingdomain.BillingConfiguration] `gorm:"type:json" json:"billing"`
	SurfaceType   *string                                                 `gorm:"type:text" json:"surface_type,omitempty"`
	Address       *string                                                 `gorm:"type:text" json:"address,omitempty"`
	MaterialsUsed *string                                                 `gorm:"type:text" json:"materials_used,omitempty"`
	Status        string                                                  `gorm:"type:text;not null" json:"status"`
	CreatedAt     time.Time                                               `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time                                               `gorm:"not null" json:"updated_at"`
	DeletedAt     gorm.DeletedAt                                          `gorm:"index" json:"-"`
}

func (IncidentRecord) TableName() string { return "incidents" }

func (i IncidentRecord) Snapshot() billingdomain.Incident {
	incident := billingdomain.Incident{
		ID:            i.ID.String(),
		ClientID:      i.ClientID.String(),
		Area:          i.Area,
		StartTime:     i.StartTime,
		EndTime:       i.EndTime,
		Billing:       i.Billing.Data(),
		SurfaceType:   i.SurfaceType,
		MaterialsUsed: i.MaterialsUsed,
		Status:        i.Status,
	}
	if i.Address != nil && *i.Address != "" {
		incident.EnhancedLocation = &billingdomain.Location{Address: *i.Address}
	}
	return incident
}
