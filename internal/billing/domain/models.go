// Package domain contains the billing value types shared by every invoice surface.
package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// BillingMethod is the metric an incident is charged by.
type BillingMethod string

const (
	BillingMethodTime          BillingMethod = "time"
	BillingMethodSquareFootage BillingMethod = "squareFootage"
	BillingMethodCustom        BillingMethod = "custom"
)

// BillingSource identifies where a resolved configuration came from.
type BillingSource string

const (
	SourceIncident BillingSource = "incident"
	SourceClient   BillingSource = "client"
	SourceTemplate BillingSource = "template"
	SourceNone     BillingSource = "none"
)

const (
	UnitLabelHours   = "hours"
	UnitLabelSqFt    = "sq ft"
	UnitLabelDefault = "units"

	MethodNameNone = "None"
)

// TimeRounding rounds a measured duration up to the next multiple of IncrementMinutes.
type TimeRounding struct {
	IncrementMinutes int `json:"increment_minutes"`
}

// MaxIncrementMinutes is the largest accepted rounding step, one week.
const MaxIncrementMinutes = 7 * 24 * 60

// Increment returns the rounding step. Non-positive increments disable rounding and
// larger ones are capped at MaxIncrementMinutes.
func (r *TimeRounding) Increment() time.Duration {
	if r == nil || r.IncrementMinutes <= 0 {
		return 0
	}
	return time.Duration(min(r.IncrementMinutes, MaxIncrementMinutes)) * time.Minute
}

// BillingConfiguration describes one billing method and its parameters. It is owned
// by either a client (defaults) or an incident (override) and replaced wholesale on edit.
type BillingConfiguration struct {
	BillingMethod           BillingMethod   `json:"billing_method"`
	MinimumBillableQuantity decimal.Decimal `json:"minimum_billable_quantity"`
	AmountPerUnit           decimal.Decimal `json:"amount_per_unit"`
	TimeRounding            *TimeRounding   `json:"time_rounding,omitempty"`
	CustomUnitDescription   string          `json:"custom_unit_description,omitempty"`
}

// Location is the resolved address of an incident.
type Location struct {
	Address string `json:"address"`
}

// Client is the billing snapshot of a client.
type Client struct {
	ID       string                `json:"id,omitempty"`
	Name     string                `json:"name"`
	Email    string                `json:"email,omitempty"`
	Defaults *BillingConfiguration `json:"defaults,omitempty"`
}

// Incident is the billing snapshot of one logged job.
type Incident struct {
	ID               string                `json:"id,omitempty"`
	ClientID         string                `json:"client_id,omitempty"`
	Area             float64               `json:"area"`
	StartTime        time.Time             `json:"start_time"`
	EndTime          time.Time             `json:"end_time"`
	Billing          *BillingConfiguration `json:"billing,omitempty"`
	SurfaceType      *string               `json:"surface_type,omitempty"`
	EnhancedLocation *Location             `json:"enhanced_location,omitempty"`
	MaterialsUsed    *string               `json:"materials_used,omitempty"`
	Status           string                `json:"status"`
}

// Duration returns the elapsed job time, clamped at zero.
func (i Incident) Duration() time.Duration {
	d := i.EndTime.Sub(i.StartTime)
	if d < 0 {
		return 0
	}
	return d
}

// Address returns the incident address or an empty string.
func (i Incident) Address() string {
	if i.EnhancedLocation == nil {
		return ""
	}
	return i.EnhancedLocation.Address
}

// ResolvedBilling is the computed quantity, rate and amount for one incident.
type ResolvedBilling struct {
	MethodName       string           `json:"method_name"`
	UnitLabel        string           `json:"unit_label"`
	Quantity         decimal.Decimal  `json:"quantity"`
	Rate             decimal.Decimal  `json:"rate"`
	TotalAmount      decimal.Decimal  `json:"total_amount"`
	Source           BillingSource    `json:"source"`
	RawHours         *decimal.Decimal `json:"raw_hours,omitempty"`
	IsMinimumApplied bool             `json:"is_minimum_applied"`
}

// NoBilling is the terminal result when neither incident nor client is configured.
func NoBilling() ResolvedBilling {
	return ResolvedBilling{
		MethodName:  MethodNameNone,
		UnitLabel:   UnitLabelDefault,
		Quantity:    decimal.Zero,
		Rate:        decimal.Zero,
		TotalAmount: decimal.Zero,
		Source:      SourceNone,
	}
}

var (
	ErrUnsupportedBillingMethod = errors.New("unsupported_billing_method")
)
