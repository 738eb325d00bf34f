package resolver

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	billingdomain "github.com/smallbiznis/freshwall/internal/billing/domain"
)

var hour = decimal.NewFromInt(int64(time.Hour))

// Resolve computes the billing for one incident.
//
// This function is PURE:
// - No side effects
// - No I/O
// - Fully deterministic
//
// The incident override always wins over the client defaults. Missing configuration
// yields the "none" result; only an unknown billing method is an error.
func Resolve(incident billingdomain.Incident, client billingdomain.Client) (billingdomain.ResolvedBilling, error) {
	cfg, source := selectConfiguration(incident, client)
	if cfg == nil {
		return billingdomain.NoBilling(), nil
	}

	methodName, unitLabel, err := describe(*cfg)
	if err != nil {
		return billingdomain.ResolvedBilling{}, err
	}

	var (
		raw      decimal.Decimal
		rawHours *decimal.Decimal
	)
	switch cfg.BillingMethod {
	case billingdomain.BillingMethodTime:
		duration := incident.Duration()
		hours := Hours(duration)
		rawHours = &hours
		raw = Hours(roundUp(duration, cfg.TimeRounding.Increment()))
	case billingdomain.BillingMethodSquareFootage, billingdomain.BillingMethodCustom:
		raw = BillableArea(incident.Area)
	}

	quantity := decimal.Max(raw, cfg.MinimumBillableQuantity)
	return billingdomain.ResolvedBilling{
		MethodName:       methodName,
		UnitLabel:        unitLabel,
		Quantity:         quantity,
		Rate:             cfg.AmountPerUnit,
		TotalAmount:      quantity.Mul(cfg.AmountPerUnit),
		Source:           source,
		RawHours:         rawHours,
		IsMinimumApplied: quantity.Equal(cfg.MinimumBillableQuantity),
	}, nil
}

// Hours converts a duration to decimal hours.
func Hours(d time.Duration) decimal.Decimal {
	if d <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(d)).Div(hour)
}

// MethodName returns the display name of a billing method.
func MethodName(method billingdomain.BillingMethod) (string, error) {
	switch method {
	case billingdomain.BillingMethodTime:
		return "Time", nil
	case billingdomain.BillingMethodSquareFootage:
		return "Square Footage", nil
	case billingdomain.BillingMethodCustom:
		return "Custom", nil
	default:
		return "", fmt.Errorf("%w: %q", billingdomain.ErrUnsupportedBillingMethod, method)
	}
}

func selectConfiguration(incident billingdomain.Incident, client billingdomain.Client) (*billingdomain.BillingConfiguration, billingdomain.BillingSource) {
	if incident.Billing != nil {
		return incident.Billing, billingdomain.SourceIncident
	}
	if client.Defaults != nil {
		return client.Defaults, billingdomain.SourceClient
	}
	return nil, billingdomain.SourceNone
}

func describe(cfg billingdomain.BillingConfiguration) (string, string, error) {
	name, err := MethodName(cfg.BillingMethod)
	if err != nil {
		return "", "", err
	}

	switch cfg.BillingMethod {
	case billingdomain.BillingMethodTime:
		return name, billingdomain.UnitLabelHours, nil
	case billingdomain.BillingMethodSquareFootage:
		return name, billingdomain.UnitLabelSqFt, nil
	default:
		if cfg.CustomUnitDescription != "" {
			return name, cfg.CustomUnitDescription, nil
		}
		return name, billingdomain.UnitLabelDefault, nil
	}
}

// roundUp rounds d up to the next multiple of step. Multiples are left untouched.
func roundUp(d, step time.Duration) time.Duration {
	if step <= 0 || d <= 0 {
		return d
	}
	n := d / step
	if d%step != 0 {
		n++
	}
	return n * step
}

// BillableArea clamps a measured area to a non-negative finite value.
func BillableArea(area float64) decimal.Decimal {
	if math.IsNaN(area) || math.IsInf(area, 0) || area <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(area)
}
