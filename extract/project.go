package extract

import (
	"strings"
	"time"

	"github.com/xraph/berth/container"
)

// Project selects and derives the fields of row that op asks for. Fields
// outside the operation's subset stay nil. A row without a container number
// or availability token produces data that fails validation.
func Project(row Row, op container.Operation, now time.Time) *container.Data {
	f := derive(row, now)
	d := &container.Data{
		ContainerNumber: f.number,
		Status:          f.status,
	}

	switch op {
	case container.OpAvailability:
		d.Available = f.available
		d.Holds = f.holds
		d.HasHolds = f.hasHolds
		d.CustomsStatus = f.customsStatus
		d.CustomsReleased = f.customsReleased
		d.FreightStatus = f.freightStatus
		d.FreightReleased = f.freightReleased
	case container.OpLocation:
		d.Location = f.location
	case container.OpHolds:
		d.Holds = f.holds
		d.HasHolds = f.hasHolds
		d.CustomsStatus = f.customsStatus
		d.CustomsReleased = f.customsReleased
		d.FreightStatus = f.freightStatus
		d.FreightReleased = f.freightReleased
	case container.OpLastFreeDay:
		d.LastFreeDay = f.lastFreeDay
		d.LastGuarDay = optional(row.Get(ColLastGuarDay))
		d.PayThroughDate = optional(row.Get(ColPayThroughDate))
		d.TerminalDemurrageAmount = optional(row.Get(ColTerminalDemurrageAmount))
		d.DaysRemaining = f.daysRemaining
	default:
		d.Available = f.available
		d.Location = f.location
		d.Trucker = optional(row.Get(ColTrucker))
		d.CustomsStatus = f.customsStatus
		d.CustomsReleased = f.customsReleased
		d.FreightStatus = f.freightStatus
		d.FreightReleased = f.freightReleased
		d.Holds = f.holds
		d.HasHolds = f.hasHolds
		d.TerminalDemurrageAmount = optional(row.Get(ColTerminalDemurrageAmount))
		d.LastFreeDay = f.lastFreeDay
		d.LastGuarDay = optional(row.Get(ColLastGuarDay))
		d.PayThroughDate = optional(row.Get(ColPayThroughDate))
		d.NonDemurrageAmount = optional(row.Get(ColNonDemurrageAmount))
		d.SSCO = optional(row.Get(ColSSCO))
		d.Size = optional(row.Get(ColLength))
		d.Type = optional(row.Get(ColType))
		d.Height = optional(row.Get(ColHeight))
		d.Hazardous = yesNo(row.Get(ColHazardous))
		d.GensetRequired = yesNo(row.Get(ColGensetRequired))
		d.DaysRemaining = f.daysRemaining
	}
	return d
}

// derived holds the values computed once per row and shared by every
// operation's subset.
type derived struct {
	number          string
	status          string
	available       *bool
	location        *string
	customsStatus   *string
	customsReleased *bool
	freightStatus   *string
	freightReleased *bool
	holds           []string
	hasHolds        *bool
	lastFreeDay     *string
	daysRemaining   *int
}

func derive(row Row, now time.Time) derived {
	var f derived
	f.number = container.Normalize(row.Get(ColContainerNumber))
	f.location = optional(row.Get(ColLocation))
	f.customsStatus = optional(row.Get(ColCustomsStatus))
	f.freightStatus = optional(row.Get(ColFreightStatus))
	f.lastFreeDay = optional(row.Get(ColLastFreeDay))

	if f.customsStatus != nil {
		f.customsReleased = container.Ptr(strings.EqualFold(*f.customsStatus, "Released"))
	}
	if f.freightStatus != nil {
		fs := *f.freightStatus
		f.freightReleased = container.Ptr(strings.EqualFold(fs, "Released") || strings.EqualFold(fs, "Paid"))
	}

	f.holds = SplitHolds(row.Get(ColMiscHolds))
	f.hasHolds = container.Ptr(len(f.holds) > 0)

	if f.lastFreeDay != nil {
		f.daysRemaining = DaysRemaining(*f.lastFreeDay, now)
	}

	token := strings.TrimSpace(row.Get(ColAvailable))
	if token == "" {
		return f
	}
	available := IsAffirmative(token)
	f.available = &available

	switch {
	case available:
		f.status = container.StatusAvailable
	case len(f.holds) > 0, isFalse(f.customsReleased), isFalse(f.freightReleased):
		f.status = container.StatusOnHold
	default:
		f.status = container.StatusNotAvailable
	}
	return f
}

// IsAffirmative reports whether a yes/no cell reads as yes.
func IsAffirmative(token string) bool {
	return strings.EqualFold(strings.TrimSpace(token), "Yes")
}

// SplitHolds returns the comma-separated hold tokens of s, dropping empty
// tokens and the "NONE" marker.
func SplitHolds(s string) []string {
	holds := []string{}
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" || strings.EqualFold(tok, "NONE") {
			continue
		}
		holds = append(holds, tok)
	}
	return holds
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func yesNo(s string) *bool {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return container.Ptr(IsAffirmative(s))
}

func isFalse(b *bool) bool {
	return b != nil && !*b
}
