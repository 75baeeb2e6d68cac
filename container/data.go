package container

import "slices"

// Data is the typed projection of one row of the terminal's availability
// table. Nil pointers mean the field was not selected by the operation or
// was not present in the source document.
type Data struct {
	ContainerNumber         string   `json:"container_number"`
	Status                  string   `json:"status"`
	Available               *bool    `json:"available"`
	Location                *string  `json:"location"`
	Trucker                 *string  `json:"trucker"`
	CustomsStatus           *string  `json:"customs_status"`
	CustomsReleased         *bool    `json:"customs_released"`
	FreightStatus           *string  `json:"freight_status"`
	FreightReleased         *bool    `json:"freight_released"`
	Holds                   []string `json:"holds"`
	HasHolds                *bool    `json:"has_holds"`
	TerminalDemurrageAmount *string  `json:"terminal_demurrage_amount"`
	LastFreeDay             *string  `json:"last_free_day"`
	LastGuarDay             *string  `json:"last_guar_day"`
	PayThroughDate          *string  `json:"pay_through_date"`
	NonDemurrageAmount      *string  `json:"non_demurrage_amount"`
	SSCO                    *string  `json:"ssco"`
	Size                    *string  `json:"size"`
	Type                    *string  `json:"type"`
	Height                  *string  `json:"height"`
	Hazardous               *bool    `json:"hazardous"`
	GensetRequired          *bool    `json:"genset_required"`
	DaysRemaining           *int     `json:"days_remaining"`
}

// Status values derived during extraction.
const (
	StatusAvailable    = "AVAILABLE"
	StatusOnHold       = "ON_HOLD"
	StatusNotAvailable = "NOT_AVAILABLE"
)

// Clone returns a deep copy of d.
func (d *Data) Clone() *Data {
	if d == nil {
		return nil
	}
	c := *d
	c.Available = clonePtr(d.Available)
	c.Location = clonePtr(d.Location)
	c.Trucker = clonePtr(d.Trucker)
	c.CustomsStatus = clonePtr(d.CustomsStatus)
	c.CustomsReleased = clonePtr(d.CustomsReleased)
	c.FreightStatus = clonePtr(d.FreightStatus)
	c.FreightReleased = clonePtr(d.FreightReleased)
	c.Holds = slices.Clone(d.Holds)
	c.HasHolds = clonePtr(d.HasHolds)
	c.TerminalDemurrageAmount = clonePtr(d.TerminalDemurrageAmount)
	c.LastFreeDay = clonePtr(d.LastFreeDay)
	c.LastGuarDay = clonePtr(d.LastGuarDay)
	c.PayThroughDate = clonePtr(d.PayThroughDate)
	c.NonDemurrageAmount = clonePtr(d.NonDemurrageAmount)
	c.SSCO = clonePtr(d.SSCO)
	c.Size = clonePtr(d.Size)
	c.Type = clonePtr(d.Type)
	c.Height = clonePtr(d.Height)
	c.Hazardous = clonePtr(d.Hazardous)
	c.GensetRequired = clonePtr(d.GensetRequired)
	c.DaysRemaining = clonePtr(d.DaysRemaining)
	return &c
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
