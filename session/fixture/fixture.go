// Package fixture provides a session.Provider that serves canned terminal
// result pages. It backs development, demos and tests where no browser is
// available.
package fixture

import (
	"context"
	"fmt"
	"html/template"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/xraph/berth"
	"github.com/xraph/berth/container"
	"github.com/xraph/berth/extract"
	"github.com/xraph/berth/id"
	"github.com/xraph/berth/session"
)

// Compile-time interface checks.
var (
	_ session.Provider = (*Provider)(nil)
	_ session.Session  = (*Session)(nil)
)

// Row is one container's cells, keyed by the extract column headers.
type Row map[string]string

// Dataset returns the built-in containers served by a fresh Provider.
func Dataset() map[string]Row {
	return map[string]Row{
		"MSDU4234521": {
			extract.ColContainerNumber: "MSDU4234521", extract.ColAvailable: "Yes",
			extract.ColLocation: "Yard 21", extract.ColTrucker: "ABC Trucking",
			extract.ColCustomsStatus: "Released", extract.ColFreightStatus: "Paid",
			extract.ColMiscHolds: "None", extract.ColTerminalDemurrageAmount: "$0",
			extract.ColLastFreeDay: "2024-11-20", extract.ColLastGuarDay: "2024-11-22",
			extract.ColPayThroughDate: "2024-11-25", extract.ColNonDemurrageAmount: "$0",
			extract.ColSSCO: "MAEU", extract.ColType: "DRY", extract.ColLength: "40",
			extract.ColHeight: "9.6", extract.ColHazardous: "No", extract.ColGensetRequired: "No",
		},
		"MSMU8317127": {
			extract.ColContainerNumber: "MSMU8317127", extract.ColAvailable: "No",
			extract.ColLocation: "Ship Bay 2", extract.ColTrucker: "XYZ Logistics",
			extract.ColCustomsStatus: "On Hold", extract.ColFreightStatus: "Pending",
			extract.ColMiscHolds: "HOLD", extract.ColTerminalDemurrageAmount: "$120",
			extract.ColLastFreeDay: "2024-11-18", extract.ColLastGuarDay: "2024-11-19",
			extract.ColPayThroughDate: "2024-11-20", extract.ColNonDemurrageAmount: "$55",
			extract.ColSSCO: "HLCU", extract.ColType: "REEFER", extract.ColLength: "20",
			extract.ColHeight: "8.6", extract.ColHazardous: "No", extract.ColGensetRequired: "Yes",
		},
		"MSBU5011443": {
			extract.ColContainerNumber: "MSBU5011443", extract.ColAvailable: "No",
			extract.ColLocation: "Ship Bay 6", extract.ColTrucker: "Some Logistics",
			extract.ColCustomsStatus: "On Hold", extract.ColFreightStatus: "Pending",
			extract.ColMiscHolds: "HOLD", extract.ColTerminalDemurrageAmount: "130",
			extract.ColLastFreeDay: "2024-11-18", extract.ColLastGuarDay: "2024-11-19",
			extract.ColPayThroughDate: "2024-11-20", extract.ColNonDemurrageAmount: "$55",
			extract.ColSSCO: "HLCU", extract.ColType: "REEFER", extract.ColLength: "20",
			extract.ColHeight: "8.6", extract.ColHazardous: "No", extract.ColGensetRequired: "Yes",
		},
		"ABCD1234567": {
			extract.ColContainerNumber: "ABCD1234567", extract.ColAvailable: "Yes",
			extract.ColLocation: "Block B4 Row 12", extract.ColTrucker: "Harbor Haulers",
			extract.ColCustomsStatus: "Released", extract.ColFreightStatus: "Released",
			extract.ColMiscHolds: "None", extract.ColTerminalDemurrageAmount: "$0",
			extract.ColLastFreeDay: "2024-12-02", extract.ColLastGuarDay: "2024-12-04",
			extract.ColPayThroughDate: "2024-12-04", extract.ColNonDemurrageAmount: "$0",
			extract.ColSSCO: "MSCU", extract.ColType: "DRY", extract.ColLength: "40",
			extract.ColHeight: "9.6", extract.ColHazardous: "No", extract.ColGensetRequired: "No",
		},
	}
}

// Provider hands out fixture sessions over a shared dataset.
type Provider struct {
	mu       sync.RWMutex
	rows     map[string]Row
	failures map[string]int
	opened   atomic.Int64
	closed   atomic.Bool
}

// Option configures a Provider.
type Option func(*Provider)

// WithRow adds or replaces the row served for its container number.
func WithRow(r Row) Option {
	return func(p *Provider) {
		p.rows[container.Normalize(r[extract.ColContainerNumber])] = r
	}
}

// WithFailures makes the next n searches for containerID fail.
func WithFailures(containerID string, n int) Option {
	return func(p *Provider) {
		p.failures[container.Normalize(containerID)] = n
	}
}

// New returns a Provider serving Dataset plus any rows added by opts.
func New(opts ...Option) *Provider {
	p := &Provider{
		rows:     Dataset(),
		failures: make(map[string]int),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Open returns a new session.
func (p *Provider) Open(_ context.Context) (session.Session, error) {
	if p.closed.Load() {
		return nil, fmt.Errorf("fixture: open: %w", berth.ErrSessionClosed)
	}
	p.opened.Add(1)
	return &Session{id: id.NewSessionID(), provider: p}, nil
}

// Close marks the provider closed. Later Open calls fail.
func (p *Provider) Close() error {
	p.closed.Store(true)
	return nil
}

// Put adds or replaces the row served for its container number. Sessions
// already open see it on their next search.
func (p *Provider) Put(r Row) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rows[container.Normalize(r[extract.ColContainerNumber])] = r
}

// Opened returns how many sessions have been opened.
func (p *Provider) Opened() int64 { return p.opened.Load() }

// Containers returns the container numbers with a canned row, sorted.
func (p *Provider) Containers() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Sorted(maps.Keys(p.rows))
}

func (p *Provider) lookup(containerID string) (Row, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := p.failures[containerID]; n > 0 {
		p.failures[containerID] = n - 1
		return nil, fmt.Errorf("fixture: simulated search failure for %s", containerID)
	}
	return p.rows[containerID], nil
}

// Session is a single fixture session.
type Session struct {
	id       id.SessionID
	provider *Provider
	closed   atomic.Bool
}

// ID returns the session identifier.
func (s *Session) ID() id.SessionID { return s.id }

// Search renders the results page for containerID. Unknown containers
// produce a page with an empty table body, the way the terminal does.
func (s *Session) Search(ctx context.Context, containerID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.closed.Load() {
		return "", fmt.Errorf("fixture: session %s: %w", s.id, berth.ErrSessionClosed)
	}
	row, err := s.provider.lookup(container.Normalize(containerID))
	if err != nil {
		return "", err
	}
	return Render(row)
}

// Close releases the session.
func (s *Session) Close(_ context.Context) error {
	s.closed.Store(true)
	return nil
}

var page = template.Must(template.New("results").Parse(`<!DOCTYPE html>
<html>
<head><title>Container Availability Results</title></head>
<body>
<div class="mt-4 mb-4 table-responsive">
  <table class="table table-sm z-depth-1 table-hover">
    <thead>
      <tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr>
    </thead>
    <tbody>
{{- if .Cells}}
      <tr>{{range .Cells}}<td>{{.}}</td>{{end}}</tr>
{{- end}}
    </tbody>
  </table>
</div>
</body>
</html>
`))

// headers are the page's column titles, in extract.Columns order.
var headers = []string{
	"Container Number", "Available", "Location", "Trucker",
	"Customs Status", "Freight Status", "Misc Holds", "Terminal Demurrage Amount",
	"Last Free Day", "Last Guar. Day", "Pay Through Date", "Non Demurrage Amount",
	"SSCO", "Type", "Length", "Height", "Hazardous", "Genset Required",
}

// Render produces a results page holding row. A nil row renders an empty
// table body.
func Render(row Row) (string, error) {
	data := struct {
		Headers []string
		Cells   []string
	}{Headers: headers}
	if row != nil {
		for _, col := range extract.Columns {
			data.Cells = append(data.Cells, row[col])
		}
	}
	var b strings.Builder
	if err := page.Execute(&b, data); err != nil {
		return "", fmt.Errorf("fixture: render: %w", err)
	}
	return b.String(), nil
}
