package sanitize

import (
	"fmt"
	"strings"

	"github.com/xraph/berth/container"
)

// MissingContainerID prompts the user for a container number.
const MissingContainerID = "Please provide a container number (4 letters followed by 7 digits) so I can look it up."

var intentTemplates = map[string]string{
	"get_info":           "Here is the information for container %s.",
	"check_availability": "Availability checked for container %s.",
	"get_location":       "Location retrieved for container %s.",
	"check_holds":        "Hold status retrieved for container %s.",
	"get_lfd":            "Last free day retrieved for container %s.",
}

// DefaultMessage returns the message for a record that has none. The first
// rule that applies wins:
//
//  1. an error condition yields the error text
//  2. a missing container id yields a prompt for one
//  3. populated container data yields a sentence built from availability,
//     location, holds and last free day
//  4. a known intent yields its templated sentence
//  5. anything else yields a generic sentence
//
// The result is never empty.
func DefaultMessage(r *container.Record) string {
	if r == nil {
		return NoData
	}

	if r.HasErrors || r.ErrorMessage != nil {
		if msg := strings.TrimSpace(r.ErrorText()); msg != "" {
			return msg
		}
		return "An error occurred while retrieving container information."
	}

	cid := r.ID()
	if cid == "" {
		return MissingContainerID
	}

	if msg, ok := describe(cid, r.ContainerData); ok {
		return msg
	}

	if r.Intent != nil {
		if tmpl, ok := intentTemplates[*r.Intent]; ok {
			return fmt.Sprintf(tmpl, cid)
		}
	}

	return fmt.Sprintf("Information retrieved for container %s.", cid)
}

// describe composes clauses from the populated fields of d. Clauses are
// joined with ". " and the sentence ends with a period.
func describe(cid string, d *container.Data) (string, bool) {
	if d == nil {
		return "", false
	}

	var clauses []string
	subject := "Container " + cid

	var state string
	switch {
	case d.Available != nil && *d.Available:
		state = " is available for pickup"
	case d.Available != nil:
		state = " is not available for pickup"
	}
	if d.Location != nil && *d.Location != "" {
		if state != "" {
			state += " at location " + *d.Location
		} else {
			state = " is at location " + *d.Location
		}
	}
	if state != "" {
		clauses = append(clauses, subject+state)
	}

	if d.HasHolds != nil && *d.HasHolds {
		who := "It"
		if len(clauses) == 0 {
			who = subject
		}
		if len(d.Holds) > 0 {
			clauses = append(clauses, who+" has holds: "+strings.Join(d.Holds, ", "))
		} else {
			clauses = append(clauses, who+" has holds")
		}
	}

	if d.LastFreeDay != nil && *d.LastFreeDay != "" {
		if len(clauses) == 0 {
			clauses = append(clauses, "The last free day for container "+cid+" is "+*d.LastFreeDay)
		} else {
			clauses = append(clauses, "Last free day is "+*d.LastFreeDay)
		}
	}

	if len(clauses) == 0 {
		return "", false
	}
	return strings.Join(clauses, ". ") + ".", true
}
