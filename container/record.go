package container

// DataSource names the terminal every record is sourced from.
const DataSource = "PNCT"

// Record is the sanitized, caller-facing answer to a container query.
// Exactly one of two shapes holds: HasErrors is false and the structured
// fields are trustworthy, or HasErrors is true and ErrorMessage is set.
// Message is never empty.
type Record struct {
	ContainerID    *string     `json:"container_id" validate:"omitempty,container_id"`
	Intent         *string     `json:"intent" validate:"omitempty,oneof=get_info check_availability get_location check_holds get_lfd"`
	Confidence     *float64    `json:"confidence" validate:"omitempty,gte=0,lte=1"`
	Message        string      `json:"message"`
	ContainerData  *Data       `json:"container_data"`
	ToolsUsed      []ToolUsage `json:"tools_used" validate:"omitempty,dive"`
	QueryTimestamp *string     `json:"query_timestamp"`
	DataSource     string      `json:"data_source"`
	HasErrors      bool        `json:"has_errors"`
	ErrorMessage   *string     `json:"error_message"`
}

// ToolUsage records one capability invocation behind a Record.
type ToolUsage struct {
	ToolName   string         `json:"tool_name" validate:"required"`
	Parameters map[string]any `json:"parameters"`
	Success    bool           `json:"success"`
}

// ErrorText returns the error message or "" when none is set.
func (r *Record) ErrorText() string {
	if r == nil || r.ErrorMessage == nil {
		return ""
	}
	return *r.ErrorMessage
}

// ID returns the record's container id, falling back to the container
// number of its data.
func (r *Record) ID() string {
	if r == nil {
		return ""
	}
	if r.ContainerID != nil && *r.ContainerID != "" {
		return *r.ContainerID
	}
	if r.ContainerData != nil {
		return r.ContainerData.ContainerNumber
	}
	return ""
}
