package container

// Operation selects which subset of container data a pipeline run extracts.
type Operation string

// The closed set of operations.
const (
	OpFullInfo     Operation = "get_full_info"
	OpAvailability Operation = "check_availability"
	OpLocation     Operation = "get_location"
	OpHolds        Operation = "check_holds"
	OpLastFreeDay  Operation = "get_lfd"
)

// Operations returns every operation in declaration order.
func Operations() []Operation {
	return []Operation{OpFullInfo, OpAvailability, OpLocation, OpHolds, OpLastFreeDay}
}

// Valid reports whether o is one of the declared operations.
func (o Operation) Valid() bool {
	switch o {
	case OpFullInfo, OpAvailability, OpLocation, OpHolds, OpLastFreeDay:
		return true
	}
	return false
}

func (o Operation) String() string { return string(o) }

// ParseOperation returns the operation named s or a ValidationError.
func ParseOperation(s string) (Operation, error) {
	o := Operation(s)
	if !o.Valid() {
		return "", &ValidationError{Field: "operation", Value: s, Reason: "unknown operation"}
	}
	return o, nil
}
