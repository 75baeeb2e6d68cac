package query

import "strings"

// Intent is what the user wants to know about a container.
type Intent string

const (
	IntentGetInfo           Intent = "get_info"
	IntentCheckAvailability Intent = "check_availability"
	IntentGetLocation       Intent = "get_location"
	IntentCheckHolds        Intent = "check_holds"
	IntentGetLastFreeDay    Intent = "get_lfd"
)

var aliases = map[string]Intent{
	"get_info":           IntentGetInfo,
	"info":               IntentGetInfo,
	"information":        IntentGetInfo,
	"details":            IntentGetInfo,
	"check_availability": IntentCheckAvailability,
	"available":          IntentCheckAvailability,
	"pickup":             IntentCheckAvailability,
	"get_location":       IntentGetLocation,
	"location":           IntentGetLocation,
	"where":              IntentGetLocation,
	"check_holds":        IntentCheckHolds,
	"holds":              IntentCheckHolds,
	"restrictions":       IntentCheckHolds,
	"get_lfd":            IntentGetLastFreeDay,
	"last_free_day":      IntentGetLastFreeDay,
	"lfd":                IntentGetLastFreeDay,
}

var capabilities = map[Intent]string{
	IntentGetInfo:           "get_container_info",
	IntentCheckAvailability: "check_container_availability",
	IntentGetLocation:       "get_container_location",
	IntentCheckHolds:        "check_container_holds",
	IntentGetLastFreeDay:    "get_last_free_day",
}

// Intents returns every intent.
func Intents() []Intent {
	return []Intent{
		IntentGetInfo,
		IntentCheckAvailability,
		IntentGetLocation,
		IntentCheckHolds,
		IntentGetLastFreeDay,
	}
}

// ParseIntent maps an intent name or alias to an Intent. Unknown values
// fall back to IntentGetInfo.
func ParseIntent(s string) Intent {
	if i, ok := aliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return i
	}
	return IntentGetInfo
}

// Capability returns the capability that answers i.
func (i Intent) Capability() string {
	if c, ok := capabilities[i]; ok {
		return c
	}
	return capabilities[IntentGetInfo]
}

func (i Intent) String() string { return string(i) }

// IntentFor returns the intent answered by the capability name.
func IntentFor(capability string) (Intent, bool) {
	for i, c := range capabilities {
		if c == capability {
			return i, true
		}
	}
	return "", false
}

// keyword order matters: the first rule that matches wins.
var keywordRules = []struct {
	intent   Intent
	keywords []string
}{
	{IntentGetLastFreeDay, []string{"last free day", "lfd", "demurrage", "free time", "deadline"}},
	{IntentCheckHolds, []string{"hold", "restriction", "blocking", "customs"}},
	{IntentCheckAvailability, []string{"available", "availability", "pickup", "pick up", "pick it up", "ready"}},
	{IntentGetLocation, []string{"where", "location", "located", "yard", "find"}},
}

// Classify guesses the intent of a free-text query from keywords. Container
// ids are blanked first so their letters never match a keyword.
func Classify(text string) Intent {
	lower := strings.ToLower(candidate.ReplaceAllString(text, " "))
	for _, r := range keywordRules {
		for _, k := range r.keywords {
			if strings.Contains(lower, k) {
				return r.intent
			}
		}
	}
	return IntentGetInfo
}
