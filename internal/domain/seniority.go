package domain

import "strings"

// Seniority levels the model is asked to choose from.
const (
	SeniorityEntry     = "Entry"
	SeniorityJunior    = "Junior"
	SeniorityMid       = "Mid"
	SenioritySenior    = "Senior"
	SeniorityStaff     = "Staff"
	SeniorityPrincipal = "Principal"
	SeniorityLead      = "Lead"
)

// SeniorityLevels lists the enumeration in prompt order.
var SeniorityLevels = []string{
	SeniorityEntry,
	SeniorityJunior,
	SeniorityMid,
	SenioritySenior,
	SeniorityStaff,
	SeniorityPrincipal,
	SeniorityLead,
}

// IsKnownSeniority reports whether level matches one of SeniorityLevels, ignoring case.
// Unknown levels are still stored as given.
func IsKnownSeniority(level string) bool {
	level = strings.TrimSpace(level)
	for _, s := range SeniorityLevels {
		if strings.EqualFold(s, level) {
			return true
		}
	}
	return false
}
