package reconcile

import (
	"strings"
)

// StatusIDs maps lifecycle states to the remote status-label ids
// provisioned for this deployment.
type StatusIDs struct {
	Pending              int
	Deployed             int
	ResearchCompliant    int
	ResearchNonCompliant int
}

// DefaultStatusIDs matches the standard provisioning order.
func DefaultStatusIDs() StatusIDs {
	return StatusIDs{
		Pending:              1,
		Deployed:             2,
		ResearchCompliant:    3,
		ResearchNonCompliant: 4,
	}
}

// Evidence is what one observation can say about a host's lifecycle state.
type Evidence struct {
	// Domain membership is the positive deployment signal.
	Domain string

	// OrgUnit places the host in the directory tree; research units get
	// their own compliance states.
	OrgUnit string

	// Lab is the research lab the OU table attributes the host to, empty
	// when the OU maps to none.
	Lab string

	// EDR names the endpoint-security agent, empty when absent.
	EDR string
}

// isResearch reports whether the evidence places the host in a research
// unit: a lab attribution from the OU table, or a research marker in the
// OU path itself.
func (ev Evidence) isResearch() bool {
	return ev.Lab != "" || isResearchUnit(ev.OrgUnit)
}

// researchMarkers identify research organizational units by path segment.
var researchMarkers = []string{"research", "lab"}

// isResearchUnit reports whether the OU path contains a research marker as
// a whole path segment, so "Research Computing/Imaging" matches but
// "Labor Relations" does not.
func isResearchUnit(ou string) bool {
	for _, segment := range strings.Split(ou, "/") {
		segment = strings.ToLower(strings.TrimSpace(segment))
		for _, marker := range researchMarkers {
			if segment == marker || strings.HasPrefix(segment, marker+" ") {
				return true
			}
		}
	}
	return false
}

// NextStatus applies the lifecycle state machine. Research evidence takes
// precedence: a research-unit host is compliant when an EDR agent is
// present and non-compliant otherwise. A domain-joined host moves from
// Pending to Deployed. Deployed never automatically falls back to Pending;
// absent evidence leaves the current state alone, and unknown current
// states are preserved untouched.
func NextStatus(current int, ids StatusIDs, ev Evidence) int {
	if ev.isResearch() {
		if ev.EDR != "" {
			return ids.ResearchCompliant
		}
		return ids.ResearchNonCompliant
	}

	if ev.Domain != "" && (current == ids.Pending || current == 0) {
		return ids.Deployed
	}

	return current
}
