package monitor

import "github.com/Xylon2/xylositemonitor/internal/config"

// Family is the network address family a probe is pinned to. Certificate
// checks connect by hostname and carry FamilyNone.
type Family string

const (
	FamilyIPv4 Family = "IPv4"
	FamilyIPv6 Family = "IPv6"
	FamilyNone Family = ""
)

// Task is one concrete network check derived from a site's declared tests.
type Task struct {
	Site           string
	URL            string
	Action         config.Action
	Protocol       config.Protocol
	Family         Family
	ExpectedString string
	// CertWeeks is the minimum weeks before expiry, set on cert expiry tasks.
	CertWeeks int
}

// Result is the raw outcome of running one task.
type Result struct {
	Task      Task
	Succeeded bool
	// Detail describes the failure: the observed value for assertion
	// mismatches, the error for network failures. Empty on success.
	Detail string
	// NetworkError distinguishes "could not complete the call" from
	// "the call completed but did not match expectations".
	NetworkError bool
}

// Pass returns a successful result for the task.
func (t Task) Pass() Result {
	return Result{Task: t, Succeeded: true}
}

// Fail returns an assertion-failure result.
func (t Task) Fail(detail string) Result {
	return Result{Task: t, Detail: detail}
}

// NetFail returns a network-error result.
func (t Task) NetFail(err error) Result {
	return Result{Task: t, Detail: err.Error(), NetworkError: true}
}

// SiteRun is one site's final results plus its retry status.
type SiteRun struct {
	Name     string
	Results  []Result
	Retested bool
}

// Passed reports whether every check for the site succeeded.
func (s SiteRun) Passed() bool {
	for _, r := range s.Results {
		if !r.Succeeded {
			return false
		}
	}
	return true
}
