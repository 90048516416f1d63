// Package report turns evaluated probe results into the run report and
// delivers it to the console, a JSON file, or a mail relay.
package report

import (
	"fmt"

	"github.com/Xylon2/xylositemonitor/internal/config"
	"github.com/Xylon2/xylositemonitor/internal/monitor"
)

// Line is one formatted report line. Verdict lines know whether they report a
// pass so renderers can color them.
type Line struct {
	Text      string
	IsVerdict bool
	Succeeded bool
}

// Report is the final run artifact: ordered lines grouped per site plus
// summary counts.
type Report struct {
	Lines         []Line
	Passed        int
	Failed        int
	SitesRetested int
}

// Describe renders the question a task asks, e.g.
//
//	IPv4, does "www.xylon.me.uk" return string over "TLS"?
//	does "www.xylon.me.uk" have at-least 2 weeks before cert expiry?
func Describe(t monitor.Task) string {
	if t.Action == config.ActionCertExpiry {
		return fmt.Sprintf("does %q have at-least %d weeks before cert expiry?", t.URL, t.CertWeeks)
	}
	return fmt.Sprintf("%s, does %q %s over %q?", t.Family, t.URL, t.Action, t.Protocol)
}

// Verdict renders the outcome line for a result.
func Verdict(r monitor.Result) string {
	if r.Succeeded {
		return "Test Success!"
	}
	return "Test Failed: " + r.Detail
}

// Build walks site runs in declaration order and each site's results in
// expansion order, producing the report. Worker completion order never
// influences the output; the engine already re-slotted results canonically.
func Build(runs []monitor.SiteRun) Report {
	var rep Report

	for _, site := range runs {
		rep.Lines = append(rep.Lines, Line{Text: "_" + site.Name + "_"}, Line{})

		for _, r := range site.Results {
			rep.Lines = append(rep.Lines,
				Line{Text: Describe(r.Task)},
				Line{Text: Verdict(r), IsVerdict: true, Succeeded: r.Succeeded},
				Line{},
			)
			if r.Succeeded {
				rep.Passed++
			} else {
				rep.Failed++
			}
		}

		if site.Retested {
			rep.SitesRetested++
		}
		rep.Lines = append(rep.Lines, Line{})
	}

	return rep
}

// Summary returns the trailing summary block.
func (r Report) Summary() []string {
	return []string{
		"Summary:",
		fmt.Sprintf("%d tests passed", r.Passed),
		fmt.Sprintf("%d tests failed", r.Failed),
		fmt.Sprintf("%d sites re-tested", r.SitesRetested),
	}
}
