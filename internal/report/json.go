package report

import (
	"encoding/json"
	"os"
	"time"

	"github.com/Xylon2/xylositemonitor/internal/config"
	"github.com/Xylon2/xylositemonitor/internal/monitor"
)

type jsonReport struct {
	GeneratedAt   string     `json:"generated_at"`
	Passed        int        `json:"passed"`
	Failed        int        `json:"failed"`
	SitesRetested int        `json:"sites_retested"`
	Sites         []jsonSite `json:"sites"`
}

type jsonSite struct {
	Name     string      `json:"name"`
	Passed   bool        `json:"passed"`
	Retested bool        `json:"retested"`
	Checks   []jsonCheck `json:"checks"`
}

type jsonCheck struct {
	URL          string `json:"url"`
	Action       string `json:"action"`
	Protocol     string `json:"protocol,omitempty"`
	Family       string `json:"family,omitempty"`
	Succeeded    bool   `json:"succeeded"`
	Detail       string `json:"detail,omitempty"`
	NetworkError bool   `json:"network_error,omitempty"`
}

// SaveJSON writes a machine-readable report next to the human-readable one.
func SaveJSON(runs []monitor.SiteRun, rep Report, path string) error {
	out := jsonReport{
		GeneratedAt:   time.Now().Format(time.RFC3339),
		Passed:        rep.Passed,
		Failed:        rep.Failed,
		SitesRetested: rep.SitesRetested,
	}

	for _, site := range runs {
		js := jsonSite{
			Name:     site.Name,
			Passed:   site.Passed(),
			Retested: site.Retested,
		}
		for _, r := range site.Results {
			check := jsonCheck{
				URL:          r.Task.URL,
				Action:       string(r.Task.Action),
				Family:       string(r.Task.Family),
				Succeeded:    r.Succeeded,
				Detail:       r.Detail,
				NetworkError: r.NetworkError,
			}
			if r.Task.Action != config.ActionCertExpiry {
				check.Protocol = string(r.Task.Protocol)
			}
			js.Checks = append(js.Checks, check)
		}
		out.Sites = append(out.Sites, js)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
