package monitor

import "github.com/Xylon2/xylositemonitor/internal/config"

var families = []Family{FamilyIPv4, FamilyIPv6}

// Expand turns site definitions into the flat, ordered list of probe tasks.
// The order is site, then url, then test, then protocol, then IPv4 before
// IPv6, with a single cert expiry task appended after a url's tests when
// cert checks are enabled and at least one test declared TLS. Report
// formatting depends on this order, so it is a contract, not an
// implementation detail.
//
// Expand is pure and performs no I/O. Definitions the config loader should
// have rejected produce a ConfigError before any task is created.
func Expand(sites []config.Site, opts config.Options) ([]Task, error) {
	var tasks []Task

	for _, site := range sites {
		if len(site.URLs) == 0 {
			return nil, config.Errorf("site %q has no urls", site.Name)
		}
		for _, u := range site.URLs {
			hasTLS := false
			for _, test := range u.Tests {
				if len(test.Protocols) == 0 {
					return nil, config.Errorf("url %q declares a test with an empty protocol set", u.URL)
				}
				for _, protocol := range test.Protocols {
					if protocol == config.ProtocolTLS {
						hasTLS = true
					}
					for _, family := range families {
						tasks = append(tasks, Task{
							Site:           site.Name,
							URL:            u.URL,
							Action:         test.Action,
							Protocol:       protocol,
							Family:         family,
							ExpectedString: site.ExpectedString,
						})
					}
				}
			}
			if hasTLS && opts.CertExpiryWeeks > 0 {
				tasks = append(tasks, Task{
					Site:      site.Name,
					URL:       u.URL,
					Action:    config.ActionCertExpiry,
					Protocol:  config.ProtocolTLS,
					Family:    FamilyNone,
					CertWeeks: opts.CertExpiryWeeks,
				})
			}
		}
	}

	return tasks, nil
}
