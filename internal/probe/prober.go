// Package probe executes individual checks against the network.
package probe

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/Xylon2/xylositemonitor/internal/config"
	"github.com/Xylon2/xylositemonitor/internal/monitor"
	"github.com/Xylon2/xylositemonitor/internal/transport"
)

// DefaultTimeout bounds one probe, connection establishment included.
const DefaultTimeout = 8 * time.Second

// Prober runs one task at a time against the live network. It is safe for
// concurrent use by the engine's workers.
type Prober struct {
	client  *transport.Client
	timeout time.Duration
	cert    certDialer
}

func New(client *transport.Client, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{
		client:  client,
		timeout: timeout,
		cert:    certDialer{timeout: timeout},
	}
}

// Run executes one task and reports its outcome. Network failures and
// assertion mismatches both come back as failed results; neither is an error
// in the Go sense, so a bad check can never abort the run.
func (p *Prober) Run(ctx context.Context, task monitor.Task) monitor.Result {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	switch task.Action {
	case config.ActionReturnString:
		return p.returnString(ctx, task)
	case config.ActionRedirect:
		return p.redirect(ctx, task)
	case config.ActionCertExpiry:
		return p.certExpiry(ctx, task)
	}
	return task.Fail(fmt.Sprintf("unknown action %q", task.Action))
}

func (p *Prober) returnString(ctx context.Context, task monitor.Task) monitor.Result {
	_, body, err := p.client.Fetch(ctx, taskURL(task), family(task), true)
	if err != nil {
		return task.NetFail(err)
	}
	if !bytes.Contains(body, []byte(task.ExpectedString)) {
		return task.Fail("expected string not found in response body")
	}
	return task.Pass()
}

func (p *Prober) redirect(ctx context.Context, task monitor.Task) monitor.Result {
	resp, _, err := p.client.Fetch(ctx, taskURL(task), family(task), false)
	if err != nil {
		return task.NetFail(err)
	}
	// A non-3xx answer means the server responded, just not as expected.
	if resp.StatusCode < 300 || resp.StatusCode > 399 {
		return task.Fail(fmt.Sprintf("status %d is not a redirect", resp.StatusCode))
	}
	return task.Pass()
}

func taskURL(task monitor.Task) string {
	return task.Protocol.Scheme() + "://" + task.URL
}

func family(task monitor.Task) transport.Family {
	if task.Family == monitor.FamilyIPv6 {
		return transport.FamilyIPv6
	}
	return transport.FamilyIPv4
}
