package probe

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/Xylon2/xylositemonitor/internal/monitor"
)

// certDialer retrieves leaf-certificate expiry over a verifying TLS session.
// An unretrievable certificate, a broken chain, or an already-expired
// certificate all fail the handshake and surface as network errors; they are
// never reported as zero days remaining.
type certDialer struct {
	timeout time.Duration
	// tlsConfig overrides the default verification roots; tests point it at
	// their own CA.
	tlsConfig *tls.Config
}

func (d certDialer) leafNotAfter(ctx context.Context, host string) (time.Time, error) {
	// Paths in a url entry are irrelevant to the certificate.
	host = strings.SplitN(host, "/", 2)[0]

	addr := host
	serverName := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		serverName = h
	} else {
		addr = net.JoinHostPort(host, "443")
	}

	cfg := d.tlsConfig
	if cfg == nil {
		cfg = &tls.Config{}
	} else {
		cfg = cfg.Clone()
	}
	cfg.ServerName = serverName

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: d.timeout},
		Config:    cfg,
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot retrieve certificate for %q: %w", host, err)
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return time.Time{}, errors.New("server presented no certificate")
	}
	return state.PeerCertificates[0].NotAfter, nil
}

func (p *Prober) certExpiry(ctx context.Context, task monitor.Task) monitor.Result {
	notAfter, err := p.cert.leafNotAfter(ctx, task.URL)
	if err != nil {
		return task.NetFail(err)
	}
	return evaluateCert(task, notAfter, time.Now())
}

// evaluateCert compares whole days remaining on the certificate against the
// configured minimum.
func evaluateCert(task monitor.Task, notAfter, now time.Time) monitor.Result {
	days := int(notAfter.Sub(now).Hours() / 24)
	need := task.CertWeeks * 7
	if days < need {
		return task.Fail(fmt.Sprintf("%d days remaining, need %d", days, need))
	}
	return task.Pass()
}
