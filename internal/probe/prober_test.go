package probe

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Xylon2/xylositemonitor/internal/config"
	"github.com/Xylon2/xylositemonitor/internal/monitor"
	"github.com/Xylon2/xylositemonitor/internal/transport"
)

func newTestProber(t *testing.T) *Prober {
	t.Helper()
	return New(transport.NewClient(5*time.Second, 0, 10), 5*time.Second)
}

// serverHost strips the scheme so the task carries a bare host:port, the way
// urls appear in the sites file.
func serverHost(server *httptest.Server) string {
	return strings.TrimPrefix(strings.TrimPrefix(server.URL, "http://"), "https://")
}

func TestReturnStringSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>Welcome to Xylon industries</html>")
	}))
	defer server.Close()

	task := monitor.Task{
		Site:           "xylon",
		URL:            serverHost(server),
		Action:         config.ActionReturnString,
		Protocol:       config.ProtocolNoTLS,
		Family:         monitor.FamilyIPv4,
		ExpectedString: "Xylon industries",
	}

	result := newTestProber(t).Run(context.Background(), task)
	if !result.Succeeded {
		t.Fatalf("expected success, got %q", result.Detail)
	}
}

func TestReturnStringMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "maintenance page")
	}))
	defer server.Close()

	task := monitor.Task{
		URL:            serverHost(server),
		Action:         config.ActionReturnString,
		Protocol:       config.ProtocolNoTLS,
		Family:         monitor.FamilyIPv4,
		ExpectedString: "Xylon industries",
	}

	result := newTestProber(t).Run(context.Background(), task)
	if result.Succeeded {
		t.Fatal("expected failure")
	}
	if result.NetworkError {
		t.Error("substring mismatch must be an assertion failure, not a network error")
	}
	if !strings.Contains(result.Detail, "expected string not found") {
		t.Errorf("detail: got %q", result.Detail)
	}
}

func TestReturnStringCaseSensitive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "xylon industries")
	}))
	defer server.Close()

	task := monitor.Task{
		URL:            serverHost(server),
		Action:         config.ActionReturnString,
		Protocol:       config.ProtocolNoTLS,
		Family:         monitor.FamilyIPv4,
		ExpectedString: "Xylon industries",
	}

	if result := newTestProber(t).Run(context.Background(), task); result.Succeeded {
		t.Fatal("match must be case-sensitive")
	}
}

func TestReturnStringLiteralNotRegex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "price is 5 dollars")
	}))
	defer server.Close()

	// ".*" would match anything as a pattern; as a literal it must not.
	task := monitor.Task{
		URL:            serverHost(server),
		Action:         config.ActionReturnString,
		Protocol:       config.ProtocolNoTLS,
		Family:         monitor.FamilyIPv4,
		ExpectedString: "price is .* dollars",
	}

	if result := newTestProber(t).Run(context.Background(), task); result.Succeeded {
		t.Fatal("expected string must be matched literally, not as a pattern")
	}
}

func TestReturnStringFollowsRedirect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, "/real", http.StatusFound)
			return
		}
		fmt.Fprint(w, "the real content")
	}))
	defer server.Close()

	task := monitor.Task{
		URL:            serverHost(server),
		Action:         config.ActionReturnString,
		Protocol:       config.ProtocolNoTLS,
		Family:         monitor.FamilyIPv4,
		ExpectedString: "real content",
	}

	if result := newTestProber(t).Run(context.Background(), task); !result.Succeeded {
		t.Fatalf("expected success through redirect, got %q", result.Detail)
	}
}

func TestReturnStringRedirectLoopIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Path+"x", http.StatusFound)
	}))
	defer server.Close()

	task := monitor.Task{
		URL:            serverHost(server),
		Action:         config.ActionReturnString,
		Protocol:       config.ProtocolNoTLS,
		Family:         monitor.FamilyIPv4,
		ExpectedString: "anything",
	}

	result := newTestProber(t).Run(context.Background(), task)
	if result.Succeeded {
		t.Fatal("expected failure")
	}
	if !result.NetworkError {
		t.Error("exceeding the redirect hop limit must be a network error")
	}
}

func TestRedirectSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://www.xylon.me.uk/", http.StatusMovedPermanently)
	}))
	defer server.Close()

	task := monitor.Task{
		URL:      serverHost(server),
		Action:   config.ActionRedirect,
		Protocol: config.ProtocolNoTLS,
		Family:   monitor.FamilyIPv4,
	}

	if result := newTestProber(t).Run(context.Background(), task); !result.Succeeded {
		t.Fatalf("expected success, got %q", result.Detail)
	}
}

func TestRedirectGot200IsAssertionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "no redirect here")
	}))
	defer server.Close()

	task := monitor.Task{
		URL:      serverHost(server),
		Action:   config.ActionRedirect,
		Protocol: config.ProtocolNoTLS,
		Family:   monitor.FamilyIPv4,
	}

	result := newTestProber(t).Run(context.Background(), task)
	if result.Succeeded {
		t.Fatal("expected failure")
	}
	if result.NetworkError {
		t.Error("a 200 answer is an assertion failure, not a network error")
	}
	if !strings.Contains(result.Detail, "200") {
		t.Errorf("detail should carry the observed status, got %q", result.Detail)
	}
}

func TestRedirectDNSFailureIsNetworkError(t *testing.T) {
	task := monitor.Task{
		URL:      "does-not-exist.invalid",
		Action:   config.ActionRedirect,
		Protocol: config.ProtocolNoTLS,
		Family:   monitor.FamilyIPv4,
	}

	result := newTestProber(t).Run(context.Background(), task)
	if result.Succeeded {
		t.Fatal("expected failure")
	}
	if !result.NetworkError {
		t.Error("a DNS failure must be a network error")
	}
}

func TestFamilyMismatchIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	task := monitor.Task{
		URL:            serverHost(server),
		Action:         config.ActionReturnString,
		Protocol:       config.ProtocolNoTLS,
		Family:         monitor.FamilyIPv6,
		ExpectedString: "anything",
	}

	result := newTestProber(t).Run(context.Background(), task)
	if result.Succeeded {
		t.Fatal("expected failure")
	}
	if !result.NetworkError {
		t.Error("no address of the requested family must be a network error")
	}
	if !strings.Contains(result.Detail, "IPv6") {
		t.Errorf("detail should name the family, got %q", result.Detail)
	}
}
