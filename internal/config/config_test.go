package config

import (
	"errors"
	"strings"
	"testing"
)

const exampleSites = `
options:
  cert expiry weeks: 2
sites:
  - name: xylon
    expected string: Xylon
    canonical address: https://www.xylon.me.uk/
    urls:
      - url: www.xylon.me.uk
        tests:
          - action: return string
            protocols: [TLS, no-TLS]
      - url: xylon.me.uk
        tests:
          - action: redirect
            protocols: [TLS, no-TLS]
`

func TestParseExample(t *testing.T) {
	f, err := Parse([]byte(exampleSites))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if f.Options.CertExpiryWeeks != 2 {
		t.Errorf("cert expiry weeks: got %d, want 2", f.Options.CertExpiryWeeks)
	}
	if len(f.Sites) != 1 {
		t.Fatalf("sites: got %d, want 1", len(f.Sites))
	}

	site := f.Sites[0]
	if site.Name != "xylon" {
		t.Errorf("name: got %q", site.Name)
	}
	if site.ExpectedString != "Xylon" {
		t.Errorf("expected string: got %q", site.ExpectedString)
	}
	if len(site.URLs) != 2 {
		t.Fatalf("urls: got %d, want 2", len(site.URLs))
	}
	if site.URLs[1].Tests[0].Action != ActionRedirect {
		t.Errorf("second url action: got %q", site.URLs[1].Tests[0].Action)
	}
	if got := site.URLs[0].Tests[0].Protocols; len(got) != 2 || got[0] != ProtocolTLS || got[1] != ProtocolNoTLS {
		t.Errorf("protocols: got %v", got)
	}
}

func TestParseNoCertOption(t *testing.T) {
	f, err := Parse([]byte(`
sites:
  - name: a
    urls:
      - url: a.example
        tests:
          - action: redirect
            protocols: [TLS]
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Options.CertExpiryWeeks != 0 {
		t.Errorf("cert expiry weeks: got %d, want 0", f.Options.CertExpiryWeeks)
	}
}

func TestParseRejects(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown action",
			yaml: `
sites:
  - name: a
    urls:
      - url: a.example
        tests:
          - action: http success
            protocols: [TLS]
`,
			want: "action not recognised",
		},
		{
			name: "unknown protocol",
			yaml: `
sites:
  - name: a
    urls:
      - url: a.example
        tests:
          - action: redirect
            protocols: [SSL]
`,
			want: "supported protocols",
		},
		{
			name: "empty protocol set",
			yaml: `
sites:
  - name: a
    urls:
      - url: a.example
        tests:
          - action: redirect
            protocols: []
`,
			want: "empty protocol set",
		},
		{
			name: "scheme in url",
			yaml: `
sites:
  - name: a
    urls:
      - url: https://a.example
        tests:
          - action: redirect
            protocols: [TLS]
`,
			want: "do not specify protocol in url",
		},
		{
			name: "return string without expected string",
			yaml: `
sites:
  - name: a
    urls:
      - url: a.example
        tests:
          - action: return string
            protocols: [TLS]
`,
			want: `"expected string" is not defined`,
		},
		{
			name: "site without urls",
			yaml: `
sites:
  - name: a
    urls: []
`,
			want: "has no urls",
		},
		{
			name: "duplicate site names",
			yaml: `
sites:
  - name: a
    urls:
      - url: a.example
        tests:
          - action: redirect
            protocols: [TLS]
  - name: a
    urls:
      - url: b.example
        tests:
          - action: redirect
            protocols: [TLS]
`,
			want: "duplicate site name",
		},
		{
			name: "no sites",
			yaml: `options: {}`,
			want: "no sites",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestParseConfigErrorType(t *testing.T) {
	_, err := Parse([]byte(`options: {}`))
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %T", err)
	}
}
