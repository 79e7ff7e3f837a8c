package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScannerPIIPatterns(t *testing.T) {
	scanner, err := NewScanner()
	require.NoError(t, err)

	tests := []struct {
		name    string
		text    string
		pattern string
	}{
		{"email", "contact me at trader@example.com for details", "email"},
		{"phone", "call +1 (555) 123-4567 tonight", "phone"},
		{"ssn", "my ssn is 123-45-6789", "ssn"},
		{"credit card", "card 4111 1111 1111 1111 expires soon", "credit_card"},
		{"api key", `api_key="sk_live_abcdef1234567890abcd"`, "api_key"},
		{"private key hex", "use 0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318", "private_key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := scanner.Scan(tt.text)
			require.NotEmpty(t, findings, "expected a finding in %q", tt.text)

			found := false
			for _, f := range findings {
				if f.Kind == "pii" && f.Pattern == tt.pattern {
					found = true
				}
			}
			assert.True(t, found, "expected pattern %s, got %+v", tt.pattern, findings)
		})
	}
}

func TestScannerCollusionKeywords(t *testing.T) {
	scanner, err := NewScanner()
	require.NoError(t, err)

	findings := scanner.Scan("We should coordinate trades before the announcement drops")
	require.NotEmpty(t, findings)

	kinds := make(map[string]bool)
	for _, f := range findings {
		kinds[f.Pattern] = true
	}
	assert.True(t, kinds["coordinate trades"])
	assert.True(t, kinds["before the announcement"])
}

func TestScannerCleanText(t *testing.T) {
	scanner, err := NewScanner()
	require.NoError(t, err)

	findings := scanner.Scan("RSI at 62 suggests continued momentum; volume confirms the breakout.")
	assert.Empty(t, findings)
}

func TestScanAll(t *testing.T) {
	scanner, err := NewScanner()
	require.NoError(t, err)

	findings := scanner.ScanAll([]string{
		"clean analysis text",
		"leak: trader@example.com",
		"more clean text",
	})
	require.Len(t, findings, 1)
	assert.Equal(t, "email", findings[0].Pattern)
	// Excerpt is redacted
	assert.NotContains(t, findings[0].Excerpt, "example.com")
}

func TestCustomPatternTable(t *testing.T) {
	yaml := []byte(`
pii:
  - name: badge
    pattern: 'BADGE-\d{4}'
collusion:
  - secret handshake
`)
	scanner, err := NewScannerFromYAML(yaml)
	require.NoError(t, err)

	findings := scanner.Scan("employee BADGE-1234 proposed a secret handshake")
	assert.Len(t, findings, 2)
}

func TestInvalidPatternTable(t *testing.T) {
	_, err := NewScannerFromYAML([]byte(`pii: [{name: broken, pattern: "["}]`))
	assert.Error(t, err)
}
