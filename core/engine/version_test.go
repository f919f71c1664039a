package engine

import "testing"

func TestParseVersion(t *testing.T) {
	tests := []struct {
		output string
		want   string
		ok     bool
	}{
		{"V2Ray 5.16.1 (V2Fly, a community-driven edition of V2Ray.) Custom (go1.22.2 linux/amd64)\nA unified platform for anti-censorship.\n", "5.16.1", true},
		{"Xray 1.8.24 (Xray, Penetrates Everything.) 4f8bcd4 (go1.22.5 linux/amd64)\n", "1.8.24", true},
		{"V2Ray v4.45.2 (V2Fly)", "4.45.2", true},
		{"sing-box version 1.12.12", "", false},
	}
	for _, tt := range tests {
		got, ok := parseVersion(tt.output)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseVersion(%q) = (%q, %v), want (%q, %v)", tt.output, got, ok, tt.want, tt.ok)
		}
	}
}

func TestInstalledVersion_Missing(t *testing.T) {
	if _, err := InstalledVersion("/nonexistent/v2ray"); err == nil {
		t.Error("expected error for missing binary")
	}
}
