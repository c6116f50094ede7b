package language

import "testing"

func TestNormalizeTag(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want string
	}{
		{"", ""},
		{"  EN ", "en"},
		{"zh_Hant", "zh-hant"},
		{"en-US", "en-us"},
		{"e1n", ""},
		{"--", ""},
	}

	for _, tc := range cases {
		if got := NormalizeTag(tc.raw); got != tc.want {
			t.Fatalf("NormalizeTag(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestNormalizeCode(t *testing.T) {
	t.Parallel()

	if got := NormalizeCode("en-US"); got != "en" {
		t.Fatalf("unexpected code: %q", got)
	}
	if got := NormalizeCode("zh"); got != "zh" {
		t.Fatalf("unexpected code: %q", got)
	}
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	if got := DisplayName("zh"); got != "简体中文" {
		t.Fatalf("unexpected display name for zh: %q", got)
	}
	if got := DisplayName("ja"); got != "日本語" {
		t.Fatalf("unexpected display name for ja: %q", got)
	}
	// Free-form labels pass through so users can type anything in settings.
	if got := DisplayName("Klingon"); got != "Klingon" {
		t.Fatalf("unexpected passthrough: %q", got)
	}
	if got := DisplayName(""); got != "简体中文" {
		t.Fatalf("unexpected default: %q", got)
	}
}
