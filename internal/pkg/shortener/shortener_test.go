package shortener

import (
	"strings"
	"testing"
)

func TestGenerateSecureSlug_InvalidLength(t *testing.T) {
	t.Parallel()

	if _, err := GenerateSecureSlug(0); err == nil {
		t.Fatalf("expected error for invalid length")
	}
}

func TestGenerateSecureSlug_LengthAndAlphabet(t *testing.T) {
	t.Parallel()

	slug, err := GenerateSecureSlug(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slug) != 10 {
		t.Fatalf("expected slug length 10, got %d", len(slug))
	}

	for i := 0; i < len(slug); i++ {
		if strings.IndexByte(alphabet, slug[i]) == -1 {
			t.Fatalf("slug contains invalid character %q", slug[i])
		}
	}
}

func TestGenerateSecureSlug_UniqueWithinSmallBatch(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{})

	for i := 0; i < 100; i++ {
		slug, err := GenerateSecureSlug(10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, exists := seen[slug]; exists {
			t.Fatalf("duplicate slug generated in small batch: %s", slug)
		}
		seen[slug] = struct{}{}
	}
}

func TestTrackingCode_Shape(t *testing.T) {
	t.Parallel()

	code, err := TrackingCode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(code, "BD-") || len(code) != 11 {
		t.Fatalf("unexpected tracking code %q", code)
	}
	if !IsTrackingCode(code) {
		t.Fatalf("generated code %q does not validate", code)
	}
}

func TestIsTrackingCode_Rejects(t *testing.T) {
	t.Parallel()

	for _, code := range []string{"", "BD-", "BD-1234567", "XX-12345678", "BD-1234567!", "bd-12345678"} {
		if IsTrackingCode(code) {
			t.Fatalf("expected %q to be rejected", code)
		}
	}
}

func TestSlugify(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want string }{
		{"Road Closure on EDSA", "road-closure-on-edsa"},
		{"  Baha sa España Blvd!  ", "baha-sa-espana-blvd"},
		{"Update #3 -- Typhoon Carina", "update-3-typhoon-carina"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Fatalf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
