package util

import "testing"

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"report.pdf":          "report.pdf",
		"  spaced name.pdf  ": "spaced name.pdf",
		"dir/sub\\file.pdf":   "dir_sub_file.pdf",
		"tab\tname.pdf":       "tabname.pdf",
	}
	for in, want := range cases {
		got, err := SanitizeFileName(in)
		if err != nil {
			t.Fatalf("SanitizeFileName(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", in, got, want)
		}
	}

	for _, bad := range []string{"", "   ", "../etc/passwd", "a..b.pdf"} {
		if _, err := SanitizeFileName(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestHasPDFExtension(t *testing.T) {
	if !HasPDFExtension("Policy.PDF") {
		t.Fatalf("expected upper-case extension to match")
	}
	if HasPDFExtension("policy.docx") {
		t.Fatalf("expected docx to be rejected")
	}
	if HasPDFExtension("pdf") {
		t.Fatalf("expected bare name without extension to be rejected")
	}
}
