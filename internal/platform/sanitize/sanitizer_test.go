package sanitize

import "testing"

func TestSanitizeStripsMarkup(t *testing.T) {
	s := NewTextSanitizer()
	cases := []struct {
		in   string
		want string
	}{
		{"Mesa de centro", "Mesa de centro"},
		{"<b>Mesa</b> de <script>alert(1)</script>centro", "Mesa de centro"},
		{"  Banco ripado \n", "Banco ripado"},
		{"Acabamento &amp; verniz", "Acabamento & verniz"},
		{"<img src=x onerror=alert(1)>", ""},
	}
	for _, tc := range cases {
		if got := s.Sanitize(tc.in); got != tc.want {
			t.Fatalf("Sanitize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
