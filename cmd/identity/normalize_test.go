package identity

import "testing"

func TestNormalizeHandle(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "Casey", want: "casey"},
		{in: "  CASEY  ", want: "casey"},
		{in: "case-y_01", want: "case-y_01"},
		{in: "", want: ""},
	}

	for _, tc := range cases {
		if got := NormalizeHandle(tc.in); got != tc.want {
			t.Fatalf("NormalizeHandle(%q)=%q want=%q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail(" Casey@Example.COM "); got != "casey@example.com" {
		t.Fatalf("NormalizeEmail mismatch: %q", got)
	}
}
