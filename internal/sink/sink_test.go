package sink

import "testing"

func TestValidateName(t *testing.T) {
	good := []string{"summary", "top_artists", "history_playback", "t2"}
	for _, n := range good {
		if err := ValidateName(n); err != nil {
			t.Errorf("ValidateName(%q): %v", n, err)
		}
	}
	bad := []string{"", "2tracks", "drop table", "a-b", "../x", "Summary"}
	for _, n := range bad {
		if err := ValidateName(n); err == nil {
			t.Errorf("ValidateName(%q): expected error", n)
		}
	}
}

func TestColumnName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Played At", "played_at"},
		{"Track", "track"},
		{"Why You Love It", "why_you_love_it"},
		{"#", "_"},
		{"3rd", "c_3rd"},
	}
	for _, c := range cases {
		if got := ColumnName(c.in); got != c.want {
			t.Errorf("ColumnName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
