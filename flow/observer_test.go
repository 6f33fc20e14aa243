package flow

import "testing"

func TestCompilePattern(t *testing.T) {
	cases := []struct {
		pattern string
		input   string
		want    bool
	}{
		{"a.b.c.d", "a.b.c.d", true},
		{"a.b.c.d", "a.b.c", false},
		{"a.b.*", "a.b.c", true},
		{"a.b.*", "a.b.c.d", true},
		{"a.b.*", "a.b", false},
		{"a.b.*", "a.x.c", false},
		{"*", "anything.at.all", true},
		{"a.b.c, a.x.*", "a.b.c", true},
		{"a.b.c, a.x.*", "a.x.anything", true},
		{"a.b.c, a.x.*", "a.y.z", false},
		{"a.b.c; a.x.*", "a.x.foo", true},
		{"a.b.c | a.x.*", "a.b.c", true},
		{"a.?.c", "a.b.c", true},
		{"a.?.c", "a.bb.c", false},
		{"a.??", "a.bc", true},
		{"a.??", "a.b", false},
	}
	for _, tc := range cases {
		re := compilePattern(tc.pattern)
		got := re.MatchString(tc.input)
		if got != tc.want {
			t.Errorf("compilePattern(%q).MatchString(%q) = %v, want %v", tc.pattern, tc.input, got, tc.want)
		}
	}
}
