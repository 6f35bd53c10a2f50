package logger

import "testing"

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug": DEBUG,
		"info":  INFO,
		"warn":  WARN,
		"error": ERROR,
		"":      INFO,
		"bogus": INFO,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestNopLoggerChildren(t *testing.T) {
	log := NewNop().Named("test").With("k", "v")
	// не должно паниковать
	log.Infow("hello", "n", 1)
	log.Debugw("hello")
}
