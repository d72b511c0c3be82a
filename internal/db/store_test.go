package db

import "testing"

func TestContainsPattern(t *testing.T) {
	cases := map[string]string{
		"":           "",
		"go":         "%go%",
		"100%":       `%100\%%`,
		"snake_case": `%snake\_case%`,
		`back\slash`: `%back\\slash%`,
	}
	for term, want := range cases {
		if got := containsPattern(term); got != want {
			t.Fatalf("containsPattern(%q) = %q, want %q", term, got, want)
		}
	}
}
