package main

import "testing"

func TestResolveDSN(t *testing.T) {
	tests := []struct {
		name      string
		flagValue string
		env       map[string]string
		want      string
	}{
		{name: "flag wins", flagValue: "postgres://flag", env: map[string]string{"CHECKOUT_POSTGRES_DSN": "postgres://env"}, want: "postgres://flag"},
		{name: "flag trimmed", flagValue: " postgres://flag ", want: "postgres://flag"},
		{name: "env fallback", env: map[string]string{"CHECKOUT_POSTGRES_DSN": " postgres://env "}, want: "postgres://env"},
		{name: "nothing set", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveDSN(tt.flagValue, mapLookup(tt.env))
			if got != tt.want {
				t.Fatalf("unexpected dsn: %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseDirection(t *testing.T) {
	for raw, want := range map[string]string{
		"up":       "up",
		" Down ":   "down",
		"STATUS":   "status",
		"  up\t":   "up",
		"down":     "down",
		"status  ": "status",
	} {
		got, err := parseDirection(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got != want {
			t.Fatalf("parse %q: got %q, want %q", raw, got, want)
		}
	}

	if _, err := parseDirection("sideways"); err == nil {
		t.Fatal("expected error for unsupported direction")
	}
}

func mapLookup(values map[string]string) envLookup {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
