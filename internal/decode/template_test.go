package decode

import "testing"

func TestExpand(t *testing.T) {
	values := Values{
		Circuit:  "boiler",
		Field:    "flame_power",
		Unit:     "%",
		Value:    "12",
		HasValue: true,
	}

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{
			"full topic",
			"ebusd/<circuit_name>/<field_name>/<field_value>",
			"ebusd/boiler/flame_power/12",
		},
		{
			"circuit synonym",
			"ebusd/<circuit>/<field_name>",
			"ebusd/boiler/flame_power",
		},
		{
			"unit placeholder",
			"<field_name> [<unit>]",
			"flame_power [%]",
		},
		{
			"unrecognised placeholder passes through",
			"ebusd/<circuit>/<frobnicate>",
			"ebusd/boiler/<frobnicate>",
		},
		{
			"unterminated bracket passes through",
			"ebusd/<circuit",
			"ebusd/<circuit",
		},
		{
			"no placeholders",
			"ebusd/static/topic",
			"ebusd/static/topic",
		},
		{
			"empty template",
			"",
			"",
		},
		{
			"adjacent placeholders",
			"<circuit><field_name>",
			"boilerflame_power",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Expand(tt.template, values); got != tt.want {
				t.Errorf("Expand(%q) = %q, want %q", tt.template, got, tt.want)
			}
		})
	}
}

func TestExpandDoesNotRecurse(t *testing.T) {
	// A substituted value containing placeholder syntax is never re-expanded.
	values := Values{
		Circuit:  "<field_name>",
		Field:    "inner",
		HasValue: true,
		Value:    "1",
	}
	if got := Expand("<circuit>/x", values); got != "<field_name>/x" {
		t.Errorf("Expand = %q, substituted text must not be re-expanded", got)
	}
}

func TestExpandWithoutValue(t *testing.T) {
	// Autodiscovery expansion has no live reading; <field_value> stays.
	values := Values{Circuit: "boiler", Field: "pressure", Unit: "bar"}
	got := Expand("<circuit>/<field_name>/<field_value>", values)
	if got != "boiler/pressure/<field_value>" {
		t.Errorf("Expand = %q, want field_value left verbatim", got)
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{12, "12"},
		{2.5, "2.5"},
		{-0.5, "-0.5"},
		{0, "0"},
		{1562.5, "1562.5"},
	}

	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
