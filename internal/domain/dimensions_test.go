package domain

import "testing"

func TestParseDimensionsLabeledForm(t *testing.T) {
	dims := ParseDimensions("L: 10cm, A: 20cm, P: 5cm")
	if dims.Width != "10" || dims.Height != "20" || dims.Depth != "5" {
		t.Fatalf("unexpected dimensions %+v", dims)
	}
	if dims.Unit != "cm" {
		t.Fatalf("expected unit cm got %q", dims.Unit)
	}
}

func TestParseDimensionsSeparatorForm(t *testing.T) {
	cases := map[string]Dimensions{
		"10 x 20 x 5":       {Width: "10", Height: "20", Depth: "5", Unit: "cm"},
		"10cm x 20cm x 5cm": {Width: "10", Height: "20", Depth: "5", Unit: "cm"},
		"1.5m X 2m X 0.5m":  {Width: "1.5", Height: "2", Depth: "0.5", Unit: "m"},
	}
	for input, expected := range cases {
		t.Run(input, func(t *testing.T) {
			dims := ParseDimensions(input)
			if dims != expected {
				t.Fatalf("ParseDimensions(%q) = %+v, expected %+v", input, dims, expected)
			}
		})
	}
}

func TestParseDimensionsLooseForm(t *testing.T) {
	dims := ParseDimensions("10 20 5 mm")
	if dims.Width != "10" || dims.Height != "20" || dims.Depth != "5" || dims.Unit != "mm" {
		t.Fatalf("unexpected dimensions %+v", dims)
	}

	dims = ParseDimensions("10 20 5")
	if dims.Unit != "cm" {
		t.Fatalf("expected default unit cm got %q", dims.Unit)
	}
}

func TestParseDimensionsUnmatchedInput(t *testing.T) {
	for _, input := range []string{"", "sob medida", "10 x 20"} {
		dims := ParseDimensions(input)
		if !dims.IsZero() {
			t.Fatalf("ParseDimensions(%q) populated numbers: %+v", input, dims)
		}
		if dims.Unit != DefaultDimensionUnit {
			t.Fatalf("ParseDimensions(%q) unit = %q", input, dims.Unit)
		}
	}
}

func TestDimensionsRoundTrip(t *testing.T) {
	inputs := []Dimensions{
		{Width: "10", Height: "20", Depth: "5", Unit: "cm"},
		{Width: "1.5", Height: "200", Depth: "45", Unit: "mm"},
		{Width: "12", Height: "8", Depth: "30", Unit: "in"},
	}
	for _, original := range inputs {
		parsed := ParseDimensions(original.String())
		if parsed != original {
			t.Fatalf("round trip of %+v produced %+v", original, parsed)
		}
	}
}

func TestDimensionsStringCanonicalForm(t *testing.T) {
	dims := Dimensions{Width: "10", Height: "20", Depth: "5", Unit: "cm"}
	expected := "L: 10cm, A: 20cm, P: 5cm"
	if got := dims.String(); got != expected {
		t.Fatalf("String() = %q, expected %q", got, expected)
	}
	if reparsed := ParseDimensions(expected); reparsed.String() != expected {
		t.Fatalf("reformat of %q produced %q", expected, reparsed.String())
	}
}
