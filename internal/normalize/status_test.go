package normalize

import "testing"

func TestStatus(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"FT":                  "FT",
		"Finished":            "FT",
		"match finished":      "FT",
		"Full Time":           "FT",
		"full time (AET)":     "FT",
		"TERMINÉ":             "FT",
		"Terminé":             "Terminé",
		"Abandoned":           "Abandoned",
		"1H":                  "1H",
		"":                    "",
		"Not Started":         "Not Started",
		"Finished after pens": "FT",
	}

	for in, want := range cases {
		if got := Status(in); got != want {
			t.Fatalf("Status(%q)=%q want=%q", in, got, want)
		}
	}
}
