package jobs

import "strings"

var countryCodes = map[string]string{
	"united states":        "us",
	"united kingdom":       "uk",
	"canada":               "ca",
	"australia":            "au",
	"india":                "in",
	"germany":              "de",
	"france":               "fr",
	"spain":                "es",
	"italy":                "it",
	"netherlands":          "nl",
	"singapore":            "sg",
	"ireland":              "ie",
	"united arab emirates": "ae",
	"japan":                "jp",
	"south korea":          "kr",
	"switzerland":          "ch",
	"sweden":               "se",
	"new zealand":          "nz",
}

// CountryCode maps a country name to the two-letter code the job source expects.
// Two-letter input passes through lower-cased. ok is false for unknown countries.
func CountryCode(name string) (code string, ok bool) {
	name = strings.ToLower(strings.Join(strings.Fields(name), " "))
	if code, ok = countryCodes[name]; ok {
		return code, true
	}
	if len(name) == 2 && name[0] >= 'a' && name[0] <= 'z' && name[1] >= 'a' && name[1] <= 'z' {
		return name, true
	}
	return "", false
}
