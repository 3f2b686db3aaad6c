package codegen

import "testing"

func TestPascal(t *testing.T) {
	for in, want := range map[string]string{
		"rates":         "Rates",
		"setRate":       "SetRate",
		"rateChanged":   "RateChanged",
		"exchange_rate": "ExchangeRate",
		"id":            "ID",
		"userId":        "UserID",
		"avatarUrl":     "AvatarURL",
		"URL":           "URL",
		"query":         "Query",
		"_private":      "Private",
	} {
		if got := pascal(in); got != want {
			t.Errorf("pascal(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEnumValue(t *testing.T) {
	for in, want := range map[string]string{
		"UP":        "Up",
		"NOT_FOUND": "NotFound",
		"inReview":  "InReview",
	} {
		if got := enumValue(in); got != want {
			t.Errorf("enumValue(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSplitGoType(t *testing.T) {
	for in, want := range map[string]string{
		"time.Time":                "time|Time",
		"string":                   "|string",
		"github.com/x/money.Money": "github.com/x/money|Money",
	} {
		pkg, name, err := splitGoType(in)
		if err != nil {
			t.Fatalf("splitGoType(%q): %v", in, err)
		}
		if got := pkg + "|" + name; got != want {
			t.Errorf("splitGoType(%q) = %q, want %q", in, got, want)
		}
	}
	for _, bad := range []string{"time.", "github.com/x/money", "1abc", ".Time"} {
		if _, _, err := splitGoType(bad); err == nil {
			t.Errorf("splitGoType(%q) succeeded", bad)
		}
	}
}
