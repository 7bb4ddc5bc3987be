package combine

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// countPrinter formats pixel counts with thousands separators.
var countPrinter = message.NewPrinter(language.English)

// FloatText formats a float in its shortest decimal form, keeping a
// trailing .0 on whole values so a threshold of 2 reads as "2.0".
func FloatText(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
