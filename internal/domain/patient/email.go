package patient

import (
	"strconv"
	"strings"

	"github.com/histomed/histomed/pkg/textnorm"
)

const slugFallback = "paciente"

// Slug folds name and collapses every run of characters outside [a-z0-9]
// into a single ".".
func Slug(name string) string {
	var b strings.Builder
	pendingDot := false
	for _, r := range textnorm.Fold(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDot && b.Len() > 0 {
				b.WriteByte('.')
			}
			pendingDot = false
			b.WriteRune(r)
			continue
		}
		pendingDot = true
	}
	if b.Len() == 0 {
		return slugFallback
	}
	return b.String()
}

// DPISuffix returns the last four digits of dpi, all of them if fewer, or
// "0000" when it has none.
func DPISuffix(dpi string) string {
	var digits []rune
	for _, r := range dpi {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) == 0 {
		return "0000"
	}
	if len(digits) > 4 {
		digits = digits[len(digits)-4:]
	}
	return string(digits)
}

// EmailCandidates yields the portal email for a patient. Attempt 1 is the
// base address; later attempts append "-N" to the local part.
func EmailCandidates(name, dpi, domain string) func(attempt int) string {
	local := Slug(name) + "." + DPISuffix(dpi)
	return func(attempt int) string {
		if attempt <= 1 {
			return local + "@" + domain
		}
		return local + "-" + strconv.Itoa(attempt) + "@" + domain
	}
}
