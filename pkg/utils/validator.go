package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	emailRegex       = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	nationalCodeRe   = regexp.MustCompile(`^[0-9]{10}$`)
	controlCharRegex = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
)

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

// ValidateNationalCode validates a 10-digit national identification code.
// The last digit is a mod-11 check digit over the first nine, weighted 10..2.
func ValidateNationalCode(code string) error {
	if !nationalCodeRe.MatchString(code) {
		return fmt.Errorf("national code must be 10 digits: %s", code)
	}

	if strings.Count(code, code[:1]) == len(code) {
		return fmt.Errorf("national code cannot repeat a single digit: %s", code)
	}

	sum := 0
	for i := 0; i < 9; i++ {
		sum += int(code[i]-'0') * (10 - i)
	}
	remainder := sum % 11
	check := int(code[9] - '0')

	expected := remainder
	if remainder >= 2 {
		expected = 11 - remainder
	}
	if check != expected {
		return fmt.Errorf("national code checksum mismatch: %s", code)
	}

	return nil
}

// ValidateAmount validates a money amount in whole currency units
func ValidateAmount(amount int64) error {
	if amount < 0 {
		return fmt.Errorf("amount must not be negative: %d", amount)
	}
	return nil
}

// ValidateDeduction checks a line deduction against the billed line total
func ValidateDeduction(deduction, total int64) error {
	if deduction < 0 {
		return fmt.Errorf("deduction must not be negative: %d", deduction)
	}
	if deduction > total {
		return fmt.Errorf("deduction %d exceeds line total %d", deduction, total)
	}
	return nil
}

// SanitizeString removes control characters, keeping tabs and newlines
func SanitizeString(s string) string {
	return strings.TrimSpace(controlCharRegex.ReplaceAllString(s, ""))
}
