package utils

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

const cardNumberLength = 16

// IsValidCardNumber reports whether the given card number is exactly 16
// decimal digits and passes the Luhn checksum. Any other shape is invalid;
// the function never panics or errors.
func IsValidCardNumber(cardNumber string) bool {
	if len(cardNumber) != cardNumberLength {
		return false
	}

	sum := 0
	double := false
	for i := len(cardNumber) - 1; i >= 0; i-- {
		ch := cardNumber[i]
		if ch < '0' || ch > '9' {
			return false
		}
		digit := int(ch - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}
	return sum%10 == 0
}

// luhnCheckDigit computes the digit that closes the given 15-digit body
// into a Luhn-valid number.
func luhnCheckDigit(body string) byte {
	sum := 0
	double := true
	for i := len(body) - 1; i >= 0; i-- {
		digit := int(body[i] - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}
	return byte((10-sum%10)%10) + '0'
}

// GenerateCardNumber generates a Luhn-valid card number with the given
// issuer prefix.
func GenerateCardNumber(prefix string) (string, error) {
	if len(prefix) >= cardNumberLength {
		return "", fmt.Errorf("prefix too long: %d digits", len(prefix))
	}

	random := make([]byte, cardNumberLength-len(prefix)-1)
	if _, err := rand.Read(random); err != nil {
		return "", fmt.Errorf("failed to generate random digits: %w", err)
	}

	var builder strings.Builder
	builder.WriteString(prefix)
	for _, b := range random {
		builder.WriteByte(b%10 + '0')
	}
	body := builder.String()

	return body + string(luhnCheckDigit(body)), nil
}

// GenerateExpiryDate generates a card expiry date (MM/YY)
func GenerateExpiryDate() string {
	now := time.Now()
	year := now.Year() + 3 // Cards valid for 3 years
	return fmt.Sprintf("%02d/%02d", now.Month(), year%100)
}

// GenerateCVV generates a 3-digit CVV code
func GenerateCVV() string {
	b := make([]byte, 3)
	rand.Read(b)
	return fmt.Sprintf("%d%d%d", b[0]%10, b[1]%10, b[2]%10)
}
