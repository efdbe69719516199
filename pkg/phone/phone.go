// Package phone normalizes phone numbers to E.164.
package phone

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when no region is configured.
const DefaultRegion = "MX"

// Normalize parses phone in region and returns it in E.164 format. It
// fails for numbers that do not parse or are not valid in their region.
func Normalize(phone, region string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", fmt.Errorf("phone number cannot be empty")
	}
	if region == "" {
		region = DefaultRegion
	}

	parsed, err := phonenumbers.Parse(phone, region)
	if err != nil {
		return "", fmt.Errorf("failed to parse phone number: %w", err)
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return "", fmt.Errorf("invalid phone number")
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}

// BestEffort returns the E.164 form when phone is valid and the trimmed
// input otherwise. Lead intake must never fail on a badly typed number.
func BestEffort(phone, region string) string {
	if n, err := Normalize(phone, region); err == nil {
		return n
	}
	return strings.TrimSpace(phone)
}

// Region returns the ISO region of an international number, or "".
func Region(phone string) string {
	parsed, err := phonenumbers.Parse(phone, "ZZ")
	if err != nil {
		return ""
	}
	region := phonenumbers.GetRegionCodeForNumber(parsed)
	if region == "ZZ" {
		return ""
	}
	return region
}
