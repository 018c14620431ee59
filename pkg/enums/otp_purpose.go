package enums

import "fmt"

// OtpPurpose distinguishes what a one-time code unlocks.
type OtpPurpose string

const (
	OtpPurposeVerifyPhone OtpPurpose = "verify_phone"
)

var validOtpPurposes = []OtpPurpose{
	OtpPurposeVerifyPhone,
}

func (p OtpPurpose) String() string {
	return string(p)
}

// IsValid reports whether the value is a known OtpPurpose.
func (p OtpPurpose) IsValid() bool {
	for _, candidate := range validOtpPurposes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseOtpPurpose converts raw input into an OtpPurpose.
func ParseOtpPurpose(value string) (OtpPurpose, error) {
	for _, candidate := range validOtpPurposes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid otp purpose %q", value)
}
