package enums

import "fmt"

// OTPChannel identifies the delivery channel for a verification code.
type OTPChannel string

const (
	OTPChannelPhone OTPChannel = "phone"
	OTPChannelEmail OTPChannel = "email"
)

var validOTPChannels = []OTPChannel{
	OTPChannelPhone,
	OTPChannelEmail,
}

// String implements fmt.Stringer.
func (c OTPChannel) String() string {
	return string(c)
}

// IsValid reports whether the value is a known OTPChannel.
func (c OTPChannel) IsValid() bool {
	for _, candidate := range validOTPChannels {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseOTPChannel converts raw input into an OTPChannel.
func ParseOTPChannel(value string) (OTPChannel, error) {
	for _, candidate := range validOTPChannels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid otp channel %q", value)
}
