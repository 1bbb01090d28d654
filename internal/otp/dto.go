package otp

// SendRequest asks for a fresh verification code on one channel.
type SendRequest struct {
	Channel string `json:"channel" validate:"required,oneof=phone email"`
	Target  string `json:"target" validate:"required"`
}

// VerifyRequest submits a previously delivered code.
type VerifyRequest struct {
	Channel string `json:"channel" validate:"required,oneof=phone email"`
	Target  string `json:"target" validate:"required"`
	Code    string `json:"code" validate:"required,len=6,numeric"`
}
