package types

// SuccessEnvelope wraps every successful response body. The storefront SPA
// unwraps data unconditionally, so even empty results carry the field.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
