package usecase

// PayloadOpener decrypts an encrypted payment envelope into its JSON object.
// Failures are *domain.DecryptionError unless key material is missing.
type PayloadOpener interface {
	Open(envelope string) (map[string]any, error)
}

const (
	MsgClientIDRequired      = "clientId is required"
	MsgAuthorizationRequired = "Authorization header required"
	MsgTokenExpired          = "Auth token has expired"
	MsgTokenInvalid          = "Invalid auth token"
	MsgPayloadRequired       = "payload_jwe is required"
	MsgDecryptFailedPrefix   = "Failed to decrypt payload: "
	MsgConfiguration         = "Server configuration error"
	MsgInternal              = "Internal server error"
)
