package domain

type KeyPurpose string

const (
	KeyPurposeAuth    KeyPurpose = "auth"
	KeyPurposeEncrypt KeyPurpose = "encrypt"
)

type KeyHalf string

const (
	KeyHalfPrivate KeyHalf = "private"
	KeyHalfPublic  KeyHalf = "public"
)
