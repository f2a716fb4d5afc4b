// Package payload opens payment envelopes for the request protocol.
package payload

import (
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"

	"securepay/internal/domain"
	"securepay/pkg/envelope"
)

// Opener binds the encrypt private key to envelope.Open and requires the
// plaintext to be a JSON object.
type Opener struct {
	Key *rsa.PrivateKey
}

func (o Opener) Open(sealed string) (map[string]any, error) {
	plaintext, err := envelope.Open(sealed, o.Key)
	if err != nil {
		var derr *envelope.DecryptionError
		switch {
		case errors.Is(err, envelope.ErrKeyMissing):
			return nil, fmt.Errorf("encrypt private key: %w", domain.ErrKeyMissing)
		case errors.As(err, &derr):
			return nil, &domain.DecryptionError{Err: derr.Err}
		default:
			return nil, err
		}
	}

	var fields map[string]any
	if err := json.Unmarshal(plaintext, &fields); err != nil {
		return nil, &domain.DecryptionError{Err: fmt.Errorf("decode payload: %w", err)}
	}
	if fields == nil {
		return nil, &domain.DecryptionError{Err: errors.New("decode payload: payload is not a JSON object")}
	}
	return fields, nil
}
