package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"securepay/internal/domain"
)

const bearerPrefix = "bearer "

type SubmitPaymentRequest struct {
	Authorization string
	PayloadJWE    string
}

// SubmitPayment verifies the bearer token, opens the encrypted payload and
// records the payment. Each gate short-circuits the rest.
type SubmitPayment struct {
	Tokens   domain.TokenVerifier
	Payloads PayloadOpener
	NewID    func() string
	Clock    func() time.Time
}

func (uc *SubmitPayment) Execute(_ context.Context, req SubmitPaymentRequest) (*domain.PaymentResult, error) {
	token := ExtractBearerToken(req.Authorization)
	if token == "" {
		return nil, domain.NewProtocolError(domain.KindAuthentication, MsgAuthorizationRequired, nil)
	}

	if uc.Tokens == nil {
		return nil, domain.NewProtocolError(domain.KindConfiguration, MsgConfiguration, domain.ErrKeyMissing)
	}
	claims, err := uc.Tokens.Verify(token)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrKeyMissing):
		return nil, domain.NewProtocolError(domain.KindConfiguration, MsgConfiguration, err)
	case errors.Is(err, domain.ErrTokenExpired):
		return nil, domain.NewProtocolError(domain.KindAuthentication, MsgTokenExpired, err)
	case errors.Is(err, domain.ErrTokenInvalid):
		return nil, domain.NewProtocolError(domain.KindAuthentication, MsgTokenInvalid, err)
	default:
		return nil, domain.NewProtocolError(domain.KindServerFault, MsgInternal, err)
	}

	if strings.TrimSpace(req.PayloadJWE) == "" {
		return nil, domain.NewProtocolError(domain.KindClientRequest, MsgPayloadRequired, nil)
	}

	if uc.Payloads == nil {
		return nil, domain.NewProtocolError(domain.KindConfiguration, MsgConfiguration, domain.ErrKeyMissing)
	}
	payload, err := uc.Payloads.Open(req.PayloadJWE)
	if err != nil {
		var derr *domain.DecryptionError
		switch {
		case errors.Is(err, domain.ErrKeyMissing):
			return nil, domain.NewProtocolError(domain.KindConfiguration, MsgConfiguration, err)
		case errors.As(err, &derr):
			return nil, domain.NewProtocolError(domain.KindAuthentication, MsgDecryptFailedPrefix+derr.Error(), err)
		default:
			return nil, domain.NewProtocolError(domain.KindServerFault, MsgInternal, err)
		}
	}

	amount, err := decodeAmount(payload)
	if err != nil {
		return nil, domain.NewProtocolError(domain.KindServerFault, MsgInternal, err)
	}

	return &domain.PaymentResult{
		TransactionID: uc.newID(),
		Amount:        amount,
		ClientID:      claims.ClientID,
		Timestamp:     uc.now().UTC(),
	}, nil
}

func (uc *SubmitPayment) newID() string {
	if uc.NewID != nil {
		return uc.NewID()
	}
	return NewTransactionID()
}

func (uc *SubmitPayment) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock()
	}
	return time.Now()
}

func NewTransactionID() string {
	return "txn_" + uuid.NewString()
}

// ExtractBearerToken returns the credential of a "Bearer <token>" header
// value, or "" when the scheme is absent or the credential is empty.
func ExtractBearerToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(value), bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(value[len(bearerPrefix):])
}

// decodeAmount copies the amount out of the payload as is. The payload is not
// schema-checked, so any JSON value (or nil when absent) is carried through.
func decodeAmount(payload map[string]any) (any, error) {
	var fields struct {
		Amount any `mapstructure:"amount"`
	}
	if err := mapstructure.Decode(payload, &fields); err != nil {
		return nil, err
	}
	return fields.Amount, nil
}
