package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"securepay/internal/domain"
)

type IssueTokenRequest struct {
	ClientID string
}

type IssueTokenResponse struct {
	Token     string
	ExpiresIn int
}

type IssueToken struct {
	Tokens domain.TokenIssuer
}

func (uc *IssueToken) Execute(_ context.Context, req IssueTokenRequest) (*IssueTokenResponse, error) {
	clientID := strings.TrimSpace(req.ClientID)
	if clientID == "" {
		return nil, domain.NewProtocolError(domain.KindClientRequest, MsgClientIDRequired, nil)
	}
	if uc.Tokens == nil {
		return nil, domain.NewProtocolError(domain.KindConfiguration, MsgConfiguration, domain.ErrKeyMissing)
	}
	token, err := uc.Tokens.Issue(domain.Claims{ClientID: clientID})
	if err != nil {
		if errors.Is(err, domain.ErrKeyMissing) {
			return nil, domain.NewProtocolError(domain.KindConfiguration, MsgConfiguration, err)
		}
		return nil, domain.NewProtocolError(domain.KindServerFault, MsgInternal, err)
	}
	return &IssueTokenResponse{
		Token:     token,
		ExpiresIn: int(uc.Tokens.TTL() / time.Second),
	}, nil
}
