package clients

import (
	"context"
	"net/http"

	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/models"
)

// LoginParams is the input of the login handshake. BirthDate is empty for
// company applicants.
type LoginParams struct {
	IdentityNumber string
	BirthDate      string
	PhoneNumber    string
	Kind           models.CustomerKind
}

// Tokens is the result of a successful OTP verification.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	CustomerID   string
}

type loginRequest struct {
	IdentityNumber string `json:"identityNumber"`
	BirthDate      string `json:"birthDate,omitempty"`
	PhoneNumber    string `json:"phoneNumber"`
	AgentID        string `json:"agentId"`
	CustomerKind   string `json:"customerKind"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type verifyRequest struct {
	Token string `json:"token"`
	Code  string `json:"code"`
}

type verifyResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	CustomerID   string `json:"customerId"`
}

// Login starts the login handshake and returns the one-time-code token the
// caller must verify.
func (p *Platform) Login(ctx context.Context, params LoginParams) (string, error) {
	req := loginRequest{
		IdentityNumber: params.IdentityNumber,
		BirthDate:      params.BirthDate,
		PhoneNumber:    params.PhoneNumber,
		AgentID:        p.agentID,
		CustomerKind:   string(params.Kind),
	}

	var resp loginResponse
	if err := p.do(ctx, http.MethodPost, "/auth/login", nil, req, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// VerifyCode exchanges the login token and the received one-time code for
// session tokens and the platform customer id.
func (p *Platform) VerifyCode(ctx context.Context, token, code string) (Tokens, error) {
	req := verifyRequest{Token: token, Code: code}

	var resp verifyResponse
	if err := p.do(ctx, http.MethodPost, "/auth/verify-code", nil, req, &resp); err != nil {
		return Tokens{}, err
	}
	return Tokens{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		CustomerID:   resp.CustomerID,
	}, nil
}
