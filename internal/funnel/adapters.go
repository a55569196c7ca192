package funnel

import (
	"context"

	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/clients"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/models"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/session"
)

// The adapters below bind the shared Platform client to one session's
// token, narrowing it to the interfaces the machine, resolver, proposal
// adapter and poller consume.

type platformIdentity struct {
	platform *clients.Platform
}

func (a platformIdentity) Login(ctx context.Context, params clients.LoginParams) (string, error) {
	return a.platform.Login(ctx, params)
}

func (a platformIdentity) VerifyCode(ctx context.Context, token, code string) (clients.Tokens, error) {
	return a.platform.VerifyCode(ctx, token, code)
}

type platformProfile struct {
	platform *clients.Platform
	sess     *session.Session
}

func (a platformProfile) GetProfile(ctx context.Context) (*clients.Profile, error) {
	return a.platform.GetProfile(ctx, a.sess)
}

func (a platformProfile) UpdateProfile(ctx context.Context, kind models.CustomerKind, payload interface{}) error {
	return a.platform.UpdateProfile(ctx, a.sess, kind, payload)
}

type platformAddresses struct {
	platform *clients.Platform
}

func (a platformAddresses) Children(ctx context.Context, level models.AddressLevel, parentCode string) ([]models.Link, error) {
	return a.platform.AddressChildren(ctx, level, parentCode)
}

type platformLookup struct {
	platform *clients.Platform
	sess     *session.Session
}

func (a platformLookup) QueryAddress(ctx context.Context, propertyNumber string) (models.AddressChain, error) {
	return a.platform.QueryAddress(ctx, a.sess, propertyNumber)
}

func (a platformLookup) QueryOldPolicy(ctx context.Context, policyNumber string) (*clients.OldPolicyResult, error) {
	return a.platform.QueryOldPolicy(ctx, a.sess, policyNumber)
}

type platformRegistry struct {
	platform *clients.Platform
	sess     *session.Session
}

func (a platformRegistry) ListProperties(ctx context.Context, customerID string, usage models.UsageType) ([]models.Property, error) {
	return a.platform.ListProperties(ctx, a.sess, customerID, usage)
}

func (a platformRegistry) CreateProperty(ctx context.Context, payload clients.PropertyPayload) (string, error) {
	return a.platform.CreateProperty(ctx, a.sess, payload)
}

func (a platformRegistry) UpdateProperty(ctx context.Context, id string, payload clients.PropertyPayload) error {
	return a.platform.UpdateProperty(ctx, a.sess, id, payload)
}

type platformProposals struct {
	platform *clients.Platform
	sess     *session.Session
}

func (a platformProposals) CreateProposal(ctx context.Context, req clients.ProposalRequest) (string, error) {
	return a.platform.CreateProposal(ctx, a.sess, req)
}

type platformQuotes struct {
	platform *clients.Platform
	sess     *session.Session
}

func (a platformQuotes) FetchQuotes(ctx context.Context, proposalID string) ([]models.Quote, error) {
	return a.platform.FetchQuotes(ctx, a.sess, proposalID)
}
