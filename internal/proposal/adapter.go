// Package proposal turns a resolved property draft into a platform
// proposal: it obtains a property reference from the registry and submits
// the pricing request.
package proposal

import (
	"context"
	"fmt"

	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/clients"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/logger"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/models"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/resolver"
)

// proposalType discriminates the insurance line on the platform side.
const proposalType = "DASK"

// RegistryService is the property registry surface the adapter needs.
type RegistryService interface {
	ListProperties(ctx context.Context, customerID string, usage models.UsageType) ([]models.Property, error)
	CreateProperty(ctx context.Context, payload clients.PropertyPayload) (string, error)
	UpdateProperty(ctx context.Context, id string, payload clients.PropertyPayload) error
}

// ProposalService submits the pricing request.
type ProposalService interface {
	CreateProposal(ctx context.Context, req clients.ProposalRequest) (string, error)
}

// Adapter creates proposals from resolved property drafts.
type Adapter struct {
	registry  RegistryService
	proposals ProposalService
	channel   string
	log       *logger.Logger
}

// NewAdapter creates a proposal adapter.
func NewAdapter(registry RegistryService, proposals ProposalService, channel string, log *logger.Logger) *Adapter {
	return &Adapter{
		registry:  registry,
		proposals: proposals,
		channel:   channel,
		log:       log.WithComponent("proposal"),
	}
}

// Submit resolves the property reference for the draft and creates a
// proposal for it. Proposals are immutable: calling Submit again creates a
// new one. There is no automatic retry; failures carry the platform's
// first structured message.
func (a *Adapter) Submit(ctx context.Context, customerID string, draft models.PropertyDraft) (string, error) {
	propertyID, err := a.resolvePropertyID(ctx, customerID, draft)
	if err != nil {
		return "", err
	}

	proposalID, err := a.proposals.CreateProposal(ctx, clients.ProposalRequest{
		Type:              proposalType,
		PropertyID:        propertyID,
		InsurerCustomerID: customerID,
		InsuredCustomerID: customerID,
		Channel:           a.channel,
	})
	if err != nil {
		return "", fmt.Errorf("proposal creation failed: %w", err)
	}

	a.log.Info("Proposal created", map[string]interface{}{
		"proposal_id": proposalID,
		"property_id": propertyID,
		"strategy":    string(draft.Strategy),
	})
	return proposalID, nil
}

// resolvePropertyID obtains a property reference per the acquisition
// strategy: the existing selection's id, or create-or-update against the
// registry keyed by UAVT code. Renewal first checks for a property with the
// same UAVT code and updates it in place instead of duplicating.
func (a *Adapter) resolvePropertyID(ctx context.Context, customerID string, draft models.PropertyDraft) (string, error) {
	if draft.Strategy == models.StrategyExisting {
		if draft.SelectedPropertyID == "" {
			return "", resolver.ErrNoPropertySelected
		}
		return draft.SelectedPropertyID, nil
	}

	payload, err := resolver.BuildPayload(draft)
	if err != nil {
		return "", err
	}

	if draft.Strategy == models.StrategyRenewal {
		existing, err := a.registry.ListProperties(ctx, customerID, "")
		if err != nil {
			return "", fmt.Errorf("property list fetch failed: %w", err)
		}
		for _, p := range existing {
			if p.UAVTCode != "" && p.UAVTCode == payload.UAVTCode {
				if err := a.registry.UpdateProperty(ctx, p.ID, payload); err != nil {
					return "", fmt.Errorf("property update failed: %w", err)
				}
				a.log.Debug("Updated existing property in place", map[string]interface{}{
					"property_id": p.ID,
					"uavt_code":   payload.UAVTCode,
				})
				return p.ID, nil
			}
		}
	}

	id, err := a.registry.CreateProperty(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("property creation failed: %w", err)
	}
	return id, nil
}
