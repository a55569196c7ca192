package funnel

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/clients"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/config"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/logger"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/models"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/poller"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/proposal"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/resolver"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/session"
)

// ErrSessionNotFound is returned for unknown funnel session ids.
var ErrSessionNotFound = errors.New("funnel session not found")

// SessionRecord is the persisted view of one funnel session.
type SessionRecord struct {
	ID         string
	State      string
	CustomerID string
	ProposalID string
}

// QuoteRunRecord is the persisted result of one finished polling session.
type QuoteRunRecord struct {
	SessionID  string
	ProposalID string
	Outcome    string
	Progress   int
	OfferCount int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Store is the persistence surface the manager writes through to. The
// in-memory funnel stays authoritative; persistence failures are logged,
// never surfaced to the user.
type Store interface {
	SaveSession(ctx context.Context, record SessionRecord) error
	RecordQuoteRun(ctx context.Context, record QuoteRunRecord) error
}

// Funnel aggregates everything belonging to one quotation pass: the state
// machine, the property resolver, the session context and, once the Quotes
// step is reached, the polling task.
type Funnel struct {
	ID       string
	Machine  *Machine
	Resolver *resolver.Resolver
	Session  *session.Session

	adapter  *proposal.Adapter
	registry platformRegistry
	quotes   platformQuotes

	mu     sync.Mutex
	poller *poller.Poller
}

// Manager owns the live funnel sessions.
type Manager struct {
	platform *clients.Platform
	cfg      config.QuotesConfig
	store    Store
	log      *logger.Logger

	mu      sync.RWMutex
	funnels map[string]*Funnel
}

// NewManager creates a funnel session manager.
func NewManager(platform *clients.Platform, cfg config.QuotesConfig, store Store, log *logger.Logger) *Manager {
	return &Manager{
		platform: platform,
		cfg:      cfg,
		store:    store,
		log:      log.WithComponent("funnel-manager"),
		funnels:  make(map[string]*Funnel),
	}
}

// Create starts a new funnel session at the Identity step.
func (m *Manager) Create(ctx context.Context) *Funnel {
	sess := session.New()
	log := m.log

	f := &Funnel{
		ID:      uuid.New().String(),
		Session: sess,
		Machine: NewMachine(
			sess,
			platformIdentity{platform: m.platform},
			platformProfile{platform: m.platform, sess: sess},
			log,
		),
		Resolver: resolver.New(
			platformAddresses{platform: m.platform},
			platformLookup{platform: m.platform, sess: sess},
			log,
		),
		adapter: proposal.NewAdapter(
			platformRegistry{platform: m.platform, sess: sess},
			platformProposals{platform: m.platform, sess: sess},
			m.platform.Channel(),
			log,
		),
		registry: platformRegistry{platform: m.platform, sess: sess},
		quotes:   platformQuotes{platform: m.platform, sess: sess},
	}

	// The hook runs under the machine lock; persistence happens off that
	// lock's critical path.
	f.Machine.OnTransition(func(state State, proposalID string) {
		go m.persist(f, state, proposalID)
	})
	m.persist(f, f.Machine.State(), "")

	m.mu.Lock()
	m.funnels[f.ID] = f
	m.mu.Unlock()

	m.log.Info("Funnel session created", map[string]interface{}{
		"session_id": f.ID,
	})
	return f
}

// Get returns a live funnel session.
func (m *Manager) Get(id string) (*Funnel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.funnels[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return f, nil
}

// Delete tears a session down, cancelling its polling task.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	f, ok := m.funnels[id]
	delete(m.funnels, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	f.StopPolling()
	m.log.Info("Funnel session deleted", map[string]interface{}{
		"session_id": id,
	})
	return nil
}

// Shutdown cancels every live polling task. Called on server shutdown.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.funnels {
		f.StopPolling()
	}
}

// LoadProperties fetches the customer's property list into the resolver.
// A non-empty list pre-selects the Existing strategy.
func (f *Funnel) LoadProperties(ctx context.Context) ([]models.Property, error) {
	properties, err := f.registry.ListProperties(ctx, f.Session.CustomerID(), models.UsageResidence)
	if err != nil {
		return nil, err
	}
	f.Resolver.SetProperties(properties)
	return properties, nil
}

// SubmitProperty validates the draft, creates the proposal through the
// machine's PropertyInfo→Quotes transition, and starts the polling task.
func (m *Manager) SubmitProperty(ctx context.Context, f *Funnel) error {
	if err := f.Resolver.Validate(); err != nil {
		return err
	}

	err := f.Machine.SubmitProperty(ctx, func(opCtx context.Context) (string, error) {
		return f.adapter.Submit(opCtx, f.Session.CustomerID(), f.Resolver.Draft())
	})
	if err != nil {
		return err
	}

	m.startPolling(f)
	return nil
}

// startPolling creates and starts the quote poller for the session's
// proposal, recording the run when it finishes.
func (m *Manager) startPolling(f *Funnel) {
	proposalID := f.Machine.ProposalID()
	startedAt := time.Now()

	p := poller.New(
		proposalID,
		m.platform,
		f.quotes,
		poller.Config{
			Interval:      m.cfg.PollInterval,
			Budget:        m.cfg.PollBudget,
			ProgressFloor: m.cfg.ProgressFloor,
			Allowlist:     m.cfg.ProductAllowlist,
		},
		f.Machine.ResetToIdentity,
		m.log,
	)

	f.mu.Lock()
	f.poller = p
	f.mu.Unlock()

	p.Start(context.Background())

	go func() {
		<-p.Done()
		snap := p.Snapshot()
		record := QuoteRunRecord{
			SessionID:  f.ID,
			ProposalID: proposalID,
			Outcome:    string(snap.Outcome),
			Progress:   snap.Progress,
			OfferCount: len(snap.Offers),
			StartedAt:  startedAt,
			FinishedAt: time.Now(),
		}
		if err := m.store.RecordQuoteRun(context.Background(), record); err != nil {
			m.log.Error("Failed to record quote run", err, map[string]interface{}{
				"session_id":  f.ID,
				"proposal_id": proposalID,
			})
		}
	}()
}

// Poller returns the session's polling task, nil before the Quotes step.
func (f *Funnel) Poller() *poller.Poller {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.poller
}

// StopPolling cancels the polling task if one is running. Idempotent.
func (f *Funnel) StopPolling() {
	f.mu.Lock()
	p := f.poller
	f.mu.Unlock()
	if p != nil {
		p.Stop()
	}
}

// persist writes the session state through to the store. Failures are
// logged and swallowed; persistence is not on the user's critical path.
func (m *Manager) persist(f *Funnel, state State, proposalID string) {
	record := SessionRecord{
		ID:         f.ID,
		State:      string(state),
		CustomerID: f.Session.CustomerID(),
		ProposalID: proposalID,
	}
	if err := m.store.SaveSession(context.Background(), record); err != nil {
		m.log.Error("Failed to persist funnel session", err, map[string]interface{}{
			"session_id": f.ID,
			"state":      string(state),
		})
	}
}
