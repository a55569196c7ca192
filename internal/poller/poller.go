// Package poller implements the asynchronous quote aggregation engine: it
// polls a proposal for gradually-arriving per-insurer quotes, derives a
// monotonic progress value from partial information, and decides when
// enough results have arrived or the time budget is spent.
package poller

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/clients"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/logger"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/models"
)

// Outcome classifies a finished polling session.
type Outcome string

const (
	// OutcomePending means the session is still collecting quotes.
	OutcomePending Outcome = "PENDING"
	// OutcomeSuccess means at least one Active offer survived filtering.
	OutcomeSuccess Outcome = "SUCCESS"
	// OutcomeNoOffers means the session converged or timed out with no
	// Active offer. A timeout gets the same UI treatment.
	OutcomeNoOffers Outcome = "NO_OFFERS"
	// OutcomeAuthError means a 401-class upstream response ended the
	// session; the funnel session has been logged out.
	OutcomeAuthError Outcome = "AUTH_ERROR"
	// OutcomeNetworkError means a non-auth upstream failure ended the
	// session without logout.
	OutcomeNetworkError Outcome = "NETWORK_ERROR"
)

// Placeholder metadata for insurer ids absent from the directory. Logo
// decoration is best-effort; it degrades, it never fails the quote.
const (
	genericInsurerName = "Insurance Company"
	genericInsurerLogo = "/assets/insurer-placeholder.svg"
)

// DirectoryService is the insurer directory fetch.
type DirectoryService interface {
	Companies(ctx context.Context) ([]models.Insurer, error)
}

// QuoteSource reads a proposal's current quotes.
type QuoteSource interface {
	FetchQuotes(ctx context.Context, proposalID string) ([]models.Quote, error)
}

// Config carries the aggregation knobs.
type Config struct {
	Interval      time.Duration
	Budget        time.Duration
	ProgressFloor int
	Allowlist     []string
}

// Snapshot is the poller's externally visible state. Offers holds only the
// Active allow-listed quotes, sorted ascending by the selected installment's
// gross premium.
type Snapshot struct {
	Offers          []models.Quote `json:"offers"`
	Progress        int            `json:"progress"`
	CompletionRatio float64        `json:"completionRatio"`
	Outcome         Outcome        `json:"outcome"`
	Done            bool           `json:"done"`
}

// Poller is the cancellable aggregation task for one proposal. All mutable
// state is owned by the polling goroutine and the merge function; readers
// only ever see copies through Snapshot.
type Poller struct {
	proposalID  string
	directory   DirectoryService
	source      QuoteSource
	cfg         Config
	allow       map[string]bool
	onAuthError func()
	log         *logger.Logger

	mu         sync.RWMutex
	snapshot   Snapshot
	selections map[string]int
	lastJoined []models.Quote

	startedAt time.Time
	stop      chan struct{}
	stopOnce  sync.Once
	done      chan struct{}
}

// New creates a poller for one proposal. onAuthError runs once if a
// 401-class response ends the session; it may be nil.
func New(proposalID string, directory DirectoryService, source QuoteSource, cfg Config, onAuthError func(), log *logger.Logger) *Poller {
	allow := make(map[string]bool, len(cfg.Allowlist))
	for _, id := range cfg.Allowlist {
		allow[id] = true
	}
	return &Poller{
		proposalID:  proposalID,
		directory:   directory,
		source:      source,
		cfg:         cfg,
		allow:       allow,
		onAuthError: onAuthError,
		log:         log.WithComponent("poller"),
		snapshot: Snapshot{
			Progress: cfg.ProgressFloor,
			Outcome:  OutcomePending,
			Offers:   []models.Quote{},
		},
		selections: make(map[string]int),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the polling goroutine. Fetches within the loop are
// strictly sequential: a new cycle begins only after the previous one has
// fully completed.
func (p *Poller) Start(ctx context.Context) {
	p.startedAt = time.Now()
	go p.run(ctx)
}

// Stop cancels the polling session. It is idempotent and safe to call from
// any exit path: stop condition, teardown, auth error.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
	})
}

// Done is closed when the polling goroutine has fully exited.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

// Snapshot returns a copy of the current aggregation state.
func (p *Poller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	snap := p.snapshot
	snap.Offers = append([]models.Quote(nil), p.snapshot.Offers...)
	return snap
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)
	defer p.Stop()

	insurers, err := p.directory.Companies(ctx)
	if err != nil {
		p.finishWithError(err, "insurer directory fetch failed")
		return
	}
	index := make(map[string]models.Insurer, len(insurers))
	for _, ins := range insurers {
		index[ins.ID] = ins
	}

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		stopped, err := p.cycle(ctx, index)
		if err != nil {
			p.finishWithError(err, "proposal fetch failed")
			return
		}
		if stopped {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-ticker.C:
		}
	}
}

// cycle performs one poll: fetch, join, de-duplicate, merge selections,
// filter, sort, derive progress, and evaluate the stop conditions.
func (p *Poller) cycle(ctx context.Context, index map[string]models.Insurer) (stopped bool, err error) {
	quotes, err := p.source.FetchQuotes(ctx, p.proposalID)
	if err != nil {
		return false, err
	}

	joined := make([]models.Quote, 0, len(quotes))
	for _, q := range quotes {
		if ins, ok := index[q.InsurerID]; ok {
			q.InsurerName = ins.Name
			q.InsurerLogo = ins.Logo
		} else {
			q.InsurerName = genericInsurerName
		}
		if q.InsurerLogo == "" {
			q.InsurerLogo = genericInsurerLogo
		}
		q.Premiums = dedupeInstallments(q.Premiums)
		joined = append(joined, q)
	}

	allowListed := make([]models.Quote, 0, len(joined))
	for _, q := range joined {
		if p.allow[q.ProductID] {
			allowListed = append(allowListed, q)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.selections = mergeSelections(p.selections, allowListed)
	for i := range allowListed {
		allowListed[i].SelectedInstallments = p.selections[allowListed[i].ID]
	}
	p.lastJoined = allowListed

	terminal := 0
	active := 0
	for _, q := range allowListed {
		if q.State.Terminal() {
			terminal++
		}
		if q.State == models.QuoteActive {
			active++
		}
	}

	ratio := 0.0
	if len(allowListed) > 0 {
		ratio = float64(terminal) / float64(len(allowListed))
	}

	p.snapshot.CompletionRatio = ratio
	p.snapshot.Progress = maxInt(p.snapshot.Progress, scaleProgress(ratio, p.cfg.ProgressFloor))
	p.snapshot.Offers = displayOffers(allowListed)

	converged := len(allowListed) > 0 && terminal == len(allowListed)
	expired := time.Since(p.startedAt) > p.cfg.Budget
	if !converged && !expired {
		return false, nil
	}

	p.snapshot.Progress = 100
	p.snapshot.Done = true
	if active > 0 {
		p.snapshot.Outcome = OutcomeSuccess
	} else {
		p.snapshot.Outcome = OutcomeNoOffers
	}

	p.log.Info("Polling session finished", map[string]interface{}{
		"proposal_id": p.proposalID,
		"outcome":     string(p.snapshot.Outcome),
		"offers":      len(p.snapshot.Offers),
		"converged":   converged,
		"expired":     expired,
	})
	return true, nil
}

// finishWithError classifies a terminal fetch failure. 401-class responses
// are auth errors: the registered callback logs the session out. Anything
// else halts polling without logout.
func (p *Poller) finishWithError(err error, msg string) {
	outcome := OutcomeNetworkError
	if clients.IsAuthError(err) {
		outcome = OutcomeAuthError
	}

	p.mu.Lock()
	p.snapshot.Outcome = outcome
	p.snapshot.Done = true
	p.mu.Unlock()

	p.log.Error(msg, err, map[string]interface{}{
		"proposal_id": p.proposalID,
		"outcome":     string(outcome),
	})

	if outcome == OutcomeAuthError && p.onAuthError != nil {
		p.onAuthError()
	}
}

// SelectInstallments records a local installment choice for an offer. It
// never triggers a re-fetch; the displayed order is re-derived from the
// last cycle's offers.
func (p *Poller) SelectInstallments(quoteID string, count int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, q := range p.lastJoined {
		if q.ID != quoteID {
			continue
		}
		for _, premium := range q.Premiums {
			if premium.InstallmentCount == count {
				p.selections[quoteID] = count
				for i := range p.lastJoined {
					p.lastJoined[i].SelectedInstallments = p.selections[p.lastJoined[i].ID]
				}
				p.snapshot.Offers = displayOffers(p.lastJoined)
				return true
			}
		}
		return false
	}
	return false
}

// mergeSelections is the sole writer of the installment-selection state.
// Selections of surviving offers are preserved; only newly-appeared offers
// get the default (first schedule entry). Re-running with an unchanged
// offer list is a no-op.
func mergeSelections(existing map[string]int, offers []models.Quote) map[string]int {
	merged := make(map[string]int, len(offers))
	for _, q := range offers {
		if count, ok := existing[q.ID]; ok {
			merged[q.ID] = count
			continue
		}
		if len(q.Premiums) > 0 {
			merged[q.ID] = q.Premiums[0].InstallmentCount
		}
	}
	return merged
}

// dedupeInstallments drops schedule entries sharing an installment count,
// first occurrence wins.
func dedupeInstallments(premiums []models.PremiumOption) []models.PremiumOption {
	seen := make(map[int]bool, len(premiums))
	result := premiums[:0:0]
	for _, premium := range premiums {
		if seen[premium.InstallmentCount] {
			continue
		}
		seen[premium.InstallmentCount] = true
		result = append(result, premium)
	}
	return result
}

// displayOffers filters to Active offers and sorts ascending by the
// selected installment's gross premium.
func displayOffers(allowListed []models.Quote) []models.Quote {
	offers := make([]models.Quote, 0, len(allowListed))
	for _, q := range allowListed {
		if q.State == models.QuoteActive {
			offers = append(offers, q)
		}
	}
	sort.SliceStable(offers, func(i, j int) bool {
		left, _ := offers[i].SelectedPremium()
		right, _ := offers[j].SelectedPremium()
		return left.GrossPremium < right.GrossPremium
	})
	return offers
}

// scaleProgress maps a completion ratio onto the visible progress band
// above the floor.
func scaleProgress(ratio float64, floor int) int {
	return floor + int(math.Round(ratio*float64(100-floor)))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
