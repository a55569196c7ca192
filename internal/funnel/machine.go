package funnel

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/clients"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/logger"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/models"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/session"
)

// Machine-level errors.
var (
	ErrConsentRequired = errors.New("explicit consent is required")
	ErrBusy            = errors.New("an operation is already in progress")
	ErrWrongState      = errors.New("operation not valid in the current step")
	ErrNoLoginPending  = errors.New("no login handshake is pending")
)

// birthDateFormat is the wire format of birth dates.
const birthDateFormat = "2006-01-02"

// IdentityService is the identity/OTP provider surface the machine needs.
type IdentityService interface {
	Login(ctx context.Context, params clients.LoginParams) (string, error)
	VerifyCode(ctx context.Context, token, code string) (clients.Tokens, error)
}

// ProfileService is the customer profile surface, already bound to the
// session's token.
type ProfileService interface {
	GetProfile(ctx context.Context) (*clients.Profile, error)
	UpdateProfile(ctx context.Context, kind models.CustomerKind, payload interface{}) error
}

// ProfileInput is the additional-info form. Only the field matching the
// customer kind is read; immutable fields come from the stored applicant.
type ProfileInput struct {
	FullName string
	Title    string
}

// Machine is the flow state machine of one funnel session. It owns the
// wizard position and every transition guard; all mutable state is behind
// the mutex and the loading flag blocks duplicate submission while an async
// step is in flight.
type Machine struct {
	mu   sync.Mutex
	sess *session.Session

	identity IdentityService
	profile  ProfileService
	log      *logger.Logger

	state              State
	loading            bool
	autoAdvanceFired   bool
	manualEntryStarted bool
	loginToken         string
	kind               models.CustomerKind
	applicant          models.ApplicantIdentity
	proposalID         string

	// onTransition fires after every state change while the machine lock
	// is held, so it must not call back into the machine. It receives the
	// new state and the current proposal id for persistence write-through.
	onTransition func(State, string)
}

// NewMachine creates a machine at the Identity step.
func NewMachine(sess *session.Session, identity IdentityService, profile ProfileService, log *logger.Logger) *Machine {
	return &Machine{
		sess:     sess,
		identity: identity,
		profile:  profile,
		log:      log.WithComponent("funnel"),
		state:    StateIdentity,
	}
}

// OnTransition registers the state-change hook.
func (m *Machine) OnTransition(hook func(State, string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTransition = hook
}

// State returns the current wizard position.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Loading reports whether an async step is in flight.
func (m *Machine) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// CustomerKind returns the kind derived at identity submission.
func (m *Machine) CustomerKind() models.CustomerKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.kind
}

// ProposalID returns the proposal persisted for the Quotes step.
func (m *Machine) ProposalID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.proposalID
}

// transitionLocked changes state and fires the hook. Callers hold the lock.
func (m *Machine) transitionLocked(next State) {
	if m.state == next {
		return
	}
	m.log.Info("Funnel state transition", map[string]interface{}{
		"from": string(m.state),
		"to":   string(next),
	})
	m.state = next
	if m.onTransition != nil {
		m.onTransition(next, m.proposalID)
	}
}

// beginOp sets the loading flag if the machine is idle and in the expected
// state. The returned func clears the flag and must run on every exit path.
func (m *Machine) beginOp(expected State) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != expected {
		return nil, ErrWrongState
	}
	if m.loading {
		return nil, ErrBusy
	}
	m.loading = true
	return func() {
		m.mu.Lock()
		m.loading = false
		m.mu.Unlock()
	}, nil
}

// MarkManualEntry records that the user began filling the identity form.
// A token arriving afterwards must not auto-advance over their input.
func (m *Machine) MarkManualEntry() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manualEntryStarted = true
}

// AutoAdvance skips the Identity step for a pre-existing valid session.
// It fires at most once per session and never after manual entry began.
func (m *Machine) AutoAdvance() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateIdentity || m.autoAdvanceFired || m.manualEntryStarted {
		return false
	}
	if !m.sess.Authenticated() {
		return false
	}
	m.autoAdvanceFired = true
	m.transitionLocked(StatePropertyInfo)
	return true
}

// SubmitIdentity validates the applicant locally and runs the login
// handshake. Absent consent fails locally with no network call. On success
// the machine holds a pending login token awaiting OTP verification.
func (m *Machine) SubmitIdentity(ctx context.Context, applicant models.ApplicantIdentity, consent bool) error {
	done, err := m.beginOp(StateIdentity)
	if err != nil {
		return err
	}
	defer done()

	m.MarkManualEntry()

	if !consent {
		return ErrConsentRequired
	}
	if err := applicant.Validate(); err != nil {
		return err
	}
	kind, err := applicant.Kind()
	if err != nil {
		return err
	}

	birthDate := ""
	if applicant.BirthDate != nil {
		birthDate = applicant.BirthDate.Format(birthDateFormat)
	}

	token, err := m.identity.Login(ctx, clients.LoginParams{
		IdentityNumber: applicant.IdentityNumber,
		BirthDate:      birthDate,
		PhoneNumber:    applicant.PhoneNumber,
		Kind:           kind,
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.applicant = applicant
	m.kind = kind
	m.loginToken = token
	m.mu.Unlock()
	return nil
}

// VerifyCode exchanges the one-time code for session tokens, fetches the
// live profile and routes on completeness. A failed or bodiless profile
// response routes to AdditionalInfoRequired rather than hard-failing.
func (m *Machine) VerifyCode(ctx context.Context, code string) error {
	done, err := m.beginOp(StateIdentity)
	if err != nil {
		return err
	}
	defer done()

	m.mu.Lock()
	token := m.loginToken
	m.mu.Unlock()
	if token == "" {
		return ErrNoLoginPending
	}

	tokens, err := m.identity.VerifyCode(ctx, token, code)
	if err != nil {
		return err
	}
	m.sess.SetTokens(tokens.AccessToken, tokens.RefreshToken)
	m.sess.SetCustomerID(tokens.CustomerID)

	profile, err := m.profile.GetProfile(ctx)
	if err != nil {
		// Transient backend failure and a genuinely new customer are
		// deliberately routed the same way; only the log level differs.
		m.log.Warn("Profile fetch failed, requesting additional info", map[string]interface{}{
			"error": err.Error(),
		})
		m.setStateAfterProfile(false)
		return nil
	}
	if profile == nil {
		m.log.Info("Profile response had no body, requesting additional info", nil)
		m.setStateAfterProfile(false)
		return nil
	}

	m.setStateAfterProfile(m.profileComplete(profile))
	return nil
}

// profileComplete tests the completeness rule: trimmed name non-empty and
// both mandatory address codes present.
func (m *Machine) profileComplete(profile *clients.Profile) bool {
	m.mu.Lock()
	kind := m.kind
	m.mu.Unlock()

	name := profile.FullName
	if kind == models.KindCompany {
		name = profile.Title
	}
	return strings.TrimSpace(name) != "" &&
		profile.CityCode != "" &&
		profile.DistrictCode != ""
}

func (m *Machine) setStateAfterProfile(complete bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if complete {
		m.transitionLocked(StatePropertyInfo)
	} else {
		m.transitionLocked(StateAdditionalInfo)
	}
}

// CompleteProfile updates the missing profile fields and advances to
// PropertyInfo. The payload shape branches by customer kind and reuses the
// already-known immutable fields instead of re-asking.
func (m *Machine) CompleteProfile(ctx context.Context, input ProfileInput) error {
	done, err := m.beginOp(StateAdditionalInfo)
	if err != nil {
		return err
	}
	defer done()

	m.mu.Lock()
	kind := m.kind
	applicant := m.applicant
	m.mu.Unlock()

	var payload interface{}
	switch kind {
	case models.KindCompany:
		payload = clients.CompanyProfileUpdate{
			Title:     input.Title,
			TaxNumber: applicant.IdentityNumber,
		}
	default:
		birthDate := ""
		if applicant.BirthDate != nil {
			birthDate = applicant.BirthDate.Format(birthDateFormat)
		}
		payload = clients.IndividualProfileUpdate{
			FullName:       input.FullName,
			IdentityNumber: applicant.IdentityNumber,
			BirthDate:      birthDate,
		}
	}

	if err := m.profile.UpdateProfile(ctx, kind, payload); err != nil {
		return err
	}

	m.mu.Lock()
	m.transitionLocked(StatePropertyInfo)
	m.mu.Unlock()
	return nil
}

// SubmitProperty runs the injected proposal creation and advances to
// Quotes on success, persisting the proposal id for that step to consume.
// Failure keeps the machine at PropertyInfo.
func (m *Machine) SubmitProperty(ctx context.Context, create func(context.Context) (string, error)) error {
	done, err := m.beginOp(StatePropertyInfo)
	if err != nil {
		return err
	}
	defer done()

	proposalID, err := create(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.proposalID = proposalID
	m.transitionLocked(StateQuotes)
	m.mu.Unlock()
	return nil
}

// AdvanceToPurchase is the externally triggered Quotes→Purchase handoff.
func (m *Machine) AdvanceToPurchase() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateQuotes {
		return ErrWrongState
	}
	m.transitionLocked(StatePurchase)
	return nil
}

// ResetToIdentity logs the session out and forces the funnel back to the
// Identity step. Used on 401-class upstream responses.
func (m *Machine) ResetToIdentity() {
	m.sess.Clear()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loginToken = ""
	m.proposalID = ""
	m.transitionLocked(StateIdentity)
}
