package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/clients"
	apierrors "github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/errors"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/funnel"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/models"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/resolver"
)

// FunnelHandler exposes the quotation funnel as a session resource.
type FunnelHandler struct {
	manager *funnel.Manager
}

// NewFunnelHandler creates a new FunnelHandler instance.
func NewFunnelHandler(manager *funnel.Manager) *FunnelHandler {
	return &FunnelHandler{manager: manager}
}

// SessionResponse is the session status payload shared by several endpoints.
type SessionResponse struct {
	SessionID  string `json:"session_id"`
	State      string `json:"state"`
	Loading    bool   `json:"loading"`
	ProposalID string `json:"proposal_id,omitempty"`
}

func sessionResponse(f *funnel.Funnel) SessionResponse {
	return SessionResponse{
		SessionID:  f.ID,
		State:      string(f.Machine.State()),
		Loading:    f.Machine.Loading(),
		ProposalID: f.Machine.ProposalID(),
	}
}

// Create handles POST /api/v1/funnel. It starts a new funnel session at
// the Identity step.
func (h *FunnelHandler) Create(c *gin.Context) {
	f := h.manager.Create(c.Request.Context())
	c.JSON(http.StatusCreated, sessionResponse(f))
}

// Status handles GET /api/v1/funnel/:id.
func (h *FunnelHandler) Status(c *gin.Context) {
	f, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sessionResponse(f))
}

// Delete handles DELETE /api/v1/funnel/:id. Teardown cancels any running
// polling task.
func (h *FunnelHandler) Delete(c *gin.Context) {
	if err := h.manager.Delete(c.Param("id")); err != nil {
		apierrors.NotFound(c, "funnel session not found")
		return
	}
	c.Status(http.StatusNoContent)
}

// IdentityRequest is the Identity step submission.
type IdentityRequest struct {
	IdentityNumber string `json:"identity_number" binding:"required,numeric"`
	PhoneNumber    string `json:"phone_number" binding:"required"`
	BirthDate      string `json:"birth_date"`
	Email          string `json:"email" binding:"omitempty,email"`
	Consent        bool   `json:"consent"`
}

// SubmitIdentity handles POST /api/v1/funnel/:id/identity.
func (h *FunnelHandler) SubmitIdentity(c *gin.Context) {
	f, ok := h.session(c)
	if !ok {
		return
	}

	var req IdentityRequest
	if !bind(c, &req) {
		return
	}

	applicant := models.ApplicantIdentity{
		IdentityNumber: req.IdentityNumber,
		PhoneNumber:    req.PhoneNumber,
		Email:          req.Email,
	}
	if req.BirthDate != "" {
		birthDate, err := time.Parse("2006-01-02", req.BirthDate)
		if err != nil {
			apierrors.BadRequest(c, "birth_date must be formatted YYYY-MM-DD", nil)
			return
		}
		applicant.BirthDate = &birthDate
	}

	if err := f.Machine.SubmitIdentity(c.Request.Context(), applicant, req.Consent); err != nil {
		h.respondError(c, f, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(f))
}

// AutoAdvance handles POST /api/v1/funnel/:id/identity/auto-advance.
// A pre-existing valid session skips the Identity step exactly once.
func (h *FunnelHandler) AutoAdvance(c *gin.Context) {
	f, ok := h.session(c)
	if !ok {
		return
	}
	fired := f.Machine.AutoAdvance()
	c.JSON(http.StatusOK, gin.H{
		"fired":   fired,
		"session": sessionResponse(f),
	})
}

// VerifyRequest carries the one-time code.
type VerifyRequest struct {
	Code string `json:"code" binding:"required,numeric"`
}

// VerifyCode handles POST /api/v1/funnel/:id/identity/verify.
func (h *FunnelHandler) VerifyCode(c *gin.Context) {
	f, ok := h.session(c)
	if !ok {
		return
	}

	var req VerifyRequest
	if !bind(c, &req) {
		return
	}

	if err := f.Machine.VerifyCode(c.Request.Context(), req.Code); err != nil {
		h.respondError(c, f, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(f))
}

// ProfileRequest is the additional-info form. Exactly one of the two
// fields is read, per customer kind.
type ProfileRequest struct {
	FullName string `json:"full_name"`
	Title    string `json:"title"`
}

// CompleteProfile handles PUT /api/v1/funnel/:id/profile.
func (h *FunnelHandler) CompleteProfile(c *gin.Context) {
	f, ok := h.session(c)
	if !ok {
		return
	}

	var req ProfileRequest
	if !bind(c, &req) {
		return
	}

	err := f.Machine.CompleteProfile(c.Request.Context(), funnel.ProfileInput{
		FullName: req.FullName,
		Title:    req.Title,
	})
	if err != nil {
		h.respondError(c, f, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(f))
}

// ListProperties handles GET /api/v1/funnel/:id/properties.
func (h *FunnelHandler) ListProperties(c *gin.Context) {
	f, ok := h.session(c)
	if !ok {
		return
	}

	properties, err := f.LoadProperties(c.Request.Context())
	if err != nil {
		h.respondError(c, f, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"properties": properties,
		"draft":      f.Resolver.Draft(),
	})
}

// StrategyRequest selects the acquisition strategy.
type StrategyRequest struct {
	Strategy string `json:"strategy" binding:"required,oneof=EXISTING NEW RENEWAL"`
}

// SetStrategy handles PUT /api/v1/funnel/:id/property/strategy.
func (h *FunnelHandler) SetStrategy(c *gin.Context) {
	f, ok := h.session(c)
	if !ok {
		return
	}

	var req StrategyRequest
	if !bind(c, &req) {
		return
	}

	f.Resolver.SetStrategy(models.AcquisitionStrategy(req.Strategy))
	c.JSON(http.StatusOK, gin.H{"draft": f.Resolver.Draft()})
}

// SelectPropertyRequest picks an existing property.
type SelectPropertyRequest struct {
	PropertyID string `json:"property_id" binding:"required"`
}

// SelectProperty handles PUT /api/v1/funnel/:id/property/selection.
func (h *FunnelHandler) SelectProperty(c *gin.Context) {
	f, ok := h.session(c)
	if !ok {
		return
	}

	var req SelectPropertyRequest
	if !bind(c, &req) {
		return
	}

	if err := f.Resolver.SelectProperty(req.PropertyID); err != nil {
		h.respondError(c, f, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": f.Resolver.Draft()})
}

// SelectLinkRequest is one manual cascading address selection.
type SelectLinkRequest struct {
	Level string `json:"level" binding:"required"`
	Code  string `json:"code" binding:"required"`
	Name  string `json:"name"`
}

// SelectLink handles POST /api/v1/funnel/:id/property/address. The
// response carries the next level's selectable children.
func (h *FunnelHandler) SelectLink(c *gin.Context) {
	f, ok := h.session(c)
	if !ok {
		return
	}

	var req SelectLinkRequest
	if !bind(c, &req) {
		return
	}

	level, ok := models.ParseAddressLevel(req.Level)
	if !ok {
		apierrors.BadRequest(c, "unknown address level", map[string]interface{}{
			"level": req.Level,
		})
		return
	}

	children, err := f.Resolver.SelectLink(c.Request.Context(), level, models.Link{
		Code: req.Code,
		Name: req.Name,
	})
	if err != nil {
		h.respondError(c, f, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"children": children,
		"draft":    f.Resolver.Draft(),
	})
}

// QueryAddressRequest carries a 10-digit UAVT code.
type QueryAddressRequest struct {
	UAVTCode string `json:"uavt_code" binding:"required"`
}

// QueryAddress handles POST /api/v1/funnel/:id/property/query-address.
// A recognized "not found" is a 200 with fell_back=true and an inline
// message, never an error response.
func (h *FunnelHandler) QueryAddress(c *gin.Context) {
	f, ok := h.session(c)
	if !ok {
		return
	}

	var req QueryAddressRequest
	if !bind(c, &req) {
		return
	}

	fellBack, err := f.Resolver.LookupUAVT(c.Request.Context(), req.UAVTCode)
	if err != nil {
		h.respondError(c, f, err)
		return
	}

	resp := gin.H{
		"fell_back": fellBack,
		"draft":     f.Resolver.Draft(),
	}
	if fellBack {
		resp["message"] = "Address not found for this UAVT code. Please select your address manually."
	}
	c.JSON(http.StatusOK, resp)
}

// QueryOldPolicyRequest carries an 8-digit old policy number.
type QueryOldPolicyRequest struct {
	PolicyNumber string `json:"policy_number" binding:"required"`
}

// QueryOldPolicy handles POST /api/v1/funnel/:id/property/query-old-policy.
func (h *FunnelHandler) QueryOldPolicy(c *gin.Context) {
	f, ok := h.session(c)
	if !ok {
		return
	}

	var req QueryOldPolicyRequest
	if !bind(c, &req) {
		return
	}

	if err := f.Resolver.LookupOldPolicy(c.Request.Context(), req.PolicyNumber); err != nil {
		h.respondError(c, f, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": f.Resolver.Draft()})
}

// PolicyNumberRequest changes the renewal policy number, clearing the
// lookup-derived fields.
type PolicyNumberRequest struct {
	PolicyNumber string `json:"policy_number" binding:"required"`
}

// SetPolicyNumber handles PUT /api/v1/funnel/:id/property/policy-number.
func (h *FunnelHandler) SetPolicyNumber(c *gin.Context) {
	f, ok := h.session(c)
	if !ok {
		return
	}

	var req PolicyNumberRequest
	if !bind(c, &req) {
		return
	}

	if err := f.Resolver.SetPolicyNumber(req.PolicyNumber); err != nil {
		h.respondError(c, f, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": f.Resolver.Draft()})
}

// StructuralRequest is the manual structural attribute form.
type StructuralRequest struct {
	StructureMaterial string `json:"structure_material" binding:"required"`
	ConstructionYear  int    `json:"construction_year" binding:"required"`
	FloorCountRange   string `json:"floor_count_range" binding:"required"`
	FloorNumber       string `json:"floor_number" binding:"required"`
	AreaSqm           int    `json:"area_sqm" binding:"required"`
	UsageType         string `json:"usage_type" binding:"required"`
	DamageStatus      string `json:"damage_status" binding:"required"`
	OwnershipType     string `json:"ownership_type" binding:"required"`
}

// SetStructural handles PUT /api/v1/funnel/:id/property/structural.
func (h *FunnelHandler) SetStructural(c *gin.Context) {
	f, ok := h.session(c)
	if !ok {
		return
	}

	var req StructuralRequest
	if !bind(c, &req) {
		return
	}

	floor, err := resolver.ParseFloorNumber(req.FloorNumber)
	if err != nil {
		h.respondError(c, f, err)
		return
	}

	attrs := models.StructuralAttributes{
		StructureMaterial: models.StructureMaterial(req.StructureMaterial),
		ConstructionYear:  req.ConstructionYear,
		FloorCountRange:   models.FloorCountRange(req.FloorCountRange),
		FloorNumber:       floor,
		AreaSqm:           req.AreaSqm,
		UsageType:         models.UsageType(req.UsageType),
		DamageStatus:      models.DamageStatus(req.DamageStatus),
		OwnershipType:     models.OwnershipType(req.OwnershipType),
	}
	if err := f.Resolver.SetStructural(attrs); err != nil {
		h.respondError(c, f, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": f.Resolver.Draft()})
}

// SubmitProperty handles POST /api/v1/funnel/:id/property. Success creates
// the proposal, advances to Quotes and starts the polling task.
func (h *FunnelHandler) SubmitProperty(c *gin.Context) {
	f, ok := h.session(c)
	if !ok {
		return
	}

	if err := h.manager.SubmitProperty(c.Request.Context(), f); err != nil {
		h.respondError(c, f, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(f))
}

// Quotes handles GET /api/v1/funnel/:id/quotes and returns the current
// aggregation snapshot.
func (h *FunnelHandler) Quotes(c *gin.Context) {
	f, ok := h.session(c)
	if !ok {
		return
	}

	p := f.Poller()
	if p == nil {
		apierrors.Conflict(c, "quotes are not being collected for this session")
		return
	}
	c.JSON(http.StatusOK, p.Snapshot())
}

// InstallmentRequest selects an installment count for one offer.
type InstallmentRequest struct {
	InstallmentCount int `json:"installment_count" binding:"required,min=1"`
}

// SelectInstallment handles PUT /api/v1/funnel/:id/quotes/:quoteID/installment.
// The selection is local state; it never triggers a re-fetch.
func (h *FunnelHandler) SelectInstallment(c *gin.Context) {
	f, ok := h.session(c)
	if !ok {
		return
	}

	var req InstallmentRequest
	if !bind(c, &req) {
		return
	}

	p := f.Poller()
	if p == nil {
		apierrors.Conflict(c, "quotes are not being collected for this session")
		return
	}
	if !p.SelectInstallments(c.Param("quoteID"), req.InstallmentCount) {
		apierrors.NotFound(c, "no such offer or installment option")
		return
	}
	c.JSON(http.StatusOK, p.Snapshot())
}

// Purchase handles POST /api/v1/funnel/:id/purchase, the externally
// triggered Quotes→Purchase handoff. Purchase itself is out of scope.
func (h *FunnelHandler) Purchase(c *gin.Context) {
	f, ok := h.session(c)
	if !ok {
		return
	}

	if err := f.Machine.AdvanceToPurchase(); err != nil {
		h.respondError(c, f, err)
		return
	}
	f.StopPolling()
	c.JSON(http.StatusOK, sessionResponse(f))
}

// session resolves the :id path parameter to a live funnel session.
func (h *FunnelHandler) session(c *gin.Context) (*funnel.Funnel, bool) {
	f, err := h.manager.Get(c.Param("id"))
	if err != nil {
		apierrors.NotFound(c, "funnel session not found")
		return nil, false
	}
	return f, true
}

// bind decodes and validates the JSON body, responding on failure.
func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			apierrors.ValidationError(c, validationErrors)
			return false
		}
		apierrors.BadRequest(c, "invalid request body", nil)
		return false
	}
	return true
}

// respondError maps domain errors onto the API error envelope.
func (h *FunnelHandler) respondError(c *gin.Context, f *funnel.Funnel, err error) {
	var fieldErr *resolver.ValidationError
	var reqErr *clients.RequestError
	var mismatchErr *clients.LookupMismatchError

	switch {
	case clients.IsAuthError(err):
		// 401-class upstream response: the session is logged out and the
		// funnel returns to the Identity step.
		f.StopPolling()
		f.Machine.ResetToIdentity()
		apierrors.Unauthorized(c, "session expired, please sign in again")
	case errors.As(err, &fieldErr):
		apierrors.BadRequest(c, "validation failed", map[string]interface{}{
			fieldErr.Field: fieldErr.Reason,
		})
	case errors.As(err, &mismatchErr):
		apierrors.BadRequest(c, err.Error(), nil)
	case errors.As(err, &reqErr):
		apierrors.UpstreamError(c, reqErr.Message)
	case errors.Is(err, funnel.ErrBusy) || errors.Is(err, funnel.ErrWrongState):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, funnel.ErrConsentRequired),
		errors.Is(err, funnel.ErrNoLoginPending),
		errors.Is(err, models.ErrIdentityNumberFormat),
		errors.Is(err, models.ErrIdentityNumberChecksum),
		errors.Is(err, models.ErrBirthDateRequired),
		errors.Is(err, models.ErrAddressIncomplete),
		errors.Is(err, resolver.ErrNoPropertySelected),
		errors.Is(err, resolver.ErrRenewalNotQueried),
		errors.Is(err, resolver.ErrRenewalLocked),
		errors.Is(err, resolver.ErrStrategyMismatch):
		apierrors.BadRequest(c, err.Error(), nil)
	default:
		apierrors.InternalServerError(c, "unexpected error", err)
	}
}
