package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/clients"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/config"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/funnel"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/logger"
)

const testNationalID = "12345678950"

// memStore is an in-memory funnel.Store.
type memStore struct {
	mu        sync.Mutex
	sessions  map[string]funnel.SessionRecord
	quoteRuns []funnel.QuoteRunRecord
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]funnel.SessionRecord)}
}

func (s *memStore) SaveSession(ctx context.Context, record funnel.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[record.ID] = record
	return nil
}

func (s *memStore) RecordQuoteRun(ctx context.Context, record funnel.QuoteRunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quoteRuns = append(s.quoteRuns, record)
	return nil
}

// fakePlatform stands in for the insurance platform in handler tests.
func fakePlatform(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token":"otp-token"}`))
	})
	mux.HandleFunc("POST /auth/verify-code", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"accessToken":"access","refreshToken":"refresh","customerId":"cust-1"}`))
	})
	mux.HandleFunc("GET /customers/profile", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"fullName":"Ayse Yilmaz","cityCode":"34","districtCode":"1183"}`))
	})
	mux.HandleFunc("GET /properties", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	mux.HandleFunc("POST /properties", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"prop-1"}`))
	})
	mux.HandleFunc("POST /lookup/query-address", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"city": {"value":"34","text":"Istanbul"},
			"district": {"value":"1183","text":"Kadikoy"},
			"apartment": {"value":"1234567890","text":"Daire 4"}
		}`))
	})
	mux.HandleFunc("POST /proposals", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"proposalId":"proposal-1"}`))
	})
	mux.HandleFunc("GET /proposals/proposal-1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"products":[
			{"id":"q1","insurerId":"ins-1","productId":"dask-standard","state":"ACTIVE",
			 "premiums":[{"installmentCount":1,"netPremium":1080,"grossPremium":1200},
			             {"installmentCount":3,"netPremium":1140,"grossPremium":1260}]},
			{"id":"q2","insurerId":"ins-2","productId":"dask-standard","state":"FAILED"}
		]}`))
	})
	mux.HandleFunc("GET /companies", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"ins-1","name":"Anadolu","logo":"/logos/anadolu.svg","enabled":true}]`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// setupFunnelRouter wires a FunnelHandler against the fake platform the
// same way the server entrypoint does.
func setupFunnelRouter(t *testing.T) (*gin.Engine, *funnel.Manager, *memStore) {
	t.Helper()
	srv := fakePlatform(t)

	platform := clients.NewPlatform(config.PlatformConfig{
		BaseURL: srv.URL,
		AgentID: "agent-1",
		Channel: "WEB",
		Timeout: 5 * time.Second,
	})
	store := newMemStore()
	manager := funnel.NewManager(platform, config.QuotesConfig{
		PollInterval:     5 * time.Millisecond,
		PollBudget:       2 * time.Second,
		ProgressFloor:    30,
		ProductAllowlist: []string{"dask-standard"},
	}, store, logger.New("test"))
	t.Cleanup(manager.Shutdown)

	handler := NewFunnelHandler(manager)

	router := gin.New()
	v1 := router.Group("/api/v1")
	{
		funnelRoutes := v1.Group("/funnel")
		{
			funnelRoutes.POST("", handler.Create)
			funnelRoutes.GET("/:id", handler.Status)
			funnelRoutes.DELETE("/:id", handler.Delete)
			funnelRoutes.POST("/:id/identity", handler.SubmitIdentity)
			funnelRoutes.POST("/:id/identity/auto-advance", handler.AutoAdvance)
			funnelRoutes.POST("/:id/identity/verify", handler.VerifyCode)
			funnelRoutes.PUT("/:id/profile", handler.CompleteProfile)
			funnelRoutes.GET("/:id/properties", handler.ListProperties)
			funnelRoutes.PUT("/:id/property/strategy", handler.SetStrategy)
			funnelRoutes.PUT("/:id/property/selection", handler.SelectProperty)
			funnelRoutes.POST("/:id/property/address", handler.SelectLink)
			funnelRoutes.POST("/:id/property/query-address", handler.QueryAddress)
			funnelRoutes.POST("/:id/property/query-old-policy", handler.QueryOldPolicy)
			funnelRoutes.PUT("/:id/property/policy-number", handler.SetPolicyNumber)
			funnelRoutes.PUT("/:id/property/structural", handler.SetStructural)
			funnelRoutes.POST("/:id/property", handler.SubmitProperty)
			funnelRoutes.GET("/:id/quotes", handler.Quotes)
			funnelRoutes.PUT("/:id/quotes/:quoteID/installment", handler.SelectInstallment)
			funnelRoutes.POST("/:id/purchase", handler.Purchase)
		}
	}
	return router, manager, store
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func createSession(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/v1/funnel", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	require.Equal(t, "IDENTITY", body["state"])
	return body["session_id"].(string)
}

func TestFunnelHandler_UnknownSession(t *testing.T) {
	router, _, _ := setupFunnelRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/funnel/nope", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFunnelHandler_IdentityConsentMissing(t *testing.T) {
	router, _, _ := setupFunnelRouter(t)
	id := createSession(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/v1/funnel/"+id+"/identity", gin.H{
		"identity_number": testNationalID,
		"phone_number":    "5551234567",
		"birth_date":      "1988-03-14",
		"consent":         false,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFunnelHandler_IdentityBadBirthDateFormat(t *testing.T) {
	router, _, _ := setupFunnelRouter(t)
	id := createSession(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/v1/funnel/"+id+"/identity", gin.H{
		"identity_number": testNationalID,
		"phone_number":    "5551234567",
		"birth_date":      "14.03.1988",
		"consent":         true,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFunnelHandler_StrategyValidation(t *testing.T) {
	router, _, _ := setupFunnelRouter(t)
	id := createSession(t, router)

	w := doJSON(t, router, http.MethodPut, "/api/v1/funnel/"+id+"/property/strategy", gin.H{
		"strategy": "SOMETHING_ELSE",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFunnelHandler_QuotesBeforeSubmission(t *testing.T) {
	router, _, _ := setupFunnelRouter(t)
	id := createSession(t, router)

	w := doJSON(t, router, http.MethodGet, "/api/v1/funnel/"+id+"/quotes", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestFunnelHandler_FullQuotationFlow(t *testing.T) {
	router, _, store := setupFunnelRouter(t)
	id := createSession(t, router)
	base := "/api/v1/funnel/" + id

	// Identity step
	w := doJSON(t, router, http.MethodPost, base+"/identity", gin.H{
		"identity_number": testNationalID,
		"phone_number":    "5551234567",
		"birth_date":      "1988-03-14",
		"consent":         true,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "IDENTITY", decode(t, w)["state"])

	// OTP verification; the stored profile is complete so the
	// additional-info step is skipped
	w = doJSON(t, router, http.MethodPost, base+"/identity/verify", gin.H{"code": "123456"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "PROPERTY_INFO", decode(t, w)["state"])

	// No registered properties, so the strategy stays NEW
	w = doJSON(t, router, http.MethodGet, base+"/properties", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// UAVT lookup fills the address chain
	w = doJSON(t, router, http.MethodPost, base+"/property/query-address", gin.H{
		"uavt_code": "1234567890",
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["fell_back"])

	// Structural attributes
	w = doJSON(t, router, http.MethodPut, base+"/property/structural", gin.H{
		"structure_material": "STEEL_REINFORCED_CONCRETE",
		"construction_year":  2012,
		"floor_count_range":  "RANGE_4_7",
		"floor_number":       "3",
		"area_sqm":           95,
		"usage_type":         "RESIDENCE",
		"damage_status":      "NONE",
		"ownership_type":     "OWNER",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Submission creates the proposal and starts polling
	w = doJSON(t, router, http.MethodPost, base+"/property", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decode(t, w)
	assert.Equal(t, "QUOTES", body["state"])
	assert.Equal(t, "proposal-1", body["proposal_id"])

	// Both quotes are terminal, so the poller converges quickly
	require.Eventually(t, func() bool {
		w := doJSON(t, router, http.MethodGet, base+"/quotes", nil)
		if w.Code != http.StatusOK {
			return false
		}
		return decode(t, w)["done"] == true
	}, 2*time.Second, 10*time.Millisecond)

	w = doJSON(t, router, http.MethodGet, base+"/quotes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	snapshot := decode(t, w)
	assert.Equal(t, "SUCCESS", snapshot["outcome"])
	assert.Equal(t, 100.0, snapshot["progress"])
	offers := snapshot["offers"].([]interface{})
	require.Len(t, offers, 1)
	offer := offers[0].(map[string]interface{})
	assert.Equal(t, "q1", offer["id"])
	assert.Equal(t, "Anadolu", offer["insurerName"])

	// Installment selection is local state
	w = doJSON(t, router, http.MethodPut, base+"/quotes/q1/installment", gin.H{
		"installment_count": 3,
	})
	require.Equal(t, http.StatusOK, w.Code)
	offers = decode(t, w)["offers"].([]interface{})
	assert.Equal(t, 3.0, offers[0].(map[string]interface{})["selectedInstallments"])

	// Unknown installment option
	w = doJSON(t, router, http.MethodPut, base+"/quotes/q1/installment", gin.H{
		"installment_count": 12,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Purchase handoff
	w = doJSON(t, router, http.MethodPost, base+"/purchase", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "PURCHASE", decode(t, w)["state"])

	// The finished run was written through to the store
	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.quoteRuns) == 1
	}, 2*time.Second, 10*time.Millisecond)
	store.mu.Lock()
	run := store.quoteRuns[0]
	store.mu.Unlock()
	assert.Equal(t, id, run.SessionID)
	assert.Equal(t, "proposal-1", run.ProposalID)
	assert.Equal(t, "SUCCESS", run.Outcome)
	assert.Equal(t, 1, run.OfferCount)

	// Session state write-through happens off the transition's critical path
	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		record := store.sessions[id]
		return record.State == "PURCHASE" && record.CustomerID == "cust-1"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFunnelHandler_Delete(t *testing.T) {
	router, _, _ := setupFunnelRouter(t)
	id := createSession(t, router)

	w := doJSON(t, router, http.MethodDelete, "/api/v1/funnel/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/funnel/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/api/v1/funnel/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFunnelHandler_AutoAdvanceWithoutSession(t *testing.T) {
	router, _, _ := setupFunnelRouter(t)
	id := createSession(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/v1/funnel/"+id+"/identity/auto-advance", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["fired"])
}
