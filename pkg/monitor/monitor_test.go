package monitor

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestEndpointLabel(t *testing.T) {
	cases := map[string]string{
		"api/v1/safes/0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed/":                      "api/v1/safes/{id}/",
		"/api/v1/multisig-transactions/0xabc/confirmations/":                            "api/v1/multisig-transactions/{id}/confirmations/",
		"api/v1/tokens/":                                                                "api/v1/tokens/",
		"api/v1/safes/0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed/multisig-transactions/": "api/v1/safes/{id}/multisig-transactions/",
	}
	for in, want := range cases {
		assert.Equal(t, want, EndpointLabel(in), in)
	}
}

func TestBusinessHelpersBeforeInit(t *testing.T) {
	saved := Business
	Business = nil
	defer func() { Business = saved }()

	assert.NotPanics(t, func() {
		IncProposals(1)
		IncObserverEvent("proposal.created")
		SetPending("0x01", 3)
	})
}

func TestInitAndHandler(t *testing.T) {
	Init()
	Init()

	ObserveRequest("GET", "api/v1/tokens/", "200", 5*time.Millisecond)
	assert.Equal(t, float64(1), testutil.ToFloat64(RequestsTotal.WithLabelValues("GET", "api/v1/tokens/", "200")))

	IncProposals(5)
	assert.Equal(t, float64(1), testutil.ToFloat64(Business.ProposalsTotal.WithLabelValues("5")))

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "safe_proposals_total")
}
