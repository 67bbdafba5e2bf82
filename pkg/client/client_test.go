package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	riskTypes "github.com/granite-grc/granite/pkg/types/risk"
)

func TestScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/risks/r-1/score", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		_ = json.NewEncoder(w).Encode(riskTypes.ScoreDTO{Risk: 15, RiskScore: 45, Level: "HIGH"})
	}))
	defer srv.Close()

	dto, err := New(srv.URL).Score(context.Background(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, 45, dto.RiskScore)
	assert.Equal(t, "HIGH", dto.Level)
}

func TestScoreNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"code": "RISK_001", "message": "risk not found"})
	}))
	defer srv.Close()

	_, err := New(srv.URL).Score(context.Background(), "missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())
	assert.Equal(t, "RISK_001", apiErr.Code)
}

func TestSaveRiskReportsCreation(t *testing.T) {
	saved := map[string]bool{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/risks/r-1", r.URL.Path)
		assert.Equal(t, http.MethodPut, r.Method)

		var req riskTypes.UpsertRiskRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Stolen laptop", req.Title)

		if saved["r-1"] {
			w.WriteHeader(http.StatusOK)
		} else {
			saved["r-1"] = true
			w.WriteHeader(http.StatusCreated)
		}
		_ = json.NewEncoder(w).Encode(riskTypes.RiskRefDTO{ID: "r-1", Title: req.Title})
	}))
	defer srv.Close()

	c := New(srv.URL)
	req := riskTypes.UpsertRiskRequest{Title: "Stolen laptop"}

	created, err := c.SaveRisk(context.Background(), "r-1", req)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = c.SaveRisk(context.Background(), "r-1", req)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestStartScanAndWait(t *testing.T) {
	polls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			w.WriteHeader(http.StatusAccepted)
			_ = json.NewEncoder(w).Encode(riskTypes.StartScanResponse{ScanID: "scan-1"})
		default:
			polls++
			status := riskTypes.ScanStatusDTO{ScanID: "scan-1", RiskID: "r-1", State: "RUNNING",
				Progress: riskTypes.ScanProgressDTO{Total: 10, Processed: 5, Percentage: 50}}
			if polls >= 3 {
				status.State = "COMPLETED"
				status.Progress.Percentage = 100
				status.SimilarRisks = []riskTypes.SimilarRiskDTO{
					{Risk: riskTypes.RiskRefDTO{ID: "r-2", Title: "Unauthorized DB access"}, Score: 99.5},
				}
			}
			_ = json.NewEncoder(w).Encode(status)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	scanID, err := c.StartScan(context.Background(), "r-1", 10)
	require.NoError(t, err)
	require.Equal(t, "scan-1", scanID)

	var seen []string
	final, err := c.WaitForScan(context.Background(), scanID, time.Millisecond, func(s riskTypes.ScanStatusDTO) {
		seen = append(seen, s.State)
	})
	require.NoError(t, err)

	assert.Equal(t, "COMPLETED", final.State)
	assert.Equal(t, 100, final.Progress.Percentage)
	require.Len(t, final.SimilarRisks, 1)
	assert.Equal(t, "r-2", final.SimilarRisks[0].Risk.ID)
	assert.Contains(t, seen, "RUNNING")
}

func TestCheckSimilarity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/risks/check-similarity", r.URL.Path)
		var req riskTypes.CheckSimilarityRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Unauthorized DB access", req.Title)
		_ = json.NewEncoder(w).Encode(riskTypes.SimilarRisksResponse{})
	}))
	defer srv.Close()

	matches, err := New(srv.URL).CheckSimilarity(context.Background(),
		riskTypes.CheckSimilarityRequest{Title: "Unauthorized DB access"})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestCancelScanNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	assert.NoError(t, New(srv.URL).CancelScan(context.Background(), "scan-1"))
}
