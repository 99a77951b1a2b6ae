package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"

	"LendingVault/internal/projection"
)

// registerRoutes binds the HTTP/JSON API paths to the query and ingest
// services. All read responses carry as_of_sequence so callers can reason
// about projection freshness.
func (s *GRPCServer) registerRoutes(mux *runtime.ServeMux) error {
	routes := []struct {
		method  string
		path    string
		handler runtime.HandlerFunc
	}{
		{"GET", "/v1/accounts/{account}/positions", s.handleListPositions},
		{"GET", "/v1/accounts/{account}/positions/{asset}", s.handleGetPosition},
		{"GET", "/v1/accounts/{account}/health/{asset}", s.handleGetHealth},
		{"GET", "/v1/markets/{asset}", s.handleGetMarket},
		{"GET", "/v1/liquidations", s.handleListLiquidations},
		{"GET", "/v1/events", s.handleListEvents},
		{"GET", "/v1/admin/integrity", s.handleVerifyIntegrity},
		{"GET", "/v1/admin/eventlog", s.handleEventLogInfo},
		{"POST", "/v1/admin/projections/rebuild", s.handleRebuildProjections},
		{"POST", "/v1/admin/accrue", s.handleInjectAccrue},
		{"POST", "/v1/admin/risk", s.handleInjectRiskConfig},
		{"POST", "/v1/admin/rate", s.handleInjectInterestRate},
		{"POST", "/v1/admin/flashfee", s.handleInjectFlashLoanFee},
		{"POST", "/v1/admin/penalty", s.handleInjectPenalty},
		{"POST", "/v1/admin/pool", s.handleInjectPool},
		{"POST", "/v1/ingest/deposit", s.handleInjectDeposit},
		{"POST", "/v1/ingest/price", s.handleInjectPrice},
	}

	for _, r := range routes {
		if err := mux.HandlePath(r.method, r.path, r.handler); err != nil {
			return err
		}
	}
	return nil
}

func (s *GRPCServer) handleListPositions(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	account := pathParams["account"]
	if account == "" {
		writeError(w, http.StatusBadRequest, "account is required")
		return
	}

	positions, err := s.deps.QueryService.GetPositions(r.Context(), account)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]interface{}{"positions": positions})
}

func (s *GRPCServer) handleGetPosition(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	account, asset := pathParams["account"], pathParams["asset"]
	if account == "" || asset == "" {
		writeError(w, http.StatusBadRequest, "account and asset are required")
		return
	}

	pos, err := s.deps.QueryService.GetPosition(r.Context(), account, asset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, pos)
}

func (s *GRPCServer) handleGetHealth(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	account, asset := pathParams["account"], pathParams["asset"]
	if account == "" || asset == "" {
		writeError(w, http.StatusBadRequest, "account and asset are required")
		return
	}

	health, err := s.deps.QueryService.GetAccountHealth(r.Context(), account, asset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, health)
}

func (s *GRPCServer) handleGetMarket(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	asset := pathParams["asset"]
	if asset == "" {
		writeError(w, http.StatusBadRequest, "asset is required")
		return
	}

	market, err := s.deps.QueryService.GetMarketState(r.Context(), asset)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, market)
}

func (s *GRPCServer) handleListLiquidations(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	q := r.URL.Query()

	var borrower *string
	if b := q.Get("borrower"); b != "" {
		borrower = &b
	}

	limit := parseLimit(q.Get("limit"), 50, 500)
	before := parseCursor(q.Get("before"))

	history, err := s.deps.QueryService.GetLiquidationHistory(r.Context(), borrower, limit, before)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]interface{}{"liquidations": history})
}

func (s *GRPCServer) handleListEvents(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	q := r.URL.Query()

	var asset *string
	if a := q.Get("asset"); a != "" {
		asset = &a
	}

	limit := parseLimit(q.Get("limit"), 100, 1000)
	before := parseCursor(q.Get("before"))

	events, err := s.deps.QueryService.GetEventHistory(r.Context(), asset, limit, before)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]interface{}{"events": events})
}

func (s *GRPCServer) handleVerifyIntegrity(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	report, err := s.deps.QueryService.VerifyIntegrity(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, report)
}

func (s *GRPCServer) handleEventLogInfo(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	latestSeq, err := s.deps.SnapshotMgr.GetLatestSequence(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]interface{}{"last_sequence": latestSeq})
}

func (s *GRPCServer) handleRebuildProjections(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	if err := projection.RebuildProjections(r.Context(), s.deps.DB); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]interface{}{"rebuilt": true})
}

func (s *GRPCServer) handleInjectAccrue(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	if err := s.deps.IngestService.InjectAccrue(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]interface{}{"accepted": true})
}

func (s *GRPCServer) handleInjectDeposit(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	var req struct {
		Account string `json:"account"`
		Asset   string `json:"asset"`
		Amount  string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if req.Account == "" || req.Asset == "" {
		writeError(w, http.StatusBadRequest, "account and asset are required")
		return
	}

	if err := s.deps.IngestService.InjectDeposit(r.Context(), req.Account, req.Asset, req.Amount); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, map[string]interface{}{"accepted": true})
}

func (s *GRPCServer) handleInjectPrice(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	var req struct {
		Asset         string `json:"asset"`
		Value         string `json:"value"`
		Decimals      uint8  `json:"decimals"`
		PriceSequence int64  `json:"price_sequence"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if req.Asset == "" {
		writeError(w, http.StatusBadRequest, "asset is required")
		return
	}

	if err := s.deps.IngestService.InjectPrice(r.Context(), req.Asset, req.Value, req.Decimals, req.PriceSequence); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, map[string]interface{}{"accepted": true})
}

func (s *GRPCServer) handleInjectRiskConfig(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	var req struct {
		Caller                  string `json:"caller"`
		Asset                   string `json:"asset"`
		LoanToValueBps          int64  `json:"loan_to_value_bps"`
		LiquidationThresholdBps int64  `json:"liquidation_threshold_bps"`
		Decimals                uint8  `json:"decimals"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}

	err := s.deps.IngestService.InjectRiskConfig(r.Context(), req.Caller, req.Asset,
		req.LoanToValueBps, req.LiquidationThresholdBps, req.Decimals)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, map[string]interface{}{"accepted": true})
}

func (s *GRPCServer) handleInjectInterestRate(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	var req struct {
		Caller  string `json:"caller"`
		RateBps int64  `json:"rate_bps"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}

	if err := s.deps.IngestService.InjectInterestRate(r.Context(), req.Caller, req.RateBps); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, map[string]interface{}{"accepted": true})
}

func (s *GRPCServer) handleInjectFlashLoanFee(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	var req struct {
		Caller string `json:"caller"`
		FeeBps int64  `json:"fee_bps"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}

	if err := s.deps.IngestService.InjectFlashLoanFee(r.Context(), req.Caller, req.FeeBps); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, map[string]interface{}{"accepted": true})
}

func (s *GRPCServer) handleInjectPenalty(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	var req struct {
		Caller     string `json:"caller"`
		PenaltyBps int64  `json:"penalty_bps"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}

	if err := s.deps.IngestService.InjectLiquidationPenalty(r.Context(), req.Caller, req.PenaltyBps); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, map[string]interface{}{"accepted": true})
}

func (s *GRPCServer) handleInjectPool(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	var req struct {
		Caller string `json:"caller"`
		Asset  string `json:"asset"`
		Venue  string `json:"venue"`
		PoolID uint64 `json:"pool_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}

	err := s.deps.IngestService.InjectPoolRegistration(r.Context(), req.Caller, req.Asset, req.Venue, req.PoolID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, map[string]interface{}{"accepted": true})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func parseLimit(s string, def, max int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > max {
		return def
	}
	return n
}

func parseCursor(s string) *int64 {
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}
