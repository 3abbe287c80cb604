package handlers_test

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"vesting-project/access"
	"vesting-project/clock"
	"vesting-project/db"
	"vesting-project/engine"
	"vesting-project/handlers"
	"vesting-project/ledger"
	"vesting-project/logger"
	"vesting-project/models"
	"vesting-project/registry"
	"vesting-project/routers"
)

const (
	owner    = "0x00000000000000000000000000000000000000f0"
	custody  = "0x00000000000000000000000000000000000000c0"
	ops      = "0x0000000000000000000000000000000000000001"
	investor = "0x00000000000000000000000000000000000000B1"
	hacker   = "0x00000000000000000000000000000000000000ee"
)

func testServer(t *testing.T) (*mux.Router, *clock.Manual) {
	t.Helper()
	logger.Logger = zap.NewNop()

	store, err := db.NewMemLevelDB()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	guard, err := access.NewGuard(owner)
	if err != nil {
		t.Fatalf("guard: %v", err)
	}
	clk := clock.NewManual(time.Unix(1_700_000_000, 0))
	ledgers := ledger.NewFactory(custody)

	reg := registry.NewRegistry(store, guard, clk, ledgers)
	err = reg.Bootstrap(&models.Genesis{
		TotalSupply:            big.NewInt(1_000_000_000),
		PrivateRoundCap:        big.NewInt(50_000_000),
		PrivateVestingDuration: 6000,
		Rounds: []models.FixedRoundRecord{{
			Index:       0,
			Name:        "OperationsAndReserve",
			Beneficiary: ops,
			Parameters:  models.VestingParameters{TotalAllocation: big.NewInt(400_000_000), VestingDuration: 40000},
		}},
	})
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	h := handlers.NewHandler(reg, engine.NewEngine(store, clk, ledgers))
	router := mux.NewRouter()
	routers.RegisterRoutes(router, h)
	return router, clk
}

func do(router *mux.Router, method, path, caller string, body interface{}) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if caller != "" {
		req.Header.Set(handlers.CallerHeader, caller)
	}
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func addInvestor(router *mux.Router, caller, beneficiary, amount string) *httptest.ResponseRecorder {
	return do(router, http.MethodPost, "/investors", caller, map[string]string{
		"beneficiary": beneficiary,
		"amount":      amount,
	})
}

func TestAddInvestor_Success(t *testing.T) {
	router, clk := testServer(t)

	res := addInvestor(router, owner, investor, "50000000")
	if res.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d, body: %s", res.Code, res.Body.String())
	}

	clk.Advance(1000 * time.Second)

	res = do(router, http.MethodGet, "/schedules/"+investor, "", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body: %s", res.Code, res.Body.String())
	}
	var view models.ScheduleView
	if err := json.Unmarshal(res.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.Kind != "investor" {
		t.Fatalf("expected investor schedule, got %s", view.Kind)
	}
	if view.Vested.String() != "8333333" {
		t.Fatalf("expected vested 8333333, got %s", view.Vested)
	}
}

func TestAddInvestor_Rejections(t *testing.T) {
	router, _ := testServer(t)

	if res := addInvestor(router, owner, investor, "40000000"); res.Code != http.StatusCreated {
		t.Fatalf("expected first add 201, got %d", res.Code)
	}

	cases := []struct {
		name        string
		caller      string
		beneficiary string
		amount      string
		want        int
	}{
		{"no caller", "", "0x00000000000000000000000000000000000000b2", "1", http.StatusForbidden},
		{"not owner", hacker, "0x00000000000000000000000000000000000000b2", "1", http.StatusForbidden},
		{"zero amount", owner, "0x00000000000000000000000000000000000000b2", "0", http.StatusBadRequest},
		{"not a number", owner, "0x00000000000000000000000000000000000000b2", "ten", http.StatusBadRequest},
		{"bad address", owner, "0x1234", "1", http.StatusBadRequest},
		{"custody", owner, custody, "1", http.StatusBadRequest},
		{"over cap", owner, "0x00000000000000000000000000000000000000b2", "10000001", http.StatusConflict},
		{"duplicate", owner, investor, "1", http.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := addInvestor(router, tc.caller, tc.beneficiary, tc.amount)
			if res.Code != tc.want {
				t.Fatalf("expected %d, got %d, body: %s", tc.want, res.Code, res.Body.String())
			}
		})
	}
}

func TestAddInvestor_InvalidPayload(t *testing.T) {
	router, _ := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/investors", bytes.NewReader([]byte("{")))
	req.Header.Set(handlers.CallerHeader, owner)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestStartVesting(t *testing.T) {
	router, _ := testServer(t)

	res := do(router, http.MethodPost, "/schedules/0/release", "", nil)
	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409 before start, got %d, body: %s", res.Code, res.Body.String())
	}

	if res := do(router, http.MethodPost, "/vesting/start", hacker, nil); res.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", res.Code)
	}
	if res := do(router, http.MethodPost, "/vesting/start", owner, nil); res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body: %s", res.Code, res.Body.String())
	}
	if res := do(router, http.MethodPost, "/vesting/start", owner, nil); res.Code != http.StatusConflict {
		t.Fatalf("expected second start 409, got %d", res.Code)
	}

	res = do(router, http.MethodGet, "/vesting", "", nil)
	var status models.Status
	if err := json.Unmarshal(res.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Clock.Started {
		t.Fatalf("expected clock started")
	}
	if status.Rounds != 1 {
		t.Fatalf("expected 1 round, got %d", status.Rounds)
	}
}

func TestRelease(t *testing.T) {
	router, clk := testServer(t)

	if res := addInvestor(router, owner, investor, "50000000"); res.Code != http.StatusCreated {
		t.Fatalf("add investor failed, code=%d body=%s", res.Code, res.Body.String())
	}
	clk.Advance(1000 * time.Second)

	res := do(router, http.MethodPost, "/schedules/"+investor+"/release", "", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body: %s", res.Code, res.Body.String())
	}

	res = do(router, http.MethodGet, "/balances/"+investor, "", nil)
	var balance struct {
		Balance *big.Int `json:"balance"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &balance); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if balance.Balance.String() != "8333333" {
		t.Fatalf("expected balance 8333333, got %s", balance.Balance)
	}

	res = do(router, http.MethodGet, "/releases", "", nil)
	var log struct {
		Releases []models.ReleaseEvent `json:"releases"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &log); err != nil {
		t.Fatalf("decode releases: %v", err)
	}
	if len(log.Releases) != 1 || log.Releases[0].Seq != 1 {
		t.Fatalf("expected one release with seq 1, got %+v", log.Releases)
	}
}

func TestReleaseAll(t *testing.T) {
	router, clk := testServer(t)

	if res := addInvestor(router, owner, investor, "6000"); res.Code != http.StatusCreated {
		t.Fatalf("add investor failed, code=%d", res.Code)
	}
	if res := do(router, http.MethodPost, "/vesting/start", owner, nil); res.Code != http.StatusOK {
		t.Fatalf("start failed, code=%d", res.Code)
	}
	clk.Advance(6000 * time.Second)

	res := do(router, http.MethodPost, "/schedules/release", "", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body: %s", res.Code, res.Body.String())
	}
	var body struct {
		Outcomes []engine.Outcome `json:"outcomes"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode outcomes: %v", err)
	}
	if len(body.Outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(body.Outcomes))
	}
	if body.Outcomes[0].Release.Amount.String() != "60000000" {
		t.Fatalf("expected round release 60000000, got %s", body.Outcomes[0].Release.Amount)
	}
	if body.Outcomes[1].Release.Amount.String() != "6000" {
		t.Fatalf("expected investor release 6000, got %s", body.Outcomes[1].Release.Amount)
	}
}

func TestGetSchedule_Errors(t *testing.T) {
	router, _ := testServer(t)

	cases := []struct {
		path string
		want int
	}{
		{"/schedules/7", http.StatusNotFound},
		{"/schedules/0x00000000000000000000000000000000000000b9", http.StatusNotFound},
		{"/schedules/abc", http.StatusBadRequest},
		{"/balances/nope", http.StatusBadRequest},
	}
	for _, tc := range cases {
		res := do(router, http.MethodGet, tc.path, "", nil)
		if res.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d, body: %s", tc.path, tc.want, res.Code, res.Body.String())
		}
	}
}

func TestListings(t *testing.T) {
	router, _ := testServer(t)

	res := do(router, http.MethodGet, "/rounds", "", nil)
	var rounds struct {
		Rounds []models.ScheduleView `json:"rounds"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &rounds); err != nil {
		t.Fatalf("decode rounds: %v", err)
	}
	if len(rounds.Rounds) != 1 || rounds.Rounds[0].Name != "OperationsAndReserve" {
		t.Fatalf("unexpected rounds: %+v", rounds.Rounds)
	}

	res = do(router, http.MethodGet, "/investors", "", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var investors struct {
		Investors []models.ScheduleView `json:"investors"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &investors); err != nil {
		t.Fatalf("decode investors: %v", err)
	}
	if investors.Investors == nil || len(investors.Investors) != 0 {
		t.Fatalf("expected an empty investor list, got %+v", investors.Investors)
	}
}
