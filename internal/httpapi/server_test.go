package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"starknet-pilot/internal/domain"
	"starknet-pilot/internal/gateway"
	"starknet-pilot/internal/marketdata"
	"starknet-pilot/internal/pipeline"
	"starknet-pilot/internal/predict"
	"starknet-pilot/internal/session"
	"starknet-pilot/internal/starknet"
	"starknet-pilot/internal/starknet/stub"
	"starknet-pilot/internal/storage/memory"
)

const testUserID = "user-1"

type fixture struct {
	handler http.Handler
	client  *stub.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	client := stub.NewClient()
	client.InvokeReceipt = &starknet.TxReceipt{TxHash: "0xabc"}
	client.Receipts["0xabc"] = &starknet.Receipt{
		TxHash:          "0xabc",
		ExecutionStatus: starknet.ExecutionSucceeded,
	}

	keys := memory.NewSessionKeyStore()
	market := &marketdata.StubProvider{
		Snapshots: map[string]*domain.MarketSnapshot{
			domain.PairETHUSDC: {
				Pair:       domain.PairETHUSDC,
				Price:      2010.50,
				Volume24h:  1.2e9,
				Volatility: 1.8,
				Trend:      domain.TrendBullish,
				AsOf:       time.Now().UTC(),
			},
		},
		Prices: map[string]float64{
			domain.PairETHUSDC: 1999.25,
		},
	}
	engine := &predict.StubEngine{
		Rec: &domain.Recommendation{
			Action:     domain.ActionRebalance,
			Rationale:  "trend favors a tighter range",
			Range:      &domain.PriceRange{Lower: 1850, Upper: 2150},
			Confidence: 0.85,
		},
	}

	ledger := memory.NewTransactionLogStore()
	archive := memory.NewDecisionArchive()
	executor := pipeline.NewExecutor(
		session.NewAuthority(keys, nil, ""),
		market,
		engine,
		gateway.NewRebalance(client, "0xrebalance"),
		client,
		ledger,
		archive,
		zerolog.Nop(),
	)
	sessions := session.NewService(keys, 0, zerolog.Nop())

	server := NewServer(
		executor,
		sessions,
		ledger,
		archive,
		market,
		gateway.NewVault(client, "0xvault"),
		gateway.NewPositions(client, "0xposition"),
		zerolog.Nop(),
	)
	return &fixture{handler: server.Router(), client: client}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	resp := httptest.NewRecorder()
	f.handler.ServeHTTP(resp, req)
	return resp
}

func (f *fixture) createKey(t *testing.T) map[string]any {
	t.Helper()

	resp := f.do(t, http.MethodPost, "/api/v1/session-keys", map[string]any{
		"user_id":         testUserID,
		"account_address": "0x4a1b",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create session key: %d: %s", resp.Code, resp.Body.String())
	}
	return unmarshalMap(t, resp)
}

func unmarshalMap(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var m map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &m); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	return m
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/healthz", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("healthz = %d", resp.Code)
	}
}

func TestExecuteCommand(t *testing.T) {
	f := newFixture(t)
	f.createKey(t)

	resp := f.do(t, http.MethodPost, "/api/v1/commands/execute", map[string]any{
		"user_id": testUserID,
		"command": "execute my strategy",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("execute = %d: %s", resp.Code, resp.Body.String())
	}

	body := unmarshalMap(t, resp)
	if body["outcome"] != "executed" {
		t.Errorf("outcome = %v, want executed", body["outcome"])
	}
	if body["tx_hash"] != "0xabc" {
		t.Errorf("tx_hash = %v, want 0xabc", body["tx_hash"])
	}
	if body["tx_status"] != "confirmed" {
		t.Errorf("tx_status = %v, want confirmed", body["tx_status"])
	}
	if body["proof_hash"] == "" || body["proof_hash"] == nil {
		t.Error("missing proof_hash")
	}
}

func TestExecuteCommandRejected(t *testing.T) {
	f := newFixture(t)
	f.createKey(t)

	resp := f.do(t, http.MethodPost, "/api/v1/commands/execute", map[string]any{
		"user_id": testUserID,
		"command": "check my position status",
	})
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("execute = %d, want 422", resp.Code)
	}

	body := unmarshalMap(t, resp)
	if body["outcome"] != "rejected" {
		t.Errorf("outcome = %v, want rejected", body["outcome"])
	}
}

func TestExecuteCommandWithoutSessionKey(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/v1/commands/execute", map[string]any{
		"user_id": testUserID,
		"command": "execute my strategy",
	})
	if resp.Code != http.StatusForbidden {
		t.Fatalf("execute = %d, want 403", resp.Code)
	}
}

func TestExecuteCommandValidation(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/v1/commands/execute", map[string]any{
		"user_id": testUserID,
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("execute = %d, want 400", resp.Code)
	}
}

func TestCreateSessionKeyReturnsSecretOnce(t *testing.T) {
	f := newFixture(t)

	created := f.createKey(t)
	if created["secret"] == nil || created["secret"] == "" {
		t.Error("creation response must carry the secret")
	}
	if created["public_key"] == nil || created["public_key"] == "" {
		t.Error("creation response must carry the public key")
	}
	if created["status"] != string(domain.SessionKeyActive) {
		t.Errorf("status = %v, want active", created["status"])
	}

	resp := f.do(t, http.MethodGet, "/api/v1/session-keys?user_id="+testUserID, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("list = %d", resp.Code)
	}
	var listed []map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &listed); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("listed %d keys, want 1", len(listed))
	}
	if _, ok := listed[0]["secret"]; ok {
		t.Error("listing must not carry secrets")
	}
}

func TestCreateSessionKeyValidation(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/v1/session-keys", map[string]any{
		"user_id": testUserID,
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("create = %d, want 400", resp.Code)
	}
}

func TestRevokeSessionKey(t *testing.T) {
	f := newFixture(t)
	created := f.createKey(t)

	resp := f.do(t, http.MethodDelete, "/api/v1/session-keys/"+created["id"].(string), nil)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("revoke = %d, want 204", resp.Code)
	}

	// Revoked keys no longer authorize command execution.
	resp = f.do(t, http.MethodPost, "/api/v1/commands/execute", map[string]any{
		"user_id": testUserID,
		"command": "execute my strategy",
	})
	if resp.Code != http.StatusForbidden {
		t.Fatalf("execute after revoke = %d, want 403", resp.Code)
	}
}

func TestRevokeUnknownSessionKey(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodDelete, "/api/v1/session-keys/no-such-key", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("revoke = %d, want 404", resp.Code)
	}
}

func TestListTransactions(t *testing.T) {
	f := newFixture(t)
	f.createKey(t)

	resp := f.do(t, http.MethodPost, "/api/v1/commands/execute", map[string]any{
		"user_id": testUserID,
		"command": "execute my strategy",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("execute = %d", resp.Code)
	}

	resp = f.do(t, http.MethodGet, "/api/v1/transactions?user_id="+testUserID, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("transactions = %d", resp.Code)
	}
	var records []map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &records); err != nil {
		t.Fatalf("unmarshal transactions: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0]["action"] != "REBALANCE" || records[0]["status"] != "confirmed" {
		t.Errorf("record = %v", records[0])
	}
}

func TestListDecisions(t *testing.T) {
	f := newFixture(t)
	f.createKey(t)

	resp := f.do(t, http.MethodPost, "/api/v1/commands/execute", map[string]any{
		"user_id": testUserID,
		"command": "execute my strategy",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("execute = %d", resp.Code)
	}

	resp = f.do(t, http.MethodGet, "/api/v1/decisions?user_id="+testUserID, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("decisions = %d", resp.Code)
	}
	var rows []map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &rows); err != nil {
		t.Fatalf("unmarshal decisions: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0]["action"] != "REBALANCE" || rows[0]["trend"] != "bullish" {
		t.Errorf("row = %v", rows[0])
	}
	if rows[0]["proof_hash"] == "" {
		t.Error("expected proof hash on the audit row")
	}
}

func TestListDecisionsValidation(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/api/v1/decisions", nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("missing user_id = %d, want 400", resp.Code)
	}

	resp = f.do(t, http.MethodGet, "/api/v1/decisions?user_id="+testUserID+"&limit=-1", nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("bad limit = %d, want 400", resp.Code)
	}
}

func TestListTransactionsValidation(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/api/v1/transactions", nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("missing user_id = %d, want 400", resp.Code)
	}

	resp = f.do(t, http.MethodGet, "/api/v1/transactions?user_id="+testUserID+"&limit=zero", nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("bad limit = %d, want 400", resp.Code)
	}
}

func TestMarketPrice(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/api/v1/market/price/ETH-USDC", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("price = %d: %s", resp.Code, resp.Body.String())
	}

	body := unmarshalMap(t, resp)
	if body["pair"] != domain.PairETHUSDC {
		t.Errorf("pair = %v", body["pair"])
	}
	if body["price"] != 1999.25 {
		t.Errorf("price = %v, want 1999.25", body["price"])
	}
}

func TestMarketPriceUnknownPair(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/api/v1/market/price/DOGE-USDC", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("price = %d, want 404", resp.Code)
	}
}

func TestGetPosition(t *testing.T) {
	f := newFixture(t)
	f.client.CallResults["0xposition/get_position"] = []string{"0x4a1b", "0x7", "0x64", "0x708", "0x898"}

	resp := f.do(t, http.MethodGet, "/api/v1/positions/1", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("position = %d: %s", resp.Code, resp.Body.String())
	}

	body := unmarshalMap(t, resp)
	if body["owner"] != "0x4a1b" {
		t.Errorf("owner = %v", body["owner"])
	}
	if body["min_price"] != float64(1800) || body["max_price"] != float64(2200) {
		t.Errorf("range = %v-%v", body["min_price"], body["max_price"])
	}
}

func TestGetPositionUnknown(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/api/v1/positions/99", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("position = %d, want 404", resp.Code)
	}

	resp = f.do(t, http.MethodGet, "/api/v1/positions/abc", nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("bad id = %d, want 400", resp.Code)
	}
}

func TestVaultBalance(t *testing.T) {
	f := newFixture(t)
	f.client.CallResults["0xvault/get_balance"] = []string{"0x2a"}

	resp := f.do(t, http.MethodGet, "/api/v1/vault/balance/0x4a1b", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("balance = %d: %s", resp.Code, resp.Body.String())
	}

	body := unmarshalMap(t, resp)
	if body["balance"] != "42" {
		t.Errorf("balance = %v, want 42", body["balance"])
	}
}

func TestVaultBalanceUnknownAddress(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/api/v1/vault/balance/0xdead", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("balance = %d, want 404", resp.Code)
	}
}
