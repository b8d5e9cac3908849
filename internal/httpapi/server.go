// Package httpapi exposes the REST surface: command execution, session
// key management, transaction history and market price lookups.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"starknet-pilot/internal/domain"
	"starknet-pilot/internal/gateway"
	"starknet-pilot/internal/marketdata"
	"starknet-pilot/internal/pipeline"
	"starknet-pilot/internal/session"
	"starknet-pilot/internal/storage"
)

// DefaultTransactionLimit caps history responses when the client does
// not ask for a specific page size.
const DefaultTransactionLimit = 50

// DefaultDecisionLimit caps decision audit responses.
const DefaultDecisionLimit = 50

// Server bundles the HTTP handlers and their dependencies.
type Server struct {
	executor  *pipeline.Executor
	sessions  *session.Service
	ledger    storage.TransactionLogStore
	archive   storage.DecisionArchive
	market    marketdata.Provider
	vault     *gateway.Vault
	positions *gateway.Positions
	log       zerolog.Logger
}

// NewServer creates the API server.
func NewServer(
	executor *pipeline.Executor,
	sessions *session.Service,
	ledger storage.TransactionLogStore,
	archive storage.DecisionArchive,
	market marketdata.Provider,
	vault *gateway.Vault,
	positions *gateway.Positions,
	log zerolog.Logger,
) *Server {
	return &Server{
		executor:  executor,
		sessions:  sessions,
		ledger:    ledger,
		archive:   archive,
		market:    market,
		vault:     vault,
		positions: positions,
		log:       log.With().Str("component", "httpapi").Logger(),
	}
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/commands/execute", s.handleExecuteCommand)

		r.Post("/session-keys", s.handleCreateSessionKey)
		r.Get("/session-keys", s.handleListSessionKeys)
		r.Delete("/session-keys/{keyID}", s.handleRevokeSessionKey)

		r.Get("/transactions", s.handleListTransactions)
		r.Get("/decisions", s.handleListDecisions)
		r.Get("/market/price/{pair}", s.handleMarketPrice)

		r.Get("/positions/{positionID}", s.handleGetPosition)
		r.Get("/vault/balance/{address}", s.handleVaultBalance)
	})

	return r
}

type executeCommandRequest struct {
	UserID     string `json:"user_id"`
	Command    string `json:"command"`
	PositionID uint64 `json:"position_id,omitempty"`
}

type executeCommandResponse struct {
	Outcome        string                 `json:"outcome"`
	Intent         intentPayload          `json:"intent"`
	Recommendation *recommendationPayload `json:"recommendation,omitempty"`
	ProofHash      string                 `json:"proof_hash,omitempty"`
	TxHash         *string                `json:"tx_hash,omitempty"`
	TxStatus       string                 `json:"tx_status,omitempty"`
	Error          string                 `json:"error,omitempty"`
}

type intentPayload struct {
	Action string `json:"action"`
	Pair   string `json:"pair"`
}

type recommendationPayload struct {
	Action     string   `json:"action"`
	Rationale  string   `json:"rationale"`
	Confidence float64  `json:"confidence"`
	RangeLower *float64 `json:"range_lower,omitempty"`
	RangeUpper *float64 `json:"range_upper,omitempty"`
}

func (s *Server) handleExecuteCommand(w http.ResponseWriter, r *http.Request) {
	var payload executeCommandRequest
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if payload.UserID == "" || payload.Command == "" {
		writeError(w, http.StatusBadRequest, errors.New("user_id and command are required"))
		return
	}

	result, err := s.executor.Run(r.Context(), pipeline.Request{
		UserID:     payload.UserID,
		Command:    payload.Command,
		PositionID: payload.PositionID,
	})
	if err != nil {
		if session.IsAuthorizationError(err) {
			writeError(w, http.StatusForbidden, err)
			return
		}
		s.log.Error().Err(err).Str("user_id", payload.UserID).Msg("command execution failed")
		writeError(w, http.StatusBadGateway, errors.New("command execution failed"))
		return
	}

	status := http.StatusOK
	if result.Outcome == pipeline.OutcomeRejected {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, toExecuteResponse(result))
}

func toExecuteResponse(result *pipeline.Result) executeCommandResponse {
	resp := executeCommandResponse{
		Outcome: result.Outcome,
		Intent: intentPayload{
			Action: string(result.Intent.Action),
			Pair:   result.Intent.Pair,
		},
		ProofHash: result.ProofHash,
	}
	if rec := result.Recommendation; rec != nil {
		p := &recommendationPayload{
			Action:     string(rec.Action),
			Rationale:  rec.Rationale,
			Confidence: rec.Confidence,
		}
		if rec.Range != nil {
			lower, upper := rec.Range.Lower, rec.Range.Upper
			p.RangeLower, p.RangeUpper = &lower, &upper
		}
		resp.Recommendation = p
	}
	if exec := result.Execution; exec != nil {
		resp.TxHash = exec.TxHash
		resp.TxStatus = string(exec.Status)
		resp.Error = exec.Error
	}
	return resp
}

type createSessionKeyRequest struct {
	UserID          string `json:"user_id"`
	AccountAddress  string `json:"account_address"`
	PermissionScope string `json:"permission_scope,omitempty"`
}

type sessionKeyPayload struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	AccountAddress string    `json:"account_address"`
	PublicKey      string    `json:"public_key"`
	Secret         string    `json:"secret,omitempty"`
	Status         string    `json:"status"`
	ExpiresAt      time.Time `json:"expires_at"`
	CreatedAt      time.Time `json:"created_at"`
}

func (s *Server) handleCreateSessionKey(w http.ResponseWriter, r *http.Request) {
	var payload createSessionKeyRequest
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	key, err := s.sessions.Create(r.Context(), payload.UserID, payload.AccountAddress, payload.PermissionScope)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, errors.New("user_id and account_address are required"))
			return
		}
		s.log.Error().Err(err).Str("user_id", payload.UserID).Msg("session key creation failed")
		writeError(w, http.StatusInternalServerError, errors.New("session key creation failed"))
		return
	}

	// The only response that ever carries the secret. Listings are
	// redacted.
	writeJSON(w, http.StatusCreated, toSessionKeyPayload(key))
}

func (s *Server) handleListSessionKeys(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, errors.New("user_id query parameter is required"))
		return
	}

	keys, err := s.sessions.List(r.Context(), userID)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("session key listing failed")
		writeError(w, http.StatusInternalServerError, errors.New("session key listing failed"))
		return
	}

	payloads := make([]sessionKeyPayload, 0, len(keys))
	for _, key := range keys {
		payloads = append(payloads, toSessionKeyPayload(key))
	}
	writeJSON(w, http.StatusOK, payloads)
}

func (s *Server) handleRevokeSessionKey(w http.ResponseWriter, r *http.Request) {
	keyID := chi.URLParam(r, "keyID")

	if err := s.sessions.Revoke(r.Context(), keyID); err != nil {
		if errors.Is(err, session.ErrUnknownKey) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		s.log.Error().Err(err).Str("key_id", keyID).Msg("session key revocation failed")
		writeError(w, http.StatusInternalServerError, errors.New("session key revocation failed"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toSessionKeyPayload(key *domain.SessionKey) sessionKeyPayload {
	return sessionKeyPayload{
		ID:             key.ID,
		UserID:         key.UserID,
		AccountAddress: key.AccountAddress,
		PublicKey:      key.PublicKey,
		Secret:         key.Secret,
		Status:         string(key.Status),
		ExpiresAt:      key.ExpiresAt,
		CreatedAt:      key.CreatedAt,
	}
}

type transactionPayload struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"`
	Rationale string    `json:"rationale"`
	TxHash    *string   `json:"tx_hash,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, errors.New("user_id query parameter is required"))
		return
	}

	limit := DefaultTransactionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	records, err := s.ledger.ListRecent(r.Context(), userID, limit)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("transaction listing failed")
		writeError(w, http.StatusInternalServerError, errors.New("transaction listing failed"))
		return
	}

	payloads := make([]transactionPayload, 0, len(records))
	for _, rec := range records {
		payloads = append(payloads, transactionPayload{
			ID:        rec.ID,
			UserID:    rec.UserID,
			Action:    string(rec.Action),
			Rationale: rec.Rationale,
			TxHash:    rec.TxHash,
			Status:    string(rec.Status),
			CreatedAt: rec.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, payloads)
}

type decisionPayload struct {
	UserID     string    `json:"user_id"`
	Pair       string    `json:"pair"`
	Price      float64   `json:"price"`
	Volume24h  float64   `json:"volume_24h"`
	Volatility float64   `json:"volatility"`
	Trend      string    `json:"trend"`
	Action     string    `json:"action"`
	Confidence float64   `json:"confidence"`
	ProofHash  string    `json:"proof_hash"`
	CreatedAt  time.Time `json:"created_at"`
}

// handleListDecisions serves the audit trail of recommendations, so a
// ledger row's proof hash can be correlated with the market snapshot
// it was computed from.
func (s *Server) handleListDecisions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, errors.New("user_id query parameter is required"))
		return
	}

	limit := DefaultDecisionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	rows, err := s.archive.RecentByUser(r.Context(), userID, limit)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("decision listing failed")
		writeError(w, http.StatusInternalServerError, errors.New("decision listing failed"))
		return
	}

	payloads := make([]decisionPayload, 0, len(rows))
	for _, row := range rows {
		payloads = append(payloads, decisionPayload{
			UserID:     row.UserID,
			Pair:       row.Pair,
			Price:      row.Price,
			Volume24h:  row.Volume24h,
			Volatility: row.Volatility,
			Trend:      row.Trend,
			Action:     string(row.Action),
			Confidence: row.Confidence,
			ProofHash:  row.ProofHash,
			CreatedAt:  row.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, payloads)
}

type pricePayload struct {
	Pair  string  `json:"pair"`
	Price float64 `json:"price"`
}

func (s *Server) handleMarketPrice(w http.ResponseWriter, r *http.Request) {
	// Pairs travel URL-safe: ETH-USDC for ETH/USDC.
	pair := strings.ReplaceAll(strings.ToUpper(chi.URLParam(r, "pair")), "-", "/")

	price, err := s.market.Price(r.Context(), pair)
	if err != nil {
		if errors.Is(err, marketdata.ErrNoData) {
			writeError(w, http.StatusNotFound, errors.New("unknown pair"))
			return
		}
		s.log.Error().Err(err).Str("pair", pair).Msg("price lookup failed")
		writeError(w, http.StatusBadGateway, errors.New("price lookup failed"))
		return
	}

	writeJSON(w, http.StatusOK, pricePayload{Pair: pair, Price: price})
}

type positionPayload struct {
	ID       uint64 `json:"id"`
	Owner    string `json:"owner"`
	Pool     string `json:"pool"`
	Amount   uint64 `json:"amount"`
	MinPrice uint64 `json:"min_price"`
	MaxPrice uint64 `json:"max_price"`
}

func (s *Server) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	positionID, err := strconv.ParseUint(chi.URLParam(r, "positionID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("position id must be a number"))
		return
	}

	pos, err := s.positions.GetPosition(r.Context(), positionID)
	if err != nil {
		s.log.Error().Err(err).Uint64("position_id", positionID).Msg("position lookup failed")
		writeError(w, http.StatusInternalServerError, errors.New("position lookup failed"))
		return
	}
	if pos == nil {
		writeError(w, http.StatusNotFound, errors.New("unknown position"))
		return
	}

	writeJSON(w, http.StatusOK, positionPayload{
		ID:       positionID,
		Owner:    pos.Owner,
		Pool:     pos.Pool,
		Amount:   pos.Amount,
		MinPrice: pos.MinPrice,
		MaxPrice: pos.MaxPrice,
	})
}

type balancePayload struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

func (s *Server) handleVaultBalance(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	balance, err := s.vault.GetBalance(r.Context(), address)
	if err != nil {
		s.log.Error().Err(err).Str("address", address).Msg("balance lookup failed")
		writeError(w, http.StatusInternalServerError, errors.New("balance lookup failed"))
		return
	}
	if balance == nil {
		writeError(w, http.StatusNotFound, errors.New("no balance for address"))
		return
	}

	writeJSON(w, http.StatusOK, balancePayload{Address: address, Balance: balance.String()})
}

func decodeJSON(body io.ReadCloser, dst any) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
