// Package pipeline runs the command-to-chain flow: parse the command,
// authorize the user, snapshot the market, ask the model, gate the
// recommendation, commit the proof and submit the rebalance.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"starknet-pilot/internal/decision"
	"starknet-pilot/internal/domain"
	"starknet-pilot/internal/gateway"
	"starknet-pilot/internal/intent"
	"starknet-pilot/internal/marketdata"
	"starknet-pilot/internal/observability"
	"starknet-pilot/internal/predict"
	"starknet-pilot/internal/proof"
	"starknet-pilot/internal/session"
	"starknet-pilot/internal/signer"
	"starknet-pilot/internal/starknet"
	"starknet-pilot/internal/storage"
)

// Default active range used when an executable recommendation carries
// no price range.
const (
	DefaultRangeLower uint64 = 1800
	DefaultRangeUpper uint64 = 2200
)

// DefaultPositionID is the position repositioned when the request does
// not name one.
const DefaultPositionID uint64 = 1

// Outcome labels for a completed run.
const (
	OutcomeExecuted = "executed"
	OutcomeHeld     = "held"
	OutcomeRejected = "rejected"
)

// Request is one command execution request.
type Request struct {
	UserID     string
	Command    string
	PositionID uint64 // 0 means DefaultPositionID
}

// Result is the outcome of one pipeline run.
type Result struct {
	Outcome        string
	Intent         domain.Intent
	Snapshot       *domain.MarketSnapshot
	Recommendation *domain.Recommendation
	Decision       *decision.Result
	ProofHash      string
	Execution      *domain.ExecutionResult
	RecordID       string
}

// Executor wires the pipeline stages together.
type Executor struct {
	authority *session.Authority
	market    marketdata.Provider
	engine    predict.Engine
	evaluator *decision.Evaluator
	rebalance *gateway.Rebalance
	client    starknet.Client
	ledger    storage.TransactionLogStore
	archive   storage.DecisionArchive // may be nil
	log       zerolog.Logger

	now   func() time.Time
	newID func() string
}

// NewExecutor creates a pipeline executor. archive may be nil, in which
// case decision snapshots are not archived.
func NewExecutor(
	authority *session.Authority,
	market marketdata.Provider,
	engine predict.Engine,
	rebalance *gateway.Rebalance,
	client starknet.Client,
	ledger storage.TransactionLogStore,
	archive storage.DecisionArchive,
	log zerolog.Logger,
) *Executor {
	return &Executor{
		authority: authority,
		market:    market,
		engine:    engine,
		evaluator: decision.NewEvaluator(),
		rebalance: rebalance,
		client:    client,
		ledger:    ledger,
		archive:   archive,
		log:       log.With().Str("component", "pipeline").Logger(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Run executes one command end to end.
//
// Authorization failures and non-executable commands stop the run
// before any market data or model call is made. A HOLD gate outcome
// produces no ledger row; a submission attempt, successful or not,
// produces exactly one.
func (e *Executor) Run(ctx context.Context, req Request) (*Result, error) {
	started := e.now()
	log := e.log.With().Str("user_id", req.UserID).Logger()

	parsed := intent.Parse(req.Command)
	if parsed.Action != domain.ActionExecuteStrategy {
		log.Info().Str("action", string(parsed.Action)).Msg("command rejected")
		observability.RecordPipelineRun(OutcomeRejected, e.now().Sub(started).Seconds())
		return &Result{Outcome: OutcomeRejected, Intent: parsed}, nil
	}

	key, sgn, err := e.authority.Authorize(ctx, req.UserID)
	if err != nil {
		if session.IsAuthorizationError(err) {
			log.Warn().Err(err).Msg("authorization refused")
			observability.RecordAuthorizationFailure(authFailureReason(err))
			observability.RecordPipelineRun(OutcomeRejected, e.now().Sub(started).Seconds())
		}
		return nil, err
	}

	snapshot, err := e.market.Snapshot(ctx, parsed.Pair)
	if err != nil {
		return nil, fmt.Errorf("market snapshot: %w", err)
	}

	predictStart := e.now()
	rec, err := e.engine.Predict(ctx, snapshot)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	observability.RecordPrediction(e.now().Sub(predictStart).Seconds(), rec.Confidence == 0 && rec.Action == domain.ActionHold)

	gate := e.evaluator.Evaluate(rec)
	proofHash := proof.Commitment(snapshot, rec)
	observability.RecordDecision(string(rec.Action), string(gate.Outcome))

	log.Info().
		Str("pair", parsed.Pair).
		Str("action", string(rec.Action)).
		Float64("confidence", rec.Confidence).
		Str("gate", string(gate.Outcome)).
		Str("proof_hash", proofHash).
		Msg("decision gated")

	e.archiveDecision(ctx, req.UserID, snapshot, rec, proofHash)

	result := &Result{
		Intent:         parsed,
		Snapshot:       snapshot,
		Recommendation: rec,
		Decision:       gate,
		ProofHash:      proofHash,
	}

	if gate.Outcome == decision.OutcomeHold {
		result.Outcome = OutcomeHeld
		observability.RecordPipelineRun(OutcomeHeld, e.now().Sub(started).Seconds())
		return result, nil
	}

	// A cancelled context must not reach the chain: nothing was
	// submitted, so nothing is recorded.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	positionID := req.PositionID
	if positionID == 0 {
		positionID = DefaultPositionID
	}
	lower, upper := rangeBounds(rec)

	exec := e.submit(ctx, positionID, lower, upper, proofHash, sgn)
	if exec == nil {
		// Cancelled mid-submit before the transaction left the process.
		return nil, ctx.Err()
	}
	result.Execution = exec

	record := &domain.TransactionRecord{
		ID:        e.newID(),
		UserID:    key.UserID,
		Action:    rec.Action,
		Rationale: rec.Rationale,
		TxHash:    exec.TxHash,
		Status:    exec.Status,
		CreatedAt: e.now().UTC(),
	}
	if err := e.ledger.Append(ctx, record); err != nil {
		return nil, fmt.Errorf("append ledger record: %w", err)
	}
	observability.RecordLedgerAppend()
	result.RecordID = record.ID

	result.Outcome = OutcomeExecuted
	observability.RecordPipelineRun(OutcomeExecuted, e.now().Sub(started).Seconds())
	return result, nil
}

// submit sends the rebalance and classifies the outcome with a single
// receipt poll. Returns nil only when the context was cancelled before
// the transaction was handed to the node.
func (e *Executor) submit(ctx context.Context, positionID, lower, upper uint64, proofHash string, sgn signer.Signer) *domain.ExecutionResult {
	receipt, err := e.rebalance.ExecuteRebalance(ctx, positionID, lower, upper, proofHash, sgn)
	observability.RecordInvoke(err)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		e.log.Error().Err(err).Msg("rebalance submission failed")
		return &domain.ExecutionResult{
			Status: domain.TxFailed,
			Error:  err.Error(),
		}
	}

	txHash := receipt.TxHash
	exec := &domain.ExecutionResult{
		TxHash: &txHash,
		Status: domain.TxPending,
	}

	// One receipt poll. A missing receipt stays pending; confirmation
	// jobs can pick it up later.
	confirmed, err := e.client.TransactionReceipt(ctx, txHash)
	if err != nil || confirmed == nil {
		return exec
	}
	if confirmed.Succeeded() {
		exec.Status = domain.TxConfirmed
		observability.RecordReceiptConfirmed()
	} else {
		exec.Status = domain.TxFailed
		exec.Error = confirmed.RevertReason
	}
	return exec
}

// archiveDecision writes the audit row. Archive trouble never fails the
// run.
func (e *Executor) archiveDecision(ctx context.Context, userID string, snapshot *domain.MarketSnapshot, rec *domain.Recommendation, proofHash string) {
	if e.archive == nil {
		return
	}

	err := e.archive.Append(ctx, &domain.DecisionSnapshot{
		UserID:     userID,
		Pair:       snapshot.Pair,
		Price:      snapshot.Price,
		Volume24h:  snapshot.Volume24h,
		Volatility: snapshot.Volatility,
		Trend:      snapshot.Trend,
		Action:     rec.Action,
		Confidence: rec.Confidence,
		ProofHash:  proofHash,
		CreatedAt:  e.now().UTC(),
	})
	observability.RecordArchiveWrite(err)
	if err != nil {
		e.log.Warn().Err(err).Msg("decision archive write failed")
	}
}

// rangeBounds resolves the target range, falling back to the default
// when the recommendation carries none.
func rangeBounds(rec *domain.Recommendation) (uint64, uint64) {
	if rec.Range == nil {
		return DefaultRangeLower, DefaultRangeUpper
	}
	return uint64(rec.Range.Lower), uint64(rec.Range.Upper)
}

func authFailureReason(err error) string {
	if errors.Is(err, session.ErrInsufficientPermissions) {
		return "insufficient_permissions"
	}
	return "no_active_key"
}
