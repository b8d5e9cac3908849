package starknet

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"starknet-pilot/internal/felt"
	"starknet-pilot/internal/observability"
	"starknet-pilot/internal/signer"
)

// Default configuration values.
const (
	DefaultTimeout = 30 * time.Second

	// LivenessTimeout is the shorter bound used by clients that only
	// perform validity checks.
	LivenessTimeout = 5 * time.Second
)

// HTTPClient implements Client using HTTP JSON-RPC 2.0.
//
// The client never retries: transient failures surface as classified
// RPCErrors and retry policy belongs to the caller.
type HTTPClient struct {
	endpoint  string
	client    *http.Client
	requestID atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new node RPC client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      uint64      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcErrorBody   `json:"error,omitempty"`
}

// rpcErrorBody is the node's error object.
type rpcErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// do performs one JSON-RPC exchange and classifies failures.
func (c *HTTPClient) do(ctx context.Context, method string, params interface{}, result interface{}) error {
	start := time.Now()
	defer func() {
		observability.RecordRPCLatency(method, time.Since(start).Seconds())
	}()

	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return &RPCError{Kind: ErrKindProtocol, Message: "marshal request", cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return &RPCError{Kind: ErrKindProtocol, Message: "create request", cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &RPCError{Kind: ErrKindUnreachable, Message: "http request failed", cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RPCError{Kind: ErrKindUnreachable, Message: "read response", cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		return &RPCError{Kind: ErrKindProtocol, Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return &RPCError{Kind: ErrKindProtocol, Message: "malformed envelope", cause: err}
	}

	if rpcResp.Error != nil {
		return &RPCError{Kind: ErrKindApplication, Code: rpcResp.Error.Code, Message: rpcResp.Error.Message}
	}

	if result != nil {
		if rpcResp.Result == nil {
			return &RPCError{Kind: ErrKindProtocol, Message: "missing result"}
		}
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return &RPCError{Kind: ErrKindProtocol, Message: "unmarshal result", cause: err}
		}
	}

	return nil
}

// callParams is the starknet_call parameter envelope.
type callParams struct {
	Request callFunctionRequest `json:"request"`
	BlockID string              `json:"block_id"`
}

type callFunctionRequest struct {
	ContractAddress    string   `json:"contract_address"`
	EntryPointSelector string   `json:"entry_point_selector"`
	Calldata           []string `json:"calldata"`
}

// Call executes a read-only contract function against the latest block.
func (c *HTTPClient) Call(ctx context.Context, req CallRequest) ([]string, error) {
	calldata := req.Calldata
	if calldata == nil {
		calldata = felt.Calldata{}
	}

	params := callParams{
		Request: callFunctionRequest{
			ContractAddress:    req.ContractAddress,
			EntryPointSelector: felt.Selector(req.FunctionName),
			Calldata:           calldata,
		},
		BlockID: "latest",
	}

	var result []string
	if err := c.do(ctx, "starknet_call", params, &result); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, nil
	}
	return result, nil
}

// invokeTransaction is the simplified invoke envelope. Account
// abstraction mechanics live behind the signer.
type invokeTransaction struct {
	SenderAddress      string   `json:"sender_address"`
	ContractAddress    string   `json:"contract_address"`
	EntryPointSelector string   `json:"entry_point_selector"`
	Calldata           []string `json:"calldata"`
	Signature          []string `json:"signature"`
	Version            string   `json:"version"`
}

type invokeResult struct {
	TransactionHash string `json:"transaction_hash"`
}

// Invoke submits a state-changing contract call signed by s.
func (c *HTTPClient) Invoke(ctx context.Context, req InvokeRequest, s signer.Signer) (*TxReceipt, error) {
	if s == nil {
		return nil, ErrNotAuthorized
	}

	selector := felt.Selector(req.FunctionName)
	digest := invokeDigest(s.AccountAddress(), req.ContractAddress, selector, req.Calldata)

	sig, err := s.Sign(ctx, digest)
	if err != nil {
		return nil, fmt.Errorf("sign invoke: %w", err)
	}

	tx := invokeTransaction{
		SenderAddress:      s.AccountAddress(),
		ContractAddress:    req.ContractAddress,
		EntryPointSelector: selector,
		Calldata:           req.Calldata,
		Signature:          []string{"0x" + hex.EncodeToString(sig)},
		Version:            "0x1",
	}

	var result invokeResult
	if err := c.do(ctx, "starknet_addInvokeTransaction", []interface{}{tx}, &result); err != nil {
		return nil, err
	}
	if result.TransactionHash == "" {
		return nil, &RPCError{Kind: ErrKindProtocol, Message: "node accepted invoke without transaction hash"}
	}

	return &TxReceipt{TxHash: result.TransactionHash}, nil
}

// invokeDigest binds the sender, target and calldata into the 32-byte
// digest handed to the signer.
func invokeDigest(sender, contract, selector string, calldata []string) []byte {
	payload := strings.Join(append([]string{sender, contract, selector}, calldata...), "|")
	sum := sha256.Sum256([]byte(payload))
	return sum[:]
}

// receiptResult is the starknet_getTransactionReceipt response body.
type receiptResult struct {
	TransactionHash string `json:"transaction_hash"`
	ExecutionStatus string `json:"execution_status"`
	RevertReason    string `json:"revert_reason,omitempty"`
}

// TransactionReceipt looks up the receipt for a transaction hash.
// An application error from the node (hash not found) is returned as
// nil, nil so callers can poll.
func (c *HTTPClient) TransactionReceipt(ctx context.Context, txHash string) (*Receipt, error) {
	var result receiptResult
	if err := c.do(ctx, "starknet_getTransactionReceipt", []string{txHash}, &result); err != nil {
		if IsApplication(err) {
			return nil, nil
		}
		return nil, err
	}

	return &Receipt{
		TxHash:          result.TransactionHash,
		ExecutionStatus: result.ExecutionStatus,
		RevertReason:    result.RevertReason,
	}, nil
}
