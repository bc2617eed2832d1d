package ledger

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/fxamacker/cbor/v2"

	"icrc-nft-gallery/internal/candid"
	"icrc-nft-gallery/internal/domain"
	"icrc-nft-gallery/internal/observability"
	"icrc-nft-gallery/internal/principal"
)

// Default agent configuration.
const (
	DefaultTimeout = 30 * time.Second
	DefaultExpiry  = 4 * time.Minute
)

// Agent is the HTTP implementation of Client. Every call is one POST
// carrying a CBOR envelope: the call content (method and JSON-encoded
// arguments) signed by the session identity. Calls are never retried;
// mutations are not idempotent-safe and a blind retry could
// double-submit a transfer.
type Agent struct {
	endpoint   string
	canisterID string
	client     *http.Client
	signer     Signer // nil sends anonymous, unsigned envelopes
	expiry     time.Duration
	nonce      atomic.Uint64
}

// AgentOption configures an Agent.
type AgentOption func(*Agent)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) AgentOption {
	return func(a *Agent) { a.client = client }
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) AgentOption {
	return func(a *Agent) { a.client.Timeout = d }
}

// WithExpiry sets how far in the future call envelopes expire.
func WithExpiry(d time.Duration) AgentOption {
	return func(a *Agent) { a.expiry = d }
}

// NewAgent creates an agent for one canister. A nil signer produces
// anonymous calls.
func NewAgent(endpoint, canisterID string, signer Signer, opts ...AgentOption) *Agent {
	a := &Agent{
		endpoint:   endpoint,
		canisterID: canisterID,
		client:     &http.Client{Timeout: DefaultTimeout},
		signer:     signer,
		expiry:     DefaultExpiry,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// callContent is the signed portion of a call envelope.
type callContent struct {
	CanisterID    string `cbor:"canister_id"`
	Method        string `cbor:"method"`
	Arg           []byte `cbor:"arg"` // JSON array of positional arguments
	Sender        string `cbor:"sender"`
	Nonce         uint64 `cbor:"nonce"`
	IngressExpiry uint64 `cbor:"ingress_expiry"` // nanoseconds since epoch
}

// envelope is the full request body.
type envelope struct {
	Content      callContent `cbor:"content"`
	SenderPubkey []byte      `cbor:"sender_pubkey,omitempty"`
	SenderSig    []byte      `cbor:"sender_sig,omitempty"`
}

// replyEnvelope is the response body.
type replyEnvelope struct {
	Status        string `cbor:"status"` // "replied" or "rejected"
	Reply         []byte `cbor:"reply,omitempty"`
	RejectCode    int    `cbor:"reject_code,omitempty"`
	RejectMessage string `cbor:"reject_message,omitempty"`
}

// call submits one method call and decodes the JSON reply into out.
func (a *Agent) call(ctx context.Context, method string, params []any, out any) error {
	start := time.Now()
	err := a.doCall(ctx, method, params, out)
	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.RecordLedgerCall(method, status, time.Since(start).Seconds())
	return err
}

func (a *Agent) doCall(ctx context.Context, method string, params []any, out any) error {
	arg, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal arguments: %w", err)
	}

	content := callContent{
		CanisterID:    a.canisterID,
		Method:        method,
		Arg:           arg,
		Nonce:         a.nonce.Add(1),
		IngressExpiry: uint64(time.Now().Add(a.expiry).UnixNano()),
	}

	content.Sender = principal.Anonymous().String()
	if a.signer != nil {
		content.Sender = a.signer.Principal().String()
	}

	env := envelope{Content: content}
	if a.signer != nil {
		signed, err := cbor.Marshal(env.Content)
		if err != nil {
			return fmt.Errorf("marshal content: %w", err)
		}
		digest := sha256.Sum256(signed)
		sig, err := a.signer.Sign(digest[:])
		if err != nil {
			return fmt.Errorf("sign envelope: %w", err)
		}
		env.SenderPubkey = a.signer.PublicKey()
		env.SenderSig = sig
	}

	body, err := cbor.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/canister/%s/call", a.endpoint, a.canisterID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/cbor")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var reply replyEnvelope
	if err := cbor.Unmarshal(respBody, &reply); err != nil {
		return fmt.Errorf("unmarshal reply: %w", err)
	}
	if reply.Status != "replied" {
		return fmt.Errorf("call rejected (code %d): %s", reply.RejectCode, reply.RejectMessage)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(reply.Reply, out); err != nil {
		return fmt.Errorf("unmarshal %s reply: %w", method, err)
	}
	return nil
}

func (a *Agent) Tokens(ctx context.Context, prev *uint64, limit *uint16) ([]uint64, error) {
	var ids []uint64
	if err := a.call(ctx, "icrc7_tokens", []any{prev, limit}, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (a *Agent) TokensOf(ctx context.Context, account domain.Account, prev *uint64, limit *uint16) ([]uint64, error) {
	var ids []uint64
	if err := a.call(ctx, "icrc7_tokens_of", []any{account, prev, limit}, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (a *Agent) TotalSupply(ctx context.Context) (uint64, error) {
	var supply uint64
	if err := a.call(ctx, "icrc7_total_supply", nil, &supply); err != nil {
		return 0, err
	}
	return supply, nil
}

func (a *Agent) TokenMetadata(ctx context.Context, tokenIDs []uint64) ([][]candid.MapEntry, error) {
	var entries [][]candid.MapEntry
	if err := a.call(ctx, "icrc7_token_metadata", []any{tokenIDs}, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (a *Agent) OwnerOf(ctx context.Context, tokenIDs []uint64) ([]*domain.Account, error) {
	var owners []*domain.Account
	if err := a.call(ctx, "icrc7_owner_of", []any{tokenIDs}, &owners); err != nil {
		return nil, err
	}
	return owners, nil
}

func (a *Agent) TokenApprovals(ctx context.Context, tokenID uint64, prev *TokenApproval, limit *uint16) ([]TokenApproval, error) {
	var approvals []TokenApproval
	if err := a.call(ctx, "icrc37_get_token_approvals", []any{tokenID, prev, limit}, &approvals); err != nil {
		return nil, err
	}
	return approvals, nil
}

func (a *Agent) Name(ctx context.Context) (string, error) {
	return a.textQuery(ctx, "icrc7_name")
}

func (a *Agent) Symbol(ctx context.Context) (string, error) {
	return a.textQuery(ctx, "icrc7_symbol")
}

func (a *Agent) Description(ctx context.Context) (string, error) {
	return a.textQuery(ctx, "icrc7_description")
}

func (a *Agent) Logo(ctx context.Context) (string, error) {
	return a.textQuery(ctx, "icrc7_logo")
}

func (a *Agent) textQuery(ctx context.Context, method string) (string, error) {
	var s string
	if err := a.call(ctx, method, nil, &s); err != nil {
		return "", err
	}
	return s, nil
}

func (a *Agent) CollectionMetadata(ctx context.Context) ([]candid.MapEntry, error) {
	var entries []candid.MapEntry
	if err := a.call(ctx, "icrc7_collection_metadata", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (a *Agent) Transfer(ctx context.Context, args []TransferArg) ([]*Result, error) {
	var results []*Result
	if err := a.call(ctx, "icrc7_transfer", []any{args}, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (a *Agent) ApproveTokens(ctx context.Context, args []ApproveTokenArg) ([]*Result, error) {
	var results []*Result
	if err := a.call(ctx, "icrc37_approve_tokens", []any{args}, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (a *Agent) RevokeTokenApprovals(ctx context.Context, args []RevokeArg) ([]*Result, error) {
	var results []*Result
	if err := a.call(ctx, "icrc37_revoke_token_approvals", []any{args}, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (a *Agent) Mint(ctx context.Context, args []MintArg) ([]*Result, error) {
	var results []*Result
	if err := a.call(ctx, "icrcX_mint", []any{args}, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (a *Agent) Burn(ctx context.Context, arg BurnArg) (*BurnResult, error) {
	var result BurnResult
	if err := a.call(ctx, "icrcX_burn", []any{arg}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
