package network

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/constellation-network/sdk-go/address"
	"github.com/constellation-network/sdk-go/pkg/config"
	"github.com/constellation-network/sdk-go/pkg/errs"
	"github.com/constellation-network/sdk-go/transport"
	"github.com/constellation-network/sdk-go/validate"
)

// API is the Network Read API contract. Every method except
// ValidateAddress performs a network call and accepts a context for
// cancellation/deadlines.
type API interface {
	Balance(ctx context.Context, addr string) (Balance, error)
	Ordinal(ctx context.Context, addr string) (uint64, error)
	Transactions(ctx context.Context, addr string, limit int) ([]TransactionRecord, error)
	RecentTransactions(ctx context.Context, limit int) ([]TransactionRecord, error)
	NodeInfo(ctx context.Context) (NodeInfo, error)
	ClusterInfo(ctx context.Context) (ClusterInfo, error)
	ValidateAddress(addr string) bool
	SubmitTransaction(ctx context.Context, env address.Envelope) (SubmitResult, error)
}

// Client is the default API implementation, a thin dispatcher over a
// Transport and a named Deployment.
type Client struct {
	transport  transport.Transport
	deployment config.Deployment
}

// New builds a network Client against deployment using t for all calls.
func New(t transport.Transport, deployment config.Deployment) *Client {
	return &Client{transport: t, deployment: deployment}
}

func (c *Client) get(ctx context.Context, url string) (*transport.Response, error) {
	return c.transport.Request(ctx, http.MethodGet, url, nil, nil)
}

// Balance fetches L1 /addresses/{address}/balance, tolerating an address
// with no history by returning amount 0 and the canonical genesis
// reference.
func (c *Client) Balance(ctx context.Context, addr string) (Balance, error) {
	url := fmt.Sprintf("%s/addresses/%s/balance", c.deployment.L1URL, addr)
	resp, err := c.get(ctx, url)
	if err != nil {
		if sdkErr, ok := err.(*errs.Error); ok && sdkErr.Kind == errs.KindHTTPError {
			if status, ok := sdkErr.Details["status"].(int); ok && status == http.StatusNotFound {
				return Balance{Amount: 0, LastRef: address.Genesis}, nil
			}
		}
		return Balance{}, err
	}
	var bal Balance
	if err := json.Unmarshal(resp.Body, &bal); err != nil {
		return Balance{}, errs.Wrap(errs.KindInvalidResponse, "decode balance", err)
	}
	return bal, nil
}

// Ordinal fetches the current ordinal alone.
func (c *Client) Ordinal(ctx context.Context, addr string) (uint64, error) {
	bal, err := c.Balance(ctx, addr)
	if err != nil {
		return 0, err
	}
	return bal.LastRef.Ordinal, nil
}

// Transactions fetches the block explorer's recent transactions for addr.
func (c *Client) Transactions(ctx context.Context, addr string, limit int) ([]TransactionRecord, error) {
	url := fmt.Sprintf("%s/addresses/%s/transactions?limit=%d", c.deployment.BEURL, addr, limit)
	return c.getTransactionList(ctx, url)
}

// RecentTransactions fetches recent global transactions.
func (c *Client) RecentTransactions(ctx context.Context, limit int) ([]TransactionRecord, error) {
	url := fmt.Sprintf("%s/transactions?limit=%d", c.deployment.BEURL, limit)
	return c.getTransactionList(ctx, url)
}

func (c *Client) getTransactionList(ctx context.Context, url string) ([]TransactionRecord, error) {
	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	var records []TransactionRecord
	if err := json.Unmarshal(resp.Body, &records); err != nil {
		return nil, errs.Wrap(errs.KindInvalidResponse, "decode transaction list", err)
	}
	return records, nil
}

// NodeInfo fetches L0 node identity, version, and state.
func (c *Client) NodeInfo(ctx context.Context) (NodeInfo, error) {
	url := c.deployment.L0URL + "/node/info"
	resp, err := c.get(ctx, url)
	if err != nil {
		return NodeInfo{}, err
	}
	var info NodeInfo
	if err := json.Unmarshal(resp.Body, &info); err != nil {
		return NodeInfo{}, errs.Wrap(errs.KindInvalidResponse, "decode node info", err)
	}
	return info, nil
}

// ClusterInfo fetches the L0 peer list.
func (c *Client) ClusterInfo(ctx context.Context) (ClusterInfo, error) {
	url := c.deployment.L0URL + "/cluster/info"
	resp, err := c.get(ctx, url)
	if err != nil {
		return ClusterInfo{}, err
	}
	var peers []Peer
	if err := json.Unmarshal(resp.Body, &peers); err != nil {
		return ClusterInfo{}, errs.Wrap(errs.KindInvalidResponse, "decode cluster info", err)
	}
	return ClusterInfo{Peers: peers}, nil
}

// ValidateAddress is a purely local structural check, performing no I/O.
func (c *Client) ValidateAddress(addr string) bool {
	return address.Address(addr).Valid()
}

// ValidateAddressDetailed is the same local, non-networked check as
// ValidateAddress, but reports which structural rule failed instead of a
// bare boolean. It returns nil when addr is valid.
func (c *Client) ValidateAddressDetailed(addr string) *validate.Error {
	return validate.Address(addr)
}

type wireParent struct {
	Hash    string `json:"hash"`
	Ordinal uint64 `json:"ordinal"`
}

type wireValue struct {
	Source      string                 `json:"source"`
	Destination string                 `json:"destination,omitempty"`
	Amount      *uint64                `json:"amount,omitempty"`
	Fee         uint64                 `json:"fee"`
	Salt        uint64                 `json:"salt"`
	Parent      wireParent             `json:"parent"`
	MetagraphID string                 `json:"metagraph_id,omitempty"`
	Data        map[string]interface{} `json:"data,omitempty"`
	Timestamp   *int64                 `json:"timestamp,omitempty"`
}

type wireProof struct {
	ID        string `json:"id"`
	Signature string `json:"signature"`
}

type wireEnvelope struct {
	Value  wireValue   `json:"value"`
	Proofs []wireProof `json:"proofs"`
}

func marshalEnvelope(env address.Envelope) ([]byte, error) {
	proofs := make([]wireProof, len(env.Proofs))
	for i, p := range env.Proofs {
		proofs[i] = wireProof{ID: p.ID, Signature: p.SignatureHex()}
	}
	wire := wireEnvelope{
		Value: wireValue{
			Source:      env.Value.Source,
			Destination: env.Value.Destination,
			Amount:      env.Value.Amount,
			Fee:         env.Value.Fee,
			Salt:        env.Value.Salt,
			Parent:      wireParent{Hash: env.Value.Parent.Hash, Ordinal: env.Value.Parent.Ordinal},
			MetagraphID: env.Value.MetagraphID,
			Data:        env.Value.Data,
			Timestamp:   env.Value.Timestamp,
		},
		Proofs: proofs,
	}
	return json.Marshal(wire)
}

type rejectionWire struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SubmitTransaction POSTs the signed envelope to L1 /transactions. A 4xx
// response with a structured rejection body surfaces as Rejected(reason);
// any other non-2xx surfaces as the Transport's HTTPError.
func (c *Client) SubmitTransaction(ctx context.Context, env address.Envelope) (SubmitResult, error) {
	body, err := marshalEnvelope(env)
	if err != nil {
		return SubmitResult{}, errs.Wrap(errs.KindValidationError, "marshal envelope", err)
	}

	url := c.deployment.L1URL + "/transactions"
	headers := map[string]string{"Content-Type": "application/json"}
	resp, err := c.transport.Request(ctx, http.MethodPost, url, headers, body)
	if err != nil {
		if sdkErr, ok := err.(*errs.Error); ok && sdkErr.Kind == errs.KindHTTPError {
			if status, ok := sdkErr.Details["status"].(int); ok && status >= 400 && status < 500 {
				var rejection rejectionWire
				if raw, ok := sdkErr.Details["body"].(string); ok {
					if jsonErr := json.Unmarshal([]byte(raw), &rejection); jsonErr == nil && rejection.Error.Message != "" {
						reason := rejection.Error.Message
						if rejection.Error.Code != "" {
							reason = rejection.Error.Code + ": " + rejection.Error.Message
						}
						return SubmitResult{}, errs.New(errs.KindRejected, reason).
							WithDetails(map[string]any{"status": strconv.Itoa(status), "code": rejection.Error.Code})
					}
				}
			}
		}
		return SubmitResult{}, err
	}

	var out struct {
		Hash string `json:"hash"`
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return SubmitResult{}, errs.Wrap(errs.KindInvalidResponse, "decode submit result", err)
	}
	return SubmitResult{Hash: out.Hash}, nil
}
