// Package network provides balance/ordinal/transaction/node/cluster
// queries against a named deployment, plus transaction submission.
package network

import (
	"encoding/json"

	"github.com/constellation-network/sdk-go/address"
)

// rawExtra decodes any JSON object keys the typed struct didn't declare
// into a side map, so unknown wire fields never silently disappear but
// also never drive logic.
func rawExtra(raw map[string]json.RawMessage, known ...string) map[string]json.RawMessage {
	knownSet := make(map[string]struct{}, len(known))
	for _, k := range known {
		knownSet[k] = struct{}{}
	}
	extra := make(map[string]json.RawMessage)
	for k, v := range raw {
		if _, ok := knownSet[k]; !ok {
			extra[k] = v
		}
	}
	return extra
}

// Balance is the result of a balance query: the amount plus the
// last-accepted parent reference to chain the next transaction from.
type Balance struct {
	Amount    uint64
	LastRef   address.ParentRef
	RawExtra  map[string]json.RawMessage
}

type balanceWire struct {
	Balance          uint64 `json:"balance"`
	Ordinal          uint64 `json:"ordinal"`
	LastTransactionRef *struct {
		Hash    string `json:"hash"`
		Ordinal uint64 `json:"ordinal"`
	} `json:"lastTransactionRef"`
}

func (b *Balance) UnmarshalJSON(data []byte) error {
	var wire balanceWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	_ = json.Unmarshal(data, &raw)

	b.Amount = wire.Balance
	if wire.LastTransactionRef != nil {
		b.LastRef = address.ParentRef{Hash: wire.LastTransactionRef.Hash, Ordinal: wire.LastTransactionRef.Ordinal}
	} else {
		b.LastRef = address.Genesis
	}
	b.RawExtra = rawExtra(raw, "balance", "ordinal", "lastTransactionRef")
	return nil
}

// TransactionRecord is the observed shape of a confirmed transaction, as
// returned by the block-explorer endpoints.
type TransactionRecord struct {
	Hash        string
	Source      string
	Destination string
	Amount      uint64
	Fee         uint64
	Parent      address.ParentRef
	Timestamp   int64
	Type        string
	RawExtra    map[string]json.RawMessage
}

type transactionRecordWire struct {
	Hash        string `json:"hash"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Amount      uint64 `json:"amount"`
	Fee         uint64 `json:"fee"`
	Parent      struct {
		Hash    string `json:"hash"`
		Ordinal uint64 `json:"ordinal"`
	} `json:"parent"`
	Timestamp int64  `json:"timestamp"`
	Type      string `json:"type"`
}

func (t *TransactionRecord) UnmarshalJSON(data []byte) error {
	var wire transactionRecordWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	_ = json.Unmarshal(data, &raw)

	t.Hash = wire.Hash
	t.Source = wire.Source
	t.Destination = wire.Destination
	t.Amount = wire.Amount
	t.Fee = wire.Fee
	t.Parent = address.ParentRef{Hash: wire.Parent.Hash, Ordinal: wire.Parent.Ordinal}
	t.Timestamp = wire.Timestamp
	t.Type = wire.Type
	t.RawExtra = rawExtra(raw, "hash", "source", "destination", "amount", "fee", "parent", "timestamp", "type")
	return nil
}

// NodeInfo describes the deployment version and node identity/state.
type NodeInfo struct {
	Version  string
	ID       string
	State    string
	RawExtra map[string]json.RawMessage
}

type nodeInfoWire struct {
	Version string `json:"version"`
	ID      string `json:"id"`
	State   string `json:"state"`
}

func (n *NodeInfo) UnmarshalJSON(data []byte) error {
	var wire nodeInfoWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	_ = json.Unmarshal(data, &raw)

	n.Version = wire.Version
	n.ID = wire.ID
	n.State = wire.State
	n.RawExtra = rawExtra(raw, "version", "id", "state")
	return nil
}

// Peer is one cluster member.
type Peer struct {
	ID    string `json:"id"`
	Host  string `json:"host"`
	State string `json:"state"`
}

// ClusterInfo lists known peers.
type ClusterInfo struct {
	Peers []Peer
}

// SubmitResult is returned on successful submission.
type SubmitResult struct {
	Hash string
}
