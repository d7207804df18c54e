package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/constellation-network/sdk-go/account"
	"github.com/constellation-network/sdk-go/address"
	"github.com/constellation-network/sdk-go/network"
)

type fakeAPI struct {
	balances     map[string]network.Balance
	ordinals     map[string]uint64
	transactions map[string][]network.TransactionRecord
	recent       []network.TransactionRecord
	node         network.NodeInfo
	cluster      network.ClusterInfo
	failIDs      map[string]bool
	calls        []string
}

func (f *fakeAPI) Balance(ctx context.Context, addr string) (network.Balance, error) {
	f.calls = append(f.calls, "balance:"+addr)
	if bal, ok := f.balances[addr]; ok {
		return bal, nil
	}
	return network.Balance{}, errors.New("not found")
}
func (f *fakeAPI) Ordinal(ctx context.Context, addr string) (uint64, error) {
	f.calls = append(f.calls, "ordinal:"+addr)
	return f.ordinals[addr], nil
}
func (f *fakeAPI) Transactions(ctx context.Context, addr string, limit int) ([]network.TransactionRecord, error) {
	f.calls = append(f.calls, "transactions:"+addr)
	return f.transactions[addr], nil
}
func (f *fakeAPI) RecentTransactions(ctx context.Context, limit int) ([]network.TransactionRecord, error) {
	f.calls = append(f.calls, "recent_transactions")
	return f.recent, nil
}
func (f *fakeAPI) NodeInfo(ctx context.Context) (network.NodeInfo, error) {
	f.calls = append(f.calls, "node_info")
	return f.node, nil
}
func (f *fakeAPI) ClusterInfo(ctx context.Context) (network.ClusterInfo, error) {
	f.calls = append(f.calls, "cluster_info")
	return f.cluster, nil
}
func (f *fakeAPI) ValidateAddress(addr string) bool { return address.Address(addr).Valid() }
func (f *fakeAPI) SubmitTransaction(ctx context.Context, env address.Envelope) (network.SubmitResult, error) {
	f.calls = append(f.calls, "submit:"+env.Value.Source)
	if f.failIDs[env.Value.Source] {
		return network.SubmitResult{}, errors.New("submit failed")
	}
	return network.SubmitResult{Hash: "hash-" + env.Value.Source}, nil
}

func validAddr(t *testing.T, seed byte) string {
	t.Helper()
	pub := make([]byte, 65)
	pub[0] = 0x04
	for i := 1; i < 65; i++ {
		pub[i] = byte(int(seed) + i*7)
	}
	addr, err := address.FromUncompressedPublicKey(pub)
	require.NoError(t, err)
	return string(addr)
}

func signedEnvelope(t *testing.T, amount uint64) (address.Envelope, *account.Account) {
	t.Helper()
	acc, err := account.New()
	require.NoError(t, err)
	env := address.Envelope{Value: address.Value{
		Source: string(acc.Address()), Destination: string(acc.Address()),
		Amount: &amount, Parent: address.Genesis,
	}}
	signed, err := acc.SignTransaction(env)
	require.NoError(t, err)
	return signed, acc
}

func TestRunPreservesOrderAndComputesStats(t *testing.T) {
	addr1 := validAddr(t, 1)
	addr2 := validAddr(t, 2)
	goodEnv, _ := signedEnvelope(t, 1)
	badEnv, _ := signedEnvelope(t, 1)

	api := &fakeAPI{
		balances: map[string]network.Balance{addr1: {Amount: 10}, addr2: {Amount: 20}},
		failIDs:  map[string]bool{badEnv.Value.Source: true},
	}
	engine := New(api, WithConcurrency(4))

	ops := []Operation{
		{ID: "op1", Kind: KindBalance, Address: addr1},
		{ID: "op2", Kind: KindSubmit, Envelope: goodEnv},
		{ID: "op3", Kind: KindSubmit, Envelope: badEnv},
		{ID: "op4", Kind: KindBalance, Address: addr2},
	}

	results, stats, err := engine.Run(context.Background(), ops)
	require.NoError(t, err)
	require.Len(t, results, 4)
	require.Equal(t, "op1", results[0].ID)
	require.Equal(t, "op2", results[1].ID)
	require.Equal(t, "op3", results[2].ID)
	require.Equal(t, "op4", results[3].ID)

	require.Nil(t, results[0].Err)
	require.Nil(t, results[1].Err)
	require.Error(t, results[2].Err)
	require.Nil(t, results[3].Err)

	require.Equal(t, 4, stats.Total)
	require.Equal(t, 3, stats.Succeeded)
	require.Equal(t, 1, stats.Failed)
	require.InDelta(t, 75.0, stats.SuccessRate, 0.001)
	require.True(t, stats.ConcurrentExecution)
}

func TestRunRejectsDuplicateIDs(t *testing.T) {
	api := &fakeAPI{balances: map[string]network.Balance{}}
	engine := New(api)
	addr := validAddr(t, 3)
	ops := []Operation{
		{ID: "dup", Kind: KindBalance, Address: addr},
		{ID: "dup", Kind: KindBalance, Address: addr},
	}
	_, _, err := engine.Run(context.Background(), ops)
	require.Error(t, err)
}

func TestRunEmptyListSucceeds(t *testing.T) {
	api := &fakeAPI{balances: map[string]network.Balance{}}
	engine := New(api)
	results, stats, err := engine.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, results)
	require.InDelta(t, 100.0, stats.SuccessRate, 0.001)
}

func TestRunAssignsIDWhenEmpty(t *testing.T) {
	addr := validAddr(t, 4)
	api := &fakeAPI{balances: map[string]network.Balance{addr: {Amount: 1}}}
	engine := New(api)
	results, _, err := engine.Run(context.Background(), []Operation{{Kind: KindBalance, Address: addr}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotEmpty(t, results[0].ID)
}

// Mirrors a batch reading balance, ordinal, and recent transactions for
// one address in a single call, as a client building a dashboard would.
func TestRunDispatchesBalanceOrdinalAndTransactionsInOneBatch(t *testing.T) {
	addr := validAddr(t, 5)
	api := &fakeAPI{
		balances: map[string]network.Balance{addr: {Amount: 42}},
		ordinals: map[string]uint64{addr: 7},
		transactions: map[string][]network.TransactionRecord{
			addr: {{Hash: "h1"}, {Hash: "h2"}},
		},
	}
	engine := New(api)

	ops := []Operation{
		{ID: "bal", Kind: KindBalance, Address: addr},
		{ID: "ord", Kind: KindOrdinal, Address: addr},
		{ID: "txs", Kind: KindTransactions, Address: addr, Limit: 5},
	}
	results, stats, err := engine.Run(context.Background(), ops)
	require.NoError(t, err)
	require.Equal(t, 3, stats.Succeeded)

	require.EqualValues(t, 42, results[0].Balance.Amount)
	require.EqualValues(t, 7, *results[1].Ordinal)
	require.Len(t, results[2].Transactions, 2)
}

func TestRunDispatchesRecentTransactionsNodeInfoAndClusterInfo(t *testing.T) {
	api := &fakeAPI{
		recent:  []network.TransactionRecord{{Hash: "r1"}},
		node:    network.NodeInfo{ID: "node-1", Version: "2.0"},
		cluster: network.ClusterInfo{Peers: []network.Peer{{ID: "p1"}}},
	}
	engine := New(api)

	ops := []Operation{
		{ID: "recent", Kind: KindRecentTransactions, Limit: 10},
		{ID: "node", Kind: KindNodeInfo},
		{ID: "cluster", Kind: KindClusterInfo},
	}
	results, stats, err := engine.Run(context.Background(), ops)
	require.NoError(t, err)
	require.Equal(t, 3, stats.Succeeded)

	require.Len(t, results[0].Transactions, 1)
	require.Equal(t, "node-1", results[1].NodeInfo.ID)
	require.Len(t, results[2].ClusterInfo.Peers, 1)
}

func TestRunRejectsMalformedAddressWithoutDispatching(t *testing.T) {
	api := &fakeAPI{}
	engine := New(api)

	results, stats, err := engine.Run(context.Background(), []Operation{
		{ID: "bad", Kind: KindBalance, Address: "not-an-address"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, stats.Failed)
	require.Error(t, results[0].Err)
	require.Empty(t, api.calls, "no network call should be attempted for an invalid address")
}

func TestRunRejectsUnsignedEnvelopeWithoutDispatching(t *testing.T) {
	api := &fakeAPI{}
	engine := New(api)

	amount := uint64(1)
	addr := validAddr(t, 6)
	env := address.Envelope{Value: address.Value{Source: addr, Amount: &amount, Parent: address.Genesis}}

	results, stats, err := engine.Run(context.Background(), []Operation{
		{ID: "unsigned", Kind: KindSubmit, Envelope: env},
	})
	require.NoError(t, err)
	require.Equal(t, 1, stats.Failed)
	require.Error(t, results[0].Err)
	require.Empty(t, api.calls, "no network call should be attempted for an unsigned envelope")
}
