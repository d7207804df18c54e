package stream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/constellation-network/sdk-go/address"
	"github.com/constellation-network/sdk-go/network"
)

type fakeAPI struct {
	balances map[string]network.Balance
	recent   []network.TransactionRecord
}

func (f *fakeAPI) Balance(ctx context.Context, addr string) (network.Balance, error) {
	return f.balances[addr], nil
}
func (f *fakeAPI) Ordinal(ctx context.Context, addr string) (uint64, error) { return 0, nil }
func (f *fakeAPI) Transactions(ctx context.Context, addr string, limit int) ([]network.TransactionRecord, error) {
	return nil, nil
}
func (f *fakeAPI) RecentTransactions(ctx context.Context, limit int) ([]network.TransactionRecord, error) {
	return f.recent, nil
}
func (f *fakeAPI) NodeInfo(ctx context.Context) (network.NodeInfo, error) { return network.NodeInfo{}, nil }
func (f *fakeAPI) ClusterInfo(ctx context.Context) (network.ClusterInfo, error) {
	return network.ClusterInfo{}, nil
}
func (f *fakeAPI) ValidateAddress(addr string) bool { return true }
func (f *fakeAPI) SubmitTransaction(ctx context.Context, env address.Envelope) (network.SubmitResult, error) {
	return network.SubmitResult{}, nil
}

func TestFilterComposition(t *testing.T) {
	ev := Event{Kind: EventBalance, Address: "addr1"}
	require.True(t, ForAddress("addr1")(ev))
	require.False(t, ForAddress("addr2")(ev))
	require.True(t, ForKind(EventBalance)(ev))
	require.False(t, ForKind(EventTransaction)(ev))
}

func TestBackoffDelayCapsAtMax(t *testing.T) {
	require.Equal(t, reconnectBaseDelay, backoffDelay(0))
	require.Equal(t, 2*reconnectBaseDelay, backoffDelay(1))
	require.Equal(t, reconnectMaxDelay, backoffDelay(10))
}

func TestPollLoopDeliversOnBalanceChange(t *testing.T) {
	api := &fakeAPI{balances: map[string]network.Balance{"addr1": {Amount: 10}}}
	s := New("ws://unused", api, WithPollInterval(5*time.Millisecond))
	s.Watch("addr1")

	delivered := make(chan Event, 4)
	s.On(func(ev Event) { delivered <- ev }, ForKind(EventBalance))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	go s.pollLoop(ctx)

	select {
	case ev := <-delivered:
		require.Equal(t, "addr1", ev.Address)
		require.EqualValues(t, 10, ev.Balance.Amount)
	case <-time.After(time.Second):
		t.Fatal("expected a balance event to be delivered")
	}
}

func TestPollLoopDeliversNewTransactionsOnlyOnce(t *testing.T) {
	api := &fakeAPI{
		balances: map[string]network.Balance{"addr1": {Amount: 10}},
		recent:   []network.TransactionRecord{{Hash: "tx1", Source: "addr1"}},
	}
	s := New("ws://unused", api, WithPollInterval(5*time.Millisecond))
	s.Watch("addr1")

	delivered := make(chan Event, 16)
	s.On(func(ev Event) { delivered <- ev }, ForKind(EventTransaction))

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	go s.pollLoop(ctx)

	select {
	case ev := <-delivered:
		require.Equal(t, "tx1", ev.Transaction.Hash)
		require.Equal(t, "addr1", ev.Address)
	case <-time.After(time.Second):
		t.Fatal("expected a transaction event to be delivered")
	}

	<-ctx.Done()
	require.Len(t, delivered, 0, "the same transaction hash must not be redelivered on later ticks")
}

func TestStateStringer(t *testing.T) {
	require.Equal(t, "connected", StateConnected.String())
}

func TestMetricsSnapshotInitiallyIdle(t *testing.T) {
	s := New("ws://unused", &fakeAPI{})
	snap := s.Metrics()
	require.Equal(t, StateIdle, snap.State)
	require.False(t, snap.Degraded)
}

func TestDeliverCountsDroppedWhenNoHandlerMatches(t *testing.T) {
	s := New("ws://unused", &fakeAPI{})
	s.On(func(Event) {}, ForKind(EventTransaction))

	s.deliver(Event{Kind: EventBalance, Address: "addr1"})

	snap := s.Metrics()
	require.EqualValues(t, 1, snap.EventsDropped)
	require.EqualValues(t, 0, snap.EventsDelivered)
}
