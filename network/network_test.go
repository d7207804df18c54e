package network

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/constellation-network/sdk-go/address"
	"github.com/constellation-network/sdk-go/pkg/config"
	"github.com/constellation-network/sdk-go/pkg/errs"
	"github.com/constellation-network/sdk-go/pkg/log"
	"github.com/constellation-network/sdk-go/transport"
)

func TestBalanceFoundDecodesLastRef(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"balance":500,"ordinal":3,"lastTransactionRef":{"hash":"ab12","ordinal":2},"extraField":"kept"}`))
	}))
	defer srv.Close()

	cfg := config.Default()
	tr := transport.New(cfg, log.Noop())
	deployment := config.Custom("local", srv.URL, srv.URL, srv.URL)
	client := New(tr, deployment)

	bal, err := client.Balance(context.Background(), "DAGsome")
	require.NoError(t, err)
	require.EqualValues(t, 500, bal.Amount)
	require.Equal(t, "ab12", bal.LastRef.Hash)
	require.EqualValues(t, 2, bal.LastRef.Ordinal)
	require.Contains(t, bal.RawExtra, "extraField")
}

func TestBalanceNotFoundFallsBackToGenesis(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.RetryAttempts = 1
	tr := transport.New(cfg, log.Noop())
	deployment := config.Custom("local", srv.URL, srv.URL, srv.URL)
	client := New(tr, deployment)

	bal, err := client.Balance(context.Background(), "DAGsome")
	require.NoError(t, err)
	require.EqualValues(t, 0, bal.Amount)
	require.Equal(t, address.Genesis, bal.LastRef)
}

func TestSubmitTransactionMapsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"InsufficientBalance","message":"balance too low"}}`))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.RetryAttempts = 1
	tr := transport.New(cfg, log.Noop())
	deployment := config.Custom("local", srv.URL, srv.URL, srv.URL)
	client := New(tr, deployment)

	amount := uint64(10)
	env := address.Envelope{Value: address.Value{Source: "DAGsome", Destination: "DAGother", Amount: &amount, Parent: address.Genesis}}

	_, err := client.SubmitTransaction(context.Background(), env)
	require.Error(t, err)
	sdkErr, ok := err.(*errs.Error)
	require.True(t, ok)
	require.Equal(t, errs.KindRejected, sdkErr.Kind)
	require.Contains(t, sdkErr.Message, "balance too low")
}

func TestSubmitTransactionSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"hash":"deadbeef"}`))
	}))
	defer srv.Close()

	cfg := config.Default()
	tr := transport.New(cfg, log.Noop())
	deployment := config.Custom("local", srv.URL, srv.URL, srv.URL)
	client := New(tr, deployment)

	amount := uint64(10)
	env := address.Envelope{Value: address.Value{Source: "DAGsome", Destination: "DAGother", Amount: &amount, Parent: address.Genesis}}
	res, err := client.SubmitTransaction(context.Background(), env)
	require.NoError(t, err)
	require.Equal(t, "deadbeef", res.Hash)
}

func TestValidateAddressIsLocalOnly(t *testing.T) {
	client := New(nil, config.Production)
	require.False(t, client.ValidateAddress("not-an-address"))
}

func TestValidateAddressDetailedReportsFailedRule(t *testing.T) {
	client := New(nil, config.Production)
	err := client.ValidateAddressDetailed("not-an-address")
	require.NotNil(t, err)
	require.NotEmpty(t, err.Field)
}
