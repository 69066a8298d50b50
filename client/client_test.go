package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/digigaia/kudu/chain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChainID = "aca376f206b8fc25a6ed44dbdc66547c36c6c33e3a119ffbeaef943642f0e906"

func TestAPIPath(t *testing.T) {
	p := APIPath("chain", "get_info")
	assert.Equal(t, "/v1/chain/get_info", p.Endpoint())

	base := APIPath("chain")
	extended := base.With("get_block")
	assert.Equal(t, "/v1/chain", base.Endpoint())
	assert.Equal(t, "/v1/chain/get_block", extended.Endpoint())
}

// testNode serves canned responses for the chain endpoints the client hits.
func testNode(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chain/get_info", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{
			"server_version": "12345678",
			"chain_id": "`+testChainID+`",
			"head_block_num": 1000,
			"last_irreversible_block_num": 900,
			"head_block_id": "`+testChainID+`",
			"head_block_time": "2023-05-31T12:00:00",
			"head_block_producer": "eosio"
		}`)
	})
	mux.HandleFunc("/v1/chain/get_block", func(w http.ResponseWriter, r *http.Request) {
		var params map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		assert.Equal(t, "900", params["block_num_or_id"])
		io.WriteString(w, `{
			"id": "`+testChainID+`",
			"block_num": 900,
			"ref_block_prefix": 3439362012,
			"timestamp": "2023-05-31T11:59:59.500"
		}`)
	})
	mux.HandleFunc("/v1/chain/get_account", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{
			"account_name": "alice",
			"created": "2020-01-01T00:00:00",
			"ram_quota": 8192,
			"net_weight": 10000,
			"cpu_weight": 10000,
			"core_liquid_balance": "1.0000 EOS"
		}`)
	})
	mux.HandleFunc("/v1/chain/get_abi", func(w http.ResponseWriter, r *http.Request) {
		var params map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		if params["account_name"] == "noabi" {
			io.WriteString(w, `{"account_name": "noabi"}`)
			return
		}
		io.WriteString(w, `{"account_name": "eosio.token", "abi": {"version": "eosio::abi/1.2"}}`)
	})
	mux.HandleFunc("/v1/chain/send_transaction", func(w http.ResponseWriter, r *http.Request) {
		var packed chain.PackedTransaction
		require.NoError(t, json.NewDecoder(r.Body).Decode(&packed))
		io.WriteString(w, `{"transaction_id": "`+testChainID+`"}`)
	})
	mux.HandleFunc("/v1/chain/get_table_rows", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{
			"code": 500,
			"message": "Internal Service Error",
			"error": {
				"code": 3060003,
				"name": "contract_table_query_exception",
				"what": "Contract Table Query Exception",
				"details": []
			}
		}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestGetInfo(t *testing.T) {
	c := New(testNode(t).URL)
	info, err := c.GetInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testChainID, info.ChainID.String())
	assert.Equal(t, uint32(1000), info.HeadBlockNum)
	assert.Equal(t, chain.MustNewName("eosio"), info.HeadBlockProducer)
}

func TestGetAccount(t *testing.T) {
	c := New(testNode(t).URL)
	acct, err := c.GetAccount(context.Background(), chain.MustNewName("alice"))
	require.NoError(t, err)
	assert.Equal(t, chain.MustNewName("alice"), acct.AccountName)
	assert.Equal(t, int64(8192), acct.RAMQuota)
	// Untyped fields stay reachable through the raw body.
	assert.Contains(t, string(acct.Raw), "core_liquid_balance")
}

func TestGetRawABIDocument(t *testing.T) {
	c := New(testNode(t).URL)
	doc, err := c.GetRawABIDocument(context.Background(), chain.MustNewName("eosio.token"))
	require.NoError(t, err)
	assert.Contains(t, string(doc), "eosio::abi/1.2")

	_, err = c.GetRawABIDocument(context.Background(), chain.MustNewName("noabi"))
	assert.True(t, errors.Is(err, ErrAPIError))
}

func TestNodeErrorsSurface(t *testing.T) {
	c := New(testNode(t).URL)
	_, err := c.Call(context.Background(), chainPath.With("get_table_rows"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAPIError))
	assert.Contains(t, err.Error(), "contract_table_query_exception")
}

func TestFillTransactionHeader(t *testing.T) {
	c := New(testNode(t).URL)
	tx := new(chain.Transaction)
	chainID, err := c.FillTransactionHeader(context.Background(), tx, 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, testChainID, chainID.String())
	assert.Equal(t, uint16(900&0xffff), tx.RefBlockNum)
	assert.Equal(t, uint32(3439362012), tx.RefBlockPrefix)
	assert.Equal(t, "2023-05-31T12:00:30", tx.Expiration.String())
}

func TestSendTransaction(t *testing.T) {
	c := New(testNode(t).URL)
	packed := &chain.PackedTransaction{
		Compression: chain.CompressionNone,
		PackedTrx:   chain.Bytes{0x01},
	}
	resp, err := c.SendTransaction(context.Background(), packed)
	require.NoError(t, err)
	assert.Contains(t, string(resp), "transaction_id")
}

func TestBadResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `this is not json`)
	}))
	t.Cleanup(server.Close)

	c := New(server.URL)
	_, err := c.GetInfo(context.Background())
	assert.True(t, errors.Is(err, ErrBadResponse))
}
