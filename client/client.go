// Package client provides a typed HTTP client for the Antelope node API.
// Endpoints are addressed by an explicit path built from segments, with a
// single Call/Get pair underneath the typed wrappers.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/digigaia/kudu/chain"
)

var (
	ErrAPIError    = errors.New("client: node API error")
	ErrBadResponse = errors.New("client: malformed node response")
)

// Path addresses a node API endpoint as a sequence of segments under /v1,
// e.g. APIPath("chain", "get_info").
type Path struct {
	segments []string
}

// APIPath starts a path from the given segments.
func APIPath(segments ...string) Path {
	return Path{segments: segments}
}

// With returns a new path extended by one segment. The receiver is not
// modified.
func (p Path) With(segment string) Path {
	out := make([]string, 0, len(p.segments)+1)
	out = append(out, p.segments...)
	out = append(out, segment)
	return Path{segments: out}
}

// Endpoint renders the URL path, e.g. "/v1/chain/get_info".
func (p Path) Endpoint() string {
	return "/v1/" + strings.Join(p.segments, "/")
}

// Client talks to a single node. The zero value is not usable; construct
// with New.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger attaches a logger. By default the client is silent.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a client for a node at baseURL, e.g. "http://127.0.0.1:8888".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiError is the error document nodes return with non-2xx statuses.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Error   struct {
		Code    int    `json:"code"`
		Name    string `json:"name"`
		What    string `json:"what"`
		Details []struct {
			Message string `json:"message"`
		} `json:"details"`
	} `json:"error"`
}

// Call POSTs params as JSON to the endpoint and returns the raw response
// body. A nil params posts an empty body.
func (c *Client) Call(ctx context.Context, path Path, params any) (json.RawMessage, error) {
	var body io.Reader
	if params != nil {
		buf, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path.Endpoint(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path)
}

// Get GETs the endpoint and returns the raw response body.
func (c *Client) Get(ctx context.Context, path Path) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path.Endpoint(), nil)
	if err != nil {
		return nil, err
	}
	return c.do(req, path)
}

func (c *Client) do(req *http.Request, path Path) (json.RawMessage, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	c.log.Debug("api call",
		zap.String("endpoint", path.Endpoint()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var nodeErr apiError
		if json.Unmarshal(raw, &nodeErr) == nil && nodeErr.Error.What != "" {
			return nil, fmt.Errorf("%w: %s (%s): %s", ErrAPIError, path.Endpoint(), nodeErr.Error.Name, nodeErr.Error.What)
		}
		return nil, fmt.Errorf("%w: %s: status %d", ErrAPIError, path.Endpoint(), resp.StatusCode)
	}
	return raw, nil
}

// call unmarshals the response of Call into out.
func (c *Client) call(ctx context.Context, path Path, params, out any) error {
	raw, err := c.Call(ctx, path, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadResponse, path.Endpoint(), err)
	}
	return nil
}

var chainPath = APIPath("chain")

// Info is the response of /v1/chain/get_info.
type Info struct {
	ServerVersion            string             `json:"server_version"`
	ChainID                  chain.Checksum256  `json:"chain_id"`
	HeadBlockNum             uint32             `json:"head_block_num"`
	LastIrreversibleBlockNum uint32             `json:"last_irreversible_block_num"`
	HeadBlockID              chain.Checksum256  `json:"head_block_id"`
	HeadBlockTime            chain.TimePointSec `json:"head_block_time"`
	HeadBlockProducer        chain.Name         `json:"head_block_producer"`
}

// Block is the subset of /v1/chain/get_block used for TAPOS fields.
type Block struct {
	ID             chain.Checksum256    `json:"id"`
	BlockNum       uint32               `json:"block_num"`
	RefBlockPrefix uint32               `json:"ref_block_prefix"`
	Timestamp      chain.BlockTimestamp `json:"timestamp"`
}

// Account is the subset of /v1/chain/get_account this toolkit consumes.
type Account struct {
	AccountName chain.Name         `json:"account_name"`
	Created     chain.TimePointSec `json:"created"`
	RAMQuota    int64              `json:"ram_quota"`
	NetWeight   int64              `json:"net_weight"`
	CPUWeight   int64              `json:"cpu_weight"`
	Raw         json.RawMessage    `json:"-"`
}

// GetInfo fetches chain identity and head block state.
func (c *Client) GetInfo(ctx context.Context) (*Info, error) {
	out := new(Info)
	if err := c.call(ctx, chainPath.With("get_info"), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetBlock fetches a block by number or id.
func (c *Client) GetBlock(ctx context.Context, numOrID string) (*Block, error) {
	out := new(Block)
	params := map[string]string{"block_num_or_id": numOrID}
	if err := c.call(ctx, chainPath.With("get_block"), params, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetAccount fetches account state. The full response body is preserved in
// Raw for callers that need fields beyond the typed subset.
func (c *Client) GetAccount(ctx context.Context, account chain.Name) (*Account, error) {
	raw, err := c.Call(ctx, chainPath.With("get_account"), map[string]string{"account_name": account.String()})
	if err != nil {
		return nil, err
	}
	out := new(Account)
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("%w: get_account: %v", ErrBadResponse, err)
	}
	out.Raw = raw
	return out, nil
}

// GetRawABIDocument fetches the JSON ABI document for an account via
// /v1/chain/get_abi. The inner "abi" object is returned as raw JSON ready
// for abi.New.
func (c *Client) GetRawABIDocument(ctx context.Context, account chain.Name) (json.RawMessage, error) {
	var out struct {
		AccountName chain.Name      `json:"account_name"`
		ABI         json.RawMessage `json:"abi"`
	}
	params := map[string]string{"account_name": account.String()}
	if err := c.call(ctx, chainPath.With("get_abi"), params, &out); err != nil {
		return nil, err
	}
	if len(out.ABI) == 0 || string(out.ABI) == "null" {
		return nil, fmt.Errorf("%w: account %s has no ABI", ErrAPIError, account)
	}
	return out.ABI, nil
}

// PushTransaction submits a signed envelope via push_transaction.
func (c *Client) PushTransaction(ctx context.Context, packed *chain.PackedTransaction) (json.RawMessage, error) {
	return c.Call(ctx, chainPath.With("push_transaction"), packed)
}

// SendTransaction submits a signed envelope via the newer send_transaction.
func (c *Client) SendTransaction(ctx context.Context, packed *chain.PackedTransaction) (json.RawMessage, error) {
	return c.Call(ctx, chainPath.With("send_transaction"), packed)
}

// FillTransactionHeader links a transaction to the chain's current head:
// expiration relative to now and TAPOS reference fields from the last
// irreversible block. It returns the chain id for the follow-up signature.
func (c *Client) FillTransactionHeader(ctx context.Context, tx *chain.Transaction, expireIn time.Duration) (chain.Checksum256, error) {
	info, err := c.GetInfo(ctx)
	if err != nil {
		return chain.Checksum256{}, err
	}
	block, err := c.GetBlock(ctx, fmt.Sprint(info.LastIrreversibleBlockNum))
	if err != nil {
		return chain.Checksum256{}, err
	}
	tx.Expiration = chain.NewTimePointSec(info.HeadBlockTime.Time().Add(expireIn))
	tx.RefBlockNum = uint16(block.BlockNum & 0xffff)
	tx.RefBlockPrefix = block.RefBlockPrefix
	return info.ChainID, nil
}
