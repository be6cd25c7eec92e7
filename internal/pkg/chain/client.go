package chain

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

	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured is returned when the relayer integration is disabled
	ErrNotConfigured = errors.New("chain integration not configured")

	// ErrSubmitTimeout is returned when the relayer did not answer in time
	ErrSubmitTimeout = errors.New("chain submit timeout")
)

// Config holds transfer relayer configuration
type Config struct {
	RelayerURL      string
	OperatorKey     string
	ContractAddress string
	ChainID         int64
	ExplorerURL     string
	Timeout         time.Duration
}

// Client talks to the transfer relayer service that holds the operator
// wallet and broadcasts token transfers on our behalf.
type Client struct {
	httpClient *http.Client
	config     Config
}

// Transfer is a single recipient entry in a batch transfer
type Transfer struct {
	To        string          `json:"to"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference,omitempty"`
}

// BatchTransferRequest is the relayer submit payload
type BatchTransferRequest struct {
	ContractAddress string     `json:"contract_address"`
	ChainID         int64      `json:"chain_id"`
	Transfers       []Transfer `json:"transfers"`
}

// BatchTransferResponse is the relayer submit result
type BatchTransferResponse struct {
	TxHash string `json:"tx_hash"`
	Status string `json:"status"`
}

// NewClient creates a new relayer client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	cfg.Timeout = timeout

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		config:     cfg,
	}
}

// Enabled reports whether every setting needed to settle on-chain is present.
// A partially configured relayer counts as disabled so the distributor can
// refuse to run instead of failing half-way through a batch.
func (c *Client) Enabled() bool {
	if c == nil {
		return false
	}
	return strings.TrimSpace(c.config.RelayerURL) != "" &&
		strings.TrimSpace(c.config.OperatorKey) != "" &&
		strings.TrimSpace(c.config.ContractAddress) != "" &&
		c.config.ChainID != 0
}

// ContractAddress returns the configured token contract address
func (c *Client) ContractAddress() string {
	return c.config.ContractAddress
}

// ChainID returns the configured settlement chain id
func (c *Client) ChainID() int64 {
	return c.config.ChainID
}

// ExplorerTxURL builds a block explorer link for a transaction hash
func (c *Client) ExplorerTxURL(txHash string) string {
	if txHash == "" || c.config.ExplorerURL == "" {
		return ""
	}
	return strings.TrimRight(c.config.ExplorerURL, "/") + "/tx/" + txHash
}

// SubmitBatchTransfer submits a single on-chain transfer covering all
// recipients and waits for the relayer to confirm broadcast. A timeout is
// reported as ErrSubmitTimeout so callers can treat it like any other
// settlement failure.
func (c *Client) SubmitBatchTransfer(ctx context.Context, transfers []Transfer) (*BatchTransferResponse, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}
	if len(transfers) == 0 {
		return nil, fmt.Errorf("validation error: transfers must be non-empty")
	}
	for _, tr := range transfers {
		if !IsValidAddress(tr.To) {
			return nil, fmt.Errorf("validation error: invalid recipient address %q", tr.To)
		}
		if !tr.Amount.IsPositive() {
			return nil, fmt.Errorf("validation error: amount must be > 0 for %s", tr.To)
		}
	}

	payload := BatchTransferRequest{
		ContractAddress: c.config.ContractAddress,
		ChainID:         c.config.ChainID,
		Transfers:       transfers,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode relayer request: %w", err)
	}

	base := strings.TrimRight(c.config.RelayerURL, "/")
	url := base + "/v1/transfers/batch"

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("relayer call failed: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.OperatorKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, ErrSubmitTimeout
		}
		return nil, fmt.Errorf("relayer call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("relayer call failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("relayer returned status=%d body=%s", resp.StatusCode, string(body))
	}

	var out BatchTransferResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse relayer response: %w", err)
	}
	if out.TxHash == "" {
		return nil, fmt.Errorf("relayer returned empty tx hash")
	}

	return &out, nil
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
