package chain

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testConfig(url string) Config {
	return Config{
		RelayerURL:      url,
		OperatorKey:     "test-operator-key",
		ContractAddress: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		ChainID:         137,
		ExplorerURL:     "https://polygonscan.com",
		Timeout:         time.Second,
	}
}

func TestSubmitBatchTransferSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("invalid method"))
			return
		}
		if r.URL.Path != "/v1/transfers/batch" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("invalid path"))
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-operator-key" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("invalid auth"))
			return
		}

		var req BatchTransferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.ChainID != 137 || len(req.Transfers) != 2 {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("invalid payload"))
			return
		}

		_ = json.NewEncoder(w).Encode(BatchTransferResponse{TxHash: "0xabc123", Status: "broadcast"})
	}))
	t.Cleanup(server.Close)

	client := NewClient(testConfig(server.URL))
	resp, err := client.SubmitBatchTransfer(context.Background(), []Transfer{
		{To: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", Amount: decimal.NewFromInt(15)},
		{To: "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359", Amount: decimal.NewFromInt(30)},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.TxHash != "0xabc123" {
		t.Fatalf("expected tx hash 0xabc123, got %s", resp.TxHash)
	}
}

func TestSubmitBatchTransferHTTPErrorIncludesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("nonce too low"))
	}))
	t.Cleanup(server.Close)

	client := NewClient(testConfig(server.URL))
	_, err := client.SubmitBatchTransfer(context.Background(), []Transfer{
		{To: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", Amount: decimal.NewFromInt(1)},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "status=502") || !strings.Contains(err.Error(), "body=nonce too low") {
		t.Fatalf("expected status and body in error, got %v", err)
	}
}

func TestSubmitBatchTransferTimeoutClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	cfg := testConfig(server.URL)
	cfg.Timeout = 20 * time.Millisecond
	client := NewClient(cfg)

	_, err := client.SubmitBatchTransfer(context.Background(), []Transfer{
		{To: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", Amount: decimal.NewFromInt(1)},
	})
	if !errors.Is(err, ErrSubmitTimeout) {
		t.Fatalf("expected ErrSubmitTimeout, got %v", err)
	}
}

func TestSubmitBatchTransferDisabled(t *testing.T) {
	client := NewClient(Config{})
	_, err := client.SubmitBatchTransfer(context.Background(), []Transfer{
		{To: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", Amount: decimal.NewFromInt(1)},
	})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if client.Enabled() {
		t.Fatal("expected disabled client")
	}
}

func TestChecksumAddress(t *testing.T) {
	// EIP-55 reference vectors
	cases := []string{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
	}
	for _, want := range cases {
		if got := ChecksumAddress(strings.ToLower(want)); got != want {
			t.Errorf("ChecksumAddress(%s) = %s, want %s", strings.ToLower(want), got, want)
		}
		if !IsValidAddress(want) {
			t.Errorf("IsValidAddress(%s) = false, want true", want)
		}
	}
}

func TestIsValidAddressRejectsBadChecksumAndShape(t *testing.T) {
	bad := []string{
		"",
		"0x123",
		"5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0x5Aaeb6053F3E94C9b9A09f33669435E7Ef1BeAed", // flipped case, bad checksum
		"0xzzzz6053f3e94c9b9a09f33669435e7ef1beaed1",
	}
	for _, addr := range bad {
		if IsValidAddress(addr) {
			t.Errorf("IsValidAddress(%s) = true, want false", addr)
		}
	}

	// all-lowercase is accepted without a checksum
	if !IsValidAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed") {
		t.Error("expected all-lowercase address to be valid")
	}
}
