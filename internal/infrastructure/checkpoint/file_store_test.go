package checkpoint

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/bimakw/nft-hold-analyzer/internal/domain/entities"
)

func TestFileStore_LoadMissing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "wallets.json"), zap.NewNop())

	cp, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cp != nil {
		t.Errorf("expected nil checkpoint, got %+v", cp)
	}
}

func TestFileStore_SaveAndLoad(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "wallets.json"), zap.NewNop())
	ts := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	saved := &entities.Checkpoint{
		State: entities.CollectionState{
			Status: entities.CollectionCheckpointed,
			Cursor: 2,
			Total:  5,
		},
		Wallets: []entities.WalletInput{
			{
				Address:    "0xaaa",
				EthBalance: "1.500",
				Transactions: []entities.TransferRecord{
					{
						FromAddress:    entities.NullAddress,
						ToAddress:      "0xaaa",
						TokenAddress:   "0xc1",
						TokenID:        "1",
						Price:          "0",
						BlockTimestamp: ts,
					},
				},
			},
			{Address: "0xbbb", EthBalance: "0", Transactions: []entities.TransferRecord{}, FetchError: "timeout"},
		},
	}

	if err := store.Save(context.Background(), saved); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected checkpoint")
	}
	if loaded.State.Status != entities.CollectionCheckpointed || loaded.State.Cursor != 2 {
		t.Errorf("unexpected state: %+v", loaded.State)
	}
	if len(loaded.Wallets) != 2 {
		t.Fatalf("expected 2 wallets, got %d", len(loaded.Wallets))
	}
	if loaded.Wallets[0].Address != "0xaaa" || loaded.Wallets[1].Address != "0xbbb" {
		t.Error("expected wallet order to be preserved")
	}
	if !loaded.Wallets[0].Transactions[0].BlockTimestamp.Equal(ts) {
		t.Errorf("expected timestamp %v, got %v", ts, loaded.Wallets[0].Transactions[0].BlockTimestamp)
	}
	if loaded.Wallets[1].FetchError != "timeout" {
		t.Errorf("expected fetch error to survive, got %q", loaded.Wallets[1].FetchError)
	}
}

func TestFileStore_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "wallets.json"), zap.NewNop())

	for i := 0; i < 3; i++ {
		cp := &entities.Checkpoint{State: entities.CollectionState{Status: entities.CollectionCheckpointed, Cursor: i}}
		if err := store.Save(context.Background(), cp); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the checkpoint file, got %d entries", len(entries))
	}
}

func TestFileStore_LoadWalletList(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{
			name: "top-level array",
			data: `
[{"address":"0xaaa","ethBalance":"0.000","transactions":[
  {"fromAddress":"0x0000000000000000000000000000000000000000","toAddress":"0xaaa",
   "tokenAddress":"0xBC4CA0EdA7647A8aB7C2061c2E118A18a936f13D","tokenId":"7","price":"0",
   "blockTimestamp":"2024-01-01T00:00:00Z"}]},
 {"address":"0xbbb","ethBalance":"1.500","transactions":[]}]`,
		},
		{
			name: "object without state",
			data: `{"wallets":[{"address":"0xaaa","ethBalance":"0.000","transactions":[]},{"address":"0xbbb","ethBalance":"1.500","transactions":[]}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "userWallets.json")
			if err := os.WriteFile(path, []byte(tt.data), 0o644); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			cp, err := NewFileStore(path, zap.NewNop()).Load(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cp.State.Status != entities.CollectionCheckpointed || cp.State.Cursor != 2 {
				t.Errorf("expected checkpointed state at cursor 2, got %+v", cp.State)
			}
			if len(cp.Wallets) != 2 || cp.Wallets[0].Address != "0xaaa" || cp.Wallets[1].EthBalance != "1.500" {
				t.Fatalf("unexpected wallets %+v", cp.Wallets)
			}
		})
	}
}

func TestFileStore_LoadWalletListTransfers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "userWallets.json")
	data := `[{"address":"0xaaa","ethBalance":"0.000","transactions":[{"fromAddress":"0x0000000000000000000000000000000000000000","toAddress":"0xaaa","tokenAddress":"0xabc","tokenId":"7","price":"0","blockTimestamp":"2024-01-01T00:00:00Z"}]}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cp, err := NewFileStore(path, zap.NewNop()).Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cp.Wallets) != 1 || len(cp.Wallets[0].Transactions) != 1 {
		t.Fatalf("unexpected wallets %+v", cp.Wallets)
	}
	tx := cp.Wallets[0].Transactions[0]
	if tx.TokenID != "7" || tx.TokenAddress != "0xabc" || tx.BlockTimestamp.IsZero() {
		t.Errorf("unexpected transfer %+v", tx)
	}
}

func TestFileStore_LoadCorruptWalletList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "userWallets.json")
	if err := os.WriteFile(path, []byte(`[{"address":`), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := NewFileStore(path, zap.NewNop()).Load(context.Background()); err == nil {
		t.Error("expected error for truncated wallet list")
	}
}

func TestFileStore_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := NewFileStore(path, zap.NewNop()).Load(context.Background()); err == nil {
		t.Error("expected error for corrupt checkpoint")
	}
}
