package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/bimakw/nft-hold-analyzer/internal/domain/entities"
	"github.com/bimakw/nft-hold-analyzer/internal/domain/repositories"
)

// Ensure WalletRepo implements WalletRepository
var _ repositories.WalletRepository = (*WalletRepo)(nil)

// WalletRepo implements WalletRepository using PostgreSQL
type WalletRepo struct {
	db *sqlx.DB
}

// NewWalletRepo creates a new wallet repository
func NewWalletRepo(db *sqlx.DB) *WalletRepo {
	return &WalletRepo{db: db}
}

// walletRow is a row of the wallets table
type walletRow struct {
	Address    string `db:"address"`
	EthBalance string `db:"eth_balance"`
	FetchError string `db:"fetch_error"`
}

// transferRow is a row of the wallet_transfers table
type transferRow struct {
	WalletAddress string `db:"wallet_address"`
	entities.TransferRecord
}

const selectTransfers = `
	SELECT wallet_address, from_address, to_address, token_address, token_id, price,
		   block_timestamp, block_number, tx_hash, tx_type
	FROM wallet_transfers
`

// SaveWallets stores wallets in a single transaction
func (r *WalletRepo) SaveWallets(ctx context.Context, wallets []entities.WalletInput) error {
	if len(wallets) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := saveWallets(ctx, tx, wallets); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// saveWallets upserts wallets and replaces their transfers within tx
func saveWallets(ctx context.Context, tx *sqlx.Tx, wallets []entities.WalletInput) error {
	walletStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO wallets (address, eth_balance, fetch_error)
		VALUES ($1, $2, $3)
		ON CONFLICT (address) DO UPDATE SET
			eth_balance = EXCLUDED.eth_balance,
			fetch_error = EXCLUDED.fetch_error,
			updated_at = NOW()
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer walletStmt.Close()

	transferStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO wallet_transfers (wallet_address, seq, from_address, to_address, token_address,
									  token_id, price, block_timestamp, block_number, tx_hash, tx_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer transferStmt.Close()

	for _, w := range wallets {
		address := strings.ToLower(w.Address)

		if _, err := walletStmt.ExecContext(ctx, address, w.EthBalance, w.FetchError); err != nil {
			return fmt.Errorf("failed to upsert wallet %s: %w", address, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM wallet_transfers WHERE wallet_address = $1`, address); err != nil {
			return fmt.Errorf("failed to clear transfers of %s: %w", address, err)
		}

		for i, t := range w.Transactions {
			t = normalizeTransfer(t)
			_, err := transferStmt.ExecContext(ctx,
				address,
				i,
				t.FromAddress,
				t.ToAddress,
				t.TokenAddress,
				t.TokenID,
				t.Price,
				t.BlockTimestamp,
				t.BlockNumber,
				t.TransactionHash,
				t.TransactionType,
			)
			if err != nil {
				return fmt.Errorf("failed to insert transfer of %s: %w", address, err)
			}
		}
	}

	return nil
}

// GetWallet retrieves a wallet with its transfers in observation order
func (r *WalletRepo) GetWallet(ctx context.Context, address string) (*entities.WalletInput, error) {
	address = strings.ToLower(address)

	var row walletRow
	query := `SELECT address, eth_balance, fetch_error FROM wallets WHERE address = $1`
	if err := r.db.GetContext(ctx, &row, query, address); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	var rows []transferRow
	if err := r.db.SelectContext(ctx, &rows, selectTransfers+` WHERE wallet_address = $1 ORDER BY seq`, address); err != nil {
		return nil, fmt.Errorf("failed to get wallet transfers: %w", err)
	}

	wallet := toWalletInput(row)
	for _, t := range rows {
		wallet.Transactions = append(wallet.Transactions, t.TransferRecord)
	}

	return &wallet, nil
}

// ListWallets retrieves every stored wallet in insertion order
func (r *WalletRepo) ListWallets(ctx context.Context) ([]entities.WalletInput, error) {
	return listWallets(ctx, r.db)
}

func listWallets(ctx context.Context, q sqlx.QueryerContext) ([]entities.WalletInput, error) {
	var rows []walletRow
	if err := sqlx.SelectContext(ctx, q, &rows, `SELECT address, eth_balance, fetch_error FROM wallets ORDER BY position`); err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}

	var transfers []transferRow
	if err := sqlx.SelectContext(ctx, q, &transfers, selectTransfers+` ORDER BY wallet_address, seq`); err != nil {
		return nil, fmt.Errorf("failed to list wallet transfers: %w", err)
	}

	byWallet := make(map[string][]entities.TransferRecord, len(rows))
	for _, t := range transfers {
		byWallet[t.WalletAddress] = append(byWallet[t.WalletAddress], t.TransferRecord)
	}

	wallets := make([]entities.WalletInput, len(rows))
	for i, row := range rows {
		wallets[i] = toWalletInput(row)
		if txs, ok := byWallet[row.Address]; ok {
			wallets[i].Transactions = txs
		}
	}

	return wallets, nil
}

// GetTransfers retrieves stored transfers of a wallet matching the filter
func (r *WalletRepo) GetTransfers(ctx context.Context, filter entities.TransferFilter) ([]entities.TransferRecord, error) {
	query, args := buildTransferQuery(filter)

	var rows []transferRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get transfers: %w", err)
	}

	transfers := make([]entities.TransferRecord, len(rows))
	for i, row := range rows {
		transfers[i] = row.TransferRecord
	}

	return transfers, nil
}

// buildTransferQuery builds the SQL query for filtering wallet transfers
func buildTransferQuery(filter entities.TransferFilter) (string, []interface{}) {
	conditions := []string{"wallet_address = $1"}
	args := []interface{}{strings.ToLower(filter.WalletAddress)}
	argIdx := 2

	if filter.TokenAddress != nil {
		conditions = append(conditions, fmt.Sprintf("LOWER(token_address) = $%d", argIdx))
		args = append(args, strings.ToLower(*filter.TokenAddress))
		argIdx++
	}

	if filter.FromTime != nil {
		conditions = append(conditions, fmt.Sprintf("block_timestamp >= $%d", argIdx))
		args = append(args, *filter.FromTime)
		argIdx++
	}

	if filter.ToTime != nil {
		conditions = append(conditions, fmt.Sprintf("block_timestamp <= $%d", argIdx))
		args = append(args, *filter.ToTime)
		argIdx++
	}

	query := fmt.Sprintf(`%s
		WHERE %s
		ORDER BY seq
		LIMIT $%d OFFSET $%d
	`, selectTransfers, strings.Join(conditions, " AND "), argIdx, argIdx+1)

	args = append(args, filter.Limit, filter.Offset)

	return query, args
}

// normalizeTransfer lowercases the addresses of a transfer so filters match
// regardless of the checksum casing the source returned
func normalizeTransfer(t entities.TransferRecord) entities.TransferRecord {
	t.FromAddress = strings.ToLower(t.FromAddress)
	t.ToAddress = strings.ToLower(t.ToAddress)
	t.TokenAddress = strings.ToLower(t.TokenAddress)
	return t
}

func toWalletInput(row walletRow) entities.WalletInput {
	return entities.WalletInput{
		Address:      row.Address,
		EthBalance:   row.EthBalance,
		Transactions: []entities.TransferRecord{},
		FetchError:   row.FetchError,
	}
}
