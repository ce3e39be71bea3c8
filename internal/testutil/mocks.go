package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/bimakw/nft-hold-analyzer/internal/domain/entities"
	"github.com/bimakw/nft-hold-analyzer/internal/domain/repositories"
)

// Ensure mocks implement their interfaces
var (
	_ repositories.WalletRepository     = (*MockWalletRepository)(nil)
	_ repositories.CheckpointRepository = (*MockCheckpointRepository)(nil)
	_ repositories.TransferSource       = (*MockTransferSource)(nil)
	_ repositories.BalanceSource        = (*MockBalanceSource)(nil)
)

type MockCall struct {
	Method string
	Args   []interface{}
}

// MockWalletRepository is an in-memory WalletRepository
type MockWalletRepository struct {
	mu      sync.RWMutex
	wallets []entities.WalletInput

	// Function hooks for custom behavior
	GetWalletFunc   func(ctx context.Context, address string) (*entities.WalletInput, error)
	ListWalletsFunc func(ctx context.Context) ([]entities.WalletInput, error)

	// Call tracking
	Calls []MockCall
}

func NewMockWalletRepository() *MockWalletRepository {
	return &MockWalletRepository{
		wallets: make([]entities.WalletInput, 0),
		Calls:   make([]MockCall, 0),
	}
}

func (m *MockWalletRepository) track(method string, args ...interface{}) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
	m.mu.Unlock()
}

func (m *MockWalletRepository) SaveWallets(ctx context.Context, wallets []entities.WalletInput) error {
	m.track("SaveWallets", wallets)

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range wallets {
		w.Address = strings.ToLower(w.Address)
		replaced := false
		for i := range m.wallets {
			if m.wallets[i].Address == w.Address {
				m.wallets[i] = w
				replaced = true
				break
			}
		}
		if !replaced {
			m.wallets = append(m.wallets, w)
		}
	}
	return nil
}

func (m *MockWalletRepository) GetWallet(ctx context.Context, address string) (*entities.WalletInput, error) {
	m.track("GetWallet", address)

	if m.GetWalletFunc != nil {
		return m.GetWalletFunc(ctx, address)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, w := range m.wallets {
		if w.Address == strings.ToLower(address) {
			wallet := w
			return &wallet, nil
		}
	}
	return nil, nil
}

func (m *MockWalletRepository) ListWallets(ctx context.Context) ([]entities.WalletInput, error) {
	m.track("ListWallets")

	if m.ListWalletsFunc != nil {
		return m.ListWalletsFunc(ctx)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]entities.WalletInput, len(m.wallets))
	copy(result, m.wallets)
	return result, nil
}

func (m *MockWalletRepository) GetTransfers(ctx context.Context, filter entities.TransferFilter) ([]entities.TransferRecord, error) {
	m.track("GetTransfers", filter)

	wallet, err := m.GetWallet(ctx, filter.WalletAddress)
	if err != nil || wallet == nil {
		return []entities.TransferRecord{}, err
	}

	result := make([]entities.TransferRecord, 0)
	for _, t := range wallet.Transactions {
		if filter.TokenAddress != nil && !strings.EqualFold(t.TokenAddress, *filter.TokenAddress) {
			continue
		}
		if filter.FromTime != nil && t.BlockTimestamp.Before(*filter.FromTime) {
			continue
		}
		if filter.ToTime != nil && t.BlockTimestamp.After(*filter.ToTime) {
			continue
		}
		result = append(result, t)
	}

	// Apply pagination
	start := filter.Offset
	if start > len(result) {
		return []entities.TransferRecord{}, nil
	}
	end := start + filter.Limit
	if end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

// AddWallets adds wallets directly for testing
func (m *MockWalletRepository) AddWallets(wallets ...entities.WalletInput) {
	_ = m.SaveWallets(context.Background(), wallets)
}

// MockCheckpointRepository keeps the last saved checkpoint in memory
type MockCheckpointRepository struct {
	mu         sync.Mutex
	checkpoint *entities.Checkpoint

	// Saved records the state of every successful save
	Saved []entities.CollectionState

	LoadErr error
	// SaveErrAt fails the save with this 1-based index, 0 never fails
	SaveErrAt int
	saves     int
}

func NewMockCheckpointRepository(initial *entities.Checkpoint) *MockCheckpointRepository {
	return &MockCheckpointRepository{checkpoint: initial}
}

func (m *MockCheckpointRepository) Load(ctx context.Context) (*entities.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.checkpoint == nil {
		return nil, nil
	}
	cp := *m.checkpoint
	cp.Wallets = append([]entities.WalletInput(nil), m.checkpoint.Wallets...)
	return &cp, nil
}

func (m *MockCheckpointRepository) Save(ctx context.Context, cp *entities.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saves++
	if m.SaveErrAt > 0 && m.saves == m.SaveErrAt {
		return errors.New("disk full")
	}

	saved := *cp
	saved.Wallets = append([]entities.WalletInput(nil), cp.Wallets...)
	m.checkpoint = &saved
	m.Saved = append(m.Saved, cp.State)
	return nil
}

// Checkpoint returns the last saved checkpoint
func (m *MockCheckpointRepository) Checkpoint() *entities.Checkpoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkpoint
}

// MockTransferSource returns canned transfers per wallet
type MockTransferSource struct {
	mu        sync.Mutex
	Transfers map[string][]entities.TransferRecord
	Errors    map[string]error
	Calls     []MockCall
}

func NewMockTransferSource() *MockTransferSource {
	return &MockTransferSource{
		Transfers: make(map[string][]entities.TransferRecord),
		Errors:    make(map[string]error),
	}
}

func (m *MockTransferSource) FetchTransfers(ctx context.Context, walletAddress string) ([]entities.TransferRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockCall{Method: "FetchTransfers", Args: []interface{}{walletAddress}})

	if err := m.Errors[walletAddress]; err != nil {
		return nil, err
	}
	if transfers, ok := m.Transfers[walletAddress]; ok {
		return transfers, nil
	}
	return []entities.TransferRecord{}, nil
}

// CallCount returns the number of fetches made
func (m *MockTransferSource) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockBalanceSource returns a fixed balance unless an error is configured for the wallet
type MockBalanceSource struct {
	mu      sync.Mutex
	Balance string
	Errors  map[string]error
}

func NewMockBalanceSource(balance string) *MockBalanceSource {
	return &MockBalanceSource{
		Balance: balance,
		Errors:  make(map[string]error),
	}
}

func (m *MockBalanceSource) GetEthBalance(ctx context.Context, walletAddress string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.Errors[walletAddress]; err != nil {
		return "", err
	}
	return m.Balance, nil
}

// MockCollectionNamer resolves collection names from a map
type MockCollectionNamer struct {
	Names map[string]string
	Err   error
}

func (m *MockCollectionNamer) CollectionName(ctx context.Context, contractAddress string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.Names[contractAddress], nil
}

// MockCache is an in-memory response cache that round-trips values through JSON like Redis does
type MockCache struct {
	mu    sync.Mutex
	Items map[string][]byte
	Hits  int
}

func NewMockCache() *MockCache {
	return &MockCache{Items: make(map[string][]byte)}
}

// ErrMockCacheMiss is returned by MockCache.Get for unknown keys
var ErrMockCacheMiss = errors.New("cache miss")

func (m *MockCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.Items[key]
	if !ok {
		return ErrMockCacheMiss
	}
	m.Hits++
	return json.Unmarshal(item, dest)
}

func (m *MockCache) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Items[key] = data
	return nil
}

// MockHealthChecker is a mock implementation of HealthChecker
type MockHealthChecker struct {
	mu sync.RWMutex

	Healthy bool
	Error   error
	Calls   []MockCall
}

func NewMockHealthChecker(healthy bool) *MockHealthChecker {
	var err error
	if !healthy {
		err = errors.New("health check failed")
	}
	return &MockHealthChecker{
		Healthy: healthy,
		Error:   err,
		Calls:   make([]MockCall, 0),
	}
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "HealthCheck", Args: nil})
	m.mu.Unlock()

	return m.Error
}

func (m *MockHealthChecker) SetHealthy(healthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Healthy = healthy
	if healthy {
		m.Error = nil
	} else {
		m.Error = errors.New("health check failed")
	}
}
