package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/nft-hold-analyzer/internal/application/report"
	"github.com/bimakw/nft-hold-analyzer/internal/application/services"
	"github.com/bimakw/nft-hold-analyzer/internal/domain/entities"
	"github.com/bimakw/nft-hold-analyzer/internal/testutil"
)

func setupSummaryRouter(repo *testutil.MockWalletRepository) *chi.Mux {
	logger := zap.NewNop()
	service := services.NewSummaryService(
		repo,
		services.NewAnalyzerService(2, logger),
		report.NewFormatter(nil, logger),
		nil,
		time.Minute,
		logger,
	).WithClock(func() time.Time { return testutil.ReferenceTime })

	r := chi.NewRouter()
	r.Route("/api/v1", NewSummaryHandler(service, logger).RegisterRoutes)
	return r
}

func TestSummaryHandler_GetWalletSummary(t *testing.T) {
	t.Run("returns summary successfully", func(t *testing.T) {
		repo := testutil.NewMockWalletRepository()
		repo.AddWallets(testutil.CreateTestWallet(testutil.AliceAddress,
			testutil.CreateTestTransfer(testutil.WithAge(testutil.Days(10))),
			testutil.CreateTestTransfer(testutil.AsMint(), testutil.WithTokenID("2"), testutil.WithAge(testutil.Days(30))),
		))

		req := httptest.NewRequest("GET", "/api/v1/wallets/"+testutil.AliceAddress+"/nft-summary", nil)
		w := httptest.NewRecorder()

		setupSummaryRouter(repo).ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}

		var response services.WalletNFTSummaryResponse
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		data := response.Data
		if data.TotalHoldings != 2 {
			t.Errorf("expected 2 holdings, got %d", data.TotalHoldings)
		}
		if data.MintedCount != 1 || data.PurchasedCount != 1 {
			t.Errorf("expected 1 minted and 1 purchased, got %d and %d", data.MintedCount, data.PurchasedCount)
		}
		if data.HighestBuyingPriceEth == nil || *data.HighestBuyingPriceEth != "1.00" {
			t.Errorf("expected highest buying price 1.00, got %v", data.HighestBuyingPriceEth)
		}
		if data.AverageHoldDays == nil || *data.AverageHoldDays != 20 {
			t.Errorf("expected average hold of 20 days, got %v", data.AverageHoldDays)
		}
		if data.LongestHeld.TokenID != "2" || data.LongestHeld.HoldDays != 30 {
			t.Errorf("expected token 2 held 30 days, got %+v", data.LongestHeld)
		}
	})

	t.Run("returns 404 for unknown wallet", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/wallets/"+testutil.BobAddress+"/nft-summary", nil)
		w := httptest.NewRecorder()

		setupSummaryRouter(testutil.NewMockWalletRepository()).ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", w.Code)
		}
	})

	t.Run("returns error for invalid address", func(t *testing.T) {
		for _, addr := range []string{"invalid-address", "0x123", "1111111111111111111111111111111111111111xx"} {
			req := httptest.NewRequest("GET", "/api/v1/wallets/"+addr+"/nft-summary", nil)
			w := httptest.NewRecorder()

			setupSummaryRouter(testutil.NewMockWalletRepository()).ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("%s: expected status 400, got %d", addr, w.Code)
			}
		}
	})

	t.Run("returns error when repository fails", func(t *testing.T) {
		repo := testutil.NewMockWalletRepository()
		repo.GetWalletFunc = func(ctx context.Context, address string) (*entities.WalletInput, error) {
			return nil, errors.New("database error")
		}

		req := httptest.NewRequest("GET", "/api/v1/wallets/"+testutil.AliceAddress+"/nft-summary", nil)
		w := httptest.NewRecorder()

		setupSummaryRouter(repo).ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", w.Code)
		}
	})

	t.Run("reports failed wallet inside the payload", func(t *testing.T) {
		repo := testutil.NewMockWalletRepository()
		wallet := testutil.CreateTestWallet(testutil.AliceAddress)
		wallet.FetchError = "failed to fetch transfers: timeout"
		repo.AddWallets(wallet)

		req := httptest.NewRequest("GET", "/api/v1/wallets/"+testutil.AliceAddress+"/nft-summary", nil)
		w := httptest.NewRecorder()

		setupSummaryRouter(repo).ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}

		var response services.WalletNFTSummaryResponse
		_ = json.NewDecoder(w.Body).Decode(&response)
		if response.Data.Error == "" {
			t.Error("expected error in payload")
		}
		if response.Data.TotalSpentEth != nil || response.Data.AverageHoldDays != nil {
			t.Error("expected unavailable values to be null")
		}
	})
}

func TestSummaryHandler_GetHoldings(t *testing.T) {
	t.Run("returns holdings in first seen order", func(t *testing.T) {
		repo := testutil.NewMockWalletRepository()
		repo.AddWallets(testutil.CreateTestWallet(testutil.AliceAddress,
			testutil.CreateTestTransfer(testutil.WithTokenID("7"), testutil.WithAge(testutil.Days(3))),
			testutil.CreateTestTransfer(testutil.WithTokenAddress(testutil.AzukiAddress), testutil.WithAge(testutil.Days(2))),
			testutil.CreateTestTransfer(testutil.WithTokenID("7"), testutil.WithAge(testutil.Days(1))),
		))

		req := httptest.NewRequest("GET", "/api/v1/wallets/"+testutil.AliceAddress+"/holdings", nil)
		w := httptest.NewRecorder()

		setupSummaryRouter(repo).ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}

		var response services.HoldingsResponse
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.Meta.Total != 2 {
			t.Fatalf("expected 2 holdings, got %d", response.Meta.Total)
		}
		first := response.Data[0]
		if first.TokenID != "7" || len(first.HoldDays) != 2 || first.HoldDays[0] != 3 || first.HoldDays[1] != 1 {
			t.Errorf("unexpected first holding %+v", first)
		}
		if response.Data[1].ContractAddress != testutil.AzukiAddress {
			t.Errorf("expected second holding to be Azuki, got %s", response.Data[1].ContractAddress)
		}
	})

	t.Run("returns 422 for malformed history", func(t *testing.T) {
		repo := testutil.NewMockWalletRepository()
		repo.AddWallets(testutil.CreateTestWallet(testutil.AliceAddress,
			testutil.CreateTestTransfer(testutil.WithTokenID("")),
		))

		req := httptest.NewRequest("GET", "/api/v1/wallets/"+testutil.AliceAddress+"/holdings", nil)
		w := httptest.NewRecorder()

		setupSummaryRouter(repo).ServeHTTP(w, req)

		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("expected status 422, got %d", w.Code)
		}
	})
}

func TestSummaryHandler_GetReport(t *testing.T) {
	repo := testutil.NewMockWalletRepository()
	repo.AddWallets(
		testutil.CreateTestWallet(testutil.AliceAddress, testutil.CreateTestTransfer()),
		testutil.CreateTestWallet(testutil.BobAddress),
	)

	req := httptest.NewRequest("GET", "/api/v1/report", nil)
	w := httptest.NewRecorder()

	setupSummaryRouter(repo).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("expected text/csv, got %s", ct)
	}

	rows := strings.Split(w.Body.String(), "\n")
	if len(rows) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(rows))
	}
	if rows[0] != strings.Join(report.Header, ",") {
		t.Errorf("unexpected header %q", rows[0])
	}
	if !strings.HasPrefix(rows[1], testutil.AliceAddress+",") || !strings.HasPrefix(rows[2], testutil.BobAddress+",") {
		t.Error("expected rows in stored order")
	}
}

func TestSummaryHandler_GetTransfers(t *testing.T) {
	repo := testutil.NewMockWalletRepository()
	repo.AddWallets(testutil.CreateTestWallet(testutil.AliceAddress,
		testutil.CreateTestTransfer(testutil.WithTokenID("1")),
		testutil.CreateTestTransfer(testutil.WithTokenID("2")),
		testutil.CreateTestTransfer(testutil.WithTokenID("3")),
	))
	router := setupSummaryRouter(repo)

	tests := []struct {
		name        string
		query       string
		wantIDs     []string
		wantHasMore bool
	}{
		{name: "first page", query: "?limit=2", wantIDs: []string{"1", "2"}, wantHasMore: true},
		{name: "last page", query: "?limit=2&offset=2", wantIDs: []string{"3"}},
		{name: "invalid limit uses default", query: "?limit=abc", wantIDs: []string{"1", "2", "3"}},
		{name: "other collection", query: "?token=" + testutil.PunksAddress, wantIDs: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/wallets/"+testutil.AliceAddress+"/transfers"+tt.query, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", w.Code)
			}

			var response services.TransfersResponse
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}

			if len(response.Transfers) != len(tt.wantIDs) {
				t.Fatalf("expected %d transfers, got %d", len(tt.wantIDs), len(response.Transfers))
			}
			for i, id := range tt.wantIDs {
				if response.Transfers[i].TokenID != id {
					t.Errorf("transfer %d: expected token %s, got %s", i, id, response.Transfers[i].TokenID)
				}
			}
			if response.HasMore != tt.wantHasMore {
				t.Errorf("expected has_more %v, got %v", tt.wantHasMore, response.HasMore)
			}
		})
	}

	t.Run("matches checksummed collection address", func(t *testing.T) {
		repo := testutil.NewMockWalletRepository()
		repo.AddWallets(testutil.CreateTestWallet(testutil.BobAddress,
			testutil.CreateTestTransfer(
				testutil.WithToAddress(testutil.BobAddress),
				testutil.WithTokenAddress("0xBC4CA0EdA7647A8aB7C2061c2E118A18a936f13D"),
				testutil.WithTokenID("9"),
			),
		))

		req := httptest.NewRequest("GET", "/api/v1/wallets/"+testutil.BobAddress+"/transfers?token="+testutil.BAYCAddress, nil)
		w := httptest.NewRecorder()

		setupSummaryRouter(repo).ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		var response services.TransfersResponse
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(response.Transfers) != 1 || response.Transfers[0].TokenID != "9" {
			t.Errorf("expected the checksummed transfer, got %+v", response.Transfers)
		}
	})

	t.Run("rejects invalid address", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/wallets/not-an-address/transfers", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})
}
