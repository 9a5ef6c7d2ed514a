package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/stock-ledger/internal/adapter/storage"
	"github.com/rl1809/stock-ledger/internal/core/domain"
	"github.com/rl1809/stock-ledger/internal/core/service"
)

const (
	initialStock   = 20
	totalRequests  = 50
	sourceLocation = "warehouse-a"
	destLocation   = "warehouse-b"
)

func main() {
	ctx := context.Background()

	store := storage.NewMemoryStore()
	opts := service.DefaultOptions()
	opts.ConflictRetries = 5

	catalog := service.NewCatalogService(store, opts, nil)
	transfers := service.NewTransferService(store, opts, nil)
	ledger := service.NewLedgerService(store, nil, opts, nil)

	itemID, err := catalog.CreateItem(ctx, domain.NewItem{
		Name:              "Cement",
		Quantity:          decimal.NewFromInt(initialStock),
		BatchNo:           "B-1",
		LowStockThreshold: decimal.NewFromInt(5),
		Location:          sourceLocation,
		Unit:              "bag",
		CreatedBy:         "stress",
	})
	if err != nil {
		log.Fatalf("failed to create item: %v", err)
	}

	var successCount atomic.Int32
	var shortCount atomic.Int32
	var failCount atomic.Int32

	// Half the callers transfer, half deduct; together they ask for more
	// than exists.
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			var err error
			if n%2 == 0 {
				_, err = transfers.Transfer(ctx, service.Transfer{
					ItemID:       itemID,
					Amount:       decimal.NewFromInt(1),
					FromLocation: sourceLocation,
					ToLocation:   destLocation,
					ActorID:      fmt.Sprintf("user-%d", n),
				})
			} else {
				_, err = ledger.ApplyAdjustment(ctx, service.Adjustment{
					ItemID:  itemID,
					Amount:  decimal.NewFromInt(1),
					Reason:  "stress deduction",
					Type:    domain.AdjustmentDeduction,
					ActorID: fmt.Sprintf("user-%d", n),
				})
			}

			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				shortCount.Add(1)
			default:
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	source, err := catalog.GetItem(ctx, itemID)
	if err != nil {
		log.Fatalf("failed to read source item: %v", err)
	}
	dests, err := catalog.ListItems(ctx, domain.ItemFilter{Location: destLocation})
	if err != nil {
		log.Fatalf("failed to list destination items: %v", err)
	}
	logs, err := ledger.GetLogs(ctx, domain.LogFilter{ItemID: itemID, Limit: domain.MaxLogLimit})
	if err != nil {
		log.Fatalf("failed to read ledger: %v", err)
	}

	// replaying the source history from its opening balance must land on
	// the stored quantity
	replayed := decimal.NewFromInt(initialStock)
	for _, v := range logs {
		replayed = replayed.Add(v.QuantityChange(itemID))
	}

	destQty := decimal.Zero
	for _, d := range dests {
		destQty = destQty.Add(d.Quantity)
	}

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:        %d\n", initialStock)
	fmt.Printf("Total Requests:       %d\n", totalRequests)
	fmt.Printf("Successful:           %d\n", successCount.Load())
	fmt.Printf("Insufficient Stock:   %d\n", shortCount.Load())
	fmt.Printf("Other Failures:       %d\n", failCount.Load())
	fmt.Printf("Duration:             %v\n", elapsed)
	fmt.Println("==========================================")

	if successCount.Load() == initialStock {
		fmt.Printf("PASS: Exactly %d operations succeeded\n", initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d successes, got %d\n", initialStock, successCount.Load())
	}

	if source.Quantity.IsZero() {
		fmt.Println("PASS: Source depleted to 0")
	} else {
		fmt.Printf("FAIL: Expected source 0, got %s\n", source.Quantity)
	}

	if len(dests) <= 1 {
		fmt.Printf("PASS: %d destination record(s) holding %s\n", len(dests), destQty)
	} else {
		fmt.Printf("FAIL: %d destination records for one batch\n", len(dests))
	}

	if replayed.Equal(source.Quantity) {
		fmt.Printf("PASS: Ledger replay matches source quantity %s\n", source.Quantity)
	} else {
		fmt.Printf("FAIL: Ledger replay gives %s, source holds %s\n", replayed, source.Quantity)
	}

	if len(logs) == int(successCount.Load()) {
		fmt.Printf("PASS: %d ledger entries\n", len(logs))
	} else {
		fmt.Printf("FAIL: Expected %d ledger entries, got %d\n", successCount.Load(), len(logs))
	}
}
