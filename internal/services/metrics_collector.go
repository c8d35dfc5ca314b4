package services

import (
	"context"
	"log"
	"sync"
	"time"

	"rentledger-backend/internal/metrics"
	"rentledger-backend/internal/models"
	"rentledger-backend/internal/repositories"
)

// GaugeCollector keeps the point-in-time gauges honest. Counters are
// incremented inline by the services; gauges reflect current ledger
// state and need a periodic full recount.
type GaugeCollector struct {
	store    *repositories.Store
	interval time.Duration
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewGaugeCollector(store *repositories.Store) *GaugeCollector {
	return &GaugeCollector{
		store:    store,
		interval: 5 * time.Minute,
		stopChan: make(chan struct{}),
	}
}

// Start launches the refresh loop. The first refresh runs immediately so
// the gauges are populated before the first scrape.
func (c *GaugeCollector) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		c.refresh()

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.refresh()
			case <-c.stopChan:
				return
			}
		}
	}()
	log.Printf("[Metrics] Gauge collector started (interval %s)", c.interval)
}

// Stop halts the refresh loop and waits for it to exit.
func (c *GaugeCollector) Stop() {
	close(c.stopChan)
	c.wg.Wait()
	log.Println("[Metrics] Gauge collector stopped")
}

func (c *GaugeCollector) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.Collect(ctx); err != nil {
		log.Printf("[Metrics] Gauge refresh failed: %v", err)
	}
}

// Collect recounts the open ledger positions and updates the gauges.
func (c *GaugeCollector) Collect(ctx context.Context) error {
	payments, err := c.store.RentPayments.GetAll(ctx)
	if err != nil {
		return err
	}

	var pending, overdue int
	var outstanding float64
	for _, p := range payments {
		switch p.Status {
		case models.PaymentStatusPending:
			pending++
			outstanding += p.DerivedActualAmount()
		case models.PaymentStatusOverdue:
			overdue++
			outstanding += p.DerivedActualAmount()
		case models.PaymentStatusPartial:
			if due := p.DerivedActualAmount() - p.ActualAmountPaid; due > 0 {
				outstanding += due
			}
		}
	}
	metrics.PaymentsPending.Set(float64(pending))
	metrics.PaymentsOverdue.Set(float64(overdue))
	metrics.OutstandingRentAmount.Set(outstanding)

	deposits, err := c.store.Deposits.GetAll(ctx)
	if err != nil {
		return err
	}
	var held int
	for _, d := range deposits {
		if d.Status == models.DepositStatusHeld {
			held++
		}
	}
	metrics.DepositsHeld.Set(float64(held))

	return nil
}
