package sched

import (
	"context"
	"log"
	"time"

	"farmhand.ai/internal/journal"
	"farmhand.ai/internal/protocol"
	"farmhand.ai/internal/world"
)

type WarehouseConfig struct {
	// SettleDelay is the wait before the first inspection, letting the
	// initial world snapshot settle.
	SettleDelay time.Duration
	Interval    time.Duration
	// MinQuantity is the smallest stack worth a sell request.
	MinQuantity int
}

// Warehouse drains sellable inventory into currency.
type Warehouse struct {
	c   Caller
	w   *world.Model
	cfg WarehouseConfig
	log *log.Logger
	j   Journal
}

func NewWarehouse(c Caller, w *world.Model, cfg WarehouseConfig, logger *log.Logger, j Journal) *Warehouse {
	return &Warehouse{c: c, w: w, cfg: cfg, log: logger, j: j}
}

func (wh *Warehouse) Run(ctx context.Context) {
	if !sleepCtx(ctx, wh.cfg.SettleDelay) {
		return
	}
	for {
		if wh.c.Ready() {
			if _, err := wh.SellNow(ctx); err != nil {
				wh.log.Printf("sell pass: %v", err)
			}
		}
		if !sleepCtx(ctx, wh.cfg.Interval) {
			return
		}
	}
}

// SellNow inspects the warehouse once and sells every sellable stack at or
// above the minimum quantity. It doubles as the manual trigger for
// on-demand inspections.
func (wh *Warehouse) SellNow(ctx context.Context) (sold int, err error) {
	resp, err := call[protocol.WarehouseResp](ctx, wh.c, protocol.TypeWarehouseReq, &protocol.WarehouseReq{})
	if err != nil {
		return 0, err
	}
	for _, item := range resp.Items {
		if ctx.Err() != nil {
			return sold, ctx.Err()
		}
		if !item.Sellable || item.Count < wh.cfg.MinQuantity {
			continue
		}
		sell, err := call[protocol.SellResp](ctx, wh.c, protocol.TypeSellReq, &protocol.SellReq{ItemID: item.ItemID, Count: item.Count})
		if err != nil {
			wh.log.Printf("sell %s x%d: %v", item.Name, item.Count, err)
			continue
		}
		wh.w.SetGold(sell.Gold)
		wh.w.SetItemCount(item.ItemID, 0)
		sold += item.Count
		wh.log.Printf("sold %s x%d, balance %d", item.Name, item.Count, sell.Gold)
		record(wh.j, journal.Action{Kind: "sell", ItemID: item.ItemID, Count: item.Count})
	}
	return sold, nil
}
