// Package client ties the session, the world model and the schedulers into
// one runnable farm bot.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"farmhand.ai/internal/codec"
	"farmhand.ai/internal/config"
	"farmhand.ai/internal/journal"
	"farmhand.ai/internal/protocol"
	"farmhand.ai/internal/sched"
	"farmhand.ai/internal/session"
	"farmhand.ai/internal/world"
)

var ErrAlreadyRunning = errors.New("client already running")

// Options carries the pieces the entrypoint wires in around the config.
type Options struct {
	Logger *log.Logger
	// Journal records performed actions; nil disables journalling.
	Journal *journal.Store
	// Frames captures raw wire frames; nil disables capture.
	Frames session.FrameRecorder
	// Invites are pre-parsed invite codes synced once after login.
	Invites []protocol.InviteCode
	// GateURL overrides the platform default, for tests.
	GateURL string
}

// Client drives one account: a session plus the four schedulers. A client
// can run at most one session at a time; after a disconnect the caller
// starts again with a fresh login code.
type Client struct {
	cfg  config.Config
	reg  *codec.Registry
	log  *log.Logger
	opts Options

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	sess    *session.Session
	w       *world.Model
	done    chan struct{}

	subMu sync.Mutex
	subs  []chan session.Event
}

// New builds a client with a compiled, self-checked message catalogue.
// A catalogue/factory mismatch is unrecoverable and fails construction.
func New(cfg config.Config, opts Options) (*Client, error) {
	reg, err := codec.Load(codec.DefaultCatalog, protocol.Types())
	if err != nil {
		return nil, fmt.Errorf("message catalogue: %w", err)
	}
	if err := reg.Verify(); err != nil {
		return nil, fmt.Errorf("catalogue self-check: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Client{cfg: cfg, reg: reg, log: logger, opts: opts}, nil
}

// World exposes the live world model (read-side).
func (c *Client) World() *world.Model {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w
}

// Done reports the end of the current run: session lost or Stop called.
// nil before Start.
func (c *Client) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Subscribe returns a channel receiving session events (lands-changed,
// friend-application, disconnected). Slow subscribers drop events.
func (c *Client) Subscribe() <-chan session.Event {
	ch := make(chan session.Event, 16)
	c.subMu.Lock()
	c.subs = append(c.subs, ch)
	c.subMu.Unlock()
	return ch
}

// Start dials the gate, logs in with the one-time code, seeds the world and
// launches the schedulers. It returns once the session is ready.
func (c *Client) Start(ctx context.Context, code string) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.running = true
	c.mu.Unlock()

	sess, login, err := session.Dial(ctx, c.reg, code, session.Options{
		GateURL:           c.opts.GateURL,
		Platform:          c.cfg.Platform,
		HeartbeatInterval: c.cfg.Heartbeat(),
		Logger:            c.log,
		Frames:            c.opts.Frames,
	})
	if err != nil {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		return err
	}

	w := world.NewModel()
	w.ApplyLogin(login)
	c.log.Printf("logged in as %s (level %d, %d lands)", login.UID, login.Player.Level, len(login.Lands))

	if err := c.fetchCrops(ctx, sess, w); err != nil {
		sess.Close()
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		return fmt.Errorf("crop catalog: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.mu.Lock()
	c.sess = sess
	c.w = w
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	var j sched.Journal
	if c.opts.Journal != nil {
		j = c.opts.Journal
	}

	self := sched.NewSelfFarm(sess, w, sched.SelfFarmConfig{
		Interval:             c.cfg.FarmInterval(),
		ForceLowestLevelCrop: c.cfg.Farm.ForceLowestLevelCrop,
	}, c.log, j)
	friends := sched.NewFriendFarm(sess, w, sched.FriendFarmConfig{
		Interval:        c.cfg.FriendInterval(),
		HelpOnlyWithExp: c.cfg.Friends.HelpOnlyWithExp,
		StealEnabled:    c.cfg.Friends.StealEnabled,
		EnableSabotage:  c.cfg.Friends.EnableSabotage,
	}, c.log, j)
	tasks := sched.NewTasks(sess, w, sched.TasksConfig{
		Interval: c.cfg.FarmInterval(),
	}, c.log, j)
	warehouse := sched.NewWarehouse(sess, w, sched.WarehouseConfig{
		SettleDelay: 5 * time.Second,
		Interval:    c.cfg.WarehouseInterval(),
		MinQuantity: c.cfg.Warehouse.MinQuantity,
	}, c.log, j)

	var wg sync.WaitGroup
	for _, run := range []func(context.Context){self.Run, friends.Run, tasks.Run, warehouse.Run} {
		wg.Add(1)
		go func(run func(context.Context)) {
			defer wg.Done()
			run(runCtx)
		}(run)
	}

	if len(c.opts.Invites) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			friends.ProcessInvites(runCtx, c.opts.Invites)
		}()
	}

	go c.consume(runCtx, sess, w, friends, &wg, done)
	return nil
}

// consume routes session events until the session dies or the run is
// cancelled, then tears the run down.
func (c *Client) consume(ctx context.Context, sess *session.Session, w *world.Model, friends *sched.FriendFarm, wg *sync.WaitGroup, done chan struct{}) {
	defer func() {
		c.mu.Lock()
		c.cancel()
		c.running = false
		c.mu.Unlock()
		sess.Close()
		wg.Wait()
		close(done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sess.Done():
			c.log.Printf("session ended: %v", sess.Err())
			return
		case ev := <-sess.Events():
			switch ev.Name {
			case session.EventLandsChanged:
				if push, ok := ev.Msg.(*protocol.LandsPush); ok {
					w.ApplyLands(push.Lands)
				}
			case session.EventFriendApplication:
				if push, ok := ev.Msg.(*protocol.FriendApplicationPush); ok {
					friends.OnApplication(push.UID)
				}
			}
			c.fanOut(ev)
		}
	}
}

func (c *Client) fanOut(ev session.Event) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (c *Client) fetchCrops(ctx context.Context, sess *session.Session, w *world.Model) error {
	resp, err := sess.Call(ctx, protocol.TypeCropCatalogReq, &protocol.CropCatalogReq{})
	if err != nil {
		return err
	}
	catalog, ok := resp.(*protocol.CropCatalogResp)
	if !ok {
		return fmt.Errorf("unexpected response %T", resp)
	}
	w.SetCrops(catalog.Crops)
	c.log.Printf("crop catalog: %d species", len(catalog.Crops))
	return nil
}

// Stop ends the current run. Safe to call when not running and safe to
// call twice.
func (c *Client) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	if done != nil {
		<-done
	}
}
