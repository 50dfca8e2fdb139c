package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"farmhand.ai/internal/client"
	"farmhand.ai/internal/config"
	"farmhand.ai/internal/journal"
	"farmhand.ai/internal/protocol"
	"farmhand.ai/internal/session"
)

func main() {
	var (
		code           = flag.String("code", "", "one-time login code (required)")
		wx             = flag.Bool("wx", false, "use the wx platform gate")
		interval       = flag.Int("interval", 0, "self-farm interval seconds (overrides config)")
		friendInterval = flag.Int("friend-interval", 0, "friend patrol interval seconds (overrides config)")
		configPath     = flag.String("config", "", "path to farmhand.yaml")
		invitesPath    = flag.String("invites", "", "path to a share-link file with invite codes (wx only)")
		capture        = flag.Bool("capture", false, "record raw wire frames")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[farmhand] ", log.LstdFlags|log.Lmicroseconds)

	// .env is optional; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	cfg.ApplyEnv()
	if *wx {
		cfg.Platform = "wx"
	}
	if *interval > 0 {
		cfg.Farm.IntervalSeconds = *interval
	}
	if *friendInterval > 0 {
		cfg.Friends.IntervalSeconds = *friendInterval
	}
	if *capture {
		cfg.CaptureFrames = true
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("%v", err)
	}
	if *code == "" {
		logger.Fatal("missing -code: a fresh one-time login code is required")
	}

	opts := client.Options{Logger: logger, GateURL: cfg.GateURL}

	if *invitesPath != "" {
		if cfg.Platform != "wx" {
			logger.Fatal("-invites requires the wx platform (-wx)")
		}
		invites, err := loadInvites(*invitesPath)
		if err != nil {
			logger.Fatalf("invites: %v", err)
		}
		logger.Printf("loaded %d invite codes from %s", len(invites), *invitesPath)
		opts.Invites = invites
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}
	runID := uuid.NewString()
	store, err := journal.Open(filepath.Join(cfg.DataDir, "journal.db"), runID)
	if err != nil {
		// The journal is accounting, not control flow; run without it.
		logger.Printf("journal disabled: %v", err)
	} else {
		opts.Journal = store
		defer store.Close()
	}

	if cfg.CaptureFrames {
		fl := journal.NewFrameLog(filepath.Join(cfg.DataDir, "frames"), runID)
		opts.Frames = fl
		defer fl.Close()
	}

	c, err := client.New(cfg, opts)
	if err != nil {
		logger.Fatalf("%v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = c.Start(ctx, *code)
	cancel()
	if err != nil {
		var le *session.LoginError
		if errors.As(err, &le) && le.Code != "" {
			logger.Fatalf("login rejected (%s): %s; fetch a fresh code and retry", le.Code, le.Message)
		}
		logger.Fatalf("start: %v", err)
	}
	logger.Printf("running on %s gate, farm every %s, friends every %s",
		cfg.Platform, cfg.FarmInterval(), cfg.FriendInterval())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Printf("shutting down")
		c.Stop()
	case <-c.Done():
		logger.Printf("session ended; restart with a fresh -code")
	}
}

// loadInvites parses a share-link file: one link or query string per line,
// uid/openid/share_source/doc_id carried as query parameters.
func loadInvites(path string) ([]protocol.InviteCode, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var invites []protocol.InviteCode
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		q := line
		if i := strings.IndexByte(line, '?'); i >= 0 {
			q = line[i+1:]
		}
		vals, err := url.ParseQuery(q)
		if err != nil || vals.Get("uid") == "" {
			continue
		}
		invites = append(invites, protocol.InviteCode{
			UID:         vals.Get("uid"),
			OpenID:      vals.Get("openid"),
			ShareSource: vals.Get("share_source"),
			DocID:       vals.Get("doc_id"),
		})
	}
	return invites, nil
}
