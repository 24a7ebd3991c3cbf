package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aegis-mesh/go-node/internal/config"
	"aegis-mesh/go-node/internal/keys"
	"aegis-mesh/go-node/internal/keystore"
	"aegis-mesh/go-node/internal/metrics"
	"aegis-mesh/go-node/internal/peer"
	"aegis-mesh/go-node/internal/platform/privacylog"
	"aegis-mesh/go-node/internal/registry"
)

const (
	exitOK           = 0
	exitInvalidInput = 10
	exitIOFailed     = 20
	exitSendFailed   = 30
	exitServeFailed  = 40
)

const passphraseEnv = "AEGIS_KEYSTORE_PASSPHRASE"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitInvalidInput)
	}

	switch os.Args[1] {
	case "identity":
		runIdentity(os.Args[2:])
	case "registry":
		runRegistry(os.Args[2:])
	case "serve":
		runServe(os.Args[2:])
	case "send":
		runSend(os.Args[2:])
	default:
		printUsage()
		os.Exit(exitInvalidInput)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: aegis-peer <command>

commands:
  identity init|show|export   manage the local identity keystore
  registry add|list           manage the DID registry ledger
  serve                       run the message server
  send                        send an encrypted message to a DID`)
}

func fail(msg string, code int) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(code)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fail(err.Error(), exitIOFailed)
	}
}

func passphrase() string {
	p := strings.TrimSpace(os.Getenv(passphraseEnv))
	if p == "" {
		fail(passphraseEnv+" is not set", exitInvalidInput)
	}
	return p
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(privacylog.Wrap(handler))
}

func runIdentity(args []string) {
	if len(args) < 1 {
		fail("usage: aegis-peer identity init|show|export", exitInvalidInput)
	}
	sub := args[0]
	fs := flag.NewFlagSet("identity "+sub, flag.ExitOnError)
	configPath := fs.String("config", "", "path to config.yaml")
	mnemonicIn := fs.String("mnemonic", "", "restore from a recovery phrase instead of generating (init)")
	_ = fs.Parse(args[1:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		fail(err.Error(), exitIOFailed)
	}

	switch sub {
	case "init":
		var kp *keys.Keypair
		if *mnemonicIn != "" {
			kp, err = keys.FromMnemonic(*mnemonicIn)
		} else {
			kp, err = keys.Generate()
		}
		if err != nil {
			fail(err.Error(), exitInvalidInput)
		}
		id := keystore.Identity{DID: registry.MintDID(), Keypair: kp}
		if err := keystore.Save(cfg.KeystorePath, passphrase(), id); err != nil {
			fail(err.Error(), exitIOFailed)
		}
		printJSON(map[string]any{
			"did":        id.DID,
			"public_key": kp.PublicKeyHex(),
			"keystore":   cfg.KeystorePath,
		})
	case "show":
		id, err := keystore.Load(cfg.KeystorePath, passphrase())
		if err != nil {
			fail(err.Error(), exitIOFailed)
		}
		printJSON(map[string]any{
			"did":        id.DID,
			"public_key": id.Keypair.PublicKeyHex(),
		})
	case "export":
		id, err := keystore.Load(cfg.KeystorePath, passphrase())
		if err != nil {
			fail(err.Error(), exitIOFailed)
		}
		phrase, err := id.Keypair.Mnemonic()
		if err != nil {
			fail(err.Error(), exitIOFailed)
		}
		printJSON(map[string]any{"mnemonic": phrase})
	default:
		fail("usage: aegis-peer identity init|show|export", exitInvalidInput)
	}
	os.Exit(exitOK)
}

func runRegistry(args []string) {
	if len(args) < 1 {
		fail("usage: aegis-peer registry add|list", exitInvalidInput)
	}
	sub := args[0]
	fs := flag.NewFlagSet("registry "+sub, flag.ExitOnError)
	configPath := fs.String("config", "", "path to config.yaml")
	did := fs.String("did", "", "DID to register")
	owner := fs.String("owner", "", "owner reference")
	publicKey := fs.String("public-key", "", "published hex public key")
	endpoint := fs.String("endpoint", "", "multiaddr endpoint, e.g. /ip4/127.0.0.1/tcp/9998")
	nickname := fs.String("nickname", "", "optional nickname")
	metadataRef := fs.String("metadata-ref", "", "optional metadata reference")
	_ = fs.Parse(args[1:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		fail(err.Error(), exitIOFailed)
	}
	ledger, err := registry.OpenFileLedger(cfg.RegistryPath)
	if err != nil {
		fail(err.Error(), exitIOFailed)
	}

	switch sub {
	case "add":
		entry := registry.Entry{
			DID:         strings.TrimSpace(*did),
			Owner:       strings.TrimSpace(*owner),
			PublicKey:   strings.TrimSpace(*publicKey),
			Endpoint:    strings.TrimSpace(*endpoint),
			Nickname:    strings.TrimSpace(*nickname),
			MetadataRef: strings.TrimSpace(*metadataRef),
		}
		if entry.DID == "" {
			entry.DID = registry.MintDID()
		}
		if err := ledger.Register(entry); err != nil {
			fail(err.Error(), exitInvalidInput)
		}
		printJSON(map[string]any{"did": entry.DID, "registry": cfg.RegistryPath})
	case "list":
		entries, err := ledger.List()
		if err != nil {
			fail(err.Error(), exitIOFailed)
		}
		printJSON(entries)
	default:
		fail("usage: aegis-peer registry add|list", exitInvalidInput)
	}
	os.Exit(exitOK)
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config.yaml")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fail(err.Error(), exitIOFailed)
	}
	logger := newLogger(cfg.LogLevel)

	id, err := keystore.Load(cfg.KeystorePath, passphrase())
	if err != nil {
		fail(err.Error(), exitIOFailed)
	}

	var peerMetrics *metrics.PeerMetrics
	if cfg.MetricsEnabled {
		peerMetrics = metrics.New(prometheus.DefaultRegisterer)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Warn("metrics endpoint failed", "error", err.Error())
			}
		}()
	}

	srv, err := peer.NewServer(peer.ServerConfig{
		ListenAddr:      cfg.ListenAddr(),
		Framing:         peer.Framing(cfg.Framing),
		MaxEnvelopeSize: cfg.MaxEnvelopeKB * 1024,
		ReadTimeout:     cfg.ReadTimeout,
		MaxInFlight:     cfg.MaxInFlight,
		AcceptRPS:       cfg.AcceptRPS,
		AcceptBurst:     cfg.AcceptBurst,
	}, id.Keypair, peer.LogHandler(logger), logger, peerMetrics)
	if err != nil {
		fail(err.Error(), exitServeFailed)
	}
	if err := srv.Start(); err != nil {
		fail(err.Error(), exitServeFailed)
	}
	logger.Info("aegis peer serving", "local_did", id.DID, "addr", srv.Addr())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(drainCtx); err != nil {
		fail(err.Error(), exitServeFailed)
	}
	os.Exit(exitOK)
}

func runSend(args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config.yaml")
	targetDID := fs.String("did", "", "recipient DID")
	message := fs.String("message", "", "plaintext message")
	addr := fs.String("addr", "", "host:port override; empty uses the registry endpoint")
	_ = fs.Parse(args)

	if strings.TrimSpace(*targetDID) == "" || *message == "" {
		fail("send requires -did and -message", exitInvalidInput)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fail(err.Error(), exitIOFailed)
	}
	logger := newLogger(cfg.LogLevel)

	ledger, err := registry.OpenFileLedger(cfg.RegistryPath)
	if err != nil {
		fail(err.Error(), exitIOFailed)
	}
	client, err := peer.NewClient(ledger, peer.ClientConfig{
		Framing:      peer.Framing(cfg.Framing),
		DialTimeout:  cfg.DialTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}, logger, nil)
	if err != nil {
		fail(err.Error(), exitInvalidInput)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout+cfg.WriteTimeout)
	defer cancel()
	if err := client.SendTo(ctx, strings.TrimSpace(*addr), strings.TrimSpace(*targetDID), []byte(*message)); err != nil {
		fail(err.Error(), exitSendFailed)
	}
	printJSON(map[string]any{"sent": true, "did": strings.TrimSpace(*targetDID)})
	os.Exit(exitOK)
}
