package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/simvault/simvault"
	"github.com/simvault/simvault/anchor"
	anchorminio "github.com/simvault/simvault/anchor/minio"
	"github.com/simvault/simvault/encode"
	"github.com/simvault/simvault/gate"
	"github.com/simvault/simvault/internal/config"
	"github.com/simvault/simvault/internal/server"
	"github.com/simvault/simvault/registry"
)

const (
	indexFilename    = "vectors.svx"
	metadataFilename = "metadata.json"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the similarity service",
		Long:  "Load configuration, open the vault, and serve the HTTP API until interrupted.",
		RunE:  runServe,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")
	_ = viper.BindPFlag("listen", cmd.Flags().Lookup("listen"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if listen := viper.GetString("listen"); listen != "" {
		cfg.Listen = listen
	}

	logger := buildLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metric, err := cfg.Metric()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir %s: %w", cfg.DataDir, err)
	}

	vault, err := simvault.Open(
		filepath.Join(cfg.DataDir, indexFilename),
		filepath.Join(cfg.DataDir, metadataFilename),
		cfg.Service.Dimension,
		simvault.WithMetric(metric),
		simvault.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("opening vault: %w", err)
	}

	enc, err := encode.NewRemote(encode.RemoteConfig{
		BaseURL:   cfg.Encoder.BaseURL,
		Dimension: cfg.Service.Dimension,
		Timeout:   cfg.Encoder.Timeout,
	})
	if err != nil {
		return fmt.Errorf("building encoder: %w", err)
	}

	store, err := buildAnchorStore(ctx, cfg.Anchor)
	if err != nil {
		return fmt.Errorf("building anchor store: %w", err)
	}

	reg, err := buildRegistry(ctx, cfg.Registry)
	if err != nil {
		return fmt.Errorf("building registry: %w", err)
	}

	g, err := gate.New(vault, enc, store, reg, func(o *gate.Options) {
		o.Threshold = float32(cfg.Service.Threshold)
		o.K = cfg.Service.K
		o.AnchorWait = cfg.Registry.AnchorWait
		o.Logger = logger
	})
	if err != nil {
		return fmt.Errorf("building gate: %w", err)
	}

	srv, err := server.New(server.Config{
		ListenAddr: cfg.Listen,
		Kind:       cfg.Service.Kind,
		K:          cfg.Service.K,
		Threshold:  float32(cfg.Service.Threshold),
		RateLimit: server.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		},
	}, vault, g, enc, logger)
	if err != nil {
		return err
	}

	return srv.Start(ctx)
}

func buildLogger(cfg config.LogConfig) *simvault.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		return simvault.NewJSONLogger(level)
	}
	return simvault.NewTextLogger(level)
}

func buildAnchorStore(_ context.Context, cfg config.AnchorConfig) (anchor.Store, error) {
	switch cfg.Backend {
	case "pinata":
		return anchor.NewPinata(anchor.PinataConfig{
			APIKey:    cfg.Pinata.APIKey,
			SecretKey: cfg.Pinata.SecretKey,
		})
	case "minio":
		client, err := miniogo.New(cfg.Minio.Endpoint, &miniogo.Options{
			Creds:  credentials.NewStaticV4(cfg.Minio.AccessKey, cfg.Minio.SecretKey, ""),
			Secure: cfg.Minio.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		return anchorminio.NewStore(client, cfg.Minio.Bucket, cfg.Minio.Prefix), nil
	case "memory":
		return anchor.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown anchor backend %q", cfg.Backend)
	}
}

func buildRegistry(ctx context.Context, cfg config.RegistryConfig) (registry.Registry, error) {
	switch cfg.Backend {
	case "gateway":
		return registry.NewGateway(registry.GatewayConfig{
			BaseURL: cfg.Gateway.BaseURL,
		})
	case "dynamo":
		var optFns []func(*awsconfig.LoadOptions) error
		if cfg.Dynamo.Region != "" {
			optFns = append(optFns, awsconfig.WithRegion(cfg.Dynamo.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
		if err != nil {
			return nil, err
		}
		return registry.NewDynamo(dynamodb.NewFromConfig(awsCfg), cfg.Dynamo.Table), nil
	case "memory":
		return registry.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown registry backend %q", cfg.Backend)
	}
}
