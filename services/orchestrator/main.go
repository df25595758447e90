// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/AleutianAI/AleutianFactory/services/config"
	"github.com/AleutianAI/AleutianFactory/services/factorydata"
	"github.com/AleutianAI/AleutianFactory/services/llm"
	"github.com/AleutianAI/AleutianFactory/services/memory"
	"github.com/AleutianAI/AleutianFactory/services/metrics"
	"github.com/AleutianAI/AleutianFactory/services/orchestrator/observability"
	"github.com/AleutianAI/AleutianFactory/services/orchestrator/routes"
	"github.com/AleutianAI/AleutianFactory/services/orchestrator/services"
	"github.com/AleutianAI/AleutianFactory/services/sanitizer"
	"github.com/AleutianAI/AleutianFactory/services/storage"
	"github.com/AleutianAI/AleutianFactory/services/tools"
	"github.com/AleutianAI/AleutianFactory/services/traceability"
)

func initTracer(endpoint string) (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("factory-orchestrator")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// buildStore wires the configured blob backend behind the retry wrapper.
func buildStore(cfg *config.Config) (storage.BlobStore, error) {
	var inner storage.BlobStore
	switch cfg.Storage.Mode {
	case config.StorageModeGCS:
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Storage.ConnectTimeout)
		defer cancel()
		gcs, err := storage.NewGCSStore(ctx, cfg.Storage.Bucket, cfg.Storage.CredentialsFile)
		if err != nil {
			return nil, err
		}
		inner = gcs
		slog.Info("Using GCS blob storage", "bucket", cfg.Storage.Bucket)
	default:
		local, err := storage.NewLocalStore(cfg.Storage.LocalDir)
		if err != nil {
			return nil, err
		}
		inner = local
		slog.Info("Using local blob storage", "dir", cfg.Storage.LocalDir)
	}

	policy := storage.RetryPolicy{
		MaxAttempts:    cfg.Storage.MaxAttempts,
		InitialBackoff: cfg.Storage.InitialBackoff,
		Multiplier:     cfg.Storage.Multiplier,
		MaxDelay:       cfg.Storage.MaxDelay,
	}
	return storage.NewResilientStore(inner, policy, cfg.Storage.OperationTimeout,
		storage.WithRetryObserver(func(op string, attempt int, delay time.Duration) {
			observability.RecordStorageRetry(op)
		})), nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("FATAL: invalid configuration: %v", err)
	}

	if cfg.Server.OTLPEndpoint != "" {
		cleanup, err := initTracer(cfg.Server.OTLPEndpoint)
		if err != nil {
			log.Fatalf("failed to setup the OTLP tracer: %v", err)
		}
		defer cleanup(context.Background())
	} else {
		slog.Info("OTEL_EXPORTER_OTLP_ENDPOINT not set, tracing disabled")
	}

	store, err := buildStore(cfg)
	if err != nil {
		log.Fatalf("FATAL: could not initialize blob storage: %v", err)
	}

	loader := factorydata.NewLoader(store, cfg.Factory.DataKey)
	engine := metrics.NewEngine(loader)
	trace := traceability.NewEngine(loader)
	mem := memory.NewService(store, cfg.Factory.MemoryKey)

	scanner, err := sanitizer.NewScanner()
	if err != nil {
		log.Fatalf("FATAL: could not compile the injection signatures: %v", err)
	}

	registry := tools.NewRegistry()
	if err := tools.RegisterMetricsTools(registry, engine); err != nil {
		log.Fatalf("FATAL: could not register the KPI tools: %v", err)
	}
	if err := tools.RegisterMemoryTools(registry, mem); err != nil {
		log.Fatalf("FATAL: could not register the memory tools: %v", err)
	}
	slog.Info("Registered tools", "count", registry.Count())

	client, err := llm.NewOpenAIClient(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL)
	if err != nil {
		log.Fatalf("FATAL: could not initialize the LLM client: %v", err)
	}

	chat := services.NewChatService(services.ChatConfig{
		FactoryName:       cfg.Factory.Name,
		MaxToolIterations: cfg.Chat.MaxToolIterations,
		RetryPolicy: storage.RetryPolicy{
			MaxAttempts:    cfg.LLM.MaxRetries,
			InitialBackoff: cfg.Storage.InitialBackoff,
			Multiplier:     cfg.Storage.Multiplier,
			MaxDelay:       cfg.Storage.MaxDelay,
		},
	}, client, registry, scanner, loader, mem)

	router := gin.Default()
	router.Use(otelgin.Middleware("factory-orchestrator"))
	routes.SetupRoutes(router, chat, engine, trace, mem, loader, cfg.Chat.DebugErrors)

	log.Println("Starting the factory orchestrator on port", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
