// Copyright (C) 2026 Harbor Labs (dev@harborlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"google.golang.org/grpc/credentials/insecure"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"

	"github.com/harborlabs/handbookrag/pkg/logging"
	"github.com/harborlabs/handbookrag/services/corpus"
	"github.com/harborlabs/handbookrag/services/embedding"
	"github.com/harborlabs/handbookrag/services/llm"
	"github.com/harborlabs/handbookrag/services/orchestrator/memory"
	"github.com/harborlabs/handbookrag/services/orchestrator/routes"
	"github.com/harborlabs/handbookrag/services/pipeline"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "handbookrag-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("handbookrag-orchestrator")))
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

// newWeaviateClient parses WEAVIATE_SERVICE_URL and connects. The URL
// is required: unlike a chat-only deployment, this service cannot run
// without its corpus.
func newWeaviateClient() (*weaviate.Client, error) {
	weaviateURL := os.Getenv("WEAVIATE_SERVICE_URL")
	// Trim quotes and whitespace in case the container runtime passes them literally
	weaviateURL = strings.Trim(weaviateURL, "\"' ")
	if weaviateURL == "" {
		weaviateURL = "http://localhost:8080"
		slog.Warn("WEAVIATE_SERVICE_URL not set, defaulting", "url", weaviateURL)
	}

	parsedURL, err := url.Parse(weaviateURL)
	if err != nil {
		return nil, err
	}
	return weaviate.NewClient(weaviate.Config{
		Host:   parsedURL.Host,
		Scheme: parsedURL.Scheme,
	})
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using process environment")
	}

	port := os.Getenv("ORCHESTRATOR_PORT")
	if port == "" {
		port = "12210"
	}

	logger, err := logging.New(logging.Config{
		Level:   logging.ParseLevel(os.Getenv("LOG_LEVEL")),
		Service: "handbookrag-orchestrator",
		JSON:    true,
		LogDir:  os.Getenv("LOG_DIR"),
	})
	if err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logger.Close()
	logger.SetDefault()

	// --- Init the tracer ---
	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	weaviateClient, err := newWeaviateClient()
	if err != nil {
		log.Fatalf("Failed to create Weaviate client: %v", err)
	}
	if err := corpus.EnsureSchema(context.Background(), weaviateClient); err != nil {
		log.Fatalf("Failed to ensure corpus schema: %v", err)
	}
	index := corpus.NewIndex(weaviateClient)

	embeddingURL := os.Getenv("EMBEDDING_SERVICE_URL")
	if embeddingURL == "" {
		embeddingURL = "http://localhost:12220"
		slog.Warn("EMBEDDING_SERVICE_URL not set, defaulting", "url", embeddingURL)
	}
	embedder := embedding.NewClient(embeddingURL)

	rerankerURL := os.Getenv("RERANKER_SERVICE_URL")
	if rerankerURL == "" {
		rerankerURL = embeddingURL
		slog.Info("RERANKER_SERVICE_URL not set, using embedding service", "url", rerankerURL)
	}
	reranker := embedding.NewRerankerClient(rerankerURL)

	log.Println("Configuring the LLM Client")
	llmClient, err := llm.NewClientFromEnv()
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}
	generator := llm.NewGenerator(llmClient, llm.DefaultParams())

	cfg := pipeline.DefaultConfig()
	if configPath := os.Getenv("PIPELINE_CONFIG_PATH"); configPath != "" {
		cfg, err = pipeline.LoadConfigFile(configPath)
		if err != nil {
			log.Fatalf("Failed to load pipeline config: %v", err)
		}
	}
	pipe := pipeline.New(embedder, reranker, generator, index, cfg)

	historyPath := os.Getenv("HISTORY_FILE_PATH")
	if historyPath == "" {
		historyPath = filepath.Join(os.TempDir(), "handbookrag", "history.json")
	}
	store, err := memory.NewFileHistoryStore(historyPath, memory.DefaultHistoryLimit)
	if err != nil {
		log.Fatalf("Failed to initialize history store: %v", err)
	}

	router := gin.Default()
	router.Use(otelgin.Middleware("handbookrag-orchestrator"))

	routes.SetupRoutes(router, pipe, index, embedder, store)

	log.Println("Starting the orchestrator server on port ", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
