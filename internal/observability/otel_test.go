package observability

import (
	"context"
	"testing"

	"github.com/user/objectstorage/internal/config"
)

func TestInitOTLP_Disabled(t *testing.T) {
	shutdown, err := InitOTLP(context.Background(), config.OTLPConfig{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("No-op shutdown failed: %v", err)
	}
}

func TestInitOTLP_GRPC(t *testing.T) {
	cfg := config.OTLPConfig{
		Endpoint:    "localhost:4317",
		Protocol:    "grpc",
		ServiceName: "objectstorage-test",
		Insecure:    true,
	}

	shutdown, err := InitOTLP(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to init OTLP: %v", err)
	}
	if shutdown == nil {
		t.Fatal("Shutdown function is nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}

func TestInitOTLP_HTTP(t *testing.T) {
	cfg := config.OTLPConfig{
		Endpoint: "localhost:4318",
		Insecure: true,
		Headers:  map[string]string{"x-tenant": "streams"},
	}

	shutdown, err := InitOTLP(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to init OTLP HTTP: %v", err)
	}
	if shutdown == nil {
		t.Fatal("Shutdown function is nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}

func TestInitOTLP_UnknownProtocol(t *testing.T) {
	cfg := config.OTLPConfig{Endpoint: "localhost:4318", Protocol: "thrift"}
	if _, err := InitOTLP(context.Background(), cfg); err == nil {
		t.Fatal("Expected error for unknown protocol")
	}
}
