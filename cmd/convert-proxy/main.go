package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/addintools/docgateway/internal/services"
)

var (
	convertInstance *services.ConvertFunction
	once            sync.Once
	initErr         error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Register the HTTP function with the framework.
	// "HandleConvert" is the entry point name configured in GCP.
	functions.HTTP("HandleConvert", handleConvert)
}

// main is required by the Go Functions Framework.
func main() {}

// handleConvert is the HTTP handler for the conversion proxy.
func handleConvert(w http.ResponseWriter, r *http.Request) {
	// Use sync.Once for robust, one-time initialization of clients.
	once.Do(func() {
		convertInstance, initErr = services.NewConvert(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: conversion proxy initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	convertInstance.Handle(w, r)
}
