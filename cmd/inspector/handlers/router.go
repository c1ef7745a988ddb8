package handlers

import (
	"github.com/gorilla/mux"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
)

// Services are the components the API exposes.
type Services struct {
	Bridge         MessagePoster
	History        HistoryStore
	Batch          BatchController
	Keys           KeyManager
	KeyTester      KeyTester
	Checker        OverviewChecker
	SearchBatch    SearchBatchRunner
	Latest         LatestSource
	Publisher      Publisher
	AllowedOrigins []string
}

// NewRouter registers every route.
func NewRouter(s Services, log logger.Logger) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", HealthHandler).Methods("GET")

	// Bridge ingress is called from the host page and is origin guarded.
	bridgeHandler := NewBridgeHandler(s.Bridge, log)
	guard := NewOriginGuard(s.AllowedOrigins, log)
	bridgeRouter := router.PathPrefix("/bridge").Subrouter()
	bridgeRouter.Use(guard.Handler)
	bridgeRouter.HandleFunc("/messages", bridgeHandler.Post).Methods("POST", "OPTIONS")

	api := router.PathPrefix("/api/v1").Subrouter()

	historyHandler := NewHistoryHandler(s.History, log)
	api.HandleFunc("/history", historyHandler.List).Methods("GET")
	api.HandleFunc("/history", historyHandler.Clear).Methods("DELETE")

	batchHandler := NewBatchHandler(s.Batch, s.Publisher, log)
	api.HandleFunc("/batch", batchHandler.Status).Methods("GET")
	api.HandleFunc("/batch", batchHandler.Start).Methods("POST")
	api.HandleFunc("/batch", batchHandler.Clear).Methods("DELETE")
	api.HandleFunc("/batch/stop", batchHandler.Stop).Methods("POST")
	api.HandleFunc("/batch/export", batchHandler.Export).Methods("POST")

	settingsHandler := NewSettingsHandler(s.Keys, s.KeyTester, log)
	api.HandleFunc("/settings/apikey", settingsHandler.Get).Methods("GET")
	api.HandleFunc("/settings/apikey", settingsHandler.Set).Methods("PUT")
	api.HandleFunc("/settings/apikey", settingsHandler.Delete).Methods("DELETE")
	api.HandleFunc("/settings/apikey/test", settingsHandler.Test).Methods("POST")

	overviewHandler := NewOverviewHandler(s.Checker, s.SearchBatch, s.Latest, s.Publisher, log)
	api.HandleFunc("/overview/check", overviewHandler.Check).Methods("POST")
	api.HandleFunc("/search-batch", overviewHandler.SearchBatch).Methods("POST")
	api.HandleFunc("/latest", overviewHandler.Latest).Methods("GET")

	exportsHandler := NewExportsHandler(s.Publisher, log)
	api.HandleFunc("/exports", exportsHandler.List).Methods("GET")

	return router
}
