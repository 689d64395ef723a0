//go:build wireinject
// +build wireinject

package di

import (
	"QuoteCache/internal/service/interval"
	"QuoteCache/pkg/config"
	"QuoteCache/pkg/server"

	"github.com/google/wire"
)

var engineSet = wire.NewSet(
	ProvideRegistry,
	ProvideLocator,
	ProvideEvaluator,
	ProvideIdentifier,
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		ProvideLogger,

		// Calendar engine
		engineSet,

		// Metrics
		ProvidePrometheus,
		ProvideMetrics,

		// Cache, events and use cases
		ProvideStore,
		ProvideInstanceID,
		ProvideNotifier,
		ProvidePolicy,
		ProvideQuoteCache,

		// HTTP
		ProvideCalendarHandler,
		ProvideQuotesHandler,
		ProvideHTTPServer,

		// Application server
		ProvideScheduler,
		ProvideWorkers,
		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeLocator builds only the calendar engine, for one-shot queries.
func InitializeLocator(cfg *config.Config) (*interval.Locator, error) {
	wire.Build(engineSet)
	return nil, nil
}
