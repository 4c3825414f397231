//go:build wireinject
// +build wireinject

package di

import (
	"TradePulse/pkg/config"
	"TradePulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideCache,

		// Market-data sources
		ProvideFinnhubStream,
		ProvideTwelveData,
		ProvideSnapshotSource,
		ProvideBarSource,
		ProvideIndicatorSource,

		// Use cases
		ProvideReconciler,
		ProvideResolver,
		ProvideTechnicals,
		ProvideRVOL,
		ProvideQuoteService,

		// History recording
		ProvideClickHouseClient,
		ProvideHistoryStore,
		ProvideRecorder,
		ProvidePipeline,

		// HTTP surface
		ProvideHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
