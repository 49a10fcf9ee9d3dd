//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"github.com/google/wire"

	"smart-audio/internal/app/result"
	"smart-audio/internal/config"
)

var storeSet = wire.NewSet(OpenRecordStore, provideLayout)

var modelSet = wire.NewSet(
	providePipelineConfig,
	provideAudioTool,
	provideDiarizer,
	provideEmbedder,
	provideRecognizer,
	provideModelCache,
)

var pipelineSet = wire.NewSet(
	provideRegistry,
	provideLocker,
	provideDispatcher,
	result.NewAssembler,
)

// InitializeServiceContext builds the backend from settings. The returned
// cleanup stops the dispatcher before closing the connections it uses.
func InitializeServiceContext(ctx context.Context, settings *config.Settings) (*ServiceContext, func(), error) {
	wire.Build(
		provideLoggers,
		provideZapLogger,
		storeSet,
		modelSet,
		pipelineSet,
		providePublisher,
		provideServiceContainer,
		wire.Struct(new(ServiceContext), "*"),
	)
	return nil, nil, nil
}

// InitializeResultContext opens the record store and the result assembler
func InitializeResultContext(ctx context.Context, settings *config.Settings) (*ResultContext, func(), error) {
	wire.Build(storeSet, result.NewAssembler, wire.Struct(new(ResultContext), "*"))
	return nil, nil, nil
}
