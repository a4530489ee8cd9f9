package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/prompt-scheduler/internal/application"
	"github.com/example/prompt-scheduler/internal/persistence"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// QueueServiceDeps captures dependencies for constructing a queue service.
type QueueServiceDeps struct {
	Groups      persistence.GroupRepository
	Prompts     persistence.PromptCatalog
	Preferences persistence.PreferenceRepository
	Decks       persistence.DeckRepository
	Slots       persistence.SlotRepository
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewQueueService builds a queue service using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewQueueService(deps QueueServiceDeps) *application.QueueService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewQueueServiceWithLogger(
		deps.Groups,
		deps.Prompts,
		deps.Preferences,
		deps.Decks,
		deps.Slots,
		idGen,
		now,
		deps.Logger,
	)
}

// DailyServiceDeps captures dependencies for constructing a daily service.
type DailyServiceDeps struct {
	Groups      persistence.GroupRepository
	Prompts     persistence.PromptCatalog
	Preferences persistence.PreferenceRepository
	Slots       persistence.SlotRepository
	IDGenerator func() string
	Now         func() time.Time
	Workers     int
	Logger      *slog.Logger
}

// NewDailyService builds a daily service using the supplied dependencies.
func (f *ServiceFactory) NewDailyService(deps DailyServiceDeps) *application.DailyService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewDailyService(
		deps.Groups,
		deps.Prompts,
		deps.Preferences,
		deps.Slots,
		idGen,
		now,
		deps.Workers,
		deps.Logger,
	)
}
