package testfixtures

import (
	"log/slog"
	"testing"
	"time"

	"github.com/example/meeting-rooms/internal/application"
	"github.com/example/meeting-rooms/internal/notification"
	"github.com/example/meeting-rooms/internal/persistence"
	"github.com/example/meeting-rooms/internal/persistence/memory"
)

const (
	// PortalDomain is the portal used by fixture notification builders.
	PortalDomain = "https://portal.example.com"
	// JoinPath is the join path used by fixture notification builders.
	JoinPath = "/meetings/join/"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Logger      *slog.Logger
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

// WithLogger routes service logs to logger.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// Notifications returns a notification builder on the factory clock and ids.
func (f *ServiceFactory) Notifications() *notification.Builder {
	return notification.NewBuilder(PortalDomain, JoinPath, f.IDGenerator.NextFunc(), f.Clock.NowFunc())
}

// NewMeetingService builds a meeting service on store.
func (f *ServiceFactory) NewMeetingService(store persistence.Store) *application.MeetingService {
	return application.NewMeetingServiceWithLogger(
		store,
		f.Notifications(),
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		f.Logger,
	)
}

// NewParticipantService builds a participant service on store.
func (f *ServiceFactory) NewParticipantService(store persistence.Store) *application.ParticipantService {
	return application.NewParticipantServiceWithLogger(
		store,
		f.Notifications(),
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		f.Logger,
	)
}

// NewMemoryStore opens an empty in-memory store closed with the test.
func NewMemoryStore(tb testing.TB) *memory.Store {
	tb.Helper()
	store, err := memory.Open()
	if err != nil {
		tb.Fatalf("open memory store: %v", err)
	}
	tb.Cleanup(func() { _ = store.Close() })
	return store
}
