package testfixtures

import (
	"context"
	"testing"
	"time"

	"github.com/example/meeting-rooms/internal/application"
	"github.com/example/meeting-rooms/internal/meeting"
)

func TestServiceFactoryNewMeetingService(t *testing.T) {
	factory := NewServiceFactory()
	store := NewMemoryStore(t)

	svc := factory.NewMeetingService(store)
	created, err := svc.Create(context.Background(), application.CreateMeetingParams{
		OwnerID: "owner@example.com",
		Input: application.MeetingInput{
			Category: meeting.CategoryNormal,
			Name:     "Standup",
			Start:    ReferenceTime(),
			End:      ReferenceTime().Add(15 * time.Minute),
		},
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if created.ID != "id-1" {
		t.Fatalf("expected generated ID id-1, got %q", created.ID)
	}
	if !created.CreatedAt.Equal(factory.Clock.Current()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Current(), created.CreatedAt)
	}
	if got := LoadMeeting(t, store, created.ID); got.Name != "Standup" {
		t.Fatalf("stored meeting has name %q", got.Name)
	}
}

func TestSeedAndLoad(t *testing.T) {
	store := NewMemoryStore(t)
	parent := NewMeeting(WithSeries(meeting.FrequencyWeekly, ReferenceTime().AddDate(0, 0, 21)))
	child := NewMeeting(WithParent(parent))
	Seed(t, store, []meeting.Meeting{parent, child}, Owner(parent))

	if children := LoadChildren(t, store, parent.ID); len(children) != 1 || children[0].ID != child.ID {
		t.Fatalf("unexpected children: %+v", children)
	}
	if participants := LoadParticipants(t, store, parent.ID); len(participants) != 1 {
		t.Fatalf("expected the owner participant, got %d", len(participants))
	}
	if MeetingExists(t, store, "missing") {
		t.Fatalf("missing meeting reported as existing")
	}
}
