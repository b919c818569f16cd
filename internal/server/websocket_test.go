package server

import (
	"testing"

	testify "github.com/stretchr/testify/assert"

	"github.com/turnstilehq/turnstile/pkg/api"
)

func TestBuildFilterUnsetMatchesEverything(t *testing.T) {
	as := testify.New(t)

	filter := buildFilter(&api.SubscribeRequest{Type: "subscribe"})
	as.True(filter(&api.Event{Type: api.EventStepStarted}))
	as.True(filter(&api.Event{
		Type: api.EventNotificationSent, FormID: "f1", EntryID: "e1",
	}))
}

func TestBuildFilterScoping(t *testing.T) {
	as := testify.New(t)

	filter := buildFilter(&api.SubscribeRequest{
		Type:    "subscribe",
		FormID:  "f1",
		EntryID: "e1",
	})
	as.True(filter(&api.Event{FormID: "f1", EntryID: "e1"}))
	as.False(filter(&api.Event{FormID: "f2", EntryID: "e1"}))
	as.False(filter(&api.Event{FormID: "f1", EntryID: "e2"}))
	as.False(filter(&api.Event{}))
}

func TestBuildFilterEventTypes(t *testing.T) {
	as := testify.New(t)

	filter := buildFilter(&api.SubscribeRequest{
		Type: "subscribe",
		EventTypes: []api.EventType{
			api.EventStepCompleted, api.EventStepExpired,
		},
	})
	as.True(filter(&api.Event{Type: api.EventStepCompleted}))
	as.True(filter(&api.Event{Type: api.EventStepExpired}))
	as.False(filter(&api.Event{Type: api.EventStepStarted}))
}
