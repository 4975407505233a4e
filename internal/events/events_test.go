package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHubFanOut(t *testing.T) {
	hub := NewHub()

	var first, second []Type
	unsubFirst := hub.Subscribe(func(e Event) { first = append(first, e.Type) })
	hub.Subscribe(func(e Event) { second = append(second, e.Type) })

	hub.Publish(context.Background(), Event{Type: TypeSessionStarted, SessionID: "a"})
	assert.Equal(t, []Type{TypeSessionStarted}, first)
	assert.Equal(t, []Type{TypeSessionStarted}, second)

	unsubFirst()
	hub.Publish(context.Background(), Event{Type: TypeScrollRequested, SessionID: "a"})
	assert.Len(t, first, 1)
	assert.Len(t, second, 2)
}

func TestMultiSkipsNil(t *testing.T) {
	hub := NewHub()

	var seen int
	hub.Subscribe(func(Event) { seen++ })

	n := Multi(nil, hub, nil)
	n.Publish(context.Background(), Event{Type: TypeWaitingChanged})
	assert.Equal(t, 1, seen)
}

func TestEventSubject(t *testing.T) {
	assert.Equal(t, "chat.events.abc.message.appended", EventSubject("abc", TypeMessageAppended))
}
