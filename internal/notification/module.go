// Package notification bridges domain events to connected operator
// sessions. It subscribes to the in-process bus and inverts the
// dependency: the contacts module never needs to know about SSE.
package notification

import (
	"context"

	"contacts_backend/internal/events"
	apphttp "contacts_backend/internal/http"
	"contacts_backend/internal/notification/sse"
	"contacts_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// Module wires the event bus to the SSE broadcaster.
type Module struct {
	sse *sse.Service
	log *logger.Logger
}

// NewModule creates the notification module and registers its event
// handlers on the bus.
func NewModule(bus events.Bus, log *logger.Logger) *Module {
	m := &Module{sse: sse.New(), log: log}
	m.subscribe(bus)
	return m
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notification"
}

// RegisterRoutes mounts the SSE stream on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/events/stream", m.sse.Handler())
}

// Close disconnects all streaming clients.
func (m *Module) Close() { m.sse.Close() }

func (m *Module) subscribe(bus events.Bus) {
	on := func(name string, fn func(events.Event) sse.Event) {
		bus.Subscribe(name, events.HandlerFunc(func(_ context.Context, e events.Event) error {
			m.sse.Broadcast(fn(e))
			return nil
		}))
	}

	on(events.ContactAdded{}.EventName(), func(e events.Event) sse.Event {
		evt := e.(events.ContactAdded)
		return sse.Event{Type: sse.EventContactAdded, Data: evt.Contact}
	})
	on(events.ContactUpdated{}.EventName(), func(e events.Event) sse.Event {
		evt := e.(events.ContactUpdated)
		return sse.Event{Type: sse.EventContactUpdated, Message: evt.Field, Data: evt.Contact}
	})
	on(events.ContactDeleted{}.EventName(), func(e events.Event) sse.Event {
		evt := e.(events.ContactDeleted)
		return sse.Event{Type: sse.EventContactDeleted, Data: gin.H{"contactId": evt.ContactID}}
	})
	on(events.ContactsBatchUpdated{}.EventName(), func(e events.Event) sse.Event {
		evt := e.(events.ContactsBatchUpdated)
		return sse.Event{Type: sse.EventBatchUpdated, Data: evt}
	})
	on(events.SelectionChanged{}.EventName(), func(e events.Event) sse.Event {
		evt := e.(events.SelectionChanged)
		return sse.Event{Type: sse.EventSelectionChanged, Data: gin.H{"selectedIds": evt.SelectedIDs}}
	})
	on(events.ActiveConsultantChanged{}.EventName(), func(e events.Event) sse.Event {
		evt := e.(events.ActiveConsultantChanged)
		return sse.Event{Type: sse.EventConsultantChanged, Data: gin.H{"consultant": evt.Consultant}}
	})
	on(events.ContactsReset{}.EventName(), func(e events.Event) sse.Event {
		evt := e.(events.ContactsReset)
		return sse.Event{Type: sse.EventContactsReset, Data: gin.H{"total": evt.Total}}
	})
	on(events.SnapshotReconciled{}.EventName(), func(e events.Event) sse.Event {
		evt := e.(events.SnapshotReconciled)
		return sse.Event{Type: sse.EventReconciled, Data: gin.H{"key": evt.Key}}
	})
}
