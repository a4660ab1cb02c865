// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"contacts_backend/internal/contacts/domain"
	"contacts_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// =============================================================================
// Contact Domain Events
// =============================================================================

// ContactAdded is published when a contact is created by an operator.
type ContactAdded struct {
	BaseEvent
	Contact domain.Contact `json:"contact"`
}

func (e ContactAdded) EventName() string { return "contacts.contact.added" }

// ContactUpdated is published after any single-contact mutation: contacted
// toggle, rename, temperature change, or consultant override.
type ContactUpdated struct {
	BaseEvent
	Contact domain.Contact `json:"contact"`
	Field   string         `json:"field"`
}

func (e ContactUpdated) EventName() string { return "contacts.contact.updated" }

// ContactDeleted is published when a contact is removed.
type ContactDeleted struct {
	BaseEvent
	ContactID string `json:"contactId"`
}

func (e ContactDeleted) EventName() string { return "contacts.contact.deleted" }

// ContactsBatchUpdated is published once per batch temperature change.
type ContactsBatchUpdated struct {
	BaseEvent
	ContactIDs  []string           `json:"contactIds"`
	Temperature domain.Temperature `json:"temperature"`
	Matched     int                `json:"matched"`
}

func (e ContactsBatchUpdated) EventName() string { return "contacts.contact.batch_updated" }

// SelectionChanged is published when the selection set changes.
type SelectionChanged struct {
	BaseEvent
	SelectedIDs []string `json:"selectedIds"`
}

func (e SelectionChanged) EventName() string { return "contacts.selection.changed" }

// ActiveConsultantChanged is published when the global default consultant
// changes.
type ActiveConsultantChanged struct {
	BaseEvent
	Consultant string `json:"consultant"`
}

func (e ActiveConsultantChanged) EventName() string { return "contacts.consultant.changed" }

// ContactsReset is published after a reset re-import completes.
type ContactsReset struct {
	BaseEvent
	Total int `json:"total"`
}

func (e ContactsReset) EventName() string { return "contacts.reset" }

// SnapshotReconciled is published when state written by another session is
// adopted locally.
type SnapshotReconciled struct {
	BaseEvent
	Key string `json:"key"`
}

func (e SnapshotReconciled) EventName() string { return "contacts.snapshot.reconciled" }
