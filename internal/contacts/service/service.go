// Package service orchestrates the contact store: it validates mutations,
// publishes domain events after each state change, composes outreach
// links, and adopts snapshots written by other sessions.
package service

import (
	"context"
	"fmt"
	"strings"

	"contacts_backend/internal/contacts/domain"
	"contacts_backend/internal/contacts/store"
	"contacts_backend/internal/contacts/transport"
	"contacts_backend/internal/events"
	"contacts_backend/internal/snapshot"
	"contacts_backend/internal/whatsapp"
	"contacts_backend/platform/apperr"
	"contacts_backend/platform/logger"
)

const msgContactNotFound = "contact not found"

// Service provides business logic for the contact collection.
type Service struct {
	store    *store.Store
	src      store.Importer
	composer *whatsapp.Composer
	roster   domain.Roster
	bus      events.Bus
	log      *logger.Logger
}

// New creates a new contacts service.
func New(st *store.Store, src store.Importer, composer *whatsapp.Composer, roster domain.Roster, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:    st,
		src:      src,
		composer: composer,
		roster:   roster,
		bus:      bus,
		log:      log,
	}
}

// Bootstrap activates the store before the server starts accepting
// requests. A failed bootstrap is terminal for the process.
func (s *Service) Bootstrap(ctx context.Context) error {
	if err := s.store.Load(ctx, s.src); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "contact import failed", err).WithOp("contacts.Bootstrap")
	}
	return nil
}

// List returns the filtered collection view plus derived counters.
func (s *Service) List(region, temperaturesCSV string, temperaturesSet bool) (transport.ContactListResponse, error) {
	temps, err := parseTemperatures(temperaturesCSV)
	if err != nil {
		return transport.ContactListResponse{}, err
	}

	filtered := s.store.Filter(region, temps, temperaturesSet)
	counts := s.store.TemperatureCounts()
	byName := make(map[string]int, len(counts))
	for t, n := range counts {
		byName[string(t)] = n
	}

	return transport.ContactListResponse{
		Items:             transport.ToContactResponses(filtered),
		Total:             len(s.store.Contacts()),
		ContactedCount:    s.store.ContactedCount(),
		TemperatureCounts: byName,
		Regions:           s.store.Regions(),
		SelectedIDs:       s.store.SelectedIDs(),
		ActiveConsultant:  s.store.ActiveConsultant(),
	}, nil
}

// Add creates a contact from operator input.
func (s *Service) Add(ctx context.Context, req transport.AddContactRequest) transport.ContactResponse {
	c := s.store.Add(ctx, strings.TrimSpace(req.Name), strings.TrimSpace(req.Phone))
	s.bus.Publish(ctx, events.ContactAdded{BaseEvent: events.NewBaseEvent(), Contact: c})
	return transport.ToContactResponse(c)
}

// ToggleContacted flips the contacted flag.
func (s *Service) ToggleContacted(ctx context.Context, id string) (transport.ContactResponse, error) {
	c, ok := s.store.ToggleContacted(ctx, id)
	if !ok {
		return transport.ContactResponse{}, apperr.NotFound(msgContactNotFound)
	}
	s.publishUpdated(ctx, c, "contacted")
	return transport.ToContactResponse(c), nil
}

// EditName replaces a contact's name. Blank names are rejected here so the
// store never sees one.
func (s *Service) EditName(ctx context.Context, id, name string) (transport.ContactResponse, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return transport.ContactResponse{}, apperr.Validation("name must not be blank")
	}

	c, ok := s.store.EditName(ctx, id, trimmed)
	if !ok {
		return transport.ContactResponse{}, apperr.NotFound(msgContactNotFound)
	}
	s.publishUpdated(ctx, c, "name")
	return transport.ToContactResponse(c), nil
}

// SetTemperature sets a contact's classification.
func (s *Service) SetTemperature(ctx context.Context, id, value string) (transport.ContactResponse, error) {
	t := domain.Temperature(value)
	if !t.Valid() {
		return transport.ContactResponse{}, apperr.Validation(fmt.Sprintf("invalid temperature %q", value))
	}

	c, ok := s.store.SetTemperature(ctx, id, t)
	if !ok {
		return transport.ContactResponse{}, apperr.NotFound(msgContactNotFound)
	}
	s.publishUpdated(ctx, c, "temperature")
	return transport.ToContactResponse(c), nil
}

// SetBatchTemperature applies one temperature to a set of contacts as a
// single transition.
func (s *Service) SetBatchTemperature(ctx context.Context, req transport.BatchTemperatureRequest) (transport.BatchResponse, error) {
	t := domain.Temperature(req.Temperature)
	if !t.Valid() {
		return transport.BatchResponse{}, apperr.Validation(fmt.Sprintf("invalid temperature %q", req.Temperature))
	}

	matched := s.store.SetBatchTemperature(ctx, req.IDs, t)
	s.bus.Publish(ctx, events.ContactsBatchUpdated{
		BaseEvent:   events.NewBaseEvent(),
		ContactIDs:  req.IDs,
		Temperature: t,
		Matched:     matched,
	})
	return transport.BatchResponse{Matched: matched}, nil
}

// SetConsultantFor overrides the consultant on one contact.
func (s *Service) SetConsultantFor(ctx context.Context, id, consultant string) (transport.ContactResponse, error) {
	if !s.roster.Contains(consultant) {
		return transport.ContactResponse{}, apperr.Validation(fmt.Sprintf("unknown consultant %q", consultant))
	}

	c, ok := s.store.SetConsultantFor(ctx, id, consultant)
	if !ok {
		return transport.ContactResponse{}, apperr.NotFound(msgContactNotFound)
	}
	s.publishUpdated(ctx, c, "consultant")
	return transport.ToContactResponse(c), nil
}

// Delete removes a contact and its selection entry.
func (s *Service) Delete(ctx context.Context, id string) error {
	if !s.store.Delete(ctx, id) {
		return apperr.NotFound(msgContactNotFound)
	}
	s.bus.Publish(ctx, events.ContactDeleted{BaseEvent: events.NewBaseEvent(), ContactID: id})
	return nil
}

// SetActiveConsultant changes the global default for future adds.
func (s *Service) SetActiveConsultant(ctx context.Context, consultant string) (transport.ConsultantsResponse, error) {
	if !s.roster.Contains(consultant) {
		return transport.ConsultantsResponse{}, apperr.Validation(fmt.Sprintf("unknown consultant %q", consultant))
	}

	s.store.SetActiveConsultant(ctx, consultant)
	s.bus.Publish(ctx, events.ActiveConsultantChanged{BaseEvent: events.NewBaseEvent(), Consultant: consultant})
	return s.Consultants(), nil
}

// Consultants returns the roster and the active consultant.
func (s *Service) Consultants() transport.ConsultantsResponse {
	return transport.ConsultantsResponse{
		Consultants: s.roster.Names(),
		Active:      s.store.ActiveConsultant(),
	}
}

// ToggleSelected flips one contact's selection state.
func (s *Service) ToggleSelected(ctx context.Context, id string) (transport.SelectionResponse, error) {
	if !s.store.ToggleSelected(ctx, id) {
		return transport.SelectionResponse{}, apperr.NotFound(msgContactNotFound)
	}
	return s.selectionChanged(ctx), nil
}

// SelectAll selects every contact, or clears when all are selected.
func (s *Service) SelectAll(ctx context.Context) transport.SelectionResponse {
	s.store.SelectAll(ctx)
	return s.selectionChanged(ctx)
}

// ClearSelection empties the selection set.
func (s *Service) ClearSelection(ctx context.Context) transport.SelectionResponse {
	s.store.ClearSelection(ctx)
	return s.selectionChanged(ctx)
}

// ExportPhones returns the newline-joined phones of the selected contacts.
func (s *Service) ExportPhones() (transport.ExportResponse, error) {
	ids := s.store.SelectedIDs()
	if len(ids) == 0 {
		return transport.ExportResponse{}, apperr.BadRequest("no contacts selected")
	}
	return transport.ExportResponse{Payload: s.store.SelectedPhones(), Count: len(ids)}, nil
}

// ExportContacts returns newline-joined "name - phone" lines for the
// selected contacts.
func (s *Service) ExportContacts() (transport.ExportResponse, error) {
	ids := s.store.SelectedIDs()
	if len(ids) == 0 {
		return transport.ExportResponse{}, apperr.BadRequest("no contacts selected")
	}
	return transport.ExportResponse{Payload: s.store.SelectedFormatted(), Count: len(ids)}, nil
}

// WhatsAppLink composes the outreach link for one contact.
func (s *Service) WhatsAppLink(id string) (transport.LinkResponse, error) {
	c, ok := s.store.Get(id)
	if !ok {
		return transport.LinkResponse{}, apperr.NotFound(msgContactNotFound)
	}
	return transport.LinkResponse{
		Link:     s.composer.Link(c),
		Greeting: s.composer.Greeting(c),
	}, nil
}

// Reset discards all local edits and re-imports the source.
func (s *Service) Reset(ctx context.Context) (transport.ResetResponse, error) {
	if err := s.store.Reset(ctx, s.src); err != nil {
		return transport.ResetResponse{}, apperr.Wrap(apperr.KindUnavailable, "contact import failed", err).WithOp("contacts.Reset")
	}

	total := len(s.store.Contacts())
	s.bus.Publish(ctx, events.ContactsReset{BaseEvent: events.NewBaseEvent(), Total: total})
	return transport.ResetResponse{Total: total}, nil
}

// Reconcile consumes the snapshot change feed until ctx is cancelled,
// adopting state written by other sessions. Unknown keys and malformed
// payloads are skipped.
func (s *Service) Reconcile(ctx context.Context, changes <-chan snapshot.ChangeEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-changes:
			if !ok {
				return nil
			}
			s.applyChange(ctx, evt)
		}
	}
}

func (s *Service) applyChange(ctx context.Context, evt snapshot.ChangeEvent) {
	switch evt.Key {
	case store.KeyContacts:
		if err := s.store.ReconcileContacts(evt.Value); err != nil {
			return
		}
	case store.KeyConsultant:
		s.store.ReconcileConsultant(evt.Value)
	default:
		return
	}

	s.log.Info("adopted remote snapshot", "key", evt.Key, "session", evt.SessionID)
	s.bus.Publish(ctx, events.SnapshotReconciled{BaseEvent: events.NewBaseEvent(), Key: evt.Key})
}

func (s *Service) publishUpdated(ctx context.Context, c domain.Contact, field string) {
	s.bus.Publish(ctx, events.ContactUpdated{BaseEvent: events.NewBaseEvent(), Contact: c, Field: field})
}

func (s *Service) selectionChanged(ctx context.Context) transport.SelectionResponse {
	ids := s.store.SelectedIDs()
	s.bus.Publish(ctx, events.SelectionChanged{BaseEvent: events.NewBaseEvent(), SelectedIDs: ids})
	return transport.SelectionResponse{SelectedIDs: ids, Count: len(ids)}
}

func parseTemperatures(csv string) ([]domain.Temperature, error) {
	if csv == "" {
		return nil, nil
	}

	var temps []domain.Temperature
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t := domain.Temperature(part)
		if !t.Valid() {
			return nil, apperr.Validation(fmt.Sprintf("invalid temperature %q", part))
		}
		temps = append(temps, t)
	}
	return temps, nil
}
