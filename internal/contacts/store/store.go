// Package store owns the authoritative in-memory contact collection, the
// selection set, and the active consultant. Every mutation replaces the
// collection copy-on-write, persists the new state to the snapshot
// repository, and is a no-op for unknown ids. State arriving from other
// sessions is adopted wholesale, last writer wins.
package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"contacts_backend/internal/contacts/domain"
	"contacts_backend/internal/importer"
	"contacts_backend/platform/logger"
)

// Well-known snapshot keys. The persisted value under KeyContacts is a
// JSON State; the value under KeyConsultant is the plain consultant name.
const (
	KeyContacts   = "contacts:snapshot"
	KeyConsultant = "contacts:active-consultant"
)

// SnapshotRepo is the durable key-value area the store persists into.
// Writes are advisory durability, not a transaction boundary.
type SnapshotRepo interface {
	Save(ctx context.Context, key, value string) error
	Load(ctx context.Context, key string) (value string, found bool, err error)
	Clear(ctx context.Context, keys ...string) error
}

// Importer supplies the bootstrap records when no snapshot exists.
type Importer interface {
	Load(ctx context.Context) ([]importer.Record, error)
}

// State is the serialized form of the contacts snapshot key: the full
// collection in order plus the selected ids in collection order.
type State struct {
	Contacts    []domain.Contact `json:"contacts"`
	SelectedIDs []string         `json:"selectedIds"`
}

// Store is the contact state store.
type Store struct {
	mu        sync.RWMutex
	contacts  []domain.Contact
	selected  map[string]struct{}
	active    string
	roster    domain.Roster
	loaded    bool
	loadErr   error
	snapshots SnapshotRepo
	log       *logger.Logger
}

// New creates an empty, not-yet-loaded store. The active consultant starts
// at the roster default.
func New(roster domain.Roster, snapshots SnapshotRepo, log *logger.Logger) *Store {
	return &Store{
		selected:  make(map[string]struct{}),
		active:    roster.Default(),
		roster:    roster,
		snapshots: snapshots,
		log:       log,
	}
}

// =============================================================================
// Bootstrap
// =============================================================================

// Load activates the store. A previously persisted snapshot is adopted when
// present and parseable; otherwise the import source is fetched, parsed,
// and the result persisted immediately so later activations skip the fetch.
// Exactly one of cached-restore, fresh-import, or error occurs per session:
// repeated calls after completion (or after a terminal load error) return
// without side effects.
func (s *Store) Load(ctx context.Context, src Importer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded || s.loadErr != nil {
		return s.loadErr
	}

	if s.restoreLocked(ctx) {
		s.loaded = true
		s.log.Info("store restored from snapshot", "contacts", len(s.contacts))
		return nil
	}

	contacts, err := s.importLocked(ctx, src, s.active)
	if err != nil {
		s.loadErr = err
		return err
	}

	s.contacts = contacts
	s.selected = make(map[string]struct{})
	s.loaded = true
	s.persistContactsLocked(ctx)
	s.persistConsultantLocked(ctx)
	s.log.Info("store loaded from import", "contacts", len(s.contacts))
	return nil
}

// Loaded reports whether bootstrap completed successfully.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// LoadError returns the terminal bootstrap error, if any.
func (s *Store) LoadError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// restoreLocked adopts the persisted snapshot. A missing key, read error,
// or corrupt payload all report false so the caller falls through to the
// import path.
func (s *Store) restoreLocked(ctx context.Context) bool {
	raw, found, err := s.snapshots.Load(ctx, KeyContacts)
	if err != nil {
		s.log.PersistenceError(KeyContacts, err)
		return false
	}
	if !found {
		return false
	}

	var st State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		s.log.ReconcileError(KeyContacts, err)
		return false
	}

	s.contacts = st.Contacts
	s.selected = toSet(st.SelectedIDs)

	if name, found, err := s.snapshots.Load(ctx, KeyConsultant); err == nil && found && name != "" {
		s.active = name
	}
	return true
}

// importLocked runs the delimited import, assigning every imported contact
// the given consultant.
func (s *Store) importLocked(ctx context.Context, src Importer, consultant string) ([]domain.Contact, error) {
	records, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}

	contacts := make([]domain.Contact, 0, len(records))
	for _, rec := range records {
		contacts = append(contacts, domain.NewContact(rec.Name, rec.Phone, consultant))
	}
	return contacts, nil
}

// =============================================================================
// Mutations
// =============================================================================

// ToggleContacted flips the contacted flag. No-op when id is absent.
func (s *Store) ToggleContacted(ctx context.Context, id string) (domain.Contact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, found := s.updateLocked(id, func(c domain.Contact) domain.Contact {
		c.Contacted = !c.Contacted
		return c
	})
	if found {
		s.persistContactsLocked(ctx)
	}
	return c, found
}

// EditName replaces the contact's name. Callers must reject blank input
// before calling; the store accepts the value as given.
func (s *Store) EditName(ctx context.Context, id, newName string) (domain.Contact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, found := s.updateLocked(id, func(c domain.Contact) domain.Contact {
		c.Name = newName
		return c
	})
	if found {
		s.persistContactsLocked(ctx)
	}
	return c, found
}

// Delete removes the contact and its selection entry in one transition.
func (s *Store) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	next := make([]domain.Contact, 0, len(s.contacts))
	for _, c := range s.contacts {
		if c.ID == id {
			found = true
			continue
		}
		next = append(next, c)
	}
	if !found {
		return false
	}

	s.contacts = next
	delete(s.selected, id)
	s.persistContactsLocked(ctx)
	return true
}

// Add creates a contact with a fresh id and the active consultant, derives
// its region code, and prepends it to the collection.
func (s *Store) Add(ctx context.Context, name, phone string) domain.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := domain.NewContact(name, phone, s.active)
	next := make([]domain.Contact, 0, len(s.contacts)+1)
	next = append(next, c)
	next = append(next, s.contacts...)
	s.contacts = next

	s.persistContactsLocked(ctx)
	return c
}

// SetTemperature sets the classification. No-op when id is absent;
// observably idempotent when the value is unchanged.
func (s *Store) SetTemperature(ctx context.Context, id string, t domain.Temperature) (domain.Contact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.contacts {
		if c.ID == id && c.Temperature == t {
			return c, true
		}
	}

	c, found := s.updateLocked(id, func(c domain.Contact) domain.Contact {
		c.Temperature = t
		return c
	})
	if found {
		s.persistContactsLocked(ctx)
	}
	return c, found
}

// SetBatchTemperature applies SetTemperature semantics to every id in one
// logical transition: one resulting state, one persistence write. Returns
// how many contacts matched an id in the set.
func (s *Store) SetBatchTemperature(ctx context.Context, ids []string, t domain.Temperature) int {
	idSet := toSet(ids)

	s.mu.Lock()
	defer s.mu.Unlock()

	matched := 0
	changed := false
	next := make([]domain.Contact, len(s.contacts))
	copy(next, s.contacts)
	for i, c := range next {
		if _, ok := idSet[c.ID]; !ok {
			continue
		}
		matched++
		if c.Temperature != t {
			next[i].Temperature = t
			changed = true
		}
	}

	if changed {
		s.contacts = next
		s.persistContactsLocked(ctx)
	}
	return matched
}

// SetConsultantFor overrides the consultant for one contact, independent of
// the global active consultant.
func (s *Store) SetConsultantFor(ctx context.Context, id, consultant string) (domain.Contact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, found := s.updateLocked(id, func(c domain.Contact) domain.Contact {
		c.Consultant = consultant
		return c
	})
	if found {
		s.persistContactsLocked(ctx)
	}
	return c, found
}

// SetActiveConsultant changes the global default used by future Add calls.
// Existing contacts are not touched.
func (s *Store) SetActiveConsultant(ctx context.Context, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = name
	s.persistConsultantLocked(ctx)
}

// Reset discards all local state: the import source is re-fetched, the
// persisted keys are cleared, and the fresh import replaces the collection,
// selection set, and active consultant. When the import fails the previous
// state is left intact and the error is returned.
func (s *Store) Reset(ctx context.Context, src Importer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contacts, err := s.importLocked(ctx, src, s.roster.Default())
	if err != nil {
		return err
	}

	if err := s.snapshots.Clear(ctx, KeyContacts, KeyConsultant); err != nil {
		s.log.PersistenceError(KeyContacts, err)
	}

	s.active = s.roster.Default()
	s.contacts = contacts
	s.selected = make(map[string]struct{})
	s.loaded = true
	s.loadErr = nil
	s.persistContactsLocked(ctx)
	s.persistConsultantLocked(ctx)
	return nil
}

// =============================================================================
// Selection
// =============================================================================

// ToggleSelected flips the selection state of one contact. Ids not present
// in the collection are ignored.
func (s *Store) ToggleSelected(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.containsLocked(id) {
		return false
	}

	if _, ok := s.selected[id]; ok {
		delete(s.selected, id)
	} else {
		s.selected[id] = struct{}{}
	}
	s.persistContactsLocked(ctx)
	return true
}

// SelectAll selects every current contact id, snapshotted at call time.
// When the full collection is already selected it clears instead; a partial
// selection always grows to all, never toggles per item. Returns the new
// selection size.
func (s *Store) SelectAll(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.selected) == len(s.contacts) {
		s.selected = make(map[string]struct{})
	} else {
		s.selected = make(map[string]struct{}, len(s.contacts))
		for _, c := range s.contacts {
			s.selected[c.ID] = struct{}{}
		}
	}
	s.persistContactsLocked(ctx)
	return len(s.selected)
}

// ClearSelection empties the selection set.
func (s *Store) ClearSelection(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selected = make(map[string]struct{})
	s.persistContactsLocked(ctx)
}

// =============================================================================
// Reconciliation
// =============================================================================

// ReconcileContacts replaces the collection and selection set wholesale
// with a snapshot persisted by another session. Malformed payloads are
// logged and skipped, never partially applied. The adopted state is not
// re-persisted: the writing session already owns the snapshot.
func (s *Store) ReconcileContacts(raw string) error {
	var st State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		s.log.ReconcileError(KeyContacts, err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return nil
	}
	s.contacts = st.Contacts
	s.selected = toSet(st.SelectedIDs)
	return nil
}

// ReconcileConsultant adopts another session's active consultant.
func (s *Store) ReconcileConsultant(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return
	}
	s.active = name
}

// =============================================================================
// Derived views
// =============================================================================

// Contacts returns a copy of the collection in order.
func (s *Store) Contacts() []domain.Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Contact, len(s.contacts))
	copy(out, s.contacts)
	return out
}

// Get returns the contact with the given id.
func (s *Store) Get(id string) (domain.Contact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.contacts {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Contact{}, false
}

// ActiveConsultant returns the global default consultant.
func (s *Store) ActiveConsultant() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// SelectedIDs returns the selected ids in collection order.
func (s *Store) SelectedIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedIDsLocked()
}

// Regions returns the unique region codes present, sorted ascending.
func (s *Store) Regions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var regions []string
	for _, c := range s.contacts {
		if _, ok := seen[c.RegionCode]; ok {
			continue
		}
		seen[c.RegionCode] = struct{}{}
		regions = append(regions, c.RegionCode)
	}
	sort.Strings(regions)
	return regions
}

// ContactedCount returns how many contacts are marked contacted.
func (s *Store) ContactedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, c := range s.contacts {
		if c.Contacted {
			count++
		}
	}
	return count
}

// TemperatureCounts returns the number of contacts per temperature value.
func (s *Store) TemperatureCounts() map[domain.Temperature]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.Temperature]int, len(domain.Temperatures))
	for _, t := range domain.Temperatures {
		counts[t] = 0
	}
	for _, c := range s.contacts {
		counts[c.Temperature]++
	}
	return counts
}

// Filter returns the contacts matching the conjunction of a region equality
// filter (empty region means all) and a temperature membership filter.
// temperaturesSet distinguishes "no filter" (all values pass) from a
// present-but-empty subset, which matches nothing.
func (s *Store) Filter(region string, temperatures []domain.Temperature, temperaturesSet bool) []domain.Contact {
	tempSet := make(map[domain.Temperature]struct{}, len(temperatures))
	for _, t := range temperatures {
		tempSet[t] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Contact
	for _, c := range s.contacts {
		if region != "" && c.RegionCode != region {
			continue
		}
		if temperaturesSet {
			if _, ok := tempSet[c.Temperature]; !ok {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

// SelectedPhones joins the phones of selected contacts with newlines, in
// collection order.
func (s *Store) SelectedPhones() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var lines []string
	for _, c := range s.contacts {
		if _, ok := s.selected[c.ID]; ok {
			lines = append(lines, c.Phone)
		}
	}
	return joinLines(lines)
}

// SelectedFormatted joins "name - phone" lines for selected contacts, in
// collection order.
func (s *Store) SelectedFormatted() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var lines []string
	for _, c := range s.contacts {
		if _, ok := s.selected[c.ID]; ok {
			lines = append(lines, c.Name+" - "+c.Phone)
		}
	}
	return joinLines(lines)
}

// =============================================================================
// Internals
// =============================================================================

// updateLocked replaces the contact matching id via fn, copy-on-write.
// The collection is untouched when the id is absent.
func (s *Store) updateLocked(id string, fn func(domain.Contact) domain.Contact) (domain.Contact, bool) {
	for i, c := range s.contacts {
		if c.ID != id {
			continue
		}
		next := make([]domain.Contact, len(s.contacts))
		copy(next, s.contacts)
		next[i] = fn(c)
		s.contacts = next
		return next[i], true
	}
	return domain.Contact{}, false
}

func (s *Store) containsLocked(id string) bool {
	for _, c := range s.contacts {
		if c.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) selectedIDsLocked() []string {
	ids := make([]string, 0, len(s.selected))
	for _, c := range s.contacts {
		if _, ok := s.selected[c.ID]; ok {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// persistContactsLocked writes the contacts snapshot. Writes are skipped
// until bootstrap completes so a not-yet-read snapshot is never clobbered
// with empty state; failures are logged and the in-memory state stays
// authoritative.
func (s *Store) persistContactsLocked(ctx context.Context) {
	if !s.loaded {
		return
	}

	raw, err := json.Marshal(State{Contacts: s.contacts, SelectedIDs: s.selectedIDsLocked()})
	if err != nil {
		s.log.PersistenceError(KeyContacts, err)
		return
	}
	if err := s.snapshots.Save(ctx, KeyContacts, string(raw)); err != nil {
		s.log.PersistenceError(KeyContacts, err)
	}
}

func (s *Store) persistConsultantLocked(ctx context.Context) {
	if !s.loaded {
		return
	}

	if err := s.snapshots.Save(ctx, KeyConsultant, s.active); err != nil {
		s.log.PersistenceError(KeyConsultant, err)
	}
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func joinLines(lines []string) string {
	out := ""
	for i, line := range lines {
		if i > 0 {
			out += "\n"
		}
		out += line
	}
	return out
}
