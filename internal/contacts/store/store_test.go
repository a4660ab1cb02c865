package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"contacts_backend/internal/contacts/domain"
	"contacts_backend/internal/importer"
	"contacts_backend/platform/logger"
)

type fakeRepo struct {
	values   map[string]string
	saves    int
	failSave bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{values: make(map[string]string)}
}

func (r *fakeRepo) Save(_ context.Context, key, value string) error {
	if r.failSave {
		return errors.New("save failed")
	}
	r.saves++
	r.values[key] = value
	return nil
}

func (r *fakeRepo) Load(_ context.Context, key string) (string, bool, error) {
	v, ok := r.values[key]
	return v, ok, nil
}

func (r *fakeRepo) Clear(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(r.values, k)
	}
	return nil
}

type fakeImporter struct {
	records []importer.Record
	err     error
	calls   int
}

func (f *fakeImporter) Load(_ context.Context) ([]importer.Record, error) {
	f.calls++
	return f.records, f.err
}

func testRoster() domain.Roster {
	return domain.NewRoster([]string{"Ana", "Bruno", "Carla"})
}

func loadedStore(t *testing.T, records []importer.Record) (*Store, *fakeRepo) {
	t.Helper()
	repo := newFakeRepo()
	s := New(testRoster(), repo, logger.New("test"))
	if err := s.Load(context.Background(), &fakeImporter{records: records}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s, repo
}

func sampleRecords() []importer.Record {
	return []importer.Record{
		{Name: "Alice", Phone: "11999998888"},
		{Name: "Bob", Phone: "5547988776655"},
		{Name: "", Phone: "4799"},
	}
}

func TestLoadImportsWhenNoSnapshot(t *testing.T) {
	s, repo := loadedStore(t, sampleRecords())

	contacts := s.Contacts()
	if len(contacts) != 3 {
		t.Fatalf("expected 3 contacts, got %d", len(contacts))
	}
	if contacts[0].RegionCode != "11" || contacts[1].RegionCode != "47" {
		t.Errorf("unexpected region codes: %q, %q", contacts[0].RegionCode, contacts[1].RegionCode)
	}
	if contacts[2].Name != domain.NameUnknown {
		t.Errorf("blank name should become %q, got %q", domain.NameUnknown, contacts[2].Name)
	}
	for _, c := range contacts {
		if c.Contacted {
			t.Errorf("contact %s should start not contacted", c.ID)
		}
		if c.Temperature != domain.TemperatureCold {
			t.Errorf("contact %s should start cold, got %s", c.ID, c.Temperature)
		}
		if c.Consultant != "Ana" {
			t.Errorf("contact %s should get the default consultant, got %q", c.ID, c.Consultant)
		}
	}

	if _, ok := repo.values[KeyContacts]; !ok {
		t.Error("fresh import should persist immediately")
	}
}

func TestLoadRestoresSnapshot(t *testing.T) {
	first, _ := loadedStore(t, sampleRecords())
	first.SetActiveConsultant(context.Background(), "Bruno")
	id := first.Contacts()[0].ID
	first.ToggleSelected(context.Background(), id)

	// Share the persisted area with a second session.
	repo := newFakeRepo()
	repo.values[KeyContacts], _, _ = firstRepoValue(first)
	repo.values[KeyConsultant] = "Bruno"

	imp := &fakeImporter{err: errors.New("must not be called")}
	second := New(testRoster(), repo, logger.New("test"))
	if err := second.Load(context.Background(), imp); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if imp.calls != 0 {
		t.Error("restore path must skip the import")
	}
	if got := second.ActiveConsultant(); got != "Bruno" {
		t.Errorf("active consultant = %q, want Bruno", got)
	}
	if ids := second.SelectedIDs(); len(ids) != 1 || ids[0] != id {
		t.Errorf("selection not restored: %v", ids)
	}
	if len(second.Contacts()) != 3 {
		t.Errorf("expected 3 restored contacts, got %d", len(second.Contacts()))
	}
}

func firstRepoValue(s *Store) (string, bool, error) {
	raw, err := json.Marshal(State{Contacts: s.Contacts(), SelectedIDs: s.SelectedIDs()})
	return string(raw), true, err
}

func TestLoadCorruptSnapshotFallsBackToImport(t *testing.T) {
	repo := newFakeRepo()
	repo.values[KeyContacts] = "{not json"

	s := New(testRoster(), repo, logger.New("test"))
	if err := s.Load(context.Background(), &fakeImporter{records: sampleRecords()}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(s.Contacts()) != 3 {
		t.Fatalf("expected import fallback, got %d contacts", len(s.Contacts()))
	}
}

func TestLoadIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	imp := &fakeImporter{records: sampleRecords()}
	s := New(testRoster(), repo, logger.New("test"))

	for i := 0; i < 3; i++ {
		if err := s.Load(context.Background(), imp); err != nil {
			t.Fatalf("Load #%d: %v", i, err)
		}
	}
	if imp.calls != 1 {
		t.Errorf("import ran %d times, want 1", imp.calls)
	}
}

func TestLoadErrorIsTerminal(t *testing.T) {
	repo := newFakeRepo()
	imp := &fakeImporter{err: errors.New("fetch failed")}
	s := New(testRoster(), repo, logger.New("test"))

	if err := s.Load(context.Background(), imp); err == nil {
		t.Fatal("expected load error")
	}
	if s.Loaded() {
		t.Error("store must not report loaded after a failed bootstrap")
	}
	if err := s.Load(context.Background(), imp); err == nil {
		t.Fatal("repeated Load after failure should return the terminal error")
	}
	if imp.calls != 1 {
		t.Errorf("failed import retried %d times, want 1", imp.calls)
	}
	if len(repo.values) != 0 {
		t.Error("failed bootstrap must not persist")
	}
}

func TestToggleContacted(t *testing.T) {
	s, _ := loadedStore(t, sampleRecords())
	id := s.Contacts()[0].ID

	c, ok := s.ToggleContacted(context.Background(), id)
	if !ok || !c.Contacted {
		t.Fatalf("first toggle: ok=%v contacted=%v", ok, c.Contacted)
	}
	c, _ = s.ToggleContacted(context.Background(), id)
	if c.Contacted {
		t.Error("second toggle should restore the original value")
	}
	if _, ok := s.ToggleContacted(context.Background(), "missing"); ok {
		t.Error("unknown id must be a no-op")
	}
}

func TestEditName(t *testing.T) {
	s, _ := loadedStore(t, sampleRecords())
	id := s.Contacts()[1].ID

	c, ok := s.EditName(context.Background(), id, "Roberto")
	if !ok || c.Name != "Roberto" {
		t.Fatalf("edit: ok=%v name=%q", ok, c.Name)
	}
	if got := s.Contacts()[1]; got.Phone != "5547988776655" || got.RegionCode != "47" {
		t.Error("name edit must not touch phone or region code")
	}
}

func TestDeleteRemovesContactAndSelection(t *testing.T) {
	s, _ := loadedStore(t, sampleRecords())
	id := s.Contacts()[1].ID
	s.ToggleSelected(context.Background(), id)

	if !s.Delete(context.Background(), id) {
		t.Fatal("delete of existing id should report true")
	}
	if len(s.Contacts()) != 2 {
		t.Errorf("expected 2 survivors, got %d", len(s.Contacts()))
	}
	if ids := s.SelectedIDs(); len(ids) != 0 {
		t.Errorf("deleted id must leave the selection set, got %v", ids)
	}
	if s.Delete(context.Background(), id) {
		t.Error("deleting a missing id must be a no-op")
	}
}

func TestDeletePreservesOrder(t *testing.T) {
	s, _ := loadedStore(t, sampleRecords())
	before := s.Contacts()
	s.Delete(context.Background(), before[1].ID)

	after := s.Contacts()
	if after[0].ID != before[0].ID || after[1].ID != before[2].ID {
		t.Error("survivors must keep their relative order")
	}
}

func TestAddPrependsWithDefaults(t *testing.T) {
	s, _ := loadedStore(t, sampleRecords())
	s.SetActiveConsultant(context.Background(), "Carla")

	c := s.Add(context.Background(), "", "(11) 98888-7777")
	if c.Name != domain.NameUnknown {
		t.Errorf("blank name should become %q, got %q", domain.NameUnknown, c.Name)
	}
	if c.RegionCode != "11" {
		t.Errorf("region = %q, want 11", c.RegionCode)
	}
	if c.Consultant != "Carla" {
		t.Errorf("consultant = %q, want the active consultant", c.Consultant)
	}
	if c.Temperature != domain.TemperatureCold || c.Contacted {
		t.Error("new contacts start cold and not contacted")
	}
	if s.Contacts()[0].ID != c.ID {
		t.Error("new contact must be prepended")
	}
}

func TestSetTemperatureIdempotent(t *testing.T) {
	s, repo := loadedStore(t, sampleRecords())
	id := s.Contacts()[0].ID

	if _, ok := s.SetTemperature(context.Background(), id, domain.TemperatureHot); !ok {
		t.Fatal("set temperature failed")
	}
	saves := repo.saves
	if _, ok := s.SetTemperature(context.Background(), id, domain.TemperatureHot); !ok {
		t.Fatal("idempotent set should still report the contact")
	}
	if repo.saves != saves {
		t.Error("setting an unchanged temperature must not persist")
	}
}

func TestSetBatchTemperature(t *testing.T) {
	s, repo := loadedStore(t, sampleRecords())
	contacts := s.Contacts()
	ids := []string{contacts[0].ID, contacts[2].ID, "missing"}

	saves := repo.saves
	matched := s.SetBatchTemperature(context.Background(), ids, domain.TemperatureWarm)
	if matched != 2 {
		t.Errorf("matched = %d, want 2", matched)
	}
	if repo.saves != saves+1 {
		t.Errorf("batch must persist exactly once, got %d extra saves", repo.saves-saves)
	}

	after := s.Contacts()
	if after[0].Temperature != domain.TemperatureWarm || after[2].Temperature != domain.TemperatureWarm {
		t.Error("batch members not updated")
	}
	if after[1].Temperature != domain.TemperatureCold {
		t.Error("non-members must be untouched")
	}
}

func TestSelectAllTriState(t *testing.T) {
	s, _ := loadedStore(t, sampleRecords())
	ctx := context.Background()
	id := s.Contacts()[0].ID

	// Partial selection grows to all.
	s.ToggleSelected(ctx, id)
	if n := s.SelectAll(ctx); n != 3 {
		t.Errorf("partial -> all: size = %d, want 3", n)
	}
	// Full selection clears.
	if n := s.SelectAll(ctx); n != 0 {
		t.Errorf("all -> clear: size = %d, want 0", n)
	}
	// Empty selection grows to all.
	if n := s.SelectAll(ctx); n != 3 {
		t.Errorf("empty -> all: size = %d, want 3", n)
	}
}

func TestSelectAllSnapshotsIDsAtCallTime(t *testing.T) {
	s, _ := loadedStore(t, sampleRecords())
	ctx := context.Background()

	s.SelectAll(ctx)
	c := s.Add(ctx, "New", "11988887777")
	ids := s.SelectedIDs()
	for _, id := range ids {
		if id == c.ID {
			t.Error("contact added after selectAll must not be selected")
		}
	}
	if len(ids) != 3 {
		t.Errorf("selection size = %d, want 3", len(ids))
	}
}

func TestToggleSelectedIgnoresUnknownID(t *testing.T) {
	s, _ := loadedStore(t, sampleRecords())
	if s.ToggleSelected(context.Background(), "missing") {
		t.Error("unknown id must not enter the selection set")
	}
	if len(s.SelectedIDs()) != 0 {
		t.Error("selection must stay empty")
	}
}

func TestExportsFollowCollectionOrder(t *testing.T) {
	s, _ := loadedStore(t, sampleRecords())
	ctx := context.Background()
	contacts := s.Contacts()

	// Select in reverse order; exports still follow collection order.
	s.ToggleSelected(ctx, contacts[2].ID)
	s.ToggleSelected(ctx, contacts[0].ID)

	phones := s.SelectedPhones()
	want := contacts[0].Phone + "\n" + contacts[2].Phone
	if phones != want {
		t.Errorf("SelectedPhones = %q, want %q", phones, want)
	}

	formatted := s.SelectedFormatted()
	lines := strings.Split(formatted, "\n")
	if len(lines) != 2 || lines[0] != contacts[0].Name+" - "+contacts[0].Phone {
		t.Errorf("SelectedFormatted = %q", formatted)
	}
}

func TestRegionsSortedUnique(t *testing.T) {
	s, _ := loadedStore(t, []importer.Record{
		{Name: "a", Phone: "47999990000"},
		{Name: "b", Phone: "11999990000"},
		{Name: "c", Phone: "47988880000"},
		{Name: "d", Phone: "9"},
	})

	regions := s.Regions()
	want := []string{"11", "47", "XX"}
	if len(regions) != len(want) {
		t.Fatalf("regions = %v, want %v", regions, want)
	}
	for i := range want {
		if regions[i] != want[i] {
			t.Fatalf("regions = %v, want %v", regions, want)
		}
	}
}

func TestFilter(t *testing.T) {
	s, _ := loadedStore(t, sampleRecords())
	ctx := context.Background()
	contacts := s.Contacts()
	s.SetTemperature(ctx, contacts[0].ID, domain.TemperatureHot)

	tests := []struct {
		name    string
		region  string
		temps   []domain.Temperature
		tempSet bool
		want    int
	}{
		{"no filters", "", nil, false, 3},
		{"region only", "11", nil, false, 1},
		{"temperature subset", "", []domain.Temperature{domain.TemperatureHot}, true, 1},
		{"conjunction", "11", []domain.Temperature{domain.TemperatureHot}, true, 1},
		{"conjunction miss", "47", []domain.Temperature{domain.TemperatureHot}, true, 0},
		{"empty subset matches nothing", "", nil, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Filter(tt.region, tt.temps, tt.tempSet)
			if len(got) != tt.want {
				t.Errorf("got %d contacts, want %d", len(got), tt.want)
			}
		})
	}
}

func TestCounts(t *testing.T) {
	s, _ := loadedStore(t, sampleRecords())
	ctx := context.Background()
	contacts := s.Contacts()

	s.ToggleContacted(ctx, contacts[0].ID)
	s.SetTemperature(ctx, contacts[1].ID, domain.TemperatureWarm)

	if got := s.ContactedCount(); got != 1 {
		t.Errorf("ContactedCount = %d, want 1", got)
	}
	counts := s.TemperatureCounts()
	if counts[domain.TemperatureCold] != 2 || counts[domain.TemperatureWarm] != 1 || counts[domain.TemperatureHot] != 0 {
		t.Errorf("TemperatureCounts = %v", counts)
	}
}

func TestPersistenceFailureDoesNotRollBack(t *testing.T) {
	s, repo := loadedStore(t, sampleRecords())
	repo.failSave = true
	id := s.Contacts()[0].ID

	c, ok := s.ToggleContacted(context.Background(), id)
	if !ok || !c.Contacted {
		t.Fatal("mutation must succeed despite persistence failure")
	}
	if got, _ := s.Get(id); !got.Contacted {
		t.Error("in-memory state must stay authoritative")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s, repo := loadedStore(t, sampleRecords())
	ctx := context.Background()
	s.ToggleContacted(ctx, s.Contacts()[0].ID)
	s.ToggleSelected(ctx, s.Contacts()[1].ID)
	s.SetActiveConsultant(ctx, "Bruno")

	restored := New(testRoster(), repo, logger.New("test"))
	if err := restored.Load(ctx, &fakeImporter{err: errors.New("unused")}); err != nil {
		t.Fatalf("Load: %v", err)
	}

	a, _ := json.Marshal(State{Contacts: s.Contacts(), SelectedIDs: s.SelectedIDs()})
	b, _ := json.Marshal(State{Contacts: restored.Contacts(), SelectedIDs: restored.SelectedIDs()})
	if string(a) != string(b) {
		t.Errorf("round-trip mismatch:\n%s\n%s", a, b)
	}
	if restored.ActiveConsultant() != "Bruno" {
		t.Errorf("active consultant = %q, want Bruno", restored.ActiveConsultant())
	}
}

func TestReset(t *testing.T) {
	s, repo := loadedStore(t, sampleRecords())
	ctx := context.Background()
	s.ToggleContacted(ctx, s.Contacts()[0].ID)
	s.SelectAll(ctx)
	s.SetActiveConsultant(ctx, "Carla")

	if err := s.Reset(ctx, &fakeImporter{records: sampleRecords()[:1]}); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if len(s.Contacts()) != 1 {
		t.Errorf("expected 1 contact after reset, got %d", len(s.Contacts()))
	}
	if len(s.SelectedIDs()) != 0 {
		t.Error("reset must clear the selection")
	}
	if s.ActiveConsultant() != "Ana" {
		t.Errorf("reset must restore the default consultant, got %q", s.ActiveConsultant())
	}
	if _, ok := repo.values[KeyContacts]; !ok {
		t.Error("reset must persist the fresh import")
	}
}

func TestResetImportFailureKeepsState(t *testing.T) {
	s, _ := loadedStore(t, sampleRecords())
	before := len(s.Contacts())

	if err := s.Reset(context.Background(), &fakeImporter{err: errors.New("down")}); err == nil {
		t.Fatal("expected reset error")
	}
	if len(s.Contacts()) != before {
		t.Error("failed reset must leave the collection intact")
	}
}

func TestReconcileContacts(t *testing.T) {
	s, repo := loadedStore(t, sampleRecords())

	other := []domain.Contact{domain.NewContact("Remote", "21999990000", "Bruno")}
	raw, _ := json.Marshal(State{Contacts: other, SelectedIDs: []string{other[0].ID}})

	saves := repo.saves
	if err := s.ReconcileContacts(string(raw)); err != nil {
		t.Fatalf("ReconcileContacts: %v", err)
	}
	if len(s.Contacts()) != 1 || s.Contacts()[0].Name != "Remote" {
		t.Error("remote snapshot not adopted wholesale")
	}
	if ids := s.SelectedIDs(); len(ids) != 1 || ids[0] != other[0].ID {
		t.Errorf("remote selection not adopted: %v", ids)
	}
	if repo.saves != saves {
		t.Error("reconciliation must not re-persist")
	}
}

func TestReconcileContactsMalformedSkipped(t *testing.T) {
	s, _ := loadedStore(t, sampleRecords())

	if err := s.ReconcileContacts("{broken"); err == nil {
		t.Fatal("expected parse error")
	}
	if len(s.Contacts()) != 3 {
		t.Error("malformed payload must leave state untouched")
	}
}

func TestReconcileConsultant(t *testing.T) {
	s, _ := loadedStore(t, sampleRecords())
	s.ReconcileConsultant("Carla")
	if s.ActiveConsultant() != "Carla" {
		t.Errorf("active consultant = %q, want Carla", s.ActiveConsultant())
	}
}
