package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"patient-management-api/internal/event"
	"patient-management-api/internal/model"
	"patient-management-api/internal/store"
)

// -- fakes --

type memStore struct {
	patients map[string]model.Patient
	saves    int
	saveErr  error
}

func newMemStore() *memStore {
	return &memStore{patients: make(map[string]model.Patient)}
}

func (m *memStore) FindAll(_ context.Context) ([]model.Patient, error) {
	var out []model.Patient
	for _, p := range m.patients {
		out = append(out, p)
	}
	return out, nil
}

func (m *memStore) FindByID(_ context.Context, id string) (*model.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (m *memStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return m.ExistsByEmailExcludingID(ctx, email, "")
}

func (m *memStore) ExistsByEmailExcludingID(_ context.Context, email, id string) (bool, error) {
	for _, p := range m.patients {
		if p.Email == email && p.ID != id {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) Save(_ context.Context, p *model.Patient) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	m.patients[p.ID] = *p
	return nil
}

func (m *memStore) DeleteByID(_ context.Context, id string) error {
	delete(m.patients, id)
	return nil
}

type billingCall struct{ id, name, email string }

type fakeBilling struct {
	calls []billingCall
	err   error
}

func (f *fakeBilling) CreateBillingAccount(_ context.Context, id, name, email string) error {
	f.calls = append(f.calls, billingCall{id, name, email})
	return f.err
}

type fakePublisher struct {
	events []event.PatientEvent
	err    error
}

func (f *fakePublisher) PublishPatientEvent(_ context.Context, e *event.PatientEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, *e)
	return nil
}

type fixture struct {
	svc     *PatientService
	store   *memStore
	billing *fakeBilling
	events  *fakePublisher
}

func newFixture() *fixture {
	f := &fixture{store: newMemStore(), billing: &fakeBilling{}, events: &fakePublisher{}}
	f.svc = New(f.store, f.billing, f.events, zerolog.Nop())
	return f
}

func alice() PatientRequest {
	return PatientRequest{Name: "Alice", Email: "alice@x.com", Address: "1 Rd", DateOfBirth: "1990-01-01"}
}

func (f *fixture) mustCreate(t *testing.T, req PatientRequest) *PatientResponse {
	t.Helper()
	resp, err := f.svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return resp
}

// -- tests --

func TestCreatePatient(t *testing.T) {
	f := newFixture()

	resp := f.mustCreate(t, alice())

	if _, err := uuid.Parse(resp.ID); err != nil {
		t.Fatalf("expected generated uuid, got %q", resp.ID)
	}
	want := PatientResponse{ID: resp.ID, Name: "Alice", Email: "alice@x.com", Address: "1 Rd", DateOfBirth: "1990-01-01"}
	if *resp != want {
		t.Errorf("got %+v, want %+v", resp, want)
	}

	if len(f.billing.calls) != 1 {
		t.Fatalf("expected 1 billing call, got %d", len(f.billing.calls))
	}
	if got := f.billing.calls[0]; got != (billingCall{resp.ID, "Alice", "alice@x.com"}) {
		t.Errorf("billing got %+v", got)
	}

	if len(f.events.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(f.events.events))
	}
	ev := f.events.events[0]
	if ev.PatientID != resp.ID || ev.Name != "Alice" || ev.Email != "alice@x.com" || ev.EventType != event.TypePatientCreated {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestCreatePatient_SetsRegisteredDate(t *testing.T) {
	f := newFixture()
	f.svc.now = func() time.Time { return time.Date(2024, 3, 15, 22, 10, 0, 0, time.UTC) }

	resp := f.mustCreate(t, alice())

	p := f.store.patients[resp.ID]
	if got := p.RegisteredDate.Format(model.DateLayout); got != "2024-03-15" {
		t.Errorf("registered date = %s", got)
	}
}

func TestCreatePatient_DuplicateEmail(t *testing.T) {
	f := newFixture()
	f.mustCreate(t, alice())
	saves, calls, events := f.store.saves, len(f.billing.calls), len(f.events.events)

	req := alice()
	req.Name = "Other Alice"
	_, err := f.svc.Create(context.Background(), req)

	var dup *DuplicateEmailError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateEmailError, got %v", err)
	}
	if dup.Email != "alice@x.com" {
		t.Errorf("error carries %q", dup.Email)
	}
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Error("expected errors.Is(err, ErrDuplicateEmail)")
	}
	if f.store.saves != saves || len(f.billing.calls) != calls || len(f.events.events) != events {
		t.Error("duplicate create must not write, bill or publish")
	}
}

func TestCreatePatient_InvalidDate(t *testing.T) {
	f := newFixture()

	req := alice()
	req.DateOfBirth = "01/01/1990"
	_, err := f.svc.Create(context.Background(), req)

	var bad *InvalidDateError
	if !errors.As(err, &bad) {
		t.Fatalf("expected InvalidDateError, got %v", err)
	}
	if f.store.saves != 0 || len(f.billing.calls) != 0 {
		t.Error("invalid date must not write or bill")
	}
}

func TestCreatePatient_BillingFailureKeepsPatient(t *testing.T) {
	f := newFixture()
	f.billing.err = fmt.Errorf("billing unavailable")

	_, err := f.svc.Create(context.Background(), alice())
	if err == nil {
		t.Fatal("expected billing error")
	}
	if len(f.store.patients) != 1 {
		t.Errorf("patient should stay persisted, store has %d", len(f.store.patients))
	}
	if len(f.events.events) != 0 {
		t.Error("no event expected after billing failure")
	}
}

func TestCreatePatient_PublishFailure(t *testing.T) {
	f := newFixture()
	f.events.err = fmt.Errorf("broker down")

	_, err := f.svc.Create(context.Background(), alice())
	if err == nil {
		t.Fatal("expected publish error")
	}
	if len(f.store.patients) != 1 || len(f.billing.calls) != 1 {
		t.Error("store write and billing call happen before publish")
	}
}

func TestCreatePatient_StoreConstraintRace(t *testing.T) {
	f := newFixture()
	f.store.saveErr = store.ErrDuplicateEmail

	_, err := f.svc.Create(context.Background(), alice())
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected duplicate email, got %v", err)
	}
	if len(f.billing.calls) != 0 {
		t.Error("billing must not be called when save fails")
	}
}

func TestUpdatePatient(t *testing.T) {
	f := newFixture()
	created := f.mustCreate(t, alice())

	resp, err := f.svc.Update(context.Background(), created.ID, PatientRequest{
		Name: "Alice B", Email: "alice.b@x.com", Address: "2 Rd", DateOfBirth: "1991-02-03",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	want := PatientResponse{ID: created.ID, Name: "Alice B", Email: "alice.b@x.com", Address: "2 Rd", DateOfBirth: "1991-02-03"}
	if *resp != want {
		t.Errorf("got %+v, want %+v", resp, want)
	}
	if len(f.billing.calls) != 1 || len(f.events.events) != 1 {
		t.Error("update must not bill or publish")
	}
}

func TestUpdatePatient_OwnEmail(t *testing.T) {
	f := newFixture()
	created := f.mustCreate(t, alice())

	req := alice()
	req.Address = "3 Rd"
	if _, err := f.svc.Update(context.Background(), created.ID, req); err != nil {
		t.Fatalf("update to own email: %v", err)
	}
}

func TestUpdatePatient_NotFound(t *testing.T) {
	f := newFixture()
	id := uuid.New().String()

	_, err := f.svc.Update(context.Background(), id, alice())

	var nf *PatientNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected PatientNotFoundError, got %v", err)
	}
	if nf.ID != id {
		t.Errorf("error carries %q", nf.ID)
	}
	if !errors.Is(err, ErrPatientNotFound) {
		t.Error("expected errors.Is(err, ErrPatientNotFound)")
	}
}

func TestUpdatePatient_EmailTakenByOther(t *testing.T) {
	f := newFixture()
	p := f.mustCreate(t, alice())
	f.mustCreate(t, PatientRequest{Name: "Bob", Email: "bob@x.com", Address: "9 Rd", DateOfBirth: "1985-05-05"})
	saves := f.store.saves

	req := alice()
	req.Email = "bob@x.com"
	_, err := f.svc.Update(context.Background(), p.ID, req)
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected duplicate email, got %v", err)
	}

	got := f.store.patients[p.ID]
	if got.Email != "alice@x.com" || f.store.saves != saves {
		t.Error("patient must be left untouched")
	}
}

func TestDeletePatient(t *testing.T) {
	f := newFixture()
	p := f.mustCreate(t, alice())

	if err := f.svc.Delete(context.Background(), p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.Get(context.Background(), p.ID); !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}
}

func TestDeletePatient_Missing(t *testing.T) {
	f := newFixture()

	if err := f.svc.Delete(context.Background(), uuid.New().String()); err != nil {
		t.Fatalf("delete of unknown id should succeed, got %v", err)
	}
}

func TestListPatients(t *testing.T) {
	f := newFixture()

	list, err := f.svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("expected empty non-nil list, got %#v", list)
	}

	f.mustCreate(t, alice())
	f.mustCreate(t, PatientRequest{Name: "Bob", Email: "bob@x.com", Address: "9 Rd", DateOfBirth: "1985-05-05"})

	list, _ = f.svc.List(context.Background())
	if len(list) != 2 {
		t.Fatalf("expected 2 patients, got %d", len(list))
	}
}
