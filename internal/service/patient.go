// Package service holds the patient business rules: email uniqueness and the
// create workflow that notifies billing and analytics.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"patient-management-api/internal/event"
	"patient-management-api/internal/model"
	"patient-management-api/internal/store"
)

// PatientStore persists patients. FindByID returns store.ErrNotFound for an
// unknown id; Save returns store.ErrDuplicateEmail when the database rejects
// the email; DeleteByID ignores unknown ids.
type PatientStore interface {
	FindAll(ctx context.Context) ([]model.Patient, error)
	FindByID(ctx context.Context, id string) (*model.Patient, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByEmailExcludingID(ctx context.Context, email, id string) (bool, error)
	Save(ctx context.Context, p *model.Patient) error
	DeleteByID(ctx context.Context, id string) error
}

type BillingNotifier interface {
	CreateBillingAccount(ctx context.Context, patientID, name, email string) error
}

type EventPublisher interface {
	PublishPatientEvent(ctx context.Context, e *event.PatientEvent) error
}

type PatientService struct {
	store   PatientStore
	billing BillingNotifier
	events  EventPublisher
	log     zerolog.Logger
	now     func() time.Time
}

func New(st PatientStore, billing BillingNotifier, events EventPublisher, log zerolog.Logger) *PatientService {
	return &PatientService{
		store:   st,
		billing: billing,
		events:  events,
		log:     log.With().Str("component", "patient-service").Logger(),
		now:     time.Now,
	}
}

func (s *PatientService) List(ctx context.Context) ([]PatientResponse, error) {
	patients, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}

	out := make([]PatientResponse, len(patients))
	for i := range patients {
		out[i] = toResponse(&patients[i])
	}
	return out, nil
}

func (s *PatientService) Get(ctx context.Context, id string) (*PatientResponse, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(p)
	return &resp, nil
}

// Create saves the patient before billing and the PATIENT_CREATED event.
// A later failure is returned but the saved patient stays.
func (s *PatientService) Create(ctx context.Context, req PatientRequest) (*PatientResponse, error) {
	exists, err := s.store.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, &DuplicateEmailError{Email: req.Email}
	}

	dob, err := parseDate(req.DateOfBirth)
	if err != nil {
		return nil, err
	}

	p := &model.Patient{
		ID:             uuid.New().String(),
		Name:           req.Name,
		Email:          req.Email,
		Address:        req.Address,
		DateOfBirth:    dob,
		RegisteredDate: s.today(),
	}
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}

	log := s.log.With().Str("patient_id", p.ID).Logger()
	log.Info().Msg("calling billing service")
	if err := s.billing.CreateBillingAccount(ctx, p.ID, p.Name, p.Email); err != nil {
		log.Error().Err(err).Msg("billing account not created, patient kept")
		return nil, fmt.Errorf("billing: %w", err)
	}

	ev := &event.PatientEvent{
		PatientID: p.ID,
		Name:      p.Name,
		Email:     p.Email,
		EventType: event.TypePatientCreated,
	}
	if err := s.events.PublishPatientEvent(ctx, ev); err != nil {
		log.Error().Err(err).Msg("patient event not published")
		return nil, fmt.Errorf("publish patient event: %w", err)
	}

	log.Info().Msg("patient created")
	resp := toResponse(p)
	return &resp, nil
}

// Update overwrites name, email, address and dateOfBirth. It neither calls
// billing nor publishes.
func (s *PatientService) Update(ctx context.Context, id string, req PatientRequest) (*PatientResponse, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	taken, err := s.store.ExistsByEmailExcludingID(ctx, req.Email, id)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, &DuplicateEmailError{Email: req.Email}
	}

	dob, err := parseDate(req.DateOfBirth)
	if err != nil {
		return nil, err
	}

	p.Name = req.Name
	p.Address = req.Address
	p.Email = req.Email
	p.DateOfBirth = dob

	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	resp := toResponse(p)
	return &resp, nil
}

// Delete removes the patient; an unknown id is not an error.
func (s *PatientService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("delete patient %s: %w", id, err)
	}
	return nil
}

func (s *PatientService) find(ctx context.Context, id string) (*model.Patient, error) {
	p, err := s.store.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &PatientNotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("find patient %s: %w", id, err)
	}
	return p, nil
}

func (s *PatientService) save(ctx context.Context, p *model.Patient) error {
	err := s.store.Save(ctx, p)
	if errors.Is(err, store.ErrDuplicateEmail) {
		// lost the race with a concurrent write of the same email
		return &DuplicateEmailError{Email: p.Email}
	}
	if err != nil {
		return fmt.Errorf("save patient %s: %w", p.ID, err)
	}
	return nil
}

func (s *PatientService) today() time.Time {
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
