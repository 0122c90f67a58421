// Package profile completes the signed-in user's profile and reads the
// reference data the profile form needs.
package profile

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jrsteele09/wbcms-session/apimodel"
	"github.com/jrsteele09/wbcms-session/internal/config"
	"github.com/jrsteele09/wbcms-session/internal/errors"
	"github.com/jrsteele09/wbcms-session/session"
	"github.com/jrsteele09/wbcms-session/users"
	"github.com/rs/zerolog"
)

// Academic year messages, as the backend words them.
const (
	AcademicYearFormatMsg = "Academic year must be in format YYYY/YYYY"
	AcademicYearSpanMsg   = "End year must be start year + 1"
)

// Backend sends authenticated JSON requests. *gateway.Gateway implements it.
type Backend interface {
	GetJSON(ctx context.Context, path string, out any) error
	PostJSON(ctx context.Context, path string, in, out any) error
	PatchJSON(ctx context.Context, path string, in, out any) error
}

// Store is the part of session.Store the service needs.
type Store interface {
	Current() session.Session
	UpdateProfile(ctx context.Context, update users.ProfileUpdate) error
}

// Service runs the profile operations for the current session.
type Service struct {
	backend   Backend
	store     Store
	endpoints config.Endpoints
	log       zerolog.Logger
}

// Option defines a function type to modify the Service instance.
type Option func(*Service)

// WithLogger sets the service's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

// WithEndpoints overrides the default backend paths.
func WithEndpoints(e config.Endpoints) Option {
	return func(s *Service) {
		s.endpoints = e
	}
}

// New creates a Service.
func New(backend Backend, store Store, options ...Option) (*Service, error) {
	if backend == nil {
		return nil, fmt.Errorf("[profile.New] backend is required")
	}
	if store == nil {
		return nil, fmt.Errorf("[profile.New] store is required")
	}
	s := &Service{
		backend:   backend,
		store:     store,
		endpoints: config.Default().GetEndpoints(),
		log:       zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Update sends the completed profile fields to the backend and, once
// accepted, merges them into the session. The session is not re-issued.
func (s *Service) Update(ctx context.Context, update users.ProfileUpdate) (session.Session, error) {
	current := s.store.Current()
	if !current.IsLoggedIn() {
		return current, errors.ErrNotLoggedIn
	}
	if update == (users.ProfileUpdate{}) {
		return current, &errors.FieldError{Field: "profile", Message: "nothing to update"}
	}

	path := fmt.Sprintf(s.endpoints.Profile, url.PathEscape(current.UserID))
	if err := s.backend.PatchJSON(ctx, path, update, nil); err != nil {
		return current, err
	}
	if err := s.store.UpdateProfile(ctx, update); err != nil {
		return s.store.Current(), err
	}

	s.log.Info().Msg("Profile updated")
	return s.store.Current(), nil
}

// AcademicYears lists the academic years, newest first.
func (s *Service) AcademicYears(ctx context.Context) ([]apimodel.AcademicYear, error) {
	var years []apimodel.AcademicYear
	if err := s.backend.GetJSON(ctx, s.endpoints.AcademicYears, &years); err != nil {
		return nil, err
	}
	return years, nil
}

// AddAcademicYear creates an academic year titled "YYYY/YYYY" where the
// second year follows the first.
func (s *Service) AddAcademicYear(ctx context.Context, title string) (*apimodel.AcademicYear, error) {
	title = strings.TrimSpace(title)
	if err := ValidateAcademicYear(title); err != nil {
		return nil, err
	}

	year := &apimodel.AcademicYear{}
	if err := s.backend.PostJSON(ctx, s.endpoints.AcademicYears, apimodel.AcademicYearRequest{Title: title}, year); err != nil {
		return nil, err
	}
	return year, nil
}

// ValidateAcademicYear checks title is "YYYY/YYYY" spanning consecutive years.
func ValidateAcademicYear(title string) error {
	start, end, ok := strings.Cut(title, "/")
	if !ok || !isYear(start) || !isYear(end) {
		return &errors.FieldError{Field: "title", Message: AcademicYearFormatMsg}
	}
	startYear, _ := strconv.Atoi(start)
	endYear, _ := strconv.Atoi(end)
	if endYear != startYear+1 {
		return &errors.FieldError{Field: "title", Message: AcademicYearSpanMsg}
	}
	return nil
}

func isYear(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
