// Package kyc orchestrates the identity-verification wizard. The server session is the
// only authority on progress: every action performs one mutating call, refetches the
// session and re-resolves the displayed step from it.
package kyc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-trade-client/internal/application/capture"
	"github.com/go-trade-client/internal/domain"
	"github.com/go-trade-client/internal/pkg/id"
	"github.com/go-trade-client/internal/pkg/validate"
	"go.uber.org/zap"
)

// Validation messages shown to the user.
const (
	MsgUploadBoth       = "Please upload both front & back"
	MsgSelfieRequired   = "Please capture or upload a selfie"
	MsgConfirm          = "Please confirm that your information is accurate."
	MsgSubmitIncomplete = "Please upload ID front, ID back and a selfie."
	MsgFileType         = "Only JPG, JPEG or PNG allowed"
)

// Upstream is the part of the trading API client the wizard needs.
type Upstream interface {
	GetSession(ctx context.Context) (*domain.KYCSession, error)
	SaveSession(ctx context.Context, body domain.SaveSessionRequest) (*domain.KYCSession, error)
	SaveProfile(ctx context.Context, body domain.ProfileInput) (*domain.KYCSession, error)
	SaveDocType(ctx context.Context, body domain.DocTypeRequest) (*domain.KYCSession, error)
	Upload(ctx context.Context, kind domain.UploadKind, filename, mediaType string, r io.Reader) (*domain.KYCSession, error)
	Submit(ctx context.Context) (*domain.KYCSession, error)
	Status(ctx context.Context) (*domain.KYCSession, error)
}

// VisitStore persists wizard visits.
type VisitStore interface {
	Put(ctx context.Context, v *domain.Visit) error
	Get(ctx context.Context, visitID string) (*domain.Visit, error)
	Update(ctx context.Context, visitID string, u domain.VisitUpdate) error
}

// View is everything the page needs to render the current visit.
type View struct {
	VisitID         string              `json:"visit_id"`
	Step            int                 `json:"step"`
	Status          domain.KYCStatus    `json:"status"`
	Session         *domain.KYCSession  `json:"session"`
	Previews        domain.Previews     `json:"previews"`
	Missing         []domain.UploadKind `json:"missing"`
	SelectedDocType domain.DocType      `json:"selected_doc_type"`
	Country         string              `json:"country"`
	CanContinue     bool                `json:"can_continue"`
	CanSubmit       bool                `json:"can_submit"`
	CaptureMode     capture.Mode        `json:"capture_mode"`
}

// File is an uploaded image as received from the page.
type File struct {
	Name      string
	MediaType string
	Body      io.Reader
}

type Service interface {
	Start(ctx context.Context, userID string) (*View, error)
	View(ctx context.Context, userID, visitID string) (*View, error)
	AcknowledgeIntro(ctx context.Context, userID, visitID string) (*View, error)
	SaveProfile(ctx context.Context, userID, visitID string, in domain.ProfileInput) (*View, error)
	Continue(ctx context.Context, userID, visitID string) (*View, error)
	SelectDocType(ctx context.Context, userID, visitID string, t domain.DocType) (*View, error)
	SubmitDocType(ctx context.Context, userID, visitID string) (*View, error)
	Upload(ctx context.Context, userID, visitID string, kind domain.UploadKind, f File) (*View, error)
	Back(ctx context.Context, userID, visitID string) (*View, error)
	Submit(ctx context.Context, userID, visitID string, confirmed bool) (*View, error)
	Status(ctx context.Context) (*domain.KYCSession, error)
}

type ServiceDeps struct {
	API      Upstream
	Visits   VisitStore
	Capture  capture.Strategy
	VisitTTL time.Duration
	Log      *zap.Logger
}

type service struct {
	api     Upstream
	visits  VisitStore
	capture capture.Strategy
	ttl     time.Duration
	locks   *visitLocks
	log     *zap.Logger
	now     func() time.Time
}

func NewService(deps ServiceDeps) Service {
	strategy := deps.Capture
	if strategy == nil {
		strategy = capture.ManualOnly{}
	}
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &service{
		api:     deps.API,
		visits:  deps.Visits,
		capture: strategy,
		ttl:     deps.VisitTTL,
		locks:   newVisitLocks(),
		log:     log,
		now:     time.Now,
	}
}

// Start opens a new visit. The intro is displayed regardless of server progress.
func (s *service) Start(ctx context.Context, userID string) (*View, error) {
	sess, err := s.api.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	v := &domain.Visit{
		VisitID:         id.New(),
		UserID:          userID,
		SelectedDocType: sess.SavedDocType(),
		CreatedAt:       now,
	}
	if s.ttl > 0 {
		v.ExpiresAt = now.Add(s.ttl).Unix()
	}
	if err := s.visits.Put(ctx, v); err != nil {
		return nil, fmt.Errorf("store visit: %w", err)
	}
	s.log.Info("kyc visit started", zap.String("visit_id", v.VisitID), zap.String("user_id", userID))
	return s.view(v, sess), nil
}

func (s *service) View(ctx context.Context, userID, visitID string) (*View, error) {
	v, err := s.visit(ctx, userID, visitID)
	if err != nil {
		return nil, err
	}
	sess, err := s.api.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	return s.view(v, sess), nil
}

// AcknowledgeIntro leaves the intro. The acknowledgement sticks even when recording
// step 2 fails; the save error is still returned.
func (s *service) AcknowledgeIntro(ctx context.Context, userID, visitID string) (*View, error) {
	return s.act(ctx, userID, visitID, onSteps(domain.StepIntro), func(ctx context.Context, v *domain.Visit, sess *domain.KYCSession, _ int) error {
		ack := true
		if err := s.visits.Update(ctx, v.VisitID, domain.VisitUpdate{IntroAcknowledged: &ack}); err != nil {
			return fmt.Errorf("store visit: %w", err)
		}
		v.IntroAcknowledged = true
		if sess.Step < domain.StepPersonal {
			_, err := s.api.SaveSession(ctx, domain.SaveSessionRequest{Step: domain.StepPersonal})
			return err
		}
		return nil
	})
}

// SaveProfile stores the personal details. The wizard stays on the step until Continue.
func (s *service) SaveProfile(ctx context.Context, userID, visitID string, in domain.ProfileInput) (*View, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.City = strings.TrimSpace(in.City)
	in.Address = strings.TrimSpace(in.Address)
	in.Country = strings.TrimSpace(in.Country)
	in.DOB = validate.FormatDOB(in.DOB)
	if in.Country == "" {
		in.Country = domain.DefaultCountry
	}
	if fields := validate.Fields(in); len(fields) > 0 {
		return nil, &domain.ValidationError{Message: "Please fix the highlighted fields", Fields: fields}
	}
	return s.act(ctx, userID, visitID, onSteps(domain.StepPersonal), func(ctx context.Context, _ *domain.Visit, _ *domain.KYCSession, _ int) error {
		_, err := s.api.SaveProfile(ctx, in)
		return err
	})
}

// Continue advances 2→3, 3→4, 5→6 and 6→7, enforcing the upload gates.
func (s *service) Continue(ctx context.Context, userID, visitID string) (*View, error) {
	steps := onSteps(domain.StepPersonal, domain.StepTips, domain.StepIDUpload, domain.StepSelfie)
	return s.act(ctx, userID, visitID, steps, func(ctx context.Context, _ *domain.Visit, sess *domain.KYCSession, shown int) error {
		p := sess.Previews()
		switch shown {
		case domain.StepIDUpload:
			if !p.Has(domain.UploadIDFront, domain.UploadIDBack) {
				return domain.Invalid(MsgUploadBoth)
			}
		case domain.StepSelfie:
			if !p.Has(domain.UploadSelfie) {
				return domain.Invalid(MsgSelfieRequired)
			}
		}
		_, err := s.api.SaveSession(ctx, domain.SaveSessionRequest{Step: shown + 1})
		return err
	})
}

// SelectDocType changes the local selection only; nothing is sent upstream.
func (s *service) SelectDocType(ctx context.Context, userID, visitID string, t domain.DocType) (*View, error) {
	if !t.Valid() {
		return nil, domain.Invalid("Unknown document type %q", t)
	}
	return s.act(ctx, userID, visitID, onSteps(domain.StepDocument), func(ctx context.Context, v *domain.Visit, _ *domain.KYCSession, _ int) error {
		if err := s.visits.Update(ctx, v.VisitID, domain.VisitUpdate{SelectedDocType: &t}); err != nil {
			return fmt.Errorf("store visit: %w", err)
		}
		v.SelectedDocType = t
		return nil
	})
}

// SubmitDocType saves the selected type with the profile country and moves to step 5.
// On failure the selection is kept.
func (s *service) SubmitDocType(ctx context.Context, userID, visitID string) (*View, error) {
	return s.act(ctx, userID, visitID, onSteps(domain.StepDocument), func(ctx context.Context, v *domain.Visit, sess *domain.KYCSession, _ int) error {
		t := v.SelectedDocType
		if !t.Valid() {
			t = domain.DefaultDocType
		}
		_, err := s.api.SaveDocType(ctx, domain.DocTypeRequest{Type: t, Step: domain.StepIDUpload, Country: sess.Country()})
		return err
	})
}

// Upload sends one image. The media type is checked before anything else so a
// rejected file never causes a request.
func (s *service) Upload(ctx context.Context, userID, visitID string, kind domain.UploadKind, f File) (*View, error) {
	if !domain.AcceptsMediaType(f.MediaType) {
		return nil, domain.Invalid(MsgFileType)
	}
	allowed := func(step int) bool { return kind.AllowedOn(step) }
	return s.act(ctx, userID, visitID, allowed, func(ctx context.Context, _ *domain.Visit, _ *domain.KYCSession, _ int) error {
		name, mediaType, body := f.Name, f.MediaType, f.Body
		if kind.Rule().SquareJPEG {
			img, err := capture.SquareJPEG(f.Body)
			if err != nil {
				return domain.Invalid("Could not read the image")
			}
			name, mediaType, body = string(kind)+".jpg", "image/jpeg", bytes.NewReader(img)
		}
		_, err := s.api.Upload(ctx, kind, name, mediaType, body)
		return err
	})
}

// Back returns from review to the selfie step.
func (s *service) Back(ctx context.Context, userID, visitID string) (*View, error) {
	return s.act(ctx, userID, visitID, onSteps(domain.StepReview), func(ctx context.Context, _ *domain.Visit, _ *domain.KYCSession, _ int) error {
		_, err := s.api.SaveSession(ctx, domain.SaveSessionRequest{Step: domain.StepSelfie})
		return err
	})
}

// Submit hands the session over for review once confirmed and complete.
func (s *service) Submit(ctx context.Context, userID, visitID string, confirmed bool) (*View, error) {
	if !confirmed {
		return nil, domain.Invalid(MsgConfirm)
	}
	return s.act(ctx, userID, visitID, onSteps(domain.StepReview), func(ctx context.Context, _ *domain.Visit, sess *domain.KYCSession, _ int) error {
		if len(sess.Previews().Missing()) > 0 {
			return domain.Invalid(MsgSubmitIncomplete)
		}
		_, err := s.api.Submit(ctx)
		return err
	})
}

func (s *service) Status(ctx context.Context) (*domain.KYCSession, error) {
	return s.api.Status(ctx)
}

type stepFilter func(step int) bool

func onSteps(steps ...int) stepFilter {
	return func(step int) bool {
		for _, s := range steps {
			if s == step {
				return true
			}
		}
		return false
	}
}

type action func(ctx context.Context, v *domain.Visit, sess *domain.KYCSession, shown int) error

// act runs fn for a visit under its lock, only when the displayed step passes allowed,
// then refetches the session and resolves the new view. Nothing is refetched when fn
// fails.
func (s *service) act(ctx context.Context, userID, visitID string, allowed stepFilter, fn action) (*View, error) {
	release, ok := s.locks.tryLock(visitID)
	if !ok {
		return nil, domain.ErrInFlight
	}
	defer release()

	v, err := s.visit(ctx, userID, visitID)
	if err != nil {
		return nil, err
	}
	sess, err := s.api.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	shown := Resolve(v.IntroAcknowledged, sess.Status, sess.Step)
	if !allowed(shown) {
		return nil, fmt.Errorf("step %d: %w", shown, domain.ErrStepMismatch)
	}
	if err := fn(ctx, v, sess, shown); err != nil {
		s.log.Info("kyc action failed", zap.String("visit_id", visitID), zap.Int("step", shown), zap.Error(err))
		return nil, err
	}

	sess, err = s.api.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	return s.view(v, sess), nil
}

func (s *service) visit(ctx context.Context, userID, visitID string) (*domain.Visit, error) {
	v, err := s.visits.Get(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if v.UserID != userID {
		return nil, fmt.Errorf("visit not found: %w", domain.ErrNotFound)
	}
	return v, nil
}

func (s *service) view(v *domain.Visit, sess *domain.KYCSession) *View {
	step := Resolve(v.IntroAcknowledged, sess.Status, sess.Step)
	p := sess.Previews()
	selected := v.SelectedDocType
	if !selected.Valid() {
		selected = domain.DefaultDocType
	}
	status := sess.Status
	if step == domain.StepStatus && status == "" {
		status = domain.KYCStatusUnderReview
	}

	view := &View{
		VisitID:         v.VisitID,
		Step:            step,
		Status:          status,
		Session:         sess,
		Previews:        p,
		Missing:         p.Missing(),
		SelectedDocType: selected,
		Country:         sess.Country(),
		CaptureMode:     s.capture.Mode(),
	}
	switch step {
	case domain.StepIDUpload:
		view.CanContinue = p.Has(domain.UploadIDFront, domain.UploadIDBack)
	case domain.StepSelfie:
		view.CanContinue = p.Has(domain.UploadSelfie)
	case domain.StepPersonal, domain.StepTips, domain.StepDocument:
		view.CanContinue = true
	case domain.StepReview:
		view.CanSubmit = len(view.Missing) == 0
	}
	return view
}
