// Package app implements the three user interactions (submit and list
// observations, identify a species from a photo, ask a question) on top of
// the observation log and the two outbound services.
package app

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/bioscout/bioscout/internal/classifier"
	"github.com/bioscout/bioscout/internal/errors"
	"github.com/bioscout/bioscout/internal/logger"
	"github.com/bioscout/bioscout/internal/observability"
	"github.com/bioscout/bioscout/internal/observability/metrics"
	"github.com/bioscout/bioscout/internal/observation"
	"github.com/bioscout/bioscout/internal/qna"
)

// Classifier suggests a species for an image.
type Classifier interface {
	Classify(ctx context.Context, img classifier.Image) (classifier.Suggestion, error)
}

// Answerer answers a free-text question.
type Answerer interface {
	Ask(ctx context.Context, question string) (qna.Answer, error)
}

// Notifier is told about every appended observation.
type Notifier interface {
	ObservationSubmitted(ctx context.Context, o observation.Observation) int
}

// Submission is a new observation as entered by a user.
type Submission struct {
	SpeciesName  string
	DateObserved observation.Date
	Location     string
	Notes        string
	Image        *observation.Image
}

// Deps are the collaborators of a Service. Notifier and Metrics are optional.
type Deps struct {
	Log        observation.Log
	Images     *observation.ImageStore
	Classifier Classifier
	Answerer   Answerer
	Notifier   Notifier
	Metrics    *observability.Metrics
	Logger     logger.Logger
}

// Service runs each interaction synchronously; nothing is retried or cached.
type Service struct {
	log        observation.Log
	images     *observation.ImageStore
	classifier Classifier
	answerer   Answerer
	notifier   Notifier

	observationRec metrics.Recorder
	boundaryRec    metrics.Recorder
	metrics        *observability.Metrics

	logger logger.Logger
}

// NewService returns a Service for deps.
func NewService(deps Deps) *Service {
	s := &Service{
		log:            deps.Log,
		images:         deps.Images,
		classifier:     deps.Classifier,
		answerer:       deps.Answerer,
		notifier:       deps.Notifier,
		metrics:        deps.Metrics,
		observationRec: metrics.NewNoOpRecorder(),
		boundaryRec:    metrics.NewNoOpRecorder(),
		logger:         deps.Logger,
	}
	if deps.Metrics != nil {
		s.observationRec = deps.Metrics.Observation
		s.boundaryRec = deps.Metrics.Boundary
	}
	if s.logger == nil {
		s.logger = logger.Global().Module("app")
	}
	return s
}

// ListObservations returns every stored observation in insertion order.
func (s *Service) ListObservations(ctx context.Context) ([]observation.Observation, error) {
	start := time.Now()
	all, err := s.log.Load(ctx)
	record(s.observationRec, metrics.OpLoad, start, err)
	if err != nil {
		s.logger.Error("failed to load observations", logger.Error(err))
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.Observation.SetRecordCount(len(all))
	}
	return all, nil
}

// SubmitObservation stores the optional image, then appends the record with
// image_url pointing at it. Notification failures do not fail the submission.
func (s *Service) SubmitObservation(ctx context.Context, sub Submission) (observation.Observation, error) {
	entry := observation.Observation{
		SpeciesName:  strings.TrimSpace(sub.SpeciesName),
		DateObserved: sub.DateObserved,
		Location:     strings.TrimSpace(sub.Location),
		Notes:        sub.Notes,
	}
	if err := entry.Validate(); err != nil {
		return observation.Observation{}, err
	}

	if sub.Image != nil {
		imagePath, err := s.storeImage(ctx, sub.Image)
		if err != nil {
			return observation.Observation{}, err
		}
		entry.ImageURL = imagePath
	}

	start := time.Now()
	saved, err := s.log.Append(ctx, entry)
	record(s.observationRec, metrics.OpAppend, start, err)
	if err != nil {
		s.logger.Error("failed to append observation", logger.Error(err))
		return observation.Observation{}, err
	}
	if s.metrics != nil {
		s.metrics.Observation.SetRecordCount(saved.ID)
	}

	s.logger.Info("observation submitted",
		logger.Int("observation_id", saved.ID),
		logger.String("species", saved.SpeciesName),
		logger.Bool("has_image", saved.ImageURL != ""))

	if s.notifier != nil {
		s.notifier.ObservationSubmitted(ctx, saved)
	}
	return saved, nil
}

func (s *Service) storeImage(ctx context.Context, img *observation.Image) (string, error) {
	if s.images == nil {
		return "", errors.New(errors.NewStd("image storage is not configured")).
			Component("app").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err := s.images.Validate(img); err != nil {
		return "", err
	}

	start := time.Now()
	stored, err := s.images.Save(ctx, *img)
	record(s.observationRec, metrics.OpImageSave, start, err)
	if err != nil {
		return "", err
	}
	if s.metrics != nil {
		s.metrics.Observation.ObserveImageSize(len(img.Data))
	}
	return filepath.ToSlash(stored), nil
}

// Identify validates img and asks the classification service for the top
// species suggestion.
func (s *Service) Identify(ctx context.Context, img observation.Image) (classifier.Suggestion, error) {
	if s.images != nil {
		if err := s.images.Validate(&img); err != nil {
			return classifier.Suggestion{}, err
		}
	}

	start := time.Now()
	suggestion, err := s.classifier.Classify(ctx, classifier.Image{
		Filename:    img.Filename,
		ContentType: img.ContentType,
		Data:        img.Data,
	})
	record(s.boundaryRec, metrics.OpClassify, start, err)
	if err != nil {
		return classifier.Suggestion{}, err
	}
	if s.metrics != nil {
		s.metrics.Boundary.ObserveSuggestion(suggestion.Probability)
	}
	return suggestion, nil
}

// Ask forwards question to the chat-completion service.
func (s *Service) Ask(ctx context.Context, question string) (qna.Answer, error) {
	start := time.Now()
	answer, err := s.answerer.Ask(ctx, question)
	if !errors.IsCategory(err, errors.CategoryValidation) {
		record(s.boundaryRec, metrics.OpAsk, start, err)
	}
	return answer, err
}

func record(rec metrics.Recorder, operation string, start time.Time, err error) {
	rec.RecordDuration(operation, time.Since(start).Seconds())
	if err != nil {
		rec.RecordOperation(operation, metrics.StatusError)
		rec.RecordError(operation, string(errors.CategoryOf(err)))
		return
	}
	rec.RecordOperation(operation, metrics.StatusSuccess)
}
