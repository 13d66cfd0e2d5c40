package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/spf13/afero"

	"github.com/bioscout/bioscout/internal/app"
	"github.com/bioscout/bioscout/internal/classifier"
	"github.com/bioscout/bioscout/internal/errors"
	"github.com/bioscout/bioscout/internal/feedback"
	"github.com/bioscout/bioscout/internal/logger"
	"github.com/bioscout/bioscout/internal/observation"
	"github.com/bioscout/bioscout/internal/qna"
)

// imageField is the multipart field carrying an uploaded photo
const imageField = "image"

// Service is the application layer the controller exposes.
type Service interface {
	ListObservations(ctx context.Context) ([]observation.Observation, error)
	SubmitObservation(ctx context.Context, sub app.Submission) (observation.Observation, error)
	Identify(ctx context.Context, img observation.Image) (classifier.Suggestion, error)
	Ask(ctx context.Context, question string) (qna.Answer, error)
}

// Controller handles the /api/v1 routes.
type Controller struct {
	service Service
	images  http.FileSystem
	maxSize int64
	log     logger.Logger
}

// NewController returns a controller. images may be nil, in which case
// stored images are not served.
func NewController(service Service, images *observation.ImageStore, maxUploadSize int64, log logger.Logger) *Controller {
	if log == nil {
		log = GetLogger()
	}
	c := &Controller{service: service, maxSize: maxUploadSize, log: log}
	if images != nil {
		c.images = afero.NewHttpFs(images.Fs()).Dir(images.Dir())
	}
	return c
}

// ObservationsResponse is returned by GET /observations.
type ObservationsResponse struct {
	Observations []observation.Observation `json:"observations"`
	Count        int                       `json:"count"`
}

// SubmitResponse is returned by POST /observations.
type SubmitResponse struct {
	Observation observation.Observation `json:"observation"`
	feedback.Message
}

// IdentifyResponse is returned by POST /identify. Suggestion is nil when the
// service had nothing to suggest.
type IdentifyResponse struct {
	Suggestion *classifier.Suggestion `json:"suggestion,omitempty"`
	Confidence string                 `json:"confidence,omitempty"`
	feedback.Message
}

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Question string `json:"question"`
}

// AskResponse is returned by POST /ask.
type AskResponse struct {
	Answer string `json:"answer"`
	Model  string `json:"model,omitempty"`
}

// ListObservations handles GET /observations.
func (c *Controller) ListObservations(ctx echo.Context) error {
	all, err := c.service.ListObservations(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, feedback.OpList, err)
	}
	if all == nil {
		all = []observation.Observation{}
	}
	return ctx.JSON(http.StatusOK, ObservationsResponse{Observations: all, Count: len(all)})
}

// SubmitObservation handles POST /observations.
func (c *Controller) SubmitObservation(ctx echo.Context) error {
	date, err := app.ParseObservedDate(ctx.FormValue("date_observed"))
	if err != nil {
		return c.HandleError(ctx, feedback.OpSubmit, err)
	}

	img, err := c.readImage(ctx)
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		return c.HandleError(ctx, feedback.OpSubmit, err)
	}

	saved, err := c.service.SubmitObservation(ctx.Request().Context(), app.Submission{
		SpeciesName:  ctx.FormValue("species_name"),
		DateObserved: date,
		Location:     ctx.FormValue("location"),
		Notes:        ctx.FormValue("notes"),
		Image:        img,
	})
	if err != nil {
		return c.HandleError(ctx, feedback.OpSubmit, err)
	}
	return ctx.JSON(http.StatusCreated, SubmitResponse{Observation: saved, Message: feedback.Submitted()})
}

// Identify handles POST /identify. An empty prediction list is not an error
// for the client and is answered with a warning.
func (c *Controller) Identify(ctx echo.Context) error {
	img, err := c.readImage(ctx)
	if errors.Is(err, http.ErrMissingFile) {
		return c.badRequest(ctx, feedback.OpIdentify, "an image file is required")
	}
	if err != nil {
		return c.HandleError(ctx, feedback.OpIdentify, err)
	}

	suggestion, err := c.service.Identify(ctx.Request().Context(), *img)
	if errors.Is(err, classifier.ErrNoSuggestion) {
		return ctx.JSON(http.StatusOK, IdentifyResponse{Message: feedback.FromError(feedback.OpIdentify, err)})
	}
	if err != nil {
		return c.HandleError(ctx, feedback.OpIdentify, err)
	}
	return ctx.JSON(http.StatusOK, IdentifyResponse{
		Suggestion: &suggestion,
		Confidence: suggestion.Confidence(),
		Message:    feedback.Suggested(suggestion),
	})
}

// Ask handles POST /ask.
func (c *Controller) Ask(ctx echo.Context) error {
	var req AskRequest
	if err := ctx.Bind(&req); err != nil {
		return c.badRequest(ctx, feedback.OpAsk, "request body must be JSON with a question field")
	}

	answer, err := c.service.Ask(ctx.Request().Context(), req.Question)
	if err != nil {
		return c.HandleError(ctx, feedback.OpAsk, err)
	}
	return ctx.JSON(http.StatusOK, AskResponse{Answer: answer.Text, Model: answer.Model})
}

// ServeImage handles GET /images/:name.
func (c *Controller) ServeImage(ctx echo.Context) error {
	if c.images == nil {
		return echo.ErrNotFound
	}
	name, err := observation.SafeFilename(ctx.Param("name"))
	if err != nil || name != ctx.Param("name") {
		return echo.ErrNotFound
	}

	f, err := c.images.Open(name)
	if err != nil {
		return echo.ErrNotFound
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return echo.ErrNotFound
	}
	http.ServeContent(ctx.Response(), ctx.Request(), info.Name(), info.ModTime(), f)
	return nil
}

// Healthz handles GET /healthz.
func (c *Controller) Healthz(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// readImage reads the uploaded image. It returns http.ErrMissingFile when the
// request has none.
func (c *Controller) readImage(ctx echo.Context) (*observation.Image, error) {
	header, err := ctx.FormFile(imageField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, http.ErrMissingFile
		}
		return nil, errors.New(fmt.Errorf("reading upload: %w", err)).
			Component("api").
			Category(errors.CategoryValidation).
			Build()
	}
	if c.maxSize > 0 && header.Size > c.maxSize {
		return nil, errors.ValidationError(fmt.Sprintf("image is %d bytes, maximum is %d", header.Size, c.maxSize))
	}

	data, err := readPart(header)
	if err != nil {
		return nil, errors.New(fmt.Errorf("reading upload: %w", err)).
			Component("api").
			Category(errors.CategoryValidation).
			Build()
	}
	if len(data) == 0 && strings.TrimSpace(header.Filename) == "" {
		return nil, http.ErrMissingFile
	}
	return &observation.Image{
		Filename:    header.Filename,
		ContentType: header.Header.Get(echo.HeaderContentType),
		Data:        data,
	}, nil
}

func readPart(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
