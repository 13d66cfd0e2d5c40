// Package classifier sends an observation photo to the image-classification
// service and picks its top species prediction.
package classifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/antonholmquist/jason"

	"github.com/bioscout/bioscout/internal/errors"
	"github.com/bioscout/bioscout/internal/httpclient"
	"github.com/bioscout/bioscout/internal/logger"
)

const (
	// formField is the multipart field the service reads the image from
	formField       = "image"
	defaultFilename = "image.jpg"
	defaultType     = "image/jpeg"
)

// ErrNoSuggestion is returned, wrapped as a response-shape error, when the
// service answers successfully but lists no predictions.
var ErrNoSuggestion = errors.NewStd("no species suggestion found")

// Image is the photo to classify.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Prediction is one ranked guess returned by the service.
type Prediction struct {
	ClassName   string
	Probability float64
}

// Suggestion is the top prediction.
type Suggestion struct {
	Species     string  `json:"species"`
	Probability float64 `json:"probability"`
}

// Confidence renders the probability as a percentage with two decimals, e.g. "81.00%".
func (s Suggestion) Confidence() string {
	return fmt.Sprintf("%.2f%%", s.Probability*100)
}

// Client talks to the classification endpoint. It performs exactly one
// request per call and keeps no state between calls.
type Client struct {
	http     *httpclient.Client
	endpoint string
	log      logger.Logger
}

// New returns a Client posting to endpoint.
func New(client *httpclient.Client, endpoint string, log logger.Logger) *Client {
	if log == nil {
		log = logger.Global().Module("classifier")
	}
	return &Client{http: client, endpoint: endpoint, log: log}
}

// Classify uploads img and returns the prediction with the highest
// probability; ties go to the first in the service's order.
func (c *Client) Classify(ctx context.Context, img Image) (Suggestion, error) {
	if len(img.Data) == 0 {
		return Suggestion{}, errors.New(errors.NewStd("image is empty")).
			Component("classifier").
			Category(errors.CategoryValidation).
			Build()
	}

	body, contentType, err := encodeImage(img)
	if err != nil {
		return Suggestion{}, errors.New(fmt.Errorf("encoding multipart body: %w", err)).
			Component("classifier").
			Category(errors.CategoryGeneric).
			Build()
	}

	start := time.Now()
	resp, err := c.http.Post(ctx, c.endpoint, contentType, body)
	if err != nil {
		c.log.Warn("classification request failed",
			logger.String("endpoint", c.endpoint),
			logger.Error(err))
		return Suggestion{}, c.networkError(err, 0)
	}
	defer resp.Body.Close()

	if err := httpclient.CheckStatus(resp, http.StatusOK); err != nil {
		c.log.Warn("classification service returned an error status",
			logger.Int("status_code", resp.StatusCode),
			logger.String("endpoint", c.endpoint))
		return Suggestion{}, c.networkError(err, resp.StatusCode)
	}

	predictions, err := parsePredictions(resp.Body)
	if err != nil {
		return Suggestion{}, c.shapeError(err)
	}

	suggestion, ok := Top(predictions)
	if !ok {
		c.log.Info("classification returned no predictions", logger.Duration("elapsed", time.Since(start)))
		return Suggestion{}, c.shapeError(ErrNoSuggestion)
	}

	c.log.Debug("image classified",
		logger.String("species", suggestion.Species),
		logger.Float64("probability", suggestion.Probability),
		logger.Int("predictions", len(predictions)),
		logger.Duration("elapsed", time.Since(start)))
	return suggestion, nil
}

// Top returns the highest-probability prediction, keeping the earliest on ties.
func Top(predictions []Prediction) (Suggestion, bool) {
	if len(predictions) == 0 {
		return Suggestion{}, false
	}
	best := predictions[0]
	for _, p := range predictions[1:] {
		if p.Probability > best.Probability {
			best = p
		}
	}
	return Suggestion{Species: best.ClassName, Probability: best.Probability}, true
}

func encodeImage(img Image) (*bytes.Buffer, string, error) {
	filename := img.Filename
	if filename == "" {
		filename = defaultFilename
	}
	contentType := img.ContentType
	if contentType == "" {
		contentType = defaultType
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, formField, escapeQuotes(filename)))
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// parsePredictions reads predictions.predictions. A missing or empty list
// yields no predictions; entries without a name or with a probability
// outside [0,1] are rejected.
func parsePredictions(body io.Reader) ([]Prediction, error) {
	root, err := jason.NewObjectFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("decoding classification response: %w", err)
	}

	entries, err := root.GetObjectArray("predictions", "predictions")
	if err != nil {
		if _, missing := root.GetValue("predictions", "predictions"); missing != nil {
			return nil, nil
		}
		return nil, fmt.Errorf("predictions.predictions is not a list of objects: %w", err)
	}

	predictions := make([]Prediction, 0, len(entries))
	for i, entry := range entries {
		name, err := entry.GetString("className")
		if err != nil || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("prediction %d has no className", i)
		}
		probability, err := entry.GetFloat64("probability")
		if err != nil {
			return nil, fmt.Errorf("prediction %d has no numeric probability", i)
		}
		if probability < 0 || probability > 1 {
			return nil, fmt.Errorf("prediction %d probability %g outside [0,1]", i, probability)
		}
		predictions = append(predictions, Prediction{ClassName: name, Probability: probability})
	}
	return predictions, nil
}

func (c *Client) networkError(err error, statusCode int) error {
	return errors.New(fmt.Errorf("classification request: %w", err)).
		Component("classifier").
		Category(errors.CategoryNetwork).
		NetworkContext(c.endpoint, statusCode).
		Context("operation", "classify").
		Build()
}

func (c *Client) shapeError(err error) error {
	return errors.New(err).
		Component("classifier").
		Category(errors.CategoryResponseShape).
		NetworkContext(c.endpoint, 0).
		Context("operation", "classify").
		Build()
}
