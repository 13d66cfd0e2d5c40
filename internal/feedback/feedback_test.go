package feedback

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bioscout/bioscout/internal/classifier"
	"github.com/bioscout/bioscout/internal/errors"
	"github.com/bioscout/bioscout/internal/httpclient"
)

func networkErr(code int) error {
	var cause error = errors.NewStd("connection refused")
	if code > 0 {
		cause = &httpclient.StatusError{Code: code, URL: "http://localhost:3001/api/v1/classify"}
	}
	return errors.New(fmt.Errorf("request: %w", cause)).Category(errors.CategoryNetwork).Build()
}

func TestSuggested(t *testing.T) {
	t.Parallel()
	msg := Suggested(classifier.Suggestion{Species: "Sparrow", Probability: 0.81})
	assert.Equal(t, Message{Level: LevelSuccess, Text: "Suggested Species: Sparrow with confidence 81.00%"}, msg)
}

func TestSubmitted(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Observation submitted successfully!", Submitted().Text)
	assert.Equal(t, LevelSuccess, Submitted().Level)
}

func TestFromError(t *testing.T) {
	t.Parallel()

	noSuggestion := errors.New(classifier.ErrNoSuggestion).Category(errors.CategoryResponseShape).Build()
	storage := errors.New(errors.NewStd("disk full")).Category(errors.CategoryStorage).Build()
	shape := errors.New(errors.NewStd("content missing")).Category(errors.CategoryResponseShape).Build()
	config := errors.New(errors.NewStd("no key")).Category(errors.CategoryConfiguration).Build()

	tests := []struct {
		name string
		op   Operation
		err  error
		want Message
	}{
		{"nil", OpAsk, nil, Message{}},
		{"no suggestion", OpIdentify, noSuggestion, Message{LevelWarning, "No species suggestion found."}},
		{"identify status", OpIdentify, networkErr(http.StatusInternalServerError), Message{LevelError, "Failed to identify species (status 500)."}},
		{"identify transport", OpIdentify, networkErr(0), Message{LevelError, "Failed to reach the species identification service."}},
		{"ask unauthorized", OpAsk, networkErr(http.StatusUnauthorized), Message{LevelError, "Failed to get a response from OpenRouter API. Status code: 401"}},
		{"ask shape", OpAsk, shape, Message{LevelError, "OpenRouter API returned a response without an answer."}},
		{"ask configuration is generic", OpAsk, config, Message{LevelError, "Failed to get an answer."}},
		{"submit storage", OpSubmit, storage, Message{LevelError, "Failed to save the observation. Please try again later."}},
		{"list storage", OpList, storage, Message{LevelError, "Failed to load observations."}},
		{"validation", OpSubmit, errors.ValidationError("date_observed is required"), Message{LevelError, "date_observed is required"}},
		{"uncategorized", OpList, errors.NewStd("boom"), Message{LevelError, "Something went wrong. Please try again later."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FromError(tt.op, tt.err))
		})
	}
}
