// Package feedback turns operation results into the short messages shown to
// users by the HTTP API and the CLI.
package feedback

import (
	"fmt"

	"github.com/bioscout/bioscout/internal/classifier"
	"github.com/bioscout/bioscout/internal/errors"
	"github.com/bioscout/bioscout/internal/httpclient"
)

// Level is the severity a message is displayed with.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Operation names the user action a message belongs to.
type Operation string

const (
	OpSubmit   Operation = "submit"
	OpList     Operation = "list"
	OpIdentify Operation = "identify"
	OpAsk      Operation = "ask"
)

// Message is a user-visible outcome.
type Message struct {
	Level Level  `json:"level"`
	Text  string `json:"message"`
}

// Submitted is shown after an observation has been appended.
func Submitted() Message {
	return Message{Level: LevelSuccess, Text: "Observation submitted successfully!"}
}

// Suggested renders a classifier suggestion.
func Suggested(s classifier.Suggestion) Message {
	return Message{
		Level: LevelSuccess,
		Text:  fmt.Sprintf("Suggested Species: %s with confidence %s", s.Species, s.Confidence()),
	}
}

// FromError maps err to a message for op. A nil error yields a zero Message.
func FromError(op Operation, err error) Message {
	if err == nil {
		return Message{}
	}

	category := errors.CategoryOf(err)

	if category == errors.CategoryValidation {
		return Message{Level: LevelError, Text: validationText(err)}
	}

	switch op {
	case OpIdentify:
		return identifyMessage(category, err)
	case OpAsk:
		return askMessage(category, err)
	case OpSubmit:
		if category == errors.CategoryStorage {
			return Message{Level: LevelError, Text: "Failed to save the observation. Please try again later."}
		}
	case OpList:
		if category == errors.CategoryStorage {
			return Message{Level: LevelError, Text: "Failed to load observations."}
		}
	}
	return Message{Level: LevelError, Text: "Something went wrong. Please try again later."}
}

func identifyMessage(category errors.ErrorCategory, err error) Message {
	if errors.Is(err, classifier.ErrNoSuggestion) {
		return Message{Level: LevelWarning, Text: "No species suggestion found."}
	}
	switch category {
	case errors.CategoryNetwork:
		if code := statusCode(err); code > 0 {
			return Message{Level: LevelError, Text: fmt.Sprintf("Failed to identify species (status %d).", code)}
		}
		return Message{Level: LevelError, Text: "Failed to reach the species identification service."}
	case errors.CategoryResponseShape:
		return Message{Level: LevelError, Text: "The species identification service returned an unexpected response."}
	case errors.CategoryStorage:
		return Message{Level: LevelError, Text: "Failed to store the uploaded image."}
	}
	return Message{Level: LevelError, Text: "Failed to identify species."}
}

func askMessage(category errors.ErrorCategory, err error) Message {
	switch category {
	case errors.CategoryNetwork:
		if code := statusCode(err); code > 0 {
			return Message{Level: LevelError, Text: fmt.Sprintf("Failed to get a response from OpenRouter API. Status code: %d", code)}
		}
		return Message{Level: LevelError, Text: "Failed to reach OpenRouter API."}
	case errors.CategoryResponseShape:
		return Message{Level: LevelError, Text: "OpenRouter API returned a response without an answer."}
	}
	return Message{Level: LevelError, Text: "Failed to get an answer."}
}

// statusCode returns the HTTP status carried by err, or 0.
func statusCode(err error) int {
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code
	}
	return 0
}

func validationText(err error) string {
	var enhanced *errors.EnhancedError
	if errors.As(err, &enhanced) && enhanced.Err != nil {
		return enhanced.Err.Error()
	}
	return err.Error()
}
