package apperr

import (
	"errors"
	"fmt"
)

const (
	MetaReason      = "reason"
	MetaStage       = "stage"
	MetaField       = "field"
	MetaRunID       = "run_id"
	MetaAction      = "action"
	MetaSelector    = "selector"
	MetaURL         = "url"
	MetaDescription = "description"
	MetaProvider    = "provider"
	MetaSlot        = "slot"
	MetaPath        = "path"

	StagePreparation = "preparation"
	StageBrowser     = "browser"
	StageAI          = "ai"
	StageHealing     = "healing"
	StageVision      = "vision"
	StageCanvas      = "canvas"
	StageKnowledge   = "knowledge"
	StageGenerator   = "generator"
	StageNavigation  = "navigation"
	StageInteraction = "interaction"
	StageScreenshot  = "screenshot"

	CodeInternal            = "internal"
	CodeInvalidArgument     = "invalid_argument"
	CodeNotFound            = "not_found"
	CodeTimeout             = "timeout"
	CodeBrowserNotReady     = "browser_not_ready"
	CodeActionFailed        = "action_failed"
	CodeActionParse         = "action_parse"
	CodeAIError             = "ai_error"
	CodeProviderUnavailable = "provider_unavailable"
	CodeNoVisionProvider    = "no_vision_provider"
	CodeElementNotFound     = "element_not_found"
	CodePersistence         = "persistence"
)

type Error struct {
	Op       string
	Code     string
	Err      error
	Metadata map[string]any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}

	return e.Op
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Wrap(op, code string, err error, metadata map[string]any) error {
	if metadata == nil {
		metadata = make(map[string]any)
	}

	return &Error{
		Op:       op,
		Code:     code,
		Err:      err,
		Metadata: metadata,
	}
}

func WrapWithReason(op, code string, err error, reason string) error {
	return Wrap(op, code, err, map[string]any{
		MetaReason: reason,
	})
}

func WrapErrorWithReason(op, code, reason string) error {
	return Wrap(op, code, errors.New(reason), map[string]any{
		MetaReason: reason,
	})
}

func InvalidReqError(op, field string, err error) error {
	return Wrap(op, CodeInvalidArgument, err, map[string]any{
		MetaField:  field,
		MetaReason: "invalid_request",
	})
}

func NotFoundError(op string, err error) error {
	return Wrap(op, CodeNotFound, err, map[string]any{
		MetaReason: "not_found",
	})
}

// ElementNotFoundError reports that no resolution tier produced an element
// for the given semantic description.
func ElementNotFoundError(op, description string) error {
	return Wrap(op, CodeElementNotFound, fmt.Errorf("all strategies failed for %q", description), map[string]any{
		MetaReason:      "all_tiers_exhausted",
		MetaStage:       StageHealing,
		MetaDescription: description,
	})
}

// CodeOf returns the code of the outermost *Error in the chain, or "".
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}

	return ""
}

// HasCode reports whether any *Error in the chain carries code.
func HasCode(err error, code string) bool {
	for err != nil {
		var appErr *Error
		if !errors.As(err, &appErr) {
			return false
		}

		if appErr.Code == code {
			return true
		}

		err = appErr.Err
	}

	return false
}
