package entity

import (
	"time"

	"github.com/google/uuid"
)

// Locator identifies a UI element semantically and operationally.
// Description is the durable cross-run key for learning.
type Locator struct {
	Original    string
	Description string
	Fallbacks   []string
}

type Tier string

const (
	TierOriginal  Tier = "original"
	TierLearned   Tier = "learned"
	TierFallback  Tier = "fallback"
	TierSuggested Tier = "suggested"
)

type BoundingBox struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() (float64, float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

type Viewport struct {
	Width  int
	Height int
}

type ActionType string

const (
	ActionTypeClick       ActionType = "click"
	ActionTypeDoubleClick ActionType = "doubleClick"
	ActionTypeHover       ActionType = "hover"
	ActionTypeType        ActionType = "type"
	ActionTypeDrag        ActionType = "drag"
	ActionTypeZoom        ActionType = "zoom"
	ActionTypeScroll      ActionType = "scroll"
	ActionTypeWait        ActionType = "wait"
	ActionTypeDone        ActionType = "done"
	ActionTypeFailed      ActionType = "failed"
)

// Terminal reports whether the action ends a run.
func (t ActionType) Terminal() bool {
	return t == ActionTypeDone || t == ActionTypeFailed
}

func (t ActionType) Known() bool {
	switch t {
	case ActionTypeClick, ActionTypeDoubleClick, ActionTypeHover, ActionTypeType, ActionTypeDrag,
		ActionTypeZoom, ActionTypeScroll, ActionTypeWait, ActionTypeDone, ActionTypeFailed:
		return true
	default:
		return false
	}
}

// Action is one decision returned by the reasoning provider.
type Action struct {
	Type   ActionType `json:"type"`
	Target string     `json:"target,omitempty"`
	Value  string     `json:"value,omitempty"`
	X      *float64   `json:"x,omitempty"`
	Y      *float64   `json:"y,omitempty"`
	ToX    *float64   `json:"toX,omitempty"`
	ToY    *float64   `json:"toY,omitempty"`
	Delta  *float64   `json:"delta,omitempty"`
	Reason string     `json:"reason,omitempty"`
}

func (a Action) HasPoint() bool {
	return a.X != nil && a.Y != nil
}

func (a Action) HasDragPoints() bool {
	return a.HasPoint() && a.ToX != nil && a.ToY != nil
}

type CanvasState struct {
	NodesCount int  `json:"nodesCount"`
	EdgesCount int  `json:"edgesCount"`
	HasState   bool `json:"hasState"`
}

func NewCanvasState(nodes, edges int) *CanvasState {
	return &CanvasState{
		NodesCount: nodes,
		EdgesCount: edges,
		HasState:   nodes > 0 || edges > 0,
	}
}

type RunStatus string

const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusExhausted RunStatus = "exhausted"
)

// RunResult is the outcome of one vision loop run. Steps is the execution
// history in order.
type RunResult struct {
	ID         uuid.UUID
	Objective  string
	Status     RunStatus
	Success    bool
	Reason     string
	Steps      []string
	StartedAt  time.Time
	FinishedAt time.Time
}

type Verification struct {
	Satisfied bool   `json:"satisfied"`
	Reason    string `json:"reason"`
}

// ProviderInfo names the backend configured in each gateway slot; empty
// means the slot is unset.
type ProviderInfo struct {
	Primary  string
	Fallback string
}

type KnowledgeStats struct {
	TotalLearned int
	Descriptions []string
}

type CompletionRequest struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Prompt      string
}
