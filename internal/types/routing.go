// Package types provides type definitions for structured data used throughout the resume-studio system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"time"

	"github.com/google/uuid"
)

// Role is the user tier that selects which routing overrides apply.
type Role string

// Known roles
const (
	RolePublic     Role = "public"
	RoleFriend     Role = "friend"
	RoleSuperAdmin Role = "super_admin"
)

// Roles lists every known role in display order.
func Roles() []Role {
	return []Role{RolePublic, RoleFriend, RoleSuperAdmin}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RolePublic, RoleFriend, RoleSuperAdmin:
		return true
	}
	return false
}

// ScenarioKey names the purpose of an LLM call.
type ScenarioKey string

// Scenario keys
const (
	ScenarioResumeAdaptation        ScenarioKey = "resume_adaptation"
	ScenarioResumeAdaptationScoring ScenarioKey = "resume_adaptation_scoring"
	ScenarioResumeScoreDetails      ScenarioKey = "resume_score_details"
	ScenarioResumeParse             ScenarioKey = "resume_parse"
	ScenarioCoverLetterGeneration   ScenarioKey = "cover_letter_generation"
	ScenarioCoverLetterCritique     ScenarioKey = "cover_letter_humanizer_critique"
	ScenarioCoverLetterRewrite      ScenarioKey = "cover_letter_humanizer_rewrite"
)

// ResponseFormat is the output format requested from a provider.
type ResponseFormat string

// Response formats
const (
	ResponseFormatText ResponseFormat = "text"
	ResponseFormatJSON ResponseFormat = "json"
)

// RouteSource identifies which precedence tier produced a ResolvedRoute.
type RouteSource string

// Route sources
const (
	RouteSourceRoleOverride    RouteSource = "role_override"
	RouteSourceScenarioDefault RouteSource = "scenario_default"
	// RouteSourceFallback marks a route built from the configured fallback
	// model because resolution was unresolved or failed.
	RouteSourceFallback RouteSource = "fallback"
)

// ModelStatus is the lifecycle status of a catalog model. Models are never hard-deleted.
type ModelStatus string

// Model statuses
const (
	ModelStatusActive   ModelStatus = "active"
	ModelStatusInactive ModelStatus = "inactive"
)

// Scenario is a catalog entry describing one LLM call purpose.
type Scenario struct {
	Key         ScenarioKey `json:"key"`
	Label       string      `json:"label"`
	Description string      `json:"description,omitempty"`
}

// ModelCapabilities lists optional provider features of a model.
type ModelCapabilities struct {
	JSONMode  bool `json:"json_mode"`
	ToolUse   bool `json:"tool_use"`
	Streaming bool `json:"streaming"`
}

// Model is an LLM catalog entry. Prices are USD per million tokens.
type Model struct {
	ID                   uuid.UUID         `json:"id"`
	Provider             string            `json:"provider" validate:"required"`
	ModelKey             string            `json:"model_key" validate:"required"`
	DisplayName          string            `json:"display_name" validate:"required"`
	Status               ModelStatus       `json:"status" validate:"required,oneof=active inactive"`
	InputPricePerM       float64           `json:"input_price_per_m" validate:"gte=0"`
	OutputPricePerM      float64           `json:"output_price_per_m" validate:"gte=0"`
	CachedInputPricePerM *float64          `json:"cached_input_price_per_m,omitempty" validate:"omitempty,gte=0"`
	ContextWindow        int               `json:"context_window" validate:"gte=0"`
	MaxOutputTokens      int               `json:"max_output_tokens" validate:"gte=0"`
	Capabilities         ModelCapabilities `json:"capabilities"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// IsActive reports whether the model may be used for new calls.
func (m *Model) IsActive() bool {
	return m != nil && m.Status == ModelStatusActive
}

// RoutingAssignment maps a scenario (and optionally a role) to a model.
// A nil Role marks a scenario default; a non-nil Role marks a role override.
type RoutingAssignment struct {
	Scenario       ScenarioKey    `json:"scenario"`
	Role           *Role          `json:"role,omitempty"`
	ModelID        uuid.UUID      `json:"model_id"`
	RetryModelID   *uuid.UUID     `json:"retry_model_id,omitempty"`
	StrategyKey    *string        `json:"strategy_key,omitempty"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens"`
	ResponseFormat ResponseFormat `json:"response_format"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// IsOverride reports whether the assignment is a role override.
func (a *RoutingAssignment) IsOverride() bool {
	return a.Role != nil
}

// ResolvedRoute is the per-request result of routing resolution. It is never persisted.
type ResolvedRoute struct {
	Scenario       ScenarioKey    `json:"scenario"`
	Role           Role           `json:"role"`
	Source         RouteSource    `json:"source"`
	Model          *Model         `json:"model"`
	RetryModel     *Model         `json:"retry_model,omitempty"`
	StrategyKey    string         `json:"strategy_key,omitempty"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens"`
	ResponseFormat ResponseFormat `json:"response_format"`
}

// RuntimeModel is the raw catalog view of a resolved assignment, as returned by
// a catalog store's ResolveRuntimeModel.
type RuntimeModel struct {
	Source     RouteSource        `json:"source"`
	Assignment *RoutingAssignment `json:"assignment"`
	Model      *Model             `json:"model"`
	RetryModel *Model             `json:"retry_model,omitempty"`
}
