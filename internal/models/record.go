package models

import (
	"fmt"
	"time"
)

// Scope describes how a decision was applied.
type Scope string

const (
	ScopeSingle      Scope = "single"
	ScopeApplyToRest Scope = "apply_to_rest"
)

// ResolutionRecord is the persisted audit entry for one resolved pending item.
type ResolutionRecord struct {
	id           string
	sequence     int
	workflowID   string
	itemID       string
	name         string
	kind         Kind
	operation    Operation
	choice       Choice
	scope        Scope
	targetName   string
	errorMessage string
	createdAt    time.Time
	updatedAt    time.Time
	deletedAt    *time.Time
}

// NewResolutionRecord creates a record for item resolved with choice inside workflowID.
func NewResolutionRecord(workflowID string, item PendingItem, op Operation, choice Choice, scope Scope) *ResolutionRecord {
	now := time.Now()
	r := &ResolutionRecord{
		workflowID: workflowID,
		itemID:     item.ID,
		name:       item.DisplayLabel,
		kind:       item.Kind,
		operation:  op,
		choice:     choice,
		scope:      scope,
		createdAt:  now,
		updatedAt:  now,
	}
	if choice == ChoiceRename {
		r.targetName = item.RenameName
	}
	return r
}

func (r *ResolutionRecord) ID() string            { return r.id }
func (r *ResolutionRecord) Sequence() int         { return r.sequence }
func (r *ResolutionRecord) WorkflowID() string    { return r.workflowID }
func (r *ResolutionRecord) ItemID() string        { return r.itemID }
func (r *ResolutionRecord) Name() string          { return r.name }
func (r *ResolutionRecord) Kind() Kind            { return r.kind }
func (r *ResolutionRecord) Operation() Operation  { return r.operation }
func (r *ResolutionRecord) Choice() Choice        { return r.choice }
func (r *ResolutionRecord) Scope() Scope          { return r.scope }
func (r *ResolutionRecord) TargetName() string    { return r.targetName }
func (r *ResolutionRecord) ErrorMessage() string  { return r.errorMessage }
func (r *ResolutionRecord) CreatedAt() time.Time  { return r.createdAt }
func (r *ResolutionRecord) UpdatedAt() time.Time  { return r.updatedAt }
func (r *ResolutionRecord) DeletedAt() *time.Time { return r.deletedAt }

func (r *ResolutionRecord) SetID(id string)            { r.id = id }
func (r *ResolutionRecord) SetSequence(seq int)        { r.sequence = seq }
func (r *ResolutionRecord) SetErrorMessage(msg string) { r.errorMessage = msg }
func (r *ResolutionRecord) SetCreatedAt(t time.Time)   { r.createdAt = t }
func (r *ResolutionRecord) SetUpdatedAt(t time.Time)   { r.updatedAt = t }
func (r *ResolutionRecord) SetDeletedAt(t *time.Time)  { r.deletedAt = t }
func (r *ResolutionRecord) SetTargetName(name string)  { r.targetName = name }

// Failed reports whether the external action for this item returned an error.
func (r *ResolutionRecord) Failed() bool { return r.errorMessage != "" }

// Validate checks required fields.
func (r *ResolutionRecord) Validate() error {
	if r.workflowID == "" {
		return fmt.Errorf("workflow ID is required")
	}
	if r.itemID == "" {
		return fmt.Errorf("item ID is required")
	}
	if r.choice == ChoicePending {
		return fmt.Errorf("record for %s has no choice", r.itemID)
	}
	if r.choice == ChoiceRename && r.targetName == "" {
		return fmt.Errorf("rename record for %s has no target name", r.itemID)
	}
	if r.scope != ScopeSingle && r.scope != ScopeApplyToRest {
		return fmt.Errorf("invalid scope %q", r.scope)
	}
	return nil
}
