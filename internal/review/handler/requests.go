package handler

import (
	"strings"

	dirmodels "github.com/vrwarp/locus/internal/directory/models"
	"github.com/vrwarp/locus/internal/review/models"
	dErrors "github.com/vrwarp/locus/pkg/domain-errors"
)

type OpenDecisionRequest struct {
	PersonID string `json:"person_id"`
	Field    string `json:"field"`
	Value    string `json:"value"`
	Original string `json:"original,omitempty"`
}

func (r *OpenDecisionRequest) Normalize() {
	r.PersonID = strings.TrimSpace(r.PersonID)
	r.Field = strings.ToLower(strings.TrimSpace(r.Field))
	r.Value = strings.TrimSpace(r.Value)
}

func (r *OpenDecisionRequest) Validate() error {
	if r.PersonID == "" {
		return dErrors.New(dErrors.CodeValidation, "person_id is required")
	}
	if r.Field != dirmodels.FieldPhone && r.Field != dirmodels.FieldName {
		return dErrors.New(dErrors.CodeValidation, "field must be phone or name")
	}
	if r.Value == "" {
		return dErrors.New(dErrors.CodeValidation, "value is required")
	}
	return nil
}

type RejectDecisionRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (r *RejectDecisionRequest) Normalize() {
	r.Reason = strings.TrimSpace(r.Reason)
}

type ListDecisionsResponse struct {
	Decisions []*models.Decision `json:"decisions"`
}

// ApproveFailedResponse carries the failed decision so clients can offer a
// retry without another read.
type ApproveFailedResponse struct {
	Error    string          `json:"error"`
	Decision models.Decision `json:"decision"`
}
