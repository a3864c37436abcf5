package review

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (any, error)
	Save(name, value string)
}

// RegisterSteps registers correction review step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &reviewSteps{tc: tc}

	ctx.Step(`^I propose "([^"]*)" as the "([^"]*)" of person "([^"]*)"$`, steps.propose)
	ctx.Step(`^I save the decision id$`, steps.saveDecisionID)
	ctx.Step(`^I reject the decision with reason "([^"]*)"$`, steps.reject)
	ctx.Step(`^I approve the decision$`, steps.approve)
	ctx.Step(`^I fetch the decision$`, steps.fetch)
	ctx.Step(`^I request the decision list without a token$`, steps.listWithoutToken)
}

type reviewSteps struct {
	tc TestContext
}

func (s *reviewSteps) propose(ctx context.Context, value, field, personID string) error {
	return s.tc.POST("/review/decisions", map[string]any{
		"person_id": personID,
		"field":     field,
		"value":     value,
	})
}

func (s *reviewSteps) saveDecisionID(ctx context.Context) error {
	v, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	id, ok := v.(string)
	if !ok || id == "" {
		return fmt.Errorf("decision id missing: %v", v)
	}
	s.tc.Save("decision_id", id)
	return nil
}

func (s *reviewSteps) reject(ctx context.Context, reason string) error {
	return s.tc.POST("/review/decisions/{decision_id}/reject", map[string]any{"reason": reason})
}

func (s *reviewSteps) approve(ctx context.Context) error {
	return s.tc.POST("/review/decisions/{decision_id}/approve", nil)
}

func (s *reviewSteps) fetch(ctx context.Context) error {
	return s.tc.GET("/review/decisions/{decision_id}", nil)
}

func (s *reviewSteps) listWithoutToken(ctx context.Context) error {
	return s.tc.GET("/review/decisions", map[string]string{"Authorization": ""})
}
