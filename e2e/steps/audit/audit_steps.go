package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GetResponseField(field string) (any, error)
}

// RegisterSteps registers audit run step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &auditSteps{tc: tc}

	ctx.Step(`^I run an audit with analyzers "([^"]*)"$`, steps.runAudit)
	ctx.Step(`^I run an audit with analyzers "([^"]*)" and bus factor threshold (\d+)$`, steps.runAuditWithThreshold)
	ctx.Step(`^I run a full audit$`, steps.runFullAudit)
	ctx.Step(`^I confirm ghost "([^"]*)"$`, steps.confirmGhost)
	ctx.Step(`^the report should have completed "([^"]*)"$`, steps.reportCompleted)
	ctx.Step(`^the report should not be partial$`, steps.reportNotPartial)
}

type auditSteps struct {
	tc TestContext
}

func (s *auditSteps) runAudit(ctx context.Context, analyzers string) error {
	return s.tc.POST("/audit/run", map[string]any{"analyzers": strings.Split(analyzers, ",")})
}

func (s *auditSteps) runAuditWithThreshold(ctx context.Context, analyzers string, threshold int) error {
	return s.tc.POST("/audit/run", map[string]any{
		"analyzers": strings.Split(analyzers, ","),
		"config":    map[string]any{"bus_factor_threshold": threshold},
	})
}

func (s *auditSteps) runFullAudit(ctx context.Context) error {
	return s.tc.POST("/audit/run", map[string]any{})
}

func (s *auditSteps) confirmGhost(ctx context.Context, personID string) error {
	return s.tc.POST("/audit/ghosts/"+personID+"/confirm", nil)
}

func (s *auditSteps) reportCompleted(ctx context.Context, tags string) error {
	v, err := s.tc.GetResponseField("completed")
	if err != nil {
		return err
	}
	items, ok := v.([]any)
	if !ok {
		return fmt.Errorf("completed is not a list: %v", v)
	}
	done := make(map[string]bool, len(items))
	for _, it := range items {
		done[fmt.Sprint(it)] = true
	}
	for _, tag := range strings.Split(tags, ",") {
		if !done[strings.TrimSpace(tag)] {
			return fmt.Errorf("analyzer %s did not complete; completed %v", tag, items)
		}
	}
	return nil
}

func (s *auditSteps) reportNotPartial(ctx context.Context) error {
	v, err := s.tc.GetResponseField("partial")
	if err != nil {
		return err
	}
	if v != false {
		return fmt.Errorf("expected a complete report, partial=%v", v)
	}
	return nil
}
