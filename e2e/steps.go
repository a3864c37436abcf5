package e2e

import (
	"github.com/cucumber/godog"

	"github.com/vrwarp/locus/e2e/steps/audit"
	"github.com/vrwarp/locus/e2e/steps/common"
	"github.com/vrwarp/locus/e2e/steps/review"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	audit.RegisterSteps(ctx, tc)
	review.RegisterSteps(ctx, tc)
}
