// Package orchestrator classifies tasks and assembles agent teams.
//
// The orchestrator package provides functionality for:
//   - Tier classification: mapping task text to a complexity tier by keyword and length
//   - Team building: sizing a roster from the tier policy, generating specs and materializing agents
//   - Run wiring: one RunContext per run carrying the limiter, retrier and logger
//
// Example usage:
//
//	rc, err := orchestrator.NewRunContext(orchestrator.RunOptions{Account: models.AccountPaid})
//	gen := specgen.New(client, rc.Retrier, rc.Policy)
//	factory := agent.NewFactory(client, rc.Retrier, rc.Workspaces)
//	team, err := orchestrator.NewTeamBuilder(rc, gen, factory).Build(ctx, "Summarize a research topic")
package orchestrator
