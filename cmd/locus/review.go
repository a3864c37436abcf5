package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	healthmodels "github.com/vrwarp/locus/internal/health/models"
	"github.com/vrwarp/locus/internal/review/models"
	id "github.com/vrwarp/locus/pkg/domain"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Walk through contact corrections interactively",
	Long: `Run the contact analyzer and step through each suggested correction.

For every finding choose:
  a  approve and write the suggestion to the directory
  r  reject the suggestion
  s  skip for now
  q  stop reviewing

When a write fails, r retries it while attempts remain.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, ctx, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Health.Audit(ctx, []healthmodels.Tag{healthmodels.TagContact}, a.AuditConfig())
		if err != nil {
			return err
		}

		rl, err := readline.NewEx(&readline.Config{
			Prompt:          cyan("review> "),
			InterruptPrompt: "^C",
			EOFPrompt:       "quit",
		})
		if err != nil {
			return fmt.Errorf("failed to create readline: %w", err)
		}
		defer rl.Close()

		tally, err := reviewLoop(ctx, cmd.OutOrStdout(), readlinePrompter{rl}, a.Review, report.Findings[healthmodels.TagContact])
		fmt.Fprintf(cmd.OutOrStdout(), "\n%s approved %d, rejected %d, skipped %d, failed %d\n",
			cyan("⚕"), tally.approved, tally.rejected, tally.skipped, tally.failed)
		return err
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

type prompter interface {
	Prompt(prompt string) (string, error)
}

type readlinePrompter struct {
	rl *readline.Instance
}

func (p readlinePrompter) Prompt(prompt string) (string, error) {
	p.rl.SetPrompt(prompt)
	return p.rl.Readline()
}

type reviewer interface {
	Open(ctx context.Context, finding healthmodels.Finding) (*models.Decision, error)
	Approve(ctx context.Context, decisionID id.DecisionID) (*models.Outcome, error)
	Reject(ctx context.Context, decisionID id.DecisionID, reason string) (*models.Decision, error)
	Retry(ctx context.Context, decisionID id.DecisionID) (*models.Decision, error)
}

type tally struct {
	approved, rejected, skipped, failed int
}

// reviewLoop prompts for each finding that carries a suggestion. Findings that
// cannot be opened, for example because a decision is already pending, are
// reported and skipped.
func reviewLoop(ctx context.Context, w io.Writer, p prompter, svc reviewer, findings []healthmodels.Finding) (tally, error) {
	var t tally
	for _, f := range findings {
		if ctx.Err() != nil {
			return t, ctx.Err()
		}
		if f.Suggestion == nil {
			continue
		}
		fmt.Fprintf(w, "\n%s %s\n", severityMark(f.Severity), f.Title)
		fmt.Fprintf(w, "  current:   %q\n", f.Value("current"))
		fmt.Fprintf(w, "  suggested: %q\n", *f.Suggestion)

		choice, err := ask(p)
		if err != nil {
			return t, err
		}
		switch choice {
		case "q":
			return t, nil
		case "s":
			t.skipped++
			continue
		}

		d, err := svc.Open(ctx, f)
		if err != nil {
			fmt.Fprintf(w, "  %s %v\n", yellow("!"), err)
			t.skipped++
			continue
		}

		if choice == "r" {
			if _, err := svc.Reject(ctx, d.ID, "rejected in cli review"); err != nil {
				fmt.Fprintf(w, "  %s %v\n", red("✗"), err)
				t.failed++
				continue
			}
			fmt.Fprintf(w, "  %s rejected\n", green("✓"))
			t.rejected++
			continue
		}

		out, quit, err := approve(ctx, w, p, svc, d.ID)
		if err != nil {
			return t, err
		}
		if out == nil {
			t.failed++
			if quit {
				return t, nil
			}
			continue
		}
		t.approved++
		switch {
		case !out.Verified:
			fmt.Fprintf(w, "  %s applied, could not re-read person\n", yellow("!"))
		case out.Resolved:
			fmt.Fprintf(w, "  %s applied and resolved\n", green("✓"))
		default:
			fmt.Fprintf(w, "  %s applied, %d issue(s) remain\n", yellow("!"), len(out.Remaining))
		}
	}
	return t, nil
}

// approve writes the decision. After a failed write the reviewer may retry
// until the service refuses, skip, or quit. A nil outcome means nothing was
// applied.
func approve(ctx context.Context, w io.Writer, p prompter, svc reviewer, decisionID id.DecisionID) (*models.Outcome, bool, error) {
	for {
		out, err := svc.Approve(ctx, decisionID)
		if err == nil {
			return out, false, nil
		}
		fmt.Fprintf(w, "  %s write failed: %v\n", red("✗"), err)

		choice, err := choose(p, "[r]etry [s]kip [q]uit > ", failureChoices)
		if err != nil {
			return nil, false, err
		}
		switch choice {
		case "q":
			return nil, true, nil
		case "s":
			return nil, false, nil
		}
		if _, err := svc.Retry(ctx, decisionID); err != nil {
			fmt.Fprintf(w, "  %s %v\n", red("✗"), err)
			return nil, false, nil
		}
		fmt.Fprintf(w, "  %s retrying\n", cyan("↻"))
	}
}

var (
	reviewChoices  = []string{"approve", "reject", "skip", "quit"}
	failureChoices = []string{"retry", "skip", "quit"}
)

func ask(p prompter) (string, error) {
	return choose(p, "[a]pprove [r]eject [s]kip [q]uit > ", reviewChoices)
}

// choose reads until it gets one of words or its first letter, and returns
// the letter. Interrupt and EOF mean quit.
func choose(p prompter, prompt string, words []string) (string, error) {
	for {
		line, err := p.Prompt(prompt)
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return "q", nil
		}
		if err != nil {
			return "", err
		}
		c := strings.ToLower(strings.TrimSpace(line))
		for _, word := range words {
			if c == word || c == word[:1] {
				return word[:1], nil
			}
		}
	}
}
