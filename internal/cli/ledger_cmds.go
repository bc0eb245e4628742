package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"course-ledger-service/internal/config"
	"course-ledger-service/internal/domain"
	"github.com/spf13/cobra"
)

// NewIssueCmd evaluates one learner and prints the certificate decision.
func NewIssueCmd(configPath *string) *cobra.Command {
	var courseID, learnerID string
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Evaluate a learner's progress and issue or refresh their certificate",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(cmd.Context(), *configPath, func(ctx context.Context, rt *runtime) error {
				decision, err := rt.ledger.EvaluateAndIssue(ctx, courseID, learnerID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), decision)
			})
		},
	}
	cmd.Flags().StringVar(&courseID, "course", "", "course id")
	cmd.Flags().StringVar(&learnerID, "learner", "", "learner id")
	_ = cmd.MarkFlagRequired("course")
	_ = cmd.MarkFlagRequired("learner")
	return cmd
}

// NewSweepCmd re-evaluates every certificate of a course.
func NewSweepCmd(configPath *string) *cobra.Command {
	var courseID, trigger string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Regenerate or invalidate every certificate of a course",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(cmd.Context(), *configPath, func(ctx context.Context, rt *runtime) error {
				report, err := rt.ledger.SweepCourse(ctx, courseID, domain.SweepTrigger(trigger))
				if report != nil {
					if perr := printJSON(cmd.OutOrStdout(), report); perr != nil && err == nil {
						err = perr
					}
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&courseID, "course", "", "course id")
	cmd.Flags().StringVar(&trigger, "trigger", string(domain.TriggerManual), "trigger type: manual or automatic")
	_ = cmd.MarkFlagRequired("course")
	return cmd
}

// NewCheckCmd reports which certificates of a course need regeneration without changing them.
func NewCheckCmd(configPath *string) *cobra.Command {
	var courseID string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report which certificates of a course are still valid",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(cmd.Context(), *configPath, func(ctx context.Context, rt *runtime) error {
				report, err := rt.ledger.CheckNeeds(ctx, courseID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().StringVar(&courseID, "course", "", "course id")
	_ = cmd.MarkFlagRequired("course")
	return cmd
}

func withLedger(ctx context.Context, configPath string, fn func(context.Context, *runtime) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := buildRuntime(ctx, cfg, newLogger(cfg))
	if err != nil {
		return fmt.Errorf("wire ledger: %w", err)
	}
	defer rt.Close()
	return fn(ctx, rt)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
