package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/jsexpertdev/ostad-ai-agent/pkg/server"
	"github.com/jsexpertdev/ostad-ai-agent/pkg/travel"
	"github.com/spf13/cobra"
)

var (
	planUserID      string
	planAirlines    []string
	planAmenities   []string
	planBudgetLevel string
)

var planCmd = &cobra.Command{
	Use:   "plan <query>",
	Short: "Run one plan request and print the JSON response",
	Long: `Run one plan request through the agents and print the response body
the HTTP service would return. The command fails when the plan is rejected.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planUserID, "user-id", "", "id of the requesting user (required)")
	planCmd.Flags().StringSliceVar(&planAirlines, "airline", nil, "preferred airline, repeatable")
	planCmd.Flags().StringSliceVar(&planAmenities, "amenity", nil, "desired hotel amenity, repeatable")
	planCmd.Flags().StringVar(&planBudgetLevel, "budget-level", "", "budget level, e.g. budget, moderate, luxury")
	_ = planCmd.MarkFlagRequired("user-id")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	a, err := newApp(stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	req := travel.PlanRequest{
		Query:             strings.Join(args, " "),
		UserID:            planUserID,
		PreferredAirlines: planAirlines,
		HotelAmenities:    planAmenities,
		BudgetLevel:       planBudgetLevel,
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Server.RequestTimeout)
	defer cancel()

	result, err := a.service.Planner.Plan(ctx, req, nil)
	status, body := server.Response(result, err)

	out, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if status != http.StatusOK {
		return fmt.Errorf("plan failed with status %d", status)
	}
	return nil
}
