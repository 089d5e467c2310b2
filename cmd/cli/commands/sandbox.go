package commands

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"github.com/upgrowplan/upgrowplan/internal/app"
	"github.com/upgrowplan/upgrowplan/internal/logger"
	"github.com/upgrowplan/upgrowplan/internal/sandbox"
)

// Sandbox flag names
const (
	flagPort          = "port"
	flagStepsPerStage = "steps-per-stage"
)

// GetSandboxCmd returns the command running the simulated job service
func GetSandboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Run a local simulated job service",
		Long: `Runs an in-memory job service that speaks the same HTTP API as the Upgrowplan
backends. Every status read advances a job one step. Submission params select the
scenario: {"simulate": "failed"}, {"simulate": "needs_adjustment"} or {"flaky": 2}.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			port := cfg.Sandbox.Port
			if cmd.Flags().Changed(flagPort) {
				port, _ = cmd.Flags().GetString(flagPort)
			}
			steps := cfg.Sandbox.StepsPerStage
			if cmd.Flags().Changed(flagStepsPerStage) {
				steps, _ = cmd.Flags().GetInt(flagStepsPerStage)
			}

			ln, err := net.Listen("tcp", net.JoinHostPort("", port))
			if err != nil {
				return fmt.Errorf("failed to listen on port %s: %w", port, err)
			}

			fiberApp := app.NewApp(sandbox.NewStore(registry(), steps))

			go func() {
				<-cmd.Context().Done()
				if err := fiberApp.Shutdown(); err != nil {
					logger.Errorf("Sandbox shutdown failed: %v", err)
				}
			}()

			logger.InfoWithFields("Sandbox job service listening", map[string]interface{}{
				"address":         ln.Addr().String(),
				"steps_per_stage": steps,
			})
			return fiberApp.Listener(ln)
		},
	}
	cmd.Flags().String(flagPort, "8080", "Port to listen on")
	cmd.Flags().Int(flagStepsPerStage, sandbox.DefaultStepsPerStage, "Status reads spent in each stage")
	return cmd
}
