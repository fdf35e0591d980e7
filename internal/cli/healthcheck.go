// Package cli — healthcheck.go implements the container health check.
//
// The command probes the exporter's own /healthz endpoint and exits 0 or
// 1, so the container image needs no extra shell or curl for its
// HEALTHCHECK.
package cli

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/homematic-exporter/internal/model"
	"github.com/mmr-tortoise/homematic-exporter/internal/server"
)

// healthcheckTimeout bounds the probe. The serve loop answers /healthz
// without touching the CCU, so anything slower than this means the
// process is wedged.
const healthcheckTimeout = 3 * time.Second

// NewHealthcheckCommand creates the "healthcheck" cobra command.
func NewHealthcheckCommand() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Probe the exporter's /healthz endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealthcheck(port)
		},
	}

	cmd.Flags().IntVar(&port, "listen-port", server.DefaultPort, "Port the exporter listens on")

	return cmd
}

// runHealthcheck probes /healthz on the loopback interface.
func runHealthcheck(port int) error {
	client := &http.Client{Timeout: healthcheckTimeout}

	url := fmt.Sprintf("http://127.0.0.1:%d/healthz", port)
	resp, err := client.Get(url)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "exporter not reachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("exporter unhealthy: %s returned %d", url, resp.StatusCode))
	}

	fmt.Println("ok")
	return nil
}
