// Package cli — dump.go implements the "homematic-exporter dump" commands.
//
// The dump commands query the CCU once and print the raw result, which is
// the fastest way to find out which parameters a device exposes and what
// the interface daemon actually returns, before pointing Prometheus at
// the exporter.
package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/homematic-exporter/internal/ccu"
	"github.com/mmr-tortoise/homematic-exporter/internal/model"
)

// dumpFlags holds the connection flags shared by the dump subcommands.
type dumpFlags struct {
	ccuHost string
	ccuPort int
	ccuUser string
	ccuPass string
}

// NewDumpCommand creates the "dump" cobra command with its subcommands.
func NewDumpCommand() *cobra.Command {
	flags := &dumpFlags{}

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Dump raw CCU data for debugging",
		Long: `Dump raw data from the CCU interface daemon.

Examples:
  homematic-exporter dump devices --ccu-host ccu.local
  homematic-exporter dump parameters 000955699D3D84:1 --ccu-host ccu.local
  homematic-exporter dump device-names --ccu-host ccu.local --ccu-user Admin --ccu-pass secret`,
	}

	cmd.PersistentFlags().StringVar(&flags.ccuHost, "ccu-host", "", "Hostname or IP of the CCU (required)")
	cmd.PersistentFlags().IntVar(&flags.ccuPort, "ccu-port", ccu.DefaultPort, "XML-RPC port of the CCU interface daemon")
	cmd.PersistentFlags().StringVar(&flags.ccuUser, "ccu-user", "", "Username for the CCU JSON-RPC API")
	cmd.PersistentFlags().StringVar(&flags.ccuPass, "ccu-pass", "", "Password for the CCU JSON-RPC API")

	cmd.AddCommand(newDumpDevicesCommand(flags))
	cmd.AddCommand(newDumpParametersCommand(flags))
	cmd.AddCommand(newDumpDeviceNamesCommand(flags))

	return cmd
}

// dumpClient builds the CCU client from the shared connection flags.
func dumpClient(flags *dumpFlags) (*ccu.Client, error) {
	if flags.ccuHost == "" {
		return nil, model.NewCLIError(model.ExitInvalidArgument, "--ccu-host is required")
	}
	client, err := ccu.NewClient(ccu.Options{
		Host:     flags.ccuHost,
		Port:     flags.ccuPort,
		Username: flags.ccuUser,
		Password: flags.ccuPass,
	})
	if err != nil {
		return nil, model.WrapCLIError(model.ExitInvalidArgument, "setting up CCU client", err)
	}
	return client, nil
}

// newDumpDevicesCommand creates "dump devices": the full device tree as
// reported by listDevices.
func newDumpDevicesCommand(flags *dumpFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "Dump the device tree of the interface daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dumpClient(flags)
			if err != nil {
				return err
			}

			devices, err := client.ListDevices()
			if err != nil {
				return model.WrapCLIError(model.ExitCCUUnreachable, "listing devices", err)
			}

			if IsJSONOutput() {
				return printJSON(devices)
			}
			for i := range devices {
				device := &devices[i]
				if device.IsTopLevel() {
					fmt.Printf("%s  %s (%d channels)\n", device.Address, device.Type, len(device.Children))
				} else {
					fmt.Printf("  %s  %s\n", device.Address, device.Type)
				}
			}
			return nil
		},
	}
}

// newDumpParametersCommand creates "dump parameters <address>": the VALUES
// paramset and its description for one channel.
func newDumpParametersCommand(flags *dumpFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "parameters <address>",
		Short: "Dump the VALUES paramset of a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address := args[0]

			client, err := dumpClient(flags)
			if err != nil {
				return err
			}

			values, err := client.Paramset(address, "VALUES")
			if err != nil {
				return model.WrapCLIError(model.ExitCCUUnreachable,
					fmt.Sprintf("reading paramset of %s", address), err)
			}
			descriptions, err := client.ParamsetDescription(address, "VALUES")
			if err != nil {
				return model.WrapCLIError(model.ExitCCUUnreachable,
					fmt.Sprintf("reading paramset description of %s", address), err)
			}

			if IsJSONOutput() {
				return printJSON(map[string]interface{}{
					"values":      values,
					"description": descriptions,
				})
			}

			// Stable order for eyeballing and for diffing two dumps.
			keys := make([]string, 0, len(descriptions))
			for key := range descriptions {
				keys = append(keys, key)
			}
			sort.Strings(keys)

			for _, key := range keys {
				desc := descriptions[key]
				fmt.Printf("%-32s %-8s unit=%q value=%v\n", key, desc.Type, desc.Unit, values[key])
			}
			return nil
		},
	}
}

// newDumpDeviceNamesCommand creates "dump device-names": the address to
// display name mapping from the CCU JSON-RPC API.
func newDumpDeviceNamesCommand(flags *dumpFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "device-names",
		Short: "Dump the address to display name mapping",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dumpClient(flags)
			if err != nil {
				return err
			}

			names, err := client.DeviceNames(cmd.Context())
			if err != nil {
				return model.WrapCLIError(model.ExitCCUUnreachable, "fetching device names", err)
			}

			if IsJSONOutput() {
				return printJSON(names)
			}

			addresses := make([]string, 0, len(names))
			for address := range names {
				addresses = append(addresses, address)
			}
			sort.Strings(addresses)

			for _, address := range addresses {
				fmt.Printf("%-20s %s\n", address, names[address])
			}
			return nil
		},
	}
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "encoding output", err)
	}
	fmt.Println(string(data))
	return nil
}
