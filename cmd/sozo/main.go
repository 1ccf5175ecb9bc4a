// Command sozo exposes the migration and calldata-encoding helpers as a CLI,
// the developer-facing counterpart to the katana/torii/saya services.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stark-stack/core/core"
)

func main() {
	root := &cobra.Command{Use: "sozo"}
	root.AddCommand(calldataCmd())
	root.AddCommand(migrateCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func calldataCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "calldata"}
	encode := &cobra.Command{
		Use:   "encode <input>",
		Short: "encode the u256:/str:/sstr: shorthand syntax into calldata felts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			felts, err := core.EncodeCalldata(args[0])
			if err != nil {
				return err
			}
			hexes := make([]string, len(felts))
			for i, f := range felts {
				hexes[i] = f.Hex()
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(hexes, ","))
			return nil
		},
	}
	cmd.AddCommand(encode)
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "migrate"}
	udcAddress := &cobra.Command{
		Use:   "udc-address <salt> <class_hash> [ctor_arg...]",
		Short: "compute the deterministic UDC address for a salt/class/constructor-calldata tuple",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			salt, err := core.FeltFromHexOrDec(args[0])
			if err != nil {
				return fmt.Errorf("invalid salt: %w", err)
			}
			classHashFelt, err := core.FeltFromHexOrDec(args[1])
			if err != nil {
				return fmt.Errorf("invalid class hash: %w", err)
			}
			classHash := core.ClassHashFromFelt(classHashFelt)

			ctorArgs := make([]core.Felt, 0, len(args)-2)
			for _, a := range args[2:] {
				f, err := core.FeltFromHexOrDec(a)
				if err != nil {
					return fmt.Errorf("invalid constructor arg %q: %w", a, err)
				}
				ctorArgs = append(ctorArgs, f)
			}

			addr := core.UDCAddress(salt, classHash, ctorArgs)
			fmt.Fprintln(cmd.OutOrStdout(), addr.Hex())
			return nil
		},
	}
	cmd.AddCommand(udcAddress)
	return cmd
}
