package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/iliyamo/clinic-treatment-board/internal/config"
	"github.com/iliyamo/clinic-treatment-board/internal/model"
	"github.com/iliyamo/clinic-treatment-board/internal/repository"
	"github.com/iliyamo/clinic-treatment-board/internal/utils"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	rootCmd := &cobra.Command{
		Use:          "clinic-board",
		Short:        "Treatment bay board server",
		SilenceUsage: true,
	}
	serve := serveCmd()
	rootCmd.AddCommand(serve)
	rootCmd.AddCommand(hashPasswordCmd())
	rootCmd.AddCommand(snapshotCmd())
	// running without a subcommand serves
	rootCmd.RunE = serve.RunE

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, the tick loop and replication",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg)
		},
	}
}

func hashPasswordCmd() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for STAFF_PASSWORD_HASH or DIRECTOR_PASSWORD_HASH",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plain := ""
			if len(args) == 1 {
				plain = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				plain = strings.TrimRight(line, "\r\n")
			}
			if plain == "" {
				return errors.New("password must not be empty")
			}
			hash, err := utils.HashPassword(plain, cost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", 10, "bcrypt cost")
	return cmd
}

func snapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect or reset the locally persisted board",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the stored board as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeDB, err := openSnapshotRepo(cmd.Context(), config.LoadSnapshotConfig())
			if err != nil {
				return err
			}
			defer closeDB()

			s, err := repo.Load(cmd.Context())
			if errors.Is(err, repository.ErrSnapshotNotFound) {
				fmt.Fprintln(cmd.ErrOrStderr(), "no snapshot stored")
				return nil
			}
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		},
	}

	var bays int
	var yes bool
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Replace the stored board with an empty one",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to reset without --yes")
			}
			repo, closeDB, err := openSnapshotRepo(cmd.Context(), config.LoadSnapshotConfig())
			if err != nil {
				return err
			}
			defer closeDB()

			if err := repo.Save(cmd.Context(), model.DefaultState(bays)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "snapshot reset with %d vacant bays\n", bays)
			return nil
		},
	}
	reset.Flags().IntVar(&bays, "bays", model.InitialBayCount, "number of vacant bays")
	reset.Flags().BoolVar(&yes, "yes", false, "confirm the reset")

	cmd.AddCommand(show, reset)
	return cmd
}
