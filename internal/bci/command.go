package bci

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/braid-engine/braid/bconsensus"
	"github.com/braid-engine/braid/bcrypto"
	"github.com/braid-engine/braid/bmodels"
	"github.com/braid-engine/braid/btime"
)

// Roll and balance granted to the staking key created by braid init.
// A single-node network needs every roll in one place to win every
// draw, so the exact numbers only matter once more nodes join.
const (
	initialRolls   = 1000
	initialBalance = 1_000_000_000
)

func NewRootCommand(log *slog.Logger) *cobra.Command {
	rootCmd := &cobra.Command{
		Use: "braid SUBCOMMAND",

		CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},

		Long: `braid runs a node maintaining a slot-sliced block graph.

The node home directory holds the config file, the encrypted staking
keys, the initial rolls and ledger files, and the block database.
Start from "braid init" to lay out a home directory for a
self-contained single-node network.
`,
	}

	rootCmd.PersistentFlags().String("home", defaultHomeDir(), "node home directory")

	rootCmd.AddCommand(
		newInitCmd(log),
		newStartCmd(log),
		newKeysCmd(log),
	)

	return rootCmd
}

func defaultHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".braid"
	}
	return filepath.Join(home, ".braid")
}

func homeDirFromFlags(cmd *cobra.Command) (string, error) {
	return cmd.Flags().GetString("home")
}

func newInitCmd(log *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use: "init",

		Short: "Initialize a node home directory for a single-node network",

		Long: `init lays out a node home directory: a default config file, an
encrypted staking key file holding one new key, and initial rolls and
ledger files granting that key the whole stake. The genesis timestamp
is set to now, so a subsequent "braid start" begins producing blocks
immediately.
`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			homeDir, err := homeDirFromFlags(cmd)
			if err != nil {
				return err
			}
			password, err := cmd.Flags().GetString("password")
			if err != nil {
				return err
			}

			if err := os.MkdirAll(homeDir, 0o700); err != nil {
				return fmt.Errorf("failed to create home directory: %w", err)
			}

			cfg := DefaultNodeConfig(homeDir)
			cfg.Consensus.GenesisTimestamp = btime.Now()

			// Written first so that a second init on the same home
			// fails before touching any key material.
			if err := WriteNodeConfig(ConfigPath(homeDir), cfg); err != nil {
				return err
			}

			signer, err := bcrypto.GenerateEd25519Signer()
			if err != nil {
				return fmt.Errorf("failed to generate staking key: %w", err)
			}
			addr := bmodels.AddressFromPublicKey(signer.PubKey())

			if err := bconsensus.SaveStakingKeys(
				cfg.Consensus.StakingKeysPath, password,
				[]bcrypto.Ed25519Signer{signer},
			); err != nil {
				return fmt.Errorf("failed to write staking key file: %w", err)
			}

			rolls, err := marshalJSONFile(map[string]uint64{addr.String(): initialRolls})
			if err != nil {
				return fmt.Errorf("failed to encode initial rolls: %w", err)
			}
			if err := os.WriteFile(cfg.Consensus.InitialRollsPath, rolls, 0o644); err != nil {
				return fmt.Errorf("failed to write initial rolls file: %w", err)
			}

			ledger, err := marshalJSONFile(map[string]LedgerEntry{
				addr.String(): {Balance: initialBalance},
			})
			if err != nil {
				return fmt.Errorf("failed to encode initial ledger: %w", err)
			}
			if err := os.WriteFile(cfg.Consensus.InitialLedgerPath, ledger, 0o644); err != nil {
				return fmt.Errorf("failed to write initial ledger file: %w", err)
			}

			log.Info(
				"Initialized node home directory",
				"dir", homeDir, "staking_address", addr,
			)
			return nil
		},
	}

	cmd.Flags().String("password", "", "password sealing the staking key file")
	cobra.CheckErr(cmd.MarkFlagRequired("password"))

	return cmd
}

func newStartCmd(log *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use: "start",

		Short: "Run the node until interrupted",

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			homeDir, err := homeDirFromFlags(cmd)
			if err != nil {
				return err
			}
			password, err := cmd.Flags().GetString("password")
			if err != nil {
				return err
			}
			ephemeral, err := cmd.Flags().GetBool("ephemeral")
			if err != nil {
				return err
			}

			cfg, err := LoadNodeConfig(ConfigPath(homeDir))
			if err != nil {
				return err
			}

			return runNode(cmd.Context(), log, homeDir, cfg, password, ephemeral)
		},
	}

	cmd.Flags().String("password", "", "password for the staking key file")
	cmd.Flags().Bool("ephemeral", false, "keep blocks in memory instead of the on-disk database")

	return cmd
}

func newKeysCmd(log *slog.Logger) *cobra.Command {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage the encrypted staking key file",
	}

	generateCmd := &cobra.Command{
		Use: "generate",

		Short: "Add a staking key to the key file",

		Long: `generate adds one staking key to the encrypted key file, creating
the file when it does not exist yet. The new key is random unless
--insecure-passphrase is given, in which case it is derived from the
passphrase for reproducible development setups.

The new key's address is written to stdout.
`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			homeDir, err := homeDirFromFlags(cmd)
			if err != nil {
				return err
			}
			password, err := cmd.Flags().GetString("password")
			if err != nil {
				return err
			}
			passphrase, err := cmd.Flags().GetString("insecure-passphrase")
			if err != nil {
				return err
			}

			path := DefaultNodeConfig(homeDir).Consensus.StakingKeysPath
			signers, err := bconsensus.LoadStakingKeys(path, password)
			if err != nil {
				return fmt.Errorf("failed to load staking key file: %w", err)
			}

			var signer bcrypto.Ed25519Signer
			if passphrase != "" {
				signer, err = SignerFromInsecurePassphrase("braid-staking|", passphrase)
			} else {
				signer, err = bcrypto.GenerateEd25519Signer()
			}
			if err != nil {
				return fmt.Errorf("failed to create staking key: %w", err)
			}

			signers = append(signers, signer)
			if err := bconsensus.SaveStakingKeys(path, password, signers); err != nil {
				return fmt.Errorf("failed to write staking key file: %w", err)
			}

			addr := bmodels.AddressFromPublicKey(signer.PubKey())
			log.Info("Added staking key", "path", path, "keys", len(signers))

			// Logs go to stderr; the address goes to stdout.
			fmt.Fprintln(cmd.OutOrStdout(), addr)
			return nil
		},
	}
	generateCmd.Flags().String("password", "", "password sealing the staking key file")
	cobra.CheckErr(generateCmd.MarkFlagRequired("password"))
	generateCmd.Flags().String("insecure-passphrase", "", "derive the key from this passphrase instead of random bytes")

	showCmd := &cobra.Command{
		Use: "show",

		Short: "List the addresses of the staking keys",

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			homeDir, err := homeDirFromFlags(cmd)
			if err != nil {
				return err
			}
			password, err := cmd.Flags().GetString("password")
			if err != nil {
				return err
			}

			path := DefaultNodeConfig(homeDir).Consensus.StakingKeysPath
			signers, err := bconsensus.LoadStakingKeys(path, password)
			if err != nil {
				return fmt.Errorf("failed to load staking key file: %w", err)
			}

			for _, s := range signers {
				fmt.Fprintln(cmd.OutOrStdout(), bmodels.AddressFromPublicKey(s.PubKey()))
			}
			return nil
		},
	}
	showCmd.Flags().String("password", "", "password for the staking key file")
	cobra.CheckErr(showCmd.MarkFlagRequired("password"))

	keysCmd.AddCommand(generateCmd, showCmd)
	return keysCmd
}

// marshalJSONFile renders v as indented JSON with a trailing newline.
func marshalJSONFile(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
