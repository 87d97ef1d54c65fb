package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"arclight-ai/ballast/pkg/cli"
	"arclight-ai/ballast/pkg/fingerprint"
)

var keysFlags struct {
	format string
	full   bool
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Inspect configured credentials",
	Long: `Inspect the credentials a configuration resolves to, by fingerprint.

Credentials are opaque upstream API keys. Everything outside the dispatch
path refers to them by the first 8 hex characters of their SHA-256 digest;
this command never prints a raw key.

Subcommands:
  list - List resolved credentials by fingerprint
  id   - Fingerprint a credential read from stdin

Examples:
  # List credentials from the default config
  ballast keys list

  # Match a log line's key id back to a credential you hold
  echo -n "$API_KEY" | ballast keys id`,
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List resolved credentials by fingerprint",
	Long: `Resolve the configured credential sources (inline keys or key file) and
list each credential's fingerprint, position, and length.

Examples:
  # Plain listing
  ballast keys list

  # Machine-readable listing
  ballast keys list --format csv`,
	RunE: listKeys,
}

var keysIDCmd = &cobra.Command{
	Use:   "id",
	Short: "Fingerprint a credential from stdin",
	Long: `Read a credential from stdin and print its fingerprint.

The credential comes from stdin rather than an argument so raw keys stay
out of shell history and process listings. Trailing whitespace is trimmed,
matching how key files are read.

Examples:
  # Short id, as used in logs and ledger records
  echo -n "$API_KEY" | ballast keys id

  # Full SHA-256 digest
  echo -n "$API_KEY" | ballast keys id --full`,
	RunE: identifyKey,
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysListCmd, keysIDCmd)

	keysListCmd.Flags().StringVar(&keysFlags.format, "format", "text", "output format: text, json, csv")
	keysIDCmd.Flags().BoolVar(&keysFlags.full, "full", false, "print the full SHA-256 digest")
}

// keyListing is one row of `keys list` output.
type keyListing struct {
	Position int    `json:"position"`
	KeyID    string `json:"key_id"`
	Length   int    `json:"length"`
	Source   string `json:"source"`
}

func listKeys(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	keys, err := cfg.ResolveKeys()
	if err != nil {
		return cli.NewCommandError("keys", err)
	}

	source := "inline"
	if len(cfg.Credentials.Keys) == 0 {
		source = cfg.Credentials.KeyFile
	}

	listings := make([]keyListing, len(keys))
	for i, key := range keys {
		listings[i] = keyListing{
			Position: i,
			KeyID:    "sha256:" + fingerprint.ShortID(key),
			Length:   len(key),
			Source:   source,
		}
	}

	switch keysFlags.format {
	case "json":
		formatter := &cli.JSONFormatter{Indent: true}
		return formatter.FormatTo(os.Stdout, map[string]interface{}{
			"pool":  cfg.Credentials.PoolName,
			"total": len(listings),
			"keys":  listings,
		})
	case "csv":
		formatter := &cli.CSVFormatter{
			Headers: []string{"position", "key_id", "length", "source"},
		}
		rows := make([][]string, len(listings))
		for i, l := range listings {
			rows[i] = []string{
				strconv.Itoa(l.Position),
				l.KeyID,
				strconv.Itoa(l.Length),
				l.Source,
			}
		}
		return formatter.FormatTo(os.Stdout, rows)
	default:
		fmt.Printf("Pool %q: %d credential(s) from %s\n", cfg.Credentials.PoolName, len(listings), source)
		fmt.Println()
		for _, l := range listings {
			fmt.Printf("  [%d] %s (%d chars)\n", l.Position, l.KeyID, l.Length)
		}
		return nil
	}
}

func identifyKey(cmd *cobra.Command, args []string) error {
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return cli.NewCommandError("keys", fmt.Errorf("failed to read credential from stdin: %w", err))
	}

	key := strings.TrimSpace(string(data))
	if key == "" {
		return cli.NewCommandError("keys", fmt.Errorf("no credential on stdin"))
	}

	out := cmd.OutOrStdout()
	if keysFlags.full {
		fmt.Fprintf(out, "sha256:%s\n", fingerprint.HexSum([]byte(key)))
	} else {
		fmt.Fprintf(out, "sha256:%s\n", fingerprint.ShortID(key))
	}
	return nil
}
