package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"library-catalog/library"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

var (
	configFile    string
	exportFormat  string
	exportOut     string
	hashFromStdin bool

	cfg    Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "library",
	Short:         "Library catalog manager",
	Long:          "Tracks books, students and borrow/return transactions in flat files.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig(viper.New(), configFile, cmd.Flags())
		if err != nil {
			return err
		}
		logger = newLogger(cfg.Verbose)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := openCatalog()
		if err != nil {
			return err
		}
		m := newMenu(cat, os.Stdin, cmd.OutOrStdout(), cfg.AdminPasswordHash)
		m.readPassword = readPassword
		return m.run()
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the catalog as JSON or into a SQLite database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := openCatalog()
		if err != nil {
			return err
		}
		switch exportFormat {
		case "json":
			if exportOut == "" || exportOut == "-" {
				return cat.WriteJSON(cmd.OutOrStdout())
			}
			f, err := os.Create(exportOut)
			if err != nil {
				return err
			}
			if err := cat.WriteJSON(f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		case "sqlite":
			if exportOut == "" {
				return fmt.Errorf("--out is required for sqlite export")
			}
			if err := cat.ExportSQLite(exportOut); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported catalog to %s\n", exportOut)
			return nil
		default:
			return fmt.Errorf("unknown export format %q (want json or sqlite)", exportFormat)
		}
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Print a bcrypt hash for the admin-password-hash setting",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			password string
			err      error
		)
		if hashFromStdin {
			sc := bufio.NewScanner(cmd.InOrStdin())
			if sc.Scan() {
				password = strings.TrimSpace(sc.Text())
			}
			err = sc.Err()
		} else {
			password, err = readPassword("New admin password: ")
		}
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		hash, err := library.HashPassword(password)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file (default ./library.yaml or $HOME/.library/library.yaml)")
	pf.StringP("data-dir", "d", ".", "directory holding books.txt, students.txt and transactions.txt")
	pf.String("history-file", "operation_history.txt", "audit log file, relative to the data directory")
	pf.BoolP("verbose", "v", false, "enable debug logging")

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "export format: json or sqlite")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output path (json defaults to stdout)")
	hashPasswordCmd.Flags().BoolVar(&hashFromStdin, "stdin", false, "read the password from stdin instead of the terminal")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(hashPasswordCmd)
	rootCmd.AddCommand(configCmd)
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("session", uuid.NewString())
}

func openCatalog() (*library.Catalog, error) {
	cat, err := library.Open(cfg.DataDir,
		library.WithLogger(logger),
		library.WithHistoryFile(cfg.HistoryPath()),
	)
	if err != nil {
		return nil, fmt.Errorf("open catalog in %s: %w", cfg.DataDir, err)
	}
	return cat, nil
}

// readPassword reads a password from the terminal without echoing it.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	fmt.Println()
	return strings.TrimSpace(string(bytePassword)), nil
}
