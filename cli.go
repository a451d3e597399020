package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var version = "dev"

var (
	configPath  string
	boardFlag   string
	backendFlag string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "hatdriver",
	Short: "Set up the chip select lines of a Bricklet HAT and run an example on it",
	Long: `hatdriver deselects every chip select line of a Bricklet HAT (or HAT Zero)
on a Raspberry Pi, initializes the HAL and runs the chip select monitor
example until it receives SIGINT or SIGTERM.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDriver,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Initialize the HAL and run the example (default)",
	RunE:  runDriver,
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "Print the port table of a board",
	RunE: func(cmd *cobra.Command, _ []string) error {
		id := boardFlag
		if id == "" {
			id = DefaultConfig().Board
		}
		b, ok := LookupBoard(id)
		if !ok {
			return fmt.Errorf("unknown board %q (known: %s)", id, strings.Join(BoardIDs(), ", "))
		}
		cmd.Printf("%s (device identifier %d)\n", b.DisplayName, b.DeviceIdentifier)
		for _, p := range b.Ports() {
			cmd.Printf("  %c  GPIO%d\n", p.Name, p.ChipSelectPin)
		}
		return nil
	},
}

var boardsCmd = &cobra.Command{
	Use:   "boards",
	Short: "List the built-in boards",
	Run: func(cmd *cobra.Command, _ []string) {
		for _, id := range BoardIDs() {
			b, _ := LookupBoard(id)
			cmd.Printf("%-10s %s\n", id, b.Description)
		}
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print a bcrypt hash for status.password_hash",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var password string
		if len(args) == 1 {
			password = args[0]
		} else {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return errors.New("no password given and stdin is not a terminal")
			}
			cmd.Print("Password: ")
			b, err := term.ReadPassword(int(os.Stdin.Fd()))
			cmd.Println()
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			password = string(b)
		}
		if password == "" {
			return errors.New("empty password")
		}
		hash, err := hashPassword(password)
		if err != nil {
			return err
		}
		cmd.Println(hash)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("hatdriver version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "configuration file")
	rootCmd.PersistentFlags().StringVarP(&boardFlag, "board", "b", "", "board variant (overrides the config file)")
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "chip select backend: periph, gpiocdev or sim")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "print debug output")

	rootCmd.AddCommand(runCmd, portsCmd, boardsCmd, hashPasswordCmd, versionCmd)
}

// loadConfig reads the config file and applies the command-line overrides.
func loadConfig() (*ConfigManager, error) {
	cfgMgr := NewConfigManager(configPath)
	if err := cfgMgr.Load(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfgMgr.Override(func(c *Config) {
		if boardFlag != "" {
			c.Board = boardFlag
		}
		if backendFlag != "" {
			c.Backend = backendFlag
		}
		if verboseFlag {
			c.Verbose = true
		}
	})
	if err := cfgMgr.Get().Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", cfgMgr.Path(), err)
	}
	return cfgMgr, nil
}

func runDriver(cmd *cobra.Command, _ []string) error {
	cfgMgr, err := loadConfig()
	if err != nil {
		return err
	}
	app, err := NewApp(cfgMgr.Get(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return app.Run(cmd.Context())
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
