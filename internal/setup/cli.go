package setup

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// CLI implements the "setup" subcommand.
type CLI struct {
	ConfigPath string
	reader     *bufio.Reader
	out        io.Writer
}

// NewCLI creates a setup CLI reading answers from stdin.
func NewCLI() *CLI {
	return NewCLIWithIO(os.Stdin, os.Stdout)
}

// NewCLIWithIO creates a setup CLI with explicit streams.
func NewCLIWithIO(in io.Reader, out io.Writer) *CLI {
	return &CLI{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Run executes the setup command named by args[0].
func (c *CLI) Run(args []string) error {
	if len(args) == 0 {
		return c.showHelp()
	}

	switch args[0] {
	case "claude-desktop", "install":
		return c.install(args[1:])
	case "remove", "uninstall":
		return c.remove()
	case "status":
		return c.showStatus()
	case "validate":
		return c.validate()
	case "help", "--help", "-h":
		return c.showHelp()
	default:
		fmt.Fprintf(c.out, "Unknown command: %s\n\n", args[0])
		return c.showHelp()
	}
}

func (c *CLI) showHelp() error {
	fmt.Fprint(c.out, `
Pneumonia Risk MCP Server Setup

Usage:
  pneumonia-mcp-server setup <command> [options]

Commands:
  install    Register the server with the desktop MCP client
  remove     Remove the server registration
  status     Show current setup status
  validate   Validate current configuration

Install options:
  --binary, -b <path>     Server binary (default: this executable)
  --data-dir, -d <path>   Data directory for feedback and exports
  --profiles, -p <path>   Calibration profiles YAML file
  --config, -c <path>     Desktop client config file
  --auto, -y              Do not ask for confirmation
`)
	return nil
}

func (c *CLI) install(args []string) error {
	var opts Options
	auto := false

	for i := 0; i < len(args); i++ {
		next := func() string {
			if i+1 < len(args) {
				i++
				return args[i]
			}
			return ""
		}
		switch args[i] {
		case "--binary", "-b":
			opts.BinaryPath = next()
		case "--data-dir", "-d":
			opts.DataDir = next()
		case "--profiles", "-p":
			opts.ProfilesFile = next()
		case "--config", "-c":
			c.ConfigPath = next()
		case "--auto", "-y":
			auto = true
		}
	}
	opts.ConfigPath = c.ConfigPath

	if opts.BinaryPath == "" {
		if execPath, err := os.Executable(); err == nil {
			opts.BinaryPath = execPath
		}
	}

	configPath, err := resolveConfigPath(opts.ConfigPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Config file: %s\n", configPath)
	fmt.Fprintf(c.out, "Server binary: %s\n", opts.BinaryPath)
	if opts.DataDir != "" {
		fmt.Fprintf(c.out, "Data directory: %s\n", opts.DataDir)
	}
	if opts.ProfilesFile != "" {
		fmt.Fprintf(c.out, "Calibration profiles: %s\n", opts.ProfilesFile)
	}

	if !auto && !c.confirm("Proceed with configuration? [Y/n]: ", true) {
		fmt.Fprintln(c.out, "Configuration cancelled.")
		return nil
	}

	if _, err := Configure(opts); err != nil {
		return fmt.Errorf("failed to configure desktop client: %w", err)
	}

	fmt.Fprintln(c.out, "Desktop client configured. Restart it to load the pneumonia risk tools.")
	return nil
}

func (c *CLI) remove() error {
	removed, err := Remove(c.ConfigPath)
	if err != nil {
		return err
	}
	if removed {
		fmt.Fprintln(c.out, "Server registration removed.")
	} else {
		fmt.Fprintln(c.out, "Server was not registered.")
	}
	return nil
}

func (c *CLI) showStatus() error {
	status, err := GetStatus(c.ConfigPath)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out, "Pneumonia Risk MCP Server Status")
	fmt.Fprintf(c.out, "  Config path:  %s\n", status.ConfigPath)
	fmt.Fprintf(c.out, "  Configured:   %s\n", mark(status.Configured))
	if status.Configured {
		fmt.Fprintf(c.out, "  Binary:       %s\n", status.ServerPath)
	}
	fmt.Fprintf(c.out, "  Data dir:     %s\n", status.DataDir)
	fmt.Fprintf(c.out, "  Feedback DB:  %s\n", mark(status.FeedbackDB))
	if status.ProfilesFile != "" {
		fmt.Fprintf(c.out, "  Profiles:     %s\n", status.ProfilesFile)
	}

	for _, issue := range status.Issues {
		fmt.Fprintf(c.out, "  ! %s\n", issue)
	}
	return nil
}

func (c *CLI) validate() error {
	valid, issues := Validate(c.ConfigPath)
	if valid {
		fmt.Fprintln(c.out, "Configuration is valid.")
		return nil
	}

	fmt.Fprintln(c.out, "Configuration has issues:")
	for _, issue := range issues {
		fmt.Fprintf(c.out, "  - %s\n", issue)
	}
	return fmt.Errorf("setup is not valid")
}

func (c *CLI) confirm(prompt string, fallback bool) bool {
	fmt.Fprint(c.out, prompt)
	response, _ := c.reader.ReadString('\n')
	switch strings.TrimSpace(strings.ToLower(response)) {
	case "":
		return fallback
	case "y", "yes":
		return true
	default:
		return false
	}
}

func mark(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}
