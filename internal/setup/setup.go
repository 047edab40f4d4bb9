// Package setup registers the pneumonia risk MCP server with desktop MCP
// clients and reports on the local installation.
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	// ServerKey is the entry name written under mcpServers.
	ServerKey = "pneumonia-risk"
	// BinaryName is the executable looked up when no path is given.
	BinaryName = "pneumonia-mcp-server"
	// DataDirEnv carries the data directory to the launched server.
	DataDirEnv = "PNEUMO_DATA_DIR"
	// ProfilesFileEnv carries the calibration profiles file.
	ProfilesFileEnv = "PNEUMO_PROFILES_FILE"
)

// DesktopConfig is the subset of the desktop client configuration file this
// package manages. Other top-level keys are preserved in Extra.
type DesktopConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`
	Extra      map[string]json.RawMessage `json:"-"`
}

// MCPServerConfig launches one MCP server.
type MCPServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Options controls Configure.
type Options struct {
	ConfigPath   string // Desktop client config; empty means DesktopConfigPath()
	BinaryPath   string // Server binary; empty means search common locations
	DataDir      string
	ProfilesFile string
}

// DesktopConfigPath returns the platform location of the desktop client's
// configuration file.
func DesktopConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support", "Claude")
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			configDir = filepath.Join(xdg, "Claude")
			break
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config", "Claude")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		configDir = filepath.Join(appData, "Claude")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	return filepath.Join(configDir, "claude_desktop_config.json"), nil
}

func resolveConfigPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return DesktopConfigPath()
}

// LoadDesktopConfig reads the configuration; a missing file is an empty config.
func LoadDesktopConfig(configPath string) (*DesktopConfig, error) {
	cfg := &DesktopConfig{
		MCPServers: make(map[string]MCPServerConfig),
		Extra:      make(map[string]json.RawMessage),
	}

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return cfg, nil
	}

	if err := json.Unmarshal(data, &cfg.Extra); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if raw, ok := cfg.Extra["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &cfg.MCPServers); err != nil {
			return nil, fmt.Errorf("failed to parse mcpServers: %w", err)
		}
		delete(cfg.Extra, "mcpServers")
	}
	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]MCPServerConfig)
	}
	return cfg, nil
}

// SaveDesktopConfig writes the configuration, keeping unrelated keys.
func SaveDesktopConfig(configPath string, cfg *DesktopConfig) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := make(map[string]interface{}, len(cfg.Extra)+1)
	for k, v := range cfg.Extra {
		out[k] = v
	}
	out["mcpServers"] = cfg.MCPServers

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Configure adds or replaces the server entry and returns what was written.
func Configure(opts Options) (*MCPServerConfig, error) {
	configPath, err := resolveConfigPath(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	cfg, err := LoadDesktopConfig(configPath)
	if err != nil {
		return nil, err
	}

	binaryPath := opts.BinaryPath
	if binaryPath == "" {
		binaryPath, err = findBinary()
		if err != nil {
			return nil, fmt.Errorf("could not find server binary: %w", err)
		}
	}

	entry := MCPServerConfig{
		Command: binaryPath,
		Env:     make(map[string]string),
	}
	if opts.DataDir != "" {
		entry.Env[DataDirEnv] = opts.DataDir
	}
	if opts.ProfilesFile != "" {
		entry.Env[ProfilesFileEnv] = opts.ProfilesFile
	}

	cfg.MCPServers[ServerKey] = entry
	if err := SaveDesktopConfig(configPath, cfg); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Remove deletes the server entry. It reports whether an entry existed.
func Remove(configPath string) (bool, error) {
	configPath, err := resolveConfigPath(configPath)
	if err != nil {
		return false, err
	}

	cfg, err := LoadDesktopConfig(configPath)
	if err != nil {
		return false, err
	}
	if _, ok := cfg.MCPServers[ServerKey]; !ok {
		return false, nil
	}

	delete(cfg.MCPServers, ServerKey)
	return true, SaveDesktopConfig(configPath, cfg)
}

// findBinary looks for the server binary on PATH and in common locations.
func findBinary() (string, error) {
	if path, err := exec.LookPath(BinaryName); err == nil {
		return path, nil
	}

	home, _ := os.UserHomeDir()
	locations := []string{
		"./" + BinaryName,
		"./build/" + BinaryName,
		filepath.Join(home, ".local", "bin", BinaryName),
		"/usr/local/bin/" + BinaryName,
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			if abs, err := filepath.Abs(loc); err == nil {
				return abs, nil
			}
			return loc, nil
		}
	}

	return "", fmt.Errorf("binary '%s' not found in common locations", BinaryName)
}

// Status describes the current installation.
type Status struct {
	ConfigPath   string
	Configured   bool
	ServerPath   string
	DataDir      string
	FeedbackDB   bool
	ProfilesFile string
	Issues       []string
}

// GetStatus inspects the desktop configuration and the data directory.
func GetStatus(configPath string) (*Status, error) {
	status := &Status{Issues: []string{}}

	configPath, err := resolveConfigPath(configPath)
	if err != nil {
		status.Issues = append(status.Issues, fmt.Sprintf("Could not determine desktop config path: %v", err))
	} else {
		status.ConfigPath = configPath
		cfg, err := LoadDesktopConfig(configPath)
		if err != nil {
			status.Issues = append(status.Issues, fmt.Sprintf("Could not load desktop config: %v", err))
		} else if entry, ok := cfg.MCPServers[ServerKey]; ok {
			status.Configured = true
			status.ServerPath = entry.Command
			status.DataDir = entry.Env[DataDirEnv]
			status.ProfilesFile = entry.Env[ProfilesFileEnv]
			if _, err := os.Stat(entry.Command); os.IsNotExist(err) {
				status.Issues = append(status.Issues, fmt.Sprintf("Server binary not found at: %s", entry.Command))
			}
			if status.ProfilesFile != "" {
				if _, err := os.Stat(status.ProfilesFile); err != nil {
					status.Issues = append(status.Issues, fmt.Sprintf("Calibration profiles file not found: %s", status.ProfilesFile))
				}
			}
		}
	}

	if status.DataDir == "" {
		status.DataDir = DefaultDataDir()
	}
	if _, err := os.Stat(status.DataDir); os.IsNotExist(err) {
		status.Issues = append(status.Issues, fmt.Sprintf("Data directory will be created on first run: %s", status.DataDir))
	} else if _, err := os.Stat(filepath.Join(status.DataDir, "feedback.db")); err == nil {
		status.FeedbackDB = true
	}

	return status, nil
}

// Validate reports whether the installation is usable. Issues that resolve
// themselves on first run do not make it invalid.
func Validate(configPath string) (bool, []string) {
	status, err := GetStatus(configPath)
	if err != nil {
		return false, []string{err.Error()}
	}

	issues := status.Issues
	if !status.Configured {
		issues = append(issues, "Pneumonia risk server is not configured in the desktop client")
	} else if info, err := os.Stat(status.ServerPath); err == nil && info.Mode()&0111 == 0 {
		issues = append(issues, fmt.Sprintf("Server binary is not executable: %s", status.ServerPath))
	}

	return allWarnings(issues), issues
}

func allWarnings(issues []string) bool {
	for _, issue := range issues {
		if !strings.Contains(issue, "will be created") {
			return false
		}
	}
	return true
}

// DefaultDataDir returns the data directory used when none is configured.
func DefaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".pneumonia-risk-mcp")
}
