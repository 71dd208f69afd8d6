package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"vkdump/pkg/auth"
	"vkdump/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage VK access tokens",
	Long: `Manage stored VK access tokens securely.

Tokens are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - VKDUMP_TOKEN environment variable (read-only fallback)

Never share your token or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [name]",
	Short: "Store a VK access token securely",
	Long: `Store a VK access token in the system keychain or encrypted file.

To get a token, authorize a VK application with the messages, wall and
groups scopes and copy the access_token value from the redirect URL.
The token is read from a hidden prompt and never echoed.`,
	Example: `  # Store the default token
  vkdump auth login

  # Store a token under a name
  vkdump auth login work`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [name]",
	Short: "Remove a stored token",
	Args:  cobra.MaximumNArgs(1),
	Run:   runLogout,
}

// statusCmd represents the auth status command
var statusCmd = &cobra.Command{
	Use:   "status [name]",
	Short: "Show whether a token is stored",
	Args:  cobra.MaximumNArgs(1),
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(statusCmd)
}

func tokenName(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "default"
}

func runLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize token store", err.Error())
		os.Exit(1)
	}

	name := tokenName(args)

	if manager.Exists(name) {
		reader := bufio.NewReader(os.Stdin)
		fmt.Printf("Token '%s' already exists. Replace it? (y/N): ", name)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Print("VK access token (input is hidden): ")
	accessToken, err := readSecret()
	if err != nil {
		ui.PrintError("Failed to read token", err.Error())
		os.Exit(1)
	}
	if accessToken == "" {
		ui.PrintError("Token must not be empty")
		os.Exit(1)
	}

	token := &auth.Token{
		Name:        name,
		AccessToken: accessToken,
	}
	if err := manager.Store(token); err != nil {
		ui.PrintError("Failed to store token", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Token stored: " + name)
	fmt.Println("\nStart an export with:")
	fmt.Println("  $ vkdump dump --mode dialogs")
}

func runLogout(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize token store", err.Error())
		os.Exit(1)
	}

	name := tokenName(args)
	if err := manager.Delete(name); err != nil {
		ui.PrintError("Failed to remove token", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Token removed: " + name)
}

func runStatus(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize token store", err.Error())
		os.Exit(1)
	}

	name := tokenName(args)
	token, err := manager.Retrieve(name)
	if err != nil {
		ui.PrintWarning("No token stored under '" + name + "'")
		fmt.Println("Run 'vkdump auth login' to store one.")
		os.Exit(1)
	}

	ui.PrintInfo("Token", name)
	ui.PrintInfo("Value", maskToken(token.AccessToken))
	if !token.LastModified.IsZero() {
		ui.PrintInfo("Stored", token.LastModified.Format("2006-01-02 15:04:05"))
	}
}

// maskToken shows just enough of a token to recognize it
func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// readSecret reads a value from stdin without echoing
func readSecret() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	// Fallback to regular input when stdin is not a terminal
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
