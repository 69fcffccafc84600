package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

// TokenExchange trades a username and password for an API token.
type TokenExchange func(ctx context.Context, baseURL, username, password string) (string, error)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage server credentials",
	Long: `Store the server URL and API token used for every request.

Examples:
  # Exchange a username and password for a token
  docsync auth login --server https://paperless.example.com --username alice

  # Use an existing token
  docsync auth login --server https://paperless.example.com --token 0123abcd

  # Prompt for a token without echo
  docsync auth login --server https://paperless.example.com

  # Forget the token
  docsync auth logout`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the server URL and API token",
	Args:  cobra.NoArgs,
	RunE:  runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored API token",
	Args:  cobra.NoArgs,
	RunE:  runAuthLogout,
}

// Flags for auth login.
var (
	loginServer   string
	loginScheme   string
	loginUsername string
	loginToken    string
)

func init() {
	authLoginCmd.Flags().StringVar(&loginServer, "server", "", "Server base URL (defaults to the stored URL)")
	authLoginCmd.Flags().StringVar(&loginScheme, "scheme", string(domain.AuthSchemeToken),
		"Authorization scheme (Token or Bearer)")
	authLoginCmd.Flags().StringVar(&loginUsername, "username", "", "Exchange this user's password for a token")
	authLoginCmd.Flags().StringVar(&loginToken, "token", "", "API token (prompted if omitted)")

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthLogin(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	server := strings.TrimSpace(loginServer)
	if server == "" {
		settings, err := settingsService.Get()
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}
		server = settings.Server.URL
	}
	if server == "" {
		return errors.New("server URL is required: pass --server")
	}

	scheme := domain.AuthScheme(loginScheme)
	if !scheme.IsValid() {
		return fmt.Errorf("unsupported auth scheme %q: use Token or Bearer", loginScheme)
	}

	token := strings.TrimSpace(loginToken)
	switch {
	case token != "":
	case loginUsername != "":
		if obtainToken == nil {
			return errors.New("token exchange not configured")
		}
		cmd.Print("Password: ")
		password := readPassword()
		cmd.Println()
		exchanged, err := obtainToken(cmd.Context(), server, loginUsername, password)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		token = exchanged
	default:
		cmd.Print("API token: ")
		token = readPassword()
		cmd.Println()
	}
	if token == "" {
		return errors.New("an API token is required")
	}

	if err := settingsService.SetServer(server, scheme); err != nil {
		return fmt.Errorf("failed to save server: %w", err)
	}
	if err := settingsService.SetToken(token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	if err := settingsService.Validate(); err != nil {
		return fmt.Errorf("invalid server settings: %w", err)
	}

	cmd.Printf("Logged in to %s.\n", server)
	return nil
}

func runAuthLogout(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	if err := settingsService.SetToken(""); err != nil {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	cmd.Println("Logged out.")
	return nil
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read password without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}
