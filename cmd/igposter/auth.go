package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"igposter/pkg/auth"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored Instagram credentials",
	Long: `Manage stored Instagram credentials securely.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read-only fallback)

A stored session token lets "igposter post" use the api publishing
method without a password login.

To get the session values:
1. Log into Instagram in your browser
2. Open Developer Tools (F12)
3. Go to Application/Storage > Cookies
4. Copy the sessionid and csrftoken values`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store credentials securely",
	Long: `Store Instagram credentials in the system keychain or encrypted file.

You will be prompted for a password and/or a session ID. Either one is
enough; when both are stored the session is preferred at posting time.`,
	Example: `  # Interactive login
  igposter auth login

  # Login with username
  igposter auth login myusername`,
	Args: cobra.MaximumNArgs(1),
	Run:  runAuthLogin,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts",
	Long:  `List all stored Instagram accounts with sensitive values masked.`,
	Run:   runAuthList,
}

// removeCmd represents the auth remove command
var removeCmd = &cobra.Command{
	Use:     "remove <username>",
	Short:   "Remove stored credentials",
	Example: `  igposter auth remove myusername`,
	Args:    cobra.ExactArgs(1),
	Run:     runAuthRemove,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(listCmd)
	authCmd.AddCommand(removeCmd)
}

func runAuthLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error: credential manager unavailable:", err)
		os.Exit(1)
	}

	reader := bufio.NewReader(os.Stdin)

	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		username = promptLine(reader, "Instagram username: ")
	}
	if username == "" {
		fmt.Fprintln(os.Stderr, "Error: username is required")
		os.Exit(1)
	}

	password := promptSecret("Password (leave empty to store a session instead): ")
	sessionID := promptSecret("Session ID (sessionid cookie, optional): ")

	var csrfToken string
	if sessionID != "" {
		csrfToken = promptLine(reader, "CSRF token (csrftoken cookie, optional): ")
	}
	userAgent := promptLine(reader, "User agent (optional, Enter for default): ")

	account := &auth.Account{
		Username:  username,
		Password:  password,
		SessionID: sessionID,
		CSRFToken: csrfToken,
		UserAgent: userAgent,
	}

	if err := manager.Store(account); err != nil {
		fmt.Fprintln(os.Stderr, "Error: could not store credentials:", err)
		os.Exit(1)
	}

	fmt.Printf("Credentials for %s stored.\n", username)
}

func runAuthList(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error: credential manager unavailable:", err)
		os.Exit(1)
	}

	accounts, err := manager.List()
	if err != nil || len(accounts) == 0 {
		fmt.Println("No stored accounts.")
		return
	}

	fmt.Printf("Stored accounts (%d):\n", len(accounts))
	for _, account := range accounts {
		masked := auth.SanitizeAccount(account)
		fmt.Printf("  %s\n", masked.Username)
		if masked.Password != "" {
			fmt.Printf("    password:   %s\n", masked.Password)
		}
		if masked.SessionID != "" {
			fmt.Printf("    session_id: %s\n", masked.SessionID)
		}
		if !masked.LastModified.IsZero() {
			fmt.Printf("    updated:    %s\n", masked.LastModified.Format("2006-01-02 15:04"))
		}
	}
}

func runAuthRemove(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error: credential manager unavailable:", err)
		os.Exit(1)
	}

	username := args[0]
	if err := manager.Delete(username); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	fmt.Printf("Credentials for %s removed.\n", username)
}

func promptLine(reader *bufio.Reader, prompt string) string {
	fmt.Print(prompt)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func promptSecret(prompt string) string {
	fmt.Print(prompt)
	value, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(value))
}
