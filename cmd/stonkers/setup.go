package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/kerbaras/stonkers/pkg/auth"
	"github.com/kerbaras/stonkers/pkg/config"
	"github.com/spf13/cobra"
)

var (
	apiKey      string
	redirectURI string
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Store the API credentials and sign in",
	Long:  "Write the TD Ameritrade API key and redirect URI to the credentials file, then run the browser login to obtain a token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		in := bufio.NewReader(os.Stdin)

		if apiKey == "" {
			key, err := promptConfirmed(os.Stderr, "API key", func() ([]byte, error) {
				return term.ReadPassword(os.Stdin.Fd())
			})
			if err != nil {
				return fmt.Errorf("reading API key: %w", err)
			}
			apiKey = key
		}

		if redirectURI == "" {
			fmt.Fprint(os.Stderr, "Redirect URI: ")
			line, err := in.ReadString('\n')
			if err != nil {
				return fmt.Errorf("reading redirect URI: %w", err)
			}
			redirectURI = strings.TrimSpace(line)
		}

		creds := &config.Credentials{APIKey: apiKey, RedirectURI: redirectURI}
		if err := creds.Validate(); err != nil {
			return err
		}

		if _, err := config.EnsureAppDir(); err != nil {
			return err
		}
		if err := config.SaveCredentials(credsFile, creds); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Credentials written to %s\n", credsFile)

		a := auth.New(*creds, tokenFile)
		a.In = in
		if _, err := a.Login(cmd.Context()); err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Token written to %s\n", tokenFile)
		return nil
	},
}

// promptConfirmed reads a hidden value twice and asks again until both
// entries match.
func promptConfirmed(w io.Writer, label string, read func() ([]byte, error)) (string, error) {
	for {
		fmt.Fprintf(w, "%s: ", label)
		first, err := read()
		fmt.Fprintln(w)
		if err != nil {
			return "", err
		}

		fmt.Fprint(w, "Repeat for confirmation: ")
		second, err := read()
		fmt.Fprintln(w)
		if err != nil {
			return "", err
		}

		a, b := strings.TrimSpace(string(first)), strings.TrimSpace(string(second))
		if a == b {
			return a, nil
		}
		fmt.Fprintln(w, "Error: the two entered values do not match")
	}
}

func init() {
	setupCmd.Flags().StringVarP(&apiKey, "api-key", "a", os.Getenv("API_KEY"), "API key of the TD Ameritrade app (env API_KEY)")
	setupCmd.Flags().StringVarP(&redirectURI, "redirect-uri", "r", os.Getenv("REDIRECT_URI"), "Redirect URI of the TD Ameritrade app (env REDIRECT_URI)")

	rootCmd.AddCommand(setupCmd)
}
