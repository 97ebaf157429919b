// File: cmd/credentials.go
package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/postlens/internal/config"
	"github.com/xkilldash9x/postlens/internal/observability"
)

const defaultKeyringService = "postlens"

// newCredentialsCmd groups commands that manage the stored account secret.
func newCredentialsCmd() *cobra.Command {
	credsCmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manages the LinkedIn password kept in the OS keychain",
	}
	credsCmd.AddCommand(newCredentialsSetCmd())
	return credsCmd
}

func newCredentialsSetCmd() *cobra.Command {
	var identifier, service string

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Reads a password from stdin and stores it in the OS keychain",
		Long: `Reads a password from standard input and stores it in the OS keychain under
the given identifier. Set linkedin.credentials.keyring_service to the same
service name so later runs resolve the secret from the keychain.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfig(cmd)
			if err != nil {
				return err
			}
			if identifier == "" {
				identifier = cfg.LinkedIn.Credentials.Identifier
			}
			if identifier == "" {
				return errors.New("an identifier is required (use --identifier or linkedin.credentials.identifier)")
			}
			if service == "" {
				service = cfg.LinkedIn.Credentials.KeyringService
			}
			if service == "" {
				service = defaultKeyringService
			}

			secret, err := readSecret(cmd.InOrStdin())
			if err != nil {
				return err
			}
			if err := config.StoreSecret(service, identifier, secret); err != nil {
				return err
			}

			creds, _ := config.NewCredentials(identifier, secret)
			observability.GetLogger().Info("Secret stored in keyring.",
				zap.String("service", service),
				zap.Object("credentials", creds),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "Stored secret for %s in keyring service %q.\n", identifier, service)
			return nil
		},
	}

	setCmd.Flags().StringVar(&identifier, "identifier", "", "account identifier (defaults to linkedin.credentials.identifier)")
	setCmd.Flags().StringVar(&service, "service", "", "keyring service name (defaults to linkedin.credentials.keyring_service or \"postlens\")")
	return setCmd
}

// readSecret takes the first line of r, without its line ending.
func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	secret := strings.TrimRight(line, "\r\n")
	if secret == "" {
		return "", errors.New("no secret provided on stdin")
	}
	return secret, nil
}
