package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/byu-oit/byu-jwt-go/claims"
	"github.com/byu-oit/byu-jwt-go/verifier"
)

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode [token]",
		Short: "Print a token's header and claims without verifying it",
		Long:  "Print a token's header and claims without verifying it. The token is read from stdin when no argument is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := tokenArg(cmd, args)
			if err != nil {
				return err
			}

			decoded, err := verifier.Decode(token)
			if err != nil {
				return err
			}

			out := map[string]any{
				"header": decoded.Header,
				"claims": decoded.Claims,
			}
			if identity, err := claims.Normalize(decoded.Claims); err == nil {
				out["identity"] = identity
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newVerifyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify [token]",
		Short: "Verify a token against the issuer and print the normalized identity",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := tokenArg(cmd, args)
			if err != nil {
				return err
			}

			auth, err := opts.authenticator()
			if err != nil {
				return err
			}
			defer auth.Close()

			identity, err := auth.Verify(cmd.Context(), token)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), identity)
		},
	}
}

func newOpenIDConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "openid-config",
		Short: "Print the issuer's OpenID discovery document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			auth, err := opts.authenticator()
			if err != nil {
				return err
			}
			defer auth.Close()

			config, err := auth.OpenIDConfiguration(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), config)
		},
	}
}

func newCertsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "certs",
		Short: "Print the issuer's signing certificates as PEM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			auth, err := opts.authenticator()
			if err != nil {
				return err
			}
			defer auth.Close()

			certificates, err := auth.Certificates(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, cert := range certificates {
				if _, err := fmt.Fprintf(w, "# kid=%s x5t=%s\n%s\n", cert.Kid, cert.X5t, cert.PEM); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func tokenArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return strings.TrimSpace(args[0]), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	token := strings.TrimSpace(line)
	if token == "" {
		return "", errors.New("no token given")
	}
	return token, nil
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
