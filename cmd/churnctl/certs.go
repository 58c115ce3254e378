package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bibbank/churn-service/pkg/tlsutil"
)

func newCertsCmd() *cobra.Command {
	var (
		outDir   string
		hosts    []string
		validFor time.Duration
	)
	cmd := &cobra.Command{
		Use:   "certs",
		Short: "Generate a self-signed CA and server certificate for local TLS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := tlsutil.GenerateDevCerts(hosts, outDir, validFor)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "CA certificate:     %s\n", paths.CA)
			fmt.Fprintf(out, "server certificate: %s\n", paths.ServerCrt)
			fmt.Fprintf(out, "server key:         %s\n", paths.ServerKey)
			fmt.Fprintf(out, "\nexport TLS_CERT_FILE=%s TLS_KEY_FILE=%s\n", paths.ServerCrt, paths.ServerKey)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&outDir, "out", "certs", "output directory")
	fl.StringSliceVar(&hosts, "host", []string{"localhost", "127.0.0.1"}, "DNS names or IPs the certificate is valid for")
	fl.DurationVar(&validFor, "valid-for", 365*24*time.Hour, "certificate lifetime")
	return cmd
}
