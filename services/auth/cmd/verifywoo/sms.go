package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diagnosis/verifywoo/internal/utils"
	"github.com/diagnosis/verifywoo/services/auth/internal/hooks"
	"github.com/diagnosis/verifywoo/services/auth/internal/sms"
)

func smsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sms",
		Short: "Exercise the configured SMS gateway",
	}
	cmd.AddCommand(smsSendCmd(a))
	return cmd
}

func smsSendCmd(a *app) *cobra.Command {
	var (
		to      string
		message string
		pattern string
		tokens  = map[string]*string{}
		opts    sms.SendOptions
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a test message through the stored gateway settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			phone := utils.DigitsOnly(to)
			if phone == "" {
				return errors.New("--to must contain a phone number")
			}
			if (message == "") == (pattern == "") {
				return errors.New("exactly one of --message or --pattern is required")
			}

			store, closeStore, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			settings, err := store.GatewaySettings(cmd.Context())
			if err != nil {
				return err
			}
			gateway, err := a.factory.Driver(settings.Provider, settings.DriverSettings())
			if err != nil {
				return err
			}

			var ok bool
			if pattern != "" {
				data := sms.PatternData{}
				for key, v := range tokens {
					if *v != "" {
						data[key] = *v
					}
				}
				ok = gateway.SendByPattern(cmd.Context(), phone, pattern, data, opts)
			} else {
				ok = gateway.Send(cmd.Context(), phone, message, opts)
			}

			if !ok {
				return fmt.Errorf("%s gateway did not accept the message; see the logs for the provider response", gateway.Name())
			}
			fmt.Fprintf(a.out, "Accepted by %s.\n", gateway.Name())
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&to, "to", "", "Receiver phone number")
	f.StringVar(&message, "message", "", "Plain text body")
	f.StringVar(&pattern, "pattern", "", "Provider template name")
	for _, key := range []string{"token", "token2", "token3", "token10", "token20"} {
		tokens[key] = f.String(key, "", "Template "+key)
	}
	f.StringVar(&opts.Type, "type", "", "Provider message type")
	f.StringVar(&opts.LocalID, "local-id", "", "Caller-side message id")
	f.Int64Var(&opts.Date, "date", 0, "Unix time for delayed delivery")
	return cmd
}

func hooksCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "hooks",
		Short: "List extension points",
		Run: func(cmd *cobra.Command, args []string) {
			for _, p := range hooks.Points() {
				fmt.Fprintf(a.out, "%-40s %-7s %s\n", p.Name, p.Type, p.Description)
			}
		},
	}
}
