package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/diagnosis/verifywoo/services/auth/internal/domain"
)

func settingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change SMS gateway and login settings",
	}
	cmd.AddCommand(settingsShowCmd(a), setGatewayCmd(a), setGeneralCmd(a))
	return cmd
}

func settingsShowCmd(a *app) *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the stored settings as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			gateway, err := store.GatewaySettings(cmd.Context())
			if err != nil {
				return err
			}
			general, err := store.GeneralSettings(cmd.Context())
			if err != nil {
				return err
			}
			if !reveal {
				gateway.KavenegarAPIKey = maskSecret(gateway.KavenegarAPIKey)
			}

			enc := json.NewEncoder(a.out)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{
				domain.OptionGatewaySettings: gateway,
				domain.OptionGeneralSettings: general,
			})
		},
	}
	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print the API key unmasked")
	return cmd
}

func setGatewayCmd(a *app) *cobra.Command {
	var s domain.GatewaySettings

	cmd := &cobra.Command{
		Use:   "set-gateway",
		Short: "Change SMS gateway settings; omitted flags keep their stored value",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("provider") && !contains(a.factory.Names(), s.Provider) {
				return fmt.Errorf("unknown provider %q (available: %s)", s.Provider, strings.Join(a.factory.Names(), ", "))
			}

			store, closeStore, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			current, err := store.GatewaySettings(cmd.Context())
			if err != nil {
				return err
			}
			if flags.Changed("active") {
				current.Active = s.Active
			}
			if flags.Changed("provider") {
				current.Provider = s.Provider
			}
			if flags.Changed("pattern") {
				current.Pattern = s.Pattern
			}
			if flags.Changed("api-key") {
				current.KavenegarAPIKey = s.KavenegarAPIKey
			}
			if flags.Changed("sender") {
				current.KavenegarSender = s.KavenegarSender
			}
			if flags.Changed("insecure") {
				current.KavenegarInsecure = s.KavenegarInsecure
			}

			if err := store.SaveGatewaySettings(cmd.Context(), current); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Gateway settings saved.")
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&s.Active, "active", false, "Enable OTP login")
	f.StringVar(&s.Provider, "provider", "", "SMS driver name")
	f.StringVar(&s.Pattern, "pattern", "", "Provider template name; empty sends the code as plain text")
	f.StringVar(&s.KavenegarAPIKey, "api-key", "", "Kavenegar API key")
	f.StringVar(&s.KavenegarSender, "sender", "", "Kavenegar sender line number")
	f.BoolVar(&s.KavenegarInsecure, "insecure", false, "Call Kavenegar over plain HTTP")
	return cmd
}

func setGeneralCmd(a *app) *cobra.Command {
	var s domain.GeneralSettings

	cmd := &cobra.Command{
		Use:   "set-general",
		Short: "Change registration and redirect settings; omitted flags keep their stored value",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()

			store, closeStore, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			current, err := store.GeneralSettings(cmd.Context())
			if err != nil {
				return err
			}
			if flags.Changed("auto-register") {
				current.AutoRegister = s.AutoRegister
			}
			if flags.Changed("default-role") {
				current.DefaultRole = s.DefaultRole
			}
			if flags.Changed("username-prefix") {
				current.UsernamePrefix = s.UsernamePrefix
			}
			if flags.Changed("login-redirect") {
				current.LoginRedirectURL = s.LoginRedirectURL
			}
			if flags.Changed("checkout-redirect") {
				current.CheckoutRedirect = s.CheckoutRedirect
			}

			if err := store.SaveGeneralSettings(cmd.Context(), current); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "General settings saved.")
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&s.AutoRegister, "auto-register", true, "Create accounts for unknown phones")
	f.StringVar(&s.DefaultRole, "default-role", domain.RoleCustomer, "Role given to new accounts")
	f.StringVar(&s.UsernamePrefix, "username-prefix", "customer_", "Login prefix for new accounts")
	f.StringVar(&s.LoginRedirectURL, "login-redirect", "/my-account/", "Where the browser goes after login")
	f.BoolVar(&s.CheckoutRedirect, "checkout-redirect", false, "Send guests from checkout to the login page")
	return cmd
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
