package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ideavote/internal/domain/auth"
	"ideavote/internal/platform/crypto"
	"ideavote/internal/platform/qrcode"
)

var (
	adminEmail    string
	adminPassword string
	adminReset    bool
	adminTOTP     bool
	adminQROut    string
	adminIssuer   string
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin credentials",
}

var adminAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an admin credential, optionally enrolling a TOTP second factor",
	RunE: func(cmd *cobra.Command, args []string) error {
		if adminEmail == "" || adminPassword == "" {
			return errors.New("--email and --password are required")
		}
		if len(adminPassword) < 12 {
			color.Yellow("warning: passwords shorter than 12 characters are rejected in production seeds")
		}
		sealer, err := crypto.NewSealer(cfg.DataEncryptionKey)
		if err != nil {
			return err
		}
		if adminTOTP && !sealer.Configured() {
			color.Yellow("warning: DATA_ENCRYPTION_KEY is not set, the TOTP secret is stored unencrypted")
		}

		pool, err := openPool(rootCtx)
		if err != nil {
			return err
		}
		defer pool.Close()

		svc := auth.NewService(auth.NewStore(pool), sealer)
		admin, created, err := svc.EnsureAdmin(rootCtx, adminEmail, adminPassword)
		if err != nil {
			return err
		}
		switch {
		case created:
			color.Green("admin %s created", admin.Email)
		case adminReset:
			if err := svc.SetPassword(rootCtx, admin.Email, adminPassword); err != nil {
				return err
			}
			color.Green("admin %s password updated", admin.Email)
		default:
			color.Yellow("admin %s already exists, password unchanged (use --reset)", admin.Email)
		}

		if !adminTOTP {
			return nil
		}
		key, err := svc.EnrollTOTP(rootCtx, admin.Email, adminIssuer)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "otpauth url: %s\n", key.URL())
		if adminQROut != "" {
			png, err := qrcode.PNG(key.URL(), 256)
			if err != nil {
				return err
			}
			if err := os.WriteFile(adminQROut, png, 0o600); err != nil {
				return err
			}
			color.Green("authenticator QR code written to %s", adminQROut)
		}
		return nil
	},
}

func init() {
	adminAddCmd.Flags().StringVar(&adminEmail, "email", "", "admin email")
	adminAddCmd.Flags().StringVar(&adminPassword, "password", "", "admin password")
	adminAddCmd.Flags().BoolVar(&adminReset, "reset", false, "overwrite the password of an existing admin")
	adminAddCmd.Flags().BoolVar(&adminTOTP, "totp", false, "enroll a TOTP second factor")
	adminAddCmd.Flags().StringVar(&adminQROut, "qr-out", "", "write the TOTP enrollment QR code to this PNG file")
	adminAddCmd.Flags().StringVar(&adminIssuer, "issuer", "IdeaVote", "issuer shown in authenticator apps")
	adminCmd.AddCommand(adminAddCmd)
}
