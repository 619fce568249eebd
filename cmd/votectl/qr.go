package main

import (
	"errors"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ideavote/internal/platform/qrcode"
)

var (
	qrURL  string
	qrOut  string
	qrSize int
)

var qrCmd = &cobra.Command{
	Use:   "qr",
	Short: "Render a QR code PNG that points at the voting page",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := qrURL
		if target == "" {
			target = cfg.PublicBaseURL
		}
		if target == "" {
			return errors.New("--url is required when PUBLIC_BASE_URL is not set")
		}
		png, err := qrcode.PNG(target, qrSize)
		if err != nil {
			return err
		}
		if err := os.WriteFile(qrOut, png, 0o644); err != nil {
			return err
		}
		color.Green("wrote %s (%dpx, %s) for %s", qrOut, qrSize, humanize.Bytes(uint64(len(png))), target)
		return nil
	},
}

func init() {
	qrCmd.Flags().StringVar(&qrURL, "url", "", "content to encode (default PUBLIC_BASE_URL)")
	qrCmd.Flags().StringVar(&qrOut, "out", "qr.png", "output file")
	qrCmd.Flags().IntVar(&qrSize, "size", qrcode.DefaultSize, "image width and height in pixels")
}
