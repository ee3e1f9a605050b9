package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/samber/do"
	"github.com/serroba/url-shortener/internal/container"
	"github.com/serroba/url-shortener/internal/mail"
	"github.com/spf13/cobra"
)

const (
	commandTimeout      = 30 * time.Second
	consentRedirectURL  = "http://localhost:3001/oauth2callback"
	printedTokenPreview = 20
)

func mailInjector(options *container.Options) *do.Injector {
	injector := do.New()
	do.ProvideValue(injector, options)
	container.ResourcesPackage(injector)
	container.LoggerPackage(injector)
	container.MailPackage(injector)

	return injector
}

func fail(cmd *cobra.Command, err error) {
	cmd.PrintErrln("error:", err)
	os.Exit(1)
}

func addMailCommands(cli humacli.CLI) {
	cli.Root().AddCommand(&cobra.Command{
		Use:   "send-test-mail <to>",
		Short: "Send a test message through the configured mail transports",
		Args:  cobra.ExactArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, options *container.Options) {
			injector := mailInjector(options)
			defer func() { _ = injector.Shutdown() }()

			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()

			receipt, err := do.MustInvoke[*mail.Dispatcher](injector).Send(ctx, &mail.Message{
				To:      args[0],
				Subject: "Test message from url-shortener",
				Text:    "If you can read this, mail delivery works.",
			})
			if err != nil {
				fail(cmd, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "sent via %s\n", receipt.Transport)

			if receipt.PreviewURL != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "preview: %s\n", receipt.PreviewURL)
			}
		}),
	})

	cli.Root().AddCommand(&cobra.Command{
		Use:   "check-token",
		Short: "Exchange the Google refresh token for an access token",
		Run: humacli.WithOptions(func(cmd *cobra.Command, _ []string, options *container.Options) {
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()

			token, err := mail.NewOAuth2Provider(container.OAuth2Config(options)).AccessToken(ctx)
			if err != nil {
				fail(cmd, err)
			}

			preview := token
			if len(preview) > printedTokenPreview {
				preview = preview[:printedTokenPreview] + "..."
			}

			fmt.Fprintf(cmd.OutOrStdout(), "access token received: %s\n", preview)
		}),
	})

	cli.Root().AddCommand(&cobra.Command{
		Use:   "whoami",
		Short: "Show the Gmail account the refresh token belongs to",
		Run: humacli.WithOptions(func(cmd *cobra.Command, _ []string, options *container.Options) {
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()

			profile, err := mail.NewOAuth2Provider(container.OAuth2Config(options)).Profile(ctx)
			if err != nil {
				fail(cmd, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "email: %s\nmessages: %d\nthreads: %d\n",
				profile.EmailAddress, profile.MessagesTotal, profile.ThreadsTotal)
		}),
	})

	cli.Root().AddCommand(&cobra.Command{
		Use:   "refresh-token [code]",
		Short: "Print the consent URL, or exchange its authorization code for a refresh token",
		Args:  cobra.MaximumNArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, options *container.Options) {
			provider := mail.NewOAuth2Provider(container.OAuth2Config(options))

			if len(args) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "open this URL and pass the code query parameter back:\n%s\n",
					provider.AuthCodeURL(consentRedirectURL, "url-shortener"))

				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()

			token, err := provider.ExchangeCode(ctx, consentRedirectURL, args[0])
			if err != nil {
				fail(cmd, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "SERVICE_GOOGLE_REFRESH_TOKEN=%s\n", token)
		}),
	})
}
