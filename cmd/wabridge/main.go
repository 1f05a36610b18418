package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Abraxas-365/craftable/logx"
	"github.com/fatih/color"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"

	"github.com/Abraxas-365/wabridge/internal/backend"
	"github.com/Abraxas-365/wabridge/internal/config"
	"github.com/Abraxas-365/wabridge/internal/conversation"
	"github.com/Abraxas-365/wabridge/internal/eventlog"
	"github.com/Abraxas-365/wabridge/internal/metaapi"
	"github.com/Abraxas-365/wabridge/internal/task"
	"github.com/Abraxas-365/wabridge/internal/webhook"
)

const version = "0.1.0"

const shutdownTimeout = 10 * time.Second

func main() {
	root := &cobra.Command{
		Use:           "wabridge",
		Short:         "WhatsApp Cloud API webhook relay",
		Long:          "wabridge receives WhatsApp Business webhook events, relays text messages to a backend chat service and sends the replies back through the Meta send API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.AddCommand(newServeCommand())

	if err := root.Execute(); err != nil {
		color.New(color.FgHiRed, color.Bold).Fprintf(os.Stderr, "Error: ")
		color.New(color.FgHiWhite).Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newServeCommand() *cobra.Command {
	var (
		addr    string
		envFile string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(envFile)
			if err != nil {
				return err
			}
			if addr != "" {
				settings.ServerAddr = addr
			}
			return serve(cmd.Context(), settings)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides WABRIDGE_SERVER_ADDR)")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "path to an optional .env file")
	return cmd
}

func serve(ctx context.Context, settings *config.Settings) error {
	printBanner(settings)

	events, err := newEventStore(ctx, settings)
	if err != nil {
		return err
	}

	manager := conversation.NewManager(newBackendClient(settings), newMetaClient(settings), conversation.Options{
		RetentionWindow: settings.RetentionWindow,
	})

	handler := webhook.NewHandler(
		webhook.HandlerConfig{
			VerifyToken:         settings.MetaVerifyToken,
			DeploymentType:      settings.DeploymentType,
			Maintenance:         settings.Maintenance,
			MessageAgeThreshold: settings.MessageAgeThreshold,
		},
		webhook.NewSignatureVerifier(webhook.SplitSecrets(settings.MetaAppSecrets)),
		webhook.NewParser(settings.MetaPhoneNumberID),
		webhook.Responder{AlwaysOK: settings.AlwaysOKToMeta},
		manager,
		events,
		webhook.PrefixDevFilter(settings.DevFilterPrefix),
	)

	app := fiber.New(fiber.Config{
		AppName:               "wabridge " + version,
		DisableStartupMessage: true,
		ErrorHandler:          webhook.ErrorHandler(),
	})
	handler.Register(app)

	errc := make(chan error, 1)
	go func() {
		logx.Info("listening on %s", settings.ServerAddr)
		errc <- app.Listen(settings.ServerAddr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errc:
		return err
	case sig := <-stop:
		logx.Info("received %s, shutting down", sig)
	}

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logx.Error("server shutdown: %v", err)
	}

	// Message processing spawned by the webhook handler keeps running
	// after the listener closes; drain it before releasing resources.
	task.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := events.Close(closeCtx); err != nil {
		logx.Error("event store close: %v", err)
	}

	logx.Info("shutdown complete")
	return nil
}

func newBackendClient(settings *config.Settings) backend.Client {
	if settings.MockBackend {
		return backend.NewMock(backend.MockOptions{
			MinLatency: 200 * time.Millisecond,
			MaxLatency: 2 * time.Second,
			ErrorRate:  settings.MockErrorRate,
		})
	}
	return backend.NewHTTPClient(backend.HTTPConfig{
		BaseURL: settings.BackendURL,
		APIKey:  settings.BackendAPIKey,
	})
}

func newMetaClient(settings *config.Settings) metaapi.Client {
	if settings.MockMeta {
		return metaapi.NewMock()
	}
	return metaapi.NewGraphClient(metaapi.GraphConfig{
		APIVersion:    settings.MetaAPIVersion,
		PhoneNumberID: settings.MetaPhoneNumberID,
		AccessToken:   settings.MetaAccessToken,
	})
}

func newEventStore(ctx context.Context, settings *config.Settings) (eventlog.Store, error) {
	switch settings.EventLogDriver {
	case "postgres":
		return eventlog.NewPostgresStore(ctx, settings.EventLogPostgresDSN)
	case "mongo":
		return eventlog.NewMongoStore(ctx, settings.EventLogMongoURI)
	default:
		return eventlog.NewMemoryStore(), nil
	}
}

func printBanner(settings *config.Settings) {
	name := color.New(color.FgHiCyan, color.Bold)
	dim := color.New(color.FgHiBlack)

	name.Printf("wabridge %s", version)
	dim.Printf("  deployment=%s maintenance=%v eventlog=%s\n",
		settings.DeploymentType, settings.Maintenance, settings.EventLogDriver)
}
