package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/vangers-settings/internal/application"
	"github.com/eugenenazirov/vangers-settings/internal/config"
	"github.com/eugenenazirov/vangers-settings/internal/document"
	"github.com/eugenenazirov/vangers-settings/internal/logging"
	"github.com/eugenenazirov/vangers-settings/internal/settings"
)

var signalNotify = signal.Notify

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	kingpinApp := kingpin.New("settingsctl", "Vangers settings loader - validates, prints and serves the engine settings document")
	kingpinApp.UsageWriter(stderr)
	kingpinApp.ErrorWriter(stderr)
	kingpinApp.Terminate(nil)

	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	envFile := kingpinApp.Flag("env-file", "Path to a dotenv file with environment defaults").String()
	settingsPath := kingpinApp.Flag("settings", "Path to the settings document (.yaml, .yml, .json or .hcl)").String()
	logLevel := kingpinApp.Flag("log-level", "Log level: debug, info, warn or error").String()

	checkCmd := kingpinApp.Command("check", "Load and validate a settings document")
	checkPath := checkCmd.Arg("path", "Settings document to check").String()
	dataCheck := checkCmd.Flag("data-check", "Also verify that data_path points at the game resources").Bool()

	dumpCmd := kingpinApp.Command("dump", "Print the resolved settings")
	dumpPath := dumpCmd.Arg("path", "Settings document to print").String()
	dumpFormat := dumpCmd.Flag("format", "Output format: yaml, json or hcl").Default("yaml").Enum("yaml", "json", "hcl")

	serveCmd := kingpinApp.Command("serve", "Serve the current settings over HTTP and reload them on change")
	port := serveCmd.Flag("port", "HTTP port exposed by the service").String()
	watchFlag := serveCmd.Flag("watch", "Reload when the settings file changes on disk (true or false)").Default("").Enum("", "true", "false")
	reloadRPSFlag := serveCmd.Flag("reload-rps", "Reloads per second allowed (set 0 to disable throttling)").Default("-1").Float64()
	reloadBurstFlag := serveCmd.Flag("reload-burst", "Burst capacity for reload throttling").Default("-1").Int()
	rateLimitRPSFlag := serveCmd.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := serveCmd.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	command, err := kingpinApp.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "settingsctl: %v\n", err)
		return exitUsage
	}

	overrides := &config.CLIOverrides{
		ConfigFile: *configFile,
		EnvFile:    *envFile,
	}
	if *settingsPath != "" {
		overrides.SettingsPath = settingsPath
	}
	if *logLevel != "" {
		overrides.LogLevel = logLevel
	}

	switch command {
	case checkCmd.FullCommand():
		if *checkPath != "" {
			overrides.SettingsPath = checkPath
		}
		cfg, err := config.Load(overrides)
		if err != nil {
			fmt.Fprintf(stderr, "failed to load configuration: %v\n", err)
			return exitFailure
		}
		return runCheck(cfg.SettingsPath, *dataCheck, stdout, stderr)

	case dumpCmd.FullCommand():
		if *dumpPath != "" {
			overrides.SettingsPath = dumpPath
		}
		cfg, err := config.Load(overrides)
		if err != nil {
			fmt.Fprintf(stderr, "failed to load configuration: %v\n", err)
			return exitFailure
		}
		return runDump(cfg.SettingsPath, document.Format(*dumpFormat), stdout, stderr)

	case serveCmd.FullCommand():
		if *port != "" {
			overrides.Port = port
		}
		if *watchFlag != "" {
			watch := *watchFlag == "true"
			overrides.Watch = &watch
		}
		if *reloadRPSFlag >= 0 {
			overrides.ReloadRPS = reloadRPSFlag
		}
		if *reloadBurstFlag >= 0 {
			overrides.ReloadBurst = reloadBurstFlag
		}
		if *rateLimitRPSFlag >= 0 {
			overrides.RateLimitRPS = rateLimitRPSFlag
		}
		if *rateLimitBurstFlag >= 0 {
			overrides.RateLimitBurst = rateLimitBurstFlag
		}
		return runServe(overrides, stderr)
	}

	return exitUsage
}

func runCheck(path string, dataCheck bool, stdout, stderr io.Writer) int {
	s, err := settings.Load(path)
	if err != nil {
		fmt.Fprintln(stderr, describeError(err))
		return exitFailure
	}

	if dataCheck {
		if err := s.CheckDataPath(); err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", path, err)
			return exitFailure
		}
	}

	fmt.Fprintf(stdout, "%s: ok (level %s, backend %s, window %dx%d)\n",
		path, s.Game.Level, s.Backend, s.Window.Size.Width, s.Window.Size.Height)
	return exitOK
}

func runDump(path string, format document.Format, stdout, stderr io.Writer) int {
	s, err := settings.Load(path)
	if err != nil {
		fmt.Fprintln(stderr, describeError(err))
		return exitFailure
	}

	out, err := document.Encode(settings.Encode(s), format)
	if err != nil {
		fmt.Fprintf(stderr, "encode settings: %v\n", err)
		return exitFailure
	}
	if _, err := stdout.Write(out); err != nil {
		fmt.Fprintf(stderr, "write settings: %v\n", err)
		return exitFailure
	}
	return exitOK
}

// describeError prefixes loader errors with their kind so scripts can match on it.
func describeError(err error) string {
	var settingsErr *settings.Error
	if errors.As(err, &settingsErr) {
		return fmt.Sprintf("%s: %v", settingsErr.Kind, settingsErr)
	}
	return err.Error()
}

func runServe(overrides *config.CLIOverrides, stderr io.Writer) int {
	cfg, err := config.Load(overrides)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load configuration: %v\n", err)
		return exitFailure
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize logger: %v\n", err)
		return exitFailure
	}
	defer func() {
		_ = logger.Sync()
	}()

	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application", zap.Error(err))
		return exitFailure
	}

	if err := app.Start(); err != nil {
		logger.Error("failed to start server", zap.Error(err))
		return exitFailure
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
	app.StopWatching()
	return exitOK
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
