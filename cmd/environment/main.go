package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/sensemesh/iot-control-loop/internal/pkg/application/device"
	"github.com/sensemesh/iot-control-loop/internal/pkg/application/environment"
	"github.com/sensemesh/iot-control-loop/internal/pkg/infrastructure/buildinfo"
	"github.com/sensemesh/iot-control-loop/internal/pkg/infrastructure/logging"
	"github.com/sensemesh/iot-control-loop/internal/pkg/infrastructure/router"
	"github.com/sensemesh/iot-control-loop/internal/pkg/infrastructure/tracing"
	"github.com/sensemesh/iot-control-loop/internal/pkg/presentation/api"
)

const serviceName string = "environment"

type flagType int
type flagMap map[flagType]string

const (
	servicePort flagType = iota
	opsPort
	seedFile
)

func defaultFlags() flagMap {
	return flagMap{
		servicePort: "5454",
		opsPort:     "",
		seedFile:    "",
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	flags := parseExternalConfig(defaultFlags())

	serviceVersion := buildinfo.SourceVersion()
	ctx, logger := logging.NewLogger(ctx, serviceName, serviceVersion)
	logger.Info().Msg("starting up ...")

	cleanup, err := tracing.Init(ctx, logger, serviceName, serviceVersion)
	exitIf(err, logger, "failed to init tracing")
	defer cleanup()

	port, err := strconv.Atoi(flags[servicePort])
	exitIf(err, logger, "invalid service port")

	env := environment.New("environment", "Environment")

	if flags[seedFile] != "" {
		seed, err := os.Open(flags[seedFile])
		exitIf(err, logger, "could not open seed file")
		err = env.Seed(ctx, seed)
		seed.Close()
		exitIf(err, logger, "could not seed the environment")
	}

	startOps(ctx, logger, flags[opsPort], env.Status)

	err = env.Run(ctx, device.LocalIP(), port)
	exitIf(err, logger, "failed to run the environment")
}

func parseExternalConfig(flags flagMap) flagMap {
	// Allow environment variables to override certain defaults
	flags[servicePort] = envOrDef("SERVICE_PORT", flags[servicePort])
	flags[opsPort] = envOrDef("OPS_PORT", flags[opsPort])
	flags[seedFile] = envOrDef("SEED_FILE", flags[seedFile])

	apply := func(f flagType) func(string) error {
		return func(value string) error {
			flags[f] = value
			return nil
		}
	}

	// Allow command line arguments to override defaults and environment variables
	flag.Func("port", "TCP port to serve on", apply(servicePort))
	flag.Func("ops", "HTTP port for the ops endpoints", apply(opsPort))
	flag.Func("seed", "YAML file of generators to pre-register", apply(seedFile))
	flag.Parse()

	return flags
}

func envOrDef(name, def string) string {
	if value, ok := os.LookupEnv(name); ok {
		return value
	}
	return def
}

func startOps(ctx context.Context, logger zerolog.Logger, port string, status api.StatusFunc) {
	if port == "" {
		return
	}

	handlers := api.RegisterHandlers(ctx, router.New(serviceName), status)
	go func() {
		if err := http.ListenAndServe(":"+port, handlers); err != nil {
			logger.Error().Err(err).Msg("ops listener failed")
		}
	}()
}

func exitIf(err error, logger zerolog.Logger, msg string) {
	if err != nil {
		logger.Fatal().Err(err).Msg(msg)
	}
}
