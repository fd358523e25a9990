// The demo runs the whole loop in one process: an environment, a controller,
// and a paired Thermo-5000 sensor and actuator sharing one device id. The
// devices still find each other over real mDNS, exactly as they would when
// started separately.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sensemesh/iot-control-loop/internal/pkg/application/actuator"
	"github.com/sensemesh/iot-control-loop/internal/pkg/application/controller"
	"github.com/sensemesh/iot-control-loop/internal/pkg/application/device"
	"github.com/sensemesh/iot-control-loop/internal/pkg/application/environment"
	"github.com/sensemesh/iot-control-loop/internal/pkg/application/sensor"
	"github.com/sensemesh/iot-control-loop/internal/pkg/infrastructure/buildinfo"
	"github.com/sensemesh/iot-control-loop/internal/pkg/infrastructure/logging"
	"github.com/sensemesh/iot-control-loop/internal/pkg/infrastructure/router"
	"github.com/sensemesh/iot-control-loop/internal/pkg/infrastructure/tracing"
	"github.com/sensemesh/iot-control-loop/internal/pkg/presentation/api"
	"github.com/sensemesh/iot-control-loop/pkg/types"
)

const serviceName string = "demo"

const (
	environmentPort = 5454
	controllerPort  = 6565
	sensorPort      = 8787
	actuatorPort    = 9898
)

type flagType int
type flagMap map[flagType]string

const (
	opsPort flagType = iota
	seedFile
	containerMode
)

func defaultFlags() flagMap {
	return flagMap{
		opsPort:       "",
		seedFile:      "",
		containerMode: "false",
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

	env := environment.New("environment", "Environment")
	if flags[seedFile] != "" {
		seed, err := os.Open(flags[seedFile])
		exitIf(err, logger, "could not open seed file")
		err = env.Seed(ctx, seed)
		seed.Close()
		exitIf(err, logger, "could not seed the environment")
	}

	pair := types.ID(uuid.NewString())
	s := sensor.NewThermo5000(pair, "My Thermo-5000")
	a := actuator.NewThermo5000(pair, "My Thermo-5000")
	c := controller.New("controller", "Controller", flags[containerMode] == "true")

	// one process, one ops listener: the controller sees the most
	startOps(ctx, logger, flags[opsPort], c.Status)

	ip := device.LocalIP()

	errs := make(chan error, 4)
	go func() { errs <- env.Run(ctx, ip, environmentPort) }()
	go func() { errs <- c.Run(ctx, ip, controllerPort) }()
	go func() { errs <- s.Run(ctx, ip, sensorPort) }()
	go func() { errs <- a.Run(ctx, ip, actuatorPort) }()

	logger.Info().Msgf("the loop is up; watch it at http://%s/ui", types.NewAddress(ip.String(), controllerPort))

	select {
	case err := <-errs:
		exitIf(err, logger, "a device failed")
	case <-ctx.Done():
		logger.Info().Msg("shutting down ...")
	}
}

func parseExternalConfig(flags flagMap) flagMap {
	// Allow environment variables to override certain defaults
	flags[opsPort] = envOrDef("OPS_PORT", flags[opsPort])
	flags[seedFile] = envOrDef("SEED_FILE", flags[seedFile])
	flags[containerMode] = envOrDef("CONTAINER_MODE", flags[containerMode])

	apply := func(f flagType) func(string) error {
		return func(value string) error {
			flags[f] = value
			return nil
		}
	}

	// Allow command line arguments to override defaults and environment variables
	flag.Func("ops", "HTTP port for the ops endpoints", apply(opsPort))
	flag.Func("seed", "YAML file of generators to pre-register", apply(seedFile))
	flag.Func("container", "tell the web UI to poll the published localhost port", apply(containerMode))
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
