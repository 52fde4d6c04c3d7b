//    Copyright 2026 Ewout Prangsma
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"

	terminate "github.com/pulcy/go-terminate"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/binkynet/AnalogWorker/pkg/bridge"
	"github.com/binkynet/AnalogWorker/pkg/config"
	"github.com/binkynet/AnalogWorker/pkg/environment"
	"github.com/binkynet/AnalogWorker/pkg/server"
	"github.com/binkynet/AnalogWorker/pkg/service/acquisition"
	"github.com/binkynet/AnalogWorker/pkg/service/publisher"
)

const (
	projectName = "BinkyNet Analog Worker"
)

var (
	projectVersion = "dev"
	projectBuild   = "dev"
)

func main() {
	var levelFlag string
	var configPath string

	def := config.Default()
	pflag.StringVarP(&levelFlag, "level", "l", "info", "Set log level")
	pflag.StringVarP(&configPath, "config", "c", "", "Path of the YAML configuration file")
	pflag.StringP("bridge", "b", "", "Type of bridge to use (virtual|rpi), empty for auto detection")
	pflag.String("module-id", def.ModuleID, "Identifier of this worker")
	pflag.String("server.host", def.Server.Host, "Host address the HTTP server will listen on")
	pflag.Int("server.port", def.Server.Port, "Port the HTTP server will listen on")
	pflag.String("mqtt.address", "", "Address of the MQTT broker (tcp://host:port), empty to disable")
	pflag.Bool("acquisition.autostart", def.Acquisition.Autostart, "Start acquisition on startup")
	pflag.Float64("acquisition.sample-rate", def.Acquisition.SampleRate, "Number of sample triggers per second")
	pflag.Int("converter.stop-budget", def.Converter.StopBudget, "Number of polls waiting for the converter to stop")
	pflag.Int("converter.sample-budget", def.Converter.SampleBudget, "Number of polls waiting for a single conversion")
	pflag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	level, err := zerolog.ParseLevel(levelFlag)
	if err != nil {
		Exitf("Invalid log level '%s': %v\n", levelFlag, err)
	}
	logger = logger.Level(level)

	cfg, err := config.Load(configPath, pflag.CommandLine)
	if err != nil {
		Exitf("Failed to load configuration: %v\n", err)
	}
	if err := cfg.Validate(); err != nil {
		Exitf("%v\n", err)
	}
	signals, err := cfg.BridgeSignals()
	if err != nil {
		Exitf("Invalid signals: %v\n", err)
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = cfg.ModuleID
	}

	bridgeType := cfg.Bridge
	if bridgeType == "" {
		bridgeType = environment.AutoDetectBridgeType(logger)
	}
	var br bridge.API
	switch bridgeType {
	case bridge.TypeVirtual:
		br, err = bridge.NewVirtualBridge(signals)
		if err != nil {
			Exitf("Failed to initialize virtual Bridge: %v\n", err)
		}
	case bridge.TypeRaspberryPi:
		br, err = bridge.NewRaspberryPiBridge(signals)
		if err != nil {
			Exitf("Failed to initialize Raspberry Pi Bridge: %v\n", err)
		}
	default:
		Exitf("Unknown bridge type '%s' (virtual|rpi)\n", bridgeType)
	}
	defer br.Close()
	adc, err := br.SAADC()
	if err != nil {
		Exitf("Failed to open analog converter: %v\n", err)
	}

	acq, err := acquisition.NewService(acquisition.Config{
		Converter:   cfg.Converter,
		Channels:    cfg.Channels,
		Acquisition: cfg.Acquisition,
	}, acquisition.Dependencies{
		Log:       logger,
		Converter: adc,
	})
	if err != nil {
		Exitf("Failed to initialize acquisition Service: %v\n", err)
	}

	pub, err := publisher.NewService(publisher.Config{
		ModuleID: cfg.ModuleID,
		MQTT:     cfg.MQTT,
	}, publisher.Dependencies{
		Log:    logger,
		Source: acq,
	})
	if err != nil {
		Exitf("Failed to initialize publisher: %v\n", err)
	}

	httpServer, err := server.New(server.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}, logger, acq)
	if err != nil {
		Exitf("Failed to initialize Server: %v\n", err)
	}

	// Prepare to shutdown in a controlled manor
	ctx, cancel := context.WithCancel(context.Background())
	t := terminate.NewTerminator(func(template string, args ...interface{}) {
		logger.Info().Msgf(template, args...)
	}, cancel)
	go t.ListenSignals()

	fmt.Printf("Starting %s (version %s build %s)\n", projectName, projectVersion, projectBuild)
	logger.Info().
		Str("module-id", cfg.ModuleID).
		Str("bridge", bridgeType).
		Int("channels", len(cfg.Channels)).
		Msg("Starting")
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return acq.Run(ctx) })
	g.Go(func() error { return pub.Run(ctx) })
	g.Go(func() error { return httpServer.Run(ctx) })
	g.Go(func() error { return acquisition.RunStatusLeds(ctx, acq, br, logger) })
	if err := g.Wait(); err != nil {
		Exitf("Service run failed: %v\n", err)
	}
}

// Print the given error message and exit with code 1
func Exitf(message string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, message, args...)
	os.Exit(1)
}
