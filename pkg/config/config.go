// Copyright 2026 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package config

import (
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/providers/structs"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/binkynet/AnalogWorker/pkg/saadc"
)

// Config of the analog worker.
type Config struct {
	// Identifier of this worker, used in published messages
	ModuleID string `koanf:"module-id"`
	// Type of bridge: virtual, rpi or empty for auto detection
	Bridge string `koanf:"bridge"`
	// Signals of the simulated converter inputs, keyed by input name (AIN0..AIN7)
	Signals     map[string]string `koanf:"signals"`
	Converter   Converter         `koanf:"converter"`
	Channels    []Channel         `koanf:"channels"`
	Acquisition Acquisition       `koanf:"acquisition"`
	MQTT        MQTT              `koanf:"mqtt"`
	Server      Server            `koanf:"server"`
}

// Converter holds the driver settings.
type Converter struct {
	// Resolution in bits (8, 10, 12 or 14)
	Resolution int `koanf:"resolution"`
	// Oversample setting, 0 disables oversampling
	Oversample        uint8 `koanf:"oversample"`
	InterruptPriority uint8 `koanf:"interrupt-priority"`
	// Number of polls waiting for the stop acknowledgment
	StopBudget int `koanf:"stop-budget"`
	// Number of polls waiting for a single conversion
	SampleBudget int `koanf:"sample-budget"`
}

// Channel configures a converter channel.
type Channel struct {
	Index uint8 `koanf:"index"`
	// Positive input name (AIN0..AIN7, VDD)
	Positive string `koanf:"positive"`
	// Negative input name, empty for single ended
	Negative        string `koanf:"negative"`
	Gain            uint8  `koanf:"gain"`
	Reference       uint8  `koanf:"reference"`
	AcquisitionTime uint8  `koanf:"acquisition-time"`
	// Thresholds, nil disables
	LimitLow  *int16 `koanf:"limit-low"`
	LimitHigh *int16 `koanf:"limit-high"`
}

// Acquisition configures the continuous acquisition.
type Acquisition struct {
	// Start acquisition on startup
	Autostart bool `koanf:"autostart"`
	// Number of values per buffer
	BufferSize int `koanf:"buffer-size"`
	// Rate of Sample triggers per second
	SampleRate float64 `koanf:"sample-rate"`
	// Number of pending batches before dropping
	QueueSize int `koanf:"queue-size"`
	// Interval of throughput logs, 0 disables
	LogInterval time.Duration `koanf:"log-interval"`
}

// MQTT configures the publisher.
type MQTT struct {
	// Broker address (tcp://host:port), empty disables MQTT
	Address     string `koanf:"address"`
	ClientID    string `koanf:"client-id"`
	Username    string `koanf:"username"`
	Password    string `koanf:"password"`
	TopicPrefix string `koanf:"topic-prefix"`
	QueueSize   int    `koanf:"queue-size"`
	// Maximum number of publishes awaiting acknowledgment
	MaxInFlight    int64         `koanf:"max-in-flight"`
	ConnectTimeout time.Duration `koanf:"connect-timeout"`
}

// Server configures the HTTP server.
type Server struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		ModuleID: "analog-worker",
		Signals: map[string]string{
			"AIN0": "sine:1000",
		},
		Converter: Converter{
			Resolution:        10,
			InterruptPriority: 6,
			StopBudget:        saadc.DefaultStopBudget,
			SampleBudget:      saadc.DefaultSampleBudget,
		},
		Channels: []Channel{
			{Index: 0, Positive: "AIN0"},
		},
		Acquisition: Acquisition{
			Autostart:   true,
			BufferSize:  100,
			SampleRate:  100,
			QueueSize:   16,
			LogInterval: time.Minute,
		},
		MQTT: MQTT{
			ClientID:       "analog-worker",
			TopicPrefix:    "binky/analog/",
			QueueSize:      64,
			MaxInFlight:    8,
			ConnectTimeout: 10 * time.Second,
		},
		Server: Server{
			Host: "0.0.0.0",
			Port: 7129,
		},
	}
}

// Load builds the configuration from defaults, the given YAML file
// (if not empty) and the given flags (if not nil), in that order.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, errors.Wrap(err, "failed to load defaults")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, errors.Wrapf(err, "failed to load config file '%s'", path)
		}
	}
	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, errors.Wrap(err, "failed to load command line flags")
		}
	}
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to unmarshal config")
	}
	return cfg, nil
}

// DriverConfig returns the converter driver configuration.
func (c Converter) DriverConfig() saadc.Config {
	return saadc.Config{
		Resolution:        saadc.Resolution((c.Resolution - 8) / 2),
		Oversample:        saadc.Oversample(c.Oversample),
		InterruptPriority: c.InterruptPriority,
		StopBudget:        c.StopBudget,
		SampleBudget:      c.SampleBudget,
	}
}

// ChannelConfig returns the driver configuration of the channel.
func (c Channel) ChannelConfig() (saadc.ChannelConfig, error) {
	pos, err := saadc.ParseInput(c.Positive)
	if err != nil {
		return saadc.ChannelConfig{}, errors.Wrapf(err, "channel %d positive input", c.Index)
	}
	neg, err := saadc.ParseInput(c.Negative)
	if err != nil {
		return saadc.ChannelConfig{}, errors.Wrapf(err, "channel %d negative input", c.Index)
	}
	var cfg saadc.ChannelConfig
	if neg == saadc.InputDisabled {
		cfg = saadc.SingleEnded(pos)
	} else {
		cfg = saadc.Differential(pos, neg)
	}
	cfg.Settings.Gain = c.Gain
	cfg.Settings.Reference = c.Reference
	cfg.Settings.AcquisitionTime = c.AcquisitionTime
	if c.LimitLow != nil || c.LimitHigh != nil {
		limits := saadc.Limits{Low: saadc.LimitLowDisabled, High: saadc.LimitHighDisabled}
		if c.LimitLow != nil {
			limits.Low = *c.LimitLow
		}
		if c.LimitHigh != nil {
			limits.High = *c.LimitHigh
		}
		cfg.Limits = &limits
	}
	return cfg, nil
}
