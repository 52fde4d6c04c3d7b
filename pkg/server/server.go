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

package server

import (
	"context"
	"net"
	"net/http"
	"net/http/pprof"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/binkynet/AnalogWorker/pkg/saadc"
	"github.com/binkynet/AnalogWorker/pkg/service/acquisition"
)

// Config for the HTTP server.
type Config struct {
	// Host interface to listen on
	Host string
	// Port to listen on for HTTP requests
	Port int
}

// Server runs the HTTP server for the service.
type Server struct {
	Config
	log     zerolog.Logger
	service Service
}

// Service is the part of the acquisition service exposed over HTTP.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	SampleConvert(ctx context.Context, channel uint8) (saadc.Value, error)
	Status(ctx context.Context) (acquisition.Status, error)
}

// SampleResponse is returned by the single conversion endpoint.
type SampleResponse struct {
	Channel uint8       `json:"channel"`
	Value   saadc.Value `json:"value"`
}

// New configures a new Server.
func New(cfg Config, log zerolog.Logger, service Service) (*Server, error) {
	if service == nil {
		return nil, errors.New("service is required")
	}
	return &Server{
		Config:  cfg,
		log:     log.With().Str("component", "server").Logger(),
		service: service,
	}, nil
}

// Run the server until the given context is canceled.
func (s *Server) Run(ctx context.Context) error {
	// Prepare HTTP listener
	log := s.log
	httpAddr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	httpLis, err := net.Listen("tcp", httpAddr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on address %s", httpAddr)
	}

	// Prepare HTTP server
	httpSrv := http.Server{
		Handler: s.Handler(),
	}

	// Serve apis
	log.Debug().Str("address", httpAddr).Msg("Serving HTTP")
	serveErr := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(httpLis); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
		log.Debug().Str("address", httpAddr).Msg("Done Serving HTTP")
	}()

	// Wait until context closed
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return errors.Wrap(err, "failed to serve HTTP server")
		}
	}

	log.Info().Msg("Closing server")
	httpSrv.Shutdown(context.Background())
	return nil
}

// Handler builds the HTTP router.
func (s *Server) Handler() http.Handler {
	httpRouter := echo.New()
	httpRouter.HideBanner = true
	httpRouter.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	httpRouter.GET("/debug/pprof/*", echo.WrapHandler(http.HandlerFunc(pprof.Index)))
	httpRouter.GET("/health", healthHandler)

	v1 := httpRouter.Group("/v1", countRequests)
	v1.GET("/status", s.handleStatus)
	v1.GET("/channels/:index/sample", s.handleSample)
	v1.POST("/acquisition/start", s.handleStart)
	v1.POST("/acquisition/stop", s.handleStop)
	return httpRouter
}

func healthHandler(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (s *Server) handleStatus(c echo.Context) error {
	status, err := s.service.Status(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, status)
}

func (s *Server) handleSample(c echo.Context) error {
	index, err := strconv.ParseUint(c.Param("index"), 10, 8)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid channel index")
	}
	value, err := s.service.SampleConvert(c.Request().Context(), uint8(index))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, SampleResponse{Channel: uint8(index), Value: value})
}

func (s *Server) handleStart(c echo.Context) error {
	ctx := c.Request().Context()
	if err := s.service.Start(ctx); err != nil {
		s.log.Debug().Err(err).Msg("Start failed")
		return httpError(err)
	}
	return s.handleStatus(c)
}

func (s *Server) handleStop(c echo.Context) error {
	ctx := c.Request().Context()
	if err := s.service.Stop(ctx); err != nil {
		s.log.Debug().Err(err).Msg("Stop failed")
		return httpError(err)
	}
	return s.handleStatus(c)
}

// httpError converts a service error into an HTTP error.
func httpError(err error) error {
	return echo.NewHTTPError(statusCode(err), err.Error())
}

func statusCode(err error) int {
	switch {
	case saadc.IsInvalidParam(err):
		return http.StatusBadRequest
	case saadc.IsInvalidState(err), saadc.IsBusy(err), saadc.IsNoMemory(err):
		return http.StatusConflict
	case saadc.IsTimeout(err):
		return http.StatusGatewayTimeout
	case errors.Cause(err) == acquisition.ServiceStoppedError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// countRequests counts API requests per route & status code.
func countRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		code := c.Response().Status
		if err != nil {
			code = http.StatusInternalServerError
			if he, ok := err.(*echo.HTTPError); ok {
				code = he.Code
			}
		}
		apiRequestsTotal.WithLabelValues(c.Path(), strconv.Itoa(code)).Inc()
		return err
	}
}
