// Package server implements the entry point for running a characterization robot.
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/sysid/config"
	"go.viam.com/sysid/logging"
	"go.viam.com/sysid/nettable/mqttbridge"
	"go.viam.com/sysid/nettable/wsserver"
	"go.viam.com/sysid/scheduler"
	"go.viam.com/sysid/utils"
)

// TablePath is where the websocket table is served.
const TablePath = "/nt"

// Arguments for the command.
type Arguments struct {
	ConfigFile string `flag:"0,usage=robot config file"`
	Debug      bool   `flag:"debug"`
	Listen     string `flag:"listen,usage=address to serve the table on, overrides the config"`
}

// RunServer is the entry point to running a robot. The config file may also be named by
// SYSID_CONFIG.
func RunServer(ctx context.Context, args []string, logger logging.Logger) (err error) {
	var argsParsed Arguments
	if err := goutils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	overrides, err := config.ReadEnvOverrides(nil)
	if err != nil {
		return err
	}
	if argsParsed.Listen != "" {
		overrides.Listen = argsParsed.Listen
	}
	path := argsParsed.ConfigFile
	if path == "" {
		path = overrides.ConfigPath
	}
	if path == "" {
		return errors.New("a config file is required, as an argument or in SYSID_CONFIG")
	}
	cfg, err := config.Read(path, overrides)
	if err != nil {
		return err
	}
	if argsParsed.Debug || cfg.Debug {
		logger.SetLevel(logging.DEBUG)
	}
	if cfg.LogFile != nil {
		appender, closer := logging.NewFileAppender(cfg.LogFile.Path, cfg.LogFile.MaxSizeMB, cfg.LogFile.MaxBackups)
		logger.AddAppender(appender)
		defer func() {
			err = multierr.Combine(err, closer.Close())
		}()
	}

	err = Serve(ctx, cfg, clock.New(), logger)
	if err != nil {
		logger.Errorw("error running robot", "error", err)
	}
	return err
}

// Serve runs the robot described by cfg until ctx is done. The table is served over websockets
// and, when configured, bridged to MQTT.
func Serve(ctx context.Context, cfg *config.Config, clk clock.Clock, logger logging.Logger) (err error) {
	r, err := NewRobot(ctx, cfg, clk, logger)
	if err != nil {
		return err
	}
	defer func() {
		// stop the motors even though ctx is done
		closeCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		err = multierr.Combine(err, r.Close(closeCtx))
	}()

	ws, err := wsserver.New(r.Store, wsserver.Options{
		UpdateInterval: cfg.Network.UpdateIntervalDuration(),
		Clock:          clk,
	}, logger.Sublogger("wsserver"))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, ws.Close())
	}()

	listener, err := net.Listen("tcp", cfg.Network.Listen)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", cfg.Network.Listen)
	}
	guard := utils.NewGuard(func() { goutils.UncheckedError(listener.Close()) })
	defer guard.OnFail()
	mux := http.NewServeMux()
	mux.Handle(TablePath, ws)
	httpServer := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	logger.Infow("serving table", "address", listener.Addr().String(), "path", TablePath)

	if cfg.Network.MQTT != nil {
		var bridge *mqttbridge.Bridge
		bridge, err = startBridge(ctx, cfg.Network.MQTT, r, logger.Sublogger("mqtt"))
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Combine(err, bridge.Close())
			logger.Infow("mqtt bridge closed", "published", bridge.Published(), "ignored", bridge.Ignored())
		}()
	}

	sched, err := scheduler.New(cfg.PeriodDuration(), clk, r.Step, logger.Sublogger("scheduler"))
	if err != nil {
		return err
	}
	guard.Success()

	workers := utils.NewStoppableWorkersWithContext(ctx, sched.Run, func(ctx context.Context) {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("table server stopped", "error", err)
		}
	})
	if r.Sim != nil {
		workers.AddWorkers(r.Sim.Worker(clk, cfg.PeriodDuration()))
		logger.Info("simulation enabled")
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err = httpServer.Shutdown(shutdownCtx)
	workers.Stop()
	stats := sched.Stats()
	logger.Infow("robot stopped",
		"periods", stats.Steps,
		"overruns", stats.Overruns,
		"mean_step", stats.MeanStep,
		"dropped_updates", r.Store.Dropped(),
	)
	return err
}

func startBridge(ctx context.Context, cfg *config.MQTTConfig, r *Robot, logger logging.Logger) (*mqttbridge.Bridge, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)
	bridge, err := mqttbridge.New(mqtt.NewClient(opts), r.Store, mqttbridge.Options{TopicPrefix: cfg.TopicPrefix}, logger)
	if err != nil {
		return nil, err
	}
	if err := bridge.Start(ctx); err != nil {
		return nil, err
	}
	return bridge, nil
}
