package app

import (
	"context"
	"time"

	"github.com/spf13/afero"

	"github.com/bioscout/bioscout/internal/buildinfo"
	"github.com/bioscout/bioscout/internal/classifier"
	"github.com/bioscout/bioscout/internal/conf"
	"github.com/bioscout/bioscout/internal/datastore"
	"github.com/bioscout/bioscout/internal/errors"
	"github.com/bioscout/bioscout/internal/httpclient"
	"github.com/bioscout/bioscout/internal/logger"
	"github.com/bioscout/bioscout/internal/mqtt"
	"github.com/bioscout/bioscout/internal/notification"
	"github.com/bioscout/bioscout/internal/observability"
	"github.com/bioscout/bioscout/internal/observability/metrics"
	"github.com/bioscout/bioscout/internal/observation"
	"github.com/bioscout/bioscout/internal/qna"
	"github.com/bioscout/bioscout/internal/telemetry"
)

const telemetryFlushTimeout = 2 * time.Second

// App is a fully wired BioScout instance.
type App struct {
	Settings *conf.Settings
	Service  *Service
	Metrics  *observability.Metrics
	Images   *observation.ImageStore
	Build    *buildinfo.Context

	closers []func() error
}

// Options overrides parts of the wiring, mainly for tests.
type Options struct {
	Fs        afero.Fs
	HTTP      *httpclient.Config
	Logger    logger.Logger
	SkipMQTT  bool
	BuildInfo *buildinfo.Context
}

// New wires an App from settings. Optional integrations that fail to start
// are logged and left out; only the observation log is required.
func New(ctx context.Context, settings *conf.Settings, opts Options) (*App, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Global().Module("bioscout")
	}
	appLog := log.Module("app")

	fsys := opts.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	build := opts.BuildInfo
	if build == nil {
		build = buildinfo.Current()
	}

	a := &App{Settings: settings, Build: build}

	if err := telemetry.InitSentry(settings, build); err != nil {
		appLog.Warn("error reporting unavailable", logger.Error(err))
	} else if telemetry.Enabled() {
		a.closers = append(a.closers, func() error {
			telemetry.Shutdown(telemetryFlushTimeout)
			return nil
		})
	}

	if settings.Metrics.Enabled {
		m, err := observability.NewMetrics()
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Metrics = m
	}

	obsLog, err := openLog(settings, fsys, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	if closer, ok := obsLog.(interface{ Close() error }); ok {
		a.closers = append(a.closers, closer.Close)
	}

	a.Images = observation.NewImageStore(fsys, settings.Observation.ImageDir,
		settings.Observation.MaxUploadSize, settings.Observation.AllowedTypes, log.Module("observation"))

	httpCfg := httpclient.DefaultConfig()
	if opts.HTTP != nil {
		httpCfg = *opts.HTTP
	}
	classifierHTTP := httpclient.New(withTimeout(httpCfg, settings.Classifier.Timeout))
	qaHTTP := httpclient.New(withTimeout(httpCfg, settings.QA.Timeout))
	a.closers = append(a.closers, closeFunc(classifierHTTP.Close), closeFunc(qaHTTP.Close))

	notifier := a.buildNotifier(ctx, settings, opts, log)

	a.Service = NewService(Deps{
		Log:        obsLog,
		Images:     a.Images,
		Classifier: classifier.New(classifierHTTP, settings.Classifier.Endpoint, log.Module("classifier")),
		Answerer: qna.New(qaHTTP, qna.Config{
			Endpoint: settings.QA.Endpoint,
			Model:    settings.QA.Model,
			APIKey:   settings.QA.APIKey,
		}, log.Module("qna")),
		Notifier: notifier,
		Metrics:  a.Metrics,
		Logger:   appLog,
	})

	appLog.Debug("application wired",
		logger.String("backend", settings.Observation.Backend),
		logger.Bool("metrics", a.Metrics != nil),
		logger.Bool("notifications", notifier != nil))
	return a, nil
}

func openLog(settings *conf.Settings, fsys afero.Fs, log logger.Logger) (observation.Log, error) {
	switch settings.Observation.Backend {
	case conf.BackendSQLite, conf.BackendMySQL:
		return datastore.Open(settings, log.Module("datastore"))
	default:
		return observation.NewCSVLog(fsys, settings.Observation.CSVPath, log.Module("observation")), nil
	}
}

func (a *App) buildNotifier(ctx context.Context, settings *conf.Settings, opts Options, log logger.Logger) Notifier {
	notifyLog := log.Module("notification")
	var providers []notification.Provider

	if s := settings.Notification.Shoutrrr; s.Enabled {
		p, err := notification.NewShoutrrrProvider("shoutrrr", s.URLs, s.Timeout)
		if err != nil {
			notifyLog.Warn("push notifications disabled", logger.Error(err))
		} else {
			providers = append(providers, p)
		}
	}

	if m := settings.Notification.MQTT; m.Enabled && !opts.SkipMQTT {
		cfg := mqtt.DefaultConfig()
		cfg.Broker = m.Broker
		cfg.Username = m.Username
		cfg.Password = m.Password
		cfg.Retain = m.Retain
		if m.ClientID != "" {
			cfg.ClientID = m.ClientID
		}
		if m.Topic != "" {
			cfg.Topic = m.Topic
		}

		var mqttMetrics *metrics.MQTTMetrics
		if a.Metrics != nil {
			mqttMetrics = a.Metrics.MQTT
		}
		client := mqtt.NewClient(cfg, mqttMetrics, log.Module("mqtt"))
		if err := client.Connect(ctx); err != nil {
			notifyLog.Warn("MQTT publishing disabled", logger.Error(err))
		} else {
			providers = append(providers, client)
			a.closers = append(a.closers, func() error {
				client.Disconnect()
				return nil
			})
		}
	}

	if len(providers) == 0 {
		return nil
	}
	var notificationMetrics *metrics.NotificationMetrics
	if a.Metrics != nil {
		notificationMetrics = a.Metrics.Notification
	}
	return notification.NewDispatcher(providers, notificationMetrics, notifyLog)
}

// Close releases every resource opened by New, in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func withTimeout(cfg httpclient.Config, timeout time.Duration) *httpclient.Config {
	if timeout > 0 {
		cfg.DefaultTimeout = timeout
	}
	return &cfg
}

func closeFunc(fn func()) func() error {
	return func() error {
		fn()
		return nil
	}
}
