package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/janael-pinheiro/room-monitor-golang/pkg/entities"
	"github.com/janael-pinheiro/room-monitor-golang/pkg/gateways/network"
	"github.com/janael-pinheiro/room-monitor-golang/pkg/gateways/notify"
	"github.com/janael-pinheiro/room-monitor-golang/pkg/gateways/redisstore"
	"github.com/janael-pinheiro/room-monitor-golang/pkg/gateways/telegram"
	"github.com/janael-pinheiro/room-monitor-golang/pkg/logging"
	"github.com/janael-pinheiro/room-monitor-golang/pkg/monitor"
	"github.com/janael-pinheiro/room-monitor-golang/pkg/utils"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	envFile := flag.String("env", ".env", "path to the dotenv file with secrets")
	sendTest := flag.Bool("send-test", false, "send a test notification and exit")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Fatalf("failed to load %s", *envFile)
	}

	conf, err := utils.LoadMonitorConfig(*configPath)
	if err != nil {
		logrus.WithError(err).Fatalln("invalid configuration")
	}

	loggers := logging.NewLogrus(conf.LogLevel, os.Stdout).WithFormat(conf.LogFormat).WithField("device_id", conf.DeviceID)
	log := loggers.Get("Main")

	location, err := utils.LoadLocation(conf.Timezone)
	if err != nil {
		log.WithError(err).Fatalln("invalid timezone")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := redisstore.NewClient(ctx, conf.Redis)
	if err != nil {
		log.WithError(err).Fatalln("cannot reach the store")
	}
	defer client.Close()
	store := redisstore.NewStore(client, loggers.Get("RedisStore"))
	seedDeviceDefaults(ctx, store, conf, log)

	var transports []notify.Named
	bot := telegram.NewBot(conf.Telegram, nil, loggers.Get("Telegram"))
	if bot.Configured() {
		transports = append(transports, notify.Named{Name: "telegram", Notifier: bot})
	} else {
		log.Warnln("telegram bot not configured")
	}

	var broker *network.AMQP
	if conf.AMQP.URL != "" {
		broker = network.NewAMQP(conf.AMQP.URL, conf.AMQP.ConnectTimeout, loggers.Get("AMQP"))
		if err := broker.Start(); err != nil {
			log.WithError(err).Errorln("notifications will not be published to the broker")
			broker = nil
		} else {
			defer broker.Stop()
			publisher := network.NewNotificationPublisher(broker, conf.AMQP.Exchange, conf.DeviceID)
			transports = append(transports, notify.Named{Name: "amqp", Notifier: publisher})
		}
	}
	notifier := notify.NewMulti(loggers.Get("Notify"), transports...)

	var opts []monitor.Option
	if conf.Recorder.Enabled {
		opts = append(opts, monitor.WithRecorder(monitor.NewAlertRecorder(conf.DeviceID, store, conf.Recorder, loggers.Get("AlertRecorder"))))
	}
	engine := monitor.New(monitor.Config{
		DeviceID:        conf.DeviceID,
		Interval:        conf.PollInterval,
		FirstCheckDelay: conf.FirstCheckDelay,
		TickTimeout:     conf.TickTimeout,
		Location:        location,
	}, store, notifier, loggers.Get("Monitor"), opts...)

	if *sendTest {
		if err := engine.SendTest(ctx); err != nil {
			log.WithError(err).Fatalln("test notification failed")
		}
		log.Infoln("test notification sent")
		return
	}

	alerts := monitor.NewAlertQuery(store, store, loggers.Get("AlertQuery"))
	log.Infof("%d alerts on record", len(alerts.GetAlerts(ctx, conf.DeviceID)))
	if broker != nil {
		subscribeToAcknowledgements(ctx, broker, conf.AMQP, alerts, loggers.Get("Acknowledgements"))
	}

	metricsServer := startMetricsServer(conf.Metrics.Addr, log)

	engine.Start()
	<-ctx.Done()
	log.Infoln("shutting down")
	engine.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warnln("metrics server shutdown")
	}
}

func seedDeviceDefaults(ctx context.Context, store *redisstore.Store, conf entities.MonitorConfig, log *logrus.Entry) {
	if conf.Thresholds != nil {
		stored, err := store.EnsureDeviceConfig(ctx, conf.DeviceID, *conf.Thresholds)
		if err != nil {
			log.WithError(err).Errorln("failed to seed threshold configuration")
		} else if stored {
			log.Infof("seeded threshold configuration %+v", *conf.Thresholds)
		}
	}
	if conf.Schedule != nil {
		stored, err := store.EnsureNotificationSchedule(ctx, conf.DeviceID, *conf.Schedule)
		if err != nil {
			log.WithError(err).Errorln("failed to seed notification schedule")
		} else if stored {
			log.Infoln("seeded notification schedule")
		}
	}
}

func subscribeToAcknowledgements(ctx context.Context, broker *network.AMQP, conf entities.AMQPConfig, alerts *monitor.AlertQuery, log *logrus.Entry) {
	msgChan := make(chan network.InMsg)
	subscriber := network.NewAckSubscriber(broker, conf.AckExchange, conf.AckQueue)
	if err := subscriber.SubscribeToAcknowledgements(msgChan); err != nil {
		log.WithError(err).Errorln("alert acknowledgements will not be consumed")
		return
	}
	go network.HandleAcknowledgements(ctx, msgChan, alerts, log)
}

func startMetricsServer(addr string, log *logrus.Entry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Infof("serving metrics on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Errorln("metrics server stopped")
		}
	}()
	return server
}
