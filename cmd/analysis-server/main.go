package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/airbusgeo/geocube/interface/messaging"
	"github.com/airbusgeo/geocube/interface/messaging/pgqueue"
	"github.com/airbusgeo/geocube/interface/messaging/pubsub"
	"github.com/airbusgeo/parcel-imagery/analysis"
	"github.com/airbusgeo/parcel-imagery/interface/database/pg"
	"github.com/airbusgeo/parcel-imagery/interface/provider/sentinelhub"
	"github.com/airbusgeo/parcel-imagery/service"
	"github.com/airbusgeo/parcel-imagery/service/log"
	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type sentinelHubConfig struct {
	ClientID      string
	ClientSecret  string
	AuthURL       string
	BaseURL       string
	Timeout       time.Duration
	TimeWindow    time.Duration
	Width, Height int
	StorageLayout string
}

type config struct {
	AppPort      string
	DbConnection string
	BearerToken  string

	StorageURI string
	S3         service.S3Options

	PsProject       string
	EventQueue      string
	PgqDbConnection string

	GeocubeServer         string
	GeocubeServerInsecure bool
	GeocubeServerApiKey   string

	SentinelHub sentinelHubConfig
}

func newAppConfig() (*config, error) {
	config := config{}
	flag.StringVar(&config.AppPort, "port", "8080", "port to use")
	flag.StringVar(&config.DbConnection, "dbConnection", "", "database connection")
	flag.StringVar(&config.BearerToken, "bearer-token", "", "token required to access the api (optional)")

	// Storage
	flag.StringVar(&config.StorageURI, "storage-uri", "", "storage uri of the images (currently supported: local, gs, s3)")
	flag.StringVar(&config.S3.AccessKeyID, "s3-access-key-id", "", "s3 access key id (optional, default credential chain if empty)")
	flag.StringVar(&config.S3.SecretAccessKey, "s3-secret-access-key", "", "s3 secret access key (optional)")
	flag.StringVar(&config.S3.Region, "s3-region", "", "s3 region (optional)")
	flag.StringVar(&config.S3.Endpoint, "s3-endpoint", "", "s3 endpoint, for s3-compatible storages (optional)")

	// Messaging
	flag.StringVar(&config.PgqDbConnection, "pgq-connection", "", "enable pgq messaging system with a connection to the database")
	flag.StringVar(&config.PsProject, "ps-project", "", "pubsub project (gcp only/not required in local usage)")
	flag.StringVar(&config.EventQueue, "event-queue", "", "name of the queue for analysis events (pgqueue or pubsub topic) (optional)")

	// Geocube
	flag.StringVar(&config.GeocubeServer, "geocube-server", "", "address of geocube server, to index the analyses as records (optional)")
	flag.BoolVar(&config.GeocubeServerInsecure, "geocube-insecure", false, "connection to geocube server is insecure")
	flag.StringVar(&config.GeocubeServerApiKey, "geocube-apikey", "", "geocube server api key")

	// Sentinel Hub
	flag.StringVar(&config.SentinelHub.ClientID, "sentinelhub-client-id", "", "sentinel hub oauth client id")
	flag.StringVar(&config.SentinelHub.ClientSecret, "sentinelhub-client-secret", "", "sentinel hub oauth client secret")
	flag.StringVar(&config.SentinelHub.AuthURL, "sentinelhub-auth-url", sentinelhub.DefaultAuthURL, "sentinel hub token endpoint")
	flag.StringVar(&config.SentinelHub.BaseURL, "sentinelhub-base-url", sentinelhub.DefaultBaseURL, "sentinel hub services url")
	flag.DurationVar(&config.SentinelHub.Timeout, "sentinelhub-timeout", 2*time.Minute, "timeout of a request to sentinel hub")
	flag.DurationVar(&config.SentinelHub.TimeWindow, "time-window", sentinelhub.DefaultTimeWindow, "period of the acquisitions used to build the images")
	flag.IntVar(&config.SentinelHub.Width, "width", sentinelhub.DefaultWidth, "width of the images (pixels)")
	flag.IntVar(&config.SentinelHub.Height, "height", sentinelhub.DefaultHeight, "height of the images (pixels)")
	flag.StringVar(&config.SentinelHub.StorageLayout, "storage-layout", "", "directory of the images in the storage. Can contain {USER}, {PARCEL}, {ANALYSIS}, {DATE}, {YEAR}, {MONTH}, {DAY} (optional)")
	flag.Parse()

	if config.AppPort == "" {
		return nil, fmt.Errorf("failed to initialize port application flag")
	}
	if config.DbConnection == "" {
		return nil, fmt.Errorf("missing dbConnection config flag")
	}
	if config.StorageURI == "" {
		return nil, fmt.Errorf("missing storage-uri config flag")
	}
	if config.SentinelHub.ClientID == "" || config.SentinelHub.ClientSecret == "" {
		return nil, fmt.Errorf("missing sentinelhub-client-id or sentinelhub-client-secret config flag")
	}
	return &config, nil
}

func main() {
	ctx := context.Background()
	err := run(ctx)
	if err != nil {
		log.Fatal("error", zap.Error(err))
	}
}

func run(ctx context.Context) error {
	config, err := newAppConfig()
	if err != nil {
		return err
	}

	// Connection to database
	db, err := pg.New(ctx, config.DbConnection)
	if err != nil {
		return fmt.Errorf("pg.New: %w", err)
	}

	// Messaging service
	var eventPublisher messaging.Publisher
	var logMessaging string
	if config.EventQueue != "" {
		if config.PgqDbConnection != "" {
			_, w, err := pgqueue.SqlConnect(ctx, config.PgqDbConnection)
			if err != nil {
				return fmt.Errorf("MessagingService: %w", err)
			}
			logMessaging += fmt.Sprintf(" pushing on pgqueue:%s", config.EventQueue)
			eventPublisher = pgqueue.NewPublisher(w, config.EventQueue, pgqueue.WithMaxRetries(5))
		} else {
			logMessaging += fmt.Sprintf(" pushing on pubsub:%s/%s", config.PsProject, config.EventQueue)
			eventTopic, err := pubsub.NewPublisher(ctx, config.PsProject, config.EventQueue, pubsub.WithMaxRetries(5))
			if err != nil {
				return fmt.Errorf("pubsub.NewPublisher: %w", err)
			}
			defer eventTopic.Stop()
			eventPublisher = eventTopic
		}
	} else {
		log.Logger(ctx).Warn("event-queue is not configured: analysis events are not published")
	}

	storage, err := service.NewStorage(ctx, config.StorageURI, config.S3)
	if err != nil {
		return fmt.Errorf("storage %s: %w", config.StorageURI, err)
	}

	imageProvider, err := newSentinelHubClient(ctx, config.SentinelHub, storage)
	if err != nil {
		return err
	}

	var opts []analysis.Option
	if config.GeocubeServer != "" {
		var tlsConfig *tls.Config
		if !config.GeocubeServerInsecure {
			tlsConfig = &tls.Config{}
		}
		gcclient, err := service.NewGeocubeClient(ctx, config.GeocubeServer, config.GeocubeServerApiKey, tlsConfig)
		if err != nil {
			return fmt.Errorf("connection to geocube: %w", err)
		}
		opts = append(opts, analysis.WithIndexer(service.GeocubeIndexer{Client: gcclient}))
	}

	// Create the analysis server
	svc := analysis.NewService(db, imageProvider, eventPublisher, opts...)
	router := svc.NewHandler()
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.Use(newBearerAuthenticator(config.BearerToken))

	headersOk := handlers.AllowedHeaders([]string{"*"})
	originsOk := handlers.AllowedOrigins([]string{"*"})
	methodsOk := handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	s := http.Server{
		Addr:    ":" + config.AppPort,
		Handler: handlers.CORS(originsOk, headersOk, methodsOk)(router),
	}

	log.Logger(ctx).Debug("analysis server starts on :" + config.AppPort + logMessaging)
	if err := s.ListenAndServe(); err != nil {
		return fmt.Errorf("ListenAndServe: %w", err)
	}
	return nil
}

func newSentinelHubClient(ctx context.Context, config sentinelHubConfig, storage service.Storage) (*sentinelhub.Client, error) {
	httpClient := &http.Client{Timeout: config.Timeout}
	return sentinelhub.New(ctx, httpClient,
		sentinelhub.Credentials{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			TokenURL:     config.AuthURL,
		},
		storage,
		sentinelhub.Config{
			BaseURL:       config.BaseURL,
			TimeWindow:    config.TimeWindow,
			Size:          sentinelhub.Size{Width: config.Width, Height: config.Height},
			StorageLayout: config.StorageLayout,
		})
}
