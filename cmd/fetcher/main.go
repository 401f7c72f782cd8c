package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/airbusgeo/parcel-imagery/common"
	"github.com/airbusgeo/parcel-imagery/interface/provider/sentinelhub"
	"github.com/airbusgeo/parcel-imagery/service"
	"github.com/airbusgeo/parcel-imagery/service/geometry"
	"github.com/airbusgeo/parcel-imagery/service/log"
	"github.com/araddon/dateparse"
	"go.uber.org/zap"
)

type config struct {
	UserID       string
	ParcelID     string
	Boundary     string
	AnalysisType common.AnalysisType
	From, To     time.Time

	StorageURI    string
	StorageLayout string
	S3            service.S3Options

	ClientID     string
	ClientSecret string
	AuthURL      string
	BaseURL      string
	Timeout      time.Duration
	Size         sentinelhub.Size
	Retries      int
}

func newAppConfig() (*config, error) {
	config := config{}
	flag.StringVar(&config.UserID, "user", "", "owner of the parcel")
	flag.StringVar(&config.ParcelID, "parcel", "", "id of the parcel")
	flag.StringVar(&config.Boundary, "boundary", "", "boundary of the parcel: WKT polygon, or path to a GeoJSON file")
	analysisType := flag.String("type", "", "analysis type, one of "+fmt.Sprint(common.AnalysisTypeStrings()))
	from := flag.String("from", "", "start of the acquisitions (optional)")
	to := flag.String("to", "", "end of the acquisitions (optional, default now)")

	flag.StringVar(&config.StorageURI, "storage-uri", "", "storage uri of the images (currently supported: local, gs, s3)")
	flag.StringVar(&config.StorageLayout, "storage-layout", "", "directory of the images in the storage (optional)")
	flag.StringVar(&config.S3.AccessKeyID, "s3-access-key-id", "", "s3 access key id (optional)")
	flag.StringVar(&config.S3.SecretAccessKey, "s3-secret-access-key", "", "s3 secret access key (optional)")
	flag.StringVar(&config.S3.Region, "s3-region", "", "s3 region (optional)")
	flag.StringVar(&config.S3.Endpoint, "s3-endpoint", "", "s3 endpoint (optional)")

	flag.StringVar(&config.ClientID, "sentinelhub-client-id", os.Getenv("SH_CLIENT_ID"), "sentinel hub oauth client id (default: $SH_CLIENT_ID)")
	flag.StringVar(&config.ClientSecret, "sentinelhub-client-secret", os.Getenv("SH_CLIENT_SECRET"), "sentinel hub oauth client secret (default: $SH_CLIENT_SECRET)")
	flag.StringVar(&config.AuthURL, "sentinelhub-auth-url", sentinelhub.DefaultAuthURL, "sentinel hub token endpoint")
	flag.StringVar(&config.BaseURL, "sentinelhub-base-url", sentinelhub.DefaultBaseURL, "sentinel hub services url")
	flag.DurationVar(&config.Timeout, "sentinelhub-timeout", 2*time.Minute, "timeout of a request to sentinel hub")
	flag.IntVar(&config.Size.Width, "width", sentinelhub.DefaultWidth, "width of the images (pixels)")
	flag.IntVar(&config.Size.Height, "height", sentinelhub.DefaultHeight, "height of the images (pixels)")
	flag.IntVar(&config.Retries, "retries", 2, "number of retries of a fetch failing with a temporary error")
	flag.Parse()

	if config.UserID == "" || config.ParcelID == "" {
		return nil, fmt.Errorf("missing user or parcel config flag")
	}
	if config.Boundary == "" {
		return nil, fmt.Errorf("missing boundary config flag")
	}
	if config.StorageURI == "" {
		return nil, fmt.Errorf("missing storage-uri config flag")
	}
	var err error
	if config.AnalysisType, err = common.AnalysisTypeString(*analysisType); err != nil {
		return nil, fmt.Errorf("type: %w", err)
	}
	if *from != "" {
		if config.From, err = dateparse.ParseIn(*from, time.UTC); err != nil {
			return nil, fmt.Errorf("from: %w", err)
		}
		config.To = time.Now()
		if *to != "" {
			if config.To, err = dateparse.ParseIn(*to, time.UTC); err != nil {
				return nil, fmt.Errorf("to: %w", err)
			}
		}
	} else if *to != "" {
		return nil, fmt.Errorf("to requires from")
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

// loadBoundary reads a WKT polygon, or a GeoJSON file
func loadBoundary(boundary string) ([]common.Point, error) {
	if points, err := geometry.PointsFromWKT(boundary); err == nil {
		return points, nil
	}
	data, err := os.ReadFile(boundary)
	if err != nil {
		return nil, fmt.Errorf("loadBoundary: %w", err)
	}
	return geometry.PointsFromGeoJSON(data)
}

// fetchWithRetries retries fetch on temporary errors only
func fetchWithRetries(ctx context.Context, fetch func(context.Context) ([]common.SatelliteImage, error), wait time.Duration, retries int) ([]common.SatelliteImage, error) {
	var images []common.SatelliteImage
	err := service.Retriable(ctx, func() error {
		var err error
		if images, err = fetch(ctx); err != nil {
			if !service.Temporary(err) {
				return service.MakeFatal(err)
			}
			log.Logger(ctx).Warn("fetch failed, retrying", zap.Error(err))
		}
		return err
	}, wait, retries+1)
	return images, err
}

func run(ctx context.Context) error {
	config, err := newAppConfig()
	if err != nil {
		return err
	}

	boundary, err := loadBoundary(config.Boundary)
	if err != nil {
		return err
	}
	parcel := common.Parcel{ID: config.ParcelID, UserID: config.UserID, Boundary: boundary}

	storage, err := service.NewStorage(ctx, config.StorageURI, config.S3)
	if err != nil {
		return fmt.Errorf("storage %s: %w", config.StorageURI, err)
	}

	client, err := sentinelhub.New(ctx, &http.Client{Timeout: config.Timeout},
		sentinelhub.Credentials{ClientID: config.ClientID, ClientSecret: config.ClientSecret, TokenURL: config.AuthURL},
		storage,
		sentinelhub.Config{BaseURL: config.BaseURL, Size: config.Size, StorageLayout: config.StorageLayout})
	if err != nil {
		return err
	}

	ctx = log.With(ctx, "parcel", parcel.ID)
	images, err := fetchWithRetries(ctx, func(ctx context.Context) ([]common.SatelliteImage, error) {
		if config.From.IsZero() {
			return client.FetchImages(ctx, parcel, config.AnalysisType)
		}
		return client.FetchImagesBetween(ctx, parcel, config.AnalysisType, config.From, config.To)
	}, time.Second, config.Retries)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", config.AnalysisType, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(images)
}
