package sentinelhub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/airbusgeo/parcel-imagery/common"
	"github.com/airbusgeo/parcel-imagery/interface/provider"
	"github.com/airbusgeo/parcel-imagery/service"
	"github.com/airbusgeo/parcel-imagery/service/geometry"
	"github.com/airbusgeo/parcel-imagery/service/log"
	"go.uber.org/zap"
)

// DefaultBaseURL of the Sentinel Hub services
const DefaultBaseURL = "https://services.sentinel-hub.com"

const processPath = "/api/v1/process"

// DefaultTimeWindow is the period of acquisitions used by FetchImages
const DefaultTimeWindow = 30 * 24 * time.Hour

// maxErrorBody is the max length of the body kept in a ProviderRequestError
const maxErrorBody = 1024

// Config of the Client
type Config struct {
	BaseURL       string        // DefaultBaseURL if empty
	TimeWindow    time.Duration // DefaultTimeWindow if zero
	Size          Size
	StorageLayout string // Directory of the images in the storage, see common.FormatBrackets (optional)
}

// Client fetches images from the process api and persists them, one per band
type Client struct {
	httpClient *http.Client
	tokens     *TokenManager
	storage    service.Storage
	processURL string
	timeWindow time.Duration
	size       Size
	layout     string
	now        func() time.Time
}

var _ provider.ImageProvider = &Client{}

// NewClient creates a new Client
func NewClient(httpClient *http.Client, tokens *TokenManager, storage service.Storage, cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.TimeWindow <= 0 {
		cfg.TimeWindow = DefaultTimeWindow
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		tokens:     tokens,
		storage:    storage,
		processURL: strings.TrimSuffix(cfg.BaseURL, "/") + processPath,
		timeWindow: cfg.TimeWindow,
		size:       cfg.Size,
		layout:     cfg.StorageLayout,
		now:        time.Now,
	}
}

// New gets a first token with the credentials and creates a new Client
func New(ctx context.Context, httpClient *http.Client, creds Credentials, storage service.Storage, cfg Config) (*Client, error) {
	tokens, err := NewTokenManager(ctx, httpClient, creds)
	if err != nil {
		return nil, fmt.Errorf("New.%w", err)
	}
	return NewClient(httpClient, tokens, storage, cfg), nil
}

// Name implements ImageProvider
func (c *Client) Name() string {
	return "SentinelHub"
}

// FetchImages implements ImageProvider
func (c *Client) FetchImages(ctx context.Context, parcel common.Parcel, analysisType common.AnalysisType) ([]common.SatelliteImage, error) {
	now := c.now().UTC()
	return c.fetchImages(ctx, parcel, analysisType, now, TimeRange{From: now.Add(-c.timeWindow), To: now})
}

// FetchImagesBetween implements ImageProvider
func (c *Client) FetchImagesBetween(ctx context.Context, parcel common.Parcel, analysisType common.AnalysisType, from, to time.Time) ([]common.SatelliteImage, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("FetchImagesBetween: empty time range [%s, %s]", from, to)
	}
	return c.fetchImages(ctx, parcel, analysisType, c.now().UTC(), TimeRange{From: from, To: to})
}

func (c *Client) fetchImages(ctx context.Context, parcel common.Parcel, analysisType common.AnalysisType, now time.Time, timeRange TimeRange) ([]common.SatelliteImage, error) {
	bands, err := BandsFor(analysisType)
	if err != nil {
		return nil, fmt.Errorf("FetchImages: %w", err)
	}
	polygon, err := geometry.ClosedRing(parcel.Boundary)
	if err != nil {
		return nil, fmt.Errorf("FetchImages.%w", err)
	}
	prefix := common.ImagePrefix(now, analysisType, parcel)
	payload, err := BuildPayload(analysisType, polygon, prefix, timeRange, c.size)
	if err != nil {
		return nil, fmt.Errorf("FetchImages.%w", err)
	}
	body, err := payload.Body()
	if err != nil {
		return nil, fmt.Errorf("FetchImages.%w", err)
	}

	ctx = log.With(ctx, "prefix", prefix)
	blob, err := c.process(ctx, payload.ContentType(), body)
	if err != nil {
		return nil, fmt.Errorf("FetchImages.%w", err)
	}

	// The response holds all the outputs: it is stored once per band
	info := common.Info(now, analysisType, parcel)
	images := make([]common.SatelliteImage, 0, len(bands))
	for _, band := range bands {
		filename := common.StorageKey(c.layout, info, common.BandFileName(band, prefix))
		uri, err := c.storage.Save(ctx, blob, filename)
		if err != nil {
			return nil, &StorageError{Band: band, Err: err}
		}
		storedImagesTotal.WithLabelValues(string(band)).Inc()
		log.Logger(ctx).Debug("image stored", zap.String("band", string(band)), zap.String("uri", uri))
		images = append(images, common.SatelliteImage{Path: uri, Band: band})
	}
	return images, nil
}

// process posts the payload, renewing the token once if it is rejected
func (c *Client) process(ctx context.Context, contentType string, body []byte) ([]byte, error) {
	token := c.tokens.Token()
	status, respBody, err := c.post(ctx, contentType, body, token)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized {
		log.Logger(ctx).Info("sentinelhub token rejected, renewing")
		if token, err = c.tokens.Renew(ctx, token); err != nil {
			return nil, fmt.Errorf("process.Renew: %w", err)
		}
		if status, respBody, err = c.post(ctx, contentType, body, token); err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized {
			return nil, &AuthenticationError{Err: fmt.Errorf("process request unauthorized with a renewed token")}
		}
	}

	if status != http.StatusOK {
		if len(respBody) > maxErrorBody {
			respBody = respBody[:maxErrorBody]
		}
		return nil, &ProviderRequestError{Status: status, Body: string(respBody)}
	}
	return respBody, nil
}

func (c *Client) post(ctx context.Context, contentType string, body []byte, token string) (int, []byte, error) {
	resp, err := service.HTTPPostWithAuth(ctx, c.httpClient, c.processURL, contentType, body, token)
	if err != nil {
		return 0, nil, fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()
	processRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("post.ReadAll: %w", err)
	}
	log.Logger(ctx).Debug("process request", zap.Int("status", resp.StatusCode), zap.Int("size", len(respBody)))
	return resp.StatusCode, respBody, nil
}
