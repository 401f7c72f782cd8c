package service

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	geocube "github.com/airbusgeo/geocube-client-go/client"
	"github.com/airbusgeo/parcel-imagery/common"
	"github.com/airbusgeo/parcel-imagery/service/geometry"
	"github.com/airbusgeo/parcel-imagery/service/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
)

// NewGeocubeClient connects to the Geocube and returns a client
func NewGeocubeClient(ctx context.Context, geocubeServer, apikey string, tlsConfig *tls.Config) (*geocube.Client, error) {
	if geocubeServer == "" {
		return nil, fmt.Errorf("GeocubeServer undefined")
	}

	var creds credentials.TransportCredentials
	if tlsConfig != nil {
		creds = credentials.NewTLS(tlsConfig)
	}
	connector := geocube.ClientConnector{Connector: geocube.Connector{Server: geocubeServer, Creds: creds, ApiKey: apikey}}
	gcclient, err := connector.Dial()
	if err != nil {
		return nil, fmt.Errorf("NewGeocubeClient.Dial: %w", err)
	}
	version, err := gcclient.ServerVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGeocubeClient.Version: %w", err)
	}
	log.Logger(ctx).Debug("Connected to Geocube Server " + version)

	return &gcclient, nil
}

// GeocubeIndexer registers the analyses as records of the Geocube, with the parcel as AOI
type GeocubeIndexer struct {
	Client *geocube.Client
}

// Index creates the record of the analysis, or returns the id of the existing one
func (gi GeocubeIndexer) Index(ctx context.Context, parcel common.Parcel, a common.Analysis) (string, error) {
	tags := RecordTags(a)

	// If record already exists, return
	if r, err := gi.Client.ListRecords(ctx, a.ID, tags, geocube.AOI{}, time.Time{}, time.Time{}, 1, 0, false); err != nil {
		return "", fmt.Errorf("Index.ListRecords: %w", err)
	} else if len(r) > 0 {
		return r[0].ID, nil
	}

	aoi, err := ParcelAOI(parcel)
	if err != nil {
		return "", fmt.Errorf("Index.%w", err)
	}
	aoiID, err := gi.Client.CreateAOI(ctx, aoi)
	if err != nil && geocube.Code(err) != codes.AlreadyExists {
		return "", fmt.Errorf("Index.CreateAOI: %w", err)
	}

	r, err := gi.Client.CreateRecord(ctx, a.ID, aoiID, a.CreatedAt, tags)
	if err != nil {
		return "", fmt.Errorf("Index.CreateRecord: %w", err)
	}
	if len(r) == 0 {
		return "", fmt.Errorf("Index.CreateRecord: no record created")
	}
	return r[0], nil
}

// RecordTags returns the tags of the record of an analysis
func RecordTags(a common.Analysis) map[string]string {
	return map[string]string{
		"source":   "parcel-imagery",
		"user":     a.UserID,
		"parcel":   a.ParcelID,
		"analysis": a.Type.String(),
	}
}

// ParcelAOI converts the boundary of the parcel to a Geocube AOI
func ParcelAOI(parcel common.Parcel) (geocube.AOI, error) {
	polygon, err := geometry.ClosedRing(parcel.Boundary)
	if err != nil {
		return geocube.AOI{}, fmt.Errorf("ParcelAOI: %w", err)
	}
	return geocube.AOIFromMultiPolygonArray([][][][2]float64{polygon}), nil
}
