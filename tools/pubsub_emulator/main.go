package main

import (
	"context"
	"flag"
	"os"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/airbusgeo/parcel-imagery/service/log"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Creates the topic and the subscription of the analysis events on a local pubsub emulator
func main() {
	ctx := context.Background()

	projectID := flag.String("project", "parcel-imagery-emulator", "emulator project")
	host := flag.String("host", "localhost:8085", "emulator host")
	eventsTopic := flag.String("topic", "analysis-events", "topic of the analysis events")
	eventsSubscription := flag.String("subscription", "analysis-events", "subscription to the analysis events")
	flag.Parse()

	os.Setenv("PUBSUB_EMULATOR_HOST", *host)

	log.Logger(ctx).Info("New client for project " + *projectID)
	client, err := pubsub.NewClient(ctx, *projectID)
	if err != nil {
		log.Fatal("pubsub.NewClient", zap.Error(err))
	}
	defer client.Close()

	log.Logger(ctx).Info("Create Topic : " + *eventsTopic)
	if _, err = client.CreateTopic(ctx, *eventsTopic); err != nil && status.Code(err) != codes.AlreadyExists {
		log.Fatal("pubsub.CreateTopic", zap.Error(err))
	}

	log.Logger(ctx).Info("Create Subscription : " + *eventsSubscription)
	if _, err = client.CreateSubscription(ctx, *eventsSubscription, pubsub.SubscriptionConfig{
		Topic:       client.Topic(*eventsTopic),
		AckDeadline: 10 * time.Second,
	}); err != nil && status.Code(err) != codes.AlreadyExists {
		log.Fatal("pubsub.CreateSubscription", zap.Error(err))
	}

	log.Logger(ctx).Info("Done!")
}
