package main

import (
	"context"
	"errors"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	log "github.com/sirupsen/logrus"

	"taskmanager/config"
	"taskmanager/events"
	"taskmanager/storage"
)

const queueAlreadyExists = "QueueAlreadyExists"

type tableCreator interface {
	CreateTable(ctx context.Context, name string, options *aztables.CreateTableOptions) (aztables.CreateTableResponse, error)
}

type queueCreator interface {
	Create(ctx context.Context, o *azqueue.CreateOptions) (azqueue.CreateResponse, error)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	log.Info("storage init starting")

	ctx := context.Background()

	switch cfg.Store.Driver {
	case config.DriverTables:
		svc, err := storage.NewTableServiceClient(cfg.Store.ConnectionString)
		if err != nil {
			log.Fatalf("table service: %v", err)
		}
		if err := createTables(ctx, svc, []string{cfg.Store.Table}); err != nil {
			log.Fatalf("create tables: %v", err)
		}
	case config.DriverMongo:
		_, client, err := storage.ConnectMongo(ctx, cfg.Store)
		if err != nil {
			log.Fatalf("connect mongo: %v", err)
		}
		defer client.Disconnect(context.Background())
		coll := client.Database(cfg.Store.Database).Collection(cfg.Store.Collection)
		if err := storage.EnsureMongoIndexes(ctx, coll); err != nil {
			log.Fatalf("mongo indexes: %v", err)
		}
	default:
		log.Infof("store driver %q needs no provisioning", cfg.Store.Driver)
	}

	if cfg.Events.Enabled() {
		qc, err := events.NewQueueClient(cfg.Events.ConnectionString, cfg.Events.Queue)
		if err != nil {
			log.Fatalf("event queue: %v", err)
		}
		if err := createQueues(ctx, []queueCreator{qc}); err != nil {
			log.Fatalf("create queues: %v", err)
		}
	}

	log.Info("storage init complete")
}

func createTables(ctx context.Context, svc tableCreator, names []string) error {
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, err := svc.CreateTable(ctx, name, nil); err != nil && !hasErrorCode(err, string(aztables.TableAlreadyExists)) {
			return err
		}
		log.WithField("table", name).Debug("table ready")
	}
	return nil
}

func createQueues(ctx context.Context, queues []queueCreator) error {
	for _, q := range queues {
		if _, err := q.Create(ctx, nil); err != nil && !hasErrorCode(err, queueAlreadyExists) {
			return err
		}
	}
	return nil
}

func hasErrorCode(err error, code string) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.ErrorCode == code
}
