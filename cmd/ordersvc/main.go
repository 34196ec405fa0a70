package main

import (
	"context"
	"fmt"

	amqp091 "github.com/rabbitmq/amqp091-go"

	"github.com/mbarulin/ordersvc/internal/adapter/client/catalog"
	"github.com/mbarulin/ordersvc/internal/adapter/client/payment"
	"github.com/mbarulin/ordersvc/internal/adapter/config"
	amqphandler "github.com/mbarulin/ordersvc/internal/adapter/handler/amqp"
	"github.com/mbarulin/ordersvc/internal/adapter/handler/http"
	"github.com/mbarulin/ordersvc/internal/adapter/logger"
	"github.com/mbarulin/ordersvc/internal/adapter/storage"
	"github.com/mbarulin/ordersvc/internal/adapter/storage/repository"
	"github.com/mbarulin/ordersvc/internal/core/service"
	"go.uber.org/zap"
)

func main() {
	conf, err := config.NewConfig()
	if err != nil {
		fmt.Printf("config error:%s", err)
		return
	}

	log := logger.NewLogger(conf.App)
	if log == nil {
		fmt.Printf("error creating log")
		return
	}
	defer func() {
		err := log.Sync()
		if err != nil {
			fmt.Printf("log error: %s", err)
		}
	}()

	ctx := context.Background()

	db, err := storage.NewDBStorage(ctx, conf.Database)
	if err != nil {
		log.Error("database error", zap.Error(err))
		return
	}
	err = db.RunMigrations()
	if err != nil {
		log.Error("database migration error", zap.Error(err))
		return
	}

	repo, err := repository.NewRepository(db)
	if err != nil {
		log.Error("order repo creating error", zap.Error(err))
		return
	}

	catalogClient, err := catalog.NewClient(conf.Catalog, log.Named("Catalog"))
	if err != nil {
		log.Error("catalog client creating error", zap.Error(err))
		return
	}
	paymentClient, err := payment.NewClient(conf.Payment, log.Named("Payment"))
	if err != nil {
		log.Error("payment client creating error", zap.Error(err))
		return
	}

	svc, err := service.NewService(repo, catalogClient, paymentClient, log.Named("Service"))
	if err != nil {
		log.Error("order service creating error", zap.Error(err))
		return
	}

	brokerConn, err := amqp091.Dial(conf.Broker.URL)
	if err != nil {
		log.Error("broker connection error", zap.Error(err))
		return
	}
	defer func() { _ = brokerConn.Close() }()

	consumer, err := amqphandler.NewConsumer(brokerConn, conf.Broker, svc, log.Named("Payments consumer"))
	if err != nil {
		log.Error("payment consumer creating error", zap.Error(err))
		return
	}
	err = consumer.Start(ctx)
	if err != nil {
		log.Error("payment consumer start error", zap.Error(err))
		return
	}

	orderHandler, err := http.NewOrderHandler(svc, log.Named("Order handler"))
	if err != nil {
		log.Error("order handler creating error", zap.Error(err))
		return
	}
	paymentHandler, err := http.NewPaymentHandler(svc, log.Named("Payment handler"))
	if err != nil {
		log.Error("payment handler creating error", zap.Error(err))
		return
	}

	r, err := http.NewRouter(conf.HTTP, orderHandler, paymentHandler)
	if err != nil {
		log.Error("router creating error", zap.Error(err))
		return
	}

	err = r.Serve(conf.HTTP.HostString)
	if err != nil {
		log.Error("router serve error", zap.Error(err))
		return
	}
}
