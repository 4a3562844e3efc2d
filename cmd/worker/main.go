package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/threadcycle/PhotoPipeline/internal/kafka"
	"github.com/threadcycle/PhotoPipeline/internal/pipeline"
	"github.com/threadcycle/PhotoPipeline/internal/repository"
	"github.com/threadcycle/PhotoPipeline/internal/service"
	"github.com/threadcycle/PhotoPipeline/internal/storage"
	"github.com/threadcycle/PhotoPipeline/internal/uploader"
	"github.com/threadcycle/PhotoPipeline/internal/worker"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

func main() {
	// инициализировать конфиг/ считать энвы
	appConfig := config.New()
	appConfig.EnableEnv("")
	if err := appConfig.LoadEnvFiles("./.env"); err != nil {
		log.Fatalf("Failed to load envs: %s\nExiting app...", err)
	}

	// стартуем логгер
	zlog.InitConsole()
	if err := zlog.SetLevel("info"); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// подключиться к базе
	dbConn := repository.ConnectWithRetries(appConfig, 5, 10*time.Second)
	// подключиться к хранилищу
	strg := storage.NewAssetStorage(appConfig, 10*time.Second)
	// создаем экземпляр репо
	repo := repository.NewPostgresPhotoRepo(dbConn)

	// собираем ядро обработки: конфиг, координатор загрузки, пайплайн
	pipeCfg := pipelineConfig(appConfig)
	coord := uploader.NewCoordinator(strg, pipeCfg.UploadMaxInFlight, pipeCfg.UploadRetry)
	pipe := pipeline.New(pipeCfg, coord)

	// создаем экземпляр сервиса
	var svc PhotoWorkerService = service.NewPhotoService(repo, NoopPublisher{}, strg, pipeCfg)

	// ждем пока кафка раздуплится
	broker := appConfig.GetString("KAFKA_BROKER")
	kafka.WaitKafkaReady(broker)
	// подключиться к кафке как читатель
	queue := make(chan kafkago.Message)
	retryStrategy := retry.Strategy{
		Attempts: 5,
		Delay:    2 * time.Second,
		Backoff:  1.5,
	}
	topic := appConfig.GetString("KAFKA_TOPIC")
	groupID := appConfig.GetString("KAFKA_GROUPID")
	cons := wbfkafka.NewConsumer([]string{broker}, topic, groupID)

	// Listening to interruptions through context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cons.StartConsuming(ctx, queue, retryStrategy)

	// Собираем воедино все что нужно воркеру и запускаем его
	go worker.NewWorkerInstance(strg, svc, pipe, queue, cons).StartWorker(ctx)

	// Waiting for interruption to stop context to start Graceful shutdown
	<-ctx.Done()

	shutdown(cons, dbConn)
	log.Println("Exiting worker...")
}

// pipelineConfig - дефолтный пресет плюс точечные оверрайды из энвов
func pipelineConfig(appConfig *config.Config) pipeline.Config {
	cfg := pipeline.DefaultConfig()
	if v := appConfig.GetInt("UPLOAD_MAX_INFLIGHT"); v > 0 {
		cfg.UploadMaxInFlight = v
	}
	if v := appConfig.GetInt("CPU_WORKERS"); v > 0 {
		cfg.CPUWorkers = v
	}
	return cfg
}

func shutdown(cons *wbfkafka.Consumer, dbConn *dbpg.DB) {
	log.Println("Interrupt received!!! Starting shutdown sequence...")

	// Closing Kafka connection:
	if err := cons.Close(); err != nil {
		log.Println("Failed to close Kafka-reader:", err)
	}
	log.Println("Kafka-consumer connection closed.")

	// Closing DB connection
	if err := dbConn.Master.Close(); err != nil {
		log.Println("Failed to close DB-conn correctly:", err)
		return
	}
	log.Println("DBconn closed")
}
