// Package main (in api-subfolder) provides launch of the whole application except worker
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/threadcycle/PhotoPipeline/internal/kafka"
	"github.com/threadcycle/PhotoPipeline/internal/mwlogger"
	"github.com/threadcycle/PhotoPipeline/internal/pipeline"
	"github.com/threadcycle/PhotoPipeline/internal/repository"
	"github.com/threadcycle/PhotoPipeline/internal/service"
	"github.com/threadcycle/PhotoPipeline/internal/storage"
	"github.com/threadcycle/PhotoPipeline/internal/transport"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/ginext"
	wbfkafka "github.com/wb-go/wbf/kafka"
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
	err := zlog.SetLevel("info")
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	// готовим заранее слушатель прерываний - контекст для всего приложения
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// подключиться к базе
	dbConn := repository.ConnectWithRetries(appConfig, 5, 10*time.Second)
	// накатываем миграцию
	repository.MigrateWithRetries(dbConn.Master, "./migrations", 10, 15*time.Second)

	// подключиться к хранилищу
	strg := storage.NewAssetStorage(appConfig, 10*time.Second)
	// создаем экземпляр репо
	repo := repository.NewPostgresPhotoRepo(dbConn)

	// ждем пока кафка раздуплится
	broker := appConfig.GetString("KAFKA_BROKER")
	kafka.WaitKafkaReady(broker)
	// подключиться к кафке как продюсер
	topic := appConfig.GetString("KAFKA_TOPIC")
	kafka.InitKafkaTopics(ctx, broker, 10*time.Second, topic)
	pub := wbfkafka.NewProducer([]string{broker}, topic)

	// конфиг пайплайна нужен и на API-стороне: валидация выполняется синхронно
	pipeCfg := pipelineConfig(appConfig)

	// создаем экземпляр сервиса
	var svc PhotoAPIService = service.NewPhotoService(repo, pub, strg, pipeCfg)
	// cоздаем экземпляр хендлера HTTP
	handlers := transport.NewPhotoHandler(svc)
	// сетапим сервер
	mode := appConfig.GetString("GIN_MODE")
	engine := ginext.New(mode)

	engine.GET("/ping", handlers.SimplePinger)
	engine.POST("/photos", handlers.Create)      // батчевый прием фото
	engine.GET("/photos/:id", handlers.GetPhoto) // статус и карта URL комплекта
	engine.GET("/photos", handlers.GetAllPhotos) // список с пагинацией и сортировкой
	engine.DELETE("/photos/:id", handlers.Delete)

	srv := &http.Server{
		Addr: ":" + appConfig.GetString("APP_PORT"),
		// оборачиваем движок в мидлварь - каждый запрос получает логгер с request_id
		Handler: mwlogger.NewMWLogger(engine),
	}

	// Server launch
	go func() {
		log.Printf("Server running on http://localhost%s\n", srv.Addr)
		err := srv.ListenAndServe()
		if err != nil {
			switch {
			case errors.Is(err, http.ErrServerClosed):
				log.Println("Server gracefully stopping...")
			default:
				log.Printf("Server stopped: %v", err)
				stop()
			}
		}
	}()

	// запускаем фонового воркера для отслеживания подвисших задач
	go recoveryLoop(ctx, svc)

	// ждем отмены контекста для запуска грейсфул закрытия соединений бд и кафки
	<-ctx.Done()

	shutdown(pub, dbConn)
	log.Println("Exiting app...")
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

func recoveryLoop(ctx context.Context, svc PhotoAPIService) {
	defer func() {
		if r := recover(); r != nil {
			log.Println("Recovery loop crashed:", r)
		}
	}()

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.ReviveOrphans(context.Background(), 20)
		}
	}
}

func shutdown(cons *wbfkafka.Producer, dbConn *dbpg.DB) {
	log.Println("Interrupt received!!! Starting shutdown sequence...")

	// Closing Kafka connection:
	if err := cons.Close(); err != nil {
		log.Println("Failed to close Kafka-producer:", err)
	}
	log.Println("Kafka-producer connection closed.")

	// Closing DB connection
	if err := dbConn.Master.Close(); err != nil {
		log.Println("Failed to close DB-conn correctly:", err)
		return
	}
	log.Println("DBconn closed")
}
