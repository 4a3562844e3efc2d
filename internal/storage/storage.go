package storage

import (
	"log"
	"time"

	"github.com/threadcycle/PhotoPipeline/internal/storage/miniostorage"
	"github.com/wb-go/wbf/config"
)

func NewAssetStorage(cfg *config.Config, delay time.Duration) *miniostorage.MinioAssetStore {
	success := false
	var client *miniostorage.MinioAssetStore
	var err error

	for !success {
		log.Println("Connecting to asset-storage...")
		client, err = miniostorage.NewMinioClient(cfg)
		if err != nil {
			log.Printf("Failed to init connection to asset-storage: %v\nNext retry in %v...", err, delay)
			time.Sleep(delay)
			continue
		}
		log.Println("Successfully connected asset-storage!")
		success = true
	}

	return client
}
