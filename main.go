package main

import (
	"log"
	"os"

	"kapchat_back/chatbot"
	"kapchat_back/ingest"
	"kapchat_back/vectorstore"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func mustLoadEnv() {
	_ = godotenv.Load()
}

func main() {
	mustLoadEnv()

	r := gin.Default()
	r.Use(cors.Default())

	index, err := vectorstore.NewClientFromEnv()
	if err != nil {
		log.Fatalf("init vector store: %v", err)
	}

	if _, err := chatbot.RegisterRoutes(r, index); err != nil {
		log.Fatalf("register chatbot routes: %v", err)
	}

	if _, err := ingest.RegisterRoutes(r, index); err != nil {
		log.Fatalf("register ingest routes: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatalf("start server: %v", err)
	}
}
